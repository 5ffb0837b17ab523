package adreward

import "context"

// Store persists ad impressions.
type Store interface {
	CreateImpression(ctx context.Context, imp *Impression) error
	// ListImpressions returns the user's impressions, most recent first.
	ListImpressions(ctx context.Context, userID string, limit int) ([]*Impression, error)
}
