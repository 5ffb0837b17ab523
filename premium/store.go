package premium

import "context"

// Store persists memberships.
type Store interface {
	// GetMembership returns the membership or rewards.ErrMembershipNotFound.
	GetMembership(ctx context.Context, userID string) (*Membership, error)
	// GetOrCreateMembership inserts def when the user has no membership yet.
	// Within a transaction the row stays locked until commit.
	GetOrCreateMembership(ctx context.Context, def *Membership) (*Membership, error)
	UpdateMembership(ctx context.Context, m *Membership) error
}
