package subscription

import (
	"context"

	"github.com/xraph/rewards/types"
)

// Store persists one subscription per user.
type Store interface {
	// GetSubscription returns the user's subscription or
	// rewards.ErrSubscriptionNotFound.
	GetSubscription(ctx context.Context, userID string) (*Subscription, error)
	// GetOrCreateSubscription inserts def when the user has no subscription
	// and returns the stored row. Within a transaction the row stays locked
	// until commit.
	GetOrCreateSubscription(ctx context.Context, def *Subscription) (*Subscription, error)
	UpdateSubscription(ctx context.Context, s *Subscription) error
	// ListExpiredSubscriptions returns active, non-renewing subscriptions
	// whose expiry date is before today.
	ListExpiredSubscriptions(ctx context.Context, today types.Date, limit int) ([]*Subscription, error)
}
