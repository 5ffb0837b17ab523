package quota

import (
	"context"

	"github.com/xraph/rewards/types"
)

// Store persists daily usage rows keyed by (user, date).
type Store interface {
	// GetDailyUsage returns the row for (userID, date) or rewards.ErrNotFound.
	GetDailyUsage(ctx context.Context, userID string, date types.Date) (*DailyUsage, error)
	// GetOrCreateDailyUsage returns the row for (def.UserID, def.Date),
	// inserting def on first access. Within a transaction the row stays
	// locked until commit.
	GetOrCreateDailyUsage(ctx context.Context, def *DailyUsage) (*DailyUsage, error)
	UpdateDailyUsage(ctx context.Context, u *DailyUsage) error
	// ListDailyUsage returns the user's rows newest date first.
	ListDailyUsage(ctx context.Context, userID string, limit int) ([]*DailyUsage, error)
}
