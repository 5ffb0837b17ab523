package streak

import "context"

// Store persists streak state.
type Store interface {
	// GetOrCreateStreak returns the streak of def.UserID, inserting def on
	// first access. Within a transaction the row stays locked until commit.
	GetOrCreateStreak(ctx context.Context, def *Streak) (*Streak, error)
	UpdateStreak(ctx context.Context, s *Streak) error
}
