package quota

import (
	"testing"
	"time"

	"github.com/xraph/rewards/types"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	day := types.DateOf(now, nil)

	tests := []struct {
		name   string
		free   int
		credit int
		perDay int
		want   Access
	}{
		{"fresh day", 0, 0, 1, Access{Allowed: true, Reason: ReasonFreeDaily}},
		{"free slot used", 1, 0, 1, Access{Allowed: false, Reason: ReasonNeedsCredits, Cost: 100}},
		{"credit unlocks do not refill", 1, 3, 1, Access{Allowed: false, Reason: ReasonNeedsCredits, Cost: 100}},
		{"larger allowance", 1, 0, 2, Access{Allowed: true, Reason: ReasonFreeDaily}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewDailyUsage("u1", day, now)
			u.FreeStoriesUsed = tt.free
			u.CreditStoriesUnlocked = tt.credit
			if got := Evaluate(u, tt.perDay, UnlockCost); got != tt.want {
				t.Errorf("Evaluate = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRecord(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	u := NewDailyUsage("u1", types.DateOf(now, nil), now)

	u.Record(false, now)
	u.Record(true, now)
	u.Record(true, now)

	if u.FreeStoriesUsed != 1 || u.CreditStoriesUnlocked != 2 {
		t.Errorf("got free=%d credit=%d, want 1 and 2", u.FreeStoriesUsed, u.CreditStoriesUnlocked)
	}
	if u.Total() != 3 {
		t.Errorf("Total = %d, want 3", u.Total())
	}
}
