package rewards_test

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/rewards"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/streak"
)

func TestRecordCompletionAcrossDays(t *testing.T) {
	rec := &recorder{}
	e, clock := newEngine(t, rewards.WithPlugin(rec))
	ctx := context.Background()

	steps := []struct {
		name        string
		advanceDays int
		transition  streak.Transition
		current     int
		longest     int
		milestone   int64
		balance     int64
	}{
		{"first ever", 0, streak.TransitionFirst, 1, 1, 0, 2},
		{"same day repeat", 0, streak.TransitionSameDay, 1, 1, 0, 4},
		{"day two", 1, streak.TransitionContinued, 2, 2, 0, 6},
		{"day three milestone", 1, streak.TransitionContinued, 3, 3, 10, 18},
		{"gap resets", 2, streak.TransitionReset, 1, 3, 0, 20},
	}
	for _, st := range steps {
		clock.AdvanceDays(st.advanceDays)

		res, err := e.RecordCompletion(ctx, "u1")
		if err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		if res.Transition != st.transition {
			t.Errorf("%s: transition = %s, want %s", st.name, res.Transition, st.transition)
		}
		if res.Streak.CurrentStreak != st.current || res.Streak.LongestStreak != st.longest {
			t.Errorf("%s: streak = %d/%d, want %d/%d", st.name,
				res.Streak.CurrentStreak, res.Streak.LongestStreak, st.current, st.longest)
		}
		if res.CompletionBonus != streak.CompletionBonus || res.MilestoneBonus != st.milestone {
			t.Errorf("%s: bonuses = %d+%d, want %d+%d", st.name,
				res.CompletionBonus, res.MilestoneBonus, streak.CompletionBonus, st.milestone)
		}
		if got := balance(t, e, "u1"); got != st.balance {
			t.Errorf("%s: balance = %d, want %d", st.name, got, st.balance)
		}
	}

	if len(rec.milestones) != 1 || rec.milestones[0] != 3 {
		t.Errorf("milestone hooks = %v, want [3]", rec.milestones)
	}
	if len(rec.streaks) != len(steps) {
		t.Errorf("streak hooks = %d, want %d", len(rec.streaks), len(steps))
	}
}

func TestMilestoneTransactionIsTagged(t *testing.T) {
	e, clock := newEngine(t)
	ctx := context.Background()

	for day := 0; day < 3; day++ {
		if _, err := e.RecordCompletion(ctx, "u1"); err != nil {
			t.Fatal(err)
		}
		clock.AdvanceDays(1)
	}

	page, err := e.GetHistory(ctx, "u1", credit.ListOpts{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, txn := range page.Transactions {
		if txn.Category != credit.CategoryStreakBonus {
			continue
		}
		found = true
		if txn.Amount != 10 || txn.Description != "Streak milestone: 3 days" || txn.Metadata["streak_days"] != "3" {
			t.Errorf("milestone transaction = %+v", txn)
		}
	}
	if !found {
		t.Error("no STREAK_BONUS transaction")
	}
}

func TestGetStreakDoesNotAdvance(t *testing.T) {
	e, _ := newEngine(t)

	st, err := e.GetStreak(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if st.CurrentStreak != 0 || st.LastActivityDate != nil {
		t.Errorf("streak = %+v, want empty", st)
	}
}

func TestStreakFollowsLocation(t *testing.T) {
	// 09:00 UTC on March 10 is 02:00 in Los Angeles; sixteen hours later it
	// is already March 11 in UTC but still March 10 there.
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	e, clock := newEngine(t, rewards.WithLocation(la))
	ctx := context.Background()

	if _, err := e.RecordCompletion(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	clock.Advance(16 * time.Hour)
	res, err := e.RecordCompletion(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Transition != streak.TransitionSameDay {
		t.Errorf("transition = %s, want same_day in local time", res.Transition)
	}
}
