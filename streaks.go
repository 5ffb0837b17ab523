package rewards

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/store"
	"github.com/xraph/rewards/streak"
)

// ──────────────────────────────────────────────────
// Streak tracker
// ──────────────────────────────────────────────────

// RecordCompletion registers a completed story for today. It advances the
// streak at most once per day, credits the completion bonus on every call
// and credits a milestone bonus when a continued streak reaches one.
func (e *Engine) RecordCompletion(ctx context.Context, userID string) (*streak.Result, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var res *streak.Result
	err := e.inTx(ctx, func(ctx context.Context, tx store.Tx, ev *pending) error {
		var err error
		res, err = e.recordCompletion(ctx, tx, ev, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("story completion recorded",
		"user_id", userID,
		"transition", res.Transition,
		"current_streak", res.Streak.CurrentStreak,
		"awarded", res.Awarded(),
	)
	return res, nil
}

// GetStreak returns the user's streak without advancing it.
func (e *Engine) GetStreak(ctx context.Context, userID string) (*streak.Streak, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return e.store.GetOrCreateStreak(ctx, streak.NewStreak(userID, e.now()))
}

func (e *Engine) recordCompletion(ctx context.Context, tx store.Tx, ev *pending, userID string) (*streak.Result, error) {
	// The account is locked before the streak row.
	if _, err := tx.GetOrCreateAccount(ctx, credit.NewAccount(userID, e.now())); err != nil {
		return nil, err
	}
	st, err := tx.GetOrCreateStreak(ctx, streak.NewStreak(userID, e.now()))
	if err != nil {
		return nil, err
	}

	tr := st.Advance(e.Today())
	if tr.Changed() {
		st.Touch(e.now())
		if err := tx.UpdateStreak(ctx, st); err != nil {
			return nil, err
		}
	}

	res := &streak.Result{Streak: st, Transition: tr, CompletionBonus: streak.CompletionBonus}
	if _, err := e.earn(ctx, tx, ev, userID, streak.CompletionBonus, credit.CategoryStoryCompletion, "Completed a story", nil); err != nil {
		return nil, err
	}

	if tr == streak.TransitionContinued {
		days := st.CurrentStreak
		if bonus := streak.MilestoneBonus(days); bonus > 0 {
			res.MilestoneBonus = bonus
			meta := map[string]string{"streak_days": strconv.Itoa(days)}
			if _, err := e.earn(ctx, tx, ev, userID, bonus, credit.CategoryStreakBonus, fmt.Sprintf("Streak milestone: %d days", days), meta); err != nil {
				return nil, err
			}
			ev.add(func(ctx context.Context) { e.plugins.EmitStreakMilestone(ctx, userID, days, bonus) })
		}
	}

	ev.add(func(ctx context.Context) { e.plugins.EmitStreakUpdated(ctx, res) })
	return res, nil
}
