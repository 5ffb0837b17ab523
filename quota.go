package rewards

import (
	"context"
	"errors"

	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/quota"
	"github.com/xraph/rewards/store"
)

const unlockDescription = "Unlocked additional story"

// ──────────────────────────────────────────────────
// Daily quota gate
// ──────────────────────────────────────────────────

// CheckAccess reports whether the user may create a story today and what
// it would cost. Premium users always pass. It never writes.
func (e *Engine) CheckAccess(ctx context.Context, userID string) (quota.Access, error) {
	if err := requireUser(userID); err != nil {
		return quota.Access{}, err
	}

	access, err := e.checkAccess(ctx, userID)
	if err != nil {
		return quota.Access{}, err
	}

	e.plugins.EmitAccessChecked(ctx, userID, access)
	return access, nil
}

func (e *Engine) checkAccess(ctx context.Context, userID string) (quota.Access, error) {
	isPremium, err := e.premium.IsPremium(ctx, userID)
	if err != nil {
		return quota.Access{}, err
	}
	if isPremium {
		return quota.PremiumAccess(), nil
	}

	today := e.Today()
	usage, err := e.store.GetDailyUsage(ctx, userID, today)
	switch {
	case errors.Is(err, ErrNotFound):
		usage = quota.NewDailyUsage(userID, today, e.now())
	case err != nil:
		return quota.Access{}, err
	}
	return quota.Evaluate(usage, e.freePerDay, e.unlockCost), nil
}

// RecordCreation counts a created story against today's quota: a credit
// unlock when usedCredits is set, a free story otherwise. Premium users are
// not counted.
func (e *Engine) RecordCreation(ctx context.Context, userID string, usedCredits bool) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	isPremium, err := e.premium.IsPremium(ctx, userID)
	if err != nil {
		return err
	}
	if isPremium {
		return nil
	}

	return e.inTx(ctx, func(ctx context.Context, tx store.Tx, ev *pending) error {
		return e.recordCreation(ctx, tx, ev, userID, usedCredits)
	})
}

func (e *Engine) recordCreation(ctx context.Context, tx store.Tx, ev *pending, userID string, usedCredits bool) error {
	usage, err := tx.GetOrCreateDailyUsage(ctx, quota.NewDailyUsage(userID, e.Today(), e.now()))
	if err != nil {
		return err
	}
	usage.Record(usedCredits, e.now())
	if err := tx.UpdateDailyUsage(ctx, usage); err != nil {
		return err
	}

	snap := *usage
	ev.add(func(ctx context.Context) { e.plugins.EmitStoryCreationRecorded(ctx, &snap, usedCredits) })
	return nil
}

// UnlockWithCredits spends the unlock cost. It does not count the story:
// the caller follows up with RecordCreation(usedCredits=true) once the story
// exists. UnlockStory does both in one step.
func (e *Engine) UnlockWithCredits(ctx context.Context, userID string) (*credit.Account, error) {
	acct, err := e.Spend(ctx, userID, e.unlockCost, credit.CategoryStoryUnlock, unlockDescription, nil)
	if err != nil {
		return nil, err
	}

	e.plugins.EmitStoryUnlocked(ctx, userID, e.unlockCost)
	return acct, nil
}

// UnlockStory spends the unlock cost and counts a credit-funded story in one
// transaction. Premium users are neither charged nor counted.
func (e *Engine) UnlockStory(ctx context.Context, userID string) (*credit.Account, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	isPremium, err := e.premium.IsPremium(ctx, userID)
	if err != nil {
		return nil, err
	}
	if isPremium {
		return e.store.GetOrCreateAccount(ctx, credit.NewAccount(userID, e.now()))
	}

	var acct *credit.Account
	err = e.inTx(ctx, func(ctx context.Context, tx store.Tx, ev *pending) error {
		// Daily usage is locked before the account.
		if _, err := tx.GetOrCreateDailyUsage(ctx, quota.NewDailyUsage(userID, e.Today(), e.now())); err != nil {
			return err
		}
		var err error
		acct, err = e.spend(ctx, tx, ev, userID, e.unlockCost, credit.CategoryStoryUnlock, unlockDescription, nil)
		if err != nil {
			return err
		}
		if err := e.recordCreation(ctx, tx, ev, userID, true); err != nil {
			return err
		}
		ev.add(func(ctx context.Context) { e.plugins.EmitStoryUnlocked(ctx, userID, e.unlockCost) })
		return nil
	})
	if err != nil {
		e.reportInsufficient(ctx, err, userID, e.unlockCost, acct)
		return nil, err
	}

	e.logger.Debug("story unlocked", "user_id", userID, "cost", e.unlockCost, "balance", acct.Balance)
	return acct, nil
}

// DailyUsageHistory returns the user's daily usage rows, newest first.
// A limit of zero returns every row.
func (e *Engine) DailyUsageHistory(ctx context.Context, userID string, limit int) ([]*quota.DailyUsage, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return e.store.ListDailyUsage(ctx, userID, limit)
}
