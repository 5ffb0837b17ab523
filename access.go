package rewards

import (
	"context"
	"errors"

	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/entitlement"
	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/quota"
	"github.com/xraph/rewards/store"
	"github.com/xraph/rewards/subscription"
	"github.com/xraph/rewards/types"
)

// ──────────────────────────────────────────────────
// Composed story authorization
// ──────────────────────────────────────────────────

// AuthorizeStory previews whether the user may create a story now and which
// mechanism would pay for it. An active paid plan with capacity left covers
// the story; otherwise the daily quota gate decides. Apart from the default
// subscription created on first access, nothing is written.
func (e *Engine) AuthorizeStory(ctx context.Context, userID string) (*entitlement.Decision, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	sub, err := e.GetSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := e.planFor(ctx, sub.PlanCode)
	if err != nil {
		return nil, err
	}

	today := e.Today()
	d := planDecision(sub, p, today)
	if d.Allowed {
		return d, nil
	}

	access, err := e.checkAccess(ctx, userID)
	if err != nil {
		return nil, err
	}
	applyAccess(d, access)
	return d, nil
}

// CommitStory authorizes a story and applies its counters in one
// transaction: the plan counter always, plus the free slot or a credit
// unlock when the plan did not cover it. The completion is then recorded on
// the streak. When credits are needed and payWithCredits is false, nothing
// is written and ErrPaymentRequired is returned along with the decision.
func (e *Engine) CommitStory(ctx context.Context, userID string, payWithCredits bool) (*entitlement.Decision, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	isPremium, err := e.premium.IsPremium(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		d         *entitlement.Decision
		limitHit  *plan.Plan
		spentAcct *credit.Account
	)
	err = e.inTx(ctx, func(ctx context.Context, tx store.Tx, ev *pending) error {
		limitHit, spentAcct = nil, nil

		sub, err := tx.GetOrCreateSubscription(ctx, e.defaultSubscription(userID))
		if err != nil {
			return err
		}
		p, err := tx.GetPlan(ctx, sub.PlanCode)
		if errors.Is(err, ErrPlanNotFound) {
			p = nil
		} else if err != nil {
			return err
		}

		today := e.Today()
		d = planDecision(sub, p, today)
		if !d.Allowed {
			if sub.IsActive() && p != nil && p.IsPaid() {
				limitHit = p
			}
			if err := e.commitQuota(ctx, tx, ev, d, userID, isPremium, payWithCredits, &spentAcct); err != nil {
				return err
			}
		}

		sub.IncrementStories(today, e.now())
		if err := tx.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
		if p != nil {
			d.PlanRemaining = p.Remaining(sub.StoriesOn(today))
		}

		res, err := e.recordCompletion(ctx, tx, ev, userID)
		if err != nil {
			return err
		}
		d.Streak = res

		snap := *d
		ev.add(func(ctx context.Context) { e.plugins.EmitStoryCommitted(ctx, userID, &snap) })
		return nil
	})

	if limitHit != nil {
		e.plugins.EmitDailyLimitReached(ctx, userID, limitHit.Code, limitHit.DailyStoryLimit)
	}
	if err != nil {
		e.reportInsufficient(ctx, err, userID, e.unlockCost, spentAcct)
		if errors.Is(err, ErrPaymentRequired) {
			return d, err
		}
		return nil, err
	}

	e.logger.Debug("story committed",
		"user_id", userID,
		"source", d.Source,
		"cost", d.Cost,
		"plan_remaining", d.PlanRemaining,
	)
	return d, nil
}

// commitQuota settles a story the plan did not cover through the daily
// quota gate.
func (e *Engine) commitQuota(ctx context.Context, tx store.Tx, ev *pending, d *entitlement.Decision, userID string, isPremium, payWithCredits bool, spent **credit.Account) error {
	if isPremium {
		applyAccess(d, quota.PremiumAccess())
		return nil
	}

	// Daily usage is locked before the account.
	usage, err := tx.GetOrCreateDailyUsage(ctx, quota.NewDailyUsage(userID, e.Today(), e.now()))
	if err != nil {
		return err
	}
	access := quota.Evaluate(usage, e.freePerDay, e.unlockCost)
	applyAccess(d, access)
	if access.Allowed {
		return e.recordCreation(ctx, tx, ev, userID, false)
	}
	if !payWithCredits {
		return ErrPaymentRequired
	}

	acct, err := e.spend(ctx, tx, ev, userID, e.unlockCost, credit.CategoryStoryUnlock, unlockDescription, nil)
	*spent = acct
	if err != nil {
		return err
	}
	if err := e.recordCreation(ctx, tx, ev, userID, true); err != nil {
		return err
	}

	d.Allowed = true
	d.Source = entitlement.SourceCredits
	d.Cost = e.unlockCost
	ev.add(func(ctx context.Context) { e.plugins.EmitStoryUnlocked(ctx, userID, e.unlockCost) })
	return nil
}

// planDecision admits the story when an active paid plan has capacity left.
// Free plans defer to the quota gate so a story is never counted twice
// against the free allowance.
func planDecision(sub *subscription.Subscription, p *plan.Plan, today types.Date) *entitlement.Decision {
	d := &entitlement.Decision{Source: entitlement.SourceNone, PlanCode: sub.PlanCode}
	if p == nil {
		return d
	}
	d.PlanRemaining = p.Remaining(sub.StoriesOn(today))
	if p.IsPaid() && sub.CanGenerate(p, today) {
		d.Allowed = true
		d.Source = entitlement.SourcePlan
	}
	return d
}

func applyAccess(d *entitlement.Decision, access quota.Access) {
	a := access
	d.Access = &a
	d.Allowed = access.Allowed
	d.Cost = access.Cost
	switch access.Reason {
	case quota.ReasonPremium:
		d.Source = entitlement.SourcePremium
	case quota.ReasonFreeDaily:
		d.Source = entitlement.SourceFreeDaily
	default:
		d.Source = entitlement.SourceNone
	}
}
