package rewards

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/store"
	"github.com/xraph/rewards/subscription"
	"github.com/xraph/rewards/types"
)

// expirySweepBatch bounds the subscriptions loaded per sweep round.
const expirySweepBatch = 500

// ──────────────────────────────────────────────────
// Plan catalog
// ──────────────────────────────────────────────────

// ListPlans returns the active plans ordered by ascending price.
func (e *Engine) ListPlans(ctx context.Context) ([]*plan.Plan, error) {
	return e.store.ListPlans(ctx, plan.ListOpts{ActiveOnly: true})
}

// GetPlan returns a plan by code, active or not.
func (e *Engine) GetPlan(ctx context.Context, code string) (*plan.Plan, error) {
	return e.store.GetPlan(ctx, code)
}

// SavePlan validates and stores a plan definition, replacing any plan with
// the same code.
func (e *Engine) SavePlan(ctx context.Context, p *plan.Plan) error {
	p.Code = strings.TrimSpace(p.Code)
	switch {
	case p.Code == "":
		return ValidationError{Field: "code", Message: "must not be empty"}
	case strings.TrimSpace(p.Name) == "":
		return ValidationError{Field: "name", Message: "must not be empty"}
	case p.DailyStoryLimit < plan.Unlimited:
		return ValidationError{Field: "daily_story_limit", Message: "must be -1 or greater"}
	case p.MaxChildProfiles < plan.Unlimited:
		return ValidationError{Field: "max_child_profiles", Message: "must be -1 or greater"}
	case p.Price.Amount < 0:
		return ValidationError{Field: "price", Message: "must not be negative"}
	}

	p.Features = plan.NewFeatureSet(p.Features...)
	now := e.now()
	if p.CreatedAt.IsZero() {
		p.Entity = types.NewEntity(now)
	} else {
		p.Touch(now)
	}
	return e.store.SavePlan(ctx, p)
}

// planFor resolves the plan bound to sub. A missing plan yields nil so that
// callers fail closed.
func (e *Engine) planFor(ctx context.Context, code string) (*plan.Plan, error) {
	p, err := e.store.GetPlan(ctx, code)
	if errors.Is(err, ErrPlanNotFound) {
		e.logger.Warn("subscription references unknown plan", "plan_code", code)
		return nil, nil
	}
	return p, err
}

// ──────────────────────────────────────────────────
// Subscriptions
// ──────────────────────────────────────────────────

func (e *Engine) defaultSubscription(userID string) *subscription.Subscription {
	return subscription.NewDefault(userID, e.Today(), e.now())
}

// GetSubscription returns the user's subscription, creating an active free
// subscription on first access.
func (e *Engine) GetSubscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return e.store.GetOrCreateSubscription(ctx, e.defaultSubscription(userID))
}

// CanGenerateStory reports whether the user's plan admits another story
// today. Inactive subscriptions and unknown plans fail closed. The daily
// counter rolls over implicitly when the date changes.
func (e *Engine) CanGenerateStory(ctx context.Context, userID string) (bool, error) {
	sub, err := e.GetSubscription(ctx, userID)
	if err != nil {
		return false, err
	}
	p, err := e.planFor(ctx, sub.PlanCode)
	if err != nil {
		return false, err
	}

	ok := sub.CanGenerate(p, e.Today())
	if !ok && sub.IsActive() && p != nil {
		e.plugins.EmitDailyLimitReached(ctx, userID, p.Code, p.DailyStoryLimit)
	}
	return ok, nil
}

// IncrementStoryCount counts one story on the plan's daily counter,
// restarting it at 1 on a new day.
func (e *Engine) IncrementStoryCount(ctx context.Context, userID string) (*subscription.Subscription, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var sub *subscription.Subscription
	err := e.inTx(ctx, func(ctx context.Context, tx store.Tx, _ *pending) error {
		var err error
		sub, err = tx.GetOrCreateSubscription(ctx, e.defaultSubscription(userID))
		if err != nil {
			return err
		}
		sub.IncrementStories(e.Today(), e.now())
		return tx.UpdateSubscription(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// HasFeatureAccess reports whether the user's active plan grants feature.
// Unknown feature names and inactive subscriptions yield false.
func (e *Engine) HasFeatureAccess(ctx context.Context, userID, feature string) (bool, error) {
	sub, err := e.GetSubscription(ctx, userID)
	if err != nil {
		return false, err
	}
	if !sub.IsActive() {
		return false, nil
	}
	p, err := e.planFor(ctx, sub.PlanCode)
	if err != nil || p == nil {
		return false, err
	}
	return p.Features.Has(feature), nil
}

// Subscribe binds the user to planCode from today. Paid plans expire and
// bill again in one month; free plans never expire.
func (e *Engine) Subscribe(ctx context.Context, userID, planCode, paymentTxID string, autoRenew bool) (*subscription.Subscription, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	p, err := e.store.GetPlan(ctx, planCode)
	if errors.Is(err, ErrPlanNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, planCode)
	}
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, fmt.Errorf("%w: %q", ErrInactivePlan, planCode)
	}

	var sub *subscription.Subscription
	err = e.inTx(ctx, func(ctx context.Context, tx store.Tx, ev *pending) error {
		var err error
		sub, err = tx.GetOrCreateSubscription(ctx, e.defaultSubscription(userID))
		if err != nil {
			return err
		}
		sub.Activate(p, e.Today(), paymentTxID, autoRenew, e.now())
		if err := tx.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
		snap := *sub
		ev.add(func(ctx context.Context) { e.plugins.EmitSubscribed(ctx, &snap, p) })
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("subscribed",
		"user_id", userID,
		"plan_code", p.Code,
		"expiry_date", types.FormatDate(sub.ExpiryDate),
		"auto_renew", autoRenew,
	)
	return sub, nil
}

// Cancel marks the user's subscription cancelled and stops renewal. The
// subscription and its counters are kept.
func (e *Engine) Cancel(ctx context.Context, userID, reason string) (*subscription.Subscription, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var sub *subscription.Subscription
	err := e.inTx(ctx, func(ctx context.Context, tx store.Tx, ev *pending) error {
		var err error
		sub, err = tx.GetOrCreateSubscription(ctx, e.defaultSubscription(userID))
		if err != nil {
			return err
		}
		sub.Cancel(reason, e.now())
		if err := tx.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
		snap := *sub
		ev.add(func(ctx context.Context) { e.plugins.EmitSubscriptionCanceled(ctx, &snap) })
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("subscription cancelled", "user_id", userID, "reason", reason)
	return sub, nil
}

// UsageSummary reports today's plan usage for the user.
func (e *Engine) UsageSummary(ctx context.Context, userID string) (*subscription.Usage, error) {
	sub, err := e.GetSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := e.planFor(ctx, sub.PlanCode)
	if err != nil {
		return nil, err
	}
	return subscription.Summarize(sub, p, e.Today()), nil
}

// ExpireSubscriptions marks active, non-renewing subscriptions past their
// expiry date as expired and returns how many it changed. It is meant to be
// run periodically by the host application.
func (e *Engine) ExpireSubscriptions(ctx context.Context) (int, error) {
	today := e.Today()
	expired := 0

	for {
		batch, err := e.store.ListExpiredSubscriptions(ctx, today, expirySweepBatch)
		if err != nil {
			return expired, err
		}

		changed := 0
		for _, candidate := range batch {
			ok, err := e.expire(ctx, candidate, today)
			if err != nil {
				return expired, err
			}
			if ok {
				changed++
			}
		}
		expired += changed

		if len(batch) < expirySweepBatch || changed == 0 {
			break
		}
	}

	if expired > 0 {
		e.logger.Info("subscriptions expired", "count", expired, "date", today.String())
	}
	return expired, nil
}

func (e *Engine) expire(ctx context.Context, candidate *subscription.Subscription, today types.Date) (bool, error) {
	changed := false
	err := e.inTx(ctx, func(ctx context.Context, tx store.Tx, ev *pending) error {
		changed = false
		sub, err := tx.GetOrCreateSubscription(ctx, candidate)
		if err != nil {
			return err
		}
		// Re-checked under the row lock: the user may have renewed meanwhile.
		if !sub.ExpiredOn(today) {
			return nil
		}
		sub.Expire(e.now())
		if err := tx.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
		changed = true
		snap := *sub
		ev.add(func(ctx context.Context) { e.plugins.EmitSubscriptionExpired(ctx, &snap) })
		return nil
	})
	return changed, err
}
