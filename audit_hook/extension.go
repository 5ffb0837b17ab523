// Package audithook bridges rewards lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/rewards/adreward"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/entitlement"
	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/plugin"
	"github.com/xraph/rewards/premium"
	"github.com/xraph/rewards/quota"
	"github.com/xraph/rewards/subscription"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnCreditsEarned        = (*Extension)(nil)
	_ plugin.OnCreditsSpent         = (*Extension)(nil)
	_ plugin.OnInsufficientBalance  = (*Extension)(nil)
	_ plugin.OnStreakMilestone      = (*Extension)(nil)
	_ plugin.OnAccessChecked        = (*Extension)(nil)
	_ plugin.OnStoryUnlocked        = (*Extension)(nil)
	_ plugin.OnStoryCommitted       = (*Extension)(nil)
	_ plugin.OnDailyLimitReached    = (*Extension)(nil)
	_ plugin.OnSubscribed           = (*Extension)(nil)
	_ plugin.OnSubscriptionCanceled = (*Extension)(nil)
	_ plugin.OnSubscriptionExpired  = (*Extension)(nil)
	_ plugin.OnPremiumUpgraded      = (*Extension)(nil)
	_ plugin.OnAdImpression         = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges rewards lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Credit hooks
// ──────────────────────────────────────────────────

// OnCreditsEarned implements plugin.OnCreditsEarned.
func (e *Extension) OnCreditsEarned(ctx context.Context, acct *credit.Account, txn *credit.Transaction) error {
	return e.record(ctx, ActionCreditsEarned, SeverityInfo, OutcomeSuccess,
		ResourceAccount, acct.UserID, CategoryCredits, nil,
		"transaction_id", txn.ID.String(),
		"amount", txn.Amount,
		"category", string(txn.Category),
		"balance_after", txn.BalanceAfter,
	)
}

// OnCreditsSpent implements plugin.OnCreditsSpent.
func (e *Extension) OnCreditsSpent(ctx context.Context, acct *credit.Account, txn *credit.Transaction) error {
	return e.record(ctx, ActionCreditsSpent, SeverityInfo, OutcomeSuccess,
		ResourceAccount, acct.UserID, CategoryCredits, nil,
		"transaction_id", txn.ID.String(),
		"amount", -txn.Amount,
		"category", string(txn.Category),
		"balance_after", txn.BalanceAfter,
	)
}

// OnInsufficientBalance implements plugin.OnInsufficientBalance.
func (e *Extension) OnInsufficientBalance(ctx context.Context, userID string, requested, balance int64) error {
	return e.record(ctx, ActionInsufficientBalance, SeverityWarning, OutcomeFailure,
		ResourceAccount, userID, CategoryCredits, nil,
		"requested", requested,
		"balance", balance,
	)
}

// ──────────────────────────────────────────────────
// Streak and story hooks
// ──────────────────────────────────────────────────

// OnStreakMilestone implements plugin.OnStreakMilestone.
func (e *Extension) OnStreakMilestone(ctx context.Context, userID string, days int, bonus int64) error {
	return e.record(ctx, ActionStreakMilestone, SeverityInfo, OutcomeSuccess,
		ResourceStreak, userID, CategoryEngagement, nil,
		"days", days,
		"bonus", bonus,
	)
}

// OnAccessChecked implements plugin.OnAccessChecked. Only refusals are
// audited.
func (e *Extension) OnAccessChecked(ctx context.Context, userID string, access quota.Access) error {
	if access.Allowed {
		return nil
	}
	return e.record(ctx, ActionStoryDenied, SeverityInfo, OutcomeFailure,
		ResourceStory, userID, CategoryAccess, nil,
		"reason", string(access.Reason),
		"cost", access.Cost,
	)
}

// OnStoryUnlocked implements plugin.OnStoryUnlocked.
func (e *Extension) OnStoryUnlocked(ctx context.Context, userID string, cost int64) error {
	return e.record(ctx, ActionStoryUnlocked, SeverityInfo, OutcomeSuccess,
		ResourceStory, userID, CategoryAccess, nil,
		"cost", cost,
	)
}

// OnStoryCommitted implements plugin.OnStoryCommitted.
func (e *Extension) OnStoryCommitted(ctx context.Context, userID string, d *entitlement.Decision) error {
	return e.record(ctx, ActionStoryCommitted, SeverityInfo, OutcomeSuccess,
		ResourceStory, userID, CategoryAccess, nil,
		"source", string(d.Source),
		"plan_code", d.PlanCode,
		"cost", d.Cost,
	)
}

// OnDailyLimitReached implements plugin.OnDailyLimitReached.
func (e *Extension) OnDailyLimitReached(ctx context.Context, userID, planCode string, limit int) error {
	return e.record(ctx, ActionDailyLimitReached, SeverityWarning, OutcomeFailure,
		ResourcePlan, planCode, CategoryAccess, nil,
		"user_id", userID,
		"limit", limit,
	)
}

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnSubscribed implements plugin.OnSubscribed.
func (e *Extension) OnSubscribed(ctx context.Context, sub *subscription.Subscription, p *plan.Plan) error {
	return e.record(ctx, ActionSubscriptionCreated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategorySubscription, nil,
		"user_id", sub.UserID,
		"plan_code", p.Code,
		"price", p.Price.String(),
		"auto_renew", sub.AutoRenew,
	)
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (e *Extension) OnSubscriptionCanceled(ctx context.Context, sub *subscription.Subscription) error {
	return e.record(ctx, ActionSubscriptionCanceled, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategorySubscription, nil,
		"user_id", sub.UserID,
		"plan_code", sub.PlanCode,
		"reason", sub.CancellationReason,
	)
}

// OnSubscriptionExpired implements plugin.OnSubscriptionExpired.
func (e *Extension) OnSubscriptionExpired(ctx context.Context, sub *subscription.Subscription) error {
	return e.record(ctx, ActionSubscriptionExpired, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategorySubscription, nil,
		"user_id", sub.UserID,
		"plan_code", sub.PlanCode,
	)
}

// ──────────────────────────────────────────────────
// Premium and ad hooks
// ──────────────────────────────────────────────────

// OnPremiumUpgraded implements plugin.OnPremiumUpgraded.
func (e *Extension) OnPremiumUpgraded(ctx context.Context, m *premium.Membership) error {
	meta := []any{"duration", string(m.Duration)}
	if m.ExpiresAt != nil {
		meta = append(meta, "expires_at", m.ExpiresAt.UTC())
	}
	return e.record(ctx, ActionPremiumUpgraded, SeverityInfo, OutcomeSuccess,
		ResourceMembership, m.UserID, CategoryPayment, nil,
		meta...,
	)
}

// OnAdImpression implements plugin.OnAdImpression.
func (e *Extension) OnAdImpression(ctx context.Context, imp *adreward.Impression) error {
	return e.record(ctx, ActionAdImpression, SeverityInfo, OutcomeSuccess,
		ResourceAd, imp.ID.String(), CategoryEngagement, nil,
		"user_id", imp.UserID,
		"ad_type", string(imp.AdType),
		"placement", imp.Placement,
		"credits_awarded", imp.CreditsAwarded,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
