// Package plugin provides an extensible plugin system for the rewards engine.
// Plugins hook into lifecycle events by implementing any of the hook
// interfaces below. Hooks run after the triggering operation has committed.
package plugin

import (
	"context"

	"github.com/xraph/rewards/adreward"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/entitlement"
	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/premium"
	"github.com/xraph/rewards/quota"
	"github.com/xraph/rewards/streak"
	"github.com/xraph/rewards/subscription"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts. e is the *rewards.Engine.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, e any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnCreditsEarned is called after credits are added to an account.
type OnCreditsEarned interface {
	Plugin
	OnCreditsEarned(ctx context.Context, acct *credit.Account, txn *credit.Transaction) error
}

// OnCreditsSpent is called after credits are deducted from an account.
type OnCreditsSpent interface {
	Plugin
	OnCreditsSpent(ctx context.Context, acct *credit.Account, txn *credit.Transaction) error
}

// OnInsufficientBalance is called when a spend is refused.
type OnInsufficientBalance interface {
	Plugin
	OnInsufficientBalance(ctx context.Context, userID string, requested, balance int64) error
}

// ──────────────────────────────────────────────────
// Streak hooks
// ──────────────────────────────────────────────────

// OnStreakUpdated is called after every recorded completion.
type OnStreakUpdated interface {
	Plugin
	OnStreakUpdated(ctx context.Context, result *streak.Result) error
}

// OnStreakMilestone is called when a streak reaches a bonus milestone.
type OnStreakMilestone interface {
	Plugin
	OnStreakMilestone(ctx context.Context, userID string, days int, bonus int64) error
}

// ──────────────────────────────────────────────────
// Quota hooks
// ──────────────────────────────────────────────────

// OnAccessChecked is called after the daily quota gate answers.
type OnAccessChecked interface {
	Plugin
	OnAccessChecked(ctx context.Context, userID string, access quota.Access) error
}

// OnStoryCreationRecorded is called after a story is counted against the
// daily quota.
type OnStoryCreationRecorded interface {
	Plugin
	OnStoryCreationRecorded(ctx context.Context, usage *quota.DailyUsage, usedCredits bool) error
}

// OnStoryUnlocked is called after credits were spent to unlock a story.
type OnStoryUnlocked interface {
	Plugin
	OnStoryUnlocked(ctx context.Context, userID string, cost int64) error
}

// OnStoryCommitted is called after a story passed the combined plan and
// quota authorization and its counters were applied.
type OnStoryCommitted interface {
	Plugin
	OnStoryCommitted(ctx context.Context, userID string, decision *entitlement.Decision) error
}

// ──────────────────────────────────────────────────
// Plan and subscription hooks
// ──────────────────────────────────────────────────

// OnDailyLimitReached is called when a plan's daily story limit blocks a story.
type OnDailyLimitReached interface {
	Plugin
	OnDailyLimitReached(ctx context.Context, userID, planCode string, limit int) error
}

// OnSubscribed is called after a user subscribes to a plan.
type OnSubscribed interface {
	Plugin
	OnSubscribed(ctx context.Context, sub *subscription.Subscription, p *plan.Plan) error
}

// OnSubscriptionCanceled is called after a subscription is cancelled.
type OnSubscriptionCanceled interface {
	Plugin
	OnSubscriptionCanceled(ctx context.Context, sub *subscription.Subscription) error
}

// OnSubscriptionExpired is called when the expiry sweep expires a subscription.
type OnSubscriptionExpired interface {
	Plugin
	OnSubscriptionExpired(ctx context.Context, sub *subscription.Subscription) error
}

// ──────────────────────────────────────────────────
// Premium and ad hooks
// ──────────────────────────────────────────────────

// OnPremiumUpgraded is called after a premium purchase.
type OnPremiumUpgraded interface {
	Plugin
	OnPremiumUpgraded(ctx context.Context, m *premium.Membership) error
}

// OnAdImpression is called after an ad impression is recorded.
type OnAdImpression interface {
	Plugin
	OnAdImpression(ctx context.Context, imp *adreward.Impression) error
}
