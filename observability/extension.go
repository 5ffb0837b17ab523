// Package observability provides a metrics extension for the rewards engine
// that records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/rewards/adreward"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/entitlement"
	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/plugin"
	"github.com/xraph/rewards/premium"
	"github.com/xraph/rewards/quota"
	"github.com/xraph/rewards/streak"
	"github.com/xraph/rewards/subscription"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                  = (*MetricsExtension)(nil)
	_ plugin.OnInit                  = (*MetricsExtension)(nil)
	_ plugin.OnCreditsEarned         = (*MetricsExtension)(nil)
	_ plugin.OnCreditsSpent          = (*MetricsExtension)(nil)
	_ plugin.OnInsufficientBalance   = (*MetricsExtension)(nil)
	_ plugin.OnStreakUpdated         = (*MetricsExtension)(nil)
	_ plugin.OnStreakMilestone       = (*MetricsExtension)(nil)
	_ plugin.OnAccessChecked         = (*MetricsExtension)(nil)
	_ plugin.OnStoryCreationRecorded = (*MetricsExtension)(nil)
	_ plugin.OnStoryUnlocked         = (*MetricsExtension)(nil)
	_ plugin.OnStoryCommitted        = (*MetricsExtension)(nil)
	_ plugin.OnDailyLimitReached     = (*MetricsExtension)(nil)
	_ plugin.OnSubscribed            = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCanceled  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionExpired   = (*MetricsExtension)(nil)
	_ plugin.OnPremiumUpgraded       = (*MetricsExtension)(nil)
	_ plugin.OnAdImpression          = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records engine-wide lifecycle metrics.
// Register it as a rewards plugin to track credit and access activity.
type MetricsExtension struct {
	factory MetricFactory

	// Ledger metrics
	CreditsEarned       Counter
	CreditsSpent        Counter
	EarnAmount          Histogram
	SpendAmount         Histogram
	InsufficientBalance Counter

	// Streak metrics
	StreakContinued  Counter
	StreakReset      Counter
	StreakMilestones Counter

	// Quota metrics
	AccessAllowed  Counter
	AccessDenied   Counter
	StoriesCreated Counter
	StoriesPaid    Counter
	StoryUnlocks   Counter

	// Entitlement metrics
	StoriesCommitted  Counter
	DailyLimitReached Counter

	// Subscription metrics
	SubscriptionCreated  Counter
	SubscriptionCanceled Counter
	SubscriptionExpired  Counter

	// Premium and ad metrics
	PremiumUpgraded Counter
	AdImpressions   Counter
	AdCredits       Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use NewPrometheusFactory to export through a Prometheus registry.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		CreditsEarned:       factory.Counter("rewards.credits.earned"),
		CreditsSpent:        factory.Counter("rewards.credits.spent"),
		EarnAmount:          factory.Histogram("rewards.credits.earned.amount"),
		SpendAmount:         factory.Histogram("rewards.credits.spent.amount"),
		InsufficientBalance: factory.Counter("rewards.credits.insufficient"),

		StreakContinued:  factory.Counter("rewards.streak.continued"),
		StreakReset:      factory.Counter("rewards.streak.reset"),
		StreakMilestones: factory.Counter("rewards.streak.milestones"),

		AccessAllowed:  factory.Counter("rewards.access.allowed"),
		AccessDenied:   factory.Counter("rewards.access.denied"),
		StoriesCreated: factory.Counter("rewards.stories.created"),
		StoriesPaid:    factory.Counter("rewards.stories.paid"),
		StoryUnlocks:   factory.Counter("rewards.stories.unlocked"),

		StoriesCommitted:  factory.Counter("rewards.stories.committed"),
		DailyLimitReached: factory.Counter("rewards.plan.daily_limit_reached"),

		SubscriptionCreated:  factory.Counter("rewards.subscription.created"),
		SubscriptionCanceled: factory.Counter("rewards.subscription.canceled"),
		SubscriptionExpired:  factory.Counter("rewards.subscription.expired"),

		PremiumUpgraded: factory.Counter("rewards.premium.upgraded"),
		AdImpressions:   factory.Counter("rewards.ad.impressions"),
		AdCredits:       factory.Histogram("rewards.ad.credits"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(context.Context, any) error { return nil }

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnCreditsEarned implements plugin.OnCreditsEarned.
func (m *MetricsExtension) OnCreditsEarned(_ context.Context, _ *credit.Account, txn *credit.Transaction) error {
	m.CreditsEarned.Inc()
	m.EarnAmount.Observe(float64(txn.Amount))
	return nil
}

// OnCreditsSpent implements plugin.OnCreditsSpent.
func (m *MetricsExtension) OnCreditsSpent(_ context.Context, _ *credit.Account, txn *credit.Transaction) error {
	m.CreditsSpent.Inc()
	m.SpendAmount.Observe(float64(-txn.Amount))
	return nil
}

// OnInsufficientBalance implements plugin.OnInsufficientBalance.
func (m *MetricsExtension) OnInsufficientBalance(context.Context, string, int64, int64) error {
	m.InsufficientBalance.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Streak hooks
// ──────────────────────────────────────────────────

// OnStreakUpdated implements plugin.OnStreakUpdated.
func (m *MetricsExtension) OnStreakUpdated(_ context.Context, result *streak.Result) error {
	switch result.Transition {
	case streak.TransitionContinued:
		m.StreakContinued.Inc()
	case streak.TransitionReset:
		m.StreakReset.Inc()
	}
	return nil
}

// OnStreakMilestone implements plugin.OnStreakMilestone.
func (m *MetricsExtension) OnStreakMilestone(context.Context, string, int, int64) error {
	m.StreakMilestones.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Quota hooks
// ──────────────────────────────────────────────────

// OnAccessChecked implements plugin.OnAccessChecked.
func (m *MetricsExtension) OnAccessChecked(_ context.Context, _ string, access quota.Access) error {
	if access.Allowed {
		m.AccessAllowed.Inc()
	} else {
		m.AccessDenied.Inc()
	}
	return nil
}

// OnStoryCreationRecorded implements plugin.OnStoryCreationRecorded.
func (m *MetricsExtension) OnStoryCreationRecorded(_ context.Context, _ *quota.DailyUsage, usedCredits bool) error {
	m.StoriesCreated.Inc()
	if usedCredits {
		m.StoriesPaid.Inc()
	}
	return nil
}

// OnStoryUnlocked implements plugin.OnStoryUnlocked.
func (m *MetricsExtension) OnStoryUnlocked(context.Context, string, int64) error {
	m.StoryUnlocks.Inc()
	return nil
}

// OnStoryCommitted implements plugin.OnStoryCommitted.
func (m *MetricsExtension) OnStoryCommitted(context.Context, string, *entitlement.Decision) error {
	m.StoriesCommitted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Plan and subscription hooks
// ──────────────────────────────────────────────────

// OnDailyLimitReached implements plugin.OnDailyLimitReached.
func (m *MetricsExtension) OnDailyLimitReached(context.Context, string, string, int) error {
	m.DailyLimitReached.Inc()
	return nil
}

// OnSubscribed implements plugin.OnSubscribed.
func (m *MetricsExtension) OnSubscribed(context.Context, *subscription.Subscription, *plan.Plan) error {
	m.SubscriptionCreated.Inc()
	return nil
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (m *MetricsExtension) OnSubscriptionCanceled(context.Context, *subscription.Subscription) error {
	m.SubscriptionCanceled.Inc()
	return nil
}

// OnSubscriptionExpired implements plugin.OnSubscriptionExpired.
func (m *MetricsExtension) OnSubscriptionExpired(context.Context, *subscription.Subscription) error {
	m.SubscriptionExpired.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Premium and ad hooks
// ──────────────────────────────────────────────────

// OnPremiumUpgraded implements plugin.OnPremiumUpgraded.
func (m *MetricsExtension) OnPremiumUpgraded(context.Context, *premium.Membership) error {
	m.PremiumUpgraded.Inc()
	return nil
}

// OnAdImpression implements plugin.OnAdImpression.
func (m *MetricsExtension) OnAdImpression(_ context.Context, imp *adreward.Impression) error {
	m.AdImpressions.Inc()
	m.AdCredits.Observe(float64(imp.CreditsAwarded))
	return nil
}
