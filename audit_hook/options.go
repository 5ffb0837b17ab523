package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger used to report recorder failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithEnabledActions restricts auditing to actions.
// Without it every known action is audited.
func WithEnabledActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = actionSet(actions)
	}
}

// WithDisabledActions audits everything except actions. Combined with
// WithEnabledActions it removes from the enabled set.
func WithDisabledActions(actions ...string) Option {
	return func(e *Extension) {
		if e.enabled == nil {
			e.enabled = actionSet(knownActions)
		}
		for _, action := range actions {
			delete(e.enabled, action)
		}
	}
}

func actionSet(actions []string) map[string]bool {
	set := make(map[string]bool, len(actions))
	for _, a := range actions {
		set[a] = true
	}
	return set
}

// knownActions lists every action the extension emits.
var knownActions = []string{
	ActionCreditsEarned,
	ActionCreditsSpent,
	ActionInsufficientBalance,
	ActionStreakMilestone,
	ActionStoryUnlocked,
	ActionStoryCommitted,
	ActionStoryDenied,
	ActionDailyLimitReached,
	ActionSubscriptionCreated,
	ActionSubscriptionCanceled,
	ActionSubscriptionExpired,
	ActionPremiumUpgraded,
	ActionAdImpression,
}
