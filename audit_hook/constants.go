package audithook

// Action constants for audit events.
const (
	// Credit actions
	ActionCreditsEarned       = "credits.earned"
	ActionCreditsSpent        = "credits.spent"
	ActionInsufficientBalance = "credits.insufficient"

	// Streak actions
	ActionStreakMilestone = "streak.milestone"

	// Story actions
	ActionStoryUnlocked     = "story.unlocked"
	ActionStoryCommitted    = "story.committed"
	ActionStoryDenied       = "story.denied"
	ActionDailyLimitReached = "daily_limit.reached"

	// Subscription actions
	ActionSubscriptionCreated  = "subscription.created"
	ActionSubscriptionCanceled = "subscription.canceled"
	ActionSubscriptionExpired  = "subscription.expired"

	// Premium and ad actions
	ActionPremiumUpgraded = "premium.upgraded"
	ActionAdImpression    = "ad.impression"
)

// Resource constants for audit events.
const (
	ResourceAccount      = "credit_account"
	ResourceStreak       = "streak"
	ResourceStory        = "story"
	ResourcePlan         = "plan"
	ResourceSubscription = "subscription"
	ResourceMembership   = "premium_membership"
	ResourceAd           = "ad_impression"
)

// Category constants for audit events.
const (
	CategoryCredits      = "credits"
	CategoryEngagement   = "engagement"
	CategoryAccess       = "access"
	CategorySubscription = "subscription"
	CategoryPayment      = "payment"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
