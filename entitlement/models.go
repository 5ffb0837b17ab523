// Package entitlement describes the combined story authorization decision
// that merges the plan limit with the daily quota gate.
package entitlement

import (
	"github.com/xraph/rewards/quota"
	"github.com/xraph/rewards/streak"
)

// Source names the mechanism that admitted (or refused) a story.
type Source string

const (
	// SourcePlan means a paid plan's daily limit covered the story.
	SourcePlan Source = "PLAN"
	// SourcePremium means a premium membership bypassed the quota gate.
	SourcePremium Source = "PREMIUM"
	// SourceFreeDaily means the daily free slot was used.
	SourceFreeDaily Source = "FREE_DAILY"
	// SourceCredits means the story was bought with credits.
	SourceCredits Source = "CREDITS"
	// SourceNone means the story was refused.
	SourceNone Source = "NONE"
)

// Decision is the result of authorizing or committing one story.
type Decision struct {
	Allowed  bool   `json:"allowed"`
	Source   Source `json:"source"`
	Cost     int64  `json:"cost"`
	PlanCode string `json:"plan_code"`
	// PlanRemaining is the number of plan stories left today, or -1.
	PlanRemaining int `json:"plan_remaining"`
	// Access is the quota gate's answer when the plan did not cover the story.
	Access *quota.Access `json:"access,omitempty"`
	// Streak is set by a committed story.
	Streak *streak.Result `json:"streak,omitempty"`
}

// NeedsCredits reports whether the story can only be bought with credits.
func (d *Decision) NeedsCredits() bool {
	return !d.Allowed && d.Access != nil && d.Access.Reason == quota.ReasonNeedsCredits
}
