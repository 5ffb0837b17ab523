// Package quota models the per-day story allowance of non-premium users:
// a small number of free stories plus any number bought with credits.
package quota

import (
	"time"

	"github.com/xraph/rewards/types"
)

// Policy defaults.
const (
	FreeStoriesPerDay       = 1
	UnlockCost        int64 = 100
)

// Reason explains an access decision.
type Reason string

const (
	ReasonPremium      Reason = "PREMIUM"
	ReasonFreeDaily    Reason = "FREE_DAILY"
	ReasonNeedsCredits Reason = "NEEDS_CREDITS"
)

// Access is the answer to "may this user create a story today?".
type Access struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
	Cost    int64  `json:"cost"`
}

// DailyUsage counts a user's stories on one calendar day.
type DailyUsage struct {
	types.Entity
	UserID                string     `json:"user_id"`
	Date                  types.Date `json:"date"`
	FreeStoriesUsed       int        `json:"free_stories_used"`
	CreditStoriesUnlocked int        `json:"credit_stories_unlocked"`
}

// NewDailyUsage returns a zeroed row for userID on date.
func NewDailyUsage(userID string, date types.Date, now time.Time) *DailyUsage {
	return &DailyUsage{Entity: types.NewEntity(now), UserID: userID, Date: date}
}

// Record counts one created story.
func (u *DailyUsage) Record(usedCredits bool, now time.Time) {
	if usedCredits {
		u.CreditStoriesUnlocked++
	} else {
		u.FreeStoriesUsed++
	}
	u.Touch(now)
}

// Total is the number of stories created that day.
func (u *DailyUsage) Total() int { return u.FreeStoriesUsed + u.CreditStoriesUnlocked }

// Evaluate decides access for a non-premium user from today's usage.
func Evaluate(u *DailyUsage, freePerDay int, unlockCost int64) Access {
	if u.FreeStoriesUsed < freePerDay {
		return Access{Allowed: true, Reason: ReasonFreeDaily}
	}
	return Access{Allowed: false, Reason: ReasonNeedsCredits, Cost: unlockCost}
}

// PremiumAccess is the decision for premium users.
func PremiumAccess() Access {
	return Access{Allowed: true, Reason: ReasonPremium}
}
