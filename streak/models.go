// Package streak tracks consecutive days on which a user completed at least
// one story, and the credit bonuses those days earn.
package streak

import (
	"time"

	"github.com/xraph/rewards/types"
)

// CompletionBonus is credited for every recorded completion, including
// repeats on the same day.
const CompletionBonus int64 = 2

// Streak is the per-user streak state. LongestStreak >= CurrentStreak.
type Streak struct {
	types.Entity
	UserID           string      `json:"user_id"`
	CurrentStreak    int         `json:"current_streak"`
	LongestStreak    int         `json:"longest_streak"`
	LastActivityDate *types.Date `json:"last_activity_date,omitempty"`
}

// NewStreak returns an empty streak for userID.
func NewStreak(userID string, now time.Time) *Streak {
	return &Streak{Entity: types.NewEntity(now), UserID: userID}
}

// Transition names what a completion did to the streak.
type Transition string

const (
	TransitionFirst     Transition = "first"
	TransitionSameDay   Transition = "same_day"
	TransitionContinued Transition = "continued"
	TransitionReset     Transition = "reset"
)

// Changed reports whether the transition mutates the stored state.
func (t Transition) Changed() bool { return t != TransitionSameDay }

// Advance applies a completion on today and returns the transition taken.
func (s *Streak) Advance(today types.Date) Transition {
	var tr Transition
	switch {
	case s.LastActivityDate == nil || s.LastActivityDate.IsZero():
		s.CurrentStreak = 1
		tr = TransitionFirst
	case *s.LastActivityDate == today:
		return TransitionSameDay
	case s.LastActivityDate.AddDays(1) == today:
		s.CurrentStreak++
		tr = TransitionContinued
	default:
		// A clock moved backwards lands here too and restarts the run.
		s.CurrentStreak = 1
		tr = TransitionReset
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.LastActivityDate = types.DatePtr(today)
	return tr
}

// MilestoneBonus returns the credits awarded when a streak reaches days,
// or 0 when days is not a milestone.
func MilestoneBonus(days int) int64 {
	switch {
	case days == 3:
		return 10
	case days == 7:
		return 25
	case days == 14:
		return 50
	case days >= 30 && days%30 == 0:
		return 100
	}
	return 0
}

// Result describes the outcome of recording a completion.
type Result struct {
	Streak          *Streak    `json:"streak"`
	Transition      Transition `json:"transition"`
	CompletionBonus int64      `json:"completion_bonus"`
	MilestoneBonus  int64      `json:"milestone_bonus"`
}

// Awarded is the total credited by the completion.
func (r *Result) Awarded() int64 { return r.CompletionBonus + r.MilestoneBonus }
