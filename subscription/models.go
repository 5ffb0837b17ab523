// Package subscription binds a user to a plan and carries the plan-level
// daily story counter.
package subscription

import (
	"time"

	"github.com/xraph/rewards/id"
	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/types"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusTrial     Status = "trial"
)

// Subscription is the per-user plan binding.
type Subscription struct {
	types.Entity
	ID                    id.SubscriptionID `json:"id"`
	UserID                string            `json:"user_id"`
	PlanCode              string            `json:"plan_code"`
	Status                Status            `json:"status"`
	StartDate             *types.Date       `json:"start_date,omitempty"`
	ExpiryDate            *types.Date       `json:"expiry_date,omitempty"`
	NextBillingDate       *types.Date       `json:"next_billing_date,omitempty"`
	StoriesGeneratedToday int               `json:"stories_generated_today"`
	LastStoryDate         *types.Date       `json:"last_story_date,omitempty"`
	PaymentTransactionID  string            `json:"payment_transaction_id,omitempty"`
	AutoRenew             bool              `json:"auto_renew"`
	CancelledAt           *time.Time        `json:"cancelled_at,omitempty"`
	CancellationReason    string            `json:"cancellation_reason,omitempty"`
}

// NewDefault returns the free-tier subscription created on first access.
func NewDefault(userID string, today types.Date, now time.Time) *Subscription {
	return &Subscription{
		Entity:    types.NewEntity(now),
		ID:        id.NewSubscriptionID(),
		UserID:    userID,
		PlanCode:  plan.CodeFree,
		Status:    StatusActive,
		StartDate: types.DatePtr(today),
	}
}

// IsActive reports whether the subscription grants anything.
func (s *Subscription) IsActive() bool { return s.Status == StatusActive }

// StoriesOn returns the plan counter as seen on today. A counter last
// touched on an earlier day reads as zero.
func (s *Subscription) StoriesOn(today types.Date) int {
	if s.LastStoryDate == nil || *s.LastStoryDate != today {
		return 0
	}
	return s.StoriesGeneratedToday
}

// CanGenerate reports whether p admits one more story today. Inactive
// subscriptions never do.
func (s *Subscription) CanGenerate(p *plan.Plan, today types.Date) bool {
	if !s.IsActive() || p == nil {
		return false
	}
	return p.AllowsStory(s.StoriesOn(today))
}

// IncrementStories counts one story on today, rolling the counter over when
// the last story was on another day.
func (s *Subscription) IncrementStories(today types.Date, now time.Time) {
	if s.LastStoryDate == nil || *s.LastStoryDate != today {
		s.StoriesGeneratedToday = 1
		s.LastStoryDate = types.DatePtr(today)
	} else {
		s.StoriesGeneratedToday++
	}
	s.Touch(now)
}

// Activate binds the subscription to p starting today. Paid plans run for
// one month; free plans never expire.
func (s *Subscription) Activate(p *plan.Plan, today types.Date, paymentTxID string, autoRenew bool, now time.Time) {
	s.PlanCode = p.Code
	s.Status = StatusActive
	s.StartDate = types.DatePtr(today)
	s.PaymentTransactionID = paymentTxID
	s.AutoRenew = autoRenew
	s.CancelledAt = nil
	s.CancellationReason = ""
	if p.IsPaid() {
		next := today.AddMonths(1)
		s.ExpiryDate = types.DatePtr(next)
		s.NextBillingDate = types.DatePtr(next)
	} else {
		s.ExpiryDate = nil
		s.NextBillingDate = nil
	}
	s.Touch(now)
}

// Cancel marks the subscription cancelled. Counters are kept.
func (s *Subscription) Cancel(reason string, now time.Time) {
	s.Status = StatusCancelled
	s.AutoRenew = false
	at := now
	s.CancelledAt = &at
	s.CancellationReason = reason
	s.Touch(now)
}

// ExpiredOn reports whether an active, non-renewing subscription is past its
// expiry date on today.
func (s *Subscription) ExpiredOn(today types.Date) bool {
	return s.IsActive() && !s.AutoRenew && s.ExpiryDate != nil && s.ExpiryDate.Before(today)
}

// Expire marks the subscription expired.
func (s *Subscription) Expire(now time.Time) {
	s.Status = StatusExpired
	s.Touch(now)
}

// Usage summarizes today's plan consumption for a user.
type Usage struct {
	Date             types.Date `json:"date"`
	StoriesGenerated int        `json:"stories_generated"`
	PlanCode         string     `json:"plan_code"`
	PlanName         string     `json:"plan_name"`
	DailyLimit       int        `json:"daily_limit"`
	Remaining        int        `json:"remaining"`
	CanGenerateMore  bool       `json:"can_generate_more"`
}

// Summarize builds the usage summary of s under p on today.
func Summarize(s *Subscription, p *plan.Plan, today types.Date) *Usage {
	used := s.StoriesOn(today)
	u := &Usage{
		Date:             today,
		StoriesGenerated: used,
		PlanCode:         s.PlanCode,
		CanGenerateMore:  s.CanGenerate(p, today),
	}
	if p != nil {
		u.PlanName = p.Name
		u.DailyLimit = p.DailyStoryLimit
		u.Remaining = p.Remaining(used)
	}
	return u
}
