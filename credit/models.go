// Package credit defines the spendable credit balance of a user and the
// append-only log of transactions that produced it.
package credit

import (
	"time"

	"github.com/xraph/rewards/id"
	"github.com/xraph/rewards/types"
)

// Category tags the reason for a ledger mutation. Any value is accepted;
// the constants below are the ones the engine itself writes.
type Category string

const (
	CategoryAdReward         Category = "AD_REWARD"
	CategoryStreakBonus      Category = "STREAK_BONUS"
	CategoryStoryCompletion  Category = "STORY_COMPLETION"
	CategoryStoryUnlock      Category = "STORY_UNLOCK"
	CategoryPersonalizeStory Category = "PERSONALIZE_STORY"
)

// Account is the per-user balance. Balance always equals
// LifetimeEarned - LifetimeSpent and never drops below zero.
type Account struct {
	types.Entity
	UserID         string `json:"user_id"`
	Balance        int64  `json:"balance"`
	LifetimeEarned int64  `json:"lifetime_earned"`
	LifetimeSpent  int64  `json:"lifetime_spent"`
}

// NewAccount returns a zeroed account for userID.
func NewAccount(userID string, now time.Time) *Account {
	return &Account{Entity: types.NewEntity(now), UserID: userID}
}

// Earn adds amount to the balance and the lifetime earned total.
func (a *Account) Earn(amount int64, now time.Time) {
	a.Balance += amount
	a.LifetimeEarned += amount
	a.Touch(now)
}

// Spend deducts amount. It reports false and leaves the account untouched
// when the balance cannot cover it.
func (a *Account) Spend(amount int64, now time.Time) bool {
	if a.Balance < amount {
		return false
	}
	a.Balance -= amount
	a.LifetimeSpent += amount
	a.Touch(now)
	return true
}

// Consistent reports whether the balance invariant holds.
func (a *Account) Consistent() bool {
	return a.Balance >= 0 && a.Balance == a.LifetimeEarned-a.LifetimeSpent
}

// Transaction is an immutable ledger entry. Amount is positive for earnings
// and negative for spending.
type Transaction struct {
	ID           id.TransactionID  `json:"id"`
	UserID       string            `json:"user_id"`
	Amount       int64             `json:"amount"`
	Category     Category          `json:"category"`
	Description  string            `json:"description"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	BalanceAfter int64             `json:"balance_after"`
	CreatedAt    time.Time         `json:"created_at"`
}

// ListOpts pages through a user's transaction history.
type ListOpts struct {
	Limit  int
	Offset int
}

// DefaultPageSize applies when ListOpts.Limit is zero.
const DefaultPageSize = 20

// Normalize fills defaults and clamps negative values.
func (o ListOpts) Normalize() ListOpts {
	if o.Limit <= 0 {
		o.Limit = DefaultPageSize
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Page is one page of history, newest first.
type Page struct {
	Transactions []*Transaction `json:"transactions"`
	Total        int64          `json:"total"`
	Limit        int            `json:"limit"`
	Offset       int            `json:"offset"`
}
