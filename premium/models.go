// Package premium tracks time-boxed premium memberships. Premium users
// bypass the daily story quota.
package premium

import (
	"context"
	"strings"
	"time"

	"github.com/xraph/rewards/types"
)

// Duration is a purchasable membership length.
type Duration string

const (
	Monthly Duration = "monthly"
	Yearly  Duration = "yearly"
)

// ParseDuration resolves a duration name case-insensitively. An empty name
// means Monthly.
func ParseDuration(s string) (Duration, bool) {
	switch Duration(strings.ToLower(strings.TrimSpace(s))) {
	case "", Monthly:
		return Monthly, true
	case Yearly:
		return Yearly, true
	}
	return "", false
}

// Length returns the membership length of d.
func (d Duration) Length() time.Duration {
	if d == Yearly {
		return 365 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}

// Membership is the premium state of a user.
type Membership struct {
	types.Entity
	UserID    string     `json:"user_id"`
	Premium   bool       `json:"premium"`
	Duration  Duration   `json:"duration,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// NewMembership returns a non-premium membership for userID.
func NewMembership(userID string, now time.Time) *Membership {
	return &Membership{Entity: types.NewEntity(now), UserID: userID}
}

// ActiveAt reports whether the membership grants premium at now. A premium
// flag without an expiry never lapses.
func (m *Membership) ActiveAt(now time.Time) bool {
	if m == nil || !m.Premium {
		return false
	}
	return m.ExpiresAt == nil || now.Before(*m.ExpiresAt)
}

// Upgrade grants premium for d. An unexpired membership is extended from its
// current expiry instead of from now.
func (m *Membership) Upgrade(d Duration, now time.Time) {
	start := now
	if m.ActiveAt(now) && m.ExpiresAt != nil {
		start = *m.ExpiresAt
	}
	expires := start.Add(d.Length())
	m.Premium = true
	m.Duration = d
	m.ExpiresAt = &expires
	m.Touch(now)
}

// Resolver answers whether a user currently holds premium.
type Resolver interface {
	IsPremium(ctx context.Context, userID string) (bool, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, userID string) (bool, error)

// IsPremium implements Resolver.
func (f ResolverFunc) IsPremium(ctx context.Context, userID string) (bool, error) {
	return f(ctx, userID)
}
