// Package adreward records watched advertisements and the credits they pay.
package adreward

import (
	"strings"
	"time"

	"github.com/xraph/rewards/id"
)

// AdType identifies an ad slot.
type AdType string

const (
	InterstitialStart   AdType = "INTERSTITIAL_START"
	InterstitialEnd     AdType = "INTERSTITIAL_END"
	RewardedStory       AdType = "REWARDED_STORY"
	RewardedPersonalize AdType = "REWARDED_PERSONALIZE"
)

// ParseAdType resolves an ad type name case-insensitively.
func ParseAdType(s string) (AdType, bool) {
	t := AdType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case InterstitialStart, InterstitialEnd, RewardedStory, RewardedPersonalize:
		return t, true
	}
	return "", false
}

// Rewarded reports whether the ad type can pay credits.
func (t AdType) Rewarded() bool {
	return t == RewardedStory || t == RewardedPersonalize
}

// Rewards maps ad types to the credits one impression earns.
type Rewards map[AdType]int64

// DefaultRewards returns the built-in reward table.
func DefaultRewards() Rewards {
	return Rewards{
		InterstitialStart:   0,
		InterstitialEnd:     0,
		RewardedStory:       20,
		RewardedPersonalize: 10,
	}
}

// For returns the credits earned for t. Negative values read as zero.
func (r Rewards) For(t AdType) int64 {
	if v := r[t]; v > 0 {
		return v
	}
	return 0
}

// Impression is one watched ad.
type Impression struct {
	ID             id.AdImpressionID `json:"id"`
	UserID         string            `json:"user_id"`
	AdType         AdType            `json:"ad_type"`
	Placement      string            `json:"placement,omitempty"`
	CreditsAwarded int64             `json:"credits_awarded"`
	WatchedAt      time.Time         `json:"watched_at"`
}
