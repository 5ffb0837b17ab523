// Package plan defines subscription plan definitions: daily story limits,
// child profile limits, feature flags and price.
package plan

import (
	"sort"
	"strings"
	"time"

	"github.com/xraph/rewards/types"
)

// Well-known plan codes.
const (
	CodeFree      = "FREE"
	CodeDreamer   = "DREAMER"
	CodeLegendary = "LEGENDARY"
)

// Unlimited marks a limit without a ceiling.
const Unlimited = -1

// Feature is a boolean capability a plan may grant.
type Feature string

const (
	FeatureCreativeMode       Feature = "creative_mode"
	FeatureHighQuality        Feature = "high_quality"
	FeatureSlideshow          Feature = "slideshow"
	FeatureInteractive        Feature = "interactive"
	FeatureSeries             Feature = "series"
	FeatureFamilySharing      Feature = "family_sharing"
	FeaturePDFDownload        Feature = "pdf_download"
	FeatureLanguageLearning   Feature = "language_learning"
	FeatureVoiceCloning       Feature = "voice_cloning"
	FeatureParentDashboard    Feature = "parent_dashboard"
	FeatureDrawingIntegration Feature = "drawing_integration"
)

var knownFeatures = map[Feature]struct{}{
	FeatureCreativeMode:       {},
	FeatureHighQuality:        {},
	FeatureSlideshow:          {},
	FeatureInteractive:        {},
	FeatureSeries:             {},
	FeatureFamilySharing:      {},
	FeaturePDFDownload:        {},
	FeatureLanguageLearning:   {},
	FeatureVoiceCloning:       {},
	FeatureParentDashboard:    {},
	FeatureDrawingIntegration: {},
}

// ParseFeature resolves a feature name case-insensitively.
func ParseFeature(name string) (Feature, bool) {
	f := Feature(strings.ToLower(strings.TrimSpace(name)))
	_, ok := knownFeatures[f]
	return f, ok
}

// AllFeatures returns every known feature in name order.
func AllFeatures() []Feature {
	out := make([]Feature, 0, len(knownFeatures))
	for f := range knownFeatures {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FeatureSet is the set of features a plan grants.
type FeatureSet []Feature

// NewFeatureSet builds a sorted, de-duplicated set. Unknown names are dropped.
func NewFeatureSet(features ...Feature) FeatureSet {
	seen := make(map[Feature]struct{}, len(features))
	out := make(FeatureSet, 0, len(features))
	for _, f := range features {
		parsed, ok := ParseFeature(string(f))
		if !ok {
			continue
		}
		if _, dup := seen[parsed]; dup {
			continue
		}
		seen[parsed] = struct{}{}
		out = append(out, parsed)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Has reports whether name is granted. Unknown names are never granted.
func (fs FeatureSet) Has(name string) bool {
	f, ok := ParseFeature(name)
	if !ok {
		return false
	}
	for _, g := range fs {
		if g == f {
			return true
		}
	}
	return false
}

// Strings returns the feature names.
func (fs FeatureSet) Strings() []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}

// Plan is an immutable plan definition referenced by subscriptions by code.
type Plan struct {
	types.Entity
	Code             string      `json:"code"`
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	Price            types.Money `json:"price"`
	DailyStoryLimit  int         `json:"daily_story_limit"`
	MaxChildProfiles int         `json:"max_child_profiles"`
	Features         FeatureSet  `json:"features"`
	Active           bool        `json:"active"`
}

// IsPaid reports whether the plan has a nonzero price.
func (p *Plan) IsPaid() bool { return p.Price.IsPositive() }

// Unlimited reports whether the plan has no daily story ceiling.
func (p *Plan) Unlimited() bool { return p.DailyStoryLimit == Unlimited }

// AllowsStory reports whether one more story fits under the daily limit
// given the number already generated today.
func (p *Plan) AllowsStory(generatedToday int) bool {
	if p.Unlimited() {
		return true
	}
	return generatedToday < p.DailyStoryLimit
}

// Remaining returns the stories left today, or Unlimited.
func (p *Plan) Remaining(generatedToday int) int {
	if p.Unlimited() {
		return Unlimited
	}
	if r := p.DailyStoryLimit - generatedToday; r > 0 {
		return r
	}
	return 0
}

// ListOpts filters plan listings.
type ListOpts struct {
	ActiveOnly bool
}

// SortByPrice orders plans by ascending price, then code.
func SortByPrice(plans []*Plan) {
	sort.SliceStable(plans, func(i, j int) bool {
		if c := plans[i].Price.Compare(plans[j].Price); c != 0 {
			return c < 0
		}
		return plans[i].Code < plans[j].Code
	})
}

// DefaultCatalog returns the built-in plan definitions.
func DefaultCatalog(now time.Time) []*Plan {
	return []*Plan{
		{
			Entity:           types.NewEntity(now),
			Code:             CodeFree,
			Name:             "Free",
			Description:      "One story a day for one child.",
			Price:            types.USD(0),
			DailyStoryLimit:  1,
			MaxChildProfiles: 1,
			Features:         NewFeatureSet(),
			Active:           true,
		},
		{
			Entity:           types.NewEntity(now),
			Code:             CodeDreamer,
			Name:             "Dreamer",
			Description:      "Ten stories a day with creative mode and high quality output.",
			Price:            types.USD(999),
			DailyStoryLimit:  10,
			MaxChildProfiles: 3,
			Features: NewFeatureSet(
				FeatureCreativeMode, FeatureHighQuality, FeatureSlideshow,
				FeatureSeries, FeaturePDFDownload,
			),
			Active: true,
		},
		{
			Entity:           types.NewEntity(now),
			Code:             CodeLegendary,
			Name:             "Legendary",
			Description:      "Unlimited stories and every feature for the whole family.",
			Price:            types.USD(1999),
			DailyStoryLimit:  Unlimited,
			MaxChildProfiles: Unlimited,
			Features:         NewFeatureSet(AllFeatures()...),
			Active:           true,
		},
	}
}
