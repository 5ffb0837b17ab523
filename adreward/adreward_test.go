package adreward

import "testing"

func TestParseAdType(t *testing.T) {
	tests := []struct {
		in       string
		want     AdType
		ok       bool
		rewarded bool
	}{
		{"REWARDED_STORY", RewardedStory, true, true},
		{"rewarded_personalize", RewardedPersonalize, true, true},
		{" interstitial_start ", InterstitialStart, true, false},
		{"INTERSTITIAL_END", InterstitialEnd, true, false},
		{"BANNER", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAdType(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("ParseAdType(%q) = %q, %v", tt.in, got, ok)
			}
			if got.Rewarded() != tt.rewarded {
				t.Errorf("Rewarded() = %v, want %v", got.Rewarded(), tt.rewarded)
			}
		})
	}
}

func TestRewardsFor(t *testing.T) {
	r := DefaultRewards()
	if r.For(RewardedStory) != 20 || r.For(RewardedPersonalize) != 10 {
		t.Errorf("unexpected default rewards %v", r)
	}
	if r.For(InterstitialEnd) != 0 {
		t.Error("interstitials pay nothing by default")
	}

	r[RewardedStory] = -5
	if r.For(RewardedStory) != 0 {
		t.Error("negative rewards must read as zero")
	}
}
