package plan

import (
	"testing"
	"time"

	"github.com/xraph/rewards/types"
)

func TestFeatureSetHas(t *testing.T) {
	fs := NewFeatureSet(FeatureCreativeMode, "PDF_Download", "teleportation", FeatureCreativeMode)

	tests := []struct {
		name string
		want bool
	}{
		{"creative_mode", true},
		{"CREATIVE_MODE", true},
		{" pdf_download ", true},
		{"voice_cloning", false},
		{"teleportation", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fs.Has(tt.name); got != tt.want {
				t.Errorf("Has(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if len(fs) != 2 {
		t.Errorf("expected duplicates and unknown names dropped, got %v", fs)
	}
}

func TestAllFeatures(t *testing.T) {
	if got := len(AllFeatures()); got != 11 {
		t.Errorf("AllFeatures() returned %d features, want 11", got)
	}
}

func TestAllowsStory(t *testing.T) {
	limited := &Plan{DailyStoryLimit: 3}
	unlimited := &Plan{DailyStoryLimit: Unlimited}

	tests := []struct {
		name string
		plan *Plan
		used int
		want bool
		left int
	}{
		{"below limit", limited, 2, true, 1},
		{"at limit", limited, 3, false, 0},
		{"over limit", limited, 5, false, 0},
		{"unlimited", unlimited, 1000, true, Unlimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.plan.AllowsStory(tt.used); got != tt.want {
				t.Errorf("AllowsStory(%d) = %v, want %v", tt.used, got, tt.want)
			}
			if got := tt.plan.Remaining(tt.used); got != tt.left {
				t.Errorf("Remaining(%d) = %d, want %d", tt.used, got, tt.left)
			}
		})
	}
}

func TestDefaultCatalog(t *testing.T) {
	plans := DefaultCatalog(time.Now())
	// Shuffle the order to check sorting.
	plans[0], plans[2] = plans[2], plans[0]
	SortByPrice(plans)

	codes := []string{plans[0].Code, plans[1].Code, plans[2].Code}
	want := []string{CodeFree, CodeDreamer, CodeLegendary}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("order = %v, want %v", codes, want)
		}
	}

	if plans[0].IsPaid() || !plans[1].IsPaid() {
		t.Error("only the free plan should be unpaid")
	}
	if !plans[2].Features.Has(string(FeatureVoiceCloning)) {
		t.Error("legendary plan should include every feature")
	}
	if !plans[1].Price.Equal(types.USD(999)) {
		t.Errorf("dreamer price = %v", plans[1].Price)
	}
}
