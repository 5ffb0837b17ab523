package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/rewards/adreward"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/quota"
	"github.com/xraph/rewards/streak"
)

type fakeCounter struct{ n float64 }

func (c *fakeCounter) Inc()          { c.n++ }
func (c *fakeCounter) Add(v float64) { c.n += v }

type fakeHistogram struct{ obs []float64 }

func (h *fakeHistogram) Observe(v float64) { h.obs = append(h.obs, v) }

type fakeFactory struct {
	counters   map[string]*fakeCounter
	histograms map[string]*fakeHistogram
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		counters:   make(map[string]*fakeCounter),
		histograms: make(map[string]*fakeHistogram),
	}
}

func (f *fakeFactory) Counter(name string) Counter {
	c := &fakeCounter{}
	f.counters[name] = c
	return c
}

func (f *fakeFactory) Histogram(name string) Histogram {
	h := &fakeHistogram{}
	f.histograms[name] = h
	return h
}

func TestMetricsExtensionCountsHooks(t *testing.T) {
	ctx := context.Background()
	f := newFakeFactory()
	m := NewMetricsExtension(f)

	_ = m.OnCreditsEarned(ctx, &credit.Account{}, &credit.Transaction{Amount: 5})
	_ = m.OnCreditsSpent(ctx, &credit.Account{}, &credit.Transaction{Amount: -100})
	_ = m.OnAccessChecked(ctx, "u1", quota.Access{Allowed: true})
	_ = m.OnAccessChecked(ctx, "u1", quota.Access{Allowed: false})
	_ = m.OnAccessChecked(ctx, "u1", quota.Access{Allowed: false})
	_ = m.OnStreakUpdated(ctx, &streak.Result{Transition: streak.TransitionReset})
	_ = m.OnStreakUpdated(ctx, &streak.Result{Transition: streak.TransitionSameDay})
	_ = m.OnStoryCreationRecorded(ctx, &quota.DailyUsage{}, true)
	_ = m.OnAdImpression(ctx, &adreward.Impression{CreditsAwarded: 10})

	counts := map[string]float64{
		"rewards.credits.earned":   1,
		"rewards.credits.spent":    1,
		"rewards.access.allowed":   1,
		"rewards.access.denied":    2,
		"rewards.streak.reset":     1,
		"rewards.streak.continued": 0,
		"rewards.stories.created":  1,
		"rewards.stories.paid":     1,
		"rewards.ad.impressions":   1,
	}
	for name, want := range counts {
		c, ok := f.counters[name]
		if !ok {
			t.Errorf("counter %q not created", name)
			continue
		}
		if c.n != want {
			t.Errorf("%s = %v, want %v", name, c.n, want)
		}
	}

	if got := f.histograms["rewards.credits.spent.amount"].obs; len(got) != 1 || got[0] != 100 {
		t.Errorf("spent amount observations = %v, want [100]", got)
	}
	if got := f.histograms["rewards.ad.credits"].obs; len(got) != 1 || got[0] != 10 {
		t.Errorf("ad credit observations = %v, want [10]", got)
	}
}

func TestPrometheusFactoryRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := NewPrometheusFactory(reg)

	c := f.Counter("rewards.credits.earned")
	c.Inc()
	c.Add(2)
	if again := f.Counter("rewards.credits.earned"); again != c {
		t.Error("second Counter call returned a new collector")
	}
	f.Histogram("rewards.ad.credits").Observe(10)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
		if mf.GetName() == "rewards_credits_earned_total" {
			if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 3 {
				t.Errorf("counter value = %v, want 3", v)
			}
		}
	}
	for _, name := range []string{"rewards_credits_earned_total", "rewards_ad_credits"} {
		if !found[name] {
			t.Errorf("metric %q not gathered", name)
		}
	}
}

func TestPrometheusFactorySharesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewPrometheusFactory(reg).Counter("rewards.ad.impressions")
	b := NewPrometheusFactory(reg).Counter("rewards.ad.impressions")
	a.Inc()
	b.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) != 1 {
		t.Fatalf("families = %d, want 1", len(families))
	}
	if v := families[0].GetMetric()[0].GetCounter().GetValue(); v != 2 {
		t.Errorf("counter value = %v, want 2", v)
	}
}
