package rewards_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/rewards"
	"github.com/xraph/rewards/adreward"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/entitlement"
	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/premium"
	"github.com/xraph/rewards/quota"
	"github.com/xraph/rewards/store/memory"
	"github.com/xraph/rewards/streak"
	"github.com/xraph/rewards/subscription"
	"github.com/xraph/rewards/types"
)

var start = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

// newEngine starts an engine over the memory store with a clock stopped at
// start.
func newEngine(t *testing.T, opts ...rewards.Option) (*rewards.Engine, *types.FixedClock) {
	t.Helper()

	clock := types.NewFixedClock(start)
	base := []rewards.Option{
		rewards.WithClock(clock),
		rewards.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	e := rewards.New(memory.New(), append(base, opts...)...)
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = e.Stop() }) //nolint:errcheck // test teardown
	return e, clock
}

func balance(t *testing.T, e *rewards.Engine, userID string) int64 {
	t.Helper()
	acct, err := e.GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if !acct.Consistent() {
		t.Fatalf("account inconsistent: %+v", acct)
	}
	return acct.Balance
}

// recorder captures plugin events.
type recorder struct {
	mu           sync.Mutex
	earned       []*credit.Transaction
	spent        []*credit.Transaction
	insufficient []int64
	milestones   []int
	committed    []entitlement.Source
	limitHits    []string
	subscribed   []string
	expired      []string
	upgrades     []premium.Duration
	impressions  []adreward.AdType
	accessChecks []quota.Reason
	streaks      []streak.Transition
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) OnCreditsEarned(_ context.Context, _ *credit.Account, txn *credit.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.earned = append(r.earned, txn)
	return nil
}

func (r *recorder) OnCreditsSpent(_ context.Context, _ *credit.Account, txn *credit.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spent = append(r.spent, txn)
	return nil
}

func (r *recorder) OnInsufficientBalance(_ context.Context, _ string, _, balance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insufficient = append(r.insufficient, balance)
	return nil
}

func (r *recorder) OnStreakUpdated(_ context.Context, res *streak.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streaks = append(r.streaks, res.Transition)
	return nil
}

func (r *recorder) OnStreakMilestone(_ context.Context, _ string, days int, _ int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.milestones = append(r.milestones, days)
	return nil
}

func (r *recorder) OnAccessChecked(_ context.Context, _ string, access quota.Access) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accessChecks = append(r.accessChecks, access.Reason)
	return nil
}

func (r *recorder) OnStoryCommitted(_ context.Context, _ string, d *entitlement.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, d.Source)
	return nil
}

func (r *recorder) OnDailyLimitReached(_ context.Context, _, planCode string, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limitHits = append(r.limitHits, planCode)
	return nil
}

func (r *recorder) OnSubscribed(_ context.Context, _ *subscription.Subscription, p *plan.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribed = append(r.subscribed, p.Code)
	return nil
}

func (r *recorder) OnSubscriptionExpired(_ context.Context, sub *subscription.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired = append(r.expired, sub.UserID)
	return nil
}

func (r *recorder) OnPremiumUpgraded(_ context.Context, m *premium.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upgrades = append(r.upgrades, m.Duration)
	return nil
}

func (r *recorder) OnAdImpression(_ context.Context, imp *adreward.Impression) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.impressions = append(r.impressions, imp.AdType)
	return nil
}

func TestStartSeedsCatalog(t *testing.T) {
	e, _ := newEngine(t)

	plans, err := e.ListPlans(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{plan.CodeFree, plan.CodeDreamer, plan.CodeLegendary}
	if len(plans) != len(want) {
		t.Fatalf("got %d plans, want %d", len(plans), len(want))
	}
	for i, p := range plans {
		if p.Code != want[i] {
			t.Errorf("plans[%d] = %s, want %s", i, p.Code, want[i])
		}
	}
}

func TestStartKeepsEditedPlans(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	p, err := e.GetPlan(ctx, plan.CodeDreamer)
	if err != nil {
		t.Fatal(err)
	}
	p.DailyStoryLimit = 12
	if err := e.SavePlan(ctx, p); err != nil {
		t.Fatal(err)
	}

	// A second start must not overwrite the edit.
	if err := e.Start(ctx); err != nil {
		t.Fatal(err)
	}
	got, err := e.GetPlan(ctx, plan.CodeDreamer)
	if err != nil {
		t.Fatal(err)
	}
	if got.DailyStoryLimit != 12 {
		t.Errorf("DailyStoryLimit = %d, want 12", got.DailyStoryLimit)
	}
}

func TestWithoutCatalogSeed(t *testing.T) {
	e, _ := newEngine(t, rewards.WithoutCatalogSeed())

	plans, err := e.ListPlans(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(plans) != 0 {
		t.Errorf("got %d plans, want none", len(plans))
	}
}

// migrateCounter counts Migrate calls on a memory store.
type migrateCounter struct {
	*memory.Store
	migrations int
}

func (s *migrateCounter) Migrate(ctx context.Context) error {
	s.migrations++
	return s.Store.Migrate(ctx)
}

func TestWithoutMigrateStillSeeds(t *testing.T) {
	tests := []struct {
		name        string
		opts        []rewards.Option
		wantMigrate int
	}{
		{"default", nil, 1},
		{"without migrate", []rewards.Option{rewards.WithoutMigrate()}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &migrateCounter{Store: memory.New()}
			e := rewards.New(s, tt.opts...)
			ctx := context.Background()
			if err := e.Start(ctx); err != nil {
				t.Fatalf("Start: %v", err)
			}
			if s.migrations != tt.wantMigrate {
				t.Errorf("migrations = %d, want %d", s.migrations, tt.wantMigrate)
			}
			if _, err := e.GetPlan(ctx, plan.CodeDreamer); err != nil {
				t.Errorf("catalog not seeded: %v", err)
			}
		})
	}
}

func TestLazyRowsUseEngineClock(t *testing.T) {
	e, clock := newEngine(t)
	ctx := context.Background()
	clock.Advance(90 * time.Minute)
	want := clock.Now()

	acct, err := e.GetBalance(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	st, err := e.GetStreak(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.RecordCreation(ctx, "u1", false); err != nil {
		t.Fatal(err)
	}
	usage, err := e.DailyUsageHistory(ctx, "u1", 1)
	if err != nil || len(usage) != 1 {
		t.Fatalf("DailyUsageHistory = %v, %v", usage, err)
	}
	m, err := e.UpgradePremium(ctx, "u2", premium.Monthly)
	if err != nil {
		t.Fatal(err)
	}

	created := map[string]time.Time{
		"account":    acct.CreatedAt,
		"streak":     st.CreatedAt,
		"usage":      usage[0].CreatedAt,
		"membership": m.CreatedAt,
	}
	for name, got := range created {
		if !got.Equal(want) {
			t.Errorf("%s CreatedAt = %v, want %v", name, got, want)
		}
	}
}
