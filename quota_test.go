package rewards_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/rewards"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/premium"
	"github.com/xraph/rewards/quota"
)

func mustAccess(t *testing.T, e *rewards.Engine, userID string) quota.Access {
	t.Helper()
	access, err := e.CheckAccess(context.Background(), userID)
	if err != nil {
		t.Fatalf("CheckAccess: %v", err)
	}
	return access
}

func TestDailyQuotaFlow(t *testing.T) {
	rec := &recorder{}
	e, clock := newEngine(t, rewards.WithPlugin(rec))
	ctx := context.Background()

	if got := mustAccess(t, e, "u1"); !got.Allowed || got.Reason != quota.ReasonFreeDaily {
		t.Fatalf("first check = %+v, want free daily", got)
	}
	if err := e.RecordCreation(ctx, "u1", false); err != nil {
		t.Fatal(err)
	}

	got := mustAccess(t, e, "u1")
	want := quota.Access{Allowed: false, Reason: quota.ReasonNeedsCredits, Cost: quota.UnlockCost}
	if got != want {
		t.Fatalf("second check = %+v, want %+v", got, want)
	}

	if _, err := e.UnlockStory(ctx, "u1"); !errors.Is(err, rewards.ErrInsufficientBalance) {
		t.Fatalf("UnlockStory err = %v, want ErrInsufficientBalance", err)
	}

	if _, err := e.Earn(ctx, "u1", 150, credit.CategoryAdReward, "", nil); err != nil {
		t.Fatal(err)
	}
	acct, err := e.UnlockStory(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if acct.Balance != 50 {
		t.Errorf("balance = %d, want 50", acct.Balance)
	}

	usage, err := e.DailyUsageHistory(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(usage) != 1 || usage[0].FreeStoriesUsed != 1 || usage[0].CreditStoriesUnlocked != 1 {
		t.Fatalf("usage = %+v", usage)
	}

	// The allowance resets on the next calendar day.
	clock.AdvanceDays(1)
	if got := mustAccess(t, e, "u1"); got.Reason != quota.ReasonFreeDaily {
		t.Errorf("next day = %+v, want free daily", got)
	}
	if len(rec.accessChecks) != 3 {
		t.Errorf("access hooks = %d, want 3", len(rec.accessChecks))
	}
}

func TestCheckAccessDoesNotWrite(t *testing.T) {
	e, _ := newEngine(t)

	mustAccess(t, e, "u1")
	mustAccess(t, e, "u1")

	usage, err := e.DailyUsageHistory(context.Background(), "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(usage) != 0 {
		t.Errorf("CheckAccess wrote %d usage rows", len(usage))
	}
}

func TestUnlockWithCreditsIsSpendOnly(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	if _, err := e.Earn(ctx, "u1", 100, credit.CategoryAdReward, "", nil); err != nil {
		t.Fatal(err)
	}
	acct, err := e.UnlockWithCredits(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if acct.Balance != 0 {
		t.Errorf("balance = %d, want 0", acct.Balance)
	}

	usage, err := e.DailyUsageHistory(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(usage) != 0 {
		t.Errorf("UnlockWithCredits recorded usage: %+v", usage)
	}

	page, err := e.GetHistory(ctx, "u1", credit.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	last := page.Transactions[0]
	if last.Category != credit.CategoryStoryUnlock || last.Amount != -100 || last.Description != "Unlocked additional story" {
		t.Errorf("unlock transaction = %+v", last)
	}
}

func TestPremiumBypassesQuota(t *testing.T) {
	rec := &recorder{}
	e, clock := newEngine(t, rewards.WithPlugin(rec))
	ctx := context.Background()

	m, err := e.UpgradePremium(ctx, "u1", premium.Monthly)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Premium || m.ExpiresAt == nil {
		t.Fatalf("membership = %+v", m)
	}

	for range 3 {
		if got := mustAccess(t, e, "u1"); got.Reason != quota.ReasonPremium || !got.Allowed {
			t.Fatalf("premium check = %+v", got)
		}
		if err := e.RecordCreation(ctx, "u1", false); err != nil {
			t.Fatal(err)
		}
	}

	usage, err := e.DailyUsageHistory(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(usage) != 0 {
		t.Errorf("premium creations were counted: %+v", usage)
	}

	acct, err := e.UnlockStory(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if acct.Balance != 0 || acct.LifetimeSpent != 0 {
		t.Errorf("premium unlock charged: %+v", acct)
	}

	clock.AdvanceDays(31)
	if got := mustAccess(t, e, "u1"); got.Reason != quota.ReasonFreeDaily {
		t.Errorf("after expiry = %+v, want free daily", got)
	}
	if len(rec.upgrades) != 1 || rec.upgrades[0] != premium.Monthly {
		t.Errorf("upgrade hooks = %v", rec.upgrades)
	}
}

func TestUpgradePremiumExtends(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	if _, err := e.UpgradePremium(ctx, "u1", premium.Monthly); err != nil {
		t.Fatal(err)
	}
	m, err := e.UpgradePremium(ctx, "u1", premium.Yearly)
	if err != nil {
		t.Fatal(err)
	}
	want := start.Add(premium.Monthly.Length() + premium.Yearly.Length())
	if !m.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", m.ExpiresAt, want)
	}

	if _, err := e.UpgradePremium(ctx, "u1", premium.Duration("weekly")); !errors.Is(err, rewards.ErrInvalidDuration) {
		t.Errorf("err = %v, want ErrInvalidDuration", err)
	}
}

func TestPremiumStatus(t *testing.T) {
	e, clock := newEngine(t)
	ctx := context.Background()

	m, err := e.PremiumStatus(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if m.Premium {
		t.Error("new user is premium")
	}

	if _, err := e.UpgradePremium(ctx, "u1", premium.Monthly); err != nil {
		t.Fatal(err)
	}
	if ok, err := e.IsPremium(ctx, "u1"); err != nil || !ok {
		t.Errorf("IsPremium = %v, %v", ok, err)
	}

	clock.AdvanceDays(30)
	m, err = e.PremiumStatus(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if m.Premium {
		t.Error("lapsed membership reported as premium")
	}
}

func TestWithPremiumResolver(t *testing.T) {
	resolver := premium.ResolverFunc(func(_ context.Context, userID string) (bool, error) {
		return userID == "vip", nil
	})
	e, _ := newEngine(t, rewards.WithPremiumResolver(resolver))

	if got := mustAccess(t, e, "vip"); got.Reason != quota.ReasonPremium {
		t.Errorf("vip = %+v", got)
	}
	if got := mustAccess(t, e, "u1"); got.Reason != quota.ReasonFreeDaily {
		t.Errorf("u1 = %+v", got)
	}
}

func TestQuotaOptions(t *testing.T) {
	e, _ := newEngine(t, rewards.WithFreeStoriesPerDay(2), rewards.WithUnlockCost(40))
	ctx := context.Background()

	for range 2 {
		if err := e.RecordCreation(ctx, "u1", false); err != nil {
			t.Fatal(err)
		}
	}
	if got := mustAccess(t, e, "u1"); got.Allowed || got.Cost != 40 {
		t.Errorf("access = %+v, want cost 40", got)
	}
}
