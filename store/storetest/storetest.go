// Package storetest is a conformance suite for store.Store backends. Each
// backend's tests call Run with a factory returning an empty, migrated
// store.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/rewards"
	"github.com/xraph/rewards/adreward"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/id"
	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/premium"
	"github.com/xraph/rewards/quota"
	"github.com/xraph/rewards/store"
	"github.com/xraph/rewards/streak"
	"github.com/xraph/rewards/subscription"
	"github.com/xraph/rewards/types"
)

// Factory returns an empty, migrated store. The suite closes it.
type Factory func(t *testing.T) store.Store

// base is a whole second so backends with millisecond precision round-trip it.
var base = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

// Run exercises every store method against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"Accounts", testAccounts},
		{"Transactions", testTransactions},
		{"Streaks", testStreaks},
		{"DailyUsage", testDailyUsage},
		{"Plans", testPlans},
		{"Subscriptions", testSubscriptions},
		{"ExpiredSubscriptions", testExpiredSubscriptions},
		{"Memberships", testMemberships},
		{"Impressions", testImpressions},
		{"RollbackDiscardsWrites", testRollback},
		{"NestedInTxJoins", testNestedInTx},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func testAccounts(t *testing.T, s store.Store) {
	ctx := context.Background()

	a, err := s.GetOrCreateAccount(ctx, credit.NewAccount("u1", base))
	if err != nil {
		t.Fatalf("GetOrCreateAccount: %v", err)
	}
	if a.UserID != "u1" || a.Balance != 0 {
		t.Fatalf("new account = %+v", a)
	}
	if !a.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", a.CreatedAt, base)
	}

	a.Earn(50, base)
	a.Spend(20, base)
	if err := s.UpdateAccount(ctx, a); err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}

	got, err := s.GetOrCreateAccount(ctx, credit.NewAccount("u1", base))
	if err != nil {
		t.Fatal(err)
	}
	if got.Balance != 30 || got.LifetimeEarned != 50 || got.LifetimeSpent != 20 {
		t.Errorf("account = %d/%d/%d, want 30/50/20", got.Balance, got.LifetimeEarned, got.LifetimeSpent)
	}

	missing := credit.NewAccount("ghost", base)
	if err := s.UpdateAccount(ctx, missing); !errors.Is(err, rewards.ErrAccountNotFound) {
		t.Errorf("UpdateAccount(missing) = %v, want ErrAccountNotFound", err)
	}
}

func testTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()

	var ids []string
	for i := 1; i <= 5; i++ {
		txn := &credit.Transaction{
			ID:           id.NewTransactionID(),
			UserID:       "u1",
			Amount:       int64(i),
			Category:     credit.CategoryStoryCompletion,
			Description:  "entry",
			BalanceAfter: int64(i * (i + 1) / 2),
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if i == 5 {
			txn.Metadata = map[string]string{"streak_days": "7"}
		}
		if err := s.CreateTransaction(ctx, txn); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
		ids = append(ids, txn.ID.String())
	}
	if err := s.CreateTransaction(ctx, &credit.Transaction{
		ID: id.NewTransactionID(), UserID: "u2", Amount: 1, BalanceAfter: 1, CreatedAt: base,
	}); err != nil {
		t.Fatal(err)
	}

	n, err := s.CountTransactions(ctx, "u1")
	if err != nil || n != 5 {
		t.Fatalf("CountTransactions = %d, %v; want 5", n, err)
	}

	page, err := s.ListTransactions(ctx, "u1", credit.ListOpts{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].ID.String() != ids[4] || page[1].ID.String() != ids[3] {
		t.Fatalf("first page not newest first")
	}
	if page[0].Metadata["streak_days"] != "7" {
		t.Errorf("metadata = %v", page[0].Metadata)
	}
	if page[0].Category != credit.CategoryStoryCompletion {
		t.Errorf("category = %q", page[0].Category)
	}

	rest, err := s.ListTransactions(ctx, "u1", credit.ListOpts{Limit: 10, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 3 || rest[2].ID.String() != ids[0] {
		t.Errorf("offset page has %d entries", len(rest))
	}
}

func testStreaks(t *testing.T, s store.Store) {
	ctx := context.Background()

	st, err := s.GetOrCreateStreak(ctx, streak.NewStreak("u1", base))
	if err != nil {
		t.Fatal(err)
	}
	if st.LastActivityDate != nil || st.CurrentStreak != 0 {
		t.Fatalf("new streak = %+v", st)
	}

	st.Advance(types.NewDate(2026, time.March, 10))
	st.Advance(types.NewDate(2026, time.March, 11))
	if err := s.UpdateStreak(ctx, st); err != nil {
		t.Fatalf("UpdateStreak: %v", err)
	}

	got, err := s.GetOrCreateStreak(ctx, streak.NewStreak("u1", base))
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentStreak != 2 || got.LongestStreak != 2 {
		t.Errorf("streak = %d/%d, want 2/2", got.CurrentStreak, got.LongestStreak)
	}
	if got.LastActivityDate == nil || *got.LastActivityDate != types.NewDate(2026, time.March, 11) {
		t.Errorf("last activity = %v", got.LastActivityDate)
	}

	if err := s.UpdateStreak(ctx, streak.NewStreak("ghost", base)); !errors.Is(err, rewards.ErrNotFound) {
		t.Errorf("UpdateStreak(missing) = %v, want ErrNotFound", err)
	}
}

func testDailyUsage(t *testing.T, s store.Store) {
	ctx := context.Background()
	day1 := types.NewDate(2026, time.March, 10)
	day2 := day1.AddDays(1)

	if _, err := s.GetDailyUsage(ctx, "u1", day1); !errors.Is(err, rewards.ErrNotFound) {
		t.Fatalf("GetDailyUsage(missing) = %v, want ErrNotFound", err)
	}

	for _, day := range []types.Date{day1, day2} {
		u, err := s.GetOrCreateDailyUsage(ctx, quota.NewDailyUsage("u1", day, base))
		if err != nil {
			t.Fatal(err)
		}
		u.Record(false, base)
		if day == day2 {
			u.Record(true, base)
		}
		if err := s.UpdateDailyUsage(ctx, u); err != nil {
			t.Fatalf("UpdateDailyUsage: %v", err)
		}
	}

	u, err := s.GetDailyUsage(ctx, "u1", day2)
	if err != nil {
		t.Fatal(err)
	}
	if u.FreeStoriesUsed != 1 || u.CreditStoriesUnlocked != 1 || u.Date != day2 {
		t.Errorf("usage = %+v", u)
	}

	list, err := s.ListDailyUsage(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Date != day2 || list[1].Date != day1 {
		t.Errorf("ListDailyUsage not newest first: %d entries", len(list))
	}

	if err := s.UpdateDailyUsage(ctx, quota.NewDailyUsage("ghost", day1, base)); !errors.Is(err, rewards.ErrNotFound) {
		t.Errorf("UpdateDailyUsage(missing) = %v, want ErrNotFound", err)
	}
}

func testPlans(t *testing.T, s store.Store) {
	ctx := context.Background()

	for _, p := range plan.DefaultCatalog(base) {
		if err := s.SavePlan(ctx, p); err != nil {
			t.Fatalf("SavePlan(%s): %v", p.Code, err)
		}
	}
	retired := &plan.Plan{
		Entity:          types.NewEntity(base),
		Code:            "retired",
		Name:            "Retired",
		Price:           types.USD(100),
		DailyStoryLimit: 2,
		Features:        plan.NewFeatureSet(),
		Active:          false,
	}
	if err := s.SavePlan(ctx, retired); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetPlan(ctx, plan.CodeDreamer)
	if err != nil {
		t.Fatal(err)
	}
	if got.DailyStoryLimit != 10 || !got.Price.Equal(types.USD(999)) || !got.Features.Has(string(plan.FeatureCreativeMode)) {
		t.Errorf("dreamer = %+v", got)
	}

	active, err := s.ListPlans(ctx, plan.ListOpts{ActiveOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range active {
		if !p.Active {
			t.Errorf("inactive plan %s listed", p.Code)
		}
		if i > 0 && active[i-1].Price.Compare(p.Price) > 0 {
			t.Errorf("plans not sorted by price at %s", p.Code)
		}
	}

	all, err := s.ListPlans(ctx, plan.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(active)+1 {
		t.Errorf("ListPlans = %d plans, want %d", len(all), len(active)+1)
	}

	got.Name = "Dreamer Plus"
	got.DailyStoryLimit = 12
	if err := s.SavePlan(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, err := s.GetPlan(ctx, plan.CodeDreamer)
	if err != nil {
		t.Fatal(err)
	}
	if again.Name != "Dreamer Plus" || again.DailyStoryLimit != 12 {
		t.Errorf("SavePlan did not overwrite: %+v", again)
	}

	if _, err := s.GetPlan(ctx, "nope"); !errors.Is(err, rewards.ErrPlanNotFound) {
		t.Errorf("GetPlan(missing) = %v, want ErrPlanNotFound", err)
	}
}

func testSubscriptions(t *testing.T, s store.Store) {
	ctx := context.Background()
	today := types.NewDate(2026, time.March, 10)

	if _, err := s.GetSubscription(ctx, "u1"); !errors.Is(err, rewards.ErrSubscriptionNotFound) {
		t.Fatalf("GetSubscription(missing) = %v, want ErrSubscriptionNotFound", err)
	}

	def := subscription.NewDefault("u1", today, base)
	sub, err := s.GetOrCreateSubscription(ctx, def)
	if err != nil {
		t.Fatal(err)
	}
	if sub.ID.String() != def.ID.String() || sub.PlanCode != plan.CodeFree {
		t.Fatalf("created subscription = %+v", sub)
	}

	paid := &plan.Plan{Code: plan.CodeDreamer, Price: types.USD(999), DailyStoryLimit: 10, Active: true}
	sub.Activate(paid, today, "pay_1", false, base)
	sub.IncrementStories(today, base)
	if err := s.UpdateSubscription(ctx, sub); err != nil {
		t.Fatalf("UpdateSubscription: %v", err)
	}

	other := subscription.NewDefault("u1", today, base)
	got, err := s.GetOrCreateSubscription(ctx, other)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID.String() != def.ID.String() {
		t.Errorf("GetOrCreateSubscription replaced the existing row")
	}
	if got.PlanCode != plan.CodeDreamer || got.PaymentTransactionID != "pay_1" {
		t.Errorf("subscription = %+v", got)
	}
	if got.StoriesOn(today) != 1 {
		t.Errorf("StoriesOn = %d, want 1", got.StoriesOn(today))
	}
	if got.ExpiryDate == nil || *got.ExpiryDate != today.AddMonths(1) {
		t.Errorf("expiry = %v", got.ExpiryDate)
	}

	got.Cancel("too pricey", base)
	if err := s.UpdateSubscription(ctx, got); err != nil {
		t.Fatal(err)
	}
	final, err := s.GetSubscription(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != subscription.StatusCancelled || final.CancelledAt == nil || final.CancellationReason != "too pricey" {
		t.Errorf("cancelled subscription = %+v", final)
	}
}

func testExpiredSubscriptions(t *testing.T, s store.Store) {
	ctx := context.Background()
	start := types.NewDate(2026, time.January, 5)
	paid := &plan.Plan{Code: plan.CodeDreamer, Price: types.USD(999), DailyStoryLimit: 10, Active: true}

	seed := func(userID string, autoRenew bool) {
		t.Helper()
		sub, err := s.GetOrCreateSubscription(ctx, subscription.NewDefault(userID, start, base))
		if err != nil {
			t.Fatal(err)
		}
		sub.Activate(paid, start, "", autoRenew, base)
		if err := s.UpdateSubscription(ctx, sub); err != nil {
			t.Fatal(err)
		}
	}
	seed("b", false)
	seed("a", false)
	seed("renewing", true)
	if _, err := s.GetOrCreateSubscription(ctx, subscription.NewDefault("free", start, base)); err != nil {
		t.Fatal(err)
	}

	// Expiry is 2026-02-05; nothing is expired on that day itself.
	none, err := s.ListExpiredSubscriptions(ctx, types.NewDate(2026, time.February, 5), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("expired on expiry day = %d, want 0", len(none))
	}

	due, err := s.ListExpiredSubscriptions(ctx, types.NewDate(2026, time.February, 6), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 2 || due[0].UserID != "a" || due[1].UserID != "b" {
		t.Fatalf("expired = %d subscriptions, want a and b", len(due))
	}

	one, err := s.ListExpiredSubscriptions(ctx, types.NewDate(2026, time.February, 6), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(one) != 1 {
		t.Errorf("limit ignored: %d", len(one))
	}
}

func testMemberships(t *testing.T, s store.Store) {
	ctx := context.Background()

	if _, err := s.GetMembership(ctx, "u1"); !errors.Is(err, rewards.ErrMembershipNotFound) {
		t.Fatalf("GetMembership(missing) = %v, want ErrMembershipNotFound", err)
	}

	m, err := s.GetOrCreateMembership(ctx, premium.NewMembership("u1", base))
	if err != nil {
		t.Fatal(err)
	}
	if m.Premium {
		t.Fatal("new membership is premium")
	}
	if !m.CreatedAt.Equal(base) {
		t.Errorf("membership CreatedAt = %v, want %v", m.CreatedAt, base)
	}
	m.Upgrade(premium.Monthly, base)
	if err := s.UpdateMembership(ctx, m); err != nil {
		t.Fatalf("UpdateMembership: %v", err)
	}

	got, err := s.GetMembership(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.ActiveAt(base.Add(24*time.Hour)) || got.Duration != premium.Monthly {
		t.Errorf("membership = %+v", got)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(m.ExpiresAt.UTC()) {
		t.Errorf("expires at = %v, want %v", got.ExpiresAt, m.ExpiresAt)
	}
}

func testImpressions(t *testing.T, s store.Store) {
	ctx := context.Background()

	for i, ad := range []adreward.AdType{adreward.RewardedStory, adreward.RewardedPersonalize, adreward.InterstitialEnd} {
		imp := &adreward.Impression{
			ID:             id.NewAdImpressionID(),
			UserID:         "u1",
			AdType:         ad,
			Placement:      "library",
			CreditsAwarded: adreward.DefaultRewards().For(ad),
			WatchedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.CreateImpression(ctx, imp); err != nil {
			t.Fatalf("CreateImpression: %v", err)
		}
	}

	got, err := s.ListImpressions(ctx, "u1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].AdType != adreward.InterstitialEnd || got[1].AdType != adreward.RewardedPersonalize {
		t.Fatalf("ListImpressions not newest first")
	}
	if got[1].Placement != "library" || got[1].CreditsAwarded != adreward.DefaultRewards().For(adreward.RewardedPersonalize) {
		t.Errorf("impression = %+v", got[1])
	}
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		a, err := tx.GetOrCreateAccount(ctx, credit.NewAccount("u1", base))
		if err != nil {
			return err
		}
		a.Earn(100, base)
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, &credit.Transaction{
			ID: id.NewTransactionID(), UserID: "u1", Amount: 100, BalanceAfter: 100, CreatedAt: base,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx = %v, want boom", err)
	}

	a, err := s.GetOrCreateAccount(ctx, credit.NewAccount("u1", base))
	if err != nil {
		t.Fatal(err)
	}
	if a.Balance != 0 {
		t.Errorf("balance after rollback = %d, want 0", a.Balance)
	}
	if n, _ := s.CountTransactions(ctx, "u1"); n != 0 {
		t.Errorf("transactions after rollback = %d, want 0", n)
	}
}

func testNestedInTx(t *testing.T, s store.Store) {
	ctx := context.Background()

	err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		a, err := tx.GetOrCreateAccount(ctx, credit.NewAccount("u1", base))
		if err != nil {
			return err
		}
		a.Earn(5, base)
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		// Calls on the store with the transaction's ctx see its writes.
		return s.InTx(ctx, func(ctx context.Context, inner store.Tx) error {
			b, err := inner.GetOrCreateAccount(ctx, credit.NewAccount("u1", base))
			if err != nil {
				return err
			}
			if b.Balance != 5 {
				t.Errorf("joined transaction sees balance %d, want 5", b.Balance)
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
}
