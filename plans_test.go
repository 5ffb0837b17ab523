package rewards_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/rewards"
	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/subscription"
	"github.com/xraph/rewards/types"
)

func TestDefaultSubscriptionIsFree(t *testing.T) {
	e, clock := newEngine(t)
	ctx := context.Background()

	sub, err := e.GetSubscription(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if sub.PlanCode != plan.CodeFree || sub.Status != subscription.StatusActive || sub.ExpiryDate != nil {
		t.Fatalf("default subscription = %+v", sub)
	}

	again, err := e.GetSubscription(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID.String() != sub.ID.String() {
		t.Error("GetSubscription created a second subscription")
	}

	canGenerate := func() bool {
		ok, err := e.CanGenerateStory(ctx, "u1")
		if err != nil {
			t.Fatal(err)
		}
		return ok
	}

	if !canGenerate() {
		t.Fatal("free user cannot generate a first story")
	}
	if _, err := e.IncrementStoryCount(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if canGenerate() {
		t.Error("free plan allowed a second story")
	}

	clock.AdvanceDays(1)
	if !canGenerate() {
		t.Error("counter did not roll over on the next day")
	}
	sub, err = e.IncrementStoryCount(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if sub.StoriesGeneratedToday != 1 {
		t.Errorf("StoriesGeneratedToday = %d, want 1 after rollover", sub.StoriesGeneratedToday)
	}
}

func TestSubscribe(t *testing.T) {
	rec := &recorder{}
	e, _ := newEngine(t, rewards.WithPlugin(rec))
	ctx := context.Background()

	sub, err := e.Subscribe(ctx, "u1", plan.CodeDreamer, "pay_123", true)
	if err != nil {
		t.Fatal(err)
	}
	today := e.Today()
	if sub.PlanCode != plan.CodeDreamer || sub.PaymentTransactionID != "pay_123" || !sub.AutoRenew {
		t.Errorf("subscription = %+v", sub)
	}
	if sub.ExpiryDate == nil || *sub.ExpiryDate != today.AddMonths(1) {
		t.Errorf("ExpiryDate = %s, want %s", types.FormatDate(sub.ExpiryDate), today.AddMonths(1))
	}
	if sub.NextBillingDate == nil || *sub.NextBillingDate != *sub.ExpiryDate {
		t.Errorf("NextBillingDate = %s", types.FormatDate(sub.NextBillingDate))
	}

	features := []struct {
		name string
		want bool
	}{
		{"pdf_download", true},
		{"CREATIVE_MODE", true},
		{"voice_cloning", false},
		{"teleportation", false},
	}
	for _, f := range features {
		got, err := e.HasFeatureAccess(ctx, "u1", f.name)
		if err != nil {
			t.Fatal(err)
		}
		if got != f.want {
			t.Errorf("HasFeatureAccess(%q) = %v, want %v", f.name, got, f.want)
		}
	}

	// Moving back to the free plan clears expiry and billing.
	sub, err = e.Subscribe(ctx, "u1", plan.CodeFree, "", false)
	if err != nil {
		t.Fatal(err)
	}
	if sub.ExpiryDate != nil || sub.NextBillingDate != nil {
		t.Errorf("free subscription has dates: %+v", sub)
	}
	if len(rec.subscribed) != 2 {
		t.Errorf("subscribed hooks = %v", rec.subscribed)
	}
}

func TestSubscribeRejectsUnknownAndInactivePlans(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.Subscribe(ctx, "u1", "PLATINUM", "", false)
	if !errors.Is(err, rewards.ErrUnknownPlan) || !rewards.IsPlanError(err) {
		t.Errorf("unknown plan err = %v", err)
	}

	retired := &plan.Plan{
		Code:            "RETIRED",
		Name:            "Retired",
		Price:           types.USD(499),
		DailyStoryLimit: 5,
		Active:          false,
	}
	if err := e.SavePlan(ctx, retired); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Subscribe(ctx, "u1", "RETIRED", "", false); !errors.Is(err, rewards.ErrInactivePlan) {
		t.Errorf("inactive plan err = %v", err)
	}

	sub, err := e.GetSubscription(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if sub.PlanCode != plan.CodeFree {
		t.Errorf("failed subscribe changed plan to %s", sub.PlanCode)
	}
}

func TestCancel(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	if _, err := e.Subscribe(ctx, "u1", plan.CodeLegendary, "pay_1", true); err != nil {
		t.Fatal(err)
	}
	sub, err := e.Cancel(ctx, "u1", "too expensive")
	if err != nil {
		t.Fatal(err)
	}
	if sub.Status != subscription.StatusCancelled || sub.AutoRenew || sub.CancelledAt == nil || sub.CancellationReason != "too expensive" {
		t.Errorf("cancelled subscription = %+v", sub)
	}

	ok, err := e.CanGenerateStory(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("cancelled subscription can generate")
	}
	has, err := e.HasFeatureAccess(ctx, "u1", "voice_cloning")
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Error("cancelled subscription keeps features")
	}
}

func TestUnlimitedPlan(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	if _, err := e.Subscribe(ctx, "u1", plan.CodeLegendary, "", true); err != nil {
		t.Fatal(err)
	}
	for range 25 {
		if _, err := e.IncrementStoryCount(ctx, "u1"); err != nil {
			t.Fatal(err)
		}
	}
	usage, err := e.UsageSummary(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if usage.StoriesGenerated != 25 || usage.Remaining != plan.Unlimited || usage.DailyLimit != plan.Unlimited || !usage.CanGenerateMore {
		t.Errorf("usage = %+v", usage)
	}
}

func TestUsageSummary(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	if _, err := e.Subscribe(ctx, "u1", plan.CodeDreamer, "", true); err != nil {
		t.Fatal(err)
	}
	for range 4 {
		if _, err := e.IncrementStoryCount(ctx, "u1"); err != nil {
			t.Fatal(err)
		}
	}

	usage, err := e.UsageSummary(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	want := subscription.Usage{
		Date:             e.Today(),
		StoriesGenerated: 4,
		PlanCode:         plan.CodeDreamer,
		PlanName:         "Dreamer",
		DailyLimit:       10,
		Remaining:        6,
		CanGenerateMore:  true,
	}
	if *usage != want {
		t.Errorf("usage = %+v, want %+v", *usage, want)
	}
}

func TestExpireSubscriptions(t *testing.T) {
	rec := &recorder{}
	e, clock := newEngine(t, rewards.WithPlugin(rec))
	ctx := context.Background()

	if _, err := e.Subscribe(ctx, "lapsing", plan.CodeDreamer, "", false); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Subscribe(ctx, "renewing", plan.CodeDreamer, "", true); err != nil {
		t.Fatal(err)
	}
	if _, err := e.GetSubscription(ctx, "free"); err != nil {
		t.Fatal(err)
	}

	// Still valid on the expiry date itself.
	clock.AdvanceDays(31)
	n, err := e.ExpireSubscriptions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expired %d on the expiry date, want 0", n)
	}

	clock.AdvanceDays(1)
	n, err = e.ExpireSubscriptions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expired %d, want 1", n)
	}

	sub, err := e.GetSubscription(ctx, "lapsing")
	if err != nil {
		t.Fatal(err)
	}
	if sub.Status != subscription.StatusExpired {
		t.Errorf("status = %s, want expired", sub.Status)
	}
	for _, userID := range []string{"renewing", "free"} {
		sub, err := e.GetSubscription(ctx, userID)
		if err != nil {
			t.Fatal(err)
		}
		if sub.Status != subscription.StatusActive {
			t.Errorf("%s status = %s, want active", userID, sub.Status)
		}
	}

	n, err = e.ExpireSubscriptions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second sweep expired %d", n)
	}
	if len(rec.expired) != 1 || rec.expired[0] != "lapsing" {
		t.Errorf("expired hooks = %v", rec.expired)
	}
}

func TestSavePlanValidation(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		p    plan.Plan
	}{
		{"empty code", plan.Plan{Name: "x"}},
		{"empty name", plan.Plan{Code: "X"}},
		{"bad limit", plan.Plan{Code: "X", Name: "x", DailyStoryLimit: -2}},
		{"bad profiles", plan.Plan{Code: "X", Name: "x", MaxChildProfiles: -3}},
		{"negative price", plan.Plan{Code: "X", Name: "x", Price: types.USD(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.p
			err := e.SavePlan(ctx, &p)
			var verr rewards.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}

	custom := &plan.Plan{
		Code:             "FAMILY",
		Name:             "Family",
		Price:            types.USD(1499),
		DailyStoryLimit:  20,
		MaxChildProfiles: 5,
		Features:         plan.FeatureSet{"family_sharing", "bogus", "FAMILY_SHARING", "series"},
		Active:           true,
	}
	if err := e.SavePlan(ctx, custom); err != nil {
		t.Fatal(err)
	}
	got, err := e.GetPlan(ctx, "FAMILY")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Features) != 2 || !got.Features.Has("series") || !got.Features.Has("family_sharing") {
		t.Errorf("features = %v", got.Features)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	plans, err := e.ListPlans(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if plans[2].Code != "FAMILY" {
		t.Errorf("FAMILY not ordered by price: %s", plans[2].Code)
	}
}

func TestPlanNotFound(t *testing.T) {
	e, _ := newEngine(t)

	_, err := e.GetPlan(context.Background(), "NOPE")
	if !errors.Is(err, rewards.ErrPlanNotFound) || !rewards.IsNotFound(err) {
		t.Errorf("err = %v", err)
	}
}
