package rewards_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/rewards"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/entitlement"
	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/premium"
	"github.com/xraph/rewards/streak"
)

func TestCommitStoryFreeUser(t *testing.T) {
	rec := &recorder{}
	e, _ := newEngine(t, rewards.WithPlugin(rec))
	ctx := context.Background()

	d, err := e.CommitStory(ctx, "u1", false)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed || d.Source != entitlement.SourceFreeDaily || d.Cost != 0 {
		t.Errorf("first story = %+v", d)
	}
	if d.Streak == nil || d.Streak.Transition != streak.TransitionFirst {
		t.Errorf("streak not recorded: %+v", d.Streak)
	}

	d, err = e.CommitStory(ctx, "u1", false)
	if !errors.Is(err, rewards.ErrPaymentRequired) {
		t.Fatalf("second story err = %v, want ErrPaymentRequired", err)
	}
	if d == nil || !d.NeedsCredits() || d.Cost != 100 {
		t.Fatalf("second story decision = %+v", d)
	}
	if got := balance(t, e, "u1"); got != 2 {
		t.Errorf("refused story changed balance to %d", got)
	}

	if _, err := e.Earn(ctx, "u1", 100, credit.CategoryAdReward, "", nil); err != nil {
		t.Fatal(err)
	}
	d, err = e.CommitStory(ctx, "u1", true)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed || d.Source != entitlement.SourceCredits || d.Cost != 100 {
		t.Errorf("paid story = %+v", d)
	}
	if d.Streak.Transition != streak.TransitionSameDay {
		t.Errorf("transition = %s, want same_day", d.Streak.Transition)
	}
	if got := balance(t, e, "u1"); got != 4 {
		t.Errorf("balance = %d, want 4", got)
	}

	usage, err := e.DailyUsageHistory(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(usage) != 1 || usage[0].FreeStoriesUsed != 1 || usage[0].CreditStoriesUnlocked != 1 {
		t.Errorf("usage = %+v", usage)
	}
	sub, err := e.GetSubscription(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got := sub.StoriesOn(e.Today()); got != 2 {
		t.Errorf("plan counter = %d, want 2", got)
	}

	if _, err := e.CommitStory(ctx, "u1", true); !errors.Is(err, rewards.ErrInsufficientBalance) {
		t.Errorf("broke user err = %v, want ErrInsufficientBalance", err)
	}
	if len(rec.insufficient) != 1 || rec.insufficient[0] != 4 {
		t.Errorf("insufficient hooks = %v, want [4]", rec.insufficient)
	}
	if len(rec.committed) != 2 {
		t.Errorf("committed hooks = %v, want 2", rec.committed)
	}
}

func TestCommitStoryPaidPlanFallsBackToQuota(t *testing.T) {
	rec := &recorder{}
	e, _ := newEngine(t, rewards.WithPlugin(rec))
	ctx := context.Background()

	if _, err := e.Subscribe(ctx, "u1", plan.CodeDreamer, "pay_1", true); err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 10; i++ {
		d, err := e.CommitStory(ctx, "u1", false)
		if err != nil {
			t.Fatalf("story %d: %v", i, err)
		}
		if d.Source != entitlement.SourcePlan || d.PlanRemaining != 10-i {
			t.Fatalf("story %d = %+v", i, d)
		}
	}

	d, err := e.CommitStory(ctx, "u1", false)
	if err != nil {
		t.Fatal(err)
	}
	if d.Source != entitlement.SourceFreeDaily || d.PlanRemaining != 0 {
		t.Errorf("story 11 = %+v, want the free slot", d)
	}

	if _, err := e.CommitStory(ctx, "u1", false); !errors.Is(err, rewards.ErrPaymentRequired) {
		t.Errorf("story 12 err = %v", err)
	}

	if len(rec.limitHits) != 2 || rec.limitHits[0] != plan.CodeDreamer {
		t.Errorf("limit hooks = %v", rec.limitHits)
	}
	if len(rec.committed) != 11 {
		t.Errorf("committed hooks = %d, want 11", len(rec.committed))
	}
}

func TestCommitStoryPremium(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	if _, err := e.UpgradePremium(ctx, "u1", premium.Yearly); err != nil {
		t.Fatal(err)
	}
	for range 3 {
		d, err := e.CommitStory(ctx, "u1", false)
		if err != nil {
			t.Fatal(err)
		}
		if d.Source != entitlement.SourcePremium || !d.Allowed {
			t.Fatalf("decision = %+v", d)
		}
	}

	usage, err := e.DailyUsageHistory(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(usage) != 0 {
		t.Errorf("premium stories counted against quota: %+v", usage)
	}
}

func TestAuthorizeStoryIsReadOnly(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	d, err := e.AuthorizeStory(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed || d.Source != entitlement.SourceFreeDaily || d.PlanCode != plan.CodeFree || d.PlanRemaining != 1 {
		t.Errorf("decision = %+v", d)
	}

	usage, err := e.DailyUsageHistory(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(usage) != 0 {
		t.Error("AuthorizeStory wrote daily usage")
	}
	if got := balance(t, e, "u1"); got != 0 {
		t.Errorf("AuthorizeStory credited %d", got)
	}
	st, err := e.GetStreak(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if st.CurrentStreak != 0 {
		t.Error("AuthorizeStory advanced the streak")
	}
}

func TestAuthorizeStoryMatchesCommit(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	if _, err := e.Subscribe(ctx, "u1", plan.CodeDreamer, "", true); err != nil {
		t.Fatal(err)
	}
	preview, err := e.AuthorizeStory(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if preview.Source != entitlement.SourcePlan || preview.PlanRemaining != 10 {
		t.Errorf("preview = %+v", preview)
	}

	committed, err := e.CommitStory(ctx, "u1", false)
	if err != nil {
		t.Fatal(err)
	}
	if committed.Source != preview.Source {
		t.Errorf("commit source %s differs from preview %s", committed.Source, preview.Source)
	}
}
