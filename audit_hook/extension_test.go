package audithook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/id"
	"github.com/xraph/rewards/quota"
	"github.com/xraph/rewards/subscription"
)

type capture struct {
	events []*AuditEvent
	err    error
}

func (c *capture) Record(_ context.Context, evt *AuditEvent) error {
	c.events = append(c.events, evt)
	return c.err
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRecordsCreditEvents(t *testing.T) {
	rec := &capture{}
	ext := New(rec, quiet())
	ctx := context.Background()

	acct := &credit.Account{UserID: "u1", Balance: 8}
	txn := &credit.Transaction{ID: id.NewTransactionID(), UserID: "u1", Amount: -100, Category: credit.CategoryStoryUnlock, BalanceAfter: 8}

	if err := ext.OnCreditsSpent(ctx, acct, txn); err != nil {
		t.Fatal(err)
	}
	if err := ext.OnInsufficientBalance(ctx, "u1", 100, 8); err != nil {
		t.Fatal(err)
	}

	if len(rec.events) != 2 {
		t.Fatalf("recorded %d events, want 2", len(rec.events))
	}
	spent := rec.events[0]
	if spent.Action != ActionCreditsSpent || spent.ResourceID != "u1" || spent.Metadata["amount"] != int64(100) {
		t.Errorf("spent event = %+v", spent)
	}
	short := rec.events[1]
	if short.Outcome != OutcomeFailure || short.Severity != SeverityWarning {
		t.Errorf("insufficient event = %+v", short)
	}
}

func TestOnlyDeniedAccessIsAudited(t *testing.T) {
	rec := &capture{}
	ext := New(rec, quiet())
	ctx := context.Background()

	_ = ext.OnAccessChecked(ctx, "u1", quota.Access{Allowed: true, Reason: quota.ReasonFreeDaily})
	_ = ext.OnAccessChecked(ctx, "u1", quota.Access{Reason: quota.ReasonNeedsCredits, Cost: 100})

	if len(rec.events) != 1 || rec.events[0].Action != ActionStoryDenied {
		t.Fatalf("events = %+v", rec.events)
	}
	if rec.events[0].Metadata["reason"] != string(quota.ReasonNeedsCredits) {
		t.Errorf("reason = %v", rec.events[0].Metadata["reason"])
	}
}

func TestActionFilters(t *testing.T) {
	ctx := context.Background()
	sub := &subscription.Subscription{ID: id.NewSubscriptionID(), UserID: "u1", PlanCode: "DREAMER"}

	tests := []struct {
		name string
		opt  Option
		want int
	}{
		{"all", nil, 2},
		{"enabled", WithEnabledActions(ActionSubscriptionExpired), 1},
		{"disabled", WithDisabledActions(ActionSubscriptionExpired, ActionSubscriptionCanceled), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &capture{}
			opts := []Option{quiet()}
			if tt.opt != nil {
				opts = append(opts, tt.opt)
			}
			ext := New(rec, opts...)
			_ = ext.OnSubscriptionCanceled(ctx, sub)
			_ = ext.OnSubscriptionExpired(ctx, sub)
			if len(rec.events) != tt.want {
				t.Errorf("recorded %d events, want %d", len(rec.events), tt.want)
			}
		})
	}
}

func TestRecorderErrorsAreSwallowed(t *testing.T) {
	ext := New(&capture{err: errors.New("down")}, quiet())
	if err := ext.OnStreakMilestone(context.Background(), "u1", 7, 10); err != nil {
		t.Errorf("hook returned %v, want nil", err)
	}
}
