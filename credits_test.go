package rewards_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/xraph/rewards"
	"github.com/xraph/rewards/credit"
)

func TestEarnAndSpend(t *testing.T) {
	rec := &recorder{}
	e, _ := newEngine(t, rewards.WithPlugin(rec))
	ctx := context.Background()

	if _, err := e.Earn(ctx, "u1", 20, credit.CategoryAdReward, "Watched an ad", nil); err != nil {
		t.Fatal(err)
	}

	_, err := e.Spend(ctx, "u1", 100, credit.CategoryStoryUnlock, "Unlocked additional story", nil)
	if !errors.Is(err, rewards.ErrInsufficientBalance) {
		t.Fatalf("Spend err = %v, want ErrInsufficientBalance", err)
	}
	if !rewards.IsPaymentError(err) {
		t.Error("IsPaymentError = false")
	}
	if got := balance(t, e, "u1"); got != 20 {
		t.Errorf("balance after refused spend = %d, want 20", got)
	}

	if _, err := e.Earn(ctx, "u1", 100, credit.CategoryStreakBonus, "bonus", nil); err != nil {
		t.Fatal(err)
	}
	acct, err := e.Spend(ctx, "u1", 100, credit.CategoryStoryUnlock, "Unlocked additional story", nil)
	if err != nil {
		t.Fatal(err)
	}
	if acct.Balance != 20 || acct.LifetimeEarned != 120 || acct.LifetimeSpent != 100 {
		t.Errorf("account = %+v", acct)
	}

	if len(rec.earned) != 2 || len(rec.spent) != 1 {
		t.Errorf("hooks: earned %d spent %d, want 2 and 1", len(rec.earned), len(rec.spent))
	}
	if len(rec.insufficient) != 1 || rec.insufficient[0] != 20 {
		t.Errorf("insufficient hook = %v, want [20]", rec.insufficient)
	}
}

func TestEarnSpendValidation(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		amount int64
		want   error
	}{
		{"zero amount", "u1", 0, rewards.ErrInvalidAmount},
		{"negative amount", "u1", -5, rewards.ErrInvalidAmount},
		{"empty user", " ", 10, rewards.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Earn(ctx, tt.userID, tt.amount, credit.CategoryAdReward, "", nil); !errors.Is(err, tt.want) {
				t.Errorf("Earn err = %v, want %v", err, tt.want)
			}
			if _, err := e.Spend(ctx, tt.userID, tt.amount, credit.CategoryStoryUnlock, "", nil); !errors.Is(err, tt.want) {
				t.Errorf("Spend err = %v, want %v", err, tt.want)
			}
		})
	}

	page, err := e.GetHistory(ctx, "u1", credit.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 0 {
		t.Errorf("rejected calls wrote %d transactions", page.Total)
	}
}

func TestGetBalanceCreatesZeroAccount(t *testing.T) {
	e, _ := newEngine(t)

	acct, err := e.GetBalance(context.Background(), "new-user")
	if err != nil {
		t.Fatal(err)
	}
	if acct.Balance != 0 || acct.LifetimeEarned != 0 || acct.LifetimeSpent != 0 {
		t.Errorf("account = %+v, want zeroed", acct)
	}
}

func TestHistoryNewestFirstAndPaged(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	for amount := int64(1); amount <= 5; amount++ {
		if _, err := e.Earn(ctx, "u1", amount, credit.CategoryAdReward, "", map[string]string{"n": "x"}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := e.Earn(ctx, "other", 50, credit.CategoryAdReward, "", nil); err != nil {
		t.Fatal(err)
	}

	page, err := e.GetHistory(ctx, "u1", credit.ListOpts{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 5 {
		t.Errorf("Total = %d, want 5", page.Total)
	}
	if len(page.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(page.Transactions))
	}
	if page.Transactions[0].Amount != 4 || page.Transactions[1].Amount != 3 {
		t.Errorf("amounts = %d, %d; want 4, 3", page.Transactions[0].Amount, page.Transactions[1].Amount)
	}
	if page.Transactions[0].BalanceAfter != 10 {
		t.Errorf("BalanceAfter = %d, want 10", page.Transactions[0].BalanceAfter)
	}
	if page.Transactions[0].ID.IsNil() {
		t.Error("transaction has no id")
	}
}

func TestHistorySumsToBalance(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	ops := []int64{50, -20, 30, -60, 5}
	for _, amount := range ops {
		var err error
		if amount > 0 {
			_, err = e.Earn(ctx, "u1", amount, credit.CategoryAdReward, "", nil)
		} else {
			_, err = e.Spend(ctx, "u1", -amount, credit.CategoryStoryUnlock, "", nil)
		}
		if err != nil {
			t.Fatal(err)
		}
	}

	page, err := e.GetHistory(ctx, "u1", credit.ListOpts{Limit: 100})
	if err != nil {
		t.Fatal(err)
	}
	var sum int64
	for _, txn := range page.Transactions {
		sum += txn.Amount
	}
	if got := balance(t, e, "u1"); sum != got {
		t.Errorf("sum of history = %d, balance = %d", sum, got)
	}
}

func TestConcurrentSpendNeverOverdraws(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	if _, err := e.Earn(ctx, "u1", 300, credit.CategoryAdReward, "", nil); err != nil {
		t.Fatal(err)
	}

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Spend(ctx, "u1", 100, credit.CategoryStoryUnlock, "", nil)
			if err != nil && !errors.Is(err, rewards.ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 3 {
		t.Errorf("%d spends succeeded, want 3", succeeded)
	}
	if got := balance(t, e, "u1"); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}
