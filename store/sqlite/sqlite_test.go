package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/rewards"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/store"
	sqlitestore "github.com/xraph/rewards/store/sqlite"
	"github.com/xraph/rewards/store/storetest"
	"github.com/xraph/rewards/types"
)

var dbSeq atomic.Int64

// newStore opens a private shared-cache in-memory database and migrates it.
func newStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	ctx := context.Background()

	drv := sqlitedriver.New()
	dsn := fmt.Sprintf("file:rewards_%d?mode=memory&cache=shared", dbSeq.Add(1))
	if err := drv.Open(ctx, dsn); err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db, err := grove.Open(drv)
	if err != nil {
		t.Fatalf("grove.Open: %v", err)
	}

	s := sqlitestore.New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newStore(t) })
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newStore(t)
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestConcurrentUnlocksNeverOverdraw(t *testing.T) {
	s := newStore(t)
	e := rewards.New(s,
		rewards.WithClock(types.NewFixedClock(time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC))),
		rewards.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		rewards.WithoutMigrate(),
	)
	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = e.Stop() })

	if _, err := e.Earn(ctx, "u1", 250, credit.CategoryAdReward, "", nil); err != nil {
		t.Fatal(err)
	}

	const workers = 10
	var (
		wg           sync.WaitGroup
		ok           atomic.Int32
		insufficient atomic.Int32
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.UnlockWithCredits(ctx, "u1")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, rewards.ErrInsufficientBalance):
				insufficient.Add(1)
			default:
				t.Errorf("UnlockWithCredits: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 2 || insufficient.Load() != 8 {
		t.Errorf("ok=%d insufficient=%d, want 2/8", ok.Load(), insufficient.Load())
	}

	acct, err := e.GetBalance(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if acct.Balance != 50 || !acct.Consistent() {
		t.Errorf("account = %+v, want balance 50", acct)
	}
	if n, _ := e.Store().CountTransactions(ctx, "u1"); n != 3 {
		t.Errorf("transactions = %d, want 3", n)
	}
}
