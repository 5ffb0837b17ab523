package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/xraph/rewards"
	"github.com/xraph/rewards/adreward"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/premium"
	"github.com/xraph/rewards/quota"
	rewardsstore "github.com/xraph/rewards/store"
	"github.com/xraph/rewards/streak"
	"github.com/xraph/rewards/subscription"
	"github.com/xraph/rewards/types"
)

// compile-time interface check
var (
	_ rewardsstore.Store = (*Store)(nil)
	_ rewardsstore.Tx    = (*tx)(nil)
)

// DefaultRetries is how often a transaction that hit a busy database is
// re-run.
const DefaultRetries = 3

// Store implements store.Store using SQLite via Grove ORM. Write
// transactions are serialized within the process.
type Store struct {
	db      *grove.DB
	sdb     *sqlitedriver.SqliteDB
	retries int
	writeMu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithRetries sets how often a transaction that hit a busy database is re-run.
func WithRetries(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:      db,
		sdb:     sqlitedriver.Unwrap(db),
		retries: DefaultRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("rewards/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("rewards/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Transactions ====================

type txKey struct{ s *Store }

// InTx runs fn in a transaction. A call made while ctx already carries a
// transaction of this store joins it. A busy or locked database surfaces
// as rewards.ErrConflict and is retried.
func (s *Store) InTx(ctx context.Context, fn rewardsstore.TxFunc) error {
	if t, ok := ctx.Value(txKey{s}).(*tx); ok {
		return fn(ctx, t)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		err = s.runTx(ctx, fn)
		if !errors.Is(err, rewards.ErrConflict) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn rewardsstore.TxFunc) (err error) {
	stx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("rewards/sqlite: begin: %w", err))
	}
	defer func() {
		if err != nil {
			_ = stx.Rollback() //nolint:errcheck // best-effort rollback
		}
	}()

	t := &tx{c: stx}
	if err = fn(context.WithValue(ctx, txKey{s}, t), t); err != nil {
		return classify(err)
	}
	if err = stx.Commit(); err != nil {
		return classify(fmt.Errorf("rewards/sqlite: commit: %w", err))
	}
	return nil
}

// run executes a single store call in its own transaction, or in the one
// carried by ctx.
func run[T any](ctx context.Context, s *Store, fn func(ctx context.Context, t *tx) (T, error)) (T, error) {
	var out T
	err := s.InTx(ctx, func(ctx context.Context, t rewardsstore.Tx) error {
		var err error
		out, err = fn(ctx, t.(*tx))
		return err
	})
	return out, err
}

// reader returns the transaction carried by ctx, or a handle on the pool
// for plain reads.
func (s *Store) reader(ctx context.Context) *tx {
	if t, ok := ctx.Value(txKey{s}).(*tx); ok {
		return t
	}
	return &tx{c: s.sdb}
}

// classify maps SQLITE_BUSY and SQLITE_LOCKED onto rewards.ErrConflict.
func classify(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", rewards.ErrConflict, err)
		}
	}
	return err
}

// ==================== Credit Store ====================

func (s *Store) GetOrCreateAccount(ctx context.Context, def *credit.Account) (*credit.Account, error) {
	return run(ctx, s, func(ctx context.Context, t *tx) (*credit.Account, error) { return t.GetOrCreateAccount(ctx, def) })
}

func (s *Store) UpdateAccount(ctx context.Context, a *credit.Account) error {
	return s.InTx(ctx, func(ctx context.Context, t rewardsstore.Tx) error { return t.UpdateAccount(ctx, a) })
}

func (s *Store) CreateTransaction(ctx context.Context, txn *credit.Transaction) error {
	return s.InTx(ctx, func(ctx context.Context, t rewardsstore.Tx) error { return t.CreateTransaction(ctx, txn) })
}

func (s *Store) ListTransactions(ctx context.Context, userID string, opts credit.ListOpts) ([]*credit.Transaction, error) {
	return s.reader(ctx).ListTransactions(ctx, userID, opts)
}

func (s *Store) CountTransactions(ctx context.Context, userID string) (int64, error) {
	return s.reader(ctx).CountTransactions(ctx, userID)
}

// ==================== Streak Store ====================

func (s *Store) GetOrCreateStreak(ctx context.Context, def *streak.Streak) (*streak.Streak, error) {
	return run(ctx, s, func(ctx context.Context, t *tx) (*streak.Streak, error) { return t.GetOrCreateStreak(ctx, def) })
}

func (s *Store) UpdateStreak(ctx context.Context, st *streak.Streak) error {
	return s.InTx(ctx, func(ctx context.Context, t rewardsstore.Tx) error { return t.UpdateStreak(ctx, st) })
}

// ==================== Quota Store ====================

func (s *Store) GetDailyUsage(ctx context.Context, userID string, date types.Date) (*quota.DailyUsage, error) {
	return s.reader(ctx).GetDailyUsage(ctx, userID, date)
}

func (s *Store) GetOrCreateDailyUsage(ctx context.Context, def *quota.DailyUsage) (*quota.DailyUsage, error) {
	return run(ctx, s, func(ctx context.Context, t *tx) (*quota.DailyUsage, error) {
		return t.GetOrCreateDailyUsage(ctx, def)
	})
}

func (s *Store) UpdateDailyUsage(ctx context.Context, u *quota.DailyUsage) error {
	return s.InTx(ctx, func(ctx context.Context, t rewardsstore.Tx) error { return t.UpdateDailyUsage(ctx, u) })
}

func (s *Store) ListDailyUsage(ctx context.Context, userID string, limit int) ([]*quota.DailyUsage, error) {
	return s.reader(ctx).ListDailyUsage(ctx, userID, limit)
}

// ==================== Plan Store ====================

func (s *Store) GetPlan(ctx context.Context, code string) (*plan.Plan, error) {
	return s.reader(ctx).GetPlan(ctx, code)
}

func (s *Store) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	return s.reader(ctx).ListPlans(ctx, opts)
}

func (s *Store) SavePlan(ctx context.Context, p *plan.Plan) error {
	return s.InTx(ctx, func(ctx context.Context, t rewardsstore.Tx) error { return t.SavePlan(ctx, p) })
}

// ==================== Subscription Store ====================

func (s *Store) GetSubscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	return s.reader(ctx).GetSubscription(ctx, userID)
}

func (s *Store) GetOrCreateSubscription(ctx context.Context, def *subscription.Subscription) (*subscription.Subscription, error) {
	return run(ctx, s, func(ctx context.Context, t *tx) (*subscription.Subscription, error) {
		return t.GetOrCreateSubscription(ctx, def)
	})
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	return s.InTx(ctx, func(ctx context.Context, t rewardsstore.Tx) error { return t.UpdateSubscription(ctx, sub) })
}

func (s *Store) ListExpiredSubscriptions(ctx context.Context, today types.Date, limit int) ([]*subscription.Subscription, error) {
	return s.reader(ctx).ListExpiredSubscriptions(ctx, today, limit)
}

// ==================== Premium Store ====================

func (s *Store) GetMembership(ctx context.Context, userID string) (*premium.Membership, error) {
	return s.reader(ctx).GetMembership(ctx, userID)
}

func (s *Store) GetOrCreateMembership(ctx context.Context, def *premium.Membership) (*premium.Membership, error) {
	return run(ctx, s, func(ctx context.Context, t *tx) (*premium.Membership, error) { return t.GetOrCreateMembership(ctx, def) })
}

func (s *Store) UpdateMembership(ctx context.Context, m *premium.Membership) error {
	return s.InTx(ctx, func(ctx context.Context, t rewardsstore.Tx) error { return t.UpdateMembership(ctx, m) })
}

// ==================== Ad Reward Store ====================

func (s *Store) CreateImpression(ctx context.Context, imp *adreward.Impression) error {
	return s.InTx(ctx, func(ctx context.Context, t rewardsstore.Tx) error { return t.CreateImpression(ctx, imp) })
}

func (s *Store) ListImpressions(ctx context.Context, userID string, limit int) ([]*adreward.Impression, error) {
	return s.reader(ctx).ListImpressions(ctx, userID, limit)
}

// ==================== Helpers ====================

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
