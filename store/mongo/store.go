package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

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

// Collection name constants.
const (
	colAccounts      = "rewards_credit_accounts"
	colTransactions  = "rewards_credit_transactions"
	colStreaks       = "rewards_streaks"
	colDailyUsage    = "rewards_daily_usage"
	colPlans         = "rewards_plans"
	colSubscriptions = "rewards_subscriptions"
	colMemberships   = "rewards_premium_memberships"
	colImpressions   = "rewards_ad_impressions"
)

// compile-time interface check
var (
	_ rewardsstore.Store = (*Store)(nil)
	_ rewardsstore.Tx    = (*tx)(nil)
)

// DefaultRetries is how often a transaction aborted with a transient
// transaction error is re-run.
const DefaultRetries = 3

// Store implements store.Store using MongoDB via Grove ORM. Transactions
// run in client sessions and need a replica set.
type Store struct {
	db      *grove.DB
	mdb     *mongodriver.MongoDB
	retries int
}

// Option configures a Store.
type Option func(*Store)

// WithRetries sets how often a transient transaction failure is re-run.
func WithRetries(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:      db,
		mdb:     mongodriver.Unwrap(db),
		retries: DefaultRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all rewards collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("rewards/mongo: migrate %s indexes: %w", col, err)
		}
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

// InTx runs fn in a session transaction. A call made while ctx already
// carries a transaction of this store joins it. Write conflicts carry the
// TransientTransactionError label; they surface as rewards.ErrConflict and
// are retried.
func (s *Store) InTx(ctx context.Context, fn rewardsstore.TxFunc) error {
	if t, ok := ctx.Value(txKey{s}).(*tx); ok {
		return fn(ctx, t)
	}

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
	raw, err := s.mdb.GroveTx(ctx, 0, false)
	if err != nil {
		return fmt.Errorf("rewards/mongo: begin: %w", err)
	}
	mtx, ok := raw.(*mongodriver.MongoTx)
	if !ok {
		return fmt.Errorf("rewards/mongo: begin: unexpected transaction type %T", raw)
	}
	defer func() {
		if err != nil {
			_ = mtx.Rollback() //nolint:errcheck // best-effort rollback
		}
	}()

	t := &tx{c: mtx}
	if err = fn(context.WithValue(ctx, txKey{s}, t), t); err != nil {
		return classify(err)
	}
	if err = mtx.Commit(); err != nil {
		return classify(fmt.Errorf("rewards/mongo: commit: %w", err))
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

// reader returns the transaction carried by ctx, or a handle on the client
// for plain reads.
func (s *Store) reader(ctx context.Context) *tx {
	if t, ok := ctx.Value(txKey{s}).(*tx); ok {
		return t
	}
	return &tx{c: s.mdb}
}

// classify maps transient transaction failures onto rewards.ErrConflict.
func classify(err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorLabel("TransientTransactionError") {
		return fmt.Errorf("%w: %w", rewards.ErrConflict, err)
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

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all rewards collections.
// Documents keyed by user or plan code rely on the _id index.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: nil,
		colStreaks:  nil,
		colPlans: {
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "price_amount", Value: 1}}},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		},
		colDailyUsage: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "usage_date", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colSubscriptions: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "auto_renew", Value: 1}, {Key: "expiry_date", Value: 1}}},
			{
				Keys:    bson.D{{Key: "subscription_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colMemberships: nil,
		colImpressions: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "watched_at", Value: -1}, {Key: "_id", Value: -1}}},
		},
	}
}
