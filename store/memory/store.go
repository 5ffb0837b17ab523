// Package memory is an in-process store backend. It is safe for concurrent
// use and serializes transactions per user, which makes it suitable for
// tests and single-instance deployments.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/rewards"
	"github.com/xraph/rewards/adreward"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/premium"
	"github.com/xraph/rewards/quota"
	"github.com/xraph/rewards/store"
	"github.com/xraph/rewards/streak"
	"github.com/xraph/rewards/subscription"
	"github.com/xraph/rewards/types"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

type usageKey struct {
	userID string
	date   types.Date
}

// Store keeps committed state in maps guarded by mu. Transactions stage
// their writes and publish them in one step on commit.
type Store struct {
	mu     sync.RWMutex
	closed bool

	accounts      map[string]*credit.Account
	transactions  map[string][]*credit.Transaction // oldest first
	streaks       map[string]*streak.Streak
	usage         map[usageKey]*quota.DailyUsage
	plans         map[string]*plan.Plan
	subscriptions map[string]*subscription.Subscription
	memberships   map[string]*premium.Membership
	impressions   map[string][]*adreward.Impression // oldest first

	locks *keyedMutex
}

// New creates an empty memory store.
func New() *Store {
	return &Store{
		accounts:      make(map[string]*credit.Account),
		transactions:  make(map[string][]*credit.Transaction),
		streaks:       make(map[string]*streak.Streak),
		usage:         make(map[usageKey]*quota.DailyUsage),
		plans:         make(map[string]*plan.Plan),
		subscriptions: make(map[string]*subscription.Subscription),
		memberships:   make(map[string]*premium.Membership),
		impressions:   make(map[string][]*adreward.Impression),
		locks:         newKeyedMutex(),
	}
}

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

type txKey struct{ s *Store }

// InTx implements store.Store.
func (s *Store) InTx(ctx context.Context, fn store.TxFunc) error {
	if t, ok := ctx.Value(txKey{s}).(*tx); ok {
		return fn(ctx, t)
	}

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return rewards.ErrStoreClosed
	}

	t := newTx(s)
	defer t.release()

	if err := fn(context.WithValue(ctx, txKey{s}, t), t); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return rewards.ErrStoreClosed
	}
	for k, v := range t.accounts {
		s.accounts[k] = v
	}
	for _, v := range t.transactions {
		s.transactions[v.UserID] = append(s.transactions[v.UserID], v)
	}
	for k, v := range t.streaks {
		s.streaks[k] = v
	}
	for k, v := range t.usage {
		s.usage[k] = v
	}
	for k, v := range t.plans {
		s.plans[k] = v
	}
	for k, v := range t.subscriptions {
		s.subscriptions[k] = v
	}
	for k, v := range t.memberships {
		s.memberships[k] = v
	}
	for _, v := range t.impressions {
		s.impressions[v.UserID] = append(s.impressions[v.UserID], v)
	}
	return nil
}

// run executes fn in an implicit transaction and returns its value.
func run[T any](ctx context.Context, s *Store, fn func(ctx context.Context, t store.Tx) (T, error)) (T, error) {
	var out T
	err := s.InTx(ctx, func(ctx context.Context, t store.Tx) error {
		var err error
		out, err = fn(ctx, t)
		return err
	})
	return out, err
}

// ──────────────────────────────────────────────────
// Credit store
// ──────────────────────────────────────────────────

func (s *Store) GetOrCreateAccount(ctx context.Context, def *credit.Account) (*credit.Account, error) {
	return run(ctx, s, func(ctx context.Context, t store.Tx) (*credit.Account, error) {
		return t.GetOrCreateAccount(ctx, def)
	})
}

func (s *Store) UpdateAccount(ctx context.Context, a *credit.Account) error {
	return s.InTx(ctx, func(ctx context.Context, t store.Tx) error {
		return t.UpdateAccount(ctx, a)
	})
}

func (s *Store) CreateTransaction(ctx context.Context, txn *credit.Transaction) error {
	return s.InTx(ctx, func(ctx context.Context, t store.Tx) error {
		return t.CreateTransaction(ctx, txn)
	})
}

func (s *Store) ListTransactions(ctx context.Context, userID string, opts credit.ListOpts) ([]*credit.Transaction, error) {
	return run(ctx, s, func(ctx context.Context, t store.Tx) ([]*credit.Transaction, error) {
		return t.ListTransactions(ctx, userID, opts)
	})
}

func (s *Store) CountTransactions(ctx context.Context, userID string) (int64, error) {
	return run(ctx, s, func(ctx context.Context, t store.Tx) (int64, error) {
		return t.CountTransactions(ctx, userID)
	})
}

// ──────────────────────────────────────────────────
// Streak store
// ──────────────────────────────────────────────────

func (s *Store) GetOrCreateStreak(ctx context.Context, def *streak.Streak) (*streak.Streak, error) {
	return run(ctx, s, func(ctx context.Context, t store.Tx) (*streak.Streak, error) {
		return t.GetOrCreateStreak(ctx, def)
	})
}

func (s *Store) UpdateStreak(ctx context.Context, st *streak.Streak) error {
	return s.InTx(ctx, func(ctx context.Context, t store.Tx) error {
		return t.UpdateStreak(ctx, st)
	})
}

// ──────────────────────────────────────────────────
// Quota store
// ──────────────────────────────────────────────────

func (s *Store) GetDailyUsage(ctx context.Context, userID string, date types.Date) (*quota.DailyUsage, error) {
	return run(ctx, s, func(ctx context.Context, t store.Tx) (*quota.DailyUsage, error) {
		return t.GetDailyUsage(ctx, userID, date)
	})
}

func (s *Store) GetOrCreateDailyUsage(ctx context.Context, def *quota.DailyUsage) (*quota.DailyUsage, error) {
	return run(ctx, s, func(ctx context.Context, t store.Tx) (*quota.DailyUsage, error) {
		return t.GetOrCreateDailyUsage(ctx, def)
	})
}

func (s *Store) UpdateDailyUsage(ctx context.Context, u *quota.DailyUsage) error {
	return s.InTx(ctx, func(ctx context.Context, t store.Tx) error {
		return t.UpdateDailyUsage(ctx, u)
	})
}

func (s *Store) ListDailyUsage(ctx context.Context, userID string, limit int) ([]*quota.DailyUsage, error) {
	return run(ctx, s, func(ctx context.Context, t store.Tx) ([]*quota.DailyUsage, error) {
		return t.ListDailyUsage(ctx, userID, limit)
	})
}

// ──────────────────────────────────────────────────
// Plan store
// ──────────────────────────────────────────────────

func (s *Store) GetPlan(ctx context.Context, code string) (*plan.Plan, error) {
	return run(ctx, s, func(ctx context.Context, t store.Tx) (*plan.Plan, error) {
		return t.GetPlan(ctx, code)
	})
}

func (s *Store) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	return run(ctx, s, func(ctx context.Context, t store.Tx) ([]*plan.Plan, error) {
		return t.ListPlans(ctx, opts)
	})
}

func (s *Store) SavePlan(ctx context.Context, p *plan.Plan) error {
	return s.InTx(ctx, func(ctx context.Context, t store.Tx) error {
		return t.SavePlan(ctx, p)
	})
}

// ──────────────────────────────────────────────────
// Subscription store
// ──────────────────────────────────────────────────

func (s *Store) GetSubscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	return run(ctx, s, func(ctx context.Context, t store.Tx) (*subscription.Subscription, error) {
		return t.GetSubscription(ctx, userID)
	})
}

func (s *Store) GetOrCreateSubscription(ctx context.Context, def *subscription.Subscription) (*subscription.Subscription, error) {
	return run(ctx, s, func(ctx context.Context, t store.Tx) (*subscription.Subscription, error) {
		return t.GetOrCreateSubscription(ctx, def)
	})
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	return s.InTx(ctx, func(ctx context.Context, t store.Tx) error {
		return t.UpdateSubscription(ctx, sub)
	})
}

func (s *Store) ListExpiredSubscriptions(ctx context.Context, today types.Date, limit int) ([]*subscription.Subscription, error) {
	return run(ctx, s, func(ctx context.Context, t store.Tx) ([]*subscription.Subscription, error) {
		return t.ListExpiredSubscriptions(ctx, today, limit)
	})
}

// ──────────────────────────────────────────────────
// Premium store
// ──────────────────────────────────────────────────

func (s *Store) GetMembership(ctx context.Context, userID string) (*premium.Membership, error) {
	return run(ctx, s, func(ctx context.Context, t store.Tx) (*premium.Membership, error) {
		return t.GetMembership(ctx, userID)
	})
}

func (s *Store) GetOrCreateMembership(ctx context.Context, def *premium.Membership) (*premium.Membership, error) {
	return run(ctx, s, func(ctx context.Context, t store.Tx) (*premium.Membership, error) {
		return t.GetOrCreateMembership(ctx, def)
	})
}

func (s *Store) UpdateMembership(ctx context.Context, m *premium.Membership) error {
	return s.InTx(ctx, func(ctx context.Context, t store.Tx) error {
		return t.UpdateMembership(ctx, m)
	})
}

// ──────────────────────────────────────────────────
// Ad reward store
// ──────────────────────────────────────────────────

func (s *Store) CreateImpression(ctx context.Context, imp *adreward.Impression) error {
	return s.InTx(ctx, func(ctx context.Context, t store.Tx) error {
		return t.CreateImpression(ctx, imp)
	})
}

func (s *Store) ListImpressions(ctx context.Context, userID string, limit int) ([]*adreward.Impression, error) {
	return run(ctx, s, func(ctx context.Context, t store.Tx) ([]*adreward.Impression, error) {
		return t.ListImpressions(ctx, userID, limit)
	})
}

// ──────────────────────────────────────────────────
// Store management
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports ErrStoreClosed after Close.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return rewards.ErrStoreClosed
	}
	return nil
}

// Close rejects further transactions.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
