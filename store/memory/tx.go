package memory

import (
	"context"
	"sort"

	"github.com/xraph/rewards"
	"github.com/xraph/rewards/adreward"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/premium"
	"github.com/xraph/rewards/quota"
	"github.com/xraph/rewards/streak"
	"github.com/xraph/rewards/subscription"
	"github.com/xraph/rewards/types"
)

// tx stages writes until commit. All rows owned by one user share a single
// lock, so a transaction may touch any of them in any order. A tx must not
// be used from more than one goroutine.
type tx struct {
	s    *Store
	held map[string]struct{}

	accounts      map[string]*credit.Account
	transactions  []*credit.Transaction
	streaks       map[string]*streak.Streak
	usage         map[usageKey]*quota.DailyUsage
	plans         map[string]*plan.Plan
	subscriptions map[string]*subscription.Subscription
	memberships   map[string]*premium.Membership
	impressions   []*adreward.Impression
}

func newTx(s *Store) *tx {
	return &tx{
		s:             s,
		held:          make(map[string]struct{}),
		accounts:      make(map[string]*credit.Account),
		streaks:       make(map[string]*streak.Streak),
		usage:         make(map[usageKey]*quota.DailyUsage),
		plans:         make(map[string]*plan.Plan),
		subscriptions: make(map[string]*subscription.Subscription),
		memberships:   make(map[string]*premium.Membership),
	}
}

func userKey(userID string) string { return "user:" + userID }
func planKey(code string) string   { return "plan:" + code }

func (t *tx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	if err := t.s.locks.Lock(ctx, key); err != nil {
		return err
	}
	t.held[key] = struct{}{}
	return nil
}

func (t *tx) release() {
	for key := range t.held {
		t.s.locks.Unlock(key)
	}
	t.held = nil
}

func clone[V any](v *V) *V {
	c := *v
	return &c
}

// lookup reads the staged row, falling back to committed state.
func lookup[K comparable, V any](t *tx, staged, committed map[K]*V, k K) (*V, bool) {
	if v, ok := staged[k]; ok {
		return clone(v), true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if v, ok := committed[k]; ok {
		return clone(v), true
	}
	return nil, false
}

func getOrCreate[K comparable, V any](ctx context.Context, t *tx, lockKey string, staged, committed map[K]*V, k K, create func() *V) (*V, error) {
	if err := t.lock(ctx, lockKey); err != nil {
		return nil, err
	}
	v, ok := lookup(t, staged, committed, k)
	if !ok {
		v = create()
	}
	staged[k] = clone(v)
	return v, nil
}

func update[K comparable, V any](ctx context.Context, t *tx, lockKey string, staged, committed map[K]*V, k K, v *V, notFound error) error {
	if err := t.lock(ctx, lockKey); err != nil {
		return err
	}
	if _, ok := lookup(t, staged, committed, k); !ok {
		return notFound
	}
	staged[k] = clone(v)
	return nil
}

// merged returns committed rows overlaid with staged ones.
func merged[K comparable, V any](t *tx, staged, committed map[K]*V, keep func(*V) bool) []*V {
	t.s.mu.RLock()
	all := make(map[K]*V, len(committed))
	for k, v := range committed {
		all[k] = v
	}
	t.s.mu.RUnlock()
	for k, v := range staged {
		all[k] = v
	}

	out := make([]*V, 0, len(all))
	for _, v := range all {
		if keep(v) {
			out = append(out, clone(v))
		}
	}
	return out
}

// ──────────────────────────────────────────────────
// Credit store
// ──────────────────────────────────────────────────

func (t *tx) GetOrCreateAccount(ctx context.Context, def *credit.Account) (*credit.Account, error) {
	return getOrCreate(ctx, t, userKey(def.UserID), t.accounts, t.s.accounts, def.UserID, func() *credit.Account {
		return clone(def)
	})
}

func (t *tx) UpdateAccount(ctx context.Context, a *credit.Account) error {
	return update(ctx, t, userKey(a.UserID), t.accounts, t.s.accounts, a.UserID, a, rewards.ErrAccountNotFound)
}

func (t *tx) CreateTransaction(ctx context.Context, txn *credit.Transaction) error {
	if err := t.lock(ctx, userKey(txn.UserID)); err != nil {
		return err
	}
	c := clone(txn)
	if txn.Metadata != nil {
		c.Metadata = make(map[string]string, len(txn.Metadata))
		for k, v := range txn.Metadata {
			c.Metadata[k] = v
		}
	}
	t.transactions = append(t.transactions, c)
	return nil
}

func (t *tx) userTransactions(userID string) []*credit.Transaction {
	t.s.mu.RLock()
	all := append([]*credit.Transaction(nil), t.s.transactions[userID]...)
	t.s.mu.RUnlock()
	for _, txn := range t.transactions {
		if txn.UserID == userID {
			all = append(all, txn)
		}
	}
	return all
}

func (t *tx) ListTransactions(_ context.Context, userID string, opts credit.ListOpts) ([]*credit.Transaction, error) {
	opts = opts.Normalize()
	all := t.userTransactions(userID)

	out := make([]*credit.Transaction, 0, opts.Limit)
	for i := len(all) - 1 - opts.Offset; i >= 0 && len(out) < opts.Limit; i-- {
		out = append(out, clone(all[i]))
	}
	return out, nil
}

func (t *tx) CountTransactions(_ context.Context, userID string) (int64, error) {
	return int64(len(t.userTransactions(userID))), nil
}

// ──────────────────────────────────────────────────
// Streak store
// ──────────────────────────────────────────────────

func (t *tx) GetOrCreateStreak(ctx context.Context, def *streak.Streak) (*streak.Streak, error) {
	return getOrCreate(ctx, t, userKey(def.UserID), t.streaks, t.s.streaks, def.UserID, func() *streak.Streak {
		return clone(def)
	})
}

func (t *tx) UpdateStreak(ctx context.Context, st *streak.Streak) error {
	return update(ctx, t, userKey(st.UserID), t.streaks, t.s.streaks, st.UserID, st, rewards.ErrNotFound)
}

// ──────────────────────────────────────────────────
// Quota store
// ──────────────────────────────────────────────────

func (t *tx) GetDailyUsage(_ context.Context, userID string, date types.Date) (*quota.DailyUsage, error) {
	u, ok := lookup(t, t.usage, t.s.usage, usageKey{userID, date})
	if !ok {
		return nil, rewards.ErrNotFound
	}
	return u, nil
}

func (t *tx) GetOrCreateDailyUsage(ctx context.Context, def *quota.DailyUsage) (*quota.DailyUsage, error) {
	return getOrCreate(ctx, t, userKey(def.UserID), t.usage, t.s.usage, usageKey{def.UserID, def.Date}, func() *quota.DailyUsage {
		return clone(def)
	})
}

func (t *tx) UpdateDailyUsage(ctx context.Context, u *quota.DailyUsage) error {
	return update(ctx, t, userKey(u.UserID), t.usage, t.s.usage, usageKey{u.UserID, u.Date}, u, rewards.ErrNotFound)
}

func (t *tx) ListDailyUsage(_ context.Context, userID string, limit int) ([]*quota.DailyUsage, error) {
	out := merged(t, t.usage, t.s.usage, func(u *quota.DailyUsage) bool { return u.UserID == userID })
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Plan store
// ──────────────────────────────────────────────────

func clonePlan(p *plan.Plan) *plan.Plan {
	c := clone(p)
	c.Features = append(plan.FeatureSet(nil), p.Features...)
	return c
}

func (t *tx) GetPlan(_ context.Context, code string) (*plan.Plan, error) {
	p, ok := lookup(t, t.plans, t.s.plans, code)
	if !ok {
		return nil, rewards.ErrPlanNotFound
	}
	return clonePlan(p), nil
}

func (t *tx) ListPlans(_ context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	out := merged(t, t.plans, t.s.plans, func(p *plan.Plan) bool { return !opts.ActiveOnly || p.Active })
	for i := range out {
		out[i] = clonePlan(out[i])
	}
	plan.SortByPrice(out)
	return out, nil
}

func (t *tx) SavePlan(ctx context.Context, p *plan.Plan) error {
	if err := t.lock(ctx, planKey(p.Code)); err != nil {
		return err
	}
	t.plans[p.Code] = clonePlan(p)
	return nil
}

// ──────────────────────────────────────────────────
// Subscription store
// ──────────────────────────────────────────────────

func (t *tx) GetSubscription(_ context.Context, userID string) (*subscription.Subscription, error) {
	sub, ok := lookup(t, t.subscriptions, t.s.subscriptions, userID)
	if !ok {
		return nil, rewards.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (t *tx) GetOrCreateSubscription(ctx context.Context, def *subscription.Subscription) (*subscription.Subscription, error) {
	return getOrCreate(ctx, t, userKey(def.UserID), t.subscriptions, t.s.subscriptions, def.UserID, func() *subscription.Subscription {
		return clone(def)
	})
}

func (t *tx) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	return update(ctx, t, userKey(sub.UserID), t.subscriptions, t.s.subscriptions, sub.UserID, sub, rewards.ErrSubscriptionNotFound)
}

func (t *tx) ListExpiredSubscriptions(_ context.Context, today types.Date, limit int) ([]*subscription.Subscription, error) {
	out := merged(t, t.subscriptions, t.s.subscriptions, func(s *subscription.Subscription) bool { return s.ExpiredOn(today) })
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Premium store
// ──────────────────────────────────────────────────

func (t *tx) GetMembership(_ context.Context, userID string) (*premium.Membership, error) {
	m, ok := lookup(t, t.memberships, t.s.memberships, userID)
	if !ok {
		return nil, rewards.ErrMembershipNotFound
	}
	return m, nil
}

func (t *tx) GetOrCreateMembership(ctx context.Context, def *premium.Membership) (*premium.Membership, error) {
	return getOrCreate(ctx, t, userKey(def.UserID), t.memberships, t.s.memberships, def.UserID, func() *premium.Membership {
		return clone(def)
	})
}

func (t *tx) UpdateMembership(ctx context.Context, m *premium.Membership) error {
	return update(ctx, t, userKey(m.UserID), t.memberships, t.s.memberships, m.UserID, m, rewards.ErrMembershipNotFound)
}

// ──────────────────────────────────────────────────
// Ad reward store
// ──────────────────────────────────────────────────

func (t *tx) CreateImpression(ctx context.Context, imp *adreward.Impression) error {
	if err := t.lock(ctx, userKey(imp.UserID)); err != nil {
		return err
	}
	t.impressions = append(t.impressions, clone(imp))
	return nil
}

func (t *tx) ListImpressions(_ context.Context, userID string, limit int) ([]*adreward.Impression, error) {
	t.s.mu.RLock()
	all := append([]*adreward.Impression(nil), t.s.impressions[userID]...)
	t.s.mu.RUnlock()
	for _, imp := range t.impressions {
		if imp.UserID == userID {
			all = append(all, imp)
		}
	}

	out := make([]*adreward.Impression, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, clone(all[i]))
	}
	return out, nil
}
