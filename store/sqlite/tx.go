package sqlite

import (
	"context"
	"fmt"

	"github.com/xraph/grove/drivers/sqlitedriver"

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

// conn is the query surface shared by *sqlitedriver.SqliteDB and
// *sqlitedriver.SqliteTx.
type conn interface {
	NewSelect(model ...any) *sqlitedriver.SelectQuery
	NewInsert(model any) *sqlitedriver.InsertQuery
	NewUpdate(model any) *sqlitedriver.UpdateQuery
}

// tx implements store.Tx on a connection. SQLite has no row locks; the
// store admits one write transaction at a time instead.
type tx struct {
	c conn
}

// updated fails with notFound when an UPDATE touched no row.
func updated(ctx context.Context, q *sqlitedriver.UpdateQuery, op string, notFound error) error {
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("rewards/sqlite: %s: %w", op, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// ==================== Credit ====================

func (t *tx) GetOrCreateAccount(ctx context.Context, def *credit.Account) (*credit.Account, error) {
	userID := def.UserID
	_, err := t.c.NewInsert(toAccountModel(def)).
		OnConflict("(user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: create account: %w", err)
	}

	m := new(accountModel)
	err = t.c.NewSelect(m).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: load account: %w", err)
	}
	return fromAccountModel(m), nil
}

func (t *tx) UpdateAccount(ctx context.Context, a *credit.Account) error {
	return updated(ctx, t.c.NewUpdate(toAccountModel(a)).WherePK(), "update account", rewards.ErrAccountNotFound)
}

func (t *tx) CreateTransaction(ctx context.Context, txn *credit.Transaction) error {
	if _, err := t.c.NewInsert(toTransactionModel(txn)).Exec(ctx); err != nil {
		return fmt.Errorf("rewards/sqlite: create transaction: %w", err)
	}
	return nil
}

func (t *tx) ListTransactions(ctx context.Context, userID string, opts credit.ListOpts) ([]*credit.Transaction, error) {
	opts = opts.Normalize()

	var models []transactionModel
	err := t.c.NewSelect(&models).
		Where("user_id = ?", userID).
		OrderExpr("created_at DESC, id DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*credit.Transaction, len(models))
	for i := range models {
		txn, err := fromTransactionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = txn
	}
	return result, nil
}

func (t *tx) CountTransactions(ctx context.Context, userID string) (int64, error) {
	return t.c.NewSelect((*transactionModel)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
}

// ==================== Streak ====================

func (t *tx) GetOrCreateStreak(ctx context.Context, def *streak.Streak) (*streak.Streak, error) {
	userID := def.UserID
	_, err := t.c.NewInsert(toStreakModel(def)).
		OnConflict("(user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: create streak: %w", err)
	}

	m := new(streakModel)
	err = t.c.NewSelect(m).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: load streak: %w", err)
	}
	return fromStreakModel(m)
}

func (t *tx) UpdateStreak(ctx context.Context, st *streak.Streak) error {
	return updated(ctx, t.c.NewUpdate(toStreakModel(st)).WherePK(), "update streak", rewards.ErrNotFound)
}

// ==================== Quota ====================

func (t *tx) GetDailyUsage(ctx context.Context, userID string, date types.Date) (*quota.DailyUsage, error) {
	m := new(dailyUsageModel)
	err := t.c.NewSelect(m).
		Where("user_id = ?", userID).
		Where("usage_date = ?", date.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, rewards.ErrNotFound
		}
		return nil, err
	}
	return fromDailyUsageModel(m)
}

func (t *tx) GetOrCreateDailyUsage(ctx context.Context, def *quota.DailyUsage) (*quota.DailyUsage, error) {
	userID, date := def.UserID, def.Date
	_, err := t.c.NewInsert(toDailyUsageModel(def)).
		OnConflict("(user_id, usage_date) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: create daily usage: %w", err)
	}

	m := new(dailyUsageModel)
	err = t.c.NewSelect(m).
		Where("user_id = ?", userID).
		Where("usage_date = ?", date.String()).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: load daily usage: %w", err)
	}
	return fromDailyUsageModel(m)
}

func (t *tx) UpdateDailyUsage(ctx context.Context, u *quota.DailyUsage) error {
	return updated(ctx, t.c.NewUpdate(toDailyUsageModel(u)).WherePK(), "update daily usage", rewards.ErrNotFound)
}

func (t *tx) ListDailyUsage(ctx context.Context, userID string, limit int) ([]*quota.DailyUsage, error) {
	var models []dailyUsageModel
	q := t.c.NewSelect(&models).
		Where("user_id = ?", userID).
		OrderExpr("usage_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*quota.DailyUsage, len(models))
	for i := range models {
		u, err := fromDailyUsageModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = u
	}
	return result, nil
}

// ==================== Plan ====================

func (t *tx) GetPlan(ctx context.Context, code string) (*plan.Plan, error) {
	m := new(planModel)
	err := t.c.NewSelect(m).
		Where("code = ?", code).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, rewards.ErrPlanNotFound
		}
		return nil, err
	}
	return fromPlanModel(m)
}

func (t *tx) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	var models []planModel
	q := t.c.NewSelect(&models)
	if opts.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.OrderExpr("price_amount ASC, code ASC").Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*plan.Plan, len(models))
	for i := range models {
		p, err := fromPlanModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	plan.SortByPrice(result)
	return result, nil
}

func (t *tx) SavePlan(ctx context.Context, p *plan.Plan) error {
	_, err := t.c.NewInsert(toPlanModel(p)).
		OnConflict("(code) DO UPDATE").
		Set("name = excluded.name").
		Set("description = excluded.description").
		Set("price_amount = excluded.price_amount").
		Set("price_currency = excluded.price_currency").
		Set("daily_story_limit = excluded.daily_story_limit").
		Set("max_child_profiles = excluded.max_child_profiles").
		Set("features = excluded.features").
		Set("active = excluded.active").
		Set("updated_at = excluded.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rewards/sqlite: save plan: %w", err)
	}
	return nil
}

// ==================== Subscription ====================

func (t *tx) GetSubscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := t.c.NewSelect(m).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, rewards.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (t *tx) GetOrCreateSubscription(ctx context.Context, def *subscription.Subscription) (*subscription.Subscription, error) {
	_, err := t.c.NewInsert(toSubscriptionModel(def)).
		OnConflict("(user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: create subscription: %w", err)
	}

	m := new(subscriptionModel)
	err = t.c.NewSelect(m).
		Where("user_id = ?", def.UserID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: load subscription: %w", err)
	}
	return fromSubscriptionModel(m)
}

func (t *tx) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	return updated(ctx, t.c.NewUpdate(toSubscriptionModel(sub)).WherePK(), "update subscription", rewards.ErrSubscriptionNotFound)
}

func (t *tx) ListExpiredSubscriptions(ctx context.Context, today types.Date, limit int) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := t.c.NewSelect(&models).
		Where("status = ?", string(subscription.StatusActive)).
		Where("auto_renew = ?", false).
		Where("expiry_date <> ''").
		Where("expiry_date < ?", today.String()).
		OrderExpr("user_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

// ==================== Premium ====================

func (t *tx) GetMembership(ctx context.Context, userID string) (*premium.Membership, error) {
	m := new(membershipModel)
	err := t.c.NewSelect(m).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, rewards.ErrMembershipNotFound
		}
		return nil, err
	}
	return fromMembershipModel(m), nil
}

func (t *tx) GetOrCreateMembership(ctx context.Context, def *premium.Membership) (*premium.Membership, error) {
	userID := def.UserID
	_, err := t.c.NewInsert(toMembershipModel(def)).
		OnConflict("(user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: create membership: %w", err)
	}

	m := new(membershipModel)
	err = t.c.NewSelect(m).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: load membership: %w", err)
	}
	return fromMembershipModel(m), nil
}

func (t *tx) UpdateMembership(ctx context.Context, m *premium.Membership) error {
	return updated(ctx, t.c.NewUpdate(toMembershipModel(m)).WherePK(), "update membership", rewards.ErrMembershipNotFound)
}

// ==================== Ad Reward ====================

func (t *tx) CreateImpression(ctx context.Context, imp *adreward.Impression) error {
	if _, err := t.c.NewInsert(toImpressionModel(imp)).Exec(ctx); err != nil {
		return fmt.Errorf("rewards/sqlite: create impression: %w", err)
	}
	return nil
}

func (t *tx) ListImpressions(ctx context.Context, userID string, limit int) ([]*adreward.Impression, error) {
	var models []impressionModel
	q := t.c.NewSelect(&models).
		Where("user_id = ?", userID).
		OrderExpr("watched_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*adreward.Impression, len(models))
	for i := range models {
		imp, err := fromImpressionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = imp
	}
	return result, nil
}
