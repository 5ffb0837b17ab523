package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/grove/drivers/mongodriver"

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

// conn is the query surface shared by *mongodriver.MongoDB and
// *mongodriver.MongoTx.
type conn interface {
	NewFind(model ...any) *mongodriver.FindQuery
	NewInsert(model any) *mongodriver.InsertQuery
	NewUpdate(model any) *mongodriver.UpdateQuery
}

// lockField is bumped by every get-or-create so that the document is
// write-locked by the session until it commits.
const lockField = "lock_seq"

// tx implements store.Tx on a connection.
type tx struct {
	c conn
}

// lock upserts def under key if missing, takes the document's write lock
// and decodes the stored document into dest.
func (t *tx) lock(ctx context.Context, def, dest any, key, op string) error {
	doc, err := t.c.NewInsert(def).BuildDoc()
	if err != nil {
		return fmt.Errorf("rewards/mongo: %s: %w", op, err)
	}
	delete(doc, "_id")

	_, err = t.c.NewUpdate(def).
		Filter(bson.M{"_id": key}).
		SetUpdate(bson.M{
			"$setOnInsert": doc,
			"$inc":         bson.M{lockField: 1},
		}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rewards/mongo: %s: %w", op, err)
	}

	if err := t.c.NewFind(dest).Filter(bson.M{"_id": key}).Scan(ctx); err != nil {
		return fmt.Errorf("rewards/mongo: %s: %w", op, err)
	}
	return nil
}

// replace writes every non-key field of model to the document under key.
func (t *tx) replace(ctx context.Context, model any, key, op string, notFound error) error {
	res, err := t.c.NewUpdate(model).Filter(bson.M{"_id": key}).Exec(ctx)
	if err != nil {
		return fmt.Errorf("rewards/mongo: %s: %w", op, err)
	}
	if res.MatchedCount() == 0 {
		return notFound
	}
	return nil
}

// find decodes the document under key into dest.
func (t *tx) find(ctx context.Context, dest any, key, op string, notFound error) error {
	err := t.c.NewFind(dest).Filter(bson.M{"_id": key}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return notFound
		}
		return fmt.Errorf("rewards/mongo: %s: %w", op, err)
	}
	return nil
}

// ==================== Credit ====================

func (t *tx) GetOrCreateAccount(ctx context.Context, def *credit.Account) (*credit.Account, error) {
	var m accountModel
	if err := t.lock(ctx, toAccountModel(def), &m, def.UserID, "lock account"); err != nil {
		return nil, err
	}
	return fromAccountModel(&m), nil
}

func (t *tx) UpdateAccount(ctx context.Context, a *credit.Account) error {
	return t.replace(ctx, toAccountModel(a), a.UserID, "update account", rewards.ErrAccountNotFound)
}

func (t *tx) CreateTransaction(ctx context.Context, txn *credit.Transaction) error {
	if _, err := t.c.NewInsert(toTransactionModel(txn)).Exec(ctx); err != nil {
		return fmt.Errorf("rewards/mongo: create transaction: %w", err)
	}
	return nil
}

func (t *tx) ListTransactions(ctx context.Context, userID string, opts credit.ListOpts) ([]*credit.Transaction, error) {
	opts = opts.Normalize()

	var models []transactionModel
	err := t.c.NewFind(&models).
		Filter(bson.M{"user_id": userID}).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		Limit(int64(opts.Limit)).
		Skip(int64(opts.Offset)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards/mongo: list transactions: %w", err)
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
	return t.c.NewFind((*transactionModel)(nil)).
		Filter(bson.M{"user_id": userID}).
		Count(ctx)
}

// ==================== Streak ====================

func (t *tx) GetOrCreateStreak(ctx context.Context, def *streak.Streak) (*streak.Streak, error) {
	var m streakModel
	if err := t.lock(ctx, toStreakModel(def), &m, def.UserID, "lock streak"); err != nil {
		return nil, err
	}
	return fromStreakModel(&m)
}

func (t *tx) UpdateStreak(ctx context.Context, st *streak.Streak) error {
	return t.replace(ctx, toStreakModel(st), st.UserID, "update streak", rewards.ErrNotFound)
}

// ==================== Quota ====================

func (t *tx) GetDailyUsage(ctx context.Context, userID string, date types.Date) (*quota.DailyUsage, error) {
	var m dailyUsageModel
	if err := t.find(ctx, &m, usageKey(userID, date), "get daily usage", rewards.ErrNotFound); err != nil {
		return nil, err
	}
	return fromDailyUsageModel(&m)
}

func (t *tx) GetOrCreateDailyUsage(ctx context.Context, def *quota.DailyUsage) (*quota.DailyUsage, error) {
	var m dailyUsageModel
	dm := toDailyUsageModel(def)
	if err := t.lock(ctx, dm, &m, dm.Key, "lock daily usage"); err != nil {
		return nil, err
	}
	return fromDailyUsageModel(&m)
}

func (t *tx) UpdateDailyUsage(ctx context.Context, u *quota.DailyUsage) error {
	return t.replace(ctx, toDailyUsageModel(u), usageKey(u.UserID, u.Date), "update daily usage", rewards.ErrNotFound)
}

func (t *tx) ListDailyUsage(ctx context.Context, userID string, limit int) ([]*quota.DailyUsage, error) {
	var models []dailyUsageModel
	q := t.c.NewFind(&models).
		Filter(bson.M{"user_id": userID}).
		Sort(bson.D{{Key: "usage_date", Value: -1}})
	if limit > 0 {
		q = q.Limit(int64(limit))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("rewards/mongo: list daily usage: %w", err)
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
	var m planModel
	if err := t.find(ctx, &m, code, "get plan", rewards.ErrPlanNotFound); err != nil {
		return nil, err
	}
	return fromPlanModel(&m), nil
}

func (t *tx) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	filter := bson.M{}
	if opts.ActiveOnly {
		filter["active"] = true
	}

	var models []planModel
	err := t.c.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "price_amount", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards/mongo: list plans: %w", err)
	}

	result := make([]*plan.Plan, len(models))
	for i := range models {
		result[i] = fromPlanModel(&models[i])
	}
	plan.SortByPrice(result)
	return result, nil
}

func (t *tx) SavePlan(ctx context.Context, p *plan.Plan) error {
	_, err := t.c.NewUpdate(toPlanModel(p)).
		Filter(bson.M{"_id": p.Code}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rewards/mongo: save plan: %w", err)
	}
	return nil
}

// ==================== Subscription ====================

func (t *tx) GetSubscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	var m subscriptionModel
	if err := t.find(ctx, &m, userID, "get subscription", rewards.ErrSubscriptionNotFound); err != nil {
		return nil, err
	}
	return fromSubscriptionModel(&m)
}

func (t *tx) GetOrCreateSubscription(ctx context.Context, def *subscription.Subscription) (*subscription.Subscription, error) {
	var m subscriptionModel
	if err := t.lock(ctx, toSubscriptionModel(def), &m, def.UserID, "lock subscription"); err != nil {
		return nil, err
	}
	return fromSubscriptionModel(&m)
}

func (t *tx) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	return t.replace(ctx, toSubscriptionModel(sub), sub.UserID, "update subscription", rewards.ErrSubscriptionNotFound)
}

func (t *tx) ListExpiredSubscriptions(ctx context.Context, today types.Date, limit int) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := t.c.NewFind(&models).
		Filter(bson.M{
			"status":      string(subscription.StatusActive),
			"auto_renew":  false,
			"expiry_date": bson.M{"$gt": "", "$lt": today.String()},
		}).
		Sort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		q = q.Limit(int64(limit))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("rewards/mongo: list expired subscriptions: %w", err)
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
	var m membershipModel
	if err := t.find(ctx, &m, userID, "get membership", rewards.ErrMembershipNotFound); err != nil {
		return nil, err
	}
	return fromMembershipModel(&m), nil
}

func (t *tx) GetOrCreateMembership(ctx context.Context, def *premium.Membership) (*premium.Membership, error) {
	var m membershipModel
	if err := t.lock(ctx, toMembershipModel(def), &m, def.UserID, "lock membership"); err != nil {
		return nil, err
	}
	return fromMembershipModel(&m), nil
}

func (t *tx) UpdateMembership(ctx context.Context, m *premium.Membership) error {
	return t.replace(ctx, toMembershipModel(m), m.UserID, "update membership", rewards.ErrMembershipNotFound)
}

// ==================== Ad Reward ====================

func (t *tx) CreateImpression(ctx context.Context, imp *adreward.Impression) error {
	if _, err := t.c.NewInsert(toImpressionModel(imp)).Exec(ctx); err != nil {
		return fmt.Errorf("rewards/mongo: create impression: %w", err)
	}
	return nil
}

func (t *tx) ListImpressions(ctx context.Context, userID string, limit int) ([]*adreward.Impression, error) {
	var models []impressionModel
	q := t.c.NewFind(&models).
		Filter(bson.M{"user_id": userID}).
		Sort(bson.D{{Key: "watched_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		q = q.Limit(int64(limit))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("rewards/mongo: list impressions: %w", err)
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
