package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/rewards/adreward"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/id"
	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/premium"
	"github.com/xraph/rewards/quota"
	"github.com/xraph/rewards/streak"
	"github.com/xraph/rewards/subscription"
	"github.com/xraph/rewards/types"
)

// SQLite has no JSON column type; documents are stored as TEXT.

func encodeJSON(v any, empty string) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return empty
	}
	return string(b)
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

// ==================== Credit models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:rewards_credit_accounts"`

	UserID         string    `grove:"user_id,pk"`
	Balance        int64     `grove:"balance"`
	LifetimeEarned int64     `grove:"lifetime_earned"`
	LifetimeSpent  int64     `grove:"lifetime_spent"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toAccountModel(a *credit.Account) *accountModel {
	return &accountModel{
		UserID:         a.UserID,
		Balance:        a.Balance,
		LifetimeEarned: a.LifetimeEarned,
		LifetimeSpent:  a.LifetimeSpent,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) *credit.Account {
	return &credit.Account{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		UserID:         m.UserID,
		Balance:        m.Balance,
		LifetimeEarned: m.LifetimeEarned,
		LifetimeSpent:  m.LifetimeSpent,
	}
}

type transactionModel struct {
	grove.BaseModel `grove:"table:rewards_credit_transactions"`

	ID           string            `grove:"id,pk"`
	UserID       string            `grove:"user_id"`
	Amount       int64             `grove:"amount"`
	Category     string            `grove:"category"`
	Description  string            `grove:"description"`
	Metadata     string            `grove:"metadata"`
	BalanceAfter int64             `grove:"balance_after"`
	CreatedAt    time.Time         `grove:"created_at"`
}

func toTransactionModel(t *credit.Transaction) *transactionModel {
	return &transactionModel{
		ID:           t.ID.String(),
		UserID:       t.UserID,
		Amount:       t.Amount,
		Category:     string(t.Category),
		Description:  t.Description,
		Metadata:     encodeJSON(t.Metadata, "{}"),
		BalanceAfter: t.BalanceAfter,
		CreatedAt:    t.CreatedAt,
	}
}

func fromTransactionModel(m *transactionModel) (*credit.Transaction, error) {
	txnID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}
	var meta map[string]string
	if err := decodeJSON(m.Metadata, &meta); err != nil {
		return nil, fmt.Errorf("transaction %s metadata: %w", m.ID, err)
	}
	return &credit.Transaction{
		ID:           txnID,
		UserID:       m.UserID,
		Amount:       m.Amount,
		Category:     credit.Category(m.Category),
		Description:  m.Description,
		Metadata:     meta,
		BalanceAfter: m.BalanceAfter,
		CreatedAt:    m.CreatedAt,
	}, nil
}

// ==================== Streak models ====================

type streakModel struct {
	grove.BaseModel `grove:"table:rewards_streaks"`

	UserID           string    `grove:"user_id,pk"`
	CurrentStreak    int       `grove:"current_streak"`
	LongestStreak    int       `grove:"longest_streak"`
	LastActivityDate string    `grove:"last_activity_date"`
	CreatedAt        time.Time `grove:"created_at"`
	UpdatedAt        time.Time `grove:"updated_at"`
}

func toStreakModel(s *streak.Streak) *streakModel {
	return &streakModel{
		UserID:           s.UserID,
		CurrentStreak:    s.CurrentStreak,
		LongestStreak:    s.LongestStreak,
		LastActivityDate: types.FormatDate(s.LastActivityDate),
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func fromStreakModel(m *streakModel) (*streak.Streak, error) {
	last, err := types.ParseOptionalDate(m.LastActivityDate)
	if err != nil {
		return nil, err
	}
	return &streak.Streak{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		UserID:           m.UserID,
		CurrentStreak:    m.CurrentStreak,
		LongestStreak:    m.LongestStreak,
		LastActivityDate: last,
	}, nil
}

// ==================== Quota models ====================

type dailyUsageModel struct {
	grove.BaseModel `grove:"table:rewards_daily_usage"`

	UserID                string    `grove:"user_id,pk"`
	Date                  string    `grove:"usage_date,pk"`
	FreeStoriesUsed       int       `grove:"free_stories_used"`
	CreditStoriesUnlocked int       `grove:"credit_stories_unlocked"`
	CreatedAt             time.Time `grove:"created_at"`
	UpdatedAt             time.Time `grove:"updated_at"`
}

func toDailyUsageModel(u *quota.DailyUsage) *dailyUsageModel {
	return &dailyUsageModel{
		UserID:                u.UserID,
		Date:                  u.Date.String(),
		FreeStoriesUsed:       u.FreeStoriesUsed,
		CreditStoriesUnlocked: u.CreditStoriesUnlocked,
		CreatedAt:             u.CreatedAt,
		UpdatedAt:             u.UpdatedAt,
	}
}

func fromDailyUsageModel(m *dailyUsageModel) (*quota.DailyUsage, error) {
	date, err := types.ParseDate(m.Date)
	if err != nil {
		return nil, err
	}
	return &quota.DailyUsage{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		UserID:                m.UserID,
		Date:                  date,
		FreeStoriesUsed:       m.FreeStoriesUsed,
		CreditStoriesUnlocked: m.CreditStoriesUnlocked,
	}, nil
}

// ==================== Plan models ====================

type planModel struct {
	grove.BaseModel `grove:"table:rewards_plans"`

	Code             string          `grove:"code,pk"`
	Name             string          `grove:"name"`
	Description      string          `grove:"description"`
	PriceAmount      int64           `grove:"price_amount"`
	PriceCurrency    string          `grove:"price_currency"`
	DailyStoryLimit  int             `grove:"daily_story_limit"`
	MaxChildProfiles int             `grove:"max_child_profiles"`
	Features         string          `grove:"features"`
	Active           bool            `grove:"active"`
	CreatedAt        time.Time       `grove:"created_at"`
	UpdatedAt        time.Time       `grove:"updated_at"`
}

func toPlanModel(p *plan.Plan) *planModel {
	return &planModel{
		Code:             p.Code,
		Name:             p.Name,
		Description:      p.Description,
		PriceAmount:      p.Price.Amount,
		PriceCurrency:    p.Price.Currency,
		DailyStoryLimit:  p.DailyStoryLimit,
		MaxChildProfiles: p.MaxChildProfiles,
		Features:         encodeJSON(p.Features.Strings(), "[]"),
		Active:           p.Active,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func fromPlanModel(m *planModel) (*plan.Plan, error) {
	var names []plan.Feature
	if err := decodeJSON(m.Features, &names); err != nil {
		return nil, fmt.Errorf("plan %s features: %w", m.Code, err)
	}

	return &plan.Plan{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Code:             m.Code,
		Name:             m.Name,
		Description:      m.Description,
		Price:            types.Cents(m.PriceAmount, m.PriceCurrency),
		DailyStoryLimit:  m.DailyStoryLimit,
		MaxChildProfiles: m.MaxChildProfiles,
		Features:         plan.NewFeatureSet(names...),
		Active:           m.Active,
	}, nil
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:rewards_subscriptions"`

	UserID                string     `grove:"user_id,pk"`
	ID                    string     `grove:"id"`
	PlanCode              string     `grove:"plan_code"`
	Status                string     `grove:"status"`
	StartDate             string     `grove:"start_date"`
	ExpiryDate            string     `grove:"expiry_date"`
	NextBillingDate       string     `grove:"next_billing_date"`
	StoriesGeneratedToday int        `grove:"stories_generated_today"`
	LastStoryDate         string     `grove:"last_story_date"`
	PaymentTransactionID  string     `grove:"payment_transaction_id"`
	AutoRenew             bool       `grove:"auto_renew"`
	CancelledAt           *time.Time `grove:"cancelled_at"`
	CancellationReason    string     `grove:"cancellation_reason"`
	CreatedAt             time.Time  `grove:"created_at"`
	UpdatedAt             time.Time  `grove:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		UserID:                s.UserID,
		ID:                    s.ID.String(),
		PlanCode:              s.PlanCode,
		Status:                string(s.Status),
		StartDate:             types.FormatDate(s.StartDate),
		ExpiryDate:            types.FormatDate(s.ExpiryDate),
		NextBillingDate:       types.FormatDate(s.NextBillingDate),
		StoriesGeneratedToday: s.StoriesGeneratedToday,
		LastStoryDate:         types.FormatDate(s.LastStoryDate),
		PaymentTransactionID:  s.PaymentTransactionID,
		AutoRenew:             s.AutoRenew,
		CancelledAt:           s.CancelledAt,
		CancellationReason:    s.CancellationReason,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, err
	}

	dates := make([]*types.Date, 4)
	for i, s := range []string{m.StartDate, m.ExpiryDate, m.NextBillingDate, m.LastStoryDate} {
		if dates[i], err = types.ParseOptionalDate(s); err != nil {
			return nil, err
		}
	}

	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                    subID,
		UserID:                m.UserID,
		PlanCode:              m.PlanCode,
		Status:                subscription.Status(m.Status),
		StartDate:             dates[0],
		ExpiryDate:            dates[1],
		NextBillingDate:       dates[2],
		StoriesGeneratedToday: m.StoriesGeneratedToday,
		LastStoryDate:         dates[3],
		PaymentTransactionID:  m.PaymentTransactionID,
		AutoRenew:             m.AutoRenew,
		CancelledAt:           m.CancelledAt,
		CancellationReason:    m.CancellationReason,
	}, nil
}

// ==================== Premium models ====================

type membershipModel struct {
	grove.BaseModel `grove:"table:rewards_premium_memberships"`

	UserID    string     `grove:"user_id,pk"`
	Premium   bool       `grove:"premium"`
	Duration  string     `grove:"duration"`
	ExpiresAt *time.Time `grove:"expires_at"`
	CreatedAt time.Time  `grove:"created_at"`
	UpdatedAt time.Time  `grove:"updated_at"`
}

func toMembershipModel(m *premium.Membership) *membershipModel {
	return &membershipModel{
		UserID:    m.UserID,
		Premium:   m.Premium,
		Duration:  string(m.Duration),
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func fromMembershipModel(m *membershipModel) *premium.Membership {
	return &premium.Membership{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		UserID:    m.UserID,
		Premium:   m.Premium,
		Duration:  premium.Duration(m.Duration),
		ExpiresAt: m.ExpiresAt,
	}
}

// ==================== Ad reward models ====================

type impressionModel struct {
	grove.BaseModel `grove:"table:rewards_ad_impressions"`

	ID             string    `grove:"id,pk"`
	UserID         string    `grove:"user_id"`
	AdType         string    `grove:"ad_type"`
	Placement      string    `grove:"placement"`
	CreditsAwarded int64     `grove:"credits_awarded"`
	WatchedAt      time.Time `grove:"watched_at"`
}

func toImpressionModel(imp *adreward.Impression) *impressionModel {
	return &impressionModel{
		ID:             imp.ID.String(),
		UserID:         imp.UserID,
		AdType:         string(imp.AdType),
		Placement:      imp.Placement,
		CreditsAwarded: imp.CreditsAwarded,
		WatchedAt:      imp.WatchedAt,
	}
}

func fromImpressionModel(m *impressionModel) (*adreward.Impression, error) {
	impID, err := id.ParseAdImpressionID(m.ID)
	if err != nil {
		return nil, err
	}
	return &adreward.Impression{
		ID:             impID,
		UserID:         m.UserID,
		AdType:         adreward.AdType(m.AdType),
		Placement:      m.Placement,
		CreditsAwarded: m.CreditsAwarded,
		WatchedAt:      m.WatchedAt,
	}, nil
}
