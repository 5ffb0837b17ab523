package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"

	// Registers the "pg" migration executor.
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate"
)

// Migrations is the grove migration group for the rewards store.
var Migrations = migrate.NewGroup("rewards")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_rewards_credit_accounts",
			Version: "20260301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rewards_credit_accounts (
    user_id         TEXT PRIMARY KEY,
    balance         BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    lifetime_earned BIGINT NOT NULL DEFAULT 0,
    lifetime_spent  BIGINT NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rewards_credit_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rewards_credit_transactions",
			Version: "20260301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rewards_credit_transactions (
    id            TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    amount        BIGINT NOT NULL,
    category      TEXT NOT NULL DEFAULT '',
    description   TEXT NOT NULL DEFAULT '',
    metadata      JSONB,
    balance_after BIGINT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rewards_txn_user_created ON rewards_credit_transactions (user_id, created_at DESC);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rewards_credit_transactions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rewards_streaks",
			Version: "20260301000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rewards_streaks (
    user_id            TEXT PRIMARY KEY,
    current_streak     INT NOT NULL DEFAULT 0,
    longest_streak     INT NOT NULL DEFAULT 0,
    last_activity_date DATE,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rewards_streaks`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rewards_daily_usage",
			Version: "20260301000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rewards_daily_usage (
    user_id                 TEXT NOT NULL,
    usage_date              DATE NOT NULL,
    free_stories_used       INT NOT NULL DEFAULT 0,
    credit_stories_unlocked INT NOT NULL DEFAULT 0,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, usage_date)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rewards_daily_usage`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rewards_plans",
			Version: "20260301000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rewards_plans (
    code               TEXT PRIMARY KEY,
    name               TEXT NOT NULL DEFAULT '',
    description        TEXT NOT NULL DEFAULT '',
    price_amount       BIGINT NOT NULL DEFAULT 0,
    price_currency     TEXT NOT NULL DEFAULT 'usd',
    daily_story_limit  INT NOT NULL DEFAULT 1,
    max_child_profiles INT NOT NULL DEFAULT 1,
    features           JSONB NOT NULL DEFAULT '[]',
    active             BOOLEAN NOT NULL DEFAULT TRUE,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rewards_plans`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rewards_subscriptions",
			Version: "20260301000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rewards_subscriptions (
    user_id                 TEXT PRIMARY KEY,
    id                      TEXT NOT NULL UNIQUE,
    plan_code               TEXT NOT NULL,
    status                  TEXT NOT NULL DEFAULT 'active',
    start_date              DATE,
    expiry_date             DATE,
    next_billing_date       DATE,
    stories_generated_today INT NOT NULL DEFAULT 0,
    last_story_date         DATE,
    payment_transaction_id  TEXT NOT NULL DEFAULT '',
    auto_renew              BOOLEAN NOT NULL DEFAULT FALSE,
    cancelled_at            TIMESTAMPTZ,
    cancellation_reason     TEXT NOT NULL DEFAULT '',
    created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rewards_subs_expiry ON rewards_subscriptions (status, auto_renew, expiry_date);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rewards_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rewards_premium_memberships",
			Version: "20260301000007",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rewards_premium_memberships (
    user_id    TEXT PRIMARY KEY,
    premium    BOOLEAN NOT NULL DEFAULT FALSE,
    duration   TEXT NOT NULL DEFAULT '',
    expires_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rewards_premium_memberships`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rewards_ad_impressions",
			Version: "20260301000008",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rewards_ad_impressions (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    ad_type         TEXT NOT NULL,
    placement       TEXT NOT NULL DEFAULT '',
    credits_awarded BIGINT NOT NULL DEFAULT 0,
    watched_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rewards_ads_user_watched ON rewards_ad_impressions (user_id, watched_at DESC);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rewards_ad_impressions`)
				return err
			},
		},
	)
}
