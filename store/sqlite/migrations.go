package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"

	// Registers the "sqlite" migration executor.
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate"
)

// Migrations is the grove migration group for the rewards store (SQLite).
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
    balance         INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
    lifetime_earned INTEGER NOT NULL DEFAULT 0,
    lifetime_spent  INTEGER NOT NULL DEFAULT 0,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
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
    amount        INTEGER NOT NULL,
    category      TEXT NOT NULL DEFAULT '',
    description   TEXT NOT NULL DEFAULT '',
    metadata      TEXT NOT NULL DEFAULT '{}',
    balance_after INTEGER NOT NULL,
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
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
    current_streak     INTEGER NOT NULL DEFAULT 0,
    longest_streak     INTEGER NOT NULL DEFAULT 0,
    last_activity_date TEXT NOT NULL DEFAULT '',
    created_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
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
    usage_date              TEXT NOT NULL,
    free_stories_used       INTEGER NOT NULL DEFAULT 0,
    credit_stories_unlocked INTEGER NOT NULL DEFAULT 0,
    created_at              TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at              TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
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
    price_amount       INTEGER NOT NULL DEFAULT 0,
    price_currency     TEXT NOT NULL DEFAULT 'usd',
    daily_story_limit  INTEGER NOT NULL DEFAULT 1,
    max_child_profiles INTEGER NOT NULL DEFAULT 1,
    features           TEXT NOT NULL DEFAULT '[]',
    active             INTEGER NOT NULL DEFAULT 1,
    created_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
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
    start_date              TEXT NOT NULL DEFAULT '',
    expiry_date             TEXT NOT NULL DEFAULT '',
    next_billing_date       TEXT NOT NULL DEFAULT '',
    stories_generated_today INTEGER NOT NULL DEFAULT 0,
    last_story_date         TEXT NOT NULL DEFAULT '',
    payment_transaction_id  TEXT NOT NULL DEFAULT '',
    auto_renew              INTEGER NOT NULL DEFAULT 0,
    cancelled_at            TIMESTAMP,
    cancellation_reason     TEXT NOT NULL DEFAULT '',
    created_at              TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at              TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
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
    premium    INTEGER NOT NULL DEFAULT 0,
    duration   TEXT NOT NULL DEFAULT '',
    expires_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
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
    credits_awarded INTEGER NOT NULL DEFAULT 0,
    watched_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
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
