package rewards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xraph/rewards/adreward"
	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/plugin"
	"github.com/xraph/rewards/premium"
	"github.com/xraph/rewards/quota"
	"github.com/xraph/rewards/store"
	"github.com/xraph/rewards/types"
)

// Engine is the rewards and entitlement engine: credit ledger, streak
// tracker, daily quota gate and plan resolver over one transactional store.
//
// Every mutating call runs in a single store transaction. Rows are locked in
// the order subscription, daily usage, account, streak so that concurrent
// calls for one user cannot deadlock.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   types.Clock
	loc     *time.Location

	premium     premium.Resolver
	unlockCost  int64
	freePerDay  int
	adRewards   adreward.Rewards
	catalog     []*plan.Plan
	seedCatalog bool
	migrate     bool
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       s,
		plugins:     plugin.NewRegistry(),
		logger:      slog.Default(),
		clock:       types.SystemClock{},
		loc:         time.UTC,
		unlockCost:  quota.UnlockCost,
		freePerDay:  quota.FreeStoriesPerDay,
		adRewards:   adreward.DefaultRewards(),
		seedCatalog: true,
		migrate:     true,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.premium == nil {
		e.premium = premium.ResolverFunc(e.membershipPremium)
	}
	if e.catalog == nil {
		e.catalog = plan.DefaultCatalog(e.now())
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock sets the source of the current time. Day boundaries are derived
// from it in the engine's location.
func WithClock(c types.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLocation sets the time zone that defines calendar days. Default UTC.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithPremiumResolver replaces the membership-based premium check.
func WithPremiumResolver(r premium.Resolver) Option {
	return func(e *Engine) { e.premium = r }
}

// WithUnlockCost sets the credit price of a story beyond the free allowance.
func WithUnlockCost(cost int64) Option {
	return func(e *Engine) {
		if cost > 0 {
			e.unlockCost = cost
		}
	}
}

// WithFreeStoriesPerDay sets the daily free allowance of the quota gate.
func WithFreeStoriesPerDay(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.freePerDay = n
		}
	}
}

// WithAdRewards overrides credits per ad type. Types missing from r keep
// their default.
func WithAdRewards(r adreward.Rewards) Option {
	return func(e *Engine) {
		for t, v := range r {
			e.adRewards[t] = v
		}
	}
}

// WithPlanCatalog replaces the plans seeded on Start.
func WithPlanCatalog(plans ...*plan.Plan) Option {
	return func(e *Engine) { e.catalog = plans }
}

// WithoutCatalogSeed disables plan seeding on Start.
func WithoutCatalogSeed() Option {
	return func(e *Engine) { e.seedCatalog = false }
}

// WithoutMigrate makes Start skip store migrations. Seeding and plugin
// initialization still run, so the schema must already exist.
func WithoutMigrate() Option {
	return func(e *Engine) { e.migrate = false }
}

// Start migrates the store unless WithoutMigrate was given, seeds missing
// catalog plans and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if e.migrate {
		if err := e.store.Migrate(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}

	if e.seedCatalog {
		if err := e.seedPlans(ctx); err != nil {
			return err
		}
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("rewards engine started",
		"location", e.loc.String(),
		"unlock_cost", e.unlockCost,
		"free_stories_per_day", e.freePerDay,
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop notifies plugins and closes the store.
func (e *Engine) Stop() error {
	e.plugins.EmitShutdown(context.Background())
	return e.store.Close()
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Today returns the current calendar day in the engine's location.
func (e *Engine) Today() types.Date { return types.DateOf(e.clock.Now(), e.loc) }

func (e *Engine) now() time.Time { return e.clock.Now().UTC() }

func (e *Engine) seedPlans(ctx context.Context) error {
	for _, p := range e.catalog {
		_, err := e.store.GetPlan(ctx, p.Code)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrPlanNotFound) {
			return err
		}
		if err := e.store.SavePlan(ctx, p); err != nil {
			return fmt.Errorf("rewards: seed plan %s: %w", p.Code, err)
		}
		e.logger.Debug("plan seeded", "code", p.Code)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

// pending collects hook calls that run once the transaction commits.
type pending []func(ctx context.Context)

func (p *pending) add(fn func(ctx context.Context)) { *p = append(*p, fn) }

// inTx runs fn in a store transaction and fires the hooks it queued after
// a successful commit. Backends may retry fn, so the queue restarts on
// every attempt.
func (e *Engine) inTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx, ev *pending) error) error {
	var ev pending
	err := e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		ev = ev[:0]
		return fn(ctx, tx, &ev)
	})
	if err != nil {
		return err
	}
	for _, fire := range ev {
		fire(ctx)
	}
	return nil
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ValidationError{Field: "user_id", Message: "must not be empty"}
	}
	return nil
}
