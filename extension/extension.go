// Package extension provides the Forge extension adapter for the rewards
// engine.
//
// It implements the forge.Extension interface to integrate the engine
// into a Forge application with DI registration, a scheduled subscription
// expiry sweep and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.rewards" or "rewards" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/rewards"
	"github.com/xraph/rewards/store"
	"github.com/xraph/rewards/store/memory"
	mongostore "github.com/xraph/rewards/store/mongo"
	pgstore "github.com/xraph/rewards/store/postgres"
	sqlitestore "github.com/xraph/rewards/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "rewards"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Credits, streaks, daily quotas and plan entitlements for story apps"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// sweepTimeout bounds one run of the expiry sweep.
const sweepTimeout = 5 * time.Minute

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the rewards engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *rewards.Engine
	store      store.Store
	groveDB    *grove.DB
	engineOpts []rewards.Option
	scheduler  *cron.Cron
	loc        *time.Location
}

// New creates a new rewards Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying rewards engine.
// This is nil until Register is called.
func (e *Extension) Engine() *rewards.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the rewards engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.init(); err != nil {
		return err
	}

	return vessel.Provide(fapp.Container(), func() (*rewards.Engine, error) {
		return e.engine, nil
	})
}

// init resolves the store and builds the engine from the resolved config.
func (e *Extension) init() error {
	loc, err := time.LoadLocation(e.config.Timezone)
	if err != nil {
		return fmt.Errorf("rewards: timezone %q: %w", e.config.Timezone, err)
	}
	e.loc = loc

	if e.store == nil {
		s, err := e.buildStore()
		if err != nil {
			return err
		}
		e.store = s
	}

	e.engine = rewards.New(e.store, e.buildEngineOpts()...)
	return nil
}

// buildStore picks the store backend for the configured driver.
func (e *Extension) buildStore() (store.Store, error) {
	if e.groveDB == nil {
		if e.config.Driver != "" && e.config.Driver != DriverMemory {
			return nil, fmt.Errorf("rewards: driver %q needs a grove database; use WithGroveDB", e.config.Driver)
		}
		return memory.New(), nil
	}

	switch e.config.Driver {
	case DriverPostgres, "pg":
		return pgstore.New(e.groveDB), nil
	case DriverSQLite:
		return sqlitestore.New(e.groveDB), nil
	case DriverMongo, "mongodb":
		return mongostore.New(e.groveDB), nil
	default:
		return nil, fmt.Errorf("rewards: unsupported driver %q for grove database", e.config.Driver)
	}
}

// buildEngineOpts constructs rewards.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []rewards.Option {
	opts := make([]rewards.Option, 0, len(e.engineOpts)+5)

	opts = append(opts,
		rewards.WithLocation(e.loc),
		rewards.WithUnlockCost(e.config.UnlockCost),
		rewards.WithFreeStoriesPerDay(e.config.FreeStoriesPerDay),
	)
	if e.config.DisableMigrate {
		opts = append(opts, rewards.WithoutMigrate())
	}
	if e.config.DisableSeed {
		opts = append(opts, rewards.WithoutCatalogSeed())
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("rewards: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	if e.config.sweepEnabled() {
		if err := e.startSweep(); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// startSweep schedules ExpireSubscriptions on the configured cron expression.
func (e *Extension) startSweep() error {
	c := cron.New(cron.WithLocation(e.loc))
	if _, err := c.AddFunc(e.config.ExpirySchedule, e.sweep); err != nil {
		return fmt.Errorf("rewards: expiry schedule %q: %w", e.config.ExpirySchedule, err)
	}
	c.Start()
	e.scheduler = c

	e.Logger().Debug("rewards: expiry sweep scheduled",
		forge.F("schedule", e.config.ExpirySchedule),
	)
	return nil
}

func (e *Extension) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := e.engine.ExpireSubscriptions(ctx)
	if err != nil {
		e.Logger().Warn("rewards: expiry sweep failed",
			forge.F("error", err.Error()),
		)
		return
	}
	if n > 0 {
		e.Logger().Info("rewards: subscriptions expired",
			forge.F("count", n),
		)
	}
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(ctx context.Context) error {
	if e.scheduler != nil {
		select {
		case <-e.scheduler.Stop().Done():
		case <-ctx.Done():
		}
		e.scheduler = nil
	}

	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("rewards: store not initialized")
	}
	return e.store.Ping(ctx)
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("rewards: configuration is required but not found in config files; " +
				"ensure 'extensions.rewards' or 'rewards' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("rewards: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("disable_seed", e.config.DisableSeed),
		forge.F("driver", e.config.Driver),
		forge.F("timezone", e.config.Timezone),
		forge.F("unlock_cost", e.config.UnlockCost),
		forge.F("free_stories_per_day", e.config.FreeStoriesPerDay),
		forge.F("expiry_schedule", e.config.ExpirySchedule),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.rewards", "rewards"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("rewards: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("rewards: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Driver == "" {
		cfg.Driver = defaults.Driver
	}
	if cfg.Timezone == "" {
		cfg.Timezone = defaults.Timezone
	}
	if cfg.UnlockCost == 0 {
		cfg.UnlockCost = defaults.UnlockCost
	}
	if cfg.FreeStoriesPerDay == 0 {
		cfg.FreeStoriesPerDay = defaults.FreeStoriesPerDay
	}
	if cfg.ExpirySchedule == "" {
		cfg.ExpirySchedule = defaults.ExpirySchedule
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableSeed {
		yamlConfig.DisableSeed = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Driver == "" {
		yamlConfig.Driver = programmaticConfig.Driver
	}
	if yamlConfig.Timezone == "" {
		yamlConfig.Timezone = programmaticConfig.Timezone
	}
	if yamlConfig.ExpirySchedule == "" {
		yamlConfig.ExpirySchedule = programmaticConfig.ExpirySchedule
	}

	// Numeric fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.UnlockCost == 0 {
		yamlConfig.UnlockCost = programmaticConfig.UnlockCost
	}
	if yamlConfig.FreeStoriesPerDay == 0 {
		yamlConfig.FreeStoriesPerDay = programmaticConfig.FreeStoriesPerDay
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
