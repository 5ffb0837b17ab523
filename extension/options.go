package extension

import (
	"github.com/xraph/grove"

	"github.com/xraph/rewards"
	"github.com/xraph/rewards/plugin"
	"github.com/xraph/rewards/store"
)

// Option configures the rewards Forge extension.
type Option func(*Extension)

// WithStore sets the store for the rewards engine. It takes precedence over
// WithGroveDB.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB sets the grove database the store backend is built on. The
// backend is picked by Config.Driver.
func WithGroveDB(db *grove.DB) Option {
	return func(e *Extension) { e.groveDB = db }
}

// WithEngineOption passes a rewards.Option through to the underlying engine.
func WithEngineOption(opt rewards.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a rewards plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, rewards.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate skips store migrations on start. Plans are still
// seeded and plugins initialized.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithDisableSeed keeps the default plan catalog out of the store.
func WithDisableSeed() Option {
	return func(e *Extension) { e.config.DisableSeed = true }
}

// WithDriver selects the store backend built around the grove database.
func WithDriver(driver string) Option {
	return func(e *Extension) { e.config.Driver = driver }
}

// WithTimezone sets the IANA zone that defines calendar days.
func WithTimezone(tz string) Option {
	return func(e *Extension) { e.config.Timezone = tz }
}

// WithUnlockCost sets the credit price of a story beyond the free allowance.
func WithUnlockCost(cost int64) Option {
	return func(e *Extension) { e.config.UnlockCost = cost }
}

// WithFreeStoriesPerDay sets the daily free allowance.
func WithFreeStoriesPerDay(n int) Option {
	return func(e *Extension) { e.config.FreeStoriesPerDay = n }
}

// WithExpirySchedule sets the cron expression of the expiry sweep.
// Pass "-" to disable it.
func WithExpirySchedule(spec string) Option {
	return func(e *Extension) { e.config.ExpirySchedule = spec }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
