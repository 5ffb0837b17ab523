package extension

import "github.com/xraph/rewards/quota"

// Store drivers understood by Config.Driver.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Config holds the rewards extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.rewards" or "rewards" keys).
type Config struct {
	// DisableMigrate skips store migrations on start. Catalog seeding and
	// plugin initialization still run.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DisableSeed keeps the default plan catalog out of the store.
	DisableSeed bool `json:"disable_seed" mapstructure:"disable_seed" yaml:"disable_seed"`

	// Driver selects the store backend built around the grove database
	// passed with WithGroveDB: "postgres", "sqlite" or "mongo". Without a
	// grove database the in-memory store is used (default: "memory").
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// Timezone is the IANA zone whose midnight starts a new day for quotas,
	// streaks and plan counters (default: "UTC").
	Timezone string `json:"timezone" mapstructure:"timezone" yaml:"timezone"`

	// UnlockCost is the credit price of a story beyond the free allowance
	// (default: 100).
	UnlockCost int64 `json:"unlock_cost" mapstructure:"unlock_cost" yaml:"unlock_cost"`

	// FreeStoriesPerDay is the daily free allowance of the quota gate
	// (default: 1).
	FreeStoriesPerDay int `json:"free_stories_per_day" mapstructure:"free_stories_per_day" yaml:"free_stories_per_day"`

	// ExpirySchedule is the cron expression of the subscription expiry
	// sweep. "-" disables the sweep (default: "5 0 * * *").
	ExpirySchedule string `json:"expiry_schedule" mapstructure:"expiry_schedule" yaml:"expiry_schedule"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:            DriverMemory,
		Timezone:          "UTC",
		UnlockCost:        quota.UnlockCost,
		FreeStoriesPerDay: quota.FreeStoriesPerDay,
		ExpirySchedule:    "5 0 * * *",
	}
}

// sweepEnabled reports whether the expiry sweep should be scheduled.
func (c Config) sweepEnabled() bool {
	return c.ExpirySchedule != "" && c.ExpirySchedule != "-"
}
