package extension

import (
	"context"
	"testing"

	"github.com/robfig/cron/v3"

	"github.com/xraph/rewards/store/memory"
)

func TestMergeWithDefaults(t *testing.T) {
	got := mergeWithDefaults(Config{UnlockCost: 50})
	want := DefaultConfig()
	want.UnlockCost = 50
	if got != want {
		t.Errorf("mergeWithDefaults = %+v, want %+v", got, want)
	}
}

func TestMergeConfigurations(t *testing.T) {
	tests := []struct {
		name         string
		yaml, prog   Config
		wantDriver   string
		wantCost     int64
		wantMigrate  bool
		wantTimezone string
	}{
		{
			name:         "yaml wins",
			yaml:         Config{Driver: DriverSQLite, UnlockCost: 80, Timezone: "Europe/Berlin"},
			prog:         Config{Driver: DriverPostgres, UnlockCost: 40},
			wantDriver:   DriverSQLite,
			wantCost:     80,
			wantTimezone: "Europe/Berlin",
		},
		{
			name:         "programmatic fills gaps",
			yaml:         Config{},
			prog:         Config{Driver: DriverMongo, UnlockCost: 40, DisableMigrate: true},
			wantDriver:   DriverMongo,
			wantCost:     40,
			wantMigrate:  true,
			wantTimezone: "UTC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeConfigurations(tt.yaml, tt.prog)
			if got.Driver != tt.wantDriver {
				t.Errorf("Driver = %q, want %q", got.Driver, tt.wantDriver)
			}
			if got.UnlockCost != tt.wantCost {
				t.Errorf("UnlockCost = %d, want %d", got.UnlockCost, tt.wantCost)
			}
			if got.DisableMigrate != tt.wantMigrate {
				t.Errorf("DisableMigrate = %v, want %v", got.DisableMigrate, tt.wantMigrate)
			}
			if got.Timezone != tt.wantTimezone {
				t.Errorf("Timezone = %q, want %q", got.Timezone, tt.wantTimezone)
			}
		})
	}
}

func TestDefaultExpiryScheduleParses(t *testing.T) {
	if _, err := cron.ParseStandard(DefaultConfig().ExpirySchedule); err != nil {
		t.Fatalf("default schedule: %v", err)
	}
	if (Config{ExpirySchedule: "-"}).sweepEnabled() {
		t.Error(`"-" should disable the sweep`)
	}
}

func TestBuildStore(t *testing.T) {
	e := New(WithDriver(DriverPostgres))
	if _, err := e.buildStore(); err == nil {
		t.Error("expected an error for postgres without a grove database")
	}

	e = New()
	e.config = mergeWithDefaults(e.config)
	s, err := e.buildStore()
	if err != nil {
		t.Fatalf("buildStore: %v", err)
	}
	if _, ok := s.(*memory.Store); !ok {
		t.Errorf("store = %T, want *memory.Store", s)
	}
}

func TestInitBuildsEngine(t *testing.T) {
	s := memory.New()
	e := New(WithStore(s), WithTimezone("America/Los_Angeles"), WithUnlockCost(30), WithDisableSeed())
	e.config = mergeWithDefaults(e.config)

	if err := e.init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if e.Engine() == nil {
		t.Fatal("engine not built")
	}
	if e.Engine().Store() != s {
		t.Error("engine does not use the configured store")
	}
	if e.loc.String() != "America/Los_Angeles" {
		t.Errorf("location = %s", e.loc)
	}
	if err := e.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}
}

func TestInitRejectsUnknownTimezone(t *testing.T) {
	e := New(WithTimezone("Nowhere/Atlantis"))
	e.config = mergeWithDefaults(e.config)
	if err := e.init(); err == nil {
		t.Fatal("expected timezone error")
	}
}

func TestStartWithDisableMigrateSeeds(t *testing.T) {
	e := New(WithStore(memory.New()), WithDisableMigrate(), WithExpirySchedule("-"))
	e.config = mergeWithDefaults(e.config)
	if err := e.init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = e.Stop(ctx) })

	plans, err := e.Engine().ListPlans(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(plans) == 0 {
		t.Error("catalog not seeded with migrations disabled")
	}
}
