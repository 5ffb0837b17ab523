package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/rewards/adreward"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/entitlement"
	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/premium"
	"github.com/xraph/rewards/quota"
	"github.com/xraph/rewards/streak"
	"github.com/xraph/rewards/subscription"
)

// DefaultHookTimeout bounds a single hook call.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so emitting an event only visits the plugins
// that implement its hook.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                  []OnInit
	onShutdown              []OnShutdown
	onCreditsEarned         []OnCreditsEarned
	onCreditsSpent          []OnCreditsSpent
	onInsufficientBalance   []OnInsufficientBalance
	onStreakUpdated         []OnStreakUpdated
	onStreakMilestone       []OnStreakMilestone
	onAccessChecked         []OnAccessChecked
	onStoryCreationRecorded []OnStoryCreationRecorded
	onStoryUnlocked         []OnStoryUnlocked
	onStoryCommitted        []OnStoryCommitted
	onDailyLimitReached     []OnDailyLimitReached
	onSubscribed            []OnSubscribed
	onSubscriptionCanceled  []OnSubscriptionCanceled
	onSubscriptionExpired   []OnSubscriptionExpired
	onPremiumUpgraded       []OnPremiumUpgraded
	onAdImpression          []OnAdImpression
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnCreditsEarned); ok {
		r.onCreditsEarned = append(r.onCreditsEarned, v)
	}
	if v, ok := p.(OnCreditsSpent); ok {
		r.onCreditsSpent = append(r.onCreditsSpent, v)
	}
	if v, ok := p.(OnInsufficientBalance); ok {
		r.onInsufficientBalance = append(r.onInsufficientBalance, v)
	}
	if v, ok := p.(OnStreakUpdated); ok {
		r.onStreakUpdated = append(r.onStreakUpdated, v)
	}
	if v, ok := p.(OnStreakMilestone); ok {
		r.onStreakMilestone = append(r.onStreakMilestone, v)
	}
	if v, ok := p.(OnAccessChecked); ok {
		r.onAccessChecked = append(r.onAccessChecked, v)
	}
	if v, ok := p.(OnStoryCreationRecorded); ok {
		r.onStoryCreationRecorded = append(r.onStoryCreationRecorded, v)
	}
	if v, ok := p.(OnStoryUnlocked); ok {
		r.onStoryUnlocked = append(r.onStoryUnlocked, v)
	}
	if v, ok := p.(OnStoryCommitted); ok {
		r.onStoryCommitted = append(r.onStoryCommitted, v)
	}
	if v, ok := p.(OnDailyLimitReached); ok {
		r.onDailyLimitReached = append(r.onDailyLimitReached, v)
	}
	if v, ok := p.(OnSubscribed); ok {
		r.onSubscribed = append(r.onSubscribed, v)
	}
	if v, ok := p.(OnSubscriptionCanceled); ok {
		r.onSubscriptionCanceled = append(r.onSubscriptionCanceled, v)
	}
	if v, ok := p.(OnSubscriptionExpired); ok {
		r.onSubscriptionExpired = append(r.onSubscriptionExpired, v)
	}
	if v, ok := p.(OnPremiumUpgraded); ok {
		r.onPremiumUpgraded = append(r.onPremiumUpgraded, v)
	}
	if v, ok := p.(OnAdImpression); ok {
		r.onAdImpression = append(r.onAdImpression, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeOf((*OnInit)(nil)).Elem()},
	{"OnShutdown", reflect.TypeOf((*OnShutdown)(nil)).Elem()},
	{"OnCreditsEarned", reflect.TypeOf((*OnCreditsEarned)(nil)).Elem()},
	{"OnCreditsSpent", reflect.TypeOf((*OnCreditsSpent)(nil)).Elem()},
	{"OnStreakUpdated", reflect.TypeOf((*OnStreakUpdated)(nil)).Elem()},
	{"OnStoryCommitted", reflect.TypeOf((*OnStoryCommitted)(nil)).Elem()},
	{"OnSubscribed", reflect.TypeOf((*OnSubscribed)(nil)).Elem()},
	{"OnPremiumUpgraded", reflect.TypeOf((*OnPremiumUpgraded)(nil)).Elem()},
	{"OnAdImpression", reflect.TypeOf((*OnAdImpression)(nil)).Elem()},
}

// implementedInterfaces lists the main hooks a plugin implements, for logging.
func implementedInterfaces(p Plugin) []string {
	var out []string
	t := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if t.Implements(h.typ) {
			out = append(out, h.name)
		}
	}
	return out
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit calls fn for every plugin in hooks. Failures are logged and never
// reach the caller.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, hooks []T, fn func(T) error) {
	for _, p := range hooks {
		if err := r.callWithTimeout(ctx, p.Name(), func() error { return fn(p) }); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// snapshot copies a hook list under the read lock.
func snapshot[T any](r *Registry, list *[]T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *list
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	emit(ctx, r, "OnInit", snapshot(r, &r.onInit), func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", snapshot(r, &r.onShutdown), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitCreditsEarned notifies OnCreditsEarned plugins.
func (r *Registry) EmitCreditsEarned(ctx context.Context, acct *credit.Account, txn *credit.Transaction) {
	emit(ctx, r, "OnCreditsEarned", snapshot(r, &r.onCreditsEarned), func(p OnCreditsEarned) error {
		return p.OnCreditsEarned(ctx, acct, txn)
	})
}

// EmitCreditsSpent notifies OnCreditsSpent plugins.
func (r *Registry) EmitCreditsSpent(ctx context.Context, acct *credit.Account, txn *credit.Transaction) {
	emit(ctx, r, "OnCreditsSpent", snapshot(r, &r.onCreditsSpent), func(p OnCreditsSpent) error {
		return p.OnCreditsSpent(ctx, acct, txn)
	})
}

// EmitInsufficientBalance notifies OnInsufficientBalance plugins.
func (r *Registry) EmitInsufficientBalance(ctx context.Context, userID string, requested, balance int64) {
	emit(ctx, r, "OnInsufficientBalance", snapshot(r, &r.onInsufficientBalance), func(p OnInsufficientBalance) error {
		return p.OnInsufficientBalance(ctx, userID, requested, balance)
	})
}

// EmitStreakUpdated notifies OnStreakUpdated plugins.
func (r *Registry) EmitStreakUpdated(ctx context.Context, result *streak.Result) {
	emit(ctx, r, "OnStreakUpdated", snapshot(r, &r.onStreakUpdated), func(p OnStreakUpdated) error {
		return p.OnStreakUpdated(ctx, result)
	})
}

// EmitStreakMilestone notifies OnStreakMilestone plugins.
func (r *Registry) EmitStreakMilestone(ctx context.Context, userID string, days int, bonus int64) {
	emit(ctx, r, "OnStreakMilestone", snapshot(r, &r.onStreakMilestone), func(p OnStreakMilestone) error {
		return p.OnStreakMilestone(ctx, userID, days, bonus)
	})
}

// EmitAccessChecked notifies OnAccessChecked plugins.
func (r *Registry) EmitAccessChecked(ctx context.Context, userID string, access quota.Access) {
	emit(ctx, r, "OnAccessChecked", snapshot(r, &r.onAccessChecked), func(p OnAccessChecked) error {
		return p.OnAccessChecked(ctx, userID, access)
	})
}

// EmitStoryCreationRecorded notifies OnStoryCreationRecorded plugins.
func (r *Registry) EmitStoryCreationRecorded(ctx context.Context, usage *quota.DailyUsage, usedCredits bool) {
	emit(ctx, r, "OnStoryCreationRecorded", snapshot(r, &r.onStoryCreationRecorded), func(p OnStoryCreationRecorded) error {
		return p.OnStoryCreationRecorded(ctx, usage, usedCredits)
	})
}

// EmitStoryUnlocked notifies OnStoryUnlocked plugins.
func (r *Registry) EmitStoryUnlocked(ctx context.Context, userID string, cost int64) {
	emit(ctx, r, "OnStoryUnlocked", snapshot(r, &r.onStoryUnlocked), func(p OnStoryUnlocked) error {
		return p.OnStoryUnlocked(ctx, userID, cost)
	})
}

// EmitStoryCommitted notifies OnStoryCommitted plugins.
func (r *Registry) EmitStoryCommitted(ctx context.Context, userID string, decision *entitlement.Decision) {
	emit(ctx, r, "OnStoryCommitted", snapshot(r, &r.onStoryCommitted), func(p OnStoryCommitted) error {
		return p.OnStoryCommitted(ctx, userID, decision)
	})
}

// EmitDailyLimitReached notifies OnDailyLimitReached plugins.
func (r *Registry) EmitDailyLimitReached(ctx context.Context, userID, planCode string, limit int) {
	emit(ctx, r, "OnDailyLimitReached", snapshot(r, &r.onDailyLimitReached), func(p OnDailyLimitReached) error {
		return p.OnDailyLimitReached(ctx, userID, planCode, limit)
	})
}

// EmitSubscribed notifies OnSubscribed plugins.
func (r *Registry) EmitSubscribed(ctx context.Context, sub *subscription.Subscription, pl *plan.Plan) {
	emit(ctx, r, "OnSubscribed", snapshot(r, &r.onSubscribed), func(p OnSubscribed) error {
		return p.OnSubscribed(ctx, sub, pl)
	})
}

// EmitSubscriptionCanceled notifies OnSubscriptionCanceled plugins.
func (r *Registry) EmitSubscriptionCanceled(ctx context.Context, sub *subscription.Subscription) {
	emit(ctx, r, "OnSubscriptionCanceled", snapshot(r, &r.onSubscriptionCanceled), func(p OnSubscriptionCanceled) error {
		return p.OnSubscriptionCanceled(ctx, sub)
	})
}

// EmitSubscriptionExpired notifies OnSubscriptionExpired plugins.
func (r *Registry) EmitSubscriptionExpired(ctx context.Context, sub *subscription.Subscription) {
	emit(ctx, r, "OnSubscriptionExpired", snapshot(r, &r.onSubscriptionExpired), func(p OnSubscriptionExpired) error {
		return p.OnSubscriptionExpired(ctx, sub)
	})
}

// EmitPremiumUpgraded notifies OnPremiumUpgraded plugins.
func (r *Registry) EmitPremiumUpgraded(ctx context.Context, m *premium.Membership) {
	emit(ctx, r, "OnPremiumUpgraded", snapshot(r, &r.onPremiumUpgraded), func(p OnPremiumUpgraded) error {
		return p.OnPremiumUpgraded(ctx, m)
	})
}

// EmitAdImpression notifies OnAdImpression plugins.
func (r *Registry) EmitAdImpression(ctx context.Context, imp *adreward.Impression) {
	emit(ctx, r, "OnAdImpression", snapshot(r, &r.onAdImpression), func(p OnAdImpression) error {
		return p.OnAdImpression(ctx, imp)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the rewards pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
