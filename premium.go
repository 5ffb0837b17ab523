package rewards

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/rewards/premium"
	"github.com/xraph/rewards/store"
)

// ──────────────────────────────────────────────────
// Premium membership
// ──────────────────────────────────────────────────

// UpgradePremium grants premium for the given duration. Buying again before
// the membership lapses extends it from its current expiry.
func (e *Engine) UpgradePremium(ctx context.Context, userID string, d premium.Duration) (*premium.Membership, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	parsed, ok := premium.ParseDuration(string(d))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDuration, d)
	}

	var m *premium.Membership
	err := e.inTx(ctx, func(ctx context.Context, tx store.Tx, ev *pending) error {
		var err error
		m, err = tx.GetOrCreateMembership(ctx, premium.NewMembership(userID, e.now()))
		if err != nil {
			return err
		}
		m.Upgrade(parsed, e.now())
		if err := tx.UpdateMembership(ctx, m); err != nil {
			return err
		}
		snap := *m
		ev.add(func(ctx context.Context) { e.plugins.EmitPremiumUpgraded(ctx, &snap) })
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("premium upgraded",
		"user_id", userID,
		"duration", parsed,
		"expires_at", m.ExpiresAt,
	)
	return m, nil
}

// PremiumStatus returns the user's membership. Users who never bought
// premium get a non-premium membership that is not stored.
func (e *Engine) PremiumStatus(ctx context.Context, userID string) (*premium.Membership, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	m, err := e.store.GetMembership(ctx, userID)
	if errors.Is(err, ErrMembershipNotFound) {
		return premium.NewMembership(userID, e.now()), nil
	}
	if err != nil {
		return nil, err
	}
	if !m.ActiveAt(e.now()) {
		m.Premium = false
	}
	return m, nil
}

// IsPremium asks the configured resolver whether the user holds premium.
func (e *Engine) IsPremium(ctx context.Context, userID string) (bool, error) {
	if err := requireUser(userID); err != nil {
		return false, err
	}
	return e.premium.IsPremium(ctx, userID)
}

// membershipPremium is the default resolver: premium while the stored
// membership is unexpired.
func (e *Engine) membershipPremium(ctx context.Context, userID string) (bool, error) {
	m, err := e.store.GetMembership(ctx, userID)
	if errors.Is(err, ErrMembershipNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.ActiveAt(e.now()), nil
}
