package rewards

import (
	"context"
	"fmt"

	"github.com/xraph/rewards/adreward"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/id"
	"github.com/xraph/rewards/store"
)

// ──────────────────────────────────────────────────
// Ad rewards
// ──────────────────────────────────────────────────

// RecordAdImpression logs a watched ad and credits the reward configured for
// its type. Interstitials are logged without a credit.
func (e *Engine) RecordAdImpression(ctx context.Context, userID string, adType adreward.AdType, placement string) (*adreward.Impression, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	t, ok := adreward.ParseAdType(string(adType))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdType, adType)
	}

	reward := e.adRewards.For(t)
	imp := &adreward.Impression{
		ID:             id.NewAdImpressionID(),
		UserID:         userID,
		AdType:         t,
		Placement:      placement,
		CreditsAwarded: reward,
		WatchedAt:      e.now(),
	}

	err := e.inTx(ctx, func(ctx context.Context, tx store.Tx, ev *pending) error {
		if reward > 0 {
			meta := map[string]string{"ad_type": string(t)}
			if placement != "" {
				meta["placement"] = placement
			}
			desc := fmt.Sprintf("Earned credits via %s ad", t)
			if _, err := e.earn(ctx, tx, ev, userID, reward, credit.CategoryAdReward, desc, meta); err != nil {
				return err
			}
		}
		if err := tx.CreateImpression(ctx, imp); err != nil {
			return err
		}
		ev.add(func(ctx context.Context) { e.plugins.EmitAdImpression(ctx, imp) })
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("ad impression recorded",
		"user_id", userID,
		"ad_type", t,
		"credits", reward,
	)
	return imp, nil
}

// AdImpressions returns the user's impressions, newest first. A limit of
// zero returns every impression.
func (e *Engine) AdImpressions(ctx context.Context, userID string, limit int) ([]*adreward.Impression, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return e.store.ListImpressions(ctx, userID, limit)
}
