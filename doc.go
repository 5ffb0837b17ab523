// Package rewards provides the monetization engine of a children's story
// app: a credit ledger, a daily streak tracker, a daily story quota gate and
// a plan entitlement resolver.
//
// Rewards is designed as a library, not a service. Import it directly into
// your Go application and back it with one of the stores under store/:
//
//   - Credit balances that never go negative, with an append-only history
//   - Streaks of consecutive days with milestone bonuses
//   - One free story per day, further stories unlocked with credits
//   - Plans with daily story limits, child profiles and feature flags
//   - Premium memberships and rewarded ads
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/rewards"
//	    "github.com/xraph/rewards/store/memory"
//	)
//
//	e := rewards.New(memory.New())
//	if err := e.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Stop()
//
// # Core Concepts
//
// Credits are earned and spent through the ledger. A spend that exceeds the
// balance fails with ErrInsufficientBalance and changes nothing:
//
//	acct, err := e.Earn(ctx, userID, 20, credit.CategoryAdReward, "Watched an ad", nil)
//	acct, err = e.Spend(ctx, userID, 100, credit.CategoryStoryUnlock, "Unlocked a story", nil)
//
// A completed story advances the streak at most once per calendar day and
// credits the completion and milestone bonuses:
//
//	res, err := e.RecordCompletion(ctx, userID)
//
// The quota gate answers whether a story may be created today:
//
//	access, err := e.CheckAccess(ctx, userID)
//	if access.Allowed {
//	    err = e.RecordCreation(ctx, userID, false)
//	} else {
//	    acct, err = e.UnlockStory(ctx, userID)
//	}
//
// Plans bound by subscriptions cap stories per day and gate features:
//
//	ok, err := e.CanGenerateStory(ctx, userID)
//	ok, err = e.HasFeatureAccess(ctx, userID, "pdf_download")
//
// CommitStory combines both: a paid plan with capacity left covers the
// story, otherwise the quota gate decides, optionally paying with credits.
//
//	d, err := e.CommitStory(ctx, userID, true)
//
// # Calendar days
//
// Day boundaries come from the engine clock in its configured location
// (WithClock, WithLocation). Tests drive days forward with types.FixedClock.
//
// # Consistency
//
// Every mutating operation runs in one store transaction. Plugin hooks fire
// after the transaction commits and never fail the caller.
package rewards
