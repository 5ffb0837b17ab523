// Package store aggregates the entity stores into one transactional backend.
package store

import (
	"context"

	"github.com/xraph/rewards/adreward"
	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/plan"
	"github.com/xraph/rewards/premium"
	"github.com/xraph/rewards/quota"
	"github.com/xraph/rewards/streak"
	"github.com/xraph/rewards/subscription"
)

// Tx is the set of entity stores. Method names are unique across the
// embedded interfaces.
type Tx interface {
	credit.Store
	streak.Store
	quota.Store
	plan.Store
	subscription.Store
	premium.Store
	adreward.Store
}

// TxFunc is the body of a transaction.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is the unified storage interface for all rewards entities. Calls
// made directly on the Store run in their own implicit transaction.
type Store interface {
	Tx

	// InTx runs fn in a single transaction. The getOrCreate methods of tx lock
	// the row they return until the transaction ends. A non-nil error from fn
	// rolls back every write made through tx. Calling InTx with a context
	// that already carries a transaction of the same store joins it.
	InTx(ctx context.Context, fn TxFunc) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
