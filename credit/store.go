package credit

import "context"

// Store persists accounts and their transactions.
type Store interface {
	// GetOrCreateAccount returns the account of def.UserID, inserting def when
	// none exists. Within a transaction the account stays locked until commit.
	GetOrCreateAccount(ctx context.Context, def *Account) (*Account, error)
	UpdateAccount(ctx context.Context, a *Account) error
	CreateTransaction(ctx context.Context, t *Transaction) error
	// ListTransactions returns history ordered by CreatedAt descending.
	ListTransactions(ctx context.Context, userID string, opts ListOpts) ([]*Transaction, error)
	CountTransactions(ctx context.Context, userID string) (int64, error)
}
