package rewards

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/rewards/credit"
	"github.com/xraph/rewards/id"
	"github.com/xraph/rewards/store"
)

// ──────────────────────────────────────────────────
// Credit ledger
// ──────────────────────────────────────────────────

// GetBalance returns the user's account, creating a zeroed one on first use.
func (e *Engine) GetBalance(ctx context.Context, userID string) (*credit.Account, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return e.store.GetOrCreateAccount(ctx, credit.NewAccount(userID, e.now()))
}

// Earn credits amount to the user and logs a positive transaction.
func (e *Engine) Earn(ctx context.Context, userID string, amount int64, category credit.Category, description string, metadata map[string]string) (*credit.Account, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var acct *credit.Account
	err := e.inTx(ctx, func(ctx context.Context, tx store.Tx, ev *pending) error {
		var err error
		acct, err = e.earn(ctx, tx, ev, userID, amount, category, description, metadata)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("credits earned",
		"user_id", userID,
		"amount", amount,
		"category", category,
		"balance", acct.Balance,
	)
	return acct, nil
}

// Spend deducts amount from the user and logs a negative transaction. It
// fails with ErrInsufficientBalance, without any deduction, when the balance
// cannot cover amount.
func (e *Engine) Spend(ctx context.Context, userID string, amount int64, category credit.Category, description string, metadata map[string]string) (*credit.Account, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var acct *credit.Account
	err := e.inTx(ctx, func(ctx context.Context, tx store.Tx, ev *pending) error {
		var err error
		acct, err = e.spend(ctx, tx, ev, userID, amount, category, description, metadata)
		return err
	})
	if err != nil {
		e.reportInsufficient(ctx, err, userID, amount, acct)
		return nil, err
	}

	e.logger.Debug("credits spent",
		"user_id", userID,
		"amount", amount,
		"category", category,
		"balance", acct.Balance,
	)
	return acct, nil
}

// GetHistory returns a page of the user's transactions, newest first.
func (e *Engine) GetHistory(ctx context.Context, userID string, opts credit.ListOpts) (*credit.Page, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	opts = opts.Normalize()

	txns, err := e.store.ListTransactions(ctx, userID, opts)
	if err != nil {
		return nil, err
	}
	total, err := e.store.CountTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &credit.Page{
		Transactions: txns,
		Total:        total,
		Limit:        opts.Limit,
		Offset:       opts.Offset,
	}, nil
}

// earn applies a credit inside tx.
func (e *Engine) earn(ctx context.Context, tx store.Tx, ev *pending, userID string, amount int64, category credit.Category, description string, metadata map[string]string) (*credit.Account, error) {
	acct, err := tx.GetOrCreateAccount(ctx, credit.NewAccount(userID, e.now()))
	if err != nil {
		return nil, err
	}

	now := e.now()
	acct.Earn(amount, now)
	if err := tx.UpdateAccount(ctx, acct); err != nil {
		return nil, err
	}

	txn := newTransaction(userID, amount, category, description, metadata, acct.Balance, now)
	if err := tx.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}

	snap := *acct
	ev.add(func(ctx context.Context) { e.plugins.EmitCreditsEarned(ctx, &snap, txn) })
	return acct, nil
}

// spend applies a debit inside tx. On ErrInsufficientBalance the returned
// account carries the balance that was too low.
func (e *Engine) spend(ctx context.Context, tx store.Tx, ev *pending, userID string, amount int64, category credit.Category, description string, metadata map[string]string) (*credit.Account, error) {
	acct, err := tx.GetOrCreateAccount(ctx, credit.NewAccount(userID, e.now()))
	if err != nil {
		return nil, err
	}

	now := e.now()
	if !acct.Spend(amount, now) {
		return acct, ErrInsufficientBalance
	}
	if err := tx.UpdateAccount(ctx, acct); err != nil {
		return nil, err
	}

	txn := newTransaction(userID, -amount, category, description, metadata, acct.Balance, now)
	if err := tx.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}

	snap := *acct
	ev.add(func(ctx context.Context) { e.plugins.EmitCreditsSpent(ctx, &snap, txn) })
	return acct, nil
}

func (e *Engine) reportInsufficient(ctx context.Context, err error, userID string, requested int64, acct *credit.Account) {
	if !errors.Is(err, ErrInsufficientBalance) {
		return
	}
	var balance int64
	if acct != nil {
		balance = acct.Balance
	}
	e.logger.Debug("insufficient balance",
		"user_id", userID,
		"requested", requested,
		"balance", balance,
	)
	e.plugins.EmitInsufficientBalance(ctx, userID, requested, balance)
}

func newTransaction(userID string, amount int64, category credit.Category, description string, metadata map[string]string, balanceAfter int64, now time.Time) *credit.Transaction {
	return &credit.Transaction{
		ID:           id.NewTransactionID(),
		UserID:       userID,
		Amount:       amount,
		Category:     category,
		Description:  description,
		Metadata:     metadata,
		BalanceAfter: balanceAfter,
		CreatedAt:    now,
	}
}
