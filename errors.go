package rewards

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("rewards: not found")
	ErrInvalidInput = errors.New("rewards: invalid input")
	ErrConflict     = errors.New("rewards: concurrent update conflict")

	// Ledger errors
	ErrInvalidAmount       = errors.New("rewards: amount must be positive")
	ErrInsufficientBalance = errors.New("rewards: insufficient balance")
	ErrAccountNotFound     = errors.New("rewards: credit account not found")

	// Quota errors
	ErrPaymentRequired = errors.New("rewards: daily free stories used, credits required")

	// Plan errors
	ErrUnknownPlan          = errors.New("rewards: unknown plan")
	ErrInactivePlan         = errors.New("rewards: plan is not active")
	ErrPlanNotFound         = errors.New("rewards: plan not found")
	ErrSubscriptionNotFound = errors.New("rewards: subscription not found")

	// Premium errors
	ErrMembershipNotFound = errors.New("rewards: membership not found")
	ErrInvalidDuration    = errors.New("rewards: invalid premium duration")

	// Ad errors
	ErrUnknownAdType = errors.New("rewards: unknown ad type")

	// Store errors
	ErrStoreClosed     = errors.New("rewards: store is closed")
	ErrMigrationFailed = errors.New("rewards: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("rewards: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrMembershipNotFound)
}

// IsPaymentError returns true if the caller must earn or buy credits first.
func IsPaymentError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrPaymentRequired)
}

// IsPlanError returns true if the error concerns plan selection.
func IsPlanError(err error) bool {
	return errors.Is(err, ErrUnknownPlan) ||
		errors.Is(err, ErrInactivePlan)
}

// IsRetryable returns true if the error is a concurrent update conflict
// that outlived the store's own retries.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
