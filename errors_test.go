package rewards_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/rewards"
)

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		notFound  bool
		payment   bool
		planErr   bool
		retryable bool
	}{
		{name: "nil", err: nil},
		{name: "account not found", err: rewards.ErrAccountNotFound, notFound: true},
		{name: "wrapped plan not found", err: fmt.Errorf("load: %w", rewards.ErrPlanNotFound), notFound: true},
		{name: "membership not found", err: rewards.ErrMembershipNotFound, notFound: true},
		{name: "insufficient balance", err: rewards.ErrInsufficientBalance, payment: true},
		{name: "payment required", err: rewards.ErrPaymentRequired, payment: true},
		{name: "unknown plan", err: rewards.ErrUnknownPlan, planErr: true},
		{name: "inactive plan", err: rewards.ErrInactivePlan, planErr: true},
		{name: "conflict", err: fmt.Errorf("%w: serialization failure", rewards.ErrConflict), retryable: true},
		{name: "validation", err: rewards.ValidationError{Field: "user_id", Message: "required"}},
		{name: "other", err: errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rewards.IsNotFound(tt.err); got != tt.notFound {
				t.Errorf("IsNotFound = %v, want %v", got, tt.notFound)
			}
			if got := rewards.IsPaymentError(tt.err); got != tt.payment {
				t.Errorf("IsPaymentError = %v, want %v", got, tt.payment)
			}
			if got := rewards.IsPlanError(tt.err); got != tt.planErr {
				t.Errorf("IsPlanError = %v, want %v", got, tt.planErr)
			}
			if got := rewards.IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestValidationErrorIsInvalidInput(t *testing.T) {
	err := rewards.ValidationError{Field: "amount", Message: "must be positive"}
	if !errors.Is(err, rewards.ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
}
