package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coursehub/purchase-service/common/errors"
)

func TestIsTransitionAllowed(t *testing.T) {
	tests := []struct {
		name    string
		from    PurchaseStatus
		to      PurchaseStatus
		allowed bool
	}{
		{"started to pending", PurchaseStatusStarted, PurchaseStatusPending, true},
		{"pending to completed", PurchaseStatusPending, PurchaseStatusCompleted, true},
		{"pending to failed", PurchaseStatusPending, PurchaseStatusFailed, true},
		{"completed to refund", PurchaseStatusCompleted, PurchaseStatusRefund, true},
		{"refund to refunded", PurchaseStatusRefund, PurchaseStatusRefunded, true},
		{"started skips pending", PurchaseStatusStarted, PurchaseStatusCompleted, false},
		{"started to failed", PurchaseStatusStarted, PurchaseStatusFailed, false},
		{"pending to refund", PurchaseStatusPending, PurchaseStatusRefund, false},
		{"completed to refunded directly", PurchaseStatusCompleted, PurchaseStatusRefunded, false},
		{"completed back to pending", PurchaseStatusCompleted, PurchaseStatusPending, false},
		{"failed is terminal", PurchaseStatusFailed, PurchaseStatusPending, false},
		{"refunded is terminal", PurchaseStatusRefunded, PurchaseStatusRefund, false},
		{"unknown from", PurchaseStatus("BOGUS"), PurchaseStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, IsTransitionAllowed(tt.from, tt.to))
		})
	}
}

func TestIsTransitionAllowed_SelfTransition(t *testing.T) {
	// 중복 전달된 콜백 흡수를 위해 from == to는 항상 허용
	statuses := []PurchaseStatus{
		PurchaseStatusStarted, PurchaseStatusPending, PurchaseStatusCompleted,
		PurchaseStatusFailed, PurchaseStatusRefund, PurchaseStatusRefunded,
	}
	for _, s := range statuses {
		assert.True(t, IsTransitionAllowed(s, s), "self transition must be allowed for %s", s)
	}
}

func TestValidateTransition_CarriesEndpoints(t *testing.T) {
	err := ValidateTransition(PurchaseStatusStarted, PurchaseStatusCompleted)
	assert.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidTransition, errors.Code(err))
	assert.Contains(t, err.Error(), "STARTED")
	assert.Contains(t, err.Error(), "COMPLETED")
}

func TestPurchaseStatus_IsTerminal(t *testing.T) {
	assert.True(t, PurchaseStatusFailed.IsTerminal())
	assert.True(t, PurchaseStatusRefunded.IsTerminal())
	assert.False(t, PurchaseStatusStarted.IsTerminal())
	assert.False(t, PurchaseStatusCompleted.IsTerminal())
}

func TestAmountBreakdown_Validate(t *testing.T) {
	tests := []struct {
		name      string
		breakdown AmountBreakdown
		valid     bool
	}{
		{
			name:      "exact arithmetic",
			breakdown: AmountBreakdown{Currency: "INR", MRP: 1000, NetDiscount: 200, TotalAmountPaid: 800},
			valid:     true,
		},
		{
			name:      "zero discount",
			breakdown: AmountBreakdown{Currency: "INR", MRP: 1000, NetDiscount: 0, TotalAmountPaid: 1000},
			valid:     true,
		},
		{
			name:      "full discount",
			breakdown: AmountBreakdown{Currency: "USD", MRP: 500, NetDiscount: 500, TotalAmountPaid: 0},
			valid:     true,
		},
		{
			name:      "total too high",
			breakdown: AmountBreakdown{Currency: "INR", MRP: 1000, NetDiscount: 200, TotalAmountPaid: 900},
			valid:     false,
		},
		{
			name:      "total too low",
			breakdown: AmountBreakdown{Currency: "INR", MRP: 1000, NetDiscount: 200, TotalAmountPaid: 799},
			valid:     false,
		},
		{
			name:      "negative discount",
			breakdown: AmountBreakdown{Currency: "INR", MRP: 1000, NetDiscount: -100, TotalAmountPaid: 1100},
			valid:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.breakdown.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, errors.ErrCodeInvalidAmountBreakdown, errors.Code(err))
			}
		})
	}
}

func TestStatusForPaymentState(t *testing.T) {
	tests := []struct {
		name       string
		state      PaymentState
		current    PurchaseStatus
		target     PurchaseStatus
		transition bool
	}{
		{"captured completes", PaymentStateCaptured, PurchaseStatusPending, PurchaseStatusCompleted, true},
		{"failed fails", PaymentStateFailed, PurchaseStatusPending, PurchaseStatusFailed, true},
		{"refunded from completed requests refund", PaymentStateRefunded, PurchaseStatusCompleted, PurchaseStatusRefund, true},
		{"refunded from refund confirms", PaymentStateRefunded, PurchaseStatusRefund, PurchaseStatusRefunded, true},
		{"refunded when already refunded", PaymentStateRefunded, PurchaseStatusRefunded, PurchaseStatusRefunded, true},
		{"created carries no transition", PaymentStateCreated, PurchaseStatusStarted, PurchaseStatusStarted, false},
		{"authorized carries no transition", PaymentStateAuthorized, PurchaseStatusPending, PurchaseStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, transition := StatusForPaymentState(tt.state, tt.current)
			assert.Equal(t, tt.target, target)
			assert.Equal(t, tt.transition, transition)
		})
	}
}
