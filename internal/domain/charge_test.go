package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    PaymentMethod
		wantErr bool
	}{
		{in: "", want: PaymentMethodWallet},
		{in: "card", want: PaymentMethodCard},
		{in: " CASH ", want: PaymentMethodCash},
		{in: "Wallet", want: PaymentMethodWallet},
		{in: "bitcoin", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePaymentMethod(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCharge_Settlement(t *testing.T) {
	bill := CalculateBill(t0, t0.Add(time.Hour), decimal.RequireFromString("5"), DefaultPlatformFeeRate)

	c := NewCharge("charge-1", "booking-1", bill, PaymentMethodWallet, t0)
	assert.Equal(t, ChargeStatusPending, c.Status)
	assert.True(t, c.PlatformFee.Add(c.OwnerAmount).Equal(c.Amount))

	require.NoError(t, c.MarkPaid("txn-1", t0))
	assert.Equal(t, ChargeStatusPaid, c.Status)
	assert.Equal(t, "txn-1", c.TransactionID)
	require.NotNil(t, c.PaidAt)

	assert.ErrorIs(t, c.MarkFailed("late", t0), ErrInvalidTransition)
	assert.ErrorIs(t, c.MarkPaid("txn-2", t0), ErrInvalidTransition)
}

func TestCharge_MarkFailed(t *testing.T) {
	c := NewCharge("charge-1", "booking-1", Bill{Amount: decimal.NewFromInt(1)}, PaymentMethodCard, t0)

	require.NoError(t, c.MarkFailed("card declined", t0))
	assert.Equal(t, ChargeStatusFailed, c.Status)
	assert.Equal(t, "card declined", c.FailureReason)
	assert.Nil(t, c.PaidAt)
}

func TestCharge_RetryAfterFailure(t *testing.T) {
	c := NewCharge("charge-1", "booking-1", Bill{Amount: decimal.NewFromInt(10)}, PaymentMethodCard, t0)
	require.NoError(t, c.MarkFailed("requires_payment_method", t0))
	assert.True(t, c.Settleable())

	require.NoError(t, c.ChangeMethod(PaymentMethodCard, "pm_card_visa", t0.Add(time.Minute)))
	assert.Equal(t, "pm_card_visa", c.PaymentMethodID)

	require.NoError(t, c.MarkPaid("pi_1", t0.Add(time.Minute)))
	assert.Equal(t, ChargeStatusPaid, c.Status)
	assert.Empty(t, c.FailureReason)
	assert.False(t, c.Settleable())
	assert.ErrorIs(t, c.ChangeMethod(PaymentMethodWallet, "", t0), ErrInvalidTransition)
}

func TestCharge_MarkAwaiting(t *testing.T) {
	c := NewCharge("charge-1", "booking-1", Bill{Amount: decimal.NewFromInt(10)}, PaymentMethodCard, t0)

	require.NoError(t, c.MarkAwaiting("pi_1", "requires_action", t0))
	assert.Equal(t, ChargeStatusPending, c.Status)
	assert.Equal(t, "pi_1", c.TransactionID)
	assert.Nil(t, c.PaidAt)

	require.NoError(t, c.MarkFailed("card_declined", t0))
	require.NoError(t, c.MarkAwaiting("pi_2", "requires_action", t0))
	assert.Equal(t, ChargeStatusPending, c.Status)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsNotFoundError(ErrBookingNotFound))
	assert.True(t, IsNotFoundError(ErrSpaceNotFound))
	assert.True(t, IsNotFoundError(ErrNotificationNotFound))
	assert.False(t, IsNotFoundError(ErrNoCapacity))

	assert.True(t, IsValidationError(ErrInvalidRadius))
	assert.True(t, IsConflictError(ErrAlreadyBooked))
	assert.False(t, IsConflictError(ErrInvariantViolation))
	assert.Equal(t, "booking not found", ErrBookingNotFound.Error())
}
