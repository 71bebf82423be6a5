package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestBillableHours(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     int
	}{
		{name: "zero", duration: 0, want: 1},
		{name: "one second", duration: time.Second, want: 1},
		{name: "exactly one hour", duration: 60 * time.Minute, want: 1},
		{name: "sixty one minutes", duration: 61 * time.Minute, want: 2},
		{name: "ninety minutes", duration: 90 * time.Minute, want: 2},
		{name: "exactly three hours", duration: 3 * time.Hour, want: 3},
		{name: "three hours one nanosecond", duration: 3*time.Hour + 1, want: 4},
		{name: "end before start", duration: -2 * time.Hour, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BillableHours(t0, t0.Add(tt.duration)))
		})
	}
}

func TestCalculateBill_NinetyMinutesAtFive(t *testing.T) {
	bill := CalculateBill(t0, t0.Add(90*time.Minute), decimal.RequireFromString("5.00"), DefaultPlatformFeeRate)

	assert.Equal(t, 2, bill.Hours)
	assert.Equal(t, "10.00", bill.Amount.StringFixed(2))
	assert.Equal(t, "1.50", bill.PlatformFee.StringFixed(2))
	assert.Equal(t, "8.50", bill.OwnerAmount.StringFixed(2))
}

func TestCalculateAmount_Deterministic(t *testing.T) {
	rate := decimal.RequireFromString("3.33")
	h1, a1 := CalculateAmount(t0, t0.Add(150*time.Minute), rate)
	h2, a2 := CalculateAmount(t0, t0.Add(150*time.Minute), rate)

	assert.Equal(t, h1, h2)
	assert.True(t, a1.Equal(a2))
	assert.Equal(t, "9.99", a1.StringFixed(2))
}

func TestSplitFee_SumsToAmount(t *testing.T) {
	for cents := int64(1); cents <= 5000; cents += 7 {
		amount := decimal.New(cents, -2)
		fee, owner := SplitFee(amount, DefaultPlatformFeeRate)

		assert.True(t, fee.Add(owner).Equal(amount), "amount %s", amount)
		assert.True(t, fee.Equal(fee.Round(2)), "fee %s has more than two decimals", fee)
		assert.False(t, owner.IsNegative())
	}
}

func TestSplitFee_RoundsHalfAwayFromZero(t *testing.T) {
	// 0.10 x 0.15 = 0.015
	fee, owner := SplitFee(decimal.RequireFromString("0.10"), DefaultPlatformFeeRate)
	assert.Equal(t, "0.02", fee.StringFixed(2))
	assert.Equal(t, "0.08", owner.StringFixed(2))
}

func TestSplitFee_CustomRate(t *testing.T) {
	fee, owner := SplitFee(decimal.RequireFromString("20.00"), decimal.RequireFromString("0.10"))
	assert.Equal(t, "2.00", fee.StringFixed(2))
	assert.Equal(t, "18.00", owner.StringFixed(2))
}
