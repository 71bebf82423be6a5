package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPlatformFeeRate is the platform share of every charge
var DefaultPlatformFeeRate = decimal.RequireFromString("0.15")

// Bill is the outcome of closing a session
type Bill struct {
	Hours       int             `json:"hours"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	OwnerAmount decimal.Decimal `json:"owner_amount"`
}

// BillableHours rounds the session up to whole hours with a one hour minimum.
// An end before start counts as zero duration.
func BillableHours(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		d = 0
	}
	hours := int((d + time.Hour - 1) / time.Hour)
	if hours < 1 {
		hours = 1
	}
	return hours
}

// CalculateAmount returns billable hours and hours x rate rounded to cents
func CalculateAmount(start, end time.Time, rate decimal.Decimal) (int, decimal.Decimal) {
	hours := BillableHours(start, end)
	return hours, rate.Mul(decimal.NewFromInt(int64(hours))).Round(2)
}

// SplitFee divides amount into the platform fee and the owner share.
// fee + owner always equals amount.
func SplitFee(amount, feeRate decimal.Decimal) (fee, owner decimal.Decimal) {
	fee = amount.Mul(feeRate).Round(2)
	return fee, amount.Sub(fee)
}

// CalculateBill runs the whole billing computation for one session
func CalculateBill(start, end time.Time, rate, feeRate decimal.Decimal) Bill {
	hours, amount := CalculateAmount(start, end, rate)
	fee, owner := SplitFee(amount, feeRate)
	return Bill{
		Hours:       hours,
		Rate:        rate,
		Amount:      amount,
		PlatformFee: fee,
		OwnerAmount: owner,
	}
}
