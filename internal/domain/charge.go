package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how the driver settles a session
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodCash   PaymentMethod = "cash"
)

// DefaultPaymentMethod applies when the driver does not choose one
const DefaultPaymentMethod = PaymentMethodWallet

// ParsePaymentMethod accepts card, wallet or cash in any case. Empty means wallet.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return DefaultPaymentMethod, nil
	case PaymentMethodCard, PaymentMethodWallet, PaymentMethodCash:
		return m, nil
	}
	return "", ErrInvalidPaymentMethod
}

// ChargeStatus represents the settlement status of a charge
type ChargeStatus string

const (
	ChargeStatusPending ChargeStatus = "PENDING"
	ChargeStatusPaid    ChargeStatus = "PAID"
	ChargeStatusFailed  ChargeStatus = "FAILED"
)

// Charge is the money owed for one completed session
type Charge struct {
	ID            string          `json:"id"`
	BookingID     string          `json:"booking_id"`
	Amount        decimal.Decimal `json:"amount"`
	PlatformFee   decimal.Decimal `json:"platform_fee"`
	OwnerAmount   decimal.Decimal `json:"owner_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        ChargeStatus    `json:"status"`
	TransactionID string          `json:"transaction_id,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// PaymentMethodID is the processor's saved card reference, card only
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

// NewCharge creates a PENDING charge from a bill
func NewCharge(id, bookingID string, bill Bill, method PaymentMethod, now time.Time) *Charge {
	return &Charge{
		ID:            id,
		BookingID:     bookingID,
		Amount:        bill.Amount,
		PlatformFee:   bill.PlatformFee,
		OwnerAmount:   bill.OwnerAmount,
		PaymentMethod: method,
		Status:        ChargeStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Settleable reports whether a settlement attempt may change the charge.
// A FAILED charge stays open so the driver can pay again.
func (c *Charge) Settleable() bool {
	return c.Status == ChargeStatusPending || c.Status == ChargeStatusFailed
}

// MarkPaid records a successful settlement
func (c *Charge) MarkPaid(transactionID string, now time.Time) error {
	if !c.Settleable() {
		return ErrInvalidTransition
	}
	c.Status = ChargeStatusPaid
	c.TransactionID = transactionID
	c.FailureReason = ""
	c.PaidAt = &now
	c.UpdatedAt = now
	return nil
}

// MarkFailed records a failed settlement
func (c *Charge) MarkFailed(reason string, now time.Time) error {
	if !c.Settleable() {
		return ErrInvalidTransition
	}
	c.Status = ChargeStatusFailed
	c.FailureReason = reason
	c.UpdatedAt = now
	return nil
}

// MarkAwaiting keeps the charge PENDING while the processor waits on the
// driver, for example to attach a card or pass 3-D Secure.
func (c *Charge) MarkAwaiting(transactionID, reason string, now time.Time) error {
	if !c.Settleable() {
		return ErrInvalidTransition
	}
	c.Status = ChargeStatusPending
	c.TransactionID = transactionID
	c.FailureReason = reason
	c.UpdatedAt = now
	return nil
}

// ChangeMethod switches how an unpaid charge is settled
func (c *Charge) ChangeMethod(method PaymentMethod, paymentMethodID string, now time.Time) error {
	if !c.Settleable() {
		return ErrInvalidTransition
	}
	c.PaymentMethod = method
	c.PaymentMethodID = paymentMethodID
	c.UpdatedAt = now
	return nil
}

// Earnings summarises an owner's paid revenue
type Earnings struct {
	Today  decimal.Decimal `json:"today"`
	Month  decimal.Decimal `json:"month"`
	Total  decimal.Decimal `json:"total"`
	Recent []*EarningEntry `json:"recent"`
}

// EarningEntry is one paid charge as seen by the space owner
type EarningEntry struct {
	ChargeID    string          `json:"charge_id"`
	BookingID   string          `json:"booking_id"`
	SpaceID     string          `json:"space_id"`
	SpaceName   string          `json:"space_name"`
	Amount      decimal.Decimal `json:"amount"`
	OwnerAmount decimal.Decimal `json:"owner_amount"`
	PaidAt      time.Time       `json:"paid_at"`
}
