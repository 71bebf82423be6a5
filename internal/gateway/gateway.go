package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentGateway settles a charge with an external or internal processor
type PaymentGateway interface {
	// Charge settles the requested amount. A declined payment is reported
	// through ChargeResponse; the error return is reserved for transport failures.
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error)

	// Name returns the gateway name
	Name() string
}

// ChargeRequest represents a request to settle a charge
type ChargeRequest struct {
	ChargeID    string
	BookingID   string
	Amount      decimal.Decimal
	Currency    string
	Method      string
	Description string
	// PaymentMethodID is a saved card reference. Without it a card charge
	// can only wait for the driver to attach one.
	PaymentMethodID string
	Metadata    map[string]string
}

// ChargeResponse represents the result of a settlement. Pending means the
// processor accepted the charge but still needs the driver to act.
type ChargeResponse struct {
	Success       bool
	Pending       bool
	TransactionID string
	Status        string
	FailureReason string
	FailureCode   string
}

// GatewayConfig holds common gateway configuration
type GatewayConfig struct {
	SecretKey   string
	Environment string // "test" or "live"
}

// toMinorUnits converts a major-unit amount to the smallest currency unit
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
