package gateway

import (
	"fmt"
	"strings"

	"github.com/hellyrj/smart-parking-system/internal/domain"
)

// GatewayType represents the type of card gateway
type GatewayType string

const (
	GatewayTypeMock   GatewayType = "mock"
	GatewayTypeStripe GatewayType = "stripe"
)

// NewPaymentGateway creates the card gateway based on the type
func NewPaymentGateway(gatewayType string, config *GatewayConfig) (PaymentGateway, error) {
	switch GatewayType(strings.ToLower(gatewayType)) {
	case GatewayTypeMock, "":
		return NewMockGateway(DefaultMockGatewayConfig()), nil

	case GatewayTypeStripe:
		if config == nil || config.SecretKey == "" {
			return nil, fmt.Errorf("stripe secret key is required")
		}
		return NewStripeGateway(&StripeGatewayConfig{
			SecretKey:   config.SecretKey,
			Environment: config.Environment,
		})

	default:
		return nil, fmt.Errorf("unsupported gateway type: %s", gatewayType)
	}
}

// Router picks the gateway that settles a given payment method
type Router struct {
	wallet PaymentGateway
	card   PaymentGateway
}

// NewRouter creates a router. Wallet and cash go to wallet, card goes to card.
func NewRouter(wallet, card PaymentGateway) *Router {
	if wallet == nil {
		wallet = NewWalletGateway()
	}
	if card == nil {
		card = NewMockGateway(nil)
	}
	return &Router{wallet: wallet, card: card}
}

// ForMethod returns the gateway for a payment method
func (r *Router) ForMethod(method domain.PaymentMethod) PaymentGateway {
	if method == domain.PaymentMethodCard {
		return r.card
	}
	return r.wallet
}
