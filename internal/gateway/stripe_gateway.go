package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// StripeGatewayConfig holds configuration for Stripe gateway
type StripeGatewayConfig struct {
	SecretKey   string
	Environment string
}

// StripeGateway settles card charges with Stripe payment intents
type StripeGateway struct {
	intents     *paymentintent.Client
	environment string
}

// NewStripeGateway creates a gateway with its own key rather than the global stripe.Key
func NewStripeGateway(config *StripeGatewayConfig) (*StripeGateway, error) {
	if config == nil || config.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}

	return &StripeGateway{
		intents:     &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: config.SecretKey},
		environment: config.Environment,
	}, nil
}

// Charge creates a payment intent for the charge and, when a saved payment
// method is supplied, confirms it in the same call.
func (g *StripeGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	if req == nil {
		return nil, errors.New("charge request is required")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(req.Amount)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
	}
	if req.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(req.PaymentMethodID)
		params.Confirm = stripe.Bool(true)
		params.AutomaticPaymentMethods = &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		}
	} else {
		params.AutomaticPaymentMethods = &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		}
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey(req))
	params.AddMetadata("charge_id", req.ChargeID)
	params.AddMetadata("booking_id", req.BookingID)
	if g.environment != "" {
		params.AddMetadata("environment", g.environment)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}

	pi, err := g.intents.New(params)
	if err != nil {
		if resp := declineFromError(err); resp != nil {
			return resp, nil
		}
		return nil, fmt.Errorf("stripe payment intent: %w", err)
	}
	return fromPaymentIntent(pi), nil
}

// Name returns the gateway name
func (g *StripeGateway) Name() string {
	return string(GatewayTypeStripe)
}

// idempotencyKey is stable per charge and card, so retries of one attempt
// collapse while paying again with another card creates a new intent.
func idempotencyKey(req *ChargeRequest) string {
	key := "parking-charge-" + req.ChargeID
	if req.PaymentMethodID != "" {
		key += "-" + req.PaymentMethodID
	}
	return key
}

// declineFromError turns a card error into a decline. Other errors are
// transport failures and return nil.
func declineFromError(err error) *ChargeResponse {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) || stripeErr.Type != stripe.ErrorTypeCard {
		return nil
	}
	code := string(stripeErr.Code)
	if stripeErr.DeclineCode != "" {
		code = string(stripeErr.DeclineCode)
	}
	return &ChargeResponse{
		Status:        "failed",
		FailureReason: stripeErr.Msg,
		FailureCode:   code,
	}
}

func fromPaymentIntent(pi *stripe.PaymentIntent) *ChargeResponse {
	resp := &ChargeResponse{
		TransactionID: pi.ID,
		Status:        string(pi.Status),
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		resp.Success = true
	case stripe.PaymentIntentStatusCanceled:
		resp.FailureReason = "payment_canceled"
		resp.FailureCode = "canceled"
	default:
		// requires_payment_method, requires_action, processing and the like
		resp.Pending = true
		resp.FailureReason = "payment_" + string(pi.Status)
		resp.FailureCode = string(pi.Status)
	}
	return resp
}
