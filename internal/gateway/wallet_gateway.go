package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// WalletGateway settles wallet and cash payments against the internal ledger.
// Settlement always succeeds immediately.
type WalletGateway struct{}

// NewWalletGateway creates a new wallet gateway
func NewWalletGateway() *WalletGateway {
	return &WalletGateway{}
}

// Charge records an immediate settlement
func (g *WalletGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("charge request is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &ChargeResponse{
		Success:       true,
		TransactionID: fmt.Sprintf("%s_%s", req.Method, uuid.New().String()),
		Status:        "completed",
	}, nil
}

// Name returns the gateway name
func (g *WalletGateway) Name() string {
	return "wallet"
}
