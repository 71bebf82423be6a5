package gateway

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockGatewayConfig tunes the simulated card processor
type MockGatewayConfig struct {
	// DeclineRate is the share of charges declined at random, clamped to [0, 1]
	DeclineRate float64
	// Latency is slept before answering
	Latency time.Duration
	// DeclineCodes are picked from for random declines
	DeclineCodes []string
	// CardLimit declines any charge above this many minor units with
	// "card_limit_exceeded". Zero disables the limit.
	CardLimit int64
	// Seed makes the decline sequence reproducible. Zero seeds from the clock.
	Seed int64
}

// DefaultMockGatewayConfig declines one card charge in twenty
func DefaultMockGatewayConfig() *MockGatewayConfig {
	return &MockGatewayConfig{
		DeclineRate:  0.05,
		Latency:      100 * time.Millisecond,
		DeclineCodes: []string{"insufficient_funds", "card_declined", "expired_card"},
	}
}

// MockGateway simulates a card processor for local runs and tests
type MockGateway struct {
	mu          sync.Mutex
	rng         *rand.Rand
	declineRate float64
	latency     time.Duration
	codes       []string
	cardLimit   int64
}

// NewMockGateway creates a simulated card gateway
func NewMockGateway(cfg *MockGatewayConfig) *MockGateway {
	if cfg == nil {
		cfg = DefaultMockGatewayConfig()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	codes := cfg.DeclineCodes
	if len(codes) == 0 {
		codes = []string{"card_declined"}
	}

	return &MockGateway{
		rng:         rand.New(rand.NewSource(seed)),
		declineRate: clampRate(cfg.DeclineRate),
		latency:     cfg.Latency,
		codes:       codes,
		cardLimit:   cfg.CardLimit,
	}
}

// Charge answers after the configured latency with an approval or a decline
func (g *MockGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	if req == nil {
		return nil, errors.New("charge request is required")
	}

	if g.latency > 0 {
		timer := time.NewTimer(g.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	if g.cardLimit > 0 && toMinorUnits(req.Amount) > g.cardLimit {
		return declined("card_limit_exceeded"), nil
	}

	g.mu.Lock()
	decline := g.rng.Float64() < g.declineRate
	code := g.codes[g.rng.Intn(len(g.codes))]
	g.mu.Unlock()

	if decline {
		return declined(code), nil
	}
	return &ChargeResponse{
		Success:       true,
		TransactionID: "mock_" + uuid.NewString(),
		Status:        "completed",
	}, nil
}

// SetDeclineRate changes the decline rate at runtime
func (g *MockGateway) SetDeclineRate(rate float64) {
	g.mu.Lock()
	g.declineRate = clampRate(rate)
	g.mu.Unlock()
}

// Name returns the gateway name
func (g *MockGateway) Name() string {
	return string(GatewayTypeMock)
}

func declined(code string) *ChargeResponse {
	return &ChargeResponse{
		Status:        "failed",
		FailureReason: code,
		FailureCode:   code,
	}
}

func clampRate(rate float64) float64 {
	switch {
	case rate < 0:
		return 0
	case rate > 1:
		return 1
	}
	return rate
}
