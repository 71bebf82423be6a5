package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/hellyrj/smart-parking-system/internal/gateway"
	"github.com/hellyrj/smart-parking-system/internal/metrics"
	"github.com/hellyrj/smart-parking-system/internal/repository"
	"github.com/hellyrj/smart-parking-system/pkg/logger"
	"github.com/hellyrj/smart-parking-system/pkg/retry"
	"github.com/hellyrj/smart-parking-system/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// PaymentService settles charges created when a session ends
type PaymentService interface {
	// Settle runs one settlement attempt on a PENDING or FAILED charge. A
	// declined payment is not an error: the returned charge carries FAILED.
	// A processor that still needs the driver leaves it PENDING.
	Settle(ctx context.Context, charge *domain.Charge) (*domain.Charge, error)

	// Retry settles the booking's unpaid charge again, optionally with another
	// payment method. A PAID charge is an invalid transition.
	Retry(ctx context.Context, bookingID string, method domain.PaymentMethod, paymentMethodID string) (*domain.Charge, error)
}

// PaymentServiceConfig contains configuration for payment service
type PaymentServiceConfig struct {
	Currency string
	Retry    *retry.Config
}

type paymentService struct {
	charges repository.ChargeRepository
	router  *gateway.Router
	config  PaymentServiceConfig
	now     func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(charges repository.ChargeRepository, router *gateway.Router, cfg *PaymentServiceConfig) PaymentService {
	config := PaymentServiceConfig{
		Currency: "ETB",
		Retry:    retry.QuickConfig(),
	}
	if cfg != nil {
		if cfg.Currency != "" {
			config.Currency = cfg.Currency
		}
		if cfg.Retry != nil {
			config.Retry = cfg.Retry
		}
	}
	if router == nil {
		router = gateway.NewRouter(nil, nil)
	}
	return &paymentService{
		charges: charges,
		router:  router,
		config:  config,
		now:     time.Now,
	}
}

func (s *paymentService) Settle(ctx context.Context, charge *domain.Charge) (*domain.Charge, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.payment.settle")
	defer span.End()

	if charge == nil {
		return nil, fmt.Errorf("charge is required")
	}
	if !charge.Settleable() {
		return charge, nil
	}

	gw := s.router.ForMethod(charge.PaymentMethod)
	span.SetAttributes(
		attribute.String("charge_id", charge.ID),
		attribute.String("booking_id", charge.BookingID),
		attribute.String("payment_method", string(charge.PaymentMethod)),
		attribute.String("gateway", gw.Name()),
	)

	req := &gateway.ChargeRequest{
		ChargeID:    charge.ID,
		BookingID:   charge.BookingID,
		Amount:      charge.Amount,
		Currency:    s.config.Currency,
		Method:      string(charge.PaymentMethod),
		Description: "Parking session " + charge.BookingID,

		PaymentMethodID: charge.PaymentMethodID,
	}

	var resp *gateway.ChargeResponse
	result := retry.Do(ctx, s.config.Retry, func(ctx context.Context) error {
		r, err := gw.Charge(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return retry.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	})

	now := s.now()
	if err := result.Error(); err != nil {
		span.RecordError(err)
		logger.Warn("payment gateway unavailable",
			zap.String("charge_id", charge.ID),
			zap.String("gateway", gw.Name()),
			zap.Error(err),
		)
		resp = &gateway.ChargeResponse{Success: false, FailureReason: "gateway_unavailable"}
	}

	var markErr error
	switch {
	case resp.Success:
		markErr = charge.MarkPaid(resp.TransactionID, now)
	case resp.Pending:
		markErr = charge.MarkAwaiting(resp.TransactionID, resp.FailureReason, now)
	default:
		markErr = charge.MarkFailed(resp.FailureReason, now)
	}
	if markErr != nil {
		return nil, markErr
	}

	if err := s.charges.UpdateSettlement(ctx, charge); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to record settlement: %w", err)
	}

	metrics.RecordSettlement(ctx, string(charge.PaymentMethod), string(charge.Status))
	span.SetAttributes(attribute.String("status", string(charge.Status)))
	span.SetStatus(codes.Ok, "")
	return charge, nil
}

func (s *paymentService) Retry(ctx context.Context, bookingID string, method domain.PaymentMethod, paymentMethodID string) (*domain.Charge, error) {
	charge, err := s.charges.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !charge.Settleable() {
		return nil, fmt.Errorf("charge %s is already paid: %w", charge.ID, domain.ErrInvalidTransition)
	}
	if method != "" {
		if err := charge.ChangeMethod(method, paymentMethodID, s.now()); err != nil {
			return nil, err
		}
	}
	return s.Settle(ctx, charge)
}
