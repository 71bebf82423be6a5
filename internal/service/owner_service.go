package service

import (
	"context"
	"time"

	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/hellyrj/smart-parking-system/internal/dto"
	"github.com/hellyrj/smart-parking-system/internal/repository"
	"github.com/hellyrj/smart-parking-system/pkg/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// recentEarnings is how many paid charges the earnings summary lists
const recentEarnings = 10

// OwnerService serves the space owner's dashboard
type OwnerService interface {
	// ActiveSessions lists open bookings on the owner's spaces
	ActiveSessions(ctx context.Context, ownerID string) ([]*dto.OwnerSessionResponse, error)

	// Reservations lists WAITING bookings on the owner's spaces, oldest first
	Reservations(ctx context.Context, ownerID string) ([]*dto.OwnerSessionResponse, error)

	// Earnings summarises paid revenue for today, this month and all time
	Earnings(ctx context.Context, ownerID string) (*dto.EarningsResponse, error)
}

// OwnerServiceConfig contains configuration for owner service
type OwnerServiceConfig struct {
	PlatformFeeRate decimal.Decimal
	Location        *time.Location
}

type ownerService struct {
	bookings repository.BookingRepository
	charges  repository.ChargeRepository
	feeRate  decimal.Decimal
	location *time.Location
	now      func() time.Time
}

// NewOwnerService creates a new owner service
func NewOwnerService(bookings repository.BookingRepository, charges repository.ChargeRepository, cfg *OwnerServiceConfig) OwnerService {
	s := &ownerService{
		bookings: bookings,
		charges:  charges,
		feeRate:  domain.DefaultPlatformFeeRate,
		location: time.Local,
		now:      time.Now,
	}
	if cfg != nil {
		if cfg.PlatformFeeRate.IsPositive() {
			s.feeRate = cfg.PlatformFeeRate
		}
		if cfg.Location != nil {
			s.location = cfg.Location
		}
	}
	return s
}

func (s *ownerService) ActiveSessions(ctx context.Context, ownerID string) ([]*dto.OwnerSessionResponse, error) {
	return s.list(ctx, "service.owner.active_sessions", ownerID, domain.OpenStatuses)
}

func (s *ownerService) Reservations(ctx context.Context, ownerID string) ([]*dto.OwnerSessionResponse, error) {
	return s.list(ctx, "service.owner.reservations", ownerID, []domain.BookingStatus{domain.BookingStatusWaiting})
}

func (s *ownerService) list(ctx context.Context, spanName, ownerID string, statuses []domain.BookingStatus) ([]*dto.OwnerSessionResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	if ownerID == "" {
		return nil, domain.ErrInvalidUserID
	}
	span.SetAttributes(attribute.String("owner_id", ownerID))

	items, err := s.bookings.ListByOwner(ctx, ownerID, statuses)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Stale holds stay listed until expired, but are not shown as live.
	now := s.now()
	resp := make([]*dto.OwnerSessionResponse, 0, len(items))
	for _, ob := range items {
		if ob.Booking.IsExpiredAt(now) {
			continue
		}
		resp = append(resp, dto.FromOwnedBooking(ob, now, s.feeRate))
	}

	span.SetAttributes(attribute.Int("count", len(resp)))
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

func (s *ownerService) Earnings(ctx context.Context, ownerID string) (*dto.EarningsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.owner.earnings")
	defer span.End()

	if ownerID == "" {
		return nil, domain.ErrInvalidUserID
	}
	span.SetAttributes(attribute.String("owner_id", ownerID))

	now := s.now().In(s.location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.location)

	earnings, err := s.charges.Earnings(ctx, ownerID, dayStart, monthStart, recentEarnings)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.FromEarnings(earnings), nil
}
