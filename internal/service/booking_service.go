package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/hellyrj/smart-parking-system/internal/dto"
	"github.com/hellyrj/smart-parking-system/internal/metrics"
	"github.com/hellyrj/smart-parking-system/internal/repository"
	"github.com/hellyrj/smart-parking-system/pkg/logger"
	"github.com/hellyrj/smart-parking-system/pkg/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Expiry triggers
const (
	TriggerLazy  = "lazy"
	TriggerSweep = "sweep"
)

// BookingService defines the interface for reservation and session lifecycle
type BookingService interface {
	// Reserve holds one spot for the caller
	Reserve(ctx context.Context, userID string, req *dto.ReserveRequest) (*dto.ReserveResponse, error)

	// Confirm turns the caller's reservation into a running session
	Confirm(ctx context.Context, userID, bookingID string) (*dto.ConfirmResponse, error)

	// Cancel cancels a booking as its driver or as the space owner
	Cancel(ctx context.Context, userID, bookingID string) (*dto.CancelResponse, error)

	// EndSession closes the caller's running session and settles the bill
	EndSession(ctx context.Context, userID, bookingID string, req *dto.EndSessionRequest) (*dto.EndSessionResponse, error)

	// PaySession settles the unpaid charge of the caller's completed session again
	PaySession(ctx context.Context, userID, bookingID string, req *dto.PayRequest) (*dto.PaymentResponse, error)

	// CheckStatus reports the booking status, expiring a stale reservation
	CheckStatus(ctx context.Context, userID, bookingID string) (*dto.StatusResponse, error)

	// GetActiveBooking returns the caller's open booking, or nil when there is none
	GetActiveBooking(ctx context.Context, userID string) (*dto.BookingResponse, error)

	// ListSessions lists the caller's bookings, newest first
	ListSessions(ctx context.Context, userID string, limit, offset int) (*dto.ListResponse, error)

	// ConfirmArrival activates a reservation on the owner's space
	ConfirmArrival(ctx context.Context, ownerID, bookingID string) (*dto.ConfirmResponse, error)

	// OwnerCancel cancels a booking on the owner's space
	OwnerCancel(ctx context.Context, ownerID, bookingID string) (*dto.CancelResponse, error)

	// ExpireBooking expires a WAITING booking past its deadline.
	// It reports false when the booking was not eligible.
	ExpireBooking(ctx context.Context, bookingID, trigger string) (bool, error)
}

// BookingServiceConfig contains configuration for booking service
type BookingServiceConfig struct {
	ReservationTTL  time.Duration
	PlatformFeeRate decimal.Decimal
}

type bookingService struct {
	txManager      repository.TxManager
	bookings       repository.BookingRepository
	payments       PaymentService
	notifier       Notifier
	eventPublisher EventPublisher
	reservationTTL time.Duration
	feeRate        decimal.Decimal
	now            func() time.Time
	newID          func() string
}

// NewBookingService creates a new booking service
func NewBookingService(
	txManager repository.TxManager,
	bookings repository.BookingRepository,
	payments PaymentService,
	notifier Notifier,
	eventPublisher EventPublisher,
	cfg *BookingServiceConfig,
) BookingService {
	ttl := 30 * time.Minute
	feeRate := domain.DefaultPlatformFeeRate
	if cfg != nil {
		if cfg.ReservationTTL > 0 {
			ttl = cfg.ReservationTTL
		}
		if cfg.PlatformFeeRate.IsPositive() {
			feeRate = cfg.PlatformFeeRate
		}
	}
	if eventPublisher == nil {
		eventPublisher = NewNoOpEventPublisher()
	}
	return &bookingService{
		txManager:      txManager,
		bookings:       bookings,
		payments:       payments,
		notifier:       notifier,
		eventPublisher: eventPublisher,
		reservationTTL: ttl,
		feeRate:        feeRate,
		now:            time.Now,
		newID:          func() string { return uuid.New().String() },
	}
}

// Reserve holds one spot for the caller
func (s *bookingService) Reserve(ctx context.Context, userID string, req *dto.ReserveRequest) (*dto.ReserveResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.reserve")
	defer span.End()

	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}
	if req == nil || req.SpaceID == "" {
		span.SetStatus(codes.Error, "invalid space_id")
		return nil, domain.ErrInvalidSpaceID
	}
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("space_id", req.SpaceID),
	)

	now := s.now()
	var (
		booking    *domain.Booking
		space      *domain.ParkingSpace
		stale      *domain.Booking
		staleSpace *domain.ParkingSpace
	)
	err := s.txManager.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		stale, staleSpace = nil, nil
		if err := store.Bookings().LockUser(ctx, userID); err != nil {
			return err
		}
		open, err := store.Bookings().GetOpenByUser(ctx, userID)
		switch {
		case errors.Is(err, domain.ErrBookingNotFound):
		case err != nil:
			return err
		default:
			// a lapsed hold is expired here rather than blocking the new one
			locked, err := store.Bookings().GetForUpdate(ctx, open.ID)
			if err != nil {
				return err
			}
			expired, err := s.expireLocked(ctx, store, locked, now)
			if err != nil {
				return err
			}
			if !expired {
				return domain.ErrAlreadyBooked
			}
			stale = locked
			if staleSpace, err = store.Spaces().GetByID(ctx, locked.SpaceID); err != nil {
				return err
			}
		}

		claimed, err := store.Ledger().Claim(ctx, req.SpaceID)
		if err != nil {
			return err
		}

		b := domain.NewReservation(s.newID(), userID, claimed, domain.Vehicle{
			Plate: req.VehiclePlate,
			Model: req.VehicleModel,
		}, now, s.reservationTTL)
		if err := store.Bookings().Create(ctx, b); err != nil {
			return err
		}

		booking, space = b, claimed
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoCapacity) {
			metrics.RecordNoCapacity(ctx, req.SpaceID)
		}
		return nil, s.fail(ctx, span, "reserve", err)
	}

	if stale != nil {
		s.afterExpire(ctx, stale, staleSpace, TriggerLazy)
	}

	metrics.RecordReservation(ctx, space.ID)
	s.notify(newSessionNotification(space.OwnerID, space.Name, booking))
	s.publish(ctx, domain.BookingEventReserved, booking)

	span.SetAttributes(attribute.String("booking_id", booking.ID))
	span.SetStatus(codes.Ok, "")
	return &dto.ReserveResponse{
		BookingID:     booking.ID,
		SpaceID:       booking.SpaceID,
		Status:        string(booking.Status),
		ReservedUntil: *booking.ReservedUntil,
		PricePerHour:  dto.Money(booking.PricePerHour),
	}, nil
}

// Confirm turns the caller's reservation into a running session
func (s *bookingService) Confirm(ctx context.Context, userID, bookingID string) (*dto.ConfirmResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.confirm")
	defer span.End()

	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("booking_id", bookingID))

	authorize := func(ctx context.Context, store repository.Store, b *domain.Booking) (*domain.ParkingSpace, error) {
		if b.UserID != userID {
			return nil, domain.ErrBookingNotFound
		}
		return store.Spaces().GetByID(ctx, b.SpaceID)
	}

	b, _, err := s.activate(ctx, bookingID, authorize)
	if err != nil {
		return nil, s.fail(ctx, span, "confirm", err)
	}

	metrics.RecordConfirmation(ctx, b.SpaceID, string(domain.ActorUser))
	s.publish(ctx, domain.BookingEventConfirmed, b)

	span.SetStatus(codes.Ok, "")
	return &dto.ConfirmResponse{
		BookingID:       b.ID,
		Status:          string(b.Status),
		ActualStartTime: *b.ActualStartTime,
	}, nil
}

// ConfirmArrival activates a reservation on the owner's space
func (s *bookingService) ConfirmArrival(ctx context.Context, ownerID, bookingID string) (*dto.ConfirmResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.confirm_arrival")
	defer span.End()

	if ownerID == "" {
		return nil, domain.ErrInvalidUserID
	}
	span.SetAttributes(attribute.String("owner_id", ownerID), attribute.String("booking_id", bookingID))

	b, space, err := s.activate(ctx, bookingID, s.ownedBy(ownerID))
	if err != nil {
		return nil, s.fail(ctx, span, "confirm_arrival", err)
	}

	metrics.RecordConfirmation(ctx, b.SpaceID, string(domain.ActorOwner))
	s.notify(arrivalConfirmedNotification(space.Name, b))
	s.publish(ctx, domain.BookingEventConfirmed, b)

	span.SetStatus(codes.Ok, "")
	return &dto.ConfirmResponse{
		BookingID:       b.ID,
		Status:          string(b.Status),
		ActualStartTime: *b.ActualStartTime,
	}, nil
}

type authorizeFunc func(ctx context.Context, store repository.Store, b *domain.Booking) (*domain.ParkingSpace, error)

// ownedBy authorizes the owner of the booked space
func (s *bookingService) ownedBy(ownerID string) authorizeFunc {
	return func(ctx context.Context, store repository.Store, b *domain.Booking) (*domain.ParkingSpace, error) {
		space, err := store.Spaces().GetByID(ctx, b.SpaceID)
		if err != nil {
			return nil, err
		}
		if space.OwnerID != ownerID {
			return nil, domain.ErrBookingNotFound
		}
		return space, nil
	}
}

// activate runs WAITING -> ACTIVE under the booking row lock. A reservation
// past its deadline is expired and committed, then ErrReservationExpired is returned.
func (s *bookingService) activate(ctx context.Context, bookingID string, authorize authorizeFunc) (*domain.Booking, *domain.ParkingSpace, error) {
	if bookingID == "" {
		return nil, nil, domain.ErrInvalidBookingID
	}

	now := s.now()
	var (
		booking *domain.Booking
		space   *domain.ParkingSpace
		expired bool
	)
	err := s.txManager.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		b, err := store.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		sp, err := authorize(ctx, store, b)
		if err != nil {
			return err
		}
		booking, space = b, sp

		if b.IsExpiredAt(now) {
			expired, err = s.expireLocked(ctx, store, b, now)
			return err
		}
		if b.Status != domain.BookingStatusWaiting && b.Status != domain.BookingStatusConfirmed {
			return domain.ErrBookingNotFound
		}

		if err := b.Activate(now); err != nil {
			return err
		}
		return store.Bookings().Update(ctx, b)
	})
	if err != nil {
		return nil, nil, err
	}

	if expired {
		s.afterExpire(ctx, booking, space, TriggerLazy)
		return nil, nil, domain.ErrReservationExpired
	}
	return booking, space, nil
}

// Cancel cancels a booking as its driver or as the space owner
func (s *bookingService) Cancel(ctx context.Context, userID, bookingID string) (*dto.CancelResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.cancel")
	defer span.End()

	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("booking_id", bookingID))

	resp, err := s.cancel(ctx, userID, bookingID, false)
	if err != nil {
		return nil, s.fail(ctx, span, "cancel", err)
	}
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// OwnerCancel cancels a booking on the owner's space
func (s *bookingService) OwnerCancel(ctx context.Context, ownerID, bookingID string) (*dto.CancelResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.owner_cancel")
	defer span.End()

	if ownerID == "" {
		return nil, domain.ErrInvalidUserID
	}
	span.SetAttributes(attribute.String("owner_id", ownerID), attribute.String("booking_id", bookingID))

	resp, err := s.cancel(ctx, ownerID, bookingID, true)
	if err != nil {
		return nil, s.fail(ctx, span, "owner_cancel", err)
	}
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

func (s *bookingService) cancel(ctx context.Context, callerID, bookingID string, ownerOnly bool) (*dto.CancelResponse, error) {
	if bookingID == "" {
		return nil, domain.ErrInvalidBookingID
	}

	now := s.now()
	var (
		booking    *domain.Booking
		space      *domain.ParkingSpace
		actor      domain.Actor
		wasWaiting bool
		expired    bool
	)
	err := s.txManager.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		b, err := store.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		sp, err := store.Spaces().GetByID(ctx, b.SpaceID)
		if err != nil {
			return err
		}
		booking, space = b, sp

		switch {
		case !ownerOnly && b.UserID == callerID:
			actor = domain.ActorUser
		case sp.OwnerID == callerID:
			actor = domain.ActorOwner
		default:
			return domain.ErrBookingNotFound
		}

		if b.IsExpiredAt(now) {
			expired, err = s.expireLocked(ctx, store, b, now)
			return err
		}

		holding := b.Status.IsOpen()
		wasWaiting = b.Status == domain.BookingStatusWaiting
		if err := b.Cancel(actor, now); err != nil {
			return err
		}
		if holding {
			if _, err := store.Ledger().Release(ctx, b.SpaceID); err != nil {
				return err
			}
		}
		return store.Bookings().Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	if expired {
		s.afterExpire(ctx, booking, space, TriggerLazy)
		return nil, domain.ErrReservationExpired
	}

	metrics.RecordCancellation(ctx, booking.SpaceID, string(actor), wasWaiting)
	if actor == domain.ActorOwner {
		s.notify(cancelledByOwnerNotification(space.Name, booking))
	} else {
		s.notify(cancelledByUserNotification(space.OwnerID, space.Name, booking))
	}
	s.publish(ctx, domain.BookingEventCancelled, booking)

	return &dto.CancelResponse{
		BookingID:   booking.ID,
		Status:      string(booking.Status),
		CancelledBy: string(actor),
		Message:     "Booking cancelled successfully",
	}, nil
}

// EndSession closes the caller's running session and settles the bill
func (s *bookingService) EndSession(ctx context.Context, userID, bookingID string, req *dto.EndSessionRequest) (*dto.EndSessionResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.end_session")
	defer span.End()

	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	if bookingID == "" {
		return nil, domain.ErrInvalidBookingID
	}
	method, methodID := domain.DefaultPaymentMethod, ""
	if req != nil {
		m, id, err := paymentChoice(req.PaymentMethod, req.PaymentMethodID)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		method, methodID = m, id
	}
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("booking_id", bookingID),
		attribute.String("payment_method", string(method)),
	)

	now := s.now()
	var (
		booking *domain.Booking
		space   *domain.ParkingSpace
		charge  *domain.Charge
		bill    domain.Bill
	)
	err := s.txManager.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		b, err := store.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, domain.ErrBookingNotFound) {
				return domain.ErrNoActiveSession
			}
			return err
		}
		if b.UserID != userID {
			return domain.ErrNoActiveSession
		}

		bl, err := b.Complete(now, s.feeRate)
		if err != nil {
			return err
		}
		released, err := store.Ledger().Release(ctx, b.SpaceID)
		if err != nil {
			return err
		}
		if err := store.Bookings().Update(ctx, b); err != nil {
			return err
		}

		c := domain.NewCharge(s.newID(), b.ID, bl, method, now)
		c.PaymentMethodID = methodID
		if err := store.Charges().Create(ctx, c); err != nil {
			return err
		}

		booking, space, charge, bill = b, released, c, bl
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "end_session", err)
	}

	metrics.RecordCompletion(ctx, booking.SpaceID,
		float64(booking.DurationMinutes(now)), bill.Amount.Shift(2).IntPart())

	// Settlement failures never undo the completed session.
	if s.payments != nil {
		settled, err := s.payments.Settle(ctx, charge)
		if err != nil {
			span.RecordError(err)
			logger.FromContext(ctx).Warn("charge settlement failed",
				zap.String("charge_id", charge.ID),
				zap.String("booking_id", booking.ID),
				zap.Error(err),
			)
		} else {
			charge = settled
		}
	}

	s.notify(sessionEndedNotification(space.OwnerID, space.Name, booking))
	if charge.Status == domain.ChargeStatusPaid {
		s.notify(paymentSuccessNotification(charge, booking))
	}
	s.publish(ctx, domain.BookingEventCompleted, booking)

	span.SetAttributes(
		attribute.Int("hours", bill.Hours),
		attribute.String("amount", bill.Amount.StringFixed(2)),
		attribute.String("payment_status", string(charge.Status)),
	)
	span.SetStatus(codes.Ok, "")
	return &dto.EndSessionResponse{
		BookingID:     booking.ID,
		Status:        string(booking.Status),
		StartTime:     *booking.ActualStartTime,
		EndTime:       *booking.EndTime,
		Hours:         bill.Hours,
		PricePerHour:  dto.Money(bill.Rate),
		TotalAmount:   dto.Money(bill.Amount),
		PlatformFee:   dto.Money(bill.PlatformFee),
		OwnerAmount:   dto.Money(bill.OwnerAmount),
		PaymentMethod: string(charge.PaymentMethod),
		PaymentStatus: string(charge.Status),
		TransactionID: charge.TransactionID,
		FailureReason: charge.FailureReason,
	}, nil
}

// PaySession settles the unpaid charge of the caller's completed session again
func (s *bookingService) PaySession(ctx context.Context, userID, bookingID string, req *dto.PayRequest) (*dto.PaymentResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.pay_session")
	defer span.End()

	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	if bookingID == "" {
		return nil, domain.ErrInvalidBookingID
	}
	var (
		method   domain.PaymentMethod
		methodID string
	)
	if req != nil && (req.PaymentMethod != "" || req.PaymentMethodID != "") {
		m, id, err := paymentChoice(req.PaymentMethod, req.PaymentMethodID)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		method, methodID = m, id
	}
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("booking_id", bookingID))

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, s.fail(ctx, span, "pay_session", err)
	}
	if b.UserID != userID {
		return nil, s.fail(ctx, span, "pay_session", domain.ErrBookingNotFound)
	}
	if b.Status != domain.BookingStatusCompleted || s.payments == nil {
		return nil, s.fail(ctx, span, "pay_session", domain.ErrInvalidTransition)
	}

	charge, err := s.payments.Retry(ctx, b.ID, method, methodID)
	if err != nil {
		return nil, s.fail(ctx, span, "pay_session", err)
	}
	if charge.Status == domain.ChargeStatusPaid {
		s.notify(paymentSuccessNotification(charge, b))
	}

	span.SetAttributes(attribute.String("payment_status", string(charge.Status)))
	span.SetStatus(codes.Ok, "")
	return &dto.PaymentResponse{
		BookingID:     b.ID,
		ChargeID:      charge.ID,
		Amount:        dto.Money(charge.Amount),
		PaymentMethod: string(charge.PaymentMethod),
		PaymentStatus: string(charge.Status),
		TransactionID: charge.TransactionID,
		FailureReason: charge.FailureReason,
	}, nil
}

// paymentChoice validates how the driver pays. A card reference on its own
// implies card.
func paymentChoice(method, paymentMethodID string) (domain.PaymentMethod, string, error) {
	if paymentMethodID != "" && method == "" {
		return domain.PaymentMethodCard, paymentMethodID, nil
	}
	m, err := domain.ParsePaymentMethod(method)
	if err != nil {
		return "", "", err
	}
	if paymentMethodID != "" && m != domain.PaymentMethodCard {
		return "", "", domain.ErrInvalidPaymentMethod
	}
	return m, paymentMethodID, nil
}

// CheckStatus reports the booking status, expiring a stale reservation
func (s *bookingService) CheckStatus(ctx context.Context, userID, bookingID string) (*dto.StatusResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.check_status")
	defer span.End()

	if bookingID == "" {
		return nil, domain.ErrInvalidBookingID
	}
	span.SetAttributes(attribute.String("booking_id", bookingID))

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, s.fail(ctx, span, "check_status", err)
	}
	if userID != "" && b.UserID != userID {
		return nil, s.fail(ctx, span, "check_status", domain.ErrBookingNotFound)
	}

	now := s.now()
	if b.IsExpiredAt(now) {
		if _, err := s.ExpireBooking(ctx, b.ID, TriggerLazy); err != nil {
			return nil, s.fail(ctx, span, "check_status", err)
		}
		if b, err = s.bookings.GetByID(ctx, bookingID); err != nil {
			return nil, s.fail(ctx, span, "check_status", err)
		}
	}

	span.SetAttributes(attribute.String("status", string(b.Status)))
	span.SetStatus(codes.Ok, "")
	return &dto.StatusResponse{
		BookingID:        b.ID,
		Status:           string(b.Status),
		MinutesRemaining: b.MinutesRemaining(now),
		ReservedUntil:    b.ReservedUntil,
	}, nil
}

// GetActiveBooking returns the caller's open booking, or nil when there is none
func (s *bookingService) GetActiveBooking(ctx context.Context, userID string) (*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get_active")
	defer span.End()

	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	span.SetAttributes(attribute.String("user_id", userID))

	b, err := s.bookings.GetOpenByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			return nil, nil
		}
		return nil, s.fail(ctx, span, "get_active", err)
	}

	now := s.now()
	if b.IsExpiredAt(now) {
		if _, err := s.ExpireBooking(ctx, b.ID, TriggerLazy); err != nil {
			return nil, s.fail(ctx, span, "get_active", err)
		}
		return nil, nil
	}

	span.SetStatus(codes.Ok, "")
	return dto.FromDomain(b, now), nil
}

// ListSessions lists the caller's bookings, newest first
func (s *bookingService) ListSessions(ctx context.Context, userID string, limit, offset int) (*dto.ListResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.list_sessions")
	defer span.End()

	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	if limit < 0 || offset < 0 {
		return nil, domain.ErrInvalidPagination
	}
	if limit == 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	items, err := s.bookings.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, s.fail(ctx, span, "list_sessions", err)
	}

	now := s.now()
	data := make([]*dto.BookingResponse, 0, len(items))
	for _, b := range items {
		data = append(data, dto.FromDomain(b, now))
	}

	span.SetStatus(codes.Ok, "")
	return &dto.ListResponse{
		Data:   data,
		Limit:  limit,
		Offset: offset,
		Count:  len(data),
	}, nil
}

// ExpireBooking expires a WAITING booking past its deadline
func (s *bookingService) ExpireBooking(ctx context.Context, bookingID, trigger string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.expire")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID), attribute.String("trigger", trigger))

	now := s.now()
	var (
		booking *domain.Booking
		space   *domain.ParkingSpace
		expired bool
	)
	err := s.txManager.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		b, err := store.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		sp, err := store.Spaces().GetByID(ctx, b.SpaceID)
		if err != nil {
			return err
		}
		booking, space = b, sp
		expired, err = s.expireLocked(ctx, store, b, now)
		return err
	})
	if err != nil {
		return false, s.fail(ctx, span, "expire", err)
	}

	if expired {
		s.afterExpire(ctx, booking, space, trigger)
	}
	span.SetAttributes(attribute.Bool("expired", expired))
	span.SetStatus(codes.Ok, "")
	return expired, nil
}

// expireLocked applies WAITING -> EXPIRED to a row-locked booking and gives
// its spot back. It is a no-op for a booking that is no longer eligible.
func (s *bookingService) expireLocked(ctx context.Context, store repository.Store, b *domain.Booking, now time.Time) (bool, error) {
	if !b.IsExpiredAt(now) {
		return false, nil
	}
	if err := b.Expire(now); err != nil {
		return false, err
	}
	if _, err := store.Ledger().Release(ctx, b.SpaceID); err != nil {
		return false, err
	}
	if err := store.Bookings().Update(ctx, b); err != nil {
		return false, err
	}
	return true, nil
}

func (s *bookingService) afterExpire(ctx context.Context, b *domain.Booking, space *domain.ParkingSpace, trigger string) {
	metrics.RecordExpiration(ctx, b.SpaceID, trigger)
	name := ""
	if space != nil {
		name = space.Name
	}
	s.notify(expiredNotification(name, b))
	s.publish(ctx, domain.BookingEventExpired, b)
}

func (s *bookingService) notify(n *domain.Notification) {
	if s.notifier != nil {
		s.notifier.Notify(n)
	}
}

// publish sends an event after commit. Failures are logged only.
func (s *bookingService) publish(ctx context.Context, eventType domain.BookingEventType, b *domain.Booking) {
	if err := s.eventPublisher.Publish(ctx, eventType, b); err != nil {
		logger.FromContext(ctx).Warn("failed to publish booking event",
			zap.String("booking_id", b.ID),
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
	}
}

// fail records err on the span. Counter invariant breaks are also logged
// at error level and counted.
func (s *bookingService) fail(ctx context.Context, span trace.Span, op string, err error) error {
	span.SetStatus(codes.Error, err.Error())
	if domain.IsNotFoundError(err) || domain.IsValidationError(err) || domain.IsConflictError(err) ||
		errors.Is(err, domain.ErrReservationExpired) {
		return err
	}

	span.RecordError(err)
	if errors.Is(err, domain.ErrInvariantViolation) {
		metrics.RecordInvariantViolation(ctx, op)
		logger.FromContext(ctx).Error("spot counter invariant violated",
			zap.String("operation", op),
			zap.Error(err),
		)
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
