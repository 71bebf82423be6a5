package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusWaiting   BookingStatus = "WAITING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusActive    BookingStatus = "ACTIVE"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusExpired   BookingStatus = "EXPIRED"
)

// OpenStatuses are the statuses that hold a spot
var OpenStatuses = []BookingStatus{BookingStatusWaiting, BookingStatusConfirmed, BookingStatusActive}

// IsValid checks if the status is a valid BookingStatus
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusWaiting, BookingStatusConfirmed, BookingStatusActive,
		BookingStatusCompleted, BookingStatusCancelled, BookingStatusExpired:
		return true
	}
	return false
}

// IsOpen reports whether the booking still holds capacity
func (s BookingStatus) IsOpen() bool {
	switch s {
	case BookingStatusWaiting, BookingStatusConfirmed, BookingStatusActive:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s BookingStatus) IsTerminal() bool {
	return s.IsValid() && !s.IsOpen()
}

// String returns the string representation of BookingStatus
func (s BookingStatus) String() string {
	return string(s)
}

// BookingKind tells a pre-arrival hold from a running session
type BookingKind string

const (
	BookingKindReservation BookingKind = "RESERVATION"
	BookingKindActive      BookingKind = "ACTIVE"
)

// Actor identifies who ended a booking early
type Actor string

const (
	ActorUser   Actor = "user"
	ActorOwner  Actor = "owner"
	ActorSystem Actor = "system"
)

// Vehicle is what the driver parks
type Vehicle struct {
	Plate string `json:"vehicle_plate"`
	Model string `json:"vehicle_model"`
}

// Booking is a driver's claim on one spot, from reservation to session close
type Booking struct {
	ID                 string              `json:"id"`
	UserID             string              `json:"user_id"`
	SpaceID            string              `json:"space_id"`
	VehiclePlate       string              `json:"vehicle_plate"`
	VehicleModel       string              `json:"vehicle_model"`
	Kind               BookingKind         `json:"kind"`
	Status             BookingStatus       `json:"status"`
	PricePerHour       decimal.Decimal     `json:"price_per_hour"`
	ReservedUntil      *time.Time          `json:"reserved_until,omitempty"`
	ActualStartTime    *time.Time          `json:"actual_start_time,omitempty"`
	ArrivalConfirmedAt *time.Time          `json:"arrival_confirmed_at,omitempty"`
	EndTime            *time.Time          `json:"end_time,omitempty"`
	TotalAmount        decimal.NullDecimal `json:"total_amount"`
	CancelledBy        Actor               `json:"cancelled_by,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// NewReservation creates a WAITING booking holding a spot until now+ttl.
// The space rate is captured so later price changes do not affect it.
func NewReservation(id, userID string, space *ParkingSpace, vehicle Vehicle, now time.Time, ttl time.Duration) *Booking {
	deadline := now.Add(ttl)
	return &Booking{
		ID:            id,
		UserID:        userID,
		SpaceID:       space.ID,
		VehiclePlate:  strings.TrimSpace(vehicle.Plate),
		VehicleModel:  strings.TrimSpace(vehicle.Model),
		Kind:          BookingKindReservation,
		Status:        BookingStatusWaiting,
		PricePerHour:  space.PricePerHour,
		ReservedUntil: &deadline,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsExpiredAt reports whether a WAITING booking has passed its deadline
func (b *Booking) IsExpiredAt(now time.Time) bool {
	if b.Status != BookingStatusWaiting || b.ReservedUntil == nil {
		return false
	}
	return now.After(*b.ReservedUntil)
}

// MinutesRemaining is the whole minutes left on a WAITING hold, rounded up.
// Zero for any other status or once the deadline passed.
func (b *Booking) MinutesRemaining(now time.Time) int {
	if b.Status != BookingStatusWaiting || b.ReservedUntil == nil {
		return 0
	}
	left := b.ReservedUntil.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Minute - 1) / time.Minute)
}

// Activate turns a WAITING hold into a running session.
// A hold past its deadline returns ErrReservationExpired and is left untouched
// so the caller can Expire it.
func (b *Booking) Activate(now time.Time) error {
	if b.Status != BookingStatusWaiting && b.Status != BookingStatusConfirmed {
		return ErrInvalidTransition
	}
	if b.IsExpiredAt(now) {
		return ErrReservationExpired
	}

	b.Status = BookingStatusActive
	b.Kind = BookingKindActive
	b.ActualStartTime = &now
	b.ArrivalConfirmedAt = &now
	b.ReservedUntil = nil
	b.UpdatedAt = now
	return nil
}

// Cancel ends an open booking without a charge. Drivers may only cancel
// before arrival; space owners may also cancel a running session.
func (b *Booking) Cancel(by Actor, now time.Time) error {
	switch b.Status {
	case BookingStatusWaiting, BookingStatusConfirmed:
	case BookingStatusActive:
		if by != ActorOwner {
			return ErrInvalidTransition
		}
	default:
		return ErrInvalidTransition
	}

	b.Status = BookingStatusCancelled
	b.CancelledBy = by
	b.EndTime = &now
	b.ReservedUntil = nil
	b.UpdatedAt = now
	return nil
}

// Expire closes a WAITING hold whose deadline has passed
func (b *Booking) Expire(now time.Time) error {
	if !b.IsExpiredAt(now) {
		return ErrInvalidTransition
	}

	b.Status = BookingStatusExpired
	b.CancelledBy = ActorSystem
	b.EndTime = &now
	b.ReservedUntil = nil
	b.UpdatedAt = now
	return nil
}

// Complete closes an ACTIVE session and bills it at the captured rate
func (b *Booking) Complete(now time.Time, feeRate decimal.Decimal) (Bill, error) {
	if b.Status != BookingStatusActive || b.ActualStartTime == nil {
		return Bill{}, ErrNoActiveSession
	}

	bill := CalculateBill(*b.ActualStartTime, now, b.PricePerHour, feeRate)
	b.Status = BookingStatusCompleted
	b.EndTime = &now
	b.TotalAmount = decimal.NewNullDecimal(bill.Amount)
	b.UpdatedAt = now
	return bill, nil
}

// RunningBill is what the session would cost if it ended at now
func (b *Booking) RunningBill(now time.Time, feeRate decimal.Decimal) (Bill, bool) {
	if b.Status != BookingStatusActive || b.ActualStartTime == nil {
		return Bill{}, false
	}
	return CalculateBill(*b.ActualStartTime, now, b.PricePerHour, feeRate), true
}

// DurationMinutes is the elapsed session time, or time since reservation while WAITING
func (b *Booking) DurationMinutes(now time.Time) int {
	start := b.CreatedAt
	if b.ActualStartTime != nil {
		start = *b.ActualStartTime
	}
	end := now
	if b.EndTime != nil {
		end = *b.EndTime
	}
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}

// OwnedBooking is a booking seen from the space owner's side
type OwnedBooking struct {
	Booking   *Booking
	SpaceName string
}
