package dto

import (
	"time"

	"github.com/hellyrj/smart-parking-system/internal/domain"
)

// ReserveRequest represents a request to hold a spot
type ReserveRequest struct {
	SpaceID      string `json:"space_id" binding:"required"`
	VehiclePlate string `json:"vehicle_plate" binding:"required,max=20"`
	VehicleModel string `json:"vehicle_model,omitempty" binding:"max=100"`
}

// ReserveResponse represents a new reservation
type ReserveResponse struct {
	BookingID     string    `json:"booking_id"`
	SpaceID       string    `json:"space_id"`
	Status        string    `json:"status"`
	ReservedUntil time.Time `json:"reserved_until"`
	PricePerHour  string    `json:"price_per_hour"`
}

// ConfirmResponse represents a reservation turned into a session
type ConfirmResponse struct {
	BookingID       string    `json:"booking_id"`
	Status          string    `json:"status"`
	ActualStartTime time.Time `json:"actual_start_time"`
}

// CancelResponse represents a cancelled booking
type CancelResponse struct {
	BookingID   string `json:"booking_id"`
	Status      string `json:"status"`
	CancelledBy string `json:"cancelled_by"`
	Message     string `json:"message"`
}

// EndSessionRequest represents a request to end a session
type EndSessionRequest struct {
	PaymentMethod   string `json:"payment_method,omitempty"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

// PayRequest settles an unpaid session again
type PayRequest struct {
	PaymentMethod   string `json:"payment_method,omitempty"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

// PaymentResponse is the state of a session's charge
type PaymentResponse struct {
	BookingID     string `json:"booking_id"`
	ChargeID      string `json:"charge_id"`
	Amount        string `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	PaymentStatus string `json:"payment_status"`
	TransactionID string `json:"transaction_id,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// EndSessionResponse represents a closed session and its bill
type EndSessionResponse struct {
	BookingID     string    `json:"booking_id"`
	Status        string    `json:"status"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Hours         int       `json:"hours"`
	PricePerHour  string    `json:"price_per_hour"`
	TotalAmount   string    `json:"total_amount"`
	PlatformFee   string    `json:"platform_fee"`
	OwnerAmount   string    `json:"owner_amount"`
	PaymentMethod string    `json:"payment_method"`
	PaymentStatus string    `json:"payment_status"`
	TransactionID string    `json:"transaction_id,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

// StatusResponse represents a booking status check
type StatusResponse struct {
	BookingID        string     `json:"booking_id"`
	Status           string     `json:"status"`
	MinutesRemaining int        `json:"minutes_remaining"`
	ReservedUntil    *time.Time `json:"reserved_until,omitempty"`
}

// BookingResponse represents a booking in API responses
type BookingResponse struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	SpaceID            string     `json:"space_id"`
	VehiclePlate       string     `json:"vehicle_plate"`
	VehicleModel       string     `json:"vehicle_model,omitempty"`
	Kind               string     `json:"kind"`
	Status             string     `json:"status"`
	PricePerHour       string     `json:"price_per_hour"`
	ReservedUntil      *time.Time `json:"reserved_until,omitempty"`
	ActualStartTime    *time.Time `json:"actual_start_time,omitempty"`
	ArrivalConfirmedAt *time.Time `json:"arrival_confirmed_at,omitempty"`
	EndTime            *time.Time `json:"end_time,omitempty"`
	TotalAmount        *string    `json:"total_amount,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty"`
	MinutesRemaining   int        `json:"minutes_remaining"`
	CreatedAt          time.Time  `json:"created_at"`
}

// FromDomain converts a domain Booking to BookingResponse
func FromDomain(b *domain.Booking, now time.Time) *BookingResponse {
	resp := &BookingResponse{
		ID:                 b.ID,
		UserID:             b.UserID,
		SpaceID:            b.SpaceID,
		VehiclePlate:       b.VehiclePlate,
		VehicleModel:       b.VehicleModel,
		Kind:               string(b.Kind),
		Status:             string(b.Status),
		PricePerHour:       Money(b.PricePerHour),
		ReservedUntil:      b.ReservedUntil,
		ActualStartTime:    b.ActualStartTime,
		ArrivalConfirmedAt: b.ArrivalConfirmedAt,
		EndTime:            b.EndTime,
		CancelledBy:        string(b.CancelledBy),
		MinutesRemaining:   b.MinutesRemaining(now),
		CreatedAt:          b.CreatedAt,
	}
	if b.TotalAmount.Valid {
		amount := Money(b.TotalAmount.Decimal)
		resp.TotalAmount = &amount
	}
	return resp
}
