package dto

import (
	"time"

	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/shopspring/decimal"
)

// OwnerSessionResponse represents an open booking on one of the owner's spaces
type OwnerSessionResponse struct {
	BookingID        string     `json:"booking_id"`
	SpaceID          string     `json:"space_id"`
	SpaceName        string     `json:"space_name"`
	UserID           string     `json:"user_id"`
	VehiclePlate     string     `json:"vehicle_plate"`
	VehicleModel     string     `json:"vehicle_model,omitempty"`
	Status           string     `json:"status"`
	StartTime        *time.Time `json:"start_time,omitempty"`
	ReservedUntil    *time.Time `json:"reserved_until,omitempty"`
	DurationMinutes  int        `json:"duration_minutes"`
	MinutesRemaining int        `json:"minutes_remaining"`
	CurrentCost      *string    `json:"current_cost,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// FromOwnedBooking converts an owned booking, pricing ACTIVE ones up to now
func FromOwnedBooking(ob *domain.OwnedBooking, now time.Time, feeRate decimal.Decimal) *OwnerSessionResponse {
	b := ob.Booking
	resp := &OwnerSessionResponse{
		BookingID:        b.ID,
		SpaceID:          b.SpaceID,
		SpaceName:        ob.SpaceName,
		UserID:           b.UserID,
		VehiclePlate:     b.VehiclePlate,
		VehicleModel:     b.VehicleModel,
		Status:           string(b.Status),
		StartTime:        b.ActualStartTime,
		ReservedUntil:    b.ReservedUntil,
		DurationMinutes:  b.DurationMinutes(now),
		MinutesRemaining: b.MinutesRemaining(now),
		CreatedAt:        b.CreatedAt,
	}
	if bill, ok := b.RunningBill(now, feeRate); ok {
		cost := Money(bill.Amount)
		resp.CurrentCost = &cost
	}
	return resp
}

// EarningEntryResponse represents one paid charge
type EarningEntryResponse struct {
	ChargeID    string    `json:"charge_id"`
	BookingID   string    `json:"booking_id"`
	SpaceID     string    `json:"space_id"`
	SpaceName   string    `json:"space_name"`
	Amount      string    `json:"amount"`
	OwnerAmount string    `json:"owner_amount"`
	PaidAt      time.Time `json:"paid_at"`
}

// EarningsResponse represents an owner's earnings summary
type EarningsResponse struct {
	Today  string                  `json:"today"`
	Month  string                  `json:"month"`
	Total  string                  `json:"total"`
	Recent []*EarningEntryResponse `json:"recent"`
}

// FromEarnings converts domain Earnings to EarningsResponse
func FromEarnings(e *domain.Earnings) *EarningsResponse {
	resp := &EarningsResponse{
		Today:  Money(e.Today),
		Month:  Money(e.Month),
		Total:  Money(e.Total),
		Recent: make([]*EarningEntryResponse, 0, len(e.Recent)),
	}
	for _, r := range e.Recent {
		resp.Recent = append(resp.Recent, &EarningEntryResponse{
			ChargeID:    r.ChargeID,
			BookingID:   r.BookingID,
			SpaceID:     r.SpaceID,
			SpaceName:   r.SpaceName,
			Amount:      Money(r.Amount),
			OwnerAmount: Money(r.OwnerAmount),
			PaidAt:      r.PaidAt,
		})
	}
	return resp
}
