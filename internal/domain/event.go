package domain

import "time"

// BookingEventType is the type of a booking lifecycle event
type BookingEventType string

const (
	BookingEventReserved  BookingEventType = "booking.reserved"
	BookingEventConfirmed BookingEventType = "booking.confirmed"
	BookingEventCancelled BookingEventType = "booking.cancelled"
	BookingEventExpired   BookingEventType = "booking.expired"
	BookingEventCompleted BookingEventType = "booking.completed"
)

// BookingEvent is published after a lifecycle transition commits
type BookingEvent struct {
	EventID    string           `json:"event_id"`
	EventType  BookingEventType `json:"event_type"`
	OccurredAt time.Time        `json:"occurred_at"`
	Version    int              `json:"version"`
	Data       BookingEventData `json:"data"`
}

// BookingEventData is the booking snapshot carried by an event
type BookingEventData struct {
	BookingID     string        `json:"booking_id"`
	UserID        string        `json:"user_id"`
	SpaceID       string        `json:"space_id"`
	Status        BookingStatus `json:"status"`
	ReservedUntil *time.Time    `json:"reserved_until,omitempty"`
	EndTime       *time.Time    `json:"end_time,omitempty"`
	TotalAmount   string        `json:"total_amount,omitempty"`
	CancelledBy   Actor         `json:"cancelled_by,omitempty"`
}

// NewBookingEvent snapshots b into an event
func NewBookingEvent(id string, eventType BookingEventType, b *Booking, now time.Time) *BookingEvent {
	data := BookingEventData{
		BookingID:     b.ID,
		UserID:        b.UserID,
		SpaceID:       b.SpaceID,
		Status:        b.Status,
		ReservedUntil: b.ReservedUntil,
		EndTime:       b.EndTime,
		CancelledBy:   b.CancelledBy,
	}
	if b.TotalAmount.Valid {
		data.TotalAmount = b.TotalAmount.Decimal.StringFixed(2)
	}
	return &BookingEvent{
		EventID:    id,
		EventType:  eventType,
		OccurredAt: now,
		Version:    1,
		Data:       data,
	}
}
