package domain

import "time"

// NotificationType classifies inbox messages
type NotificationType string

const (
	NotificationNewSession           NotificationType = "new_session"
	NotificationSessionEnded         NotificationType = "session_ended"
	NotificationPaymentSuccess       NotificationType = "payment_success"
	NotificationReservationExpired   NotificationType = "reservation_expired"
	NotificationArrivalConfirmed     NotificationType = "arrival_confirmed"
	NotificationReservationCancelled NotificationType = "reservation_cancelled"
)

// Notification is an inbox message for a driver or an owner
type Notification struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt time.Time              `json:"created_at"`
}
