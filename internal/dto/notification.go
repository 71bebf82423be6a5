package dto

import (
	"time"

	"github.com/hellyrj/smart-parking-system/internal/domain"
)

// NotificationResponse represents an inbox message
type NotificationResponse struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt time.Time              `json:"created_at"`
}

// NotificationListResponse represents the caller's inbox
type NotificationListResponse struct {
	Notifications []*NotificationResponse `json:"notifications"`
	UnreadCount   int                     `json:"unread_count"`
}

// MarkAllReadResponse reports how many messages changed
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// FromNotifications converts domain notifications to a list response
func FromNotifications(items []*domain.Notification) *NotificationListResponse {
	resp := &NotificationListResponse{
		Notifications: make([]*NotificationResponse, 0, len(items)),
	}
	for _, n := range items {
		if !n.IsRead {
			resp.UnreadCount++
		}
		resp.Notifications = append(resp.Notifications, &NotificationResponse{
			ID:        n.ID,
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			Data:      n.Data,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return resp
}
