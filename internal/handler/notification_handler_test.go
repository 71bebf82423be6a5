package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/hellyrj/smart-parking-system/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotificationRouter(userID string, svc *MockNotificationService) *gin.Engine {
	router := setupTestRouterWithAuth(userID)
	h := NewNotificationHandler(svc)
	router.GET("/notifications", h.List)
	router.POST("/notifications/read-all", h.MarkAllRead)
	router.POST("/notifications/:id/read", h.MarkRead)
	return router
}

func TestNotificationHandler_List(t *testing.T) {
	svc := &MockNotificationService{
		ListNotificationsFunc: func(ctx context.Context, userID string, limit int) (*dto.NotificationListResponse, error) {
			assert.Equal(t, "user-1", userID)
			assert.Equal(t, 5, limit)
			return &dto.NotificationListResponse{
				Notifications: []*dto.NotificationResponse{{ID: "n-1", Type: "arrival_confirmed"}},
				UnreadCount:   1,
			}, nil
		},
	}

	w := doJSON(newNotificationRouter("user-1", svc), http.MethodGet, "/notifications?limit=5", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.NotificationListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.UnreadCount)
}

func TestNotificationHandler_MarkRead(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &MockNotificationService{
			MarkReadFunc: func(ctx context.Context, userID, notificationID string) error {
				assert.Equal(t, "n-1", notificationID)
				return nil
			},
		}

		w := doJSON(newNotificationRouter("user-1", svc), http.MethodPost, "/notifications/n-1/read", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("someone else's notification", func(t *testing.T) {
		svc := &MockNotificationService{
			MarkReadFunc: func(ctx context.Context, userID, notificationID string) error {
				return domain.ErrNotificationNotFound
			},
		}

		w := doJSON(newNotificationRouter("user-1", svc), http.MethodPost, "/notifications/n-9/read", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestNotificationHandler_MarkAllRead(t *testing.T) {
	svc := &MockNotificationService{
		MarkAllReadFunc: func(ctx context.Context, userID string) (*dto.MarkAllReadResponse, error) {
			return &dto.MarkAllReadResponse{Updated: 3}, nil
		},
	}

	w := doJSON(newNotificationRouter("user-1", svc), http.MethodPost, "/notifications/read-all", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":3}`, w.Body.String())
}
