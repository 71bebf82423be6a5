package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/hellyrj/smart-parking-system/internal/dto"
)

// MockBookingService is a mock implementation of BookingService
type MockBookingService struct {
	ReserveFunc          func(ctx context.Context, userID string, req *dto.ReserveRequest) (*dto.ReserveResponse, error)
	ConfirmFunc          func(ctx context.Context, userID, bookingID string) (*dto.ConfirmResponse, error)
	CancelFunc           func(ctx context.Context, userID, bookingID string) (*dto.CancelResponse, error)
	EndSessionFunc       func(ctx context.Context, userID, bookingID string, req *dto.EndSessionRequest) (*dto.EndSessionResponse, error)
	PaySessionFunc       func(ctx context.Context, userID, bookingID string, req *dto.PayRequest) (*dto.PaymentResponse, error)
	CheckStatusFunc      func(ctx context.Context, userID, bookingID string) (*dto.StatusResponse, error)
	GetActiveBookingFunc func(ctx context.Context, userID string) (*dto.BookingResponse, error)
	ListSessionsFunc     func(ctx context.Context, userID string, limit, offset int) (*dto.ListResponse, error)
	ConfirmArrivalFunc   func(ctx context.Context, ownerID, bookingID string) (*dto.ConfirmResponse, error)
	OwnerCancelFunc      func(ctx context.Context, ownerID, bookingID string) (*dto.CancelResponse, error)
	ExpireBookingFunc    func(ctx context.Context, bookingID, trigger string) (bool, error)
}

func (m *MockBookingService) Reserve(ctx context.Context, userID string, req *dto.ReserveRequest) (*dto.ReserveResponse, error) {
	if m.ReserveFunc != nil {
		return m.ReserveFunc(ctx, userID, req)
	}
	return nil, nil
}

func (m *MockBookingService) Confirm(ctx context.Context, userID, bookingID string) (*dto.ConfirmResponse, error) {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, userID, bookingID)
	}
	return nil, nil
}

func (m *MockBookingService) Cancel(ctx context.Context, userID, bookingID string) (*dto.CancelResponse, error) {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, userID, bookingID)
	}
	return nil, nil
}

func (m *MockBookingService) EndSession(ctx context.Context, userID, bookingID string, req *dto.EndSessionRequest) (*dto.EndSessionResponse, error) {
	if m.EndSessionFunc != nil {
		return m.EndSessionFunc(ctx, userID, bookingID, req)
	}
	return nil, nil
}

func (m *MockBookingService) PaySession(ctx context.Context, userID, bookingID string, req *dto.PayRequest) (*dto.PaymentResponse, error) {
	if m.PaySessionFunc != nil {
		return m.PaySessionFunc(ctx, userID, bookingID, req)
	}
	return nil, nil
}

func (m *MockBookingService) CheckStatus(ctx context.Context, userID, bookingID string) (*dto.StatusResponse, error) {
	if m.CheckStatusFunc != nil {
		return m.CheckStatusFunc(ctx, userID, bookingID)
	}
	return nil, nil
}

func (m *MockBookingService) GetActiveBooking(ctx context.Context, userID string) (*dto.BookingResponse, error) {
	if m.GetActiveBookingFunc != nil {
		return m.GetActiveBookingFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockBookingService) ListSessions(ctx context.Context, userID string, limit, offset int) (*dto.ListResponse, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx, userID, limit, offset)
	}
	return nil, nil
}

func (m *MockBookingService) ConfirmArrival(ctx context.Context, ownerID, bookingID string) (*dto.ConfirmResponse, error) {
	if m.ConfirmArrivalFunc != nil {
		return m.ConfirmArrivalFunc(ctx, ownerID, bookingID)
	}
	return nil, nil
}

func (m *MockBookingService) OwnerCancel(ctx context.Context, ownerID, bookingID string) (*dto.CancelResponse, error) {
	if m.OwnerCancelFunc != nil {
		return m.OwnerCancelFunc(ctx, ownerID, bookingID)
	}
	return nil, nil
}

func (m *MockBookingService) ExpireBooking(ctx context.Context, bookingID, trigger string) (bool, error) {
	if m.ExpireBookingFunc != nil {
		return m.ExpireBookingFunc(ctx, bookingID, trigger)
	}
	return false, nil
}

// MockSearchService is a mock implementation of SearchService
type MockSearchService struct {
	SearchFunc func(ctx context.Context, lat, lng, radiusKm float64, limit int) (*dto.SearchResponse, error)
}

func (m *MockSearchService) Search(ctx context.Context, lat, lng, radiusKm float64, limit int) (*dto.SearchResponse, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, lat, lng, radiusKm, limit)
	}
	return &dto.SearchResponse{}, nil
}

// MockOwnerService is a mock implementation of OwnerService
type MockOwnerService struct {
	ActiveSessionsFunc func(ctx context.Context, ownerID string) ([]*dto.OwnerSessionResponse, error)
	ReservationsFunc   func(ctx context.Context, ownerID string) ([]*dto.OwnerSessionResponse, error)
	EarningsFunc       func(ctx context.Context, ownerID string) (*dto.EarningsResponse, error)
}

func (m *MockOwnerService) ActiveSessions(ctx context.Context, ownerID string) ([]*dto.OwnerSessionResponse, error) {
	if m.ActiveSessionsFunc != nil {
		return m.ActiveSessionsFunc(ctx, ownerID)
	}
	return nil, nil
}

func (m *MockOwnerService) Reservations(ctx context.Context, ownerID string) ([]*dto.OwnerSessionResponse, error) {
	if m.ReservationsFunc != nil {
		return m.ReservationsFunc(ctx, ownerID)
	}
	return nil, nil
}

func (m *MockOwnerService) Earnings(ctx context.Context, ownerID string) (*dto.EarningsResponse, error) {
	if m.EarningsFunc != nil {
		return m.EarningsFunc(ctx, ownerID)
	}
	return &dto.EarningsResponse{}, nil
}

// MockNotificationService is a mock implementation of NotificationService
type MockNotificationService struct {
	ListNotificationsFunc func(ctx context.Context, userID string, limit int) (*dto.NotificationListResponse, error)
	MarkReadFunc          func(ctx context.Context, userID, notificationID string) error
	MarkAllReadFunc       func(ctx context.Context, userID string) (*dto.MarkAllReadResponse, error)
}

func (m *MockNotificationService) Notify(_ *domain.Notification) {}

func (m *MockNotificationService) Wait() {}

func (m *MockNotificationService) ListNotifications(ctx context.Context, userID string, limit int) (*dto.NotificationListResponse, error) {
	if m.ListNotificationsFunc != nil {
		return m.ListNotificationsFunc(ctx, userID, limit)
	}
	return &dto.NotificationListResponse{}, nil
}

func (m *MockNotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, userID, notificationID)
	}
	return nil
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, userID string) (*dto.MarkAllReadResponse, error) {
	if m.MarkAllReadFunc != nil {
		return m.MarkAllReadFunc(ctx, userID)
	}
	return &dto.MarkAllReadResponse{}, nil
}

// setupTestRouterWithAuth builds a router whose requests carry the given user id
func setupTestRouterWithAuth(userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	return router
}
