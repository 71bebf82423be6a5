package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/hellyrj/smart-parking-system/internal/dto"
	"github.com/hellyrj/smart-parking-system/internal/repository"
	"github.com/hellyrj/smart-parking-system/pkg/logger"
	"github.com/hellyrj/smart-parking-system/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Notifier sends a notification in the background. It never blocks the caller on I/O.
type Notifier interface {
	Notify(n *domain.Notification)
}

// NotificationService stores inbox messages and fans them out to the queue
type NotificationService interface {
	Notifier

	// ListNotifications returns the caller's newest messages
	ListNotifications(ctx context.Context, userID string, limit int) (*dto.NotificationListResponse, error)

	// MarkRead marks one of the caller's messages as read
	MarkRead(ctx context.Context, userID, notificationID string) error

	// MarkAllRead marks every message of the caller as read
	MarkAllRead(ctx context.Context, userID string) (*dto.MarkAllReadResponse, error)

	// Wait blocks until in-flight sends finish
	Wait()
}

// QueuePublisher is the subset of rabbitmq.Publisher used for fan-out
type QueuePublisher interface {
	PublishJSON(ctx context.Context, queue string, v interface{}) error
}

// NotificationServiceConfig contains configuration for the notification service
type NotificationServiceConfig struct {
	Queue       string
	SendTimeout time.Duration
}

type notificationService struct {
	repo    repository.NotificationRepository
	queue   QueuePublisher
	config  NotificationServiceConfig
	now     func() time.Time
	pending sync.WaitGroup
}

// NewNotificationService creates a new notification service. queue may be nil.
func NewNotificationService(repo repository.NotificationRepository, queue QueuePublisher, cfg *NotificationServiceConfig) NotificationService {
	config := NotificationServiceConfig{
		Queue:       "parking.notifications",
		SendTimeout: 5 * time.Second,
	}
	if cfg != nil {
		if cfg.Queue != "" {
			config.Queue = cfg.Queue
		}
		if cfg.SendTimeout > 0 {
			config.SendTimeout = cfg.SendTimeout
		}
	}
	return &notificationService{
		repo:   repo,
		queue:  queue,
		config: config,
		now:    time.Now,
	}
}

func (s *notificationService) Notify(n *domain.Notification) {
	if n == nil || n.UserID == "" {
		return
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		// Detached from the request context.
		ctx, cancel := context.WithTimeout(context.Background(), s.config.SendTimeout)
		defer cancel()

		s.send(ctx, n)
	}()
}

func (s *notificationService) send(ctx context.Context, n *domain.Notification) {
	ctx, span := telemetry.StartSpan(ctx, "service.notification.send")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", n.UserID),
		attribute.String("type", string(n.Type)),
	)

	if err := s.repo.Create(ctx, n); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("failed to store notification",
			zap.String("user_id", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
		return
	}

	if s.queue == nil {
		return
	}
	if err := s.queue.PublishJSON(ctx, s.config.Queue, n); err != nil {
		span.RecordError(err)
		logger.Warn("failed to publish notification",
			zap.String("notification_id", n.ID),
			zap.String("queue", s.config.Queue),
			zap.Error(err),
		)
	}
}

func (s *notificationService) ListNotifications(ctx context.Context, userID string, limit int) (*dto.NotificationListResponse, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	items, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return dto.FromNotifications(items), nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if userID == "" {
		return domain.ErrInvalidUserID
	}
	if notificationID == "" {
		return domain.ErrNotificationNotFound
	}
	return s.repo.MarkRead(ctx, userID, notificationID)
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (*dto.MarkAllReadResponse, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.MarkAllReadResponse{Updated: n}, nil
}

func (s *notificationService) Wait() {
	s.pending.Wait()
}

// Message builders. Data always carries the booking id.

func bookingData(b *domain.Booking) map[string]interface{} {
	return map[string]interface{}{
		"booking_id": b.ID,
		"space_id":   b.SpaceID,
	}
}

func newSessionNotification(ownerID, spaceName string, b *domain.Booking) *domain.Notification {
	return &domain.Notification{
		UserID:  ownerID,
		Type:    domain.NotificationNewSession,
		Title:   "New Reservation",
		Message: "New reservation at " + spaceName,
		Data:    bookingData(b),
	}
}

func arrivalConfirmedNotification(spaceName string, b *domain.Booking) *domain.Notification {
	return &domain.Notification{
		UserID:  b.UserID,
		Type:    domain.NotificationArrivalConfirmed,
		Title:   "Arrival Confirmed",
		Message: "Your arrival at " + spaceName + " has been confirmed by the owner.",
		Data:    bookingData(b),
	}
}

func cancelledByOwnerNotification(spaceName string, b *domain.Booking) *domain.Notification {
	return &domain.Notification{
		UserID:  b.UserID,
		Type:    domain.NotificationReservationCancelled,
		Title:   "Reservation Cancelled",
		Message: "Your reservation at " + spaceName + " has been cancelled by the owner.",
		Data:    bookingData(b),
	}
}

func cancelledByUserNotification(ownerID, spaceName string, b *domain.Booking) *domain.Notification {
	return &domain.Notification{
		UserID:  ownerID,
		Type:    domain.NotificationReservationCancelled,
		Title:   "Reservation Cancelled",
		Message: "Reservation at " + spaceName + " cancelled by user",
		Data:    bookingData(b),
	}
}

func expiredNotification(spaceName string, b *domain.Booking) *domain.Notification {
	return &domain.Notification{
		UserID:  b.UserID,
		Type:    domain.NotificationReservationExpired,
		Title:   "Reservation Expired",
		Message: "Your reservation at " + spaceName + " expired before arrival.",
		Data:    bookingData(b),
	}
}

func sessionEndedNotification(ownerID, spaceName string, b *domain.Booking) *domain.Notification {
	data := bookingData(b)
	if b.TotalAmount.Valid {
		data["total_amount"] = b.TotalAmount.Decimal.StringFixed(2)
	}
	return &domain.Notification{
		UserID:  ownerID,
		Type:    domain.NotificationSessionEnded,
		Title:   "Session Ended",
		Message: "Parking session at " + spaceName + " has ended",
		Data:    data,
	}
}

func paymentSuccessNotification(c *domain.Charge, b *domain.Booking) *domain.Notification {
	data := bookingData(b)
	data["charge_id"] = c.ID
	data["amount"] = c.Amount.StringFixed(2)
	return &domain.Notification{
		UserID:  b.UserID,
		Type:    domain.NotificationPaymentSuccess,
		Title:   "Payment Successful",
		Message: "Payment of " + c.Amount.StringFixed(2) + " received",
		Data:    data,
	}
}
