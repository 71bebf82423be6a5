package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/hellyrj/smart-parking-system/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresNotificationRepository implements NotificationRepository using PostgreSQL
type PostgresNotificationRepository struct {
	db DBTX
}

// NewPostgresNotificationRepository creates a new PostgresNotificationRepository
func NewPostgresNotificationRepository(db DBTX) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

// Create inserts a notification
func (r *PostgresNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.notification.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", n.UserID),
		attribute.String("type", string(n.Type)),
	)

	_, err := r.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, data, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.ID, n.UserID, string(n.Type), n.Title, n.Message, n.Data, n.IsRead, n.CreatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create notification: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ListByUser returns the newest notifications of a user
func (r *PostgresNotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.notification.list_by_user")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID), attribute.Int("limit", limit))

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, type, title, message, data, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`, userID, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0)
	for rows.Next() {
		n := &domain.Notification{}
		var typ string
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.Data, &n.IsRead, &n.CreatedAt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = domain.NotificationType(typ)
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(notifications)))
	span.SetStatus(codes.Ok, "")
	return notifications, nil
}

// MarkRead marks one of the user's notifications as read
func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.notification.mark_read")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID), attribute.String("notification_id", id))

	if _, err := uuid.Parse(id); err != nil {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrNotificationNotFound
	}

	result, err := r.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrNotificationNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// MarkAllRead marks every unread notification of the user as read
func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.notification.mark_all_read")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	result, err := r.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	span.SetAttributes(attribute.Int64("updated", result.RowsAffected()))
	span.SetStatus(codes.Ok, "")
	return result.RowsAffected(), nil
}
