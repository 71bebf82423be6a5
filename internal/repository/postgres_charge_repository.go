package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/hellyrj/smart-parking-system/pkg/telemetry"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrChargeNotFound is returned when a booking has no charge
var ErrChargeNotFound = fmt.Errorf("charge %w", domain.ErrNotFound)

// PostgresChargeRepository implements ChargeRepository using PostgreSQL
type PostgresChargeRepository struct {
	db DBTX
}

// NewPostgresChargeRepository creates a new PostgresChargeRepository
func NewPostgresChargeRepository(db DBTX) *PostgresChargeRepository {
	return &PostgresChargeRepository{db: db}
}

// Create inserts a charge. booking_id is unique so a booking is charged once.
func (r *PostgresChargeRepository) Create(ctx context.Context, charge *domain.Charge) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.charge.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("charge_id", charge.ID),
		attribute.String("booking_id", charge.BookingID),
		attribute.String("amount", charge.Amount.StringFixed(2)),
	)

	query := `
		INSERT INTO charges (
			id, booking_id, amount, platform_fee, owner_amount, payment_method,
			status, transaction_id, failure_reason, paid_at, created_at, updated_at,
			payment_method_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(ctx, query,
		charge.ID,
		charge.BookingID,
		charge.Amount,
		charge.PlatformFee,
		charge.OwnerAmount,
		string(charge.PaymentMethod),
		string(charge.Status),
		charge.TransactionID,
		charge.FailureReason,
		charge.PaidAt,
		charge.CreatedAt,
		charge.UpdatedAt,
		charge.PaymentMethodID,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create charge: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByBookingID retrieves the charge of a booking
func (r *PostgresChargeRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Charge, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.charge.get_by_booking")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	if _, err := uuid.Parse(bookingID); err != nil {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrChargeNotFound
	}

	query := `
		SELECT id, booking_id, amount, platform_fee, owner_amount, payment_method,
			status, transaction_id, failure_reason, paid_at, created_at, updated_at,
			payment_method_id
		FROM charges
		WHERE booking_id = $1
	`

	c := &domain.Charge{}
	var method, status string
	err := r.db.QueryRow(ctx, query, bookingID).Scan(
		&c.ID, &c.BookingID, &c.Amount, &c.PlatformFee, &c.OwnerAmount, &method,
		&status, &c.TransactionID, &c.FailureReason, &c.PaidAt, &c.CreatedAt, &c.UpdatedAt,
		&c.PaymentMethodID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, ErrChargeNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get charge: %w", err)
	}
	c.PaymentMethod = domain.PaymentMethod(method)
	c.Status = domain.ChargeStatus(status)

	span.SetStatus(codes.Ok, "")
	return c, nil
}

// UpdateSettlement records a settlement attempt. PAID rows never change.
func (r *PostgresChargeRepository) UpdateSettlement(ctx context.Context, charge *domain.Charge) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.charge.update_settlement")
	defer span.End()

	span.SetAttributes(
		attribute.String("charge_id", charge.ID),
		attribute.String("status", string(charge.Status)),
	)

	query := `
		UPDATE charges SET
			status = $2,
			transaction_id = $3,
			failure_reason = $4,
			paid_at = $5,
			updated_at = $6,
			payment_method = $7,
			payment_method_id = $8
		WHERE id = $1 AND status IN ('PENDING', 'FAILED')
	`

	result, err := r.db.Exec(ctx, query,
		charge.ID,
		string(charge.Status),
		charge.TransactionID,
		charge.FailureReason,
		charge.PaidAt,
		charge.UpdatedAt,
		string(charge.PaymentMethod),
		charge.PaymentMethodID,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update charge: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "already paid")
		return fmt.Errorf("charge %s is already paid: %w", charge.ID, domain.ErrInvalidTransition)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Earnings sums owner_amount of PAID charges on the owner's spaces
func (r *PostgresChargeRepository) Earnings(ctx context.Context, ownerID string, dayStart, monthStart time.Time, recent int) (*domain.Earnings, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.charge.earnings")
	defer span.End()

	span.SetAttributes(attribute.String("owner_id", ownerID))

	totals := `
		SELECT
			COALESCE(SUM(c.owner_amount) FILTER (WHERE c.paid_at >= $2), 0),
			COALESCE(SUM(c.owner_amount) FILTER (WHERE c.paid_at >= $3), 0),
			COALESCE(SUM(c.owner_amount), 0)
		FROM charges c
		JOIN bookings b ON b.id = c.booking_id
		JOIN parking_spaces s ON s.id = b.space_id
		WHERE s.owner_id = $1 AND c.status = 'PAID'
	`

	earnings := &domain.Earnings{Recent: make([]*domain.EarningEntry, 0)}
	if err := r.db.QueryRow(ctx, totals, ownerID, dayStart, monthStart).Scan(
		&earnings.Today, &earnings.Month, &earnings.Total,
	); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to sum earnings: %w", err)
	}

	recentQuery := `
		SELECT c.id, c.booking_id, s.id, s.name, c.amount, c.owner_amount, c.paid_at
		FROM charges c
		JOIN bookings b ON b.id = c.booking_id
		JOIN parking_spaces s ON s.id = b.space_id
		WHERE s.owner_id = $1 AND c.status = 'PAID'
		ORDER BY c.paid_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, recentQuery, ownerID, recent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list recent earnings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e := &domain.EarningEntry{}
		if err := rows.Scan(&e.ChargeID, &e.BookingID, &e.SpaceID, &e.SpaceName, &e.Amount, &e.OwnerAmount, &e.PaidAt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan earning: %w", err)
		}
		earnings.Recent = append(earnings.Recent, e)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating earnings: %w", err)
	}

	span.SetAttributes(attribute.String("total", earnings.Total.StringFixed(2)))
	span.SetStatus(codes.Ok, "")
	return earnings, nil
}
