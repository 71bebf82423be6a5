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
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	uniqueViolation = "23505"
	openBookingIdx  = "ux_bookings_user_open"
)

const bookingColumns = `
	b.id, b.user_id, b.space_id, b.vehicle_plate, b.vehicle_model, b.kind, b.status,
	b.price_per_hour, b.reserved_until, b.actual_start_time, b.arrival_confirmed_at,
	b.end_time, b.total_amount, b.cancelled_by, b.created_at, b.updated_at`

// PostgresBookingRepository implements BookingRepository using PostgreSQL
type PostgresBookingRepository struct {
	db DBTX
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository
func NewPostgresBookingRepository(db DBTX) *PostgresBookingRepository {
	return &PostgresBookingRepository{db: db}
}

// Create creates a new booking record in the database
func (r *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("user_id", booking.UserID),
		attribute.String("space_id", booking.SpaceID),
	)

	query := `
		INSERT INTO bookings (
			id, user_id, space_id, vehicle_plate, vehicle_model, kind, status,
			price_per_hour, reserved_until, actual_start_time, arrival_confirmed_at,
			end_time, total_amount, cancelled_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15, $16
		)
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.UserID,
		booking.SpaceID,
		booking.VehiclePlate,
		booking.VehicleModel,
		string(booking.Kind),
		booking.Status.String(),
		booking.PricePerHour,
		booking.ReservedUntil,
		booking.ActualStartTime,
		booking.ArrivalConfirmedAt,
		booking.EndTime,
		booking.TotalAmount,
		string(booking.CancelledBy),
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == openBookingIdx {
			span.SetStatus(codes.Error, "already booked")
			return domain.ErrAlreadyBooked
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create booking: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a booking by its ID
func (r *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return r.get(ctx, "repo.postgres.booking.get_by_id", id, "")
}

// GetForUpdate retrieves a booking and locks its row
func (r *PostgresBookingRepository) GetForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	return r.get(ctx, "repo.postgres.booking.get_for_update", id, " FOR UPDATE")
}

func (r *PostgresBookingRepository) get(ctx context.Context, spanName, id, suffix string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	if _, err := uuid.Parse(id); err != nil {
		span.SetStatus(codes.Error, "not found")
		return nil, domain.ErrBookingNotFound
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = $1` + suffix
	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrBookingNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// Update persists the lifecycle fields of a booking
func (r *PostgresBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.update")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("status", booking.Status.String()),
	)

	query := `
		UPDATE bookings SET
			kind = $2,
			status = $3,
			reserved_until = $4,
			actual_start_time = $5,
			arrival_confirmed_at = $6,
			end_time = $7,
			total_amount = $8,
			cancelled_by = $9,
			updated_at = $10
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query,
		booking.ID,
		string(booking.Kind),
		booking.Status.String(),
		booking.ReservedUntil,
		booking.ActualStartTime,
		booking.ArrivalConfirmedAt,
		booking.EndTime,
		booking.TotalAmount,
		string(booking.CancelledBy),
		booking.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update booking: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrBookingNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// LockUser takes a transaction-scoped advisory lock keyed by user id
func (r *PostgresBookingRepository) LockUser(ctx context.Context, userID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.lock_user")
	defer span.End()

	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to lock user: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetOpenByUser returns the user's WAITING, CONFIRMED or ACTIVE booking
func (r *PostgresBookingRepository) GetOpenByUser(ctx context.Context, userID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_open_by_user")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.user_id = $1 AND b.status = ANY($2)
		ORDER BY b.created_at DESC
		LIMIT 1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, userID, statusStrings(domain.OpenStatuses)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "none")
			return nil, domain.ErrBookingNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get open booking: %w", err)
	}

	span.SetAttributes(attribute.String("booking_id", booking.ID))
	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// ListByUser returns the user's bookings, newest first
func (r *PostgresBookingRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.list_by_user")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC, b.id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*domain.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(bookings)))
	span.SetStatus(codes.Ok, "")
	return bookings, nil
}

// ListExpiredIDs returns WAITING bookings past their deadline
func (r *PostgresBookingRepository) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.list_expired")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	query := `
		SELECT id::text
		FROM bookings
		WHERE status = 'WAITING'
			AND reserved_until IS NOT NULL
			AND reserved_until < $1
		ORDER BY reserved_until
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list expired reservations: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating expired reservations: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(ids)))
	span.SetStatus(codes.Ok, "")
	return ids, nil
}

// ListByOwner returns bookings in the given statuses on spaces owned by ownerID, oldest first
func (r *PostgresBookingRepository) ListByOwner(ctx context.Context, ownerID string, statuses []domain.BookingStatus) ([]*domain.OwnedBooking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.list_by_owner")
	defer span.End()

	span.SetAttributes(attribute.String("owner_id", ownerID))

	query := `SELECT ` + bookingColumns + `, s.name
		FROM bookings b
		JOIN parking_spaces s ON s.id = b.space_id
		WHERE s.owner_id = $1 AND b.status = ANY($2)
		ORDER BY b.created_at, b.id`

	rows, err := r.db.Query(ctx, query, ownerID, statusStrings(statuses))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list owner bookings: %w", err)
	}
	defer rows.Close()

	owned := make([]*domain.OwnedBooking, 0)
	for rows.Next() {
		var spaceName string
		booking, err := scanBooking(rows, &spaceName)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		owned = append(owned, &domain.OwnedBooking{Booking: booking, SpaceName: spaceName})
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating owner bookings: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(owned)))
	span.SetStatus(codes.Ok, "")
	return owned, nil
}

// scanBooking scans bookingColumns followed by any extra destinations
func scanBooking(row pgx.Row, extra ...any) (*domain.Booking, error) {
	booking := &domain.Booking{}
	var kind, status, cancelledBy string

	dest := append([]any{
		&booking.ID,
		&booking.UserID,
		&booking.SpaceID,
		&booking.VehiclePlate,
		&booking.VehicleModel,
		&kind,
		&status,
		&booking.PricePerHour,
		&booking.ReservedUntil,
		&booking.ActualStartTime,
		&booking.ArrivalConfirmedAt,
		&booking.EndTime,
		&booking.TotalAmount,
		&cancelledBy,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	booking.Kind = domain.BookingKind(kind)
	booking.Status = domain.BookingStatus(status)
	booking.CancelledBy = domain.Actor(cancelledBy)
	return booking, nil
}

func statusStrings(statuses []domain.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.String()
	}
	return out
}
