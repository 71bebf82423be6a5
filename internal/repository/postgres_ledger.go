package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/hellyrj/smart-parking-system/pkg/telemetry"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresLedger mutates spot counters under a row lock.
// The counter rules live in domain.ParkingSpace; this type only loads and stores.
type PostgresLedger struct {
	db DBTX
}

// NewPostgresLedger creates a ledger bound to db, normally a pgx.Tx
func NewPostgresLedger(db DBTX) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Claim takes one spot from spaceID
func (l *PostgresLedger) Claim(ctx context.Context, spaceID string) (*domain.ParkingSpace, error) {
	return l.apply(ctx, "repo.postgres.ledger.claim", spaceID, (*domain.ParkingSpace).Claim)
}

// Release gives one spot back to spaceID
func (l *PostgresLedger) Release(ctx context.Context, spaceID string) (*domain.ParkingSpace, error) {
	return l.apply(ctx, "repo.postgres.ledger.release", spaceID, (*domain.ParkingSpace).Release)
}

func (l *PostgresLedger) apply(ctx context.Context, spanName, spaceID string, op func(*domain.ParkingSpace) error) (*domain.ParkingSpace, error) {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	span.SetAttributes(attribute.String("space_id", spaceID))

	space, err := l.lock(ctx, spaceID)
	if err != nil {
		if !errors.Is(err, domain.ErrSpaceNotFound) {
			span.RecordError(err)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := op(space); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	counts := space.Counts()
	_, err = l.db.Exec(ctx, `
		UPDATE parking_spaces
		SET available_spots = $2, reserved_spots = $3, updated_at = NOW()
		WHERE id = $1
	`, spaceID, counts.Available, counts.Reserved)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to update spot counters: %w", err)
	}

	span.SetAttributes(
		attribute.Int("available_spots", counts.Available),
		attribute.Int("reserved_spots", counts.Reserved),
	)
	span.SetStatus(codes.Ok, "")
	return space, nil
}

// lock loads the space row FOR UPDATE
func (l *PostgresLedger) lock(ctx context.Context, spaceID string) (*domain.ParkingSpace, error) {
	if _, err := uuid.Parse(spaceID); err != nil {
		return nil, domain.ErrSpaceNotFound
	}

	query := `SELECT ` + spaceColumns + ` FROM parking_spaces s WHERE s.id = $1 FOR UPDATE`
	space, err := scanSpace(l.db.QueryRow(ctx, query, spaceID), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSpaceNotFound
		}
		return nil, fmt.Errorf("failed to lock parking space: %w", err)
	}
	return space, nil
}
