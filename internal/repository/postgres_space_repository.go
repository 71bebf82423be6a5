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

const spaceColumns = `
	s.id, s.owner_id, s.name, s.total_spots, s.available_spots, s.reserved_spots,
	s.price_per_hour, s.is_active, s.approval_status, s.created_at, s.updated_at`

// searchQuery filters candidates with the bounding box, then by exact distance.
// The acos argument is clamped to [-1, 1].
const searchQuery = `
	SELECT id, owner_id, name, address, latitude, longitude,
		price_per_hour, available_spots, total_spots, distance_km
	FROM (
		SELECT s.id, s.owner_id, s.name, l.address,
			l.latitude::float8 AS latitude, l.longitude::float8 AS longitude,
			s.price_per_hour, s.available_spots, s.total_spots,
			6371 * acos(LEAST(1.0, GREATEST(-1.0,
				sin(radians($1::float8)) * sin(radians(l.latitude::float8)) +
				cos(radians($1::float8)) * cos(radians(l.latitude::float8)) *
				cos(radians(l.longitude::float8) - radians($2::float8))
			))) AS distance_km
		FROM parking_spaces s
		JOIN parking_locations l ON l.space_id = s.id
		WHERE s.is_active
			AND s.approval_status = 'approved'
			AND s.available_spots > 0
			AND l.latitude BETWEEN $3 AND $4
			AND l.longitude BETWEEN $5 AND $6
	) candidates
	WHERE distance_km <= $7
	ORDER BY distance_km, id
	LIMIT $8
`

// PostgresSpaceRepository implements SpaceRepository using PostgreSQL
type PostgresSpaceRepository struct {
	db DBTX
}

// NewPostgresSpaceRepository creates a new PostgresSpaceRepository
func NewPostgresSpaceRepository(db DBTX) *PostgresSpaceRepository {
	return &PostgresSpaceRepository{db: db}
}

// GetByID retrieves a space with its location
func (r *PostgresSpaceRepository) GetByID(ctx context.Context, id string) (*domain.ParkingSpace, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.space.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("space_id", id))

	if _, err := uuid.Parse(id); err != nil {
		span.SetStatus(codes.Error, "not found")
		return nil, domain.ErrSpaceNotFound
	}

	query := `SELECT ` + spaceColumns + `,
			COALESCE(l.latitude::float8, 0), COALESCE(l.longitude::float8, 0), COALESCE(l.address, '')
		FROM parking_spaces s
		LEFT JOIN parking_locations l ON l.space_id = s.id
		WHERE s.id = $1`

	space, err := scanSpace(r.db.QueryRow(ctx, query, id), true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrSpaceNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get parking space: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return space, nil
}

// Search returns bookable spaces within the radius, nearest first
func (r *PostgresSpaceRepository) Search(ctx context.Context, q SearchQuery) ([]*domain.SpaceSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.space.search")
	defer span.End()

	span.SetAttributes(
		attribute.Float64("lat", q.Latitude),
		attribute.Float64("lng", q.Longitude),
		attribute.Float64("radius_km", q.RadiusKm),
		attribute.Int("limit", q.Limit),
	)

	box := domain.NewBoundingBox(q.Latitude, q.Longitude, q.RadiusKm)
	rows, err := r.db.Query(ctx, searchQuery,
		q.Latitude, q.Longitude,
		box.MinLat, box.MaxLat, box.MinLng, box.MaxLng,
		q.RadiusKm, q.Limit,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to search parking spaces: %w", err)
	}
	defer rows.Close()

	results := make([]*domain.SpaceSummary, 0)
	for rows.Next() {
		s := &domain.SpaceSummary{}
		if err := rows.Scan(
			&s.ID, &s.OwnerID, &s.Name, &s.Address, &s.Latitude, &s.Longitude,
			&s.PricePerHour, &s.AvailableSpots, &s.TotalSpots, &s.DistanceKm,
		); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(results)))
	span.SetStatus(codes.Ok, "")
	return results, nil
}

// scanSpace reads spaceColumns, plus latitude, longitude and address when withLocation is set
func scanSpace(row pgx.Row, withLocation bool) (*domain.ParkingSpace, error) {
	var (
		counts   domain.SpotCounts
		approval string
		lat, lng float64
		address  string
		meta     domain.ParkingSpace
	)

	dest := []any{
		&meta.ID, &meta.OwnerID, &meta.Name, &counts.Total, &counts.Available, &counts.Reserved,
		&meta.PricePerHour, &meta.IsActive, &approval, &meta.CreatedAt, &meta.UpdatedAt,
	}
	if withLocation {
		dest = append(dest, &lat, &lng, &address)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	space := domain.NewParkingSpace(counts)
	space.ID = meta.ID
	space.OwnerID = meta.OwnerID
	space.Name = meta.Name
	space.PricePerHour = meta.PricePerHour
	space.IsActive = meta.IsActive
	space.ApprovalStatus = domain.ApprovalStatus(approval)
	space.Latitude = lat
	space.Longitude = lng
	space.Address = address
	space.CreatedAt = meta.CreatedAt
	space.UpdatedAt = meta.UpdatedAt
	return space, nil
}
