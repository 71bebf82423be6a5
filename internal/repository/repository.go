package repository

import (
	"context"
	"time"

	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SearchQuery holds validated search input
type SearchQuery struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Limit     int
}

// SpaceRepository reads parking spaces
type SpaceRepository interface {
	GetByID(ctx context.Context, id string) (*domain.ParkingSpace, error)
	Search(ctx context.Context, q SearchQuery) ([]*domain.SpaceSummary, error)
}

// Ledger is the only writer of spot counters. It must run inside a transaction:
// the space row stays locked until commit.
type Ledger interface {
	// Claim returns the space after taking a spot
	Claim(ctx context.Context, spaceID string) (*domain.ParkingSpace, error)
	// Release returns the space after giving a spot back
	Release(ctx context.Context, spaceID string) (*domain.ParkingSpace, error)
}

// BookingRepository persists bookings
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// GetForUpdate locks the booking row until the transaction ends
	GetForUpdate(ctx context.Context, id string) (*domain.Booking, error)
	// Update persists lifecycle fields
	Update(ctx context.Context, booking *domain.Booking) error
	// LockUser serialises open-booking checks for one user until the transaction ends
	LockUser(ctx context.Context, userID string) error
	// GetOpenByUser returns ErrBookingNotFound when the user has no open booking
	GetOpenByUser(ctx context.Context, userID string) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, error)
	// ListExpiredIDs returns WAITING bookings whose deadline is before now, oldest first
	ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
	ListByOwner(ctx context.Context, ownerID string, statuses []domain.BookingStatus) ([]*domain.OwnedBooking, error)
}

// ChargeRepository persists charges
type ChargeRepository interface {
	Create(ctx context.Context, charge *domain.Charge) error
	GetByBookingID(ctx context.Context, bookingID string) (*domain.Charge, error)
	// UpdateSettlement writes a PAID or FAILED outcome onto a PENDING charge
	UpdateSettlement(ctx context.Context, charge *domain.Charge) error
	Earnings(ctx context.Context, ownerID string, dayStart, monthStart time.Time, recent int) (*domain.Earnings, error)
}

// NotificationRepository persists inbox messages
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// Store groups the repositories bound to one transaction
type Store interface {
	Ledger() Ledger
	Spaces() SpaceRepository
	Bookings() BookingRepository
	Charges() ChargeRepository
}

// TxManager runs fn in a transaction. fn's error rolls everything back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
