package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTxManager runs units of work in READ COMMITTED transactions
type PostgresTxManager struct {
	pool *pgxpool.Pool
}

// NewPostgresTxManager creates a new PostgresTxManager
func NewPostgresTxManager(pool *pgxpool.Pool) *PostgresTxManager {
	return &PostgresTxManager{pool: pool}
}

// WithinTx commits when fn returns nil and rolls back otherwise
func (m *PostgresTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	return pgx.BeginTxFunc(ctx, m.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &postgresStore{db: tx})
	})
}

type postgresStore struct {
	db DBTX
}

func (s *postgresStore) Ledger() Ledger { return NewPostgresLedger(s.db) }
func (s *postgresStore) Spaces() SpaceRepository { return NewPostgresSpaceRepository(s.db) }
func (s *postgresStore) Bookings() BookingRepository { return NewPostgresBookingRepository(s.db) }
func (s *postgresStore) Charges() ChargeRepository { return NewPostgresChargeRepository(s.db) }
