package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/hellyrj/smart-parking-system/internal/repository"
	"github.com/shopspring/decimal"
)

// memDB is an in-memory datastore. WithinTx holds one mutex for the whole
// transaction, which gives the same serialisation as the row locks, and
// restores a snapshot when fn fails.
type memDB struct {
	mu       sync.Mutex
	spaces   map[string]domain.ParkingSpace
	bookings map[string]domain.Booking
	charges  map[string]domain.Charge
}

func newMemDB() *memDB {
	return &memDB{
		spaces:   make(map[string]domain.ParkingSpace),
		bookings: make(map[string]domain.Booking),
		charges:  make(map[string]domain.Charge),
	}
}

func (db *memDB) addSpace(id string, total int, price string) {
	db.addSpaceCounts(id, domain.SpotCounts{Total: total, Available: total}, price)
}

func (db *memDB) addSpaceCounts(id string, counts domain.SpotCounts, price string) {
	sp := domain.NewParkingSpace(counts)
	sp.ID = id
	sp.OwnerID = testOwnerID
	sp.Name = "Lot " + id
	sp.PricePerHour = decimal.RequireFromString(price)
	sp.IsActive = true
	sp.ApprovalStatus = domain.ApprovalApproved

	db.mu.Lock()
	defer db.mu.Unlock()
	db.spaces[id] = *sp
}

func (db *memDB) counts(id string) domain.SpotCounts {
	db.mu.Lock()
	defer db.mu.Unlock()
	sp := db.spaces[id]
	return sp.Counts()
}

func (db *memDB) booking(id string) domain.Booking {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.bookings[id]
}

func (db *memDB) chargeFor(bookingID string) (domain.Charge, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, c := range db.charges {
		if c.BookingID == bookingID {
			return c, true
		}
	}
	return domain.Charge{}, false
}

// WithinTx implements repository.TxManager
func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context, store repository.Store) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	spaces := copyMap(db.spaces)
	bookings := copyMap(db.bookings)
	charges := copyMap(db.charges)

	if err := fn(ctx, &memStore{db: db}); err != nil {
		db.spaces, db.bookings, db.charges = spaces, bookings, charges
		return err
	}
	return nil
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type memStore struct{ db *memDB }

func (s *memStore) Ledger() repository.Ledger { return &memLedger{db: s.db} }
func (s *memStore) Spaces() repository.SpaceRepository { return &memSpaces{db: s.db, locked: true} }
func (s *memStore) Bookings() repository.BookingRepository { return &memBookings{db: s.db, locked: true} }
func (s *memStore) Charges() repository.ChargeRepository { return &memCharges{db: s.db, locked: true} }

// guard takes the mutex unless the caller already holds it
// failingTx runs transactions on the memDB but fails chosen writes inside them
type failingTx struct {
	db         *memDB
	releaseErr error
	createErr  error
}

func (f *failingTx) WithinTx(ctx context.Context, fn func(ctx context.Context, store repository.Store) error) error {
	return f.db.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		return fn(ctx, &failingStore{Store: store, releaseErr: f.releaseErr, createErr: f.createErr})
	})
}

type failingStore struct {
	repository.Store
	releaseErr error
	createErr  error
}

func (s *failingStore) Ledger() repository.Ledger {
	return &failingLedger{Ledger: s.Store.Ledger(), err: s.releaseErr}
}

func (s *failingStore) Charges() repository.ChargeRepository {
	return &failingCharges{ChargeRepository: s.Store.Charges(), err: s.createErr}
}

type failingLedger struct {
	repository.Ledger
	err error
}

func (l *failingLedger) Release(ctx context.Context, spaceID string) (*domain.ParkingSpace, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.Ledger.Release(ctx, spaceID)
}

type failingCharges struct {
	repository.ChargeRepository
	err error
}

func (r *failingCharges) Create(ctx context.Context, c *domain.Charge) error {
	if r.err != nil {
		return r.err
	}
	return r.ChargeRepository.Create(ctx, c)
}

func guard(db *memDB, locked bool) func() {
	if locked {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

type memLedger struct{ db *memDB }

func (l *memLedger) Claim(ctx context.Context, spaceID string) (*domain.ParkingSpace, error) {
	return l.apply(spaceID, (*domain.ParkingSpace).Claim)
}

func (l *memLedger) Release(ctx context.Context, spaceID string) (*domain.ParkingSpace, error) {
	return l.apply(spaceID, (*domain.ParkingSpace).Release)
}

func (l *memLedger) apply(spaceID string, op func(*domain.ParkingSpace) error) (*domain.ParkingSpace, error) {
	sp, ok := l.db.spaces[spaceID]
	if !ok {
		return nil, domain.ErrSpaceNotFound
	}
	if err := op(&sp); err != nil {
		return nil, err
	}
	l.db.spaces[spaceID] = sp
	out := sp
	return &out, nil
}

type memSpaces struct {
	db     *memDB
	locked bool
}

func (r *memSpaces) GetByID(ctx context.Context, id string) (*domain.ParkingSpace, error) {
	defer guard(r.db, r.locked)()
	sp, ok := r.db.spaces[id]
	if !ok {
		return nil, domain.ErrSpaceNotFound
	}
	return &sp, nil
}

func (r *memSpaces) Search(ctx context.Context, q repository.SearchQuery) ([]*domain.SpaceSummary, error) {
	return nil, nil
}

type memBookings struct {
	db     *memDB
	locked bool
}

func (r *memBookings) Create(ctx context.Context, b *domain.Booking) error {
	defer guard(r.db, r.locked)()
	for _, existing := range r.db.bookings {
		if existing.UserID == b.UserID && existing.Status.IsOpen() {
			return domain.ErrAlreadyBooked
		}
	}
	r.db.bookings[b.ID] = *b
	return nil
}

func (r *memBookings) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	defer guard(r.db, r.locked)()
	b, ok := r.db.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return &b, nil
}

func (r *memBookings) GetForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *memBookings) Update(ctx context.Context, b *domain.Booking) error {
	defer guard(r.db, r.locked)()
	if _, ok := r.db.bookings[b.ID]; !ok {
		return domain.ErrBookingNotFound
	}
	r.db.bookings[b.ID] = *b
	return nil
}

func (r *memBookings) LockUser(ctx context.Context, userID string) error { return nil }

func (r *memBookings) GetOpenByUser(ctx context.Context, userID string) (*domain.Booking, error) {
	defer guard(r.db, r.locked)()
	for _, b := range r.db.bookings {
		if b.UserID == userID && b.Status.IsOpen() {
			return &b, nil
		}
	}
	return nil, domain.ErrBookingNotFound
}

func (r *memBookings) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, error) {
	defer guard(r.db, r.locked)()
	var out []*domain.Booking
	for _, b := range r.db.bookings {
		if b.UserID == userID {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []*domain.Booking{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memBookings) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	defer guard(r.db, r.locked)()
	var ids []string
	for _, b := range r.db.bookings {
		if b.IsExpiredAt(now) {
			ids = append(ids, b.ID)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *memBookings) ListByOwner(ctx context.Context, ownerID string, statuses []domain.BookingStatus) ([]*domain.OwnedBooking, error) {
	defer guard(r.db, r.locked)()
	var out []*domain.OwnedBooking
	for _, b := range r.db.bookings {
		sp := r.db.spaces[b.SpaceID]
		if sp.OwnerID != ownerID {
			continue
		}
		for _, st := range statuses {
			if b.Status == st {
				b := b
				out = append(out, &domain.OwnedBooking{Booking: &b, SpaceName: sp.Name})
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Booking.CreatedAt.Before(out[j].Booking.CreatedAt) })
	return out, nil
}

type memCharges struct {
	db     *memDB
	locked bool
}

func (r *memCharges) Create(ctx context.Context, c *domain.Charge) error {
	defer guard(r.db, r.locked)()
	r.db.charges[c.ID] = *c
	return nil
}

func (r *memCharges) GetByBookingID(ctx context.Context, bookingID string) (*domain.Charge, error) {
	defer guard(r.db, r.locked)()
	for _, c := range r.db.charges {
		if c.BookingID == bookingID {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memCharges) UpdateSettlement(ctx context.Context, c *domain.Charge) error {
	defer guard(r.db, r.locked)()
	existing, ok := r.db.charges[c.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if !existing.Settleable() {
		return domain.ErrInvalidTransition
	}
	r.db.charges[c.ID] = *c
	return nil
}

func (r *memCharges) Earnings(ctx context.Context, ownerID string, dayStart, monthStart time.Time, recent int) (*domain.Earnings, error) {
	return &domain.Earnings{}, nil
}

// captureNotifier records notifications synchronously
type captureNotifier struct {
	mu   sync.Mutex
	sent []*domain.Notification
}

func (n *captureNotifier) Notify(msg *domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *captureNotifier) types() []domain.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NotificationType, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.Type)
	}
	return out
}

func (n *captureNotifier) last() *domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return nil
	}
	return n.sent[len(n.sent)-1]
}
