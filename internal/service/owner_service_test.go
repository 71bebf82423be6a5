package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellyrj/smart-parking-system/internal/domain"
)

type mockChargeRepository struct {
	memCharges
	EarningsFunc func(ctx context.Context, ownerID string, dayStart, monthStart time.Time, recent int) (*domain.Earnings, error)
}

func (m *mockChargeRepository) Earnings(ctx context.Context, ownerID string, dayStart, monthStart time.Time, recent int) (*domain.Earnings, error) {
	return m.EarningsFunc(ctx, ownerID, dayStart, monthStart, recent)
}

func TestOwnerService_Sessions(t *testing.T) {
	f := newBookingFixture(t, nil)
	f.db.addSpace(testSpaceID, 3, "6.00")
	f.db.addSpace("space-other", 3, "6.00")
	ctx := context.Background()

	waiting, err := f.svc.Reserve(ctx, "user-a", reserveReq(testSpaceID))
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	active, err := f.svc.Reserve(ctx, "user-b", reserveReq(testSpaceID))
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, "user-b", active.BookingID)
	require.NoError(t, err)

	f.db.mu.Lock()
	sp := f.db.spaces["space-other"]
	sp.OwnerID = "owner-2"
	f.db.spaces["space-other"] = sp
	f.db.mu.Unlock()
	_, err = f.svc.Reserve(ctx, "user-c", reserveReq("space-other"))
	require.NoError(t, err)

	owner := NewOwnerService(&memBookings{db: f.db}, &memCharges{db: f.db}, nil).(*ownerService)
	f.clock.Advance(65 * time.Minute)
	owner.now = f.clock.Now

	sessions, err := owner.ActiveSessions(ctx, testOwnerID)
	require.NoError(t, err)
	// The WAITING hold is past its deadline by now and is not listed.
	require.Len(t, sessions, 1)
	assert.Equal(t, active.BookingID, sessions[0].BookingID)
	assert.Equal(t, 65, sessions[0].DurationMinutes)
	require.NotNil(t, sessions[0].CurrentCost)
	assert.Equal(t, "12.00", *sessions[0].CurrentCost)

	owner.now = func() time.Time { return f.clock.Now().Add(-60 * time.Minute) }
	reservations, err := owner.Reservations(ctx, testOwnerID)
	require.NoError(t, err)
	require.Len(t, reservations, 1)
	assert.Equal(t, waiting.BookingID, reservations[0].BookingID)
	assert.Equal(t, "Lot space-1", reservations[0].SpaceName)
	assert.Nil(t, reservations[0].CurrentCost)

	_, err = owner.ActiveSessions(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)
}

func TestOwnerService_EarningsWindows(t *testing.T) {
	loc := time.FixedZone("EAT", 3*60*60)
	var gotDay, gotMonth time.Time
	var gotRecent int
	charges := &mockChargeRepository{
		EarningsFunc: func(ctx context.Context, ownerID string, dayStart, monthStart time.Time, recent int) (*domain.Earnings, error) {
			gotDay, gotMonth, gotRecent = dayStart, monthStart, recent
			return &domain.Earnings{
				Today: decimal.RequireFromString("8.5"),
				Month: decimal.RequireFromString("42.5"),
				Total: decimal.RequireFromString("100"),
				Recent: []*domain.EarningEntry{
					{ChargeID: "c1", Amount: decimal.RequireFromString("10"), OwnerAmount: decimal.RequireFromString("8.5")},
				},
			}, nil
		},
	}

	svc := NewOwnerService(nil, charges, &OwnerServiceConfig{Location: loc}).(*ownerService)
	// 22:30 UTC on the 14th is 01:30 on the 15th in EAT.
	svc.now = func() time.Time { return time.Date(2026, 5, 14, 22, 30, 0, 0, time.UTC) }

	resp, err := svc.Earnings(context.Background(), testOwnerID)
	require.NoError(t, err)

	assert.True(t, gotDay.Equal(time.Date(2026, 5, 15, 0, 0, 0, 0, loc)))
	assert.True(t, gotMonth.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, loc)))
	assert.Equal(t, 10, gotRecent)
	assert.Equal(t, "8.50", resp.Today)
	assert.Equal(t, "42.50", resp.Month)
	assert.Equal(t, "100.00", resp.Total)
	require.Len(t, resp.Recent, 1)
	assert.Equal(t, "8.50", resp.Recent[0].OwnerAmount)
}
