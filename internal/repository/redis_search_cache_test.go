package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/hellyrj/smart-parking-system/internal/domain"
	pkgredis "github.com/hellyrj/smart-parking-system/pkg/redis"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCacheKey(t *testing.T) {
	a := SearchCacheKey(SearchQuery{Latitude: 9.012341, Longitude: 38.76, RadiusKm: 5, Limit: 50})
	assert.Equal(t, "parking:search:9.012341:38.76:5:50", a)
	assert.Equal(t, a, SearchCacheKey(SearchQuery{Latitude: 9.012341, Longitude: 38.76, RadiusKm: 5, Limit: 50}))

	// Points a few centimetres apart, or radii a metre apart, never share results.
	tests := []struct {
		name string
		q    SearchQuery
	}{
		{name: "nearby latitude", q: SearchQuery{Latitude: 9.012339, Longitude: 38.76, RadiusKm: 5, Limit: 50}},
		{name: "nearby longitude", q: SearchQuery{Latitude: 9.012341, Longitude: 38.76000001, RadiusKm: 5, Limit: 50}},
		{name: "slightly wider radius", q: SearchQuery{Latitude: 9.012341, Longitude: 38.76, RadiusKm: 5.001, Limit: 50}},
		{name: "other limit", q: SearchQuery{Latitude: 9.012341, Longitude: 38.76, RadiusKm: 5, Limit: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, a, SearchCacheKey(tt.q))
		})
	}
}

func TestRedisSearchCache_Integration(t *testing.T) {
	skipIfNoIntegration(t)

	cfg := pkgredis.DefaultConfig()
	if host := os.Getenv("TEST_REDIS_HOST"); host != "" {
		cfg.Host = host
	}
	client, err := pkgredis.NewClient(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()

	cache := NewRedisSearchCache(client)
	ctx := context.Background()
	q := SearchQuery{Latitude: 1.2345, Longitude: 2.3456, RadiusKm: 3, Limit: 10}
	require.NoError(t, client.Del(ctx, SearchCacheKey(q)).Err())

	_, ok, err := cache.Get(ctx, q)
	require.NoError(t, err)
	assert.False(t, ok)

	want := []*domain.SpaceSummary{{ID: "s1", Name: "Lot", PricePerHour: decimal.RequireFromString("5.00"), AvailableSpots: 2}}
	require.NoError(t, cache.Set(ctx, q, want, time.Minute))

	got, ok, err := cache.Get(ctx, q)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)
	assert.True(t, got[0].PricePerHour.Equal(want[0].PricePerHour))
}
