package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hellyrj/smart-parking-system/internal/domain"
	pkgredis "github.com/hellyrj/smart-parking-system/pkg/redis"
	"github.com/hellyrj/smart-parking-system/pkg/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const searchCachePrefix = "parking:search:"

// SearchCache stores recent search results. Results are advisory only.
type SearchCache interface {
	Get(ctx context.Context, q SearchQuery) ([]*domain.SpaceSummary, bool, error)
	Set(ctx context.Context, q SearchQuery, results []*domain.SpaceSummary, ttl time.Duration) error
}

// RedisSearchCache implements SearchCache on Redis
type RedisSearchCache struct {
	client *pkgredis.Client
}

// NewRedisSearchCache creates a new RedisSearchCache
func NewRedisSearchCache(client *pkgredis.Client) *RedisSearchCache {
	return &RedisSearchCache{client: client}
}

// SearchCacheKey keys on the exact query so a hit carries the caller's own
// distances and radius
func SearchCacheKey(q SearchQuery) string {
	return searchCachePrefix + exactFloat(q.Latitude) + ":" + exactFloat(q.Longitude) + ":" +
		exactFloat(q.RadiusKm) + ":" + strconv.Itoa(q.Limit)
}

func exactFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Get returns cached results; ok is false on a miss
func (c *RedisSearchCache) Get(ctx context.Context, q SearchQuery) ([]*domain.SpaceSummary, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.search_cache.get")
	defer span.End()

	key := SearchCacheKey(q)
	span.SetAttributes(attribute.String("key", key))

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			span.SetAttributes(attribute.Bool("hit", false))
			span.SetStatus(codes.Ok, "")
			return nil, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("failed to read search cache: %w", err)
	}

	var results []*domain.SpaceSummary
	if err := json.Unmarshal(raw, &results); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("failed to decode search cache: %w", err)
	}

	span.SetAttributes(attribute.Bool("hit", true), attribute.Int("count", len(results)))
	span.SetStatus(codes.Ok, "")
	return results, true, nil
}

// Set stores results for ttl
func (c *RedisSearchCache) Set(ctx context.Context, q SearchQuery, results []*domain.SpaceSummary, ttl time.Duration) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.search_cache.set")
	defer span.End()

	raw, err := json.Marshal(results)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to encode search cache: %w", err)
	}

	if err := c.client.Set(ctx, SearchCacheKey(q), raw, ttl).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to write search cache: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
