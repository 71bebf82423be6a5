package service

import (
	"context"
	"time"

	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/hellyrj/smart-parking-system/internal/dto"
	"github.com/hellyrj/smart-parking-system/internal/repository"
	"github.com/hellyrj/smart-parking-system/pkg/logger"
	"github.com/hellyrj/smart-parking-system/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// SearchService finds bookable spaces near a point
type SearchService interface {
	Search(ctx context.Context, lat, lng, radiusKm float64, limit int) (*dto.SearchResponse, error)
}

// SearchServiceConfig contains configuration for search service
type SearchServiceConfig struct {
	MaxRadiusKm  float64
	DefaultLimit int
	// CacheTTL of zero disables the cache
	CacheTTL time.Duration
}

type searchService struct {
	spaces repository.SpaceRepository
	cache  repository.SearchCache
	config SearchServiceConfig
}

// NewSearchService creates a new search service. cache may be nil.
func NewSearchService(spaces repository.SpaceRepository, cache repository.SearchCache, cfg *SearchServiceConfig) SearchService {
	config := SearchServiceConfig{
		MaxRadiusKm:  50,
		DefaultLimit: 50,
		CacheTTL:     15 * time.Second,
	}
	if cfg != nil {
		if cfg.MaxRadiusKm > 0 {
			config.MaxRadiusKm = cfg.MaxRadiusKm
		}
		if cfg.DefaultLimit > 0 {
			config.DefaultLimit = cfg.DefaultLimit
		}
		config.CacheTTL = cfg.CacheTTL
	}
	return &searchService{spaces: spaces, cache: cache, config: config}
}

func (s *searchService) Search(ctx context.Context, lat, lng, radiusKm float64, limit int) (*dto.SearchResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.search.nearby")
	defer span.End()

	if err := domain.ValidateSearch(lat, lng, radiusKm, s.config.MaxRadiusKm); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if limit <= 0 || limit > s.config.DefaultLimit {
		limit = s.config.DefaultLimit
	}

	q := repository.SearchQuery{Latitude: lat, Longitude: lng, RadiusKm: radiusKm, Limit: limit}
	span.SetAttributes(
		attribute.Float64("lat", lat),
		attribute.Float64("lng", lng),
		attribute.Float64("radius_km", radiusKm),
	)

	useCache := s.cache != nil && s.config.CacheTTL > 0
	if useCache {
		if cached, ok, err := s.cache.Get(ctx, q); err != nil {
			logger.FromContext(ctx).Warn("search cache read failed", zap.Error(err))
		} else if ok {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			span.SetStatus(codes.Ok, "")
			return toSearchResponse(cached), nil
		}
	}

	results, err := s.spaces.Search(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if useCache {
		if err := s.cache.Set(ctx, q, results, s.config.CacheTTL); err != nil {
			logger.FromContext(ctx).Warn("search cache write failed", zap.Error(err))
		}
	}

	span.SetAttributes(attribute.Int("count", len(results)))
	span.SetStatus(codes.Ok, "")
	return toSearchResponse(results), nil
}

func toSearchResponse(results []*domain.SpaceSummary) *dto.SearchResponse {
	resp := &dto.SearchResponse{Spaces: make([]*dto.SpaceResponse, 0, len(results))}
	for _, r := range results {
		resp.Spaces = append(resp.Spaces, dto.FromSummary(r))
	}
	resp.Count = len(resp.Spaces)
	return resp
}
