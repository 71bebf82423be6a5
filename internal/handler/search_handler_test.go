package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/hellyrj/smart-parking-system/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearchRouter(svc *MockSearchService) *gin.Engine {
	router := setupTestRouterWithAuth("")
	router.GET("/parking/search", NewSearchHandler(svc).Search)
	return router
}

func TestSearchHandler_Search(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &MockSearchService{
			SearchFunc: func(ctx context.Context, lat, lng, radiusKm float64, limit int) (*dto.SearchResponse, error) {
				assert.InDelta(t, 9.03, lat, 1e-9)
				assert.InDelta(t, 38.74, lng, 1e-9)
				assert.InDelta(t, 2.5, radiusKm, 1e-9)
				return &dto.SearchResponse{
					Spaces: []*dto.SpaceResponse{{ID: "space-1", Name: "Bole Lot", AvailableSpots: 3}},
					Count:  1,
				}, nil
			},
		}

		w := doJSON(newSearchRouter(svc), http.MethodGet, "/parking/search?lat=9.03&lng=38.74&radius=2.5", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.SearchResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Spaces, 1)
		assert.Equal(t, "space-1", resp.Spaces[0].ID)
	})

	t.Run("zero coordinates are valid", func(t *testing.T) {
		called := false
		svc := &MockSearchService{
			SearchFunc: func(ctx context.Context, lat, lng, radiusKm float64, limit int) (*dto.SearchResponse, error) {
				called = true
				return &dto.SearchResponse{}, nil
			},
		}

		w := doJSON(newSearchRouter(svc), http.MethodGet, "/parking/search?lat=0&lng=0", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, called)
	})

	t.Run("missing longitude", func(t *testing.T) {
		w := doJSON(newSearchRouter(&MockSearchService{}), http.MethodGet, "/parking/search?lat=9.03", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("radius out of range", func(t *testing.T) {
		svc := &MockSearchService{
			SearchFunc: func(ctx context.Context, lat, lng, radiusKm float64, limit int) (*dto.SearchResponse, error) {
				return nil, domain.ErrInvalidRadius
			},
		}

		w := doJSON(newSearchRouter(svc), http.MethodGet, "/parking/search?lat=9&lng=38&radius=500", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Code)
	})
}
