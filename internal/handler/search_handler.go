package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hellyrj/smart-parking-system/internal/dto"
	"github.com/hellyrj/smart-parking-system/internal/service"
	"github.com/hellyrj/smart-parking-system/pkg/telemetry"
	"go.opentelemetry.io/otel/codes"
)

// SearchHandler handles public space search
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search handles GET /parking/search?lat&lng&radius
func (h *SearchHandler) Search(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.search")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		invalidRequest(c, err)
		return
	}

	result, err := h.searchService.Search(ctx, *req.Latitude, *req.Longitude, req.RadiusKm, req.Limit)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}
