package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hellyrj/smart-parking-system/internal/service"
)

// OwnerHandler handles the space owner's dashboard
type OwnerHandler struct {
	ownerService   service.OwnerService
	bookingService service.BookingService
}

// NewOwnerHandler creates a new owner handler
func NewOwnerHandler(ownerService service.OwnerService, bookingService service.BookingService) *OwnerHandler {
	return &OwnerHandler{
		ownerService:   ownerService,
		bookingService: bookingService,
	}
}

// ActiveSessions handles GET /owner/sessions/active
func (h *OwnerHandler) ActiveSessions(c *gin.Context) {
	ownerID := c.GetString("user_id")
	if ownerID == "" {
		unauthorized(c)
		return
	}

	result, err := h.ownerService.ActiveSessions(c.Request.Context(), ownerID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": result, "count": len(result)})
}

// Reservations handles GET /owner/sessions/reservations
func (h *OwnerHandler) Reservations(c *gin.Context) {
	ownerID := c.GetString("user_id")
	if ownerID == "" {
		unauthorized(c)
		return
	}

	result, err := h.ownerService.Reservations(c.Request.Context(), ownerID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": result, "count": len(result)})
}

// ConfirmArrival handles POST /owner/sessions/:id/confirm-arrival
func (h *OwnerHandler) ConfirmArrival(c *gin.Context) {
	ownerID := c.GetString("user_id")
	if ownerID == "" {
		unauthorized(c)
		return
	}

	result, err := h.bookingService.ConfirmArrival(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Cancel handles POST /owner/sessions/:id/cancel
func (h *OwnerHandler) Cancel(c *gin.Context) {
	ownerID := c.GetString("user_id")
	if ownerID == "" {
		unauthorized(c)
		return
	}

	result, err := h.bookingService.OwnerCancel(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Earnings handles GET /owner/earnings
func (h *OwnerHandler) Earnings(c *gin.Context) {
	ownerID := c.GetString("user_id")
	if ownerID == "" {
		unauthorized(c)
		return
	}

	result, err := h.ownerService.Earnings(c.Request.Context(), ownerID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
