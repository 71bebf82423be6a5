package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/hellyrj/smart-parking-system/internal/dto"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// First match wins. Wrapped sentinels match through errors.Is.
var errorMappings = []errorMapping{
	{domain.ErrNoCapacity, http.StatusConflict, "NO_CAPACITY", "No spots are available at this parking space"},
	{domain.ErrAlreadyBooked, http.StatusConflict, "ALREADY_BOOKED", "Finish or cancel your current booking first"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND", ""},
	{domain.ErrReservationExpired, http.StatusGone, "RESERVATION_EXPIRED", "The reservation passed its deadline and the spot was released"},
	{domain.ErrNoActiveSession, http.StatusConflict, "NO_ACTIVE_SESSION", ""},
	{domain.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION", ""},
	{domain.ErrInvalidArgument, http.StatusBadRequest, "INVALID_REQUEST", ""},
}

// handleError maps service errors to HTTP responses. Unknown errors become
// a bare 500 so internals never reach the client.
func handleError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, dto.ErrorResponse{Error: err.Error(), Code: m.code, Message: m.message})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error: "internal server error",
		Code:  "INTERNAL_ERROR",
	})
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized", Code: "UNAUTHORIZED"})
}

func invalidRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "invalid request",
		Code:    "INVALID_REQUEST",
		Message: err.Error(),
	})
}
