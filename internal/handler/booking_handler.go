package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hellyrj/smart-parking-system/internal/dto"
	"github.com/hellyrj/smart-parking-system/internal/service"
	"github.com/hellyrj/smart-parking-system/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// BookingHandler handles driver booking requests
type BookingHandler struct {
	bookingService service.BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// Reserve handles POST /bookings
func (h *BookingHandler) Reserve(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.reserve")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		unauthorized(c)
		return
	}

	var req dto.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		invalidRequest(c, err)
		return
	}
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("space_id", req.SpaceID))

	result, err := h.bookingService.Reserve(ctx, userID, &req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("booking_id", result.BookingID))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, result)
}

// Confirm handles POST /bookings/:id/confirm
func (h *BookingHandler) Confirm(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.confirm")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		unauthorized(c)
		return
	}
	bookingID := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", bookingID))

	result, err := h.bookingService.Confirm(ctx, userID, bookingID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// Cancel handles POST /bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.cancel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		unauthorized(c)
		return
	}

	result, err := h.bookingService.Cancel(ctx, userID, c.Param("id"))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// EndSession handles POST /bookings/:id/end
func (h *BookingHandler) EndSession(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.end_session")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		unauthorized(c)
		return
	}

	// The body is optional; an empty one means the default payment method.
	var req dto.EndSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		span.RecordError(err)
		invalidRequest(c, err)
		return
	}

	result, err := h.bookingService.EndSession(ctx, userID, c.Param("id"), &req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(
		attribute.String("total_amount", result.TotalAmount),
		attribute.String("payment_status", result.PaymentStatus),
	)
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// PaySession handles POST /bookings/:id/pay
func (h *BookingHandler) PaySession(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.pay_session")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		unauthorized(c)
		return
	}

	// An empty body retries with the method already on the charge.
	var req dto.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		span.RecordError(err)
		invalidRequest(c, err)
		return
	}

	result, err := h.bookingService.PaySession(ctx, userID, c.Param("id"), &req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("payment_status", result.PaymentStatus))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// CheckStatus handles GET /bookings/:id/status
func (h *BookingHandler) CheckStatus(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.check_status")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		unauthorized(c)
		return
	}

	result, err := h.bookingService.CheckStatus(ctx, userID, c.Param("id"))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// GetActiveBooking handles GET /bookings/active
func (h *BookingHandler) GetActiveBooking(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		unauthorized(c)
		return
	}

	result, err := h.bookingService.GetActiveBooking(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	if result == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListSessions handles GET /bookings
func (h *BookingHandler) ListSessions(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		unauthorized(c)
		return
	}

	limit, err := queryInt(c, "limit")
	if err != nil {
		invalidRequest(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		invalidRequest(c, err)
		return
	}

	result, err := h.bookingService.ListSessions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// queryInt reads an optional integer query parameter
func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return v, nil
}
