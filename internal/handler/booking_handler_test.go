package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/hellyrj/smart-parking-system/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBookingRouter(userID string, svc *MockBookingService) *gin.Engine {
	router := setupTestRouterWithAuth(userID)
	h := NewBookingHandler(svc)
	router.POST("/bookings", h.Reserve)
	router.GET("/bookings", h.ListSessions)
	router.GET("/bookings/active", h.GetActiveBooking)
	router.POST("/bookings/:id/confirm", h.Confirm)
	router.POST("/bookings/:id/cancel", h.Cancel)
	router.POST("/bookings/:id/end", h.EndSession)
	router.POST("/bookings/:id/pay", h.PaySession)
	router.GET("/bookings/:id/status", h.CheckStatus)
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBookingHandler_Reserve(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &MockBookingService{
			ReserveFunc: func(ctx context.Context, userID string, req *dto.ReserveRequest) (*dto.ReserveResponse, error) {
				assert.Equal(t, "user-1", userID)
				assert.Equal(t, "space-1", req.SpaceID)
				assert.Equal(t, "AA-12345", req.VehiclePlate)
				return &dto.ReserveResponse{
					BookingID:     "booking-1",
					SpaceID:       req.SpaceID,
					Status:        string(domain.BookingStatusWaiting),
					ReservedUntil: time.Now().Add(30 * time.Minute),
					PricePerHour:  "5.00",
				}, nil
			},
		}

		w := doJSON(newBookingRouter("user-1", svc), http.MethodPost, "/bookings", dto.ReserveRequest{
			SpaceID:      "space-1",
			VehiclePlate: "AA-12345",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp dto.ReserveResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "booking-1", resp.BookingID)
		assert.Equal(t, "WAITING", resp.Status)
	})

	t.Run("unauthorized", func(t *testing.T) {
		w := doJSON(newBookingRouter("", &MockBookingService{}), http.MethodPost, "/bookings", dto.ReserveRequest{
			SpaceID:      "space-1",
			VehiclePlate: "AA-12345",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "UNAUTHORIZED", decodeError(t, w).Code)
	})

	t.Run("missing plate", func(t *testing.T) {
		w := doJSON(newBookingRouter("user-1", &MockBookingService{}), http.MethodPost, "/bookings", map[string]string{
			"space_id": "space-1",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Code)
	})

	t.Run("no capacity", func(t *testing.T) {
		svc := &MockBookingService{
			ReserveFunc: func(ctx context.Context, userID string, req *dto.ReserveRequest) (*dto.ReserveResponse, error) {
				return nil, domain.ErrNoCapacity
			},
		}

		w := doJSON(newBookingRouter("user-1", svc), http.MethodPost, "/bookings", dto.ReserveRequest{
			SpaceID:      "space-1",
			VehiclePlate: "AA-12345",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "NO_CAPACITY", decodeError(t, w).Code)
	})
}

func TestBookingHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"already booked", domain.ErrAlreadyBooked, http.StatusConflict, "ALREADY_BOOKED"},
		{"booking not found", domain.ErrBookingNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"space not found", domain.ErrSpaceNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"expired", domain.ErrReservationExpired, http.StatusGone, "RESERVATION_EXPIRED"},
		{"invalid transition", domain.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
		{"invalid argument", domain.ErrInvalidBookingID, http.StatusBadRequest, "INVALID_REQUEST"},
		{"invariant", domain.ErrInvariantViolation, http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockBookingService{
				ConfirmFunc: func(ctx context.Context, userID, bookingID string) (*dto.ConfirmResponse, error) {
					return nil, tt.err
				},
			}

			w := doJSON(newBookingRouter("user-1", svc), http.MethodPost, "/bookings/booking-1/confirm", nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, resp.Error, "connection reset")
			}
		})
	}
}

func TestBookingHandler_Confirm(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := &MockBookingService{
		ConfirmFunc: func(ctx context.Context, userID, bookingID string) (*dto.ConfirmResponse, error) {
			assert.Equal(t, "booking-1", bookingID)
			return &dto.ConfirmResponse{BookingID: bookingID, Status: "ACTIVE", ActualStartTime: start}, nil
		},
	}

	w := doJSON(newBookingRouter("user-1", svc), http.MethodPost, "/bookings/booking-1/confirm", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.ConfirmResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ACTIVE", resp.Status)
	assert.True(t, start.Equal(resp.ActualStartTime))
}

func TestBookingHandler_Cancel(t *testing.T) {
	svc := &MockBookingService{
		CancelFunc: func(ctx context.Context, userID, bookingID string) (*dto.CancelResponse, error) {
			return &dto.CancelResponse{BookingID: bookingID, Status: "CANCELLED", CancelledBy: "USER"}, nil
		},
	}

	w := doJSON(newBookingRouter("user-1", svc), http.MethodPost, "/bookings/booking-1/cancel", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.CancelResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CANCELLED", resp.Status)
	assert.Equal(t, "USER", resp.CancelledBy)
}

func TestBookingHandler_EndSession(t *testing.T) {
	t.Run("with payment method", func(t *testing.T) {
		svc := &MockBookingService{
			EndSessionFunc: func(ctx context.Context, userID, bookingID string, req *dto.EndSessionRequest) (*dto.EndSessionResponse, error) {
				assert.Equal(t, "card", req.PaymentMethod)
				return &dto.EndSessionResponse{
					BookingID:     bookingID,
					Status:        "COMPLETED",
					Hours:         2,
					TotalAmount:   "10.00",
					PlatformFee:   "1.50",
					OwnerAmount:   "8.50",
					PaymentStatus: "PAID",
				}, nil
			},
		}

		w := doJSON(newBookingRouter("user-1", svc), http.MethodPost, "/bookings/booking-1/end",
			dto.EndSessionRequest{PaymentMethod: "card"})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.EndSessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "10.00", resp.TotalAmount)
		assert.Equal(t, 2, resp.Hours)
	})

	t.Run("empty body", func(t *testing.T) {
		called := false
		svc := &MockBookingService{
			EndSessionFunc: func(ctx context.Context, userID, bookingID string, req *dto.EndSessionRequest) (*dto.EndSessionResponse, error) {
				called = true
				assert.Empty(t, req.PaymentMethod)
				return &dto.EndSessionResponse{BookingID: bookingID}, nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/bookings/booking-1/end", nil)
		w := httptest.NewRecorder()
		newBookingRouter("user-1", svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, called)
	})

	t.Run("no active session", func(t *testing.T) {
		svc := &MockBookingService{
			EndSessionFunc: func(ctx context.Context, userID, bookingID string, req *dto.EndSessionRequest) (*dto.EndSessionResponse, error) {
				return nil, domain.ErrNoActiveSession
			},
		}

		w := doJSON(newBookingRouter("user-1", svc), http.MethodPost, "/bookings/booking-1/end", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "NO_ACTIVE_SESSION", decodeError(t, w).Code)
	})
}

func TestBookingHandler_PaySession(t *testing.T) {
	t.Run("paid with a new card", func(t *testing.T) {
		svc := &MockBookingService{
			PaySessionFunc: func(ctx context.Context, userID, bookingID string, req *dto.PayRequest) (*dto.PaymentResponse, error) {
				assert.Equal(t, "user-1", userID)
				assert.Equal(t, "booking-1", bookingID)
				assert.Equal(t, "pm_card_visa", req.PaymentMethodID)
				return &dto.PaymentResponse{
					BookingID:     bookingID,
					ChargeID:      "chg-1",
					Amount:        "10.00",
					PaymentMethod: "card",
					PaymentStatus: "PAID",
					TransactionID: "pi_2",
				}, nil
			},
		}

		w := doJSON(newBookingRouter("user-1", svc), http.MethodPost, "/bookings/booking-1/pay",
			dto.PayRequest{PaymentMethodID: "pm_card_visa"})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.PaymentResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "PAID", resp.PaymentStatus)
		assert.Equal(t, "pi_2", resp.TransactionID)
	})

	t.Run("already paid", func(t *testing.T) {
		svc := &MockBookingService{
			PaySessionFunc: func(ctx context.Context, userID, bookingID string, req *dto.PayRequest) (*dto.PaymentResponse, error) {
				return nil, domain.ErrInvalidTransition
			},
		}

		w := doJSON(newBookingRouter("user-1", svc), http.MethodPost, "/bookings/booking-1/pay", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "INVALID_TRANSITION", decodeError(t, w).Code)
	})
}

func TestBookingHandler_CheckStatus(t *testing.T) {
	svc := &MockBookingService{
		CheckStatusFunc: func(ctx context.Context, userID, bookingID string) (*dto.StatusResponse, error) {
			return &dto.StatusResponse{BookingID: bookingID, Status: "WAITING", MinutesRemaining: 12}, nil
		},
	}

	w := doJSON(newBookingRouter("user-1", svc), http.MethodGet, "/bookings/booking-1/status", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 12, resp.MinutesRemaining)
}

func TestBookingHandler_GetActiveBooking(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		w := doJSON(newBookingRouter("user-1", &MockBookingService{}), http.MethodGet, "/bookings/active", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("open booking", func(t *testing.T) {
		svc := &MockBookingService{
			GetActiveBookingFunc: func(ctx context.Context, userID string) (*dto.BookingResponse, error) {
				return &dto.BookingResponse{ID: "booking-1", UserID: userID, Status: "ACTIVE"}, nil
			},
		}

		w := doJSON(newBookingRouter("user-1", svc), http.MethodGet, "/bookings/active", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.BookingResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "booking-1", resp.ID)
	})
}

func TestBookingHandler_ListSessions(t *testing.T) {
	t.Run("passes pagination", func(t *testing.T) {
		svc := &MockBookingService{
			ListSessionsFunc: func(ctx context.Context, userID string, limit, offset int) (*dto.ListResponse, error) {
				assert.Equal(t, 10, limit)
				assert.Equal(t, 20, offset)
				return &dto.ListResponse{Data: []*dto.BookingResponse{}, Limit: limit, Offset: offset}, nil
			},
		}

		w := doJSON(newBookingRouter("user-1", svc), http.MethodGet, "/bookings?limit=10&offset=20", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("non numeric limit", func(t *testing.T) {
		w := doJSON(newBookingRouter("user-1", &MockBookingService{}), http.MethodGet, "/bookings?limit=ten", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("negative offset", func(t *testing.T) {
		svc := &MockBookingService{
			ListSessionsFunc: func(ctx context.Context, userID string, limit, offset int) (*dto.ListResponse, error) {
				return nil, domain.ErrInvalidPagination
			},
		}

		w := doJSON(newBookingRouter("user-1", svc), http.MethodGet, "/bookings?offset=-1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
