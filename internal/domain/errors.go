package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// ErrNotFound is the parent of every lookup miss
	ErrNotFound             = errors.New("not found")
	ErrSpaceNotFound        = fmt.Errorf("parking space %w", ErrNotFound)
	ErrBookingNotFound      = fmt.Errorf("booking %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)

	// Inventory errors
	ErrNoCapacity         = errors.New("no spots available")
	ErrInvariantViolation = errors.New("spot counter invariant violated")

	// Lifecycle errors
	ErrAlreadyBooked      = errors.New("user already has an open booking")
	ErrReservationExpired = errors.New("reservation has expired")
	ErrNoActiveSession    = errors.New("no active session")
	ErrInvalidTransition  = errors.New("invalid booking status transition")

	// ErrInvalidArgument is the parent of every input validation error
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidUserID        = fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	ErrInvalidSpaceID       = fmt.Errorf("%w: space id is required", ErrInvalidArgument)
	ErrInvalidBookingID     = fmt.Errorf("%w: booking id is required", ErrInvalidArgument)
	ErrInvalidLatitude      = fmt.Errorf("%w: latitude must be within [-90, 90]", ErrInvalidArgument)
	ErrInvalidLongitude     = fmt.Errorf("%w: longitude must be within [-180, 180]", ErrInvalidArgument)
	ErrInvalidRadius        = fmt.Errorf("%w: radius out of range", ErrInvalidArgument)
	ErrInvalidPaymentMethod = fmt.Errorf("%w: payment method must be card, wallet or cash", ErrInvalidArgument)
	ErrInvalidPagination    = fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidArgument)
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsConflictError checks if the error is a state conflict the caller can resolve
func IsConflictError(err error) bool {
	return errors.Is(err, ErrNoCapacity) ||
		errors.Is(err, ErrAlreadyBooked) ||
		errors.Is(err, ErrNoActiveSession) ||
		errors.Is(err, ErrInvalidTransition)
}
