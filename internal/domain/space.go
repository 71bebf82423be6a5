package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalStatus is set by the administrative workflow outside this service
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// SpotCounts are the inventory counters of one parking space
type SpotCounts struct {
	Total     int `json:"total_spots"`
	Available int `json:"available_spots"`
	Reserved  int `json:"reserved_spots"`
}

// Validate checks 0 <= available, 0 <= reserved, available + reserved <= total
func (c SpotCounts) Validate() error {
	if c.Total < 0 || c.Available < 0 || c.Reserved < 0 || c.Available+c.Reserved > c.Total {
		return fmt.Errorf("%w: total=%d available=%d reserved=%d",
			ErrInvariantViolation, c.Total, c.Available, c.Reserved)
	}
	return nil
}

// ParkingSpace is a lot offering a fixed number of spots.
// Counters change only through Claim and Release.
type ParkingSpace struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	Name           string          `json:"name"`
	Address        string          `json:"address"`
	PricePerHour   decimal.Decimal `json:"price_per_hour"`
	IsActive       bool            `json:"is_active"`
	ApprovalStatus ApprovalStatus  `json:"approval_status"`
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	counts SpotCounts
}

// NewParkingSpace creates a space holding the given counters.
// Used when loading a row; counters are checked on the first Claim or Release.
func NewParkingSpace(counts SpotCounts) *ParkingSpace {
	return &ParkingSpace{counts: counts}
}

// Counts returns a copy of the counters
func (s *ParkingSpace) Counts() SpotCounts {
	return s.counts
}

// Claim takes one free spot into the reserved pool
func (s *ParkingSpace) Claim() error {
	if err := s.counts.Validate(); err != nil {
		return err
	}
	if !s.IsActive || s.counts.Available <= 0 {
		return ErrNoCapacity
	}

	next := SpotCounts{
		Total:     s.counts.Total,
		Available: s.counts.Available - 1,
		Reserved:  s.counts.Reserved + 1,
	}
	if err := next.Validate(); err != nil {
		return err
	}
	s.counts = next
	return nil
}

// Release returns one spot. Each counter is only moved while it has room,
// so a release never pushes the counters out of bounds.
func (s *ParkingSpace) Release() error {
	if err := s.counts.Validate(); err != nil {
		return err
	}

	next := s.counts
	if next.Available < next.Total {
		next.Available++
	}
	if next.Reserved > 0 {
		next.Reserved--
	}
	if err := next.Validate(); err != nil {
		return err
	}
	s.counts = next
	return nil
}

// IsSearchable reports whether the space may appear in search results
func (s *ParkingSpace) IsSearchable() bool {
	return s.IsActive && s.ApprovalStatus == ApprovalApproved && s.counts.Available > 0
}

// SpaceSummary is one search hit
type SpaceSummary struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	Name           string          `json:"name"`
	Address        string          `json:"address"`
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	PricePerHour   decimal.Decimal `json:"price_per_hour"`
	AvailableSpots int             `json:"available_spots"`
	TotalSpots     int             `json:"total_spots"`
	DistanceKm     float64         `json:"distance_km"`
}
