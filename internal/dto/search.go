package dto

import "github.com/hellyrj/smart-parking-system/internal/domain"

// SearchRequest represents geospatial search query parameters
type SearchRequest struct {
	Latitude  *float64 `form:"lat" binding:"required"`
	Longitude *float64 `form:"lng" binding:"required"`
	RadiusKm  float64  `form:"radius"`
	Limit     int      `form:"limit"`
}

// SpaceResponse represents one search hit
type SpaceResponse struct {
	ID             string  `json:"id"`
	OwnerID        string  `json:"owner_id"`
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	PricePerHour   string  `json:"price_per_hour"`
	AvailableSpots int     `json:"available_spots"`
	TotalSpots     int     `json:"total_spots"`
	DistanceKm     float64 `json:"distance_km"`
}

// SearchResponse represents search results ordered by distance
type SearchResponse struct {
	Spaces []*SpaceResponse `json:"spaces"`
	Count  int              `json:"count"`
}

// FromSummary converts a domain SpaceSummary to SpaceResponse
func FromSummary(s *domain.SpaceSummary) *SpaceResponse {
	return &SpaceResponse{
		ID:             s.ID,
		OwnerID:        s.OwnerID,
		Name:           s.Name,
		Address:        s.Address,
		Latitude:       s.Latitude,
		Longitude:      s.Longitude,
		PricePerHour:   Money(s.PricePerHour),
		AvailableSpots: s.AvailableSpots,
		TotalSpots:     s.TotalSpots,
		DistanceKm:     s.DistanceKm,
	}
}
