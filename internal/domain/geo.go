package domain

import "math"

// EarthRadiusKm is the mean Earth radius used by search
const EarthRadiusKm = 6371.0

// kmPerDegreeLat is the arc length of one degree of latitude
const kmPerDegreeLat = EarthRadiusKm * math.Pi / 180

// Distance returns the great-circle distance in km using the spherical law of
// cosines. It matches the SQL used by space search.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	x := math.Sin(phi1)*math.Sin(phi2) + math.Cos(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	// Rounding can push x just past 1 for identical points
	x = math.Max(-1, math.Min(1, x))
	return EarthRadiusKm * math.Acos(x)
}

// ValidateSearch checks the search coordinates and radius
func ValidateSearch(lat, lng, radiusKm, maxRadiusKm float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return ErrInvalidLatitude
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return ErrInvalidLongitude
	}
	if math.IsNaN(radiusKm) || radiusKm <= 0 || radiusKm > maxRadiusKm {
		return ErrInvalidRadius
	}
	return nil
}

// BoundingBox is a lat/lng rectangle containing every point within a radius
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// NewBoundingBox returns a box enclosing the circle of radiusKm around lat,lng.
// Near the poles or across the antimeridian the longitude span widens to the full range.
func NewBoundingBox(lat, lng, radiusKm float64) BoundingBox {
	dLat := radiusKm / kmPerDegreeLat
	box := BoundingBox{
		MinLat: math.Max(-90, lat-dLat),
		MaxLat: math.Min(90, lat+dLat),
		MinLng: -180,
		MaxLng: 180,
	}

	if box.MinLat <= -90 || box.MaxLat >= 90 {
		return box
	}

	// Widest longitude offset reached by the circle
	ratio := math.Sin(radiusKm/EarthRadiusKm) / math.Cos(lat*math.Pi/180)
	if ratio >= 1 {
		return box
	}
	dLng := math.Asin(ratio) * 180 / math.Pi
	if lng-dLng >= -180 && lng+dLng <= 180 {
		box.MinLng = lng - dLng
		box.MaxLng = lng + dLng
	}
	return box
}
