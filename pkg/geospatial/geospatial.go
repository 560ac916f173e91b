package geospatial

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// ParsePoint converts editable [lng, lat] strings into a point
func ParsePoint(lng, lat string) (orb.Point, error) {
	x, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("%w: longitude %q", ErrInvalidCoordinates, lng)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("%w: latitude %q", ErrInvalidCoordinates, lat)
	}
	p := orb.Point{x, y}
	if err := ValidatePoint(p); err != nil {
		return orb.Point{}, err
	}
	return p, nil
}

// ValidatePoint checks that a point lies within WGS84 bounds
func ValidatePoint(p orb.Point) error {
	if p.Lon() < -180 || p.Lon() > 180 || p.Lat() < -90 || p.Lat() > 90 {
		return fmt.Errorf("%w: %v out of range", ErrInvalidCoordinates, p)
	}
	return nil
}

// FormatPoint renders a point back into the editable [lng, lat] form
func FormatPoint(p orb.Point) []string {
	return []string{
		strconv.FormatFloat(p.Lon(), 'f', -1, 64),
		strconv.FormatFloat(p.Lat(), 'f', -1, 64),
	}
}

// DistanceKm returns the great-circle distance between two points in kilometres
func DistanceKm(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b) / 1000
}

// RoundKm rounds a distance to one decimal, the precision shown to guests
func RoundKm(km float64) float64 {
	return float64(int64(km*10+0.5)) / 10
}
