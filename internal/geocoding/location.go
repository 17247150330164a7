// Package geocoding resolves user supplied locations into coordinates and
// provides the distance math used by nearby search.
package geocoding

import (
	"fmt"
	"math"
	"strings"

	"bookswap/internal/models"
)

const earthRadiusKm = 6371.0

// LocationInput is the JSON shape clients send for a location.
// Either text alone, or lat and lon together (text then labels the point).
type LocationInput struct {
	Text string   `json:"text"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
}

// Location is either Coordinates or FreeformAddress.
type Location interface {
	location()
}

// Coordinates is an explicit point supplied by the client.
type Coordinates struct {
	Lat   float64
	Lon   float64
	Label string
}

// FreeformAddress is text that needs a geocoding lookup.
type FreeformAddress struct {
	Text string
}

func (Coordinates) location()     {}
func (FreeformAddress) location() {}

// ParseLocation validates input and decides which variant it is.
func ParseLocation(in LocationInput) (Location, error) {
	text := strings.TrimSpace(in.Text)
	switch {
	case in.Lat != nil && in.Lon != nil:
		lat, lon := *in.Lat, *in.Lon
		if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return nil, models.NewValidationError("Coordinates out of range")
		}
		return Coordinates{Lat: lat, Lon: lon, Label: text}, nil
	case in.Lat != nil || in.Lon != nil:
		return nil, models.NewValidationError("Both lat and lon are required")
	case text == "":
		return nil, models.NewValidationError("Location is required")
	case len(text) > 255:
		return nil, models.NewValidationError("Location must be at most 255 characters")
	default:
		return FreeformAddress{Text: text}, nil
	}
}

// Resolved is a location ready to be stored on a profile or book.
type Resolved struct {
	Text      string
	Latitude  *float64
	Longitude *float64
}

// HasCoordinates reports whether the location resolved to a point.
func (r Resolved) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// DistanceKm is the great-circle distance between two points.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Bounds is a latitude/longitude rectangle.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoundsAround returns a rectangle that contains every point within radiusKm
// of the center. Callers still filter by DistanceKm for the exact circle.
func BoundsAround(lat, lon, radiusKm float64) Bounds {
	dLat := radiusKm / earthRadiusKm * 180 / math.Pi
	cos := math.Cos(toRadians(lat))
	dLon := 180.0
	if cos > 1e-9 {
		dLon = math.Min(180, dLat/cos)
	}
	return Bounds{
		MinLat: math.Max(-90, lat-dLat),
		MaxLat: math.Min(90, lat+dLat),
		MinLon: math.Max(-180, lon-dLon),
		MaxLon: math.Min(180, lon+dLon),
	}
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

func formatPoint(lat, lon float64) string {
	return fmt.Sprintf("%.6f, %.6f", lat, lon)
}
