package utils

import (
	"math"

	"trajet.transportbi.org/internal/models"
)

const (
	// RadiusOfEarthInMeters is the mean Earth radius.
	RadiusOfEarthInMeters = 6371010.0
)

// CoordinateBounds is a latitude/longitude bounding box.
type CoordinateBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Distance returns the great-circle distance in meters between two points.
// Points closer than ~0.2 degrees use the equirectangular approximation.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	if math.Abs(lat2-lat1) < 0.2 && math.Abs(lon2-lon1) < 0.2 {
		lat1Rad := lat1 * (math.Pi / 180)
		lat2Rad := lat2 * (math.Pi / 180)
		dLatRad := (lat2 - lat1) * (math.Pi / 180)
		dLonRad := (lon2 - lon1) * (math.Pi / 180)

		x := dLonRad * math.Cos((lat1Rad+lat2Rad)/2)
		y := dLatRad
		return RadiusOfEarthInMeters * math.Sqrt(x*x+y*y)
	}

	lat1Rad := lat1 * (math.Pi / 180)
	lon1Rad := lon1 * (math.Pi / 180)
	lat2Rad := lat2 * (math.Pi / 180)
	lon2Rad := lon2 * (math.Pi / 180)
	deltaLon := lon2Rad - lon1Rad

	y := math.Sqrt(math.Pow(math.Cos(lat2Rad)*math.Sin(deltaLon), 2) +
		math.Pow(math.Cos(lat1Rad)*math.Sin(lat2Rad)-math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(deltaLon), 2))
	x := math.Sin(lat1Rad)*math.Sin(lat2Rad) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Cos(deltaLon)

	return RadiusOfEarthInMeters * math.Atan2(y, x)
}

// DistanceBetween is Distance for two rendered points.
func DistanceBetween(a, b models.LatLng) float64 {
	return Distance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// CalculateBounds returns the box extending distance meters around a point.
func CalculateBounds(lat, lon, distance float64) CoordinateBounds {
	latRadians := lat * math.Pi / 180
	lonRadians := lon * math.Pi / 180

	latOffset := distance / RadiusOfEarthInMeters
	lonOffset := distance / (math.Cos(latRadians) * RadiusOfEarthInMeters)

	return CoordinateBounds{
		MinLat: (latRadians - latOffset) * 180 / math.Pi,
		MaxLat: (latRadians + latOffset) * 180 / math.Pi,
		MinLon: (lonRadians - lonOffset) * 180 / math.Pi,
		MaxLon: (lonRadians + lonOffset) * 180 / math.Pi,
	}
}

// Envelope returns the smallest box containing every point, or false when
// points is empty.
func Envelope(points []models.LatLng) (CoordinateBounds, bool) {
	if len(points) == 0 {
		return CoordinateBounds{}, false
	}
	b := CoordinateBounds{
		MinLat: points[0].Latitude,
		MaxLat: points[0].Latitude,
		MinLon: points[0].Longitude,
		MaxLon: points[0].Longitude,
	}
	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p.Latitude)
		b.MaxLat = math.Max(b.MaxLat, p.Latitude)
		b.MinLon = math.Min(b.MinLon, p.Longitude)
		b.MaxLon = math.Max(b.MaxLon, p.Longitude)
	}
	return b, true
}

func (b CoordinateBounds) Center() models.LatLng {
	return models.LatLng{Latitude: (b.MinLat + b.MaxLat) / 2, Longitude: (b.MinLon + b.MaxLon) / 2}
}

func (b CoordinateBounds) LatSpan() float64 { return b.MaxLat - b.MinLat }
func (b CoordinateBounds) LonSpan() float64 { return b.MaxLon - b.MinLon }

func (b CoordinateBounds) Contains(p models.LatLng) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLon && p.Longitude <= b.MaxLon
}
