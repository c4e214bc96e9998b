package models

import (
	"encoding/json"
	"fmt"
	"math"

	geojson "github.com/paulmach/go.geojson"
)

// Position is a stored point in [longitude, latitude] order, the order used
// by GeoJSON and by every stored line geometry and stop.
type Position [2]float64

func NewPosition(lon, lat float64) Position {
	return Position{lon, lat}
}

func (p Position) Lon() float64 { return p[0] }
func (p Position) Lat() float64 { return p[1] }

// LatLng converts the stored pair into a render point. It is a pure axis
// swap with no reprojection.
func (p Position) LatLng() LatLng {
	return LatLng{Latitude: p[1], Longitude: p[0]}
}

// LatLng is the {latitude, longitude} point consumed by map renderers.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Position converts a render point back to the stored [lon, lat] order.
func (l LatLng) Position() Position {
	return Position{l.Longitude, l.Latitude}
}

// CityPoint is the {lat, lng} object stored on cities.
type CityPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c CityPoint) LatLng() LatLng {
	return LatLng{Latitude: c.Lat, Longitude: c.Lng}
}

// LineString is an ordered path, serialized as a GeoJSON LineString.
type LineString struct {
	Coordinates []Position
}

func NewLineString(points ...Position) *LineString {
	return &LineString{Coordinates: points}
}

func (l LineString) MarshalJSON() ([]byte, error) {
	coords := make([][]float64, len(l.Coordinates))
	for i, p := range l.Coordinates {
		coords[i] = []float64{p[0], p[1]}
	}
	return json.Marshal(geojson.NewLineStringGeometry(coords))
}

func (l *LineString) UnmarshalJSON(data []byte) error {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return fmt.Errorf("invalid route geometry: %w", err)
	}
	if g.Type != geojson.GeometryLineString {
		return fmt.Errorf("invalid route geometry: expected LineString, got %s", g.Type)
	}

	coords := make([]Position, 0, len(g.LineString))
	for i, c := range g.LineString {
		if len(c) < 2 {
			return fmt.Errorf("invalid route geometry: point %d has %d values", i, len(c))
		}
		coords = append(coords, Position{c[0], c[1]})
	}
	l.Coordinates = coords
	return nil
}

// IsEmpty reports whether l is nil or has no points.
func (l *LineString) IsEmpty() bool {
	return l == nil || len(l.Coordinates) == 0
}

// CoordinateError reports an unusable latitude or longitude.
type CoordinateError struct {
	Field   string
	Value   float64
	Message string
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf("%s: %s (value: %.6f)", e.Field, e.Message, e.Value)
}

func checkAxis(field string, v, limit float64) error {
	switch {
	case math.IsNaN(v):
		return &CoordinateError{Field: field, Value: v, Message: "NaN is not allowed"}
	case math.IsInf(v, 0):
		return &CoordinateError{Field: field, Value: v, Message: "infinite value is not allowed"}
	case v < -limit || v > limit:
		return &CoordinateError{Field: field, Value: v, Message: fmt.Sprintf("must be between %g and %g", -limit, limit)}
	}
	return nil
}

// ValidatePosition checks a stored pair. prefix names the field in errors.
func ValidatePosition(p Position, prefix string) error {
	if err := checkAxis(prefix+".longitude", p.Lon(), 180); err != nil {
		return err
	}
	return checkAxis(prefix+".latitude", p.Lat(), 90)
}

func ValidateLatLng(l LatLng, prefix string) error {
	return ValidatePosition(l.Position(), prefix)
}
