package models

import (
	"encoding/json"
	"errors"
	"time"
)

// City is a location anchor for bus lines.
type City struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Coordinates CityPoint `json:"coordinates"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// Stop is a named point on a bus line.
type Stop struct {
	Name        string   `json:"name"`
	Coordinates Position `json:"coordinates"`
}

// UnmarshalJSON accepts the stored {name, coordinates:[lon,lat]} shape and
// the {name, lat, lng} shape written by older admin forms.
func (s *Stop) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name        string    `json:"name"`
		Coordinates []float64 `json:"coordinates"`
		Lat         *float64  `json:"lat"`
		Lng         *float64  `json:"lng"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Name = raw.Name
	switch {
	case len(raw.Coordinates) >= 2:
		s.Coordinates = Position{raw.Coordinates[0], raw.Coordinates[1]}
	case raw.Lat != nil && raw.Lng != nil:
		s.Coordinates = Position{*raw.Lng, *raw.Lat}
	case len(raw.Coordinates) == 0 && raw.Lat == nil && raw.Lng == nil:
		return errors.New("stop " + raw.Name + " has no coordinates")
	default:
		return errors.New("stop " + raw.Name + " has incomplete coordinates")
	}
	return nil
}

type BusLine struct {
	ID               string      `json:"id,omitempty"`
	Name             string      `json:"name"`
	CityID           string      `json:"city_id"`
	ZonesCovered     []string    `json:"zones_covered"`
	RouteCoordinates *LineString `json:"route_coordinates"`
	Stops            []Stop      `json:"stops"`
	Color            string      `json:"color"`
	Price            *int        `json:"price"`
	Active           bool        `json:"active"`
	CreatedAt        time.Time   `json:"created_at,omitzero"`
}

// Fare returns the stored price or DefaultFare.
func (b BusLine) Fare() int {
	return FareOrDefault(b.Price)
}

// DisplayColor returns the stored color or DefaultLineColor.
func (b BusLine) DisplayColor() string {
	if b.Color == "" {
		return DefaultLineColor
	}
	return b.Color
}

func (b BusLine) StopNames() []string {
	names := make([]string, len(b.Stops))
	for i, s := range b.Stops {
		names[i] = s.Name
	}
	return names
}

type TransportAgency struct {
	ID           string    `json:"id,omitempty"`
	Name         string    `json:"name"`
	ContactPhone *string   `json:"contact_phone"`
	ContactEmail *string   `json:"contact_email"`
	LogoURL      *string   `json:"logo_url,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
}

// AgencyName is the agency projection embedded into route reads.
type AgencyName struct {
	Name string `json:"name"`
}

type IntercityRoute struct {
	ID               string      `json:"id,omitempty"`
	AgencyID         string      `json:"agency_id"`
	DepartureCityID  *string     `json:"departure_city_id,omitempty"`
	ArrivalCityID    *string     `json:"arrival_city_id,omitempty"`
	DeparturePoint   string      `json:"departure_point"`
	ArrivalPoint     string      `json:"arrival_point"`
	RouteCoordinates *LineString `json:"route_coordinates"`
	DurationMinutes  *int        `json:"duration_minutes"`
	Price            *int        `json:"price"`
	Frequency        string      `json:"frequency,omitempty"`
	Schedule         []string    `json:"schedule,omitempty"`
	Active           bool        `json:"active"`
	CreatedAt        time.Time   `json:"created_at,omitzero"`

	// Agency is only populated when the read embeds transport_agencies(name).
	Agency *AgencyName `json:"transport_agencies,omitempty"`
}

// DisplayName is "<departure> → <arrival>".
func (r IntercityRoute) DisplayName() string {
	return r.DeparturePoint + " → " + r.ArrivalPoint
}

func (r IntercityRoute) Fare() int {
	return FareOrDefault(r.Price)
}

func (r IntercityRoute) AgencyName() string {
	if r.Agency == nil {
		return ""
	}
	return r.Agency.Name
}
