package admin

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/models"
)

// AgencyForm creates an agency when ID is empty and updates it otherwise.
type AgencyForm struct {
	ID           string `json:"id"`
	Name         string `json:"name" validate:"required,max=120"`
	ContactPhone string `json:"contact_phone" validate:"omitempty,max=32"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	LogoURL      string `json:"logo_url" validate:"omitempty,url"`
}

func (f *AgencyForm) normalize() {
	f.ID = strings.TrimSpace(f.ID)
	f.Name = strings.TrimSpace(f.Name)
	f.ContactPhone = strings.TrimSpace(f.ContactPhone)
	f.ContactEmail = strings.TrimSpace(f.ContactEmail)
	f.LogoURL = strings.TrimSpace(f.LogoURL)
}

func (f AgencyForm) record() models.TransportAgency {
	return models.TransportAgency{
		Name:         f.Name,
		ContactPhone: models.StringPtr(f.ContactPhone),
		ContactEmail: models.StringPtr(f.ContactEmail),
		LogoURL:      models.StringPtr(f.LogoURL),
		Active:       true,
	}
}

func (f AgencyForm) patch() gateway.Patch {
	return gateway.Patch{
		"name":          f.Name,
		"contact_phone": models.StringPtr(f.ContactPhone),
		"contact_email": models.StringPtr(f.ContactEmail),
		"logo_url":      models.StringPtr(f.LogoURL),
	}
}

// StopForm is a stop as entered in the admin form.
type StopForm struct {
	Name string  `json:"name" validate:"required,max=120"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// BusLineForm carries the bus line fields as typed by an admin: zones as
// comma-separated text and the price as free text.
type BusLineForm struct {
	ID               string             `json:"id"`
	Name             string             `json:"name" validate:"required,max=120"`
	CityID           string             `json:"city_id" validate:"required"`
	Zones            string             `json:"zones"`
	Color            string             `json:"color" validate:"omitempty,hexcolor"`
	Price            string             `json:"price"`
	Stops            []StopForm         `json:"stops" validate:"dive"`
	RouteCoordinates *models.LineString `json:"route_coordinates"`
}

func (f *BusLineForm) normalize() {
	f.ID = strings.TrimSpace(f.ID)
	f.Name = strings.TrimSpace(f.Name)
	f.CityID = strings.TrimSpace(f.CityID)
	f.Color = strings.TrimSpace(f.Color)
	if f.Color == "" {
		f.Color = models.DefaultLineColor
	}
	for i := range f.Stops {
		f.Stops[i].Name = strings.TrimSpace(f.Stops[i].Name)
	}
}

// checkGeometry validates stop and path coordinates beyond the struct tags.
func (f BusLineForm) checkGeometry(verr *ValidationError) {
	for i, s := range f.Stops {
		prefix := fmt.Sprintf("stops[%d]", i)
		if err := models.ValidateLatLng(models.LatLng{Latitude: s.Lat, Longitude: s.Lng}, prefix); err != nil {
			addCoordinateError(verr, err)
		}
	}
	if f.RouteCoordinates == nil {
		return
	}
	for i, p := range f.RouteCoordinates.Coordinates {
		if err := models.ValidatePosition(p, fmt.Sprintf("route_coordinates[%d]", i)); err != nil {
			addCoordinateError(verr, err)
		}
	}
}

func addCoordinateError(verr *ValidationError, err error) {
	var ce *models.CoordinateError
	if errors.As(err, &ce) {
		verr.add(ce.Field, ce.Message)
		return
	}
	verr.add("coordinates", err.Error())
}

// SplitZones splits comma-separated zone text, trimming each entry and
// dropping empty ones.
func SplitZones(text string) []string {
	zones := []string{}
	for _, z := range strings.Split(text, ",") {
		if z = strings.TrimSpace(z); z != "" {
			zones = append(zones, z)
		}
	}
	return zones
}

// ParsePrice reads the leading integer of text. Empty, unparsable, zero or
// negative input yields DefaultFare.
func ParsePrice(text string) int {
	text = strings.TrimSpace(text)
	n, digits := 0, 0
	for _, r := range text {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			break
		}
		n = n*10 + int(r-'0')
		digits++
		if n > 1_000_000_000 {
			break
		}
	}
	if digits == 0 || n == 0 {
		return models.DefaultFare
	}
	return n
}

func (f BusLineForm) stops() []models.Stop {
	stops := make([]models.Stop, len(f.Stops))
	for i, s := range f.Stops {
		stops[i] = models.Stop{Name: s.Name, Coordinates: models.NewPosition(s.Lng, s.Lat)}
	}
	return stops
}

func (f BusLineForm) record() models.BusLine {
	return models.BusLine{
		Name:             f.Name,
		CityID:           f.CityID,
		ZonesCovered:     SplitZones(f.Zones),
		RouteCoordinates: f.RouteCoordinates,
		Stops:            f.stops(),
		Color:            f.Color,
		Price:            models.IntPtr(ParsePrice(f.Price)),
		Active:           true,
	}
}

func (f BusLineForm) patch() gateway.Patch {
	return gateway.Patch{
		"name":              f.Name,
		"city_id":           f.CityID,
		"zones_covered":     SplitZones(f.Zones),
		"color":             f.Color,
		"price":             ParsePrice(f.Price),
		"stops":             f.stops(),
		"route_coordinates": f.RouteCoordinates,
	}
}

// RouteForm creates or updates an intercity route.
type RouteForm struct {
	ID              string   `json:"id"`
	AgencyID        string   `json:"agency_id" validate:"required"`
	DepartureCityID string   `json:"departure_city_id"`
	ArrivalCityID   string   `json:"arrival_city_id"`
	DeparturePoint  string   `json:"departure_point" validate:"required,max=120"`
	ArrivalPoint    string   `json:"arrival_point" validate:"required,max=120,nefield=DeparturePoint"`
	Price           *int     `json:"price" validate:"omitempty,gte=0"`
	DurationMinutes *int     `json:"duration_minutes" validate:"omitempty,gte=0"`
	Frequency       string   `json:"frequency" validate:"max=120"`
	Schedule        []string `json:"schedule" validate:"dive,clocktime"`
}

func (f *RouteForm) normalize() {
	f.ID = strings.TrimSpace(f.ID)
	f.AgencyID = strings.TrimSpace(f.AgencyID)
	f.DepartureCityID = strings.TrimSpace(f.DepartureCityID)
	f.ArrivalCityID = strings.TrimSpace(f.ArrivalCityID)
	f.DeparturePoint = strings.TrimSpace(f.DeparturePoint)
	f.ArrivalPoint = strings.TrimSpace(f.ArrivalPoint)
	f.Frequency = strings.TrimSpace(f.Frequency)
	for i := range f.Schedule {
		f.Schedule[i] = strings.TrimSpace(f.Schedule[i])
	}
}

func (f RouteForm) record() models.IntercityRoute {
	return models.IntercityRoute{
		AgencyID:        f.AgencyID,
		DepartureCityID: models.StringPtr(f.DepartureCityID),
		ArrivalCityID:   models.StringPtr(f.ArrivalCityID),
		DeparturePoint:  f.DeparturePoint,
		ArrivalPoint:    f.ArrivalPoint,
		Price:           f.Price,
		DurationMinutes: f.DurationMinutes,
		Frequency:       f.Frequency,
		Schedule:        f.Schedule,
		Active:          true,
	}
}

func (f RouteForm) patch() gateway.Patch {
	return gateway.Patch{
		"agency_id":         f.AgencyID,
		"departure_city_id": models.StringPtr(f.DepartureCityID),
		"arrival_city_id":   models.StringPtr(f.ArrivalCityID),
		"departure_point":   f.DeparturePoint,
		"arrival_point":     f.ArrivalPoint,
		"price":             f.Price,
		"duration_minutes":  f.DurationMinutes,
		"frequency":         f.Frequency,
		"schedule":          f.Schedule,
	}
}

// CityForm creates or updates a city.
type CityForm struct {
	ID   string  `json:"id"`
	Name string  `json:"name" validate:"required,max=120"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

func (f *CityForm) normalize() {
	f.ID = strings.TrimSpace(f.ID)
	f.Name = strings.TrimSpace(f.Name)
}

func (f CityForm) point() models.CityPoint {
	return models.CityPoint{Lat: f.Lat, Lng: f.Lng}
}
