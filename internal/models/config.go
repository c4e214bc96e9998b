package models

// DefaultMapCenter is the center of Bujumbura.
var DefaultMapCenter = LatLng{Latitude: -3.3731, Longitude: 29.36}

const (
	DefaultZoom        = 12
	DefaultRegionDelta = 0.1
)

// ConfigModel bootstraps clients: it carries the map defaults and the map
// provider token read at startup.
type ConfigModel struct {
	Id               string  `json:"id"`
	Name             string  `json:"name"`
	Version          string  `json:"version"`
	MapCenter        LatLng  `json:"mapCenter"`
	LatitudeDelta    float64 `json:"latitudeDelta"`
	LongitudeDelta   float64 `json:"longitudeDelta"`
	DefaultZoom      int     `json:"defaultZoom"`
	MapboxToken      string  `json:"mapboxToken"`
	Currency         string  `json:"currency"`
	DefaultFare      int     `json:"defaultFare"`
	DefaultLineColor string  `json:"defaultLineColor"`
}

func NewConfigModel(version, mapboxToken string) ConfigModel {
	return ConfigModel{
		Id:               "trajet",
		Name:             "Trajet Burundi",
		Version:          version,
		MapCenter:        DefaultMapCenter,
		LatitudeDelta:    DefaultRegionDelta,
		LongitudeDelta:   DefaultRegionDelta,
		DefaultZoom:      DefaultZoom,
		MapboxToken:      mapboxToken,
		Currency:         CurrencyUnit,
		DefaultFare:      DefaultFare,
		DefaultLineColor: DefaultLineColor,
	}
}
