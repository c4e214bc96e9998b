// Package mapview turns stored line geometry into what a map widget draws:
// polylines, stop markers, the detail panel of a tapped line and the
// viewport that fits everything loaded.
package mapview

import (
	"fmt"

	"github.com/twpayne/go-polyline"
	"trajet.transportbi.org/internal/models"
)

// Polyline is the rendered path of one bus line. Encoded is the Google
// encoded polyline of Points.
type Polyline struct {
	LineID  string          `json:"line_id"`
	Color   string          `json:"color"`
	Points  []models.LatLng `json:"points"`
	Encoded string          `json:"encoded"`
}

// Marker is one stop of one line.
type Marker struct {
	ID       string        `json:"id"`
	LineID   string        `json:"line_id"`
	Title    string        `json:"title"`
	Position models.LatLng `json:"position"`
	Color    string        `json:"color"`
}

// LineDetail is the panel shown when a line's marker is tapped.
type LineDetail struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Zones    []string `json:"zones"`
	Fare     int      `json:"fare"`
	FareText string   `json:"fare_text"`
	Color    string   `json:"color"`
	Stops    []string `json:"stops"`
}

// Path swaps stored [lon, lat] pairs into rendered points. No reprojection
// takes place.
func Path(ls *models.LineString) []models.LatLng {
	if ls.IsEmpty() {
		return nil
	}
	points := make([]models.LatLng, len(ls.Coordinates))
	for i, p := range ls.Coordinates {
		points[i] = p.LatLng()
	}
	return points
}

func encode(points []models.LatLng) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// Polylines returns one polyline per line with geometry, in input order.
func Polylines(lines []models.BusLine) []Polyline {
	out := []Polyline{}
	for _, line := range lines {
		points := Path(line.RouteCoordinates)
		if len(points) == 0 {
			continue
		}
		out = append(out, Polyline{
			LineID:  line.ID,
			Color:   line.DisplayColor(),
			Points:  points,
			Encoded: encode(points),
		})
	}
	return out
}

func MarkerID(lineID string, index int) string {
	return fmt.Sprintf("%s-stop-%d", lineID, index)
}

// Markers returns one marker per stop, lines and stops in input order.
func Markers(lines []models.BusLine) []Marker {
	out := []Marker{}
	for _, line := range lines {
		for i, stop := range line.Stops {
			out = append(out, Marker{
				ID:       MarkerID(line.ID, i),
				LineID:   line.ID,
				Title:    stop.Name,
				Position: stop.Coordinates.LatLng(),
				Color:    line.DisplayColor(),
			})
		}
	}
	return out
}

func Detail(line models.BusLine) LineDetail {
	fare := line.Fare()
	zones := line.ZonesCovered
	if zones == nil {
		zones = []string{}
	}
	return LineDetail{
		ID:       line.ID,
		Name:     line.Name,
		Zones:    zones,
		Fare:     fare,
		FareText: models.FormatFare(fare),
		Color:    line.DisplayColor(),
		Stops:    line.StopNames(),
	}
}

// Points collects every geometry and stop point of lines.
func Points(lines []models.BusLine) []models.LatLng {
	var points []models.LatLng
	for _, line := range lines {
		points = append(points, Path(line.RouteCoordinates)...)
		for _, stop := range line.Stops {
			points = append(points, stop.Coordinates.LatLng())
		}
	}
	return points
}
