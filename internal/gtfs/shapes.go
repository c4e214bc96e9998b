package gtfs

import (
	"cmp"
	"slices"
	"strings"

	"github.com/OneBusAway/go-gtfs"
	"trajet.transportbi.org/internal/models"
)

// LineDraft is a GTFS route reshaped into bus line fields. It is not yet
// validated or stored.
type LineDraft struct {
	RouteID string
	Name    string
	Color   string
	Zones   []string
	Stops   []models.Stop
	Path    *models.LineString
}

// routeName prefers "<short> <long>", falling back to whichever is set.
func routeName(r *gtfs.Route) string {
	short := strings.TrimSpace(r.ShortName)
	long := strings.TrimSpace(r.LongName)
	switch {
	case short != "" && long != "":
		return short + " " + long
	case short != "":
		return short
	default:
		return long
	}
}

func routeColor(r *gtfs.Route) string {
	c := strings.TrimPrefix(strings.TrimSpace(r.Color), "#")
	if len(c) != 6 {
		return models.DefaultLineColor
	}
	return "#" + strings.ToUpper(c)
}

// shapePath converts a shape's points to [lon, lat] positions.
func shapePath(shape *gtfs.Shape) *models.LineString {
	if shape == nil || len(shape.Points) < 2 {
		return nil
	}
	points := make([]models.Position, len(shape.Points))
	for i, p := range shape.Points {
		points[i] = models.NewPosition(p.Longitude, p.Latitude)
	}
	return models.NewLineString(points...)
}

// tripStops returns the located stops of trip in stop sequence order and the
// distinct zone ids they belong to.
func tripStops(trip *gtfs.ScheduledTrip) ([]models.Stop, []string) {
	stopTimes := slices.Clone(trip.StopTimes)
	slices.SortStableFunc(stopTimes, func(a, b gtfs.ScheduledStopTime) int {
		return cmp.Compare(a.StopSequence, b.StopSequence)
	})

	stops := []models.Stop{}
	zones := []string{}
	for _, st := range stopTimes {
		s := st.Stop
		if s == nil || s.Latitude == nil || s.Longitude == nil {
			continue
		}
		stops = append(stops, models.Stop{
			Name:        s.Name,
			Coordinates: models.NewPosition(*s.Longitude, *s.Latitude),
		})
		if z := strings.TrimSpace(s.ZoneId); z != "" && !slices.Contains(zones, z) {
			zones = append(zones, z)
		}
	}
	return stops, zones
}

// longer reports whether a should represent its route rather than b: more
// stop times wins, then the smaller trip id.
func longer(a, b *gtfs.ScheduledTrip) bool {
	if len(a.StopTimes) != len(b.StopTimes) {
		return len(a.StopTimes) > len(b.StopTimes)
	}
	return a.ID < b.ID
}

// Drafts returns one draft per route of static, in feed order. The route's
// longest trip supplies the stops and, when it has a shape, the path.
// Routes without trips still yield a draft with no stops.
func Drafts(static *gtfs.Static) []LineDraft {
	representative := make(map[string]*gtfs.ScheduledTrip, len(static.Routes))
	for i := range static.Trips {
		t := &static.Trips[i]
		if t.Route == nil {
			continue
		}
		if cur, ok := representative[t.Route.Id]; !ok || longer(t, cur) {
			representative[t.Route.Id] = t
		}
	}

	drafts := make([]LineDraft, 0, len(static.Routes))
	for i := range static.Routes {
		r := &static.Routes[i]
		d := LineDraft{
			RouteID: r.Id,
			Name:    routeName(r),
			Color:   routeColor(r),
			Zones:   []string{},
			Stops:   []models.Stop{},
		}
		if trip, ok := representative[r.Id]; ok {
			d.Stops, d.Zones = tripStops(trip)
			d.Path = shapePath(trip.Shape)
		}
		drafts = append(drafts, d)
	}
	return drafts
}
