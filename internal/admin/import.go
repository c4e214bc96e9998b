package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gogtfs "github.com/OneBusAway/go-gtfs"
	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/gtfs"
	"trajet.transportbi.org/internal/logging"
	"trajet.transportbi.org/internal/models"
)

// ImportSummary reports the outcome of a GTFS import. Skipped lists the
// route ids that were not inserted; Errors maps a route id to the reason.
type ImportSummary struct {
	Created int               `json:"created"`
	Skipped []string          `json:"skipped"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func (s *ImportSummary) skip(routeID, reason string) {
	s.Skipped = append(s.Skipped, routeID)
	if s.Errors == nil {
		s.Errors = make(map[string]string)
	}
	s.Errors[routeID] = reason
}

// draftForm turns a GTFS draft into the form an admin would have typed.
func draftForm(d gtfs.LineDraft, cityID string) BusLineForm {
	stops := make([]StopForm, len(d.Stops))
	for i, s := range d.Stops {
		stops[i] = StopForm{Name: s.Name, Lat: s.Coordinates.Lat(), Lng: s.Coordinates.Lon()}
	}
	return BusLineForm{
		Name:             d.Name,
		CityID:           cityID,
		Zones:            strings.Join(d.Zones, ", "),
		Color:            d.Color,
		Stops:            stops,
		RouteCoordinates: d.Path,
	}
}

// ImportGTFS inserts one active bus line per route of feed into the city.
// Routes whose name already exists in the city (case-insensitively) or that
// fail validation are skipped. Insert failures stop the import and return
// the summary so far together with the error.
func (f *Flows) ImportGTFS(ctx context.Context, feed *gogtfs.Static, cityID string) (ImportSummary, error) {
	summary := ImportSummary{Skipped: []string{}}
	if err := f.authorize(); err != nil {
		return summary, err
	}
	cityID = strings.TrimSpace(cityID)
	if cityID == "" {
		verr := &ValidationError{}
		verr.add("city_id", "is required")
		return summary, verr
	}
	if feed == nil {
		return summary, errors.New("import gtfs: no feed")
	}

	if _, err := f.gw.Cities.Get(ctx, cityID); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			verr := &ValidationError{}
			verr.add("city_id", "does not exist")
			return summary, verr
		}
		return summary, fmt.Errorf("load city: %w", err)
	}

	existing, err := f.gw.BusLines.List(ctx, gateway.Query{}.Where("city_id", cityID))
	if err != nil {
		return summary, fmt.Errorf("load existing bus lines: %w", err)
	}
	taken := make(map[string]bool, len(existing))
	for _, l := range existing {
		taken[strings.ToLower(strings.TrimSpace(l.Name))] = true
	}

	for _, d := range gtfs.Drafts(feed) {
		form := draftForm(d, cityID)
		if err := f.validateBusLine(&form); err != nil {
			summary.skip(d.RouteID, err.Error())
			continue
		}
		key := strings.ToLower(form.Name)
		if taken[key] {
			summary.skip(d.RouteID, "a bus line with this name already exists")
			continue
		}

		record := form.record()
		record.Price = models.IntPtr(models.DefaultFare)
		created, err := f.gw.BusLines.Insert(ctx, record)
		if err != nil {
			logging.LogError(f.logger, "GTFS import stopped", err,
				slog.String("route_id", d.RouteID),
				slog.Int("created", summary.Created))
			return summary, fmt.Errorf("insert bus line for route %s: %w", d.RouteID, err)
		}
		taken[key] = true
		summary.Created++
		f.logMutation("import", gateway.TableBusLines, created.ID)
	}

	logging.LogOperation(f.logger, "gtfs_import_completed",
		slog.String("city_id", cityID),
		slog.Int("created", summary.Created),
		slog.Int("skipped", len(summary.Skipped)))
	return summary, nil
}
