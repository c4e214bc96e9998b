// Package catalog holds the read flows behind the public screens: home,
// agencies, map and line detail.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/logging"
	"trajet.transportbi.org/internal/mapview"
	"trajet.transportbi.org/internal/models"
	"trajet.transportbi.org/internal/search"
)

const (
	HomeLineCount  = 5
	HomeRouteCount = 3

	// relatedLoadLimit bounds concurrent get-related calls per request.
	relatedLoadLimit = 4
)

type Catalog struct {
	gw     gateway.Gateway
	logger *slog.Logger
}

func New(gw gateway.Gateway) *Catalog {
	return &Catalog{
		gw:     gw,
		logger: slog.Default().With(slog.String("component", "catalog")),
	}
}

// Home is the popular routes list: bus lines first, then intercity routes.
type Home struct {
	Items   []models.SearchResult `json:"items"`
	Partial bool                  `json:"partial"`
}

func (c *Catalog) Home(ctx context.Context) Home {
	var (
		lines     []models.BusLine
		routes    []models.IntercityRoute
		linesErr  error
		routesErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		lines, linesErr = c.gw.BusLines.List(ctx, gateway.Active().Take(HomeLineCount))
		return nil
	})
	g.Go(func() error {
		routes, routesErr = c.gw.Routes.List(ctx, gateway.Active().EmbedAgency().Take(HomeRouteCount))
		return nil
	})
	_ = g.Wait()

	home := Home{Items: []models.SearchResult{}}
	if linesErr != nil {
		logging.LogError(c.logger, "failed to load popular bus lines", linesErr)
		home.Partial = true
	}
	if routesErr != nil {
		logging.LogError(c.logger, "failed to load popular intercity routes", routesErr)
		home.Partial = true
	}
	for _, l := range lines {
		home.Items = append(home.Items, search.BusResult(l))
	}
	for _, r := range routes {
		home.Items = append(home.Items, search.IntercityResult(r))
	}
	return home
}

// RouteSummary is one intercity route as listed under its agency.
type RouteSummary struct {
	ID             string `json:"id"`
	DeparturePoint string `json:"departure_point"`
	ArrivalPoint   string `json:"arrival_point"`
	Fare           int    `json:"fare"`
	FareText       string `json:"fare_text"`
	Duration       string `json:"duration,omitempty"`
}

func summarize(r models.IntercityRoute) RouteSummary {
	fare := r.Fare()
	return RouteSummary{
		ID:             r.ID,
		DeparturePoint: r.DeparturePoint,
		ArrivalPoint:   r.ArrivalPoint,
		Fare:           fare,
		FareText:       models.FormatFare(fare),
		Duration:       models.FormatDuration(r.DurationMinutes),
	}
}

type AgencyWithRoutes struct {
	models.TransportAgency
	Routes []RouteSummary `json:"routes"`

	// RoutesUnavailable is set when the agency's routes failed to load.
	RoutesUnavailable bool `json:"routes_unavailable,omitempty"`
}

// Agencies lists active agencies with their active routes. The per-agency
// loads run concurrently; one failing yields an empty list for that agency
// only.
func (c *Catalog) Agencies(ctx context.Context) ([]AgencyWithRoutes, error) {
	agencies, err := c.gw.Agencies.List(ctx, gateway.Active())
	if err != nil {
		return nil, fmt.Errorf("load agencies: %w", err)
	}

	out := make([]AgencyWithRoutes, len(agencies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(relatedLoadLimit)
	for i, agency := range agencies {
		out[i] = AgencyWithRoutes{TransportAgency: agency, Routes: []RouteSummary{}}
		g.Go(func() error {
			routes, err := c.gw.Routes.List(gctx, gateway.ForOwner("agency_id", agency.ID))
			if err != nil {
				logging.LogError(c.logger, "failed to load agency routes", err,
					slog.String("agency_id", agency.ID))
				out[i].RoutesUnavailable = true
				return nil
			}
			for _, r := range routes {
				out[i].Routes = append(out[i].Routes, summarize(r))
			}
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// LineView is everything the map needs to show one bus line.
type LineView struct {
	Line     models.BusLine     `json:"line"`
	Detail   mapview.LineDetail `json:"detail"`
	Polyline *mapview.Polyline  `json:"polyline,omitempty"`
	Markers  []mapview.Marker   `json:"markers"`
	Viewport *mapview.Viewport  `json:"viewport,omitempty"`
}

func (c *Catalog) Line(ctx context.Context, id string) (LineView, error) {
	line, err := c.gw.BusLines.Get(ctx, id)
	if err != nil {
		return LineView{}, fmt.Errorf("load bus line: %w", err)
	}
	lines := []models.BusLine{line}
	view := LineView{
		Line:    line,
		Detail:  mapview.Detail(line),
		Markers: mapview.Markers(lines),
	}
	if polylines := mapview.Polylines(lines); len(polylines) > 0 {
		view.Polyline = &polylines[0]
	}
	if vp, ok := mapview.ComputeViewport(mapview.Points(lines), mapview.DefaultEdgePadding); ok {
		view.Viewport = &vp
	}
	return view, nil
}

// RouteView is the detail of one intercity route.
type RouteView struct {
	Route    models.IntercityRoute `json:"route"`
	Name     string                `json:"name"`
	Agency   string                `json:"agency,omitempty"`
	Fare     int                   `json:"fare"`
	FareText string                `json:"fare_text"`
	Duration string                `json:"duration,omitempty"`
	Path     []models.LatLng       `json:"path,omitempty"`
}

func (c *Catalog) Route(ctx context.Context, id string) (RouteView, error) {
	r, err := c.gw.Routes.Get(ctx, id)
	if err != nil {
		return RouteView{}, fmt.Errorf("load intercity route: %w", err)
	}
	fare := r.Fare()
	return RouteView{
		Route:    r,
		Name:     r.DisplayName(),
		Agency:   r.AgencyName(),
		Fare:     fare,
		FareText: models.FormatFare(fare),
		Duration: models.FormatDuration(r.DurationMinutes),
		Path:     mapview.Path(r.RouteCoordinates),
	}, nil
}

// MapView is the full map screen: every active line drawn at once.
type MapView struct {
	Polylines   []mapview.Polyline `json:"polylines"`
	Markers     []mapview.Marker   `json:"markers"`
	Viewport    mapview.Viewport   `json:"viewport"`
	Fingerprint string             `json:"fingerprint"`

	lines []models.BusLine
}

// Lines returns the lines the view was built from.
func (m MapView) Lines() []models.BusLine { return m.lines }

func (c *Catalog) Map(ctx context.Context) (MapView, error) {
	lines, err := c.gw.BusLines.List(ctx, gateway.Active())
	if err != nil {
		return MapView{}, fmt.Errorf("load bus lines: %w", err)
	}
	vp, ok := mapview.ComputeViewport(mapview.Points(lines), mapview.DefaultEdgePadding)
	if !ok {
		vp = mapview.DefaultViewport()
	}
	return MapView{
		Polylines:   mapview.Polylines(lines),
		Markers:     mapview.Markers(lines),
		Viewport:    vp,
		Fingerprint: mapview.Fingerprint(lines),
		lines:       lines,
	}, nil
}

// Cities lists every city ordered by name.
func (c *Catalog) Cities(ctx context.Context) ([]models.City, error) {
	cities, err := c.gw.Cities.List(ctx, gateway.Query{}.OrderBy("name", false))
	if err != nil {
		return nil, fmt.Errorf("load cities: %w", err)
	}
	return cities, nil
}
