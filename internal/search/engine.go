package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/logging"
	"trajet.transportbi.org/internal/models"
)

// Observer receives one call per executed search.
type Observer interface {
	ObserveSearch(partial bool, results int, d time.Duration)
}

// Outcome is the result of one search. Partial is set when a collection
// could not be loaded and contributed no candidates.
type Outcome struct {
	Query   string                `json:"query"`
	Results []models.SearchResult `json:"results"`
	Partial bool                  `json:"partial"`
}

type Engine struct {
	lines    gateway.Table[models.BusLine]
	routes   gateway.Table[models.IntercityRoute]
	observer Observer
	logger   *slog.Logger
}

// NewEngine searches the active rows of lines and routes. observer may be nil.
func NewEngine(lines gateway.Table[models.BusLine], routes gateway.Table[models.IntercityRoute], observer Observer) *Engine {
	return &Engine{
		lines:    lines,
		routes:   routes,
		observer: observer,
		logger:   slog.Default().With(slog.String("component", "search")),
	}
}

// Search loads both collections concurrently and matches query against
// them. A blank query returns an empty outcome without touching the gateway
// or recents. Otherwise the trimmed query is recorded in recents, which may
// be nil.
func (e *Engine) Search(ctx context.Context, query string, recents *Recents) Outcome {
	query = strings.TrimSpace(query)
	out := Outcome{Query: query, Results: []models.SearchResult{}}
	if query == "" {
		return out
	}
	start := time.Now()

	var (
		lines     []models.BusLine
		routes    []models.IntercityRoute
		linesErr  error
		routesErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		lines, linesErr = e.lines.List(ctx, gateway.Active())
		return nil
	})
	g.Go(func() error {
		routes, routesErr = e.routes.List(ctx, gateway.Active().EmbedAgency())
		return nil
	})
	_ = g.Wait()

	if linesErr != nil {
		logging.LogError(e.logger, "bus lines unavailable, searching intercity routes only", linesErr)
		lines, out.Partial = nil, true
	}
	if routesErr != nil {
		logging.LogError(e.logger, "intercity routes unavailable, searching bus lines only", routesErr)
		routes, out.Partial = nil, true
	}

	out.Results = Match(query, lines, routes)
	if recents != nil {
		recents.Add(query)
	}
	if e.observer != nil {
		e.observer.ObserveSearch(out.Partial, len(out.Results), time.Since(start))
	}
	return out
}
