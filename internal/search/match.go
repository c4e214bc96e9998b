// Package search implements the free-text search over bus lines and
// intercity routes.
package search

import (
	"strings"

	"trajet.transportbi.org/internal/models"
)

// Match returns the candidates whose fields contain query, case-insensitively.
// Bus lines match on name or any covered zone; intercity routes match on
// departure or arrival point. Bus results come first, each kind in input
// order. A blank query matches nothing.
func Match(query string, lines []models.BusLine, routes []models.IntercityRoute) []models.SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	results := []models.SearchResult{}
	if q == "" {
		return results
	}

	for _, line := range lines {
		if lineMatches(q, line) {
			results = append(results, BusResult(line))
		}
	}
	for _, route := range routes {
		if contains(route.DeparturePoint, q) || contains(route.ArrivalPoint, q) {
			results = append(results, IntercityResult(route))
		}
	}
	return results
}

func contains(field, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(field), lowerQuery)
}

func lineMatches(q string, line models.BusLine) bool {
	if contains(line.Name, q) {
		return true
	}
	for _, zone := range line.ZonesCovered {
		if contains(zone, q) {
			return true
		}
	}
	return false
}

// BusResult projects a bus line into a result.
func BusResult(line models.BusLine) models.SearchResult {
	return models.SearchResult{
		ID:    line.ID,
		Name:  line.Name,
		Kind:  models.KindBus,
		Zones: line.ZonesCovered,
	}
}

// IntercityResult projects a route into a result; Details carries the fare
// only when a price is stored.
func IntercityResult(route models.IntercityRoute) models.SearchResult {
	r := models.SearchResult{
		ID:     route.ID,
		Name:   route.DisplayName(),
		Kind:   models.KindIntercity,
		Agency: route.AgencyName(),
	}
	if route.Price != nil && *route.Price != 0 {
		r.Details = models.FormatFare(*route.Price)
	}
	return r
}
