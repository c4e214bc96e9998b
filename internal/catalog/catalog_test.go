package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/gateway/gatewaytest"
	"trajet.transportbi.org/internal/models"
)

type fixture struct {
	cities   *gatewaytest.Stub[models.City]
	lines    *gatewaytest.Stub[models.BusLine]
	agencies *gatewaytest.Stub[models.TransportAgency]
	routes   *gatewaytest.Stub[models.IntercityRoute]
}

func newFixture() fixture {
	lines := make([]models.BusLine, 7)
	for i := range lines {
		lines[i] = models.BusLine{ID: string(rune('a'+i)) + "-line", Name: "Ligne", Active: true}
	}
	lines[0].RouteCoordinates = models.NewLineString(models.NewPosition(29.36, -3.38), models.NewPosition(29.37, -3.39))
	lines[0].Stops = []models.Stop{{Name: "Kinindo", Coordinates: models.NewPosition(29.36, -3.38)}}

	return fixture{
		cities: gatewaytest.NewStub(gateway.TableCities,
			models.City{ID: "c1", Name: "Bujumbura"}, models.City{ID: "c2", Name: "Gitega"}),
		lines: gatewaytest.NewStub(gateway.TableBusLines, lines...),
		agencies: gatewaytest.NewStub(gateway.TableAgencies,
			models.TransportAgency{ID: "a1", Name: "Volcano", Active: true},
			models.TransportAgency{ID: "a2", Name: "Memento", Active: true}),
		routes: gatewaytest.NewStub(gateway.TableRoutes,
			models.IntercityRoute{ID: "r1", AgencyID: "a1", DeparturePoint: "Bujumbura", ArrivalPoint: "Gitega",
				DurationMinutes: models.IntPtr(150), Price: models.IntPtr(6000)},
			models.IntercityRoute{ID: "r2", AgencyID: "a1", DeparturePoint: "Bujumbura", ArrivalPoint: "Ngozi"},
			models.IntercityRoute{ID: "r3", AgencyID: "a1", DeparturePoint: "Gitega", ArrivalPoint: "Muyinga"},
			models.IntercityRoute{ID: "r4", AgencyID: "a1", DeparturePoint: "Ngozi", ArrivalPoint: "Kirundo"}),
	}
}

func (f fixture) catalog() *Catalog {
	return New(gateway.Gateway{Cities: f.cities, BusLines: f.lines, Agencies: f.agencies, Routes: f.routes})
}

func TestHome(t *testing.T) {
	f := newFixture()
	home := f.catalog().Home(context.Background())

	assert.False(t, home.Partial)
	require.Len(t, home.Items, HomeLineCount+HomeRouteCount)
	for i, item := range home.Items {
		if i < HomeLineCount {
			assert.Equal(t, models.KindBus, item.Kind)
		} else {
			assert.Equal(t, models.KindIntercity, item.Kind)
		}
	}
	assert.Equal(t, "Bujumbura → Gitega", home.Items[HomeLineCount].Name)

	lineQuery := f.lines.Calls()[0].Query
	assert.True(t, lineQuery.ActiveOnly)
	assert.Equal(t, 5, lineQuery.Limit)
	routeQuery := f.routes.Calls()[0].Query
	assert.Equal(t, 3, routeQuery.Limit)
	assert.True(t, routeQuery.WithAgency)
}

func TestHomeMergeIgnoresCompletionOrder(t *testing.T) {
	for _, slow := range []string{"lines", "routes"} {
		t.Run(slow+" slower", func(t *testing.T) {
			f := newFixture()
			if slow == "lines" {
				f.lines.Delay = 20 * time.Millisecond
			} else {
				f.routes.Delay = 20 * time.Millisecond
			}
			home := f.catalog().Home(context.Background())
			require.Len(t, home.Items, 8)
			assert.Equal(t, models.KindBus, home.Items[0].Kind)
			assert.Equal(t, models.KindIntercity, home.Items[7].Kind)
		})
	}
}

func TestHomePartial(t *testing.T) {
	f := newFixture()
	f.routes.Err = errors.New("timeout")

	home := f.catalog().Home(context.Background())
	assert.True(t, home.Partial)
	assert.Len(t, home.Items, HomeLineCount)
}

func TestAgencies(t *testing.T) {
	f := newFixture()
	agencies, err := f.catalog().Agencies(context.Background())
	require.NoError(t, err)
	require.Len(t, agencies, 2)

	assert.Equal(t, "Volcano", agencies[0].Name)
	require.Len(t, agencies[0].Routes, 4)
	assert.Equal(t, RouteSummary{
		ID: "r1", DeparturePoint: "Bujumbura", ArrivalPoint: "Gitega",
		Fare: 6000, FareText: "6000 FBU", Duration: "2h 30min",
	}, agencies[0].Routes[0])
	assert.Equal(t, 500, agencies[0].Routes[1].Fare)
	assert.Empty(t, agencies[0].Routes[1].Duration)

	calls := f.routes.Calls()
	require.Len(t, calls, 2)
	owners := []string{calls[0].Query.Eq["agency_id"], calls[1].Query.Eq["agency_id"]}
	assert.ElementsMatch(t, []string{"a1", "a2"}, owners)
	assert.True(t, calls[0].Query.ActiveOnly)
}

func TestAgenciesRelatedFailureIsIsolated(t *testing.T) {
	f := newFixture()
	f.routes.Err = errors.New("boom")

	agencies, err := f.catalog().Agencies(context.Background())
	require.NoError(t, err)
	require.Len(t, agencies, 2)
	for _, a := range agencies {
		assert.NotNil(t, a.Routes)
		assert.Empty(t, a.Routes)
		assert.True(t, a.RoutesUnavailable)
	}
}

func TestAgenciesListFailure(t *testing.T) {
	f := newFixture()
	f.agencies.Err = errors.New("boom")

	_, err := f.catalog().Agencies(context.Background())
	assert.Error(t, err)
	assert.Zero(t, f.routes.CallCount())
}

func TestLine(t *testing.T) {
	f := newFixture()
	f.lines.GetFunc = func(id string) (models.BusLine, error) {
		if id == "a-line" {
			return f.lines.Rows[0], nil
		}
		return models.BusLine{}, gateway.ErrNotFound
	}

	view, err := f.catalog().Line(context.Background(), "a-line")
	require.NoError(t, err)
	assert.Equal(t, "a-line", view.Detail.ID)
	require.NotNil(t, view.Polyline)
	assert.Len(t, view.Polyline.Points, 2)
	assert.Len(t, view.Markers, 1)
	require.NotNil(t, view.Viewport)

	_, err = f.catalog().Line(context.Background(), "nope")
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestRoute(t *testing.T) {
	f := newFixture()
	f.routes.GetFunc = func(id string) (models.IntercityRoute, error) {
		r := f.routes.Rows[0]
		r.Agency = &models.AgencyName{Name: "Volcano"}
		return r, nil
	}

	view, err := f.catalog().Route(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "Bujumbura → Gitega", view.Name)
	assert.Equal(t, "Volcano", view.Agency)
	assert.Equal(t, "6000 FBU", view.FareText)
	assert.Equal(t, "2h 30min", view.Duration)
	assert.Nil(t, view.Path)
}

func TestMap(t *testing.T) {
	f := newFixture()
	view, err := f.catalog().Map(context.Background())
	require.NoError(t, err)
	assert.Len(t, view.Polylines, 1)
	assert.Len(t, view.Markers, 1)
	assert.Len(t, view.Lines(), 7)
	assert.NotEmpty(t, view.Fingerprint)
	assert.InDelta(t, -3.385, view.Viewport.Center.Latitude, 1e-9)

	again, err := f.catalog().Map(context.Background())
	require.NoError(t, err)
	assert.Equal(t, view.Fingerprint, again.Fingerprint)
}

func TestMapWithoutGeometryUsesDefaultRegion(t *testing.T) {
	f := newFixture()
	f.lines.Rows = []models.BusLine{{ID: "x", Name: "Sans tracé"}}

	view, err := f.catalog().Map(context.Background())
	require.NoError(t, err)
	assert.Empty(t, view.Polylines)
	assert.Equal(t, models.DefaultMapCenter, view.Viewport.Center)
}

func TestCities(t *testing.T) {
	f := newFixture()
	cities, err := f.catalog().Cities(context.Background())
	require.NoError(t, err)
	assert.Len(t, cities, 2)
	assert.Equal(t, []gateway.Order{{Column: "name"}}, f.cities.Calls()[0].Query.Order)
}
