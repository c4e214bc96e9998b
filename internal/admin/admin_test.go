package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/gateway/gatewaytest"
	"trajet.transportbi.org/internal/models"
)

type staticAuth bool

func (a staticAuth) IsAdmin() bool { return bool(a) }

type fixture struct {
	cities   *gatewaytest.Stub[models.City]
	lines    *gatewaytest.Stub[models.BusLine]
	agencies *gatewaytest.Stub[models.TransportAgency]
	routes   *gatewaytest.Stub[models.IntercityRoute]
}

func newFixture() *fixture {
	return &fixture{
		cities:   gatewaytest.NewStub[models.City](gateway.TableCities),
		lines:    gatewaytest.NewStub[models.BusLine](gateway.TableBusLines),
		agencies: gatewaytest.NewStub[models.TransportAgency](gateway.TableAgencies),
		routes:   gatewaytest.NewStub[models.IntercityRoute](gateway.TableRoutes),
	}
}

func (f *fixture) flows(admin bool) *Flows {
	return New(gateway.Gateway{
		Cities:   f.cities,
		BusLines: f.lines,
		Agencies: f.agencies,
		Routes:   f.routes,
	}, staticAuth(admin))
}

func (f *fixture) totalCalls() int {
	return f.cities.CallCount() + f.lines.CallCount() + f.agencies.CallCount() + f.routes.CallCount()
}

func validationFields(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected a validation error, got %v", err)
	return verr.Fields
}

func TestNonAdminMakesNoGatewayCalls(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	flows := f.flows(false)

	ops := map[string]func() error{
		"list agencies": func() error { _, err := flows.ListAgencies(ctx); return err },
		"save agency":   func() error { _, err := flows.SaveAgency(ctx, AgencyForm{Name: "Volcano"}); return err },
		"delete agency": func() error { return flows.DeleteAgency(ctx, "a1") },
		"toggle agency": func() error { _, err := flows.ToggleAgency(ctx, "a1"); return err },
		"list lines":    func() error { _, err := flows.ListBusLines(ctx); return err },
		"save line": func() error {
			_, err := flows.SaveBusLine(ctx, BusLineForm{Name: "Ligne 1", CityID: "c1"})
			return err
		},
		"delete line": func() error { return flows.DeleteBusLine(ctx, "l1") },
		"toggle line": func() error { _, err := flows.ToggleBusLine(ctx, "l1"); return err },
		"list routes": func() error { _, err := flows.ListRoutes(ctx); return err },
		"save route": func() error {
			_, err := flows.SaveRoute(ctx, RouteForm{AgencyID: "a1", DeparturePoint: "Bujumbura", ArrivalPoint: "Gitega"})
			return err
		},
		"delete route": func() error { return flows.DeleteRoute(ctx, "r1") },
		"toggle route": func() error { _, err := flows.ToggleRoute(ctx, "r1"); return err },
		"list cities":  func() error { _, err := flows.ListCities(ctx); return err },
		"save city":    func() error { _, err := flows.SaveCity(ctx, CityForm{Name: "Gitega", Lat: -3.42, Lng: 29.92}); return err },
		"dashboard":    func() error { _, err := flows.Dashboard(ctx); return err },
		"import gtfs":  func() error { _, err := flows.ImportGTFS(ctx, nil, "c1"); return err },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, op(), ErrForbidden)
		})
	}
	assert.Zero(t, f.totalCalls())
}

func TestNilAuthorizerIsForbidden(t *testing.T) {
	f := newFixture()
	flows := New(gateway.Gateway{Agencies: f.agencies}, nil)

	_, err := flows.ListAgencies(context.Background())
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, f.agencies.CallCount())
}

func TestSaveAgency(t *testing.T) {
	ctx := context.Background()

	t.Run("blank name is rejected before any call", func(t *testing.T) {
		f := newFixture()
		_, err := f.flows(true).SaveAgency(ctx, AgencyForm{Name: "   "})
		assert.Contains(t, validationFields(t, err), "name")
		assert.Zero(t, f.totalCalls())
	})

	t.Run("invalid email is rejected", func(t *testing.T) {
		f := newFixture()
		_, err := f.flows(true).SaveAgency(ctx, AgencyForm{Name: "Volcano", ContactEmail: "not-an-email"})
		assert.Contains(t, validationFields(t, err), "contact_email")
		assert.Zero(t, f.totalCalls())
	})

	t.Run("create stores an active agency with null contacts", func(t *testing.T) {
		f := newFixture()
		created, err := f.flows(true).SaveAgency(ctx, AgencyForm{Name: "  Volcano Express ", ContactPhone: " "})
		require.NoError(t, err)

		assert.Equal(t, "Volcano Express", created.Name)
		assert.True(t, created.Active)
		assert.Nil(t, created.ContactPhone)
		assert.Nil(t, created.ContactEmail)
		calls := f.agencies.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "insert", calls[0].Op)
	})

	t.Run("update sends a patch for the given id", func(t *testing.T) {
		f := newFixture()
		f.agencies.GetFunc = func(id string) (models.TransportAgency, error) {
			return models.TransportAgency{ID: id, Name: "Volcano"}, nil
		}
		_, err := f.flows(true).SaveAgency(ctx, AgencyForm{ID: "a1", Name: "Volcano", ContactEmail: "info@volcano.bi"})
		require.NoError(t, err)

		calls := f.agencies.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "update", calls[0].Op)
		assert.Equal(t, "a1", calls[0].ID)
		assert.Equal(t, "Volcano", calls[0].Patch["name"])
		assert.Equal(t, models.StringPtr("info@volcano.bi"), calls[0].Patch["contact_email"])
		assert.Nil(t, calls[0].Patch["contact_phone"])
	})
}

func TestSaveBusLine(t *testing.T) {
	ctx := context.Background()

	t.Run("name and city are required", func(t *testing.T) {
		f := newFixture()
		_, err := f.flows(true).SaveBusLine(ctx, BusLineForm{})
		fields := validationFields(t, err)
		assert.Contains(t, fields, "name")
		assert.Contains(t, fields, "city_id")
		assert.Zero(t, f.totalCalls())
	})

	t.Run("out of range stop is rejected", func(t *testing.T) {
		f := newFixture()
		_, err := f.flows(true).SaveBusLine(ctx, BusLineForm{
			Name:   "Ligne 1",
			CityID: "c1",
			Stops:  []StopForm{{Name: "Kinindo", Lat: 95, Lng: 29.35}},
		})
		assert.Contains(t, validationFields(t, err), "stops[0].latitude")
		assert.Zero(t, f.totalCalls())
	})

	t.Run("bad color is rejected", func(t *testing.T) {
		f := newFixture()
		_, err := f.flows(true).SaveBusLine(ctx, BusLineForm{Name: "Ligne 1", CityID: "c1", Color: "blue"})
		assert.Contains(t, validationFields(t, err), "color")
		assert.Zero(t, f.totalCalls())
	})

	t.Run("create parses zones, price and color defaults", func(t *testing.T) {
		f := newFixture()
		created, err := f.flows(true).SaveBusLine(ctx, BusLineForm{
			Name:   "Ligne 1",
			CityID: "c1",
			Zones:  " Kinindo, ,Centre ",
			Price:  "abc",
			Stops:  []StopForm{{Name: " Kinindo ", Lat: -3.41, Lng: 29.35}},
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"Kinindo", "Centre"}, created.ZonesCovered)
		require.NotNil(t, created.Price)
		assert.Equal(t, models.DefaultFare, *created.Price)
		assert.Equal(t, models.DefaultLineColor, created.Color)
		assert.True(t, created.Active)
		require.Len(t, created.Stops, 1)
		assert.Equal(t, "Kinindo", created.Stops[0].Name)
		assert.Equal(t, models.NewPosition(29.35, -3.41), created.Stops[0].Coordinates)
	})
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", models.DefaultFare},
		{"abc", models.DefaultFare},
		{"0", models.DefaultFare},
		{"-300", models.DefaultFare},
		{"700", 700},
		{" 1200 FBU", 1200},
		{"650.50", 650},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePrice(tt.in))
		})
	}
}

func TestSplitZones(t *testing.T) {
	assert.Equal(t, []string{}, SplitZones(""))
	assert.Equal(t, []string{"Rohero", "Kinindo"}, SplitZones("Rohero,, Kinindo ,"))
}

func TestSaveRoute(t *testing.T) {
	ctx := context.Background()

	t.Run("same departure and arrival", func(t *testing.T) {
		f := newFixture()
		_, err := f.flows(true).SaveRoute(ctx, RouteForm{AgencyID: "a1", DeparturePoint: "Gitega", ArrivalPoint: "Gitega"})
		assert.Contains(t, validationFields(t, err), "arrival_point")
		assert.Zero(t, f.totalCalls())
	})

	t.Run("negative price and bad schedule", func(t *testing.T) {
		f := newFixture()
		_, err := f.flows(true).SaveRoute(ctx, RouteForm{
			AgencyID:       "a1",
			DeparturePoint: "Bujumbura",
			ArrivalPoint:   "Gitega",
			Price:          models.IntPtr(-1),
			Schedule:       []string{"07:30", "25:00"},
		})
		fields := validationFields(t, err)
		assert.Contains(t, fields, "price")
		assert.Contains(t, fields, "schedule[1]")
		assert.NotContains(t, fields, "schedule[0]")
		assert.Zero(t, f.totalCalls())
	})

	t.Run("create", func(t *testing.T) {
		f := newFixture()
		created, err := f.flows(true).SaveRoute(ctx, RouteForm{
			AgencyID:        "a1",
			DeparturePoint:  "Bujumbura",
			ArrivalPoint:    "Gitega",
			DurationMinutes: models.IntPtr(150),
			Schedule:        []string{"07:30"},
		})
		require.NoError(t, err)
		assert.True(t, created.Active)
		assert.Nil(t, created.Price)
		assert.Nil(t, created.DepartureCityID)
		assert.Equal(t, 1, f.routes.CallCount())
	})
}

func TestSaveCity(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid coordinates", func(t *testing.T) {
		f := newFixture()
		_, err := f.flows(true).SaveCity(ctx, CityForm{Name: "Gitega", Lat: -3.42, Lng: 200})
		assert.Contains(t, validationFields(t, err), "coordinates.longitude")
		assert.Zero(t, f.totalCalls())
	})

	t.Run("update", func(t *testing.T) {
		f := newFixture()
		f.cities.GetFunc = func(id string) (models.City, error) { return models.City{ID: id}, nil }
		_, err := f.flows(true).SaveCity(ctx, CityForm{ID: "c2", Name: "Gitega", Lat: -3.42, Lng: 29.92})
		require.NoError(t, err)

		calls := f.cities.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "update", calls[0].Op)
		assert.Equal(t, models.CityPoint{Lat: -3.42, Lng: 29.92}, calls[0].Patch["coordinates"])
	})
}

func TestDeleteAndToggle(t *testing.T) {
	ctx := context.Background()

	t.Run("missing id is a validation error", func(t *testing.T) {
		f := newFixture()
		err := f.flows(true).DeleteBusLine(ctx, " ")
		assert.Contains(t, validationFields(t, err), "id")
		assert.Zero(t, f.totalCalls())
	})

	t.Run("not found passes through", func(t *testing.T) {
		f := newFixture()
		_, err := f.flows(true).ToggleRoute(ctx, "r9")
		assert.ErrorIs(t, err, gateway.ErrNotFound)
		assert.Equal(t, 1, f.routes.CallCount())
	})

	t.Run("toggle returns the flipped row", func(t *testing.T) {
		f := newFixture()
		f.agencies.GetFunc = func(id string) (models.TransportAgency, error) {
			return models.TransportAgency{ID: id, Active: false}, nil
		}
		a, err := f.flows(true).ToggleAgency(ctx, "a1")
		require.NoError(t, err)
		assert.False(t, a.Active)
		assert.Equal(t, []gatewaytest.Call{{Op: "toggle_active", ID: "a1"}}, f.agencies.Calls())
	})

	t.Run("delete", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.flows(true).DeleteRoute(ctx, "r1"))
		assert.Equal(t, []gatewaytest.Call{{Op: "delete", ID: "r1"}}, f.routes.Calls())
	})
}

func TestListOrdering(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	flows := f.flows(true)

	_, err := flows.ListRoutes(ctx)
	require.NoError(t, err)
	_, err = flows.ListCities(ctx)
	require.NoError(t, err)

	route := f.routes.Calls()[0].Query
	assert.Equal(t, []gateway.Order{{Column: "created_at", Desc: true}}, route.Order)
	assert.True(t, route.WithAgency)
	assert.False(t, route.ActiveOnly)
	assert.Equal(t, []gateway.Order{{Column: "name"}}, f.cities.Calls()[0].Query.Order)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()

	t.Run("counts", func(t *testing.T) {
		f := newFixture()
		f.agencies.Rows = []models.TransportAgency{{ID: "a1"}, {ID: "a2", Active: false}}
		f.lines.Rows = []models.BusLine{{ID: "l1"}}
		f.cities.Rows = []models.City{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}

		d, err := f.flows(true).Dashboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, Dashboard{Agencies: 2, BusLines: 1, Routes: 0, Cities: 3}, d)
	})

	t.Run("failure", func(t *testing.T) {
		f := newFixture()
		f.routes.Err = errors.New("backend down")
		_, err := f.flows(true).Dashboard(ctx)
		assert.Error(t, err)
	})
}
