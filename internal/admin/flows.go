// Package admin implements the privileged mutation flows: agencies, bus
// lines, intercity routes and cities. Every flow checks authorization, then
// validates its input, and only then calls the gateway.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/logging"
	"trajet.transportbi.org/internal/models"
)

// Authorizer reports whether the caller is an admin. Both the session
// context and a per-request identity satisfy it.
type Authorizer interface {
	IsAdmin() bool
}

type Flows struct {
	gw     gateway.Gateway
	auth   Authorizer
	logger *slog.Logger
}

func New(gw gateway.Gateway, auth Authorizer) *Flows {
	return &Flows{
		gw:     gw,
		auth:   auth,
		logger: slog.Default().With(slog.String("component", "admin")),
	}
}

func (f *Flows) authorize() error {
	if f.auth == nil || !f.auth.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		verr := &ValidationError{}
		verr.add("id", "is required")
		return verr
	}
	return nil
}

// guard runs the authorization and id checks shared by delete and toggle.
func (f *Flows) guard(id string) error {
	if err := f.authorize(); err != nil {
		return err
	}
	return requireID(id)
}

var newestFirst = gateway.Query{}.OrderBy("created_at", true)

func (f *Flows) logMutation(op, table, id string) {
	logging.LogOperation(f.logger, "admin_"+op,
		slog.String("table", table),
		slog.String("id", id))
}

// Agencies

func (f *Flows) ListAgencies(ctx context.Context) ([]models.TransportAgency, error) {
	if err := f.authorize(); err != nil {
		return nil, err
	}
	return f.gw.Agencies.List(ctx, newestFirst)
}

// SaveAgency creates the agency (active) when form.ID is empty and updates
// its name and contacts otherwise. Empty contacts are stored as null.
func (f *Flows) SaveAgency(ctx context.Context, form AgencyForm) (models.TransportAgency, error) {
	if err := f.authorize(); err != nil {
		return models.TransportAgency{}, err
	}
	form.normalize()
	verr, err := check(form)
	if err != nil {
		return models.TransportAgency{}, err
	}
	if err := verr.orNil(); err != nil {
		return models.TransportAgency{}, err
	}

	if form.ID == "" {
		created, err := f.gw.Agencies.Insert(ctx, form.record())
		if err != nil {
			return models.TransportAgency{}, fmt.Errorf("create agency: %w", err)
		}
		f.logMutation("create", gateway.TableAgencies, created.ID)
		return created, nil
	}
	updated, err := f.gw.Agencies.Update(ctx, form.ID, form.patch())
	if err != nil {
		return models.TransportAgency{}, fmt.Errorf("update agency: %w", err)
	}
	f.logMutation("update", gateway.TableAgencies, form.ID)
	return updated, nil
}

func (f *Flows) DeleteAgency(ctx context.Context, id string) error {
	if err := f.guard(id); err != nil {
		return err
	}
	if err := f.gw.Agencies.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete agency: %w", err)
	}
	f.logMutation("delete", gateway.TableAgencies, id)
	return nil
}

func (f *Flows) ToggleAgency(ctx context.Context, id string) (models.TransportAgency, error) {
	if err := f.guard(id); err != nil {
		return models.TransportAgency{}, err
	}
	a, err := f.gw.Agencies.ToggleActive(ctx, id)
	if err != nil {
		return models.TransportAgency{}, fmt.Errorf("toggle agency: %w", err)
	}
	f.logMutation("toggle", gateway.TableAgencies, id)
	return a, nil
}

// Bus lines

func (f *Flows) ListBusLines(ctx context.Context) ([]models.BusLine, error) {
	if err := f.authorize(); err != nil {
		return nil, err
	}
	return f.gw.BusLines.List(ctx, newestFirst)
}

func (f *Flows) validateBusLine(form *BusLineForm) error {
	form.normalize()
	verr, err := check(*form)
	if err != nil {
		return err
	}
	form.checkGeometry(verr)
	return verr.orNil()
}

// SaveBusLine creates the line (active) when form.ID is empty and updates
// it otherwise.
func (f *Flows) SaveBusLine(ctx context.Context, form BusLineForm) (models.BusLine, error) {
	if err := f.authorize(); err != nil {
		return models.BusLine{}, err
	}
	if err := f.validateBusLine(&form); err != nil {
		return models.BusLine{}, err
	}

	if form.ID == "" {
		created, err := f.gw.BusLines.Insert(ctx, form.record())
		if err != nil {
			return models.BusLine{}, fmt.Errorf("create bus line: %w", err)
		}
		f.logMutation("create", gateway.TableBusLines, created.ID)
		return created, nil
	}
	updated, err := f.gw.BusLines.Update(ctx, form.ID, form.patch())
	if err != nil {
		return models.BusLine{}, fmt.Errorf("update bus line: %w", err)
	}
	f.logMutation("update", gateway.TableBusLines, form.ID)
	return updated, nil
}

func (f *Flows) DeleteBusLine(ctx context.Context, id string) error {
	if err := f.guard(id); err != nil {
		return err
	}
	if err := f.gw.BusLines.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete bus line: %w", err)
	}
	f.logMutation("delete", gateway.TableBusLines, id)
	return nil
}

func (f *Flows) ToggleBusLine(ctx context.Context, id string) (models.BusLine, error) {
	if err := f.guard(id); err != nil {
		return models.BusLine{}, err
	}
	l, err := f.gw.BusLines.ToggleActive(ctx, id)
	if err != nil {
		return models.BusLine{}, fmt.Errorf("toggle bus line: %w", err)
	}
	f.logMutation("toggle", gateway.TableBusLines, id)
	return l, nil
}

// Intercity routes

func (f *Flows) ListRoutes(ctx context.Context) ([]models.IntercityRoute, error) {
	if err := f.authorize(); err != nil {
		return nil, err
	}
	return f.gw.Routes.List(ctx, newestFirst.EmbedAgency())
}

func (f *Flows) SaveRoute(ctx context.Context, form RouteForm) (models.IntercityRoute, error) {
	if err := f.authorize(); err != nil {
		return models.IntercityRoute{}, err
	}
	form.normalize()
	verr, err := check(form)
	if err != nil {
		return models.IntercityRoute{}, err
	}
	if err := verr.orNil(); err != nil {
		return models.IntercityRoute{}, err
	}

	if form.ID == "" {
		created, err := f.gw.Routes.Insert(ctx, form.record())
		if err != nil {
			return models.IntercityRoute{}, fmt.Errorf("create intercity route: %w", err)
		}
		f.logMutation("create", gateway.TableRoutes, created.ID)
		return created, nil
	}
	updated, err := f.gw.Routes.Update(ctx, form.ID, form.patch())
	if err != nil {
		return models.IntercityRoute{}, fmt.Errorf("update intercity route: %w", err)
	}
	f.logMutation("update", gateway.TableRoutes, form.ID)
	return updated, nil
}

func (f *Flows) DeleteRoute(ctx context.Context, id string) error {
	if err := f.guard(id); err != nil {
		return err
	}
	if err := f.gw.Routes.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete intercity route: %w", err)
	}
	f.logMutation("delete", gateway.TableRoutes, id)
	return nil
}

func (f *Flows) ToggleRoute(ctx context.Context, id string) (models.IntercityRoute, error) {
	if err := f.guard(id); err != nil {
		return models.IntercityRoute{}, err
	}
	r, err := f.gw.Routes.ToggleActive(ctx, id)
	if err != nil {
		return models.IntercityRoute{}, fmt.Errorf("toggle intercity route: %w", err)
	}
	f.logMutation("toggle", gateway.TableRoutes, id)
	return r, nil
}

// Cities

// ListCities returns every city ordered by name.
func (f *Flows) ListCities(ctx context.Context) ([]models.City, error) {
	if err := f.authorize(); err != nil {
		return nil, err
	}
	return f.gw.Cities.List(ctx, gateway.Query{}.OrderBy("name", false))
}

func (f *Flows) SaveCity(ctx context.Context, form CityForm) (models.City, error) {
	if err := f.authorize(); err != nil {
		return models.City{}, err
	}
	form.normalize()
	verr, err := check(form)
	if err != nil {
		return models.City{}, err
	}
	if err := models.ValidateLatLng(form.point().LatLng(), "coordinates"); err != nil {
		addCoordinateError(verr, err)
	}
	if err := verr.orNil(); err != nil {
		return models.City{}, err
	}

	if form.ID == "" {
		created, err := f.gw.Cities.Insert(ctx, models.City{Name: form.Name, Coordinates: form.point()})
		if err != nil {
			return models.City{}, fmt.Errorf("create city: %w", err)
		}
		f.logMutation("create", gateway.TableCities, created.ID)
		return created, nil
	}
	updated, err := f.gw.Cities.Update(ctx, form.ID, gateway.Patch{
		"name":        form.Name,
		"coordinates": form.point(),
	})
	if err != nil {
		return models.City{}, fmt.Errorf("update city: %w", err)
	}
	f.logMutation("update", gateway.TableCities, form.ID)
	return updated, nil
}

// Dashboard counts the rows of each managed table, inactive ones included.
type Dashboard struct {
	Agencies int `json:"agencies"`
	BusLines int `json:"bus_lines"`
	Routes   int `json:"intercity_routes"`
	Cities   int `json:"cities"`
}

func (f *Flows) Dashboard(ctx context.Context) (Dashboard, error) {
	if err := f.authorize(); err != nil {
		return Dashboard{}, err
	}
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := f.gw.Agencies.List(gctx, gateway.Query{})
		d.Agencies = len(rows)
		return err
	})
	g.Go(func() error {
		rows, err := f.gw.BusLines.List(gctx, gateway.Query{})
		d.BusLines = len(rows)
		return err
	})
	g.Go(func() error {
		rows, err := f.gw.Routes.List(gctx, gateway.Query{})
		d.Routes = len(rows)
		return err
	})
	g.Go(func() error {
		rows, err := f.gw.Cities.List(gctx, gateway.Query{})
		d.Cities = len(rows)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}
	return d, nil
}
