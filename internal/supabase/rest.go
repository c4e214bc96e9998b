package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/models"
)

const (
	preferRepresentation = "return=representation"
	agencyEmbed          = "transport_agencies(name)"
)

// restTable implements gateway.Table over one PostgREST resource.
type restTable[T any] struct {
	c    *Client
	name string
}

func (t *restTable[T]) Name() string { return t.name }

func (t *restTable[T]) selectColumns(embed bool) string {
	if embed {
		return "*," + agencyEmbed
	}
	return "*"
}

func (t *restTable[T]) List(ctx context.Context, q gateway.Query) ([]T, error) {
	if err := q.Validate(t.name); err != nil {
		return nil, err
	}

	v := url.Values{}
	v.Set("select", t.selectColumns(q.WithAgency))
	if q.ActiveOnly {
		v.Set("active", "eq.true")
	}
	for _, col := range q.EqColumns() {
		v.Set(col, "eq."+q.Eq[col])
	}
	if len(q.Order) > 0 {
		parts := make([]string, len(q.Order))
		for i, o := range q.Order {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			parts[i] = o.Column + "." + dir
		}
		v.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}

	var out []T
	if err := t.c.do(ctx, request{method: http.MethodGet, path: restPrefix + t.name, query: v}, &out); err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func byID(id string) url.Values {
	v := url.Values{}
	v.Set("id", "eq."+id)
	return v
}

// single returns the only row of a representation, or ErrNotFound.
func single[T any](rows []T, table, id string) (T, error) {
	if len(rows) == 0 {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", table, id, gateway.ErrNotFound)
	}
	return rows[0], nil
}

func (t *restTable[T]) Get(ctx context.Context, id string) (T, error) {
	v := byID(id)
	v.Set("select", t.selectColumns(t.name == gateway.TableRoutes))
	v.Set("limit", "1")

	var rows []T
	if err := t.c.do(ctx, request{method: http.MethodGet, path: restPrefix + t.name, query: v}, &rows); err != nil {
		var zero T
		return zero, fmt.Errorf("get %s: %w", t.name, err)
	}
	return single(rows, t.name, id)
}

func (t *restTable[T]) Insert(ctx context.Context, record T) (T, error) {
	var rows []T
	err := t.c.do(ctx, request{
		method: http.MethodPost,
		path:   restPrefix + t.name,
		body:   record,
		prefer: preferRepresentation,
	}, &rows)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("insert %s: %w", t.name, err)
	}
	if len(rows) == 0 {
		var zero T
		return zero, fmt.Errorf("insert %s: empty representation", t.name)
	}
	return rows[0], nil
}

func (t *restTable[T]) Update(ctx context.Context, id string, patch gateway.Patch) (T, error) {
	var rows []T
	err := t.c.do(ctx, request{
		method: http.MethodPatch,
		path:   restPrefix + t.name,
		query:  byID(id),
		body:   patch,
		prefer: preferRepresentation,
	}, &rows)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("update %s: %w", t.name, err)
	}
	return single(rows, t.name, id)
}

func (t *restTable[T]) Delete(ctx context.Context, id string) error {
	var rows []json.RawMessage
	err := t.c.do(ctx, request{
		method: http.MethodDelete,
		path:   restPrefix + t.name,
		query:  byID(id),
		prefer: preferRepresentation,
	}, &rows)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	_, err = single(rows, t.name, id)
	return err
}

// ToggleActive reads the current flag and writes its negation. The two
// calls are not atomic; a concurrent toggle can be lost.
func (t *restTable[T]) ToggleActive(ctx context.Context, id string) (T, error) {
	v := byID(id)
	v.Set("select", "id,active")

	var flags []struct {
		Active bool `json:"active"`
	}
	if err := t.c.do(ctx, request{method: http.MethodGet, path: restPrefix + t.name, query: v}, &flags); err != nil {
		var zero T
		return zero, fmt.Errorf("toggle %s: %w", t.name, err)
	}
	current, err := single(flags, t.name, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.Update(ctx, id, gateway.Patch{"active": !current.Active})
}

type restAdmins struct {
	c *Client
}

func (a restAdmins) IsAdmin(ctx context.Context, userID string) (bool, error) {
	v := url.Values{}
	v.Set("select", "user_id")
	v.Set("user_id", "eq."+userID)
	v.Set("limit", "1")

	var rows []json.RawMessage
	if err := a.c.do(ctx, request{method: http.MethodGet, path: restPrefix + gateway.TableAdmins, query: v}, &rows); err != nil {
		return false, fmt.Errorf("lookup admin: %w", err)
	}
	return len(rows) > 0, nil
}

// Gateway returns the PostgREST-backed tables.
func (c *Client) Gateway() gateway.Gateway {
	return gateway.Gateway{
		Cities:   &restTable[models.City]{c: c, name: gateway.TableCities},
		BusLines: &restTable[models.BusLine]{c: c, name: gateway.TableBusLines},
		Agencies: &restTable[models.TransportAgency]{c: c, name: gateway.TableAgencies},
		Routes:   &restTable[models.IntercityRoute]{c: c, name: gateway.TableRoutes},
		Admins:   restAdmins{c: c},
	}
}
