// Package gateway defines the data gateway the screens and flows talk to:
// one table-scoped method family per entity, backed by the remote
// backend-as-a-service or by the local SQLite stand-in.
//
// Every call is a fresh round trip. Implementations do not retry and do not
// cache; an empty list is a success.
package gateway

import (
	"context"
	"errors"

	"trajet.transportbi.org/internal/models"
)

const (
	TableCities   = "cities"
	TableBusLines = "bus_lines"
	TableAgencies = "transport_agencies"
	TableRoutes   = "intercity_routes"
	TableAdmins   = "admins"
)

var (
	// ErrNotFound is returned when a get, update, delete or toggle targets
	// an id with no row. It is never returned for an empty list.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrInvalidQuery is returned before any I/O for unknown columns.
	ErrInvalidQuery = errors.New("invalid query")
)

// Patch is a partial record: only the present keys are written.
type Patch map[string]any

// Table is the method family for one backend table.
type Table[T any] interface {
	Name() string
	List(ctx context.Context, q Query) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Insert(ctx context.Context, record T) (T, error)
	Update(ctx context.Context, id string, patch Patch) (T, error)
	Delete(ctx context.Context, id string) error
	ToggleActive(ctx context.Context, id string) (T, error)
}

// AdminRegistry answers whether a user id is present in the admins table.
type AdminRegistry interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Gateway bundles the tables consumed by the application.
type Gateway struct {
	Cities   Table[models.City]
	BusLines Table[models.BusLine]
	Agencies Table[models.TransportAgency]
	Routes   Table[models.IntercityRoute]
	Admins   AdminRegistry
}

type accessTokenKey struct{}

// WithAccessToken attaches a signed-in user's token to ctx so that
// row-level security is evaluated for that user rather than anonymously.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}
