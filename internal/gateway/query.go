package gateway

import (
	"fmt"
	"maps"
	"slices"
)

type Order struct {
	Column string
	Desc   bool
}

// Query describes a list call. The zero value lists every row in
// insertion order.
type Query struct {
	ActiveOnly bool
	Eq         map[string]string
	Order      []Order
	Limit      int
	// WithAgency embeds the owning agency's name into intercity route reads.
	WithAgency bool
}

// Active returns a query restricted to active rows.
func Active() Query {
	return Query{ActiveOnly: true}
}

// ForOwner lists the active children of a parent row, e.g. the routes of
// one agency.
func ForOwner(column, id string) Query {
	return Active().Where(column, id)
}

func (q Query) Where(column, value string) Query {
	eq := make(map[string]string, len(q.Eq)+1)
	maps.Copy(eq, q.Eq)
	eq[column] = value
	q.Eq = eq
	return q
}

func (q Query) OrderBy(column string, desc bool) Query {
	q.Order = append(slices.Clone(q.Order), Order{Column: column, Desc: desc})
	return q
}

func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

func (q Query) EmbedAgency() Query {
	q.WithAgency = true
	return q
}

// EqColumns returns the filter columns in a stable order.
func (q Query) EqColumns() []string {
	return slices.Sorted(maps.Keys(q.Eq))
}

// Columns lists, per table, the columns usable in filters and ordering.
var Columns = map[string][]string{
	TableCities:   {"id", "name", "created_at"},
	TableBusLines: {"id", "name", "city_id", "active", "created_at"},
	TableAgencies: {"id", "name", "active", "created_at"},
	TableRoutes:   {"id", "agency_id", "departure_point", "arrival_point", "active", "created_at"},
}

// Validate rejects columns the table does not expose and options the table
// cannot honour.
func (q Query) Validate(table string) error {
	allowed, ok := Columns[table]
	if !ok {
		return fmt.Errorf("%w: unknown table %q", ErrInvalidQuery, table)
	}
	for col := range q.Eq {
		if !slices.Contains(allowed, col) {
			return fmt.Errorf("%w: %s cannot be filtered by %q", ErrInvalidQuery, table, col)
		}
	}
	for _, o := range q.Order {
		if !slices.Contains(allowed, o.Column) {
			return fmt.Errorf("%w: %s cannot be ordered by %q", ErrInvalidQuery, table, o.Column)
		}
	}
	if q.ActiveOnly && !slices.Contains(allowed, "active") {
		return fmt.Errorf("%w: %s has no active flag", ErrInvalidQuery, table)
	}
	if q.WithAgency && table != TableRoutes {
		return fmt.Errorf("%w: only %s can embed an agency", ErrInvalidQuery, TableRoutes)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	return nil
}
