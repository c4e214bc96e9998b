package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"trajet.transportbi.org/internal/clock"
	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/logging"
)

// reservedKeys are owned by the table and never stored inside doc.
var reservedKeys = []string{"id", "created_at", "transport_agencies"}

// docTable implements gateway.Table over one JSON document table.
type docTable[T any] struct {
	c    *Client
	name string
}

func (t *docTable[T]) Name() string { return t.name }

func (t *docTable[T]) selectClause(embedAgency bool) string {
	if embedAgency {
		return fmt.Sprintf(`SELECT json_set(t.doc, '$.id', t.id, '$.created_at', t.created_at,
			'$.transport_agencies', json(CASE WHEN a.id IS NULL THEN 'null' ELSE json_object('name', a.name) END))
			FROM %s AS t LEFT JOIN transport_agencies AS a ON a.id = t.agency_id`, t.name)
	}
	return fmt.Sprintf(`SELECT json_set(t.doc, '$.id', t.id, '$.created_at', t.created_at) FROM %s AS t`, t.name)
}

func (t *docTable[T]) List(ctx context.Context, q gateway.Query) ([]T, error) {
	if err := q.Validate(t.name); err != nil {
		return nil, err
	}

	var sb strings.Builder
	var args []any
	sb.WriteString(t.selectClause(q.WithAgency))
	sb.WriteString(" WHERE 1=1")
	if q.ActiveOnly {
		sb.WriteString(" AND t.active = 1")
	}
	for _, col := range q.EqColumns() {
		fmt.Fprintf(&sb, " AND t.%s = ?", col)
		args = append(args, q.Eq[col])
	}

	sb.WriteString(" ORDER BY ")
	for _, o := range q.Order {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, "t.%s %s, ", o.Column, dir)
	}
	sb.WriteString("t.created_at ASC, t.rowid ASC")

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := t.c.DB.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	defer logging.SafeCloseWithLogging(rows, t.c.logger, "database_rows")

	out := []T{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		var rec T
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("decode %s row: %w", t.name, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	return out, nil
}

func (t *docTable[T]) Get(ctx context.Context, id string) (T, error) {
	var rec T
	var doc string
	query := t.selectClause(t.name == gateway.TableRoutes) + " WHERE t.id = ?"
	if err := t.c.DB.QueryRowContext(ctx, query, id).Scan(&doc); err != nil {
		return rec, fmt.Errorf("get %s %s: %w", t.name, id, translateError(err))
	}
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return rec, fmt.Errorf("decode %s row: %w", t.name, err)
	}
	return rec, nil
}

// encodeDoc turns a record into its stored document and pulls out its id.
func encodeDoc(record any) (doc []byte, id string, err error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, "", err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, "", err
	}
	if v, ok := fields["id"]; ok {
		_ = json.Unmarshal(v, &id)
	}
	for _, k := range reservedKeys {
		delete(fields, k)
	}
	doc, err = json.Marshal(fields)
	return doc, id, err
}

func (t *docTable[T]) Insert(ctx context.Context, record T) (T, error) {
	doc, id, err := encodeDoc(record)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("encode %s row: %w", t.name, err)
	}
	if id == "" {
		id = uuid.NewString()
	}

	query := fmt.Sprintf("INSERT INTO %s (id, created_at, doc) VALUES (?, ?, ?)", t.name)
	if _, err := t.c.DB.ExecContext(ctx, query, id, clock.Timestamp(t.c.clock), string(doc)); err != nil {
		var zero T
		return zero, fmt.Errorf("insert %s: %w", t.name, translateError(err))
	}
	return t.Get(ctx, id)
}

func (t *docTable[T]) exec(ctx context.Context, op, id, query string, args ...any) error {
	res, err := t.c.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %s %s: %w", op, t.name, id, translateError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s %s: %w", op, t.name, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s %s: %w", op, t.name, id, gateway.ErrNotFound)
	}
	return nil
}

// Update merges patch into the stored document (RFC 7396 semantics: a nil
// value removes the key).
func (t *docTable[T]) Update(ctx context.Context, id string, patch gateway.Patch) (T, error) {
	var zero T
	clean := make(gateway.Patch, len(patch))
	for k, v := range patch {
		clean[k] = v
	}
	for _, k := range reservedKeys {
		delete(clean, k)
	}
	body, err := json.Marshal(clean)
	if err != nil {
		return zero, fmt.Errorf("encode %s patch: %w", t.name, err)
	}

	query := fmt.Sprintf("UPDATE %s SET doc = json_patch(doc, ?) WHERE id = ?", t.name)
	if err := t.exec(ctx, "update", id, query, string(body), id); err != nil {
		return zero, err
	}
	return t.Get(ctx, id)
}

func (t *docTable[T]) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.name)
	return t.exec(ctx, "delete", id, query, id)
}

func (t *docTable[T]) ToggleActive(ctx context.Context, id string) (T, error) {
	var zero T
	if err := (gateway.Query{ActiveOnly: true}).Validate(t.name); err != nil {
		return zero, err
	}
	query := fmt.Sprintf(
		"UPDATE %s SET doc = json_set(doc, '$.active', json(CASE WHEN active = 1 THEN 'false' ELSE 'true' END)) WHERE id = ?",
		t.name)
	if err := t.exec(ctx, "toggle", id, query, id); err != nil {
		return zero, err
	}
	return t.Get(ctx, id)
}

// count returns the number of rows in a table.
func (c *Client) count(ctx context.Context, table string) (int, error) {
	var n int
	err := c.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}
