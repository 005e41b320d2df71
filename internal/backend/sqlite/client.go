// Package sqlite implements backend.Client on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bookbridge/bookbridge-server/internal/backend"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Client is a backend.Client over SQLite.
type Client struct {
	db     *sql.DB
	logger *slog.Logger

	mu    sync.RWMutex
	procs map[string]backend.Procedure
}

var _ backend.Client = (*Client)(nil)

// Open creates or opens the database at path, configures WAL mode and
// applies the schema.
func Open(path string, logger *slog.Logger) (*Client, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		db:     db,
		logger: logger,
		procs:  make(map[string]backend.Procedure),
	}, nil
}

// Close closes the underlying database.
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping checks the database connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// RegisterProcedure makes p invocable by name. Registering a name twice replaces it.
func (c *Client) RegisterProcedure(name string, p backend.Procedure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.procs[name] = p
}

// Select implements backend.Client.
func (c *Client) Select(ctx context.Context, tableName string, q backend.Query) ([]backend.Row, error) {
	t, err := lookupTable(tableName)
	if err != nil {
		return nil, err
	}

	cols := q.Columns
	if len(cols) == 0 {
		cols = make([]string, len(t.columns))
		for i, col := range t.columns {
			cols[i] = col.name
		}
	}
	kinds := make([]kind, len(cols))
	for i, col := range cols {
		if kinds[i], err = t.kindOf(col); err != nil {
			return nil, err
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(t.name)

	where, args, err := buildWhere(t, q.Filters)
	if err != nil {
		return nil, err
	}
	sb.WriteString(where)

	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			if _, err := t.kindOf(o.Column); err != nil {
				return nil, err
			}
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			parts = append(parts, o.Column+" "+dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := c.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []backend.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		row := make(backend.Row, len(cols))
		for i, col := range cols {
			row[col] = decode(kinds[i], values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Count implements backend.Client.
func (c *Client) Count(ctx context.Context, tableName string, filters ...backend.Filter) (int, error) {
	t, err := lookupTable(tableName)
	if err != nil {
		return 0, err
	}
	where, args, err := buildWhere(t, filters)
	if err != nil {
		return 0, err
	}

	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	return n, nil
}

// Insert implements backend.Client.
func (c *Client) Insert(ctx context.Context, tableName string, row backend.Row) error {
	t, err := lookupTable(tableName)
	if err != nil {
		return err
	}
	if len(row) == 0 {
		return backend.ErrInvalidInput.WithMessage("empty insert")
	}

	cols := make([]string, 0, len(row))
	args := make([]any, 0, len(row))
	for _, col := range t.columns {
		v, ok := row[col.name]
		if !ok {
			continue
		}
		enc, err := encode(col.kind, v)
		if err != nil {
			return err
		}
		cols = append(cols, col.name)
		args = append(args, enc)
	}
	if len(cols) != len(row) {
		return unknownColumns(t, row)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.name, strings.Join(cols, ", "), placeholders(len(cols)))
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return mapError(t.name, err)
	}
	return nil
}

// Update implements backend.Client.
func (c *Client) Update(ctx context.Context, tableName string, patch backend.Row, filters ...backend.Filter) (int64, error) {
	t, err := lookupTable(tableName)
	if err != nil {
		return 0, err
	}
	if len(patch) == 0 {
		return 0, backend.ErrInvalidInput.WithMessage("empty update")
	}

	sets := make([]string, 0, len(patch))
	args := make([]any, 0, len(patch)+len(filters))
	for _, col := range t.columns {
		v, ok := patch[col.name]
		if !ok {
			continue
		}
		enc, err := encode(col.kind, v)
		if err != nil {
			return 0, err
		}
		sets = append(sets, col.name+" = ?")
		args = append(args, enc)
	}
	if len(sets) != len(patch) {
		return 0, unknownColumns(t, patch)
	}

	where, whereArgs, err := buildWhere(t, filters)
	if err != nil {
		return 0, err
	}
	args = append(args, whereArgs...)

	res, err := c.db.ExecContext(ctx, "UPDATE "+t.name+" SET "+strings.Join(sets, ", ")+where, args...)
	if err != nil {
		return 0, mapError(t.name, err)
	}
	return res.RowsAffected()
}

// Delete implements backend.Client.
func (c *Client) Delete(ctx context.Context, tableName string, filters ...backend.Filter) (int64, error) {
	t, err := lookupTable(tableName)
	if err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, backend.ErrInvalidInput.WithMessage("delete requires at least one filter")
	}
	where, args, err := buildWhere(t, filters)
	if err != nil {
		return 0, err
	}

	res, err := c.db.ExecContext(ctx, "DELETE FROM "+t.name+where, args...)
	if err != nil {
		return 0, mapError(t.name, err)
	}
	return res.RowsAffected()
}

// Invoke implements backend.Client.
func (c *Client) Invoke(ctx context.Context, procedure string, args backend.Row) (backend.Row, error) {
	c.mu.RLock()
	p, ok := c.procs[procedure]
	c.mu.RUnlock()
	if !ok {
		return nil, backend.ErrUnknownProcedure.WithMessage(fmt.Sprintf("unknown procedure %q", procedure))
	}

	start := time.Now()
	out, err := p(ctx, c, args)
	c.logger.Debug("procedure invoked",
		"procedure", procedure,
		"duration", time.Since(start),
		"ok", err == nil,
	)
	return out, err
}

func buildWhere(t *table, filters []backend.Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	parts := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		k, err := t.kindOf(f.Column)
		if err != nil {
			return "", nil, err
		}

		var op string
		switch f.Op {
		case backend.OpIsNull:
			parts = append(parts, f.Column+" IS NULL")
			continue
		case backend.OpNotNull:
			parts = append(parts, f.Column+" IS NOT NULL")
			continue
		case backend.OpEq:
			op = "="
		case backend.OpNeq:
			op = "<>"
		case backend.OpGt:
			op = ">"
		case backend.OpGte:
			op = ">="
		case backend.OpLt:
			op = "<"
		case backend.OpLte:
			op = "<="
		default:
			return "", nil, backend.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown filter op %q", f.Op))
		}

		enc, err := encode(k, f.Value)
		if err != nil {
			return "", nil, err
		}
		if enc == nil {
			return "", nil, backend.ErrInvalidInput.WithMessage(
				fmt.Sprintf("nil value for %s filter on %s; use IsNull", f.Op, f.Column))
		}
		parts = append(parts, f.Column+" "+op+" ?")
		args = append(args, enc)
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func unknownColumns(t *table, row backend.Row) error {
	var unknown []string
	for col := range row {
		if _, ok := t.byName[col]; !ok {
			unknown = append(unknown, col)
		}
	}
	return backend.ErrInvalidInput.WithMessage(
		fmt.Sprintf("unknown columns for %s: %s", t.name, strings.Join(unknown, ", ")))
}

func mapError(tableName string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "PRIMARY KEY constraint failed"):
		return backend.ErrAlreadyExists.WithCause(err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return backend.ErrInvalidInput.WithMessage("referenced row does not exist").WithCause(err)
	case strings.Contains(msg, "CHECK constraint failed"), strings.Contains(msg, "NOT NULL constraint failed"):
		return backend.ErrInvalidInput.WithMessage("row violates a constraint").WithCause(err)
	case errors.Is(err, sql.ErrNoRows):
		return backend.ErrNotFound
	}
	return fmt.Errorf("%s: %w", tableName, err)
}
