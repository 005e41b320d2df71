package backend

import (
	"context"
	"encoding/json"
	"fmt"
)

// Decode converts rows into values of T using T's json tags as column names.
func Decode[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return out, nil
}

// DecodeOne decodes the first row, or returns ErrNotFound when rows is empty.
func DecodeOne[T any](rows []Row) (*T, error) {
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	items, err := Decode[T](rows[:1])
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// SelectOne selects at most one row matching filters and decodes it.
func SelectOne[T any](ctx context.Context, c Client, table string, filters ...Filter) (*T, error) {
	rows, err := c.Select(ctx, table, Query{Filters: filters, Limit: 1})
	if err != nil {
		return nil, err
	}
	return DecodeOne[T](rows)
}

// SelectAll selects rows for q and decodes them.
func SelectAll[T any](ctx context.Context, c Client, table string, q Query) ([]T, error) {
	rows, err := c.Select(ctx, table, q)
	if err != nil {
		return nil, err
	}
	return Decode[T](rows)
}
