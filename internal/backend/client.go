// Package backend defines the generic data client every BookBridge feature talks to.
//
// The client is table-scoped: callers name a logical table and pass filters,
// ordering and rows as column maps. Server-side procedures are invoked by name.
// Features never see SQL; the bundled adapter in backend/sqlite is one
// implementation, and a hosted REST backend could be another.
package backend

import (
	"context"
	"time"
)

// Logical tables.
const (
	TableUsers         = "users"
	TableSessions      = "sessions"
	TableProfiles      = "profiles"
	TableBooks         = "books"
	TableBookRequests  = "book_requests"
	TableExchanges     = "contact_exchanges"
	TableNotifications = "notifications"
)

// ProcCreateBookNotification creates a notification row for a user.
// Args: user_id, notification_type, notification_title, notification_message.
const ProcCreateBookNotification = "create_book_notification"

// Row is a set of column values keyed by column name.
type Row map[string]any

// Client is the generic data-access client.
type Client interface {
	// Select returns rows matching q, in q.Order.
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	// Count returns the number of rows matching filters.
	Count(ctx context.Context, table string, filters ...Filter) (int, error)
	// Insert adds one row. A unique-key collision returns ErrAlreadyExists.
	Insert(ctx context.Context, table string, row Row) error
	// Update applies patch to rows matching filters and returns how many changed.
	Update(ctx context.Context, table string, patch Row, filters ...Filter) (int64, error)
	// Delete removes rows matching filters and returns how many were removed.
	Delete(ctx context.Context, table string, filters ...Filter) (int64, error)
	// Invoke runs a named server-side procedure.
	Invoke(ctx context.Context, procedure string, args Row) (Row, error)
}

// Procedure is a named server-side routine. It receives the client so it can
// read and write tables itself.
type Procedure func(ctx context.Context, c Client, args Row) (Row, error)

// TimeLayout is the wire format for timestamps. It is fixed-width UTC so
// that lexical and chronological order agree in range filters.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
