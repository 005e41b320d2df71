package sqlite

import (
	"fmt"
	"reflect"
	"time"

	"github.com/bookbridge/bookbridge-server/internal/backend"
)

// kind is the storage type of a column.
type kind int

const (
	kindText kind = iota
	kindInt
	kindBool
	kindTime
)

type column struct {
	name string
	kind kind
}

// table whitelists the columns a logical table exposes. Identifiers in
// generated SQL only ever come from here.
type table struct {
	name    string
	columns []column
	byName  map[string]kind
}

func newTable(name string, cols ...column) *table {
	t := &table{name: name, columns: cols, byName: make(map[string]kind, len(cols))}
	for _, c := range cols {
		t.byName[c.name] = c.kind
	}
	return t
}

func text(name string) column { return column{name: name, kind: kindText} }
func integer(name string) column { return column{name: name, kind: kindInt} }
func boolean(name string) column { return column{name: name, kind: kindBool} }
func timestamp(name string) column { return column{name: name, kind: kindTime} }

// registry mirrors schema.sql.
var registry = map[string]*table{
	backend.TableUsers: newTable(backend.TableUsers,
		text("id"), text("email"), text("password_hash"),
		timestamp("created_at"), timestamp("updated_at"), timestamp("last_login_at"),
	),
	backend.TableSessions: newTable(backend.TableSessions,
		text("id"), text("user_id"), text("refresh_token_hash"),
		text("user_agent"), text("ip_address"),
		timestamp("created_at"), timestamp("last_seen_at"), timestamp("expires_at"),
	),
	backend.TableProfiles: newTable(backend.TableProfiles,
		text("id"), text("full_name"), text("phone"), text("address"), timestamp("updated_at"),
	),
	backend.TableBooks: newTable(backend.TableBooks,
		text("id"), text("owner_id"), text("title"), text("author"), text("category"),
		text("description"), text("condition"), text("status"), boolean("is_free_to_read"),
		timestamp("created_at"), timestamp("updated_at"),
	),
	backend.TableBookRequests: newTable(backend.TableBookRequests,
		text("id"), text("book_id"), text("donor_id"), text("requester_id"),
		text("status"), text("message"), timestamp("created_at"), timestamp("updated_at"),
	),
	backend.TableExchanges: newTable(backend.TableExchanges,
		text("id"), text("request_id"),
		text("donor_phone"), text("donor_address"),
		text("requester_phone"), text("requester_address"),
		text("status"), integer("version"),
		timestamp("created_at"), timestamp("updated_at"),
	),
	backend.TableNotifications: newTable(backend.TableNotifications,
		text("id"), text("user_id"), text("type"), text("title"), text("message"),
		boolean("read"), timestamp("created_at"),
	),
}

func lookupTable(name string) (*table, error) {
	t, ok := registry[name]
	if !ok {
		return nil, backend.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown table %q", name))
	}
	return t, nil
}

func (t *table) kindOf(col string) (kind, error) {
	k, ok := t.byName[col]
	if !ok {
		return 0, backend.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown column %s.%s", t.name, col))
	}
	return k, nil
}

// encode converts a Go value to its stored form for column kind k.
// nil and nil pointers are stored as NULL.
func encode(k kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
		v = rv.Interface()
	}

	switch k {
	case kindTime:
		switch tv := v.(type) {
		case time.Time:
			return backend.FormatTime(tv), nil
		case string:
			return tv, nil
		}
	case kindBool:
		if rv.Kind() == reflect.Bool {
			if rv.Bool() {
				return int64(1), nil
			}
			return int64(0), nil
		}
	case kindInt:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int(), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
			return int64(rv.Uint()), nil //nolint:gosec // uint64 excluded above
		}
	case kindText:
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	}
	return nil, backend.ErrInvalidInput.WithMessage(fmt.Sprintf("cannot store %T in column of kind %d", v, k))
}

// decode converts a scanned driver value to the Row representation for kind k.
// Times stay in TimeLayout text so they decode straight into time.Time.
func decode(k kind, v any) any {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch k {
	case kindBool:
		switch n := v.(type) {
		case int64:
			return n != 0
		case bool:
			return n
		}
	case kindInt:
		if n, ok := v.(int64); ok {
			return n
		}
	case kindTime:
		if t, ok := v.(time.Time); ok {
			return backend.FormatTime(t)
		}
	}
	return v
}
