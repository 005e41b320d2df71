package backend

// Op is a filter comparison.
type Op string

// Filter operators.
const (
	OpEq      Op = "eq"
	OpNeq     Op = "neq"
	OpGt      Op = "gt"
	OpGte     Op = "gte"
	OpLt      Op = "lt"
	OpLte     Op = "lte"
	OpIsNull  Op = "is_null"
	OpNotNull Op = "not_null"
)

// Filter restricts rows by one column.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq matches column = v.
func Eq(column string, v any) Filter { return Filter{Column: column, Op: OpEq, Value: v} }

// Neq matches column <> v.
func Neq(column string, v any) Filter { return Filter{Column: column, Op: OpNeq, Value: v} }

// Gt matches column > v.
func Gt(column string, v any) Filter { return Filter{Column: column, Op: OpGt, Value: v} }

// Gte matches column >= v.
func Gte(column string, v any) Filter { return Filter{Column: column, Op: OpGte, Value: v} }

// Lt matches column < v.
func Lt(column string, v any) Filter { return Filter{Column: column, Op: OpLt, Value: v} }

// Lte matches column <= v.
func Lte(column string, v any) Filter { return Filter{Column: column, Op: OpLte, Value: v} }

// IsNull matches rows where column is NULL.
func IsNull(column string) Filter { return Filter{Column: column, Op: OpIsNull} }

// NotNull matches rows where column is not NULL.
func NotNull(column string) Filter { return Filter{Column: column, Op: OpNotNull} }

// Order sorts by one column.
type Order struct {
	Column     string
	Descending bool
}

// Asc sorts ascending by column.
func Asc(column string) Order { return Order{Column: column} }

// Desc sorts descending by column.
func Desc(column string) Order { return Order{Column: column, Descending: true} }

// Query selects rows from a table. Empty Columns selects every column.
type Query struct {
	Columns []string
	Filters []Filter
	Order   []Order
	Limit   int
	Offset  int
}

// Where returns a query with the given filters.
func Where(filters ...Filter) Query {
	return Query{Filters: filters}
}

// OrderBy returns a copy of q with orders appended.
func (q Query) OrderBy(orders ...Order) Query {
	q.Order = append(append([]Order(nil), q.Order...), orders...)
	return q
}

// Only returns a copy of q selecting just columns.
func (q Query) Only(columns ...string) Query {
	q.Columns = columns
	return q
}

// Take returns a copy of q limited to n rows starting at offset.
func (q Query) Take(n, offset int) Query {
	q.Limit = n
	q.Offset = offset
	return q
}
