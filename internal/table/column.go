// Package table provides the in-memory columnar table consumed by reducers.
//
// A Table is an ordered list of named, typed columns of equal length. Cells are
// nullable. Tables and columns are immutable once built: every operation that
// changes shape returns a new value and shares untouched columns.
package table

import (
	"strconv"
	"time"

	"github.com/leapstack-labs/leaproute/pkg/core"
)

// Value is the set of Go types that back a column.
type Value interface {
	int64 | float64 | time.Time | bool | string
}

// Series is the type-erased view of a column.
type Series interface {
	Name() string
	Type() core.ColumnType
	Len() int
	IsNull(i int) bool
	// Any returns the cell value, or nil for a null cell.
	Any(i int) any
	// Format renders the cell as text, or "" for a null cell.
	Format(i int) string
	// Renamed returns the same cells under a new name.
	Renamed(name string) Series
	// Take returns the cells at the given row positions, in order.
	Take(rows []int) Series
}

// Column is a typed, nullable column.
type Column[T Value] struct {
	name  string
	data  []T
	valid []bool
}

// TypeFor returns the ColumnType backing T.
func TypeFor[T Value]() core.ColumnType {
	var zero T
	switch any(zero).(type) {
	case int64:
		return core.TypeInt
	case float64:
		return core.TypeDouble
	case time.Time:
		return core.TypeDate
	case bool:
		return core.TypeBool
	case string:
		return core.TypeString
	}
	return core.TypeInvalid
}

// Of builds a column with no null cells.
func Of[T Value](name string, values ...T) *Column[T] {
	data := make([]T, len(values))
	copy(data, values)
	valid := make([]bool, len(values))
	for i := range valid {
		valid[i] = true
	}
	return &Column[T]{name: name, data: data, valid: valid}
}

// OfNullable builds a column from pointers; nil cells are null.
func OfNullable[T Value](name string, cells ...*T) *Column[T] {
	b := NewBuilder[T](name, len(cells))
	for _, c := range cells {
		if c == nil {
			b.AppendNull()
			continue
		}
		b.Append(*c)
	}
	return b.Build()
}

// Name returns the column name.
func (c *Column[T]) Name() string { return c.name }

// Type returns the column element type.
func (c *Column[T]) Type() core.ColumnType { return TypeFor[T]() }

// Len returns the number of cells.
func (c *Column[T]) Len() int { return len(c.data) }

// IsNull reports whether cell i is null.
func (c *Column[T]) IsNull(i int) bool { return !c.valid[i] }

// At returns cell i and whether it is non-null.
func (c *Column[T]) At(i int) (T, bool) {
	return c.data[i], c.valid[i]
}

// Any returns cell i as an interface value, nil when null.
func (c *Column[T]) Any(i int) any {
	if !c.valid[i] {
		return nil
	}
	return c.data[i]
}

// Format renders cell i as text.
func (c *Column[T]) Format(i int) string {
	if !c.valid[i] {
		return ""
	}
	return FormatValue(c.data[i])
}

// NullCount returns the number of null cells.
func (c *Column[T]) NullCount() int {
	n := 0
	for _, ok := range c.valid {
		if !ok {
			n++
		}
	}
	return n
}

// Renamed returns the same cells under a new name.
func (c *Column[T]) Renamed(name string) Series {
	return &Column[T]{name: name, data: c.data, valid: c.valid}
}

// Take returns the cells at rows.
func (c *Column[T]) Take(rows []int) Series {
	return c.take(rows)
}

func (c *Column[T]) take(rows []int) *Column[T] {
	b := NewBuilder[T](c.name, len(rows))
	for _, r := range rows {
		if c.valid[r] {
			b.Append(c.data[r])
		} else {
			b.AppendNull()
		}
	}
	return b.Build()
}

// FormatValue renders a single non-null value.
func FormatValue[T Value](v T) string {
	switch x := any(v).(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.DateTime)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	}
	return ""
}

// --- Builder ---

// Builder appends cells to a new column.
type Builder[T Value] struct {
	name  string
	data  []T
	valid []bool
}

// NewBuilder returns a builder with room for capacity cells.
func NewBuilder[T Value](name string, capacity int) *Builder[T] {
	return &Builder[T]{
		name:  name,
		data:  make([]T, 0, capacity),
		valid: make([]bool, 0, capacity),
	}
}

// Append adds a non-null cell.
func (b *Builder[T]) Append(v T) {
	b.data = append(b.data, v)
	b.valid = append(b.valid, true)
}

// AppendNull adds a null cell.
func (b *Builder[T]) AppendNull() {
	var zero T
	b.data = append(b.data, zero)
	b.valid = append(b.valid, false)
}

// Build returns the column. The builder must not be reused.
func (b *Builder[T]) Build() *Column[T] {
	return &Column[T]{name: b.name, data: b.data, valid: b.valid}
}

// --- Element-wise helpers ---

// Map applies f to every non-null cell; null cells stay null.
func Map[T, U Value](c *Column[T], name string, f func(T) U) *Column[U] {
	b := NewBuilder[U](name, c.Len())
	for i := range c.data {
		if !c.valid[i] {
			b.AppendNull()
			continue
		}
		b.Append(f(c.data[i]))
	}
	return b.Build()
}

// TryMap applies f to every non-null cell; a false result yields a null cell.
func TryMap[T, U Value](c *Column[T], name string, f func(T) (U, bool)) *Column[U] {
	b := NewBuilder[U](name, c.Len())
	for i := range c.data {
		if !c.valid[i] {
			b.AppendNull()
			continue
		}
		if v, ok := f(c.data[i]); ok {
			b.Append(v)
		} else {
			b.AppendNull()
		}
	}
	return b.Build()
}

// Zip combines two columns of equal length cell by cell.
// The result is null wherever either operand is null.
func Zip[T, U, V Value](a *Column[T], b *Column[U], name string, f func(T, U) V) *Column[V] {
	out := NewBuilder[V](name, a.Len())
	for i := range a.data {
		if !a.valid[i] || !b.valid[i] {
			out.AppendNull()
			continue
		}
		out.Append(f(a.data[i], b.data[i]))
	}
	return out.Build()
}

// FillNull replaces null cells with v.
func FillNull[T Value](c *Column[T], v T) *Column[T] {
	b := NewBuilder[T](c.name, c.Len())
	for i := range c.data {
		if c.valid[i] {
			b.Append(c.data[i])
		} else {
			b.Append(v)
		}
	}
	return b.Build()
}

// Valid calls f for every non-null cell in row order.
func (c *Column[T]) Valid(f func(i int, v T)) {
	for i := range c.data {
		if c.valid[i] {
			f(i, c.data[i])
		}
	}
}

// Text renders any column as a String column; null cells stay null.
func Text(s Series, name string) *Column[string] {
	b := NewBuilder[string](name, s.Len())
	for i := 0; i < s.Len(); i++ {
		if s.IsNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(s.Format(i))
	}
	return b.Build()
}
