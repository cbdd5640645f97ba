package table

import (
	"errors"
	"fmt"
	"iter"

	"github.com/leapstack-labs/leaproute/pkg/core"
)

// ErrLengthMismatch is returned when columns of different lengths are combined.
var ErrLengthMismatch = errors.New("column length mismatch")

// Table is an immutable ordered set of equal-length columns.
type Table struct {
	columns []Series
	index   map[string]int
	rows    int
}

// New builds a table from columns. Names must be unique and lengths equal.
func New(columns ...Series) (*Table, error) {
	t := &Table{
		columns: make([]Series, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := t.index[c.Name()]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name())
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d", ErrLengthMismatch, c.Name(), c.Len(), t.rows)
		}
		t.index[c.Name()] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// MustNew is New for statically known inputs; it panics on error.
func MustNew(columns ...Series) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// --- Schema ---

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumColumns returns the column count.
func (t *Table) NumColumns() int { return len(t.columns) }

// Columns returns the columns in order.
func (t *Table) Columns() []Series {
	out := make([]Series, len(t.columns))
	copy(out, t.columns)
	return out
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name()
	}
	return names
}

// Schema returns the ordered (name, type) list.
func (t *Table) Schema() []core.Field {
	fields := make([]core.Field, len(t.columns))
	for i, c := range t.columns {
		fields[i] = core.Field{Name: c.Name(), Type: c.Type()}
	}
	return fields
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column.
func (t *Table) Column(name string) (Series, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// TypeOf returns the element type of the named column.
func (t *Table) TypeOf(name string) (core.ColumnType, bool) {
	c, ok := t.Column(name)
	if !ok {
		return core.TypeInvalid, false
	}
	return c.Type(), true
}

// Get returns the named column typed as T. It fails with
// *core.ColumnNotFoundError or *core.TypeMismatchError.
func Get[T Value](t *Table, name string) (*Column[T], error) {
	s, ok := t.Column(name)
	if !ok {
		return nil, &core.ColumnNotFoundError{Column: name}
	}
	c, ok := s.(*Column[T])
	if !ok {
		return nil, &core.TypeMismatchError{Column: name, Actual: s.Type(), Expected: TypeFor[T]()}
	}
	return c, nil
}

// --- Shape changes ---

// With returns a table where col replaces the same-named column in place,
// or is appended when no such column exists.
func (t *Table) With(col Series) (*Table, error) {
	if len(t.columns) > 0 && col.Len() != t.rows {
		return nil, fmt.Errorf("%w: column %q has %d rows, expected %d", ErrLengthMismatch, col.Name(), col.Len(), t.rows)
	}
	cols := t.Columns()
	if i, ok := t.index[col.Name()]; ok {
		cols[i] = col
	} else {
		cols = append(cols, col)
	}
	return New(cols...)
}

// Select keeps the named columns in table order. Unknown names are ignored.
func (t *Table) Select(names []string) *Table {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	var cols []Series
	for _, c := range t.columns {
		if keep[c.Name()] {
			cols = append(cols, c)
		}
	}
	return t.rebuild(cols)
}

// Drop removes the named columns, keeping the rest in order.
func (t *Table) Drop(names []string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var cols []Series
	for _, c := range t.columns {
		if !drop[c.Name()] {
			cols = append(cols, c)
		}
	}
	return t.rebuild(cols)
}

// Filter keeps the rows where keep is true.
func (t *Table) Filter(keep []bool) *Table {
	rows := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			rows = append(rows, i)
		}
	}
	return t.Take(rows)
}

// Take returns the rows at the given positions, in order.
func (t *Table) Take(rows []int) *Table {
	cols := make([]Series, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.Take(rows)
	}
	out := t.rebuild(cols)
	out.rows = len(rows)
	return out
}

// Head returns at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 || n >= t.rows {
		return t
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return t.Take(rows)
}

// rebuild keeps the row count when every column was dropped.
func (t *Table) rebuild(cols []Series) *Table {
	out := &Table{columns: cols, index: make(map[string]int, len(cols)), rows: t.rows}
	for i, c := range cols {
		out.index[c.Name()] = i
	}
	return out
}

// --- Rows ---

// Row returns the cells of row i; nulls are nil.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Any(i)
	}
	return row
}

// Rows iterates rows in order.
func (t *Table) Rows() iter.Seq2[int, []any] {
	return func(yield func(int, []any) bool) {
		for i := 0; i < t.rows; i++ {
			if !yield(i, t.Row(i)) {
				return
			}
		}
	}
}

// FormattedRow returns the text of every cell of row i.
func (t *Table) FormattedRow(i int) []string {
	row := make([]string, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Format(i)
	}
	return row
}
