package reducer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leaproute/internal/table"
)

func init() {
	register("integer.castDouble", func() Reducer { return &IntToDouble{} })
	register("integer.castString", func() Reducer { return &ToString[int64]{} })
	register("double.castString", func() Reducer { return &ToString[float64]{} })
	register("boolean.castString", func() Reducer { return &ToString[bool]{} })
	register("double.castIntFloor", func() Reducer { return &DoubleToInt{Rounding: RoundFloor} })
	register("double.castIntCeil", func() Reducer { return &DoubleToInt{Rounding: RoundCeil} })
	register("date.castString", func() Reducer { return &DateToString{} })
	register("string.tryCastInt", func() Reducer { return &StringToInt{} })
	register("string.tryCastDouble", func() Reducer { return &StringToDouble{} })
	register("string.tryCastDate", func() Reducer { return &StringToDate{} })
}

// IntToDouble widens an Int column into a Double column.
type IntToDouble struct {
	Column     string `json:"column"`
	IntoColumn string `json:"intoColumn"`
}

// Op returns the serialization tag.
func (r *IntToDouble) Op() string { return "integer.castDouble" }

// Apply converts every non-null cell.
func (r *IntToDouble) Apply(t *table.Table) (*table.Table, error) {
	col, err := table.Get[int64](t, r.Column)
	if err != nil {
		return nil, err
	}
	if err := requireInto(r.IntoColumn); err != nil {
		return nil, err
	}
	return t.With(table.Map(col, r.IntoColumn, func(v int64) float64 { return float64(v) }))
}

// Describe returns the display triple.
func (r *IntToDouble) Describe() Description {
	return castDescription(r.Column, r.IntoColumn, "Double")
}

// ToString renders a column as text.
type ToString[T int64 | float64 | bool] struct {
	Column     string `json:"column"`
	IntoColumn string `json:"intoColumn"`
}

// Op returns the serialization tag.
func (r *ToString[T]) Op() string { return family[T]() + ".castString" }

// Apply formats every non-null cell.
func (r *ToString[T]) Apply(t *table.Table) (*table.Table, error) {
	col, err := table.Get[T](t, r.Column)
	if err != nil {
		return nil, err
	}
	if err := requireInto(r.IntoColumn); err != nil {
		return nil, err
	}
	return t.With(table.Map(col, r.IntoColumn, table.FormatValue[T]))
}

// Describe returns the display triple.
func (r *ToString[T]) Describe() Description {
	return castDescription(r.Column, r.IntoColumn, "String")
}

// Rounding selects how a Double is brought to an integer.
type Rounding int

// Rounding modes.
const (
	RoundFloor Rounding = iota
	RoundCeil
)

// DoubleToInt converts a Double column to Int with explicit rounding.
// Cells that do not fit in an Int (NaN, ±Inf, out of range) become null.
type DoubleToInt struct {
	Rounding   Rounding `json:"-"`
	Column     string   `json:"column"`
	IntoColumn string   `json:"intoColumn"`
}

// Op returns the serialization tag.
func (r *DoubleToInt) Op() string {
	if r.Rounding == RoundCeil {
		return "double.castIntCeil"
	}
	return "double.castIntFloor"
}

// Apply rounds and converts every non-null cell.
func (r *DoubleToInt) Apply(t *table.Table) (*table.Table, error) {
	col, err := table.Get[float64](t, r.Column)
	if err != nil {
		return nil, err
	}
	if err := requireInto(r.IntoColumn); err != nil {
		return nil, err
	}
	round := math.Floor
	if r.Rounding == RoundCeil {
		round = math.Ceil
	}
	return t.With(table.TryMap(col, r.IntoColumn, func(v float64) (int64, bool) {
		v = round(v)
		if math.IsNaN(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	}))
}

// Describe returns the display triple.
func (r *DoubleToInt) Describe() Description {
	d := castDescription(r.Column, r.IntoColumn, "Int")
	if r.Rounding == RoundCeil {
		d.Full += " rounding up"
		d.Short = "⌈Int⌉"
	} else {
		d.Full += " rounding down"
		d.Short = "⌊Int⌋"
	}
	return d
}

// DateToString formats a Date column with a date pattern.
type DateToString struct {
	Column     string `json:"column"`
	RHS        string `json:"rhs"`
	IntoColumn string `json:"intoColumn"`
}

// Op returns the serialization tag.
func (r *DateToString) Op() string { return "date.castString" }

// Apply formats every non-null cell.
func (r *DateToString) Apply(t *table.Table) (*table.Table, error) {
	col, err := table.Get[time.Time](t, r.Column)
	if err != nil {
		return nil, err
	}
	if err := requireInto(r.IntoColumn); err != nil {
		return nil, err
	}
	layout := goLayout(r.RHS)
	return t.With(table.Map(col, r.IntoColumn, func(v time.Time) string { return v.Format(layout) }))
}

// Describe returns the display triple.
func (r *DateToString) Describe() Description {
	d := castDescription(r.Column, r.IntoColumn, "String")
	d.Full += fmt.Sprintf(" using %q", r.RHS)
	return d
}

// StringToInt parses a String column; unparsable cells become null.
type StringToInt struct {
	Column     string `json:"column"`
	IntoColumn string `json:"intoColumn"`
}

// Op returns the serialization tag.
func (r *StringToInt) Op() string { return "string.tryCastInt" }

// Apply parses every non-null cell.
func (r *StringToInt) Apply(t *table.Table) (*table.Table, error) {
	col, err := table.Get[string](t, r.Column)
	if err != nil {
		return nil, err
	}
	if err := requireInto(r.IntoColumn); err != nil {
		return nil, err
	}
	return t.With(table.TryMap(col, r.IntoColumn, func(v string) (int64, bool) {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}))
}

// Describe returns the display triple.
func (r *StringToInt) Describe() Description {
	return castDescription(r.Column, r.IntoColumn, "Int")
}

// StringToDouble parses a String column; unparsable cells become null.
type StringToDouble struct {
	Column     string `json:"column"`
	IntoColumn string `json:"intoColumn"`
}

// Op returns the serialization tag.
func (r *StringToDouble) Op() string { return "string.tryCastDouble" }

// Apply parses every non-null cell.
func (r *StringToDouble) Apply(t *table.Table) (*table.Table, error) {
	col, err := table.Get[string](t, r.Column)
	if err != nil {
		return nil, err
	}
	if err := requireInto(r.IntoColumn); err != nil {
		return nil, err
	}
	return t.With(table.TryMap(col, r.IntoColumn, func(v string) (float64, bool) {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}))
}

// Describe returns the display triple.
func (r *StringToDouble) Describe() Description {
	return castDescription(r.Column, r.IntoColumn, "Double")
}

// StringToDate parses a String column with a date pattern such as
// "yyyy-MM-dd" or "%Y-%m-%d"; unparsable cells become null.
//
// Unicode patterns support y, M, d, D, E, H, h, m, s, S, a, X and Z; other
// letters are copied into the layout literally and should be quoted.
// strftime patterns support %Y %y %m %d %e %B %b %A %a %H %I %M %S %p %z %Z %%.
type StringToDate struct {
	Column     string `json:"column"`
	RHS        string `json:"rhs"`
	IntoColumn string `json:"intoColumn"`
}

// Op returns the serialization tag.
func (r *StringToDate) Op() string { return "string.tryCastDate" }

// Apply parses every non-null cell.
func (r *StringToDate) Apply(t *table.Table) (*table.Table, error) {
	col, err := table.Get[string](t, r.Column)
	if err != nil {
		return nil, err
	}
	if err := requireInto(r.IntoColumn); err != nil {
		return nil, err
	}
	layout := goLayout(r.RHS)
	return t.With(table.TryMap(col, r.IntoColumn, func(v string) (time.Time, bool) {
		ts, err := time.Parse(layout, strings.TrimSpace(v))
		return ts, err == nil
	}))
}

// Describe returns the display triple.
func (r *StringToDate) Describe() Description {
	d := castDescription(r.Column, r.IntoColumn, "Date")
	d.Full += fmt.Sprintf(" using %q", r.RHS)
	return d
}

func castDescription(column, into, target string) Description {
	return Description{
		Full:         fmt.Sprintf("Convert %s to %s into %s", column, target, into),
		Abbreviation: fmt.Sprintf("%s = %s(%s)", into, target, column),
		Short:        target,
	}
}
