package table

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/leapstack-labs/leaproute/pkg/core"
)

// AggFunc names an aggregation over one column.
type AggFunc string

// Aggregation functions.
const (
	AggSum           AggFunc = "sum"
	AggMin           AggFunc = "min"
	AggMax           AggFunc = "max"
	AggMean          AggFunc = "mean"
	AggCountDistinct AggFunc = "countDistinct"
	AggCountTrue     AggFunc = "countTrue"
)

// Groups are the row positions of each distinct key tuple, in order of first appearance.
type Groups struct {
	keys    []string
	members [][]int
}

// Len returns the number of groups.
func (g *Groups) Len() int { return len(g.members) }

// Members returns the row positions of group i.
func (g *Groups) Members(i int) []int { return g.members[i] }

// GroupBy partitions rows by the text of the key columns. Null keys form their own group.
func (t *Table) GroupBy(keys []string) (*Groups, error) {
	cols := make([]Series, len(keys))
	for i, k := range keys {
		c, ok := t.Column(k)
		if !ok {
			return nil, &core.ColumnNotFoundError{Column: k}
		}
		cols[i] = c
	}

	g := &Groups{keys: keys}
	seen := make(map[string]int)
	var sb strings.Builder
	for row := 0; row < t.rows; row++ {
		sb.Reset()
		for _, c := range cols {
			if c.IsNull(row) {
				sb.WriteString("\x00")
			} else {
				sb.WriteString("\x01")
				sb.WriteString(c.Format(row))
			}
			sb.WriteString("\x1f")
		}
		key := sb.String()
		idx, ok := seen[key]
		if !ok {
			idx = len(g.members)
			seen[key] = idx
			g.members = append(g.members, nil)
		}
		g.members[idx] = append(g.members[idx], row)
	}
	return g, nil
}

// Aggregate groups by keys and reduces column with fn. The output has one row
// per distinct key tuple: the key columns followed by the aggregate column,
// named after the aggregated column.
func (t *Table) Aggregate(keys []string, column string, fn AggFunc) (*Table, error) {
	src, ok := t.Column(column)
	if !ok {
		return nil, &core.ColumnNotFoundError{Column: column}
	}
	return t.AggregateSeries(keys, src, fn)
}

// AggregateSeries is Aggregate over a series aligned with t's rows that need
// not be one of t's columns.
func (t *Table) AggregateSeries(keys []string, src Series, fn AggFunc) (*Table, error) {
	if src.Len() != t.NumRows() {
		return nil, fmt.Errorf("aggregate column %q has %d rows, table has %d", src.Name(), src.Len(), t.NumRows())
	}
	column := src.Name()
	groups, err := t.GroupBy(keys)
	if err != nil {
		return nil, err
	}

	firsts := make([]int, groups.Len())
	for i := range firsts {
		firsts[i] = groups.Members(i)[0]
	}
	out := make([]Series, 0, len(keys)+1)
	for _, k := range keys {
		c, _ := t.Column(k)
		out = append(out, c.Take(firsts))
	}

	name := column
	for _, k := range keys {
		if k == column {
			name = fmt.Sprintf("%s_%s", column, fn)
		}
	}

	agg, err := aggregateSeries(src, groups, name, fn)
	if err != nil {
		return nil, err
	}
	return New(append(out, agg)...)
}

func aggregateSeries(src Series, g *Groups, name string, fn AggFunc) (Series, error) {
	switch c := src.(type) {
	case *Column[int64]:
		switch fn {
		case AggSum:
			return reduceGroups(c, g, name, sumOf[int64]), nil
		case AggMin:
			return reduceGroups(c, g, name, extremeOf(func(a, b int64) bool { return a < b })), nil
		case AggMax:
			return reduceGroups(c, g, name, extremeOf(func(a, b int64) bool { return a > b })), nil
		case AggMean:
			return reduceGroups(Map(c, c.name, func(v int64) float64 { return float64(v) }), g, name, meanOf), nil
		case AggCountDistinct:
			return reduceGroups(c, g, name, countDistinctOf[int64]), nil
		}
	case *Column[float64]:
		switch fn {
		case AggSum:
			return reduceGroups(c, g, name, sumOf[float64]), nil
		case AggMin:
			return reduceGroups(c, g, name, extremeOf(func(a, b float64) bool { return a < b })), nil
		case AggMax:
			return reduceGroups(c, g, name, extremeOf(func(a, b float64) bool { return a > b })), nil
		case AggMean:
			return reduceGroups(c, g, name, meanOf), nil
		case AggCountDistinct:
			return reduceGroups(c, g, name, countDistinctOf[float64]), nil
		}
	case *Column[time.Time]:
		switch fn {
		case AggMin:
			return reduceGroups(c, g, name, extremeOf(func(a, b time.Time) bool { return a.Before(b) })), nil
		case AggMax:
			return reduceGroups(c, g, name, extremeOf(func(a, b time.Time) bool { return a.After(b) })), nil
		case AggCountDistinct:
			return reduceGroups(c, g, name, countDistinctOf[time.Time]), nil
		}
	case *Column[bool]:
		switch fn {
		case AggSum, AggCountTrue:
			return reduceGroups(c, g, name, countTrueOf), nil
		case AggCountDistinct:
			return reduceGroups(c, g, name, countDistinctOf[bool]), nil
		}
	case *Column[string]:
		switch fn {
		case AggCountDistinct:
			return reduceGroups(c, g, name, countDistinctOf[string]), nil
		case AggMin:
			return reduceGroups(c, g, name, extremeOf(func(a, b string) bool { return a < b })), nil
		case AggMax:
			return reduceGroups(c, g, name, extremeOf(func(a, b string) bool { return a > b })), nil
		}
	}
	return nil, &core.InvalidParameterError{
		Param:  "aggregation",
		Reason: fmt.Sprintf("%s is not defined for %s column %q", fn, src.Type(), src.Name()),
	}
}

// reduceGroups folds the non-null values of each group with f; ok=false yields a null cell.
func reduceGroups[T, U Value](c *Column[T], g *Groups, name string, f func(values []T) (U, bool)) *Column[U] {
	b := NewBuilder[U](name, g.Len())
	for i := 0; i < g.Len(); i++ {
		var values []T
		for _, row := range g.Members(i) {
			if v, ok := c.At(row); ok {
				values = append(values, v)
			}
		}
		if v, ok := f(values); ok {
			b.Append(v)
		} else {
			b.AppendNull()
		}
	}
	return b.Build()
}

func sumOf[T int64 | float64](values []T) (T, bool) {
	var s T
	for _, v := range values {
		s += v
	}
	return s, true
}

func meanOf(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	s, _ := sumOf(values)
	return s / float64(len(values)), true
}

func extremeOf[T Value](better func(a, b T) bool) func([]T) (T, bool) {
	return func(values []T) (T, bool) {
		var best T
		if len(values) == 0 {
			return best, false
		}
		best = values[0]
		for _, v := range values[1:] {
			if better(v, best) {
				best = v
			}
		}
		return best, true
	}
}

func countDistinctOf[T Value](values []T) (int64, bool) {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[FormatValue(v)] = struct{}{}
	}
	return int64(len(seen)), true
}

func countTrueOf(values []bool) (int64, bool) {
	var n int64
	for _, v := range values {
		if v {
			n++
		}
	}
	return n, true
}

// stddev returns the sample standard deviation.
func stddev(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	mean, _ := meanOf(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1)), true
}
