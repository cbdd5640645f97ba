package table

import (
	"time"

	"github.com/leapstack-labs/leaproute/pkg/core"
)

// Summary column names.
const (
	SummaryColumn  = "column"
	SummaryType    = "type"
	SummaryCount   = "count"
	SummaryMissing = "missing"
	SummaryUnique  = "unique"
	SummaryMean    = "mean"
	SummaryStd     = "std"
	SummaryMin     = "min"
	SummaryMax     = "max"
)

// Summary returns descriptive statistics with one row per column.
func (t *Table) Summary() *Table {
	return summarize(t.columns)
}

// SummaryOf returns descriptive statistics for a single column.
func (t *Table) SummaryOf(column string) (*Table, error) {
	c, ok := t.Column(column)
	if !ok {
		return nil, &core.ColumnNotFoundError{Column: column}
	}
	return summarize([]Series{c}), nil
}

type columnStats struct {
	count, missing, unique int64
	mean, std              float64
	hasMean, hasStd        bool
	min, max               string
	hasRange               bool
}

func summarize(cols []Series) *Table {
	var (
		names   = NewBuilder[string](SummaryColumn, len(cols))
		types   = NewBuilder[string](SummaryType, len(cols))
		counts  = NewBuilder[int64](SummaryCount, len(cols))
		missing = NewBuilder[int64](SummaryMissing, len(cols))
		unique  = NewBuilder[int64](SummaryUnique, len(cols))
		means   = NewBuilder[float64](SummaryMean, len(cols))
		stds    = NewBuilder[float64](SummaryStd, len(cols))
		mins    = NewBuilder[string](SummaryMin, len(cols))
		maxs    = NewBuilder[string](SummaryMax, len(cols))
	)
	for _, c := range cols {
		st := statsOf(c)
		names.Append(c.Name())
		types.Append(c.Type().String())
		counts.Append(st.count)
		missing.Append(st.missing)
		unique.Append(st.unique)
		appendOptional(means, st.mean, st.hasMean)
		appendOptional(stds, st.std, st.hasStd)
		appendOptional(mins, st.min, st.hasRange)
		appendOptional(maxs, st.max, st.hasRange)
	}
	return MustNew(names.Build(), types.Build(), counts.Build(), missing.Build(),
		unique.Build(), means.Build(), stds.Build(), mins.Build(), maxs.Build())
}

func appendOptional[T Value](b *Builder[T], v T, ok bool) {
	if ok {
		b.Append(v)
	} else {
		b.AppendNull()
	}
}

func statsOf(s Series) columnStats {
	switch c := s.(type) {
	case *Column[int64]:
		st := rangeStats(c, func(a, b int64) bool { return a < b })
		numericStats(&st, Map(c, c.name, func(v int64) float64 { return float64(v) }))
		return st
	case *Column[float64]:
		st := rangeStats(c, func(a, b float64) bool { return a < b })
		numericStats(&st, c)
		return st
	case *Column[time.Time]:
		return rangeStats(c, func(a, b time.Time) bool { return a.Before(b) })
	case *Column[bool]:
		return rangeStats(c, func(a, b bool) bool { return !a && b })
	case *Column[string]:
		return rangeStats(c, func(a, b string) bool { return a < b })
	}
	return columnStats{}
}

func rangeStats[T Value](c *Column[T], less func(a, b T) bool) columnStats {
	var values []T
	c.Valid(func(_ int, v T) { values = append(values, v) })

	st := columnStats{
		count:   int64(len(values)),
		missing: int64(c.Len() - len(values)),
	}
	st.unique, _ = countDistinctOf(values)
	if lo, ok := extremeOf(less)(values); ok {
		hi, _ := extremeOf(func(a, b T) bool { return less(b, a) })(values)
		st.min, st.max, st.hasRange = FormatValue(lo), FormatValue(hi), true
	}
	return st
}

func numericStats(st *columnStats, c *Column[float64]) {
	var values []float64
	c.Valid(func(_ int, v float64) { values = append(values, v) })
	st.mean, st.hasMean = meanOf(values)
	st.std, st.hasStd = stddev(values)
}
