package reducer

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/leaproute/internal/table"
	"github.com/leapstack-labs/leaproute/pkg/core"
)

func init() {
	register("table.groupBy", func() Reducer { return &GroupBy{} })
}

// Granularity selects how a group key column is bucketed.
type Granularity string

// Key granularities. GranularityAny groups non-date columns by their text;
// the others truncate a Date column.
const (
	GranularityAny   Granularity = "any"
	GranularityYear  Granularity = "year"
	GranularityMonth Granularity = "month"
	GranularityDay   Granularity = "day"
)

// GroupKey is one grouping column.
type GroupKey struct {
	Column      string      `json:"column"`
	Granularity Granularity `json:"granularity"`
}

// Aggregation names the reduced column, its expected domain and the function.
type Aggregation struct {
	Column   string          `json:"column"`
	Type     core.ColumnType `json:"type"`
	Function table.AggFunc   `json:"function"`
}

// allowedAggregations lists the functions defined for each domain.
var allowedAggregations = map[core.ColumnType][]table.AggFunc{
	core.TypeInt:    {table.AggSum, table.AggMax, table.AggMin},
	core.TypeDouble: {table.AggSum, table.AggMax, table.AggMin, table.AggMean},
	core.TypeDate:   {table.AggMax, table.AggMin},
	core.TypeBool:   {table.AggSum},
	core.TypeString: {table.AggCountDistinct},
}

// MaxGroupKeys is the largest number of grouping columns.
const MaxGroupKeys = 3

// GroupBy produces one row per distinct key tuple with a single aggregate column.
type GroupBy struct {
	Keys        []GroupKey  `json:"keys"`
	Aggregation Aggregation `json:"aggregation"`
}

// Op returns the serialization tag.
func (r *GroupBy) Op() string { return "table.groupBy" }

// Apply validates keys and aggregation, buckets the keys, then aggregates.
func (r *GroupBy) Apply(t *table.Table) (*table.Table, error) {
	names := make([]string, 0, len(r.Keys)+1)
	for _, k := range r.Keys {
		names = append(names, k.Column)
	}
	if err := requireColumns(t, append(names, r.Aggregation.Column)...); err != nil {
		return nil, err
	}
	if len(r.Keys) == 0 || len(r.Keys) > MaxGroupKeys {
		return nil, &core.InvalidParameterError{
			Param:  "keys",
			Reason: fmt.Sprintf("expected 1 to %d group keys, got %d", MaxGroupKeys, len(r.Keys)),
		}
	}

	seen := make(map[string]bool, len(r.Keys))
	for _, k := range r.Keys {
		if seen[k.Column] {
			return nil, &core.InvalidParameterError{
				Param:  "keys",
				Reason: fmt.Sprintf("column %q is used as a group key more than once", k.Column),
			}
		}
		seen[k.Column] = true
	}

	out := t
	for _, k := range r.Keys {
		col, err := bucketKey(t, k)
		if err != nil {
			return nil, err
		}
		if out, err = out.With(col); err != nil {
			return nil, err
		}
	}

	agg := r.Aggregation
	actual, _ := t.TypeOf(agg.Column)
	if actual != agg.Type {
		return nil, &core.TypeMismatchError{Column: agg.Column, Actual: actual, Expected: agg.Type}
	}
	if !slices.Contains(allowedAggregations[agg.Type], agg.Function) {
		return nil, &core.InvalidParameterError{
			Param:  "aggregation.function",
			Reason: fmt.Sprintf("%s is not defined for %s columns", agg.Function, agg.Type),
		}
	}
	// Keys may rewrite the aggregation column in out; aggregate the original.
	src, _ := t.Column(agg.Column)
	return out.AggregateSeries(names, src, agg.Function)
}

// bucketKey rewrites a key column: text for GranularityAny, truncated dates otherwise.
func bucketKey(t *table.Table, k GroupKey) (table.Series, error) {
	switch k.Granularity {
	case GranularityAny, "":
		s, _ := t.Column(k.Column)
		if s.Type() == core.TypeDate {
			return nil, &core.TypeMismatchError{Column: k.Column, Actual: core.TypeDate, Expected: core.TypeString}
		}
		return table.Text(s, k.Column), nil
	case GranularityYear, GranularityMonth, GranularityDay:
		col, err := table.Get[time.Time](t, k.Column)
		if err != nil {
			return nil, err
		}
		return table.Map(col, k.Column, func(v time.Time) time.Time { return truncate(v, k.Granularity) }), nil
	default:
		return nil, &core.InvalidParameterError{
			Param:  "keys.granularity",
			Reason: fmt.Sprintf("unknown granularity %q", k.Granularity),
		}
	}
}

func truncate(v time.Time, g Granularity) time.Time {
	switch g {
	case GranularityYear:
		return time.Date(v.Year(), 1, 1, 0, 0, 0, 0, v.Location())
	case GranularityMonth:
		return time.Date(v.Year(), v.Month(), 1, 0, 0, 0, 0, v.Location())
	default:
		return time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, v.Location())
	}
}

// Describe returns the display triple.
func (r *GroupBy) Describe() Description {
	keys := make([]string, len(r.Keys))
	for i, k := range r.Keys {
		if k.Granularity == GranularityAny || k.Granularity == "" {
			keys[i] = k.Column
		} else {
			keys[i] = fmt.Sprintf("%s(%s)", k.Granularity, k.Column)
		}
	}
	joined := strings.Join(keys, ", ")
	return Description{
		Full:         fmt.Sprintf("Group by %s and take the %s of %s", joined, r.Aggregation.Function, r.Aggregation.Column),
		Abbreviation: fmt.Sprintf("%s(%s) by %s", r.Aggregation.Function, r.Aggregation.Column, joined),
		Short:        "group",
	}
}
