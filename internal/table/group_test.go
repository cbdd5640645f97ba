package table

import (
	"errors"
	"testing"
	"time"

	"github.com/leapstack-labs/leaproute/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Aggregate(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	tbl := MustNew(
		Of[string]("city", "A", "A", "B"),
		Of[float64]("value", 1.0, 3.0, 5.0),
		OfNullable[int64]("n", ptr[int64](4), nil, ptr[int64](2)),
		Of[bool]("flag", true, true, false),
		Of[time.Time]("when", day(3), day(1), day(2)),
		Of[string]("tag", "x", "y", "x"),
	)

	tests := []struct {
		name   string
		column string
		fn     AggFunc
		want   []any
	}{
		{name: "double sum", column: "value", fn: AggSum, want: []any{4.0, 5.0}},
		{name: "double mean", column: "value", fn: AggMean, want: []any{2.0, 5.0}},
		{name: "double max", column: "value", fn: AggMax, want: []any{3.0, 5.0}},
		{name: "int sum skips nulls", column: "n", fn: AggSum, want: []any{int64(4), int64(2)}},
		{name: "int min", column: "n", fn: AggMin, want: []any{int64(4), int64(2)}},
		{name: "bool counts true", column: "flag", fn: AggSum, want: []any{int64(2), int64(0)}},
		{name: "date min", column: "when", fn: AggMin, want: []any{day(1), day(2)}},
		{name: "string count distinct", column: "tag", fn: AggCountDistinct, want: []any{int64(2), int64(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tbl.Aggregate([]string{"city"}, tt.column, tt.fn)
			require.NoError(t, err)
			assert.Equal(t, []string{"city", tt.column}, out.ColumnNames())
			require.Equal(t, 2, out.NumRows())
			city, _ := out.Column("city")
			assert.Equal(t, []any{"A", "B"}, cells(city))
			agg, _ := out.Column(tt.column)
			assert.Equal(t, tt.want, cells(agg))
		})
	}
}

func TestTable_AggregateErrors(t *testing.T) {
	tbl := MustNew(Of[string]("city", "A"), Of[string]("tag", "x"))

	_, err := tbl.Aggregate([]string{"city"}, "tag", AggSum)
	var invalid *core.InvalidParameterError
	assert.True(t, errors.As(err, &invalid))

	_, err = tbl.Aggregate([]string{"missing"}, "tag", AggCountDistinct)
	var notFound *core.ColumnNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestTable_AggregateSeries(t *testing.T) {
	tbl := MustNew(Of[string]("value", "1", "1", "2"))
	src := Of[int64]("value", 1, 1, 2)

	out, err := tbl.AggregateSeries([]string{"value"}, src, AggSum)
	require.NoError(t, err)
	assert.Equal(t, []string{"value", "value_sum"}, out.ColumnNames())
	sum, _ := out.Column("value_sum")
	assert.Equal(t, []any{int64(2), int64(2)}, cells(sum))

	_, err = tbl.AggregateSeries([]string{"value"}, Of[int64]("value", 1), AggSum)
	assert.Error(t, err)
}

func TestTable_GroupByNullKeys(t *testing.T) {
	tbl := MustNew(OfNullable[string]("k", ptr("a"), nil, ptr("a"), nil))

	g, err := tbl.GroupBy([]string{"k"})
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())
	assert.Equal(t, []int{0, 2}, g.Members(0))
	assert.Equal(t, []int{1, 3}, g.Members(1))
}

func TestTable_Summary(t *testing.T) {
	tbl := MustNew(
		OfNullable[float64]("x", ptr(1.0), ptr(3.0), nil),
		Of[string]("s", "b", "a", "b"),
	)

	sum := tbl.Summary()
	assert.Equal(t, 2, sum.NumRows())
	assert.Equal(t, []any{"x", "Double", int64(2), int64(1), int64(2), 2.0}, sum.Row(0)[:6])

	minCol, _ := sum.Column(SummaryMin)
	assert.Equal(t, []any{"1", "a"}, cells(minCol))
	meanCol, _ := sum.Column(SummaryMean)
	assert.True(t, meanCol.IsNull(1))

	one, err := tbl.SummaryOf("s")
	require.NoError(t, err)
	assert.Equal(t, 1, one.NumRows())

	_, err = tbl.SummaryOf("nope")
	assert.Error(t, err)
}
