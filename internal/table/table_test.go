package table

import (
	"errors"
	"testing"
	"time"

	"github.com/leapstack-labs/leaproute/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := New(
		Of[string]("a", "x", "y", "z"),
		OfNullable[int64]("b", ptr[int64](1), nil, ptr[int64](3)),
		Of[float64]("c", 1.5, 2.5, 3.5),
	)
	require.NoError(t, err)
	return tbl
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		columns []Series
		errMsg  string
	}{
		{
			name:    "duplicate names",
			columns: []Series{Of[int64]("a", 1), Of[int64]("a", 2)},
			errMsg:  "duplicate column",
		},
		{
			name:    "length mismatch",
			columns: []Series{Of[int64]("a", 1, 2), Of[int64]("b", 2)},
			errMsg:  "length mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.columns...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestTable_Schema(t *testing.T) {
	tbl := sampleTable(t)

	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, []string{"a", "b", "c"}, tbl.ColumnNames())
	assert.Equal(t, []core.Field{
		{Name: "a", Type: core.TypeString},
		{Name: "b", Type: core.TypeInt},
		{Name: "c", Type: core.TypeDouble},
	}, tbl.Schema())

	typ, ok := tbl.TypeOf("b")
	assert.True(t, ok)
	assert.Equal(t, core.TypeInt, typ)
	assert.False(t, tbl.Has("missing"))
}

func TestGet(t *testing.T) {
	tbl := sampleTable(t)

	col, err := Get[int64](tbl, "b")
	require.NoError(t, err)
	v, ok := col.At(0)
	assert.True(t, ok)
	assert.Equal(t, int64(1), v)
	assert.True(t, col.IsNull(1))

	_, err = Get[int64](tbl, "nope")
	var notFound *core.ColumnNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "nope", notFound.Column)

	_, err = Get[int64](tbl, "c")
	var mismatch *core.TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, core.TypeDouble, mismatch.Actual)
	assert.Equal(t, core.TypeInt, mismatch.Expected)
}

func TestTable_With(t *testing.T) {
	tbl := sampleTable(t)

	replaced, err := tbl.With(Of[bool]("b", true, false, true))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, replaced.ColumnNames())
	typ, _ := replaced.TypeOf("b")
	assert.Equal(t, core.TypeBool, typ)

	appended, err := tbl.With(Of[int64]("d", 7, 8, 9))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, appended.ColumnNames())

	// the source table is untouched
	typ, _ = tbl.TypeOf("b")
	assert.Equal(t, core.TypeInt, typ)

	_, err = tbl.With(Of[int64]("d", 1))
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestTable_SelectDrop(t *testing.T) {
	tbl := sampleTable(t)

	assert.Equal(t, []string{"a", "c"}, tbl.Select([]string{"c", "a"}).ColumnNames())
	assert.Equal(t, []string{"a", "c"}, tbl.Drop([]string{"b"}).ColumnNames())
	assert.Equal(t, 3, tbl.Select(nil).NumRows())
}

func TestTable_FilterTakeHead(t *testing.T) {
	tbl := sampleTable(t)

	filtered := tbl.Filter([]bool{true, false, true})
	assert.Equal(t, 2, filtered.NumRows())
	assert.Equal(t, []any{"z", int64(3), 3.5}, filtered.Row(1))

	head := tbl.Head(1)
	assert.Equal(t, 1, head.NumRows())
	assert.Same(t, tbl, tbl.Head(10))

	var rows [][]any
	for _, row := range tbl.Rows() {
		rows = append(rows, row)
	}
	require.Len(t, rows, 3)
	assert.Nil(t, rows[1][1])
}

func TestMapZipFill(t *testing.T) {
	a := OfNullable[int64]("a", ptr[int64](1), nil, ptr[int64](3))
	b := OfNullable[int64]("b", ptr[int64](10), ptr[int64](20), nil)

	doubled := Map(a, "doubled", func(v int64) int64 { return v * 2 })
	assert.Equal(t, []any{int64(2), nil, int64(6)}, cells(doubled))

	sum := Zip(a, b, "sum", func(x, y int64) int64 { return x + y })
	assert.Equal(t, []any{int64(11), nil, nil}, cells(sum))

	filled := FillNull(a, 0)
	assert.Equal(t, []any{int64(1), int64(0), int64(3)}, cells(filled))
	assert.Equal(t, "a", filled.Name())

	parsed := TryMap(Of[string]("s", "1", "x"), "n", func(s string) (int64, bool) {
		return parseInt(s)
	})
	assert.Equal(t, []any{int64(1), nil}, cells(parsed))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "42", FormatValue[int64](42))
	assert.Equal(t, "0.25", FormatValue(0.25))
	assert.Equal(t, "2024-01-05", FormatValue(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-01-05 10:30:00", FormatValue(time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)))
	assert.Equal(t, "true", FormatValue(true))
}

func cells(s Series) []any {
	out := make([]any, s.Len())
	for i := range out {
		out[i] = s.Any(i)
	}
	return out
}
