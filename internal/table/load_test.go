package table

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/leaproute/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRead_CSVInference(t *testing.T) {
	input := "\xEF\xBB\xBFname, value,ratio,active,day,,name\n" +
		"a,10,2.0,true,2024-01-05,x,dup\n" +
		"\n" +
		"b,,2.5,no,2024-02-01,y\n" +
		"c,5,4,yes,,z,last\n"

	tbl, err := Read(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, []core.Field{
		{Name: "name", Type: core.TypeString},
		{Name: "value", Type: core.TypeInt},
		{Name: "ratio", Type: core.TypeDouble},
		{Name: "active", Type: core.TypeBool},
		{Name: "day", Type: core.TypeDate},
		{Name: "column_6", Type: core.TypeString},
		{Name: "name_2", Type: core.TypeString},
	}, tbl.Schema())
	require.Equal(t, 3, tbl.NumRows())

	value, _ := tbl.Column("value")
	assert.Equal(t, []any{int64(10), nil, int64(5)}, cells(value))

	ratio, _ := tbl.Column("ratio")
	assert.Equal(t, []any{2.0, 2.5, 4.0}, cells(ratio))

	day, _ := tbl.Column("day")
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), day.Any(0))
	assert.Nil(t, day.Any(2))

	padded, _ := tbl.Column("name_2")
	assert.True(t, padded.IsNull(1))
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
		target error
	}{
		{name: "empty", input: "", format: FormatCSV, target: ErrEmptySource},
		{name: "blank lines only", input: "\n\n", format: FormatCSV, target: ErrEmptySource},
		{name: "unknown format", input: "a\n1", format: Format("parquet"), target: ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input), tt.format)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	_, err := Read(strings.NewReader("a,b\n\"unterminated,1\n"), FormatCSV)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read csv")
}

func TestRead_TSV(t *testing.T) {
	tbl, err := Read(strings.NewReader("k\tv\nx\t1.5\n"), FormatTSV)
	require.NoError(t, err)
	typ, _ := tbl.TypeOf("v")
	assert.Equal(t, core.TypeDouble, typ)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("city,value\nA,1\nB,2\n"), 0o600))

	tbl, err := FileLoader{}.Load(context.Background(), csvPath)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())

	_, err = LoadFile(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadFile(context.Background(), filepath.Join(dir, "data.json"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = LoadFile(ctx, csvPath)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFile_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "city"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "value"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "A"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 10))
	require.NoError(t, f.SetCellValue("Sheet1", "A3", "B"))
	require.NoError(t, f.SetCellValue("Sheet1", "B3", 20))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tbl, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "value"}, tbl.ColumnNames())
	value, _ := tbl.Column("value")
	assert.Equal(t, []any{int64(10), int64(20)}, cells(value))
}
