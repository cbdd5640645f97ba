package table

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Source formats.
const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// Format identifies how a source file is encoded.
type Format string

var (
	// ErrUnsupportedFormat is returned for unknown source extensions.
	ErrUnsupportedFormat = errors.New("unsupported source format")
	// ErrEmptySource is returned when a source has no header row.
	ErrEmptySource = errors.New("source has no rows")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// DetectFormat maps a path's extension to a Format.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// FileLoader reads route sources from the local filesystem.
type FileLoader struct{}

// Load reads and parses the file at path.
func (FileLoader) Load(ctx context.Context, path string) (*Table, error) {
	return LoadFile(ctx, path)
}

// LoadFile reads and parses the file at path, inferring column types.
func LoadFile(ctx context.Context, path string) (*Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // route source path
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Read(f, format)
}

// Read parses r in the given format.
func Read(r io.Reader, format Format) (*Table, error) {
	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = readDelimited(r, ',')
	case FormatTSV:
		records, err = readDelimited(r, '\t')
	case FormatXLSX:
		records, err = readExcel(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return FromRecords(records)
}

func readDelimited(r io.Reader, comma rune) ([][]string, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = br.Discard(len(byteOrderMark))
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

func readExcel(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return rows, nil
}

// FromRecords builds a table from raw text records. The first non-blank
// record is the header; blank rows are skipped; short rows are padded.
func FromRecords(records [][]string) (*Table, error) {
	var header []string
	var rows [][]string
	for _, rec := range records {
		if isBlank(rec) {
			continue
		}
		if header == nil {
			header = rec
			continue
		}
		rows = append(rows, rec)
	}
	if header == nil {
		return nil, ErrEmptySource
	}

	names := headerNames(header)
	for i := range rows {
		rows[i] = padRow(rows[i], len(names))
	}

	cols := make([]Series, len(names))
	for i, name := range names {
		cols[i] = inferColumn(name, i, rows)
	}
	return New(cols...)
}

// headerNames trims header cells, names blank ones column_N and suffixes duplicates.
func headerNames(raw []string) []string {
	names := make([]string, len(raw))
	seen := make(map[string]int)
	for i, v := range raw {
		name := strings.TrimSpace(v)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		base := name
		if n := seen[base]; n > 0 {
			name = fmt.Sprintf("%s_%d", base, n+1)
		}
		seen[base]++
		names[i] = name
	}
	return names
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
