package table

import (
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leaproute/pkg/core"
)

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// inferColumn profiles one column of records and builds it with the
// narrowest type every non-empty cell satisfies: bool, int, double, date, string.
func inferColumn(name string, col int, rows [][]string) Series {
	switch profileColumn(col, rows) {
	case core.TypeBool:
		return buildColumn(name, col, rows, parseBool)
	case core.TypeInt:
		return buildColumn(name, col, rows, parseInt)
	case core.TypeDouble:
		return buildColumn(name, col, rows, parseDouble)
	case core.TypeDate:
		return buildColumn(name, col, rows, parseTimestamp)
	default:
		return buildColumn(name, col, rows, func(s string) (string, bool) { return s, true })
	}
}

func profileColumn(col int, rows [][]string) core.ColumnType {
	isBool, isInt, isDouble, isDate := true, true, true, true
	hasValue := false

	for _, row := range rows {
		value := strings.TrimSpace(row[col])
		if value == "" {
			continue
		}
		hasValue = true
		if isBool {
			_, isBool = parseBool(value)
		}
		if isInt {
			_, isInt = parseInt(value)
		}
		if isDouble {
			_, isDouble = parseDouble(value)
		}
		if isDate {
			_, isDate = parseTimestamp(value)
		}
	}

	switch {
	case !hasValue:
		return core.TypeString
	case isBool:
		return core.TypeBool
	case isInt:
		return core.TypeInt
	case isDouble:
		return core.TypeDouble
	case isDate:
		return core.TypeDate
	default:
		return core.TypeString
	}
}

func buildColumn[T Value](name string, col int, rows [][]string, parse func(string) (T, bool)) *Column[T] {
	b := NewBuilder[T](name, len(rows))
	for _, row := range rows {
		raw := row[col]
		if strings.TrimSpace(raw) == "" {
			b.AppendNull()
			continue
		}
		if TypeFor[T]() != core.TypeString {
			raw = strings.TrimSpace(raw)
		}
		if v, ok := parse(raw); ok {
			b.Append(v)
		} else {
			b.AppendNull()
		}
	}
	return b.Build()
}

func parseBool(value string) (bool, bool) {
	switch strings.ToLower(value) {
	case "true", "yes":
		return true, true
	case "false", "no":
		return false, true
	}
	return false, false
}

func parseInt(value string) (int64, bool) {
	v, err := strconv.ParseInt(value, 10, 64)
	return v, err == nil
}

func parseDouble(value string) (float64, bool) {
	v, err := strconv.ParseFloat(value, 64)
	return v, err == nil
}

func parseTimestamp(value string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
