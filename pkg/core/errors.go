package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a route, node or plotter id is unknown.
	ErrNotFound = errors.New("not found")
	// ErrUnknownColumnType is returned when a column type name cannot be parsed.
	ErrUnknownColumnType = errors.New("unknown column type")
	// ErrUnknownReducer is returned when a persisted reducer tag is not in the catalog.
	ErrUnknownReducer = errors.New("unknown reducer")
)

// ColumnNotFoundError reports a single referenced column that is absent from the schema.
type ColumnNotFoundError struct {
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not found", e.Column)
}

// ColumnsNotFoundError reports every missing column of a multi-column operation.
type ColumnsNotFoundError struct {
	Columns []string
}

func (e *ColumnsNotFoundError) Error() string {
	quoted := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return fmt.Sprintf("columns not found: %s", strings.Join(quoted, ", "))
}

// TypeMismatchError reports a column whose element type is wrong for the operation.
type TypeMismatchError struct {
	Column   string
	Actual   ColumnType
	Expected ColumnType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("column %q has type %s, expected %s", e.Column, e.Actual, e.Expected)
}

// InvalidParameterError reports a reducer parameter outside its allowed range.
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Reason)
}

// LoadError wraps a failure to read or parse a route source.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PlotterColumnNotFoundError reports a plotter series referencing a missing column.
// Position is the zero-based index of the series in the plotter definition.
type PlotterColumnNotFoundError struct {
	Position int
	Column   string
}

func (e *PlotterColumnNotFoundError) Error() string {
	return fmt.Sprintf("plotter series %d: column %q not found", e.Position, e.Column)
}

// DecodeError reports a corrupt persisted encoding. It is a contract violation,
// never coerced into a default value.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RecoveredPanicError reports a panic raised while evaluating a single element.
type RecoveredPanicError struct {
	Value any
}

func (e *RecoveredPanicError) Error() string {
	return fmt.Sprintf("evaluation panicked: %v", e.Value)
}
