package core

import "strings"

// =============================================================================
// ColumnType
// =============================================================================

// ColumnType is the element type of a table column.
type ColumnType int

// Column element types.
const (
	// TypeInvalid is the zero value and never appears in a valid schema.
	TypeInvalid ColumnType = iota
	// TypeInt holds 64-bit signed integers.
	TypeInt
	// TypeDouble holds 64-bit floating point values.
	TypeDouble
	// TypeDate holds timestamps.
	TypeDate
	// TypeBool holds booleans.
	TypeBool
	// TypeString holds text.
	TypeString
)

// String returns the string representation of the column type.
func (t ColumnType) String() string {
	switch t {
	case TypeInt:
		return "Int"
	case TypeDouble:
		return "Double"
	case TypeDate:
		return "Date"
	case TypeBool:
		return "Bool"
	case TypeString:
		return "String"
	default:
		return "Invalid"
	}
}

// ParseColumnType converts a string to a ColumnType.
// Returns the type and true if valid, or TypeInvalid and false otherwise.
func ParseColumnType(s string) (ColumnType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer":
		return TypeInt, true
	case "double", "float":
		return TypeDouble, true
	case "date":
		return TypeDate, true
	case "bool", "boolean":
		return TypeBool, true
	case "string", "text":
		return TypeString, true
	default:
		return TypeInvalid, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ColumnType) UnmarshalText(text []byte) error {
	parsed, ok := ParseColumnType(string(text))
	if !ok {
		return &DecodeError{Field: "type", Err: ErrUnknownColumnType}
	}
	*t = parsed
	return nil
}

// Field is one entry of a table schema.
type Field struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}
