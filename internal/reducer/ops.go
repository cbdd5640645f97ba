package reducer

import (
	"cmp"
	"time"

	"github.com/leapstack-labs/leaproute/internal/table"
)

// Number is the set of numeric column types.
type Number interface {
	int64 | float64
}

// ArithOp is an element-wise arithmetic operator.
type ArithOp int

// Arithmetic operators.
const (
	OpAdd ArithOp = iota
	OpSubtract
	OpMultiply
	OpDivide
)

var arithOps = []ArithOp{OpAdd, OpSubtract, OpMultiply, OpDivide}

func (o ArithOp) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpSubtract:
		return "subtract"
	case OpMultiply:
		return "multiply"
	default:
		return "divide"
	}
}

// Symbol returns the operator glyph.
func (o ArithOp) Symbol() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "×"
	default:
		return "÷"
	}
}

func (o ArithOp) verb() string {
	switch o {
	case OpAdd:
		return "Add"
	case OpSubtract:
		return "Subtract"
	case OpMultiply:
		return "Multiply"
	default:
		return "Divide"
	}
}

// arith computes a non-dividing operation in the operand type.
func arith[T Number](o ArithOp, a, b T) T {
	switch o {
	case OpAdd:
		return a + b
	case OpSubtract:
		return a - b
	default:
		return a * b
	}
}

// CompareOp is an element-wise comparison operator.
type CompareOp int

// Comparison operators.
const (
	OpEqual CompareOp = iota
	OpGreater
	OpLess
	OpGreaterOrEqual
	OpLessOrEqual
)

var compareOps = []CompareOp{OpEqual, OpGreater, OpLess, OpGreaterOrEqual, OpLessOrEqual}

func (o CompareOp) String() string {
	switch o {
	case OpEqual:
		return "equal"
	case OpGreater:
		return "greater"
	case OpLess:
		return "less"
	case OpGreaterOrEqual:
		return "greaterOrEqual"
	default:
		return "lessOrEqual"
	}
}

// Symbol returns the operator glyph.
func (o CompareOp) Symbol() string {
	switch o {
	case OpEqual:
		return "="
	case OpGreater:
		return ">"
	case OpLess:
		return "<"
	case OpGreaterOrEqual:
		return "≥"
	default:
		return "≤"
	}
}

func (o CompareOp) phrase() string {
	switch o {
	case OpEqual:
		return "equals"
	case OpGreater:
		return "is greater than"
	case OpLess:
		return "is less than"
	case OpGreaterOrEqual:
		return "is at least"
	default:
		return "is at most"
	}
}

func (o CompareOp) holds(c int) bool {
	switch o {
	case OpEqual:
		return c == 0
	case OpGreater:
		return c > 0
	case OpLess:
		return c < 0
	case OpGreaterOrEqual:
		return c >= 0
	default:
		return c <= 0
	}
}

// compareValues orders two cells of the same domain.
func compareValues[T table.Value](a, b T) int {
	switch x := any(a).(type) {
	case int64:
		return cmp.Compare(x, any(b).(int64))
	case float64:
		return cmp.Compare(x, any(b).(float64))
	case string:
		return cmp.Compare(x, any(b).(string))
	case time.Time:
		return x.Compare(any(b).(time.Time))
	case bool:
		y := any(b).(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	}
	return 0
}

// LogicOp is a binary boolean operator.
type LogicOp int

// Boolean operators.
const (
	OpAnd LogicOp = iota
	OpOr
)

func (o LogicOp) String() string {
	if o == OpAnd {
		return "and"
	}
	return "or"
}

// Symbol returns the operator glyph.
func (o LogicOp) Symbol() string {
	if o == OpAnd {
		return "∧"
	}
	return "∨"
}

func (o LogicOp) eval(a, b bool) bool {
	if o == OpAnd {
		return a && b
	}
	return a || b
}
