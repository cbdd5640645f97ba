package reducer

import (
	"fmt"

	"github.com/leapstack-labs/leaproute/internal/table"
)

func init() {
	for _, op := range arithOps {
		register("integer."+op.String(), func() Reducer { return &Arithmetic[int64]{Operator: op} })
		register("double."+op.String(), func() Reducer { return &Arithmetic[float64]{Operator: op} })
		register("integer."+op.String()+"Columns", func() Reducer { return &ArithmeticColumns[int64]{Operator: op} })
		register("double."+op.String()+"Columns", func() Reducer { return &ArithmeticColumns[float64]{Operator: op} })
	}
	register("integer.percentage", func() Reducer { return &Percentage[int64]{} })
	register("double.percentage", func() Reducer { return &Percentage[float64]{} })
}

// Arithmetic combines a numeric column with a scalar. Division always
// produces a Double column; the other operators keep the operand type.
type Arithmetic[T Number] struct {
	Operator   ArithOp `json:"-"`
	Column     string  `json:"column"`
	RHS        T       `json:"rhs"`
	IntoColumn string  `json:"intoColumn"`
}

// Op returns the serialization tag.
func (r *Arithmetic[T]) Op() string { return family[T]() + "." + r.Operator.String() }

// Apply computes the operation for every non-null cell.
func (r *Arithmetic[T]) Apply(t *table.Table) (*table.Table, error) {
	col, err := table.Get[T](t, r.Column)
	if err != nil {
		return nil, err
	}
	if err := requireInto(r.IntoColumn); err != nil {
		return nil, err
	}
	if r.Operator == OpDivide {
		return t.With(table.Map(col, r.IntoColumn, func(v T) float64 { return float64(v) / float64(r.RHS) }))
	}
	return t.With(table.Map(col, r.IntoColumn, func(v T) T { return arith(r.Operator, v, r.RHS) }))
}

// Describe returns the display triple.
func (r *Arithmetic[T]) Describe() Description {
	rhs := table.FormatValue(r.RHS)
	var full string
	switch r.Operator {
	case OpAdd:
		full = fmt.Sprintf("Add %s to %s into %s", rhs, r.Column, r.IntoColumn)
	case OpSubtract:
		full = fmt.Sprintf("Subtract %s from %s into %s", rhs, r.Column, r.IntoColumn)
	default:
		full = fmt.Sprintf("%s %s by %s into %s", r.Operator.verb(), r.Column, rhs, r.IntoColumn)
	}
	return Description{
		Full:         full,
		Abbreviation: fmt.Sprintf("%s = %s %s %s", r.IntoColumn, r.Column, r.Operator.Symbol(), rhs),
		Short:        r.Operator.Symbol() + rhs,
	}
}

// ArithmeticColumns combines two numeric columns cell by cell.
type ArithmeticColumns[T Number] struct {
	Operator   ArithOp `json:"-"`
	LHSColumn  string  `json:"lhsColumn"`
	RHSColumn  string  `json:"rhsColumn"`
	IntoColumn string  `json:"intoColumn"`
}

// Op returns the serialization tag.
func (r *ArithmeticColumns[T]) Op() string {
	return family[T]() + "." + r.Operator.String() + "Columns"
}

// Apply computes the operation for every row where both cells are non-null.
func (r *ArithmeticColumns[T]) Apply(t *table.Table) (*table.Table, error) {
	lhs, rhs, err := columnPair[T](t, r.LHSColumn, r.RHSColumn)
	if err != nil {
		return nil, err
	}
	if err := requireInto(r.IntoColumn); err != nil {
		return nil, err
	}
	if r.Operator == OpDivide {
		return t.With(table.Zip(lhs, rhs, r.IntoColumn, func(a, b T) float64 { return float64(a) / float64(b) }))
	}
	return t.With(table.Zip(lhs, rhs, r.IntoColumn, func(a, b T) T { return arith(r.Operator, a, b) }))
}

// Describe returns the display triple.
func (r *ArithmeticColumns[T]) Describe() Description {
	return Description{
		Full:         fmt.Sprintf("%s %s and %s into %s", r.Operator.verb(), r.LHSColumn, r.RHSColumn, r.IntoColumn),
		Abbreviation: fmt.Sprintf("%s = %s %s %s", r.IntoColumn, r.LHSColumn, r.Operator.Symbol(), r.RHSColumn),
		Short:        r.Operator.Symbol(),
	}
}

// Percentage divides every cell by the column total into a Double column.
type Percentage[T Number] struct {
	Column     string `json:"column"`
	IntoColumn string `json:"intoColumn"`
}

// Op returns the serialization tag.
func (r *Percentage[T]) Op() string { return family[T]() + ".percentage" }

// Apply computes each non-null cell's share of the non-null total.
func (r *Percentage[T]) Apply(t *table.Table) (*table.Table, error) {
	col, err := table.Get[T](t, r.Column)
	if err != nil {
		return nil, err
	}
	if err := requireInto(r.IntoColumn); err != nil {
		return nil, err
	}
	var total float64
	col.Valid(func(_ int, v T) { total += float64(v) })
	return t.With(table.Map(col, r.IntoColumn, func(v T) float64 { return float64(v) / total }))
}

// Describe returns the display triple.
func (r *Percentage[T]) Describe() Description {
	return Description{
		Full:         fmt.Sprintf("Percentage of total of %s into %s", r.Column, r.IntoColumn),
		Abbreviation: fmt.Sprintf("%s = %s / Σ%s", r.IntoColumn, r.Column, r.Column),
		Short:        "%",
	}
}

// columnPair resolves two same-typed columns, reporting missing columns
// before type mismatches.
func columnPair[T table.Value](t *table.Table, lhsName, rhsName string) (*table.Column[T], *table.Column[T], error) {
	if err := requireColumns(t, lhsName, rhsName); err != nil {
		return nil, nil, err
	}
	lhs, err := table.Get[T](t, lhsName)
	if err != nil {
		return nil, nil, err
	}
	rhs, err := table.Get[T](t, rhsName)
	if err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}
