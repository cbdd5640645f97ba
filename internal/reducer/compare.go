package reducer

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leaproute/internal/table"
)

func init() {
	for _, op := range compareOps {
		register("integer."+op.String(), func() Reducer { return &Compare[int64]{Operator: op} })
		register("double."+op.String(), func() Reducer { return &Compare[float64]{Operator: op} })
		register("date."+op.String(), func() Reducer { return &Compare[time.Time]{Operator: op} })
		register("integer."+op.String()+"Columns", func() Reducer { return &CompareColumns[int64]{Operator: op} })
		register("double."+op.String()+"Columns", func() Reducer { return &CompareColumns[float64]{Operator: op} })
		register("date."+op.String()+"Columns", func() Reducer { return &CompareColumns[time.Time]{Operator: op} })
	}
	register("string.equal", func() Reducer { return &Compare[string]{Operator: OpEqual} })
	register("string.equalColumns", func() Reducer { return &CompareColumns[string]{Operator: OpEqual} })
}

// Compare tests every cell of a column against a scalar into a Bool column.
// A null cell yields a null result.
type Compare[T table.Value] struct {
	Operator   CompareOp `json:"-"`
	Column     string    `json:"column"`
	RHS        T         `json:"rhs"`
	IntoColumn string    `json:"intoColumn"`
}

// Op returns the serialization tag.
func (r *Compare[T]) Op() string { return family[T]() + "." + r.Operator.String() }

// Apply evaluates the comparison for every non-null cell.
func (r *Compare[T]) Apply(t *table.Table) (*table.Table, error) {
	col, err := table.Get[T](t, r.Column)
	if err != nil {
		return nil, err
	}
	if err := requireInto(r.IntoColumn); err != nil {
		return nil, err
	}
	return t.With(table.Map(col, r.IntoColumn, func(v T) bool {
		return r.Operator.holds(compareValues(v, r.RHS))
	}))
}

// Describe returns the display triple.
func (r *Compare[T]) Describe() Description {
	rhs := table.FormatValue(r.RHS)
	return Description{
		Full:         fmt.Sprintf("Whether %s %s %s into %s", r.Column, r.Operator.phrase(), rhs, r.IntoColumn),
		Abbreviation: fmt.Sprintf("%s = %s %s %s", r.IntoColumn, r.Column, r.Operator.Symbol(), rhs),
		Short:        r.Operator.Symbol() + rhs,
	}
}

// CompareColumns compares two columns cell by cell into a Bool column.
type CompareColumns[T table.Value] struct {
	Operator   CompareOp `json:"-"`
	LHSColumn  string    `json:"lhsColumn"`
	RHSColumn  string    `json:"rhsColumn"`
	IntoColumn string    `json:"intoColumn"`
}

// Op returns the serialization tag.
func (r *CompareColumns[T]) Op() string {
	return family[T]() + "." + r.Operator.String() + "Columns"
}

// Apply evaluates the comparison for every row where both cells are non-null.
func (r *CompareColumns[T]) Apply(t *table.Table) (*table.Table, error) {
	lhs, rhs, err := columnPair[T](t, r.LHSColumn, r.RHSColumn)
	if err != nil {
		return nil, err
	}
	if err := requireInto(r.IntoColumn); err != nil {
		return nil, err
	}
	return t.With(table.Zip(lhs, rhs, r.IntoColumn, func(a, b T) bool {
		return r.Operator.holds(compareValues(a, b))
	}))
}

// Describe returns the display triple.
func (r *CompareColumns[T]) Describe() Description {
	return Description{
		Full:         fmt.Sprintf("Whether %s %s %s into %s", r.LHSColumn, r.Operator.phrase(), r.RHSColumn, r.IntoColumn),
		Abbreviation: fmt.Sprintf("%s = %s %s %s", r.IntoColumn, r.LHSColumn, r.Operator.Symbol(), r.RHSColumn),
		Short:        r.Operator.Symbol(),
	}
}
