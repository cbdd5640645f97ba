package reducer

import (
	"fmt"

	"github.com/leapstack-labs/leaproute/internal/table"
)

func init() {
	for _, op := range []LogicOp{OpAnd, OpOr} {
		register("boolean."+op.String(), func() Reducer { return &Logic{Operator: op} })
		register("boolean."+op.String()+"Columns", func() Reducer { return &LogicColumns{Operator: op} })
	}
	register("boolean.not", func() Reducer { return &Not{} })
	register("boolean.filter", func() Reducer { return &Filter{} })
}

// Logic combines a Bool column with a scalar. Null cells stay null.
type Logic struct {
	Operator   LogicOp `json:"-"`
	Column     string  `json:"column"`
	RHS        bool    `json:"rhs"`
	IntoColumn string  `json:"intoColumn"`
}

// Op returns the serialization tag.
func (r *Logic) Op() string { return "boolean." + r.Operator.String() }

// Apply evaluates the operator for every non-null cell.
func (r *Logic) Apply(t *table.Table) (*table.Table, error) {
	col, err := table.Get[bool](t, r.Column)
	if err != nil {
		return nil, err
	}
	if err := requireInto(r.IntoColumn); err != nil {
		return nil, err
	}
	return t.With(table.Map(col, r.IntoColumn, func(v bool) bool { return r.Operator.eval(v, r.RHS) }))
}

// Describe returns the display triple.
func (r *Logic) Describe() Description {
	return Description{
		Full:         fmt.Sprintf("%s %s %t into %s", r.Column, r.Operator, r.RHS, r.IntoColumn),
		Abbreviation: fmt.Sprintf("%s = %s %s %t", r.IntoColumn, r.Column, r.Operator.Symbol(), r.RHS),
		Short:        fmt.Sprintf("%s%t", r.Operator.Symbol(), r.RHS),
	}
}

// LogicColumns combines two Bool columns. Both cells must be non-null.
type LogicColumns struct {
	Operator   LogicOp `json:"-"`
	LHSColumn  string  `json:"lhsColumn"`
	RHSColumn  string  `json:"rhsColumn"`
	IntoColumn string  `json:"intoColumn"`
}

// Op returns the serialization tag.
func (r *LogicColumns) Op() string { return "boolean." + r.Operator.String() + "Columns" }

// Apply evaluates the operator for every row where both cells are non-null.
func (r *LogicColumns) Apply(t *table.Table) (*table.Table, error) {
	lhs, rhs, err := columnPair[bool](t, r.LHSColumn, r.RHSColumn)
	if err != nil {
		return nil, err
	}
	if err := requireInto(r.IntoColumn); err != nil {
		return nil, err
	}
	return t.With(table.Zip(lhs, rhs, r.IntoColumn, r.Operator.eval))
}

// Describe returns the display triple.
func (r *LogicColumns) Describe() Description {
	return Description{
		Full:         fmt.Sprintf("%s %s %s into %s", r.LHSColumn, r.Operator, r.RHSColumn, r.IntoColumn),
		Abbreviation: fmt.Sprintf("%s = %s %s %s", r.IntoColumn, r.LHSColumn, r.Operator.Symbol(), r.RHSColumn),
		Short:        r.Operator.Symbol(),
	}
}

// Not negates a Bool column. Null cells stay null.
type Not struct {
	Column     string `json:"column"`
	IntoColumn string `json:"intoColumn"`
}

// Op returns the serialization tag.
func (r *Not) Op() string { return "boolean.not" }

// Apply negates every non-null cell.
func (r *Not) Apply(t *table.Table) (*table.Table, error) {
	col, err := table.Get[bool](t, r.Column)
	if err != nil {
		return nil, err
	}
	if err := requireInto(r.IntoColumn); err != nil {
		return nil, err
	}
	return t.With(table.Map(col, r.IntoColumn, func(v bool) bool { return !v }))
}

// Describe returns the display triple.
func (r *Not) Describe() Description {
	return Description{
		Full:         fmt.Sprintf("Negate %s into %s", r.Column, r.IntoColumn),
		Abbreviation: fmt.Sprintf("%s = ¬%s", r.IntoColumn, r.Column),
		Short:        "¬",
	}
}

// Filter keeps the rows where a Bool column is true. Null counts as false.
type Filter struct {
	Column string `json:"column"`
}

// Op returns the serialization tag.
func (r *Filter) Op() string { return "boolean.filter" }

// Apply drops every row whose cell is false or null.
func (r *Filter) Apply(t *table.Table) (*table.Table, error) {
	col, err := table.Get[bool](t, r.Column)
	if err != nil {
		return nil, err
	}
	keep := make([]bool, col.Len())
	col.Valid(func(i int, v bool) { keep[i] = v })
	return t.Filter(keep), nil
}

// Describe returns the display triple.
func (r *Filter) Describe() Description {
	return Description{
		Full:         fmt.Sprintf("Keep rows where %s is true", r.Column),
		Abbreviation: fmt.Sprintf("where %s", r.Column),
		Short:        "filter",
	}
}
