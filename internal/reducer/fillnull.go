package reducer

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leaproute/internal/table"
)

func init() {
	register("integer.fillNull", func() Reducer { return &FillNull[int64]{} })
	register("double.fillNull", func() Reducer { return &FillNull[float64]{} })
	register("date.fillNull", func() Reducer { return &FillNull[time.Time]{} })
	register("boolean.fillNull", func() Reducer { return &FillNull[bool]{} })
	register("string.fillNull", func() Reducer { return &FillNull[string]{} })
}

// FillNull replaces the null cells of a column, in place, with RHS.
type FillNull[T table.Value] struct {
	Column string `json:"column"`
	RHS    T      `json:"rhs"`
}

// Op returns the serialization tag.
func (r *FillNull[T]) Op() string { return family[T]() + ".fillNull" }

// Apply fills every null cell; non-null cells pass through.
func (r *FillNull[T]) Apply(t *table.Table) (*table.Table, error) {
	col, err := table.Get[T](t, r.Column)
	if err != nil {
		return nil, err
	}
	return t.With(table.FillNull(col, r.RHS))
}

// Describe returns the display triple.
func (r *FillNull[T]) Describe() Description {
	rhs := table.FormatValue(r.RHS)
	return Description{
		Full:         fmt.Sprintf("Fill empty cells of %s with %s", r.Column, rhs),
		Abbreviation: fmt.Sprintf("%s ?? %s", r.Column, rhs),
		Short:        "??" + rhs,
	}
}
