package reducer

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaproute/internal/table"
	"github.com/leapstack-labs/leaproute/pkg/core"
)

func init() {
	register("select.include", func() Reducer { return &Select{Mode: SelectInclude} })
	register("select.exclude", func() Reducer { return &Select{Mode: SelectExclude} })
}

// SelectMode chooses between keeping and dropping the named columns.
type SelectMode int

// Select modes.
const (
	SelectInclude SelectMode = iota
	SelectExclude
)

// Select keeps or drops named columns. Output order always follows the table.
type Select struct {
	Mode    SelectMode `json:"-"`
	Columns []string   `json:"columns"`
}

// Op returns the serialization tag.
func (r *Select) Op() string {
	if r.Mode == SelectExclude {
		return "select.exclude"
	}
	return "select.include"
}

// Apply reports every missing column at once, then projects.
func (r *Select) Apply(t *table.Table) (*table.Table, error) {
	var missing []string
	for _, c := range r.Columns {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &core.ColumnsNotFoundError{Columns: missing}
	}
	if r.Mode == SelectExclude {
		return t.Drop(r.Columns), nil
	}
	return t.Select(r.Columns), nil
}

// Describe returns the display triple.
func (r *Select) Describe() Description {
	cols := strings.Join(r.Columns, ", ")
	if r.Mode == SelectExclude {
		return Description{
			Full:         fmt.Sprintf("Remove columns %s", cols),
			Abbreviation: fmt.Sprintf("drop [%s]", cols),
			Short:        fmt.Sprintf("-%d", len(r.Columns)),
		}
	}
	return Description{
		Full:         fmt.Sprintf("Keep only columns %s", cols),
		Abbreviation: fmt.Sprintf("keep [%s]", cols),
		Short:        fmt.Sprintf("%d cols", len(r.Columns)),
	}
}
