package reducer

import (
	"fmt"

	"github.com/leapstack-labs/leaproute/internal/table"
)

func init() {
	register("summary.table", func() Reducer { return &Summary{} })
	register("summary.column", func() Reducer { return &ColumnSummary{} })
}

// Summary replaces the table with descriptive statistics of every column.
type Summary struct{}

// Op returns the serialization tag.
func (r *Summary) Op() string { return "summary.table" }

// Apply delegates to the table summary.
func (r *Summary) Apply(t *table.Table) (*table.Table, error) {
	return t.Summary(), nil
}

// Describe returns the display triple.
func (r *Summary) Describe() Description {
	return Description{Full: "Summarize every column", Abbreviation: "summary", Short: "Σ"}
}

// ColumnSummary replaces the table with descriptive statistics of one column.
type ColumnSummary struct {
	Column string `json:"column"`
}

// Op returns the serialization tag.
func (r *ColumnSummary) Op() string { return "summary.column" }

// Apply delegates to the single-column table summary.
func (r *ColumnSummary) Apply(t *table.Table) (*table.Table, error) {
	return t.SummaryOf(r.Column)
}

// Describe returns the display triple.
func (r *ColumnSummary) Describe() Description {
	return Description{
		Full:         fmt.Sprintf("Summarize %s", r.Column),
		Abbreviation: fmt.Sprintf("summary(%s)", r.Column),
		Short:        "Σ" + r.Column,
	}
}
