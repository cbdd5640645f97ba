package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaproute/internal/cli/output"
	"github.com/leapstack-labs/leaproute/internal/reducer"
)

// NewReducersCommand creates the reducers command.
func NewReducersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reducers",
		Short: "List the available reducer ops",
		Long: `List every reducer op that node add --op and routes.yaml accept.

Ops are grouped by family: the part of the op before the dot.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := NewCommandContextWithoutEngine(cmd).Renderer
			ops := reducer.Ops()
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(ops)
			}

			rows := make([][]string, 0, len(ops))
			for _, op := range ops {
				family, name, ok := strings.Cut(op, ".")
				if !ok {
					family, name = "", op
				}
				rows = append(rows, []string{family, name, op})
			}
			return r.Table([]string{"FAMILY", "NAME", "OP"}, rows)
		},
	}
}
