package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaproute/internal/cli/output"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <route|node|plotter>",
		Short: "Show recent evaluations of an element",
		Long: `List the most recent finished evaluations recorded for a route, node or
plotter, newest first. Every command that evaluates routes records them.`,
		Example: `  leaproute history sales --limit 5`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			// Restoring re-evaluates; wait so this run's entries are listed too.
			if err := cmdCtx.Wait(cmd.Context()); err != nil {
				return err
			}
			id, err := cmdCtx.Resolve(args[0])
			if err != nil {
				return err
			}
			evals, err := cmdCtx.Store.ListEvaluations(id.String(), limit)
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(evals)
			}
			rows := make([][]string, 0, len(evals))
			for _, ev := range evals {
				shape := "-"
				if ev.Error == "" {
					shape = fmt.Sprintf("%d × %d", ev.Rows, ev.Columns)
				}
				rows = append(rows, []string{
					ev.FinishedAt.Local().Format("2006-01-02 15:04:05"), string(ev.Outcome), shape, ev.Error,
				})
			}
			return r.Table([]string{"FINISHED", "OUTCOME", "SHAPE", "ERROR"}, rows)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Evaluations to show")
	return cmd
}
