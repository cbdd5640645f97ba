package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaproute/internal/engine"
)

// NewPlotterCommand creates the plotter command and its subcommands.
func NewPlotterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plotter",
		Short: "Manage plotters",
		Long: `Add and remove plotters.

A plotter is a terminal leaf that displays some columns of its parent's
table. It succeeds once every column it names exists.`,
		Example: `  # Plot two columns of a node's output
  leaproute plotter add 1f2e3d4c --title totals --columns city,value`,
	}

	cmd.AddCommand(newPlotterAddCommand())
	cmd.AddCommand(newPlotterColumnsCommand())
	cmd.AddCommand(newPlotterDeleteCommand())
	return cmd
}

func newPlotterAddCommand() *cobra.Command {
	var (
		title   string
		columns []string
	)
	cmd := &cobra.Command{
		Use:   "add <parent>",
		Short: "Add a plotter under a route or node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(c *CommandContext) error {
				parent, err := c.ResolveKind(args[0], engine.KindRoute, engine.KindNode)
				if err != nil {
					return err
				}
				if title == "" {
					title = strings.Join(columns, ", ")
				}
				id, err := c.Engine.AddPlotter(parent, title, columns)
				if err != nil {
					return err
				}
				if err := c.Wait(cmd.Context()); err != nil {
					return err
				}
				return reportElement(c, id, "added plotter "+title)
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Plotter title (default: the column list)")
	cmd.Flags().StringSliceVarP(&columns, "columns", "c", nil, "Columns to display")
	_ = cmd.MarkFlagRequired("columns")
	return cmd
}

func newPlotterColumnsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "columns <plotter> <column>...",
		Short: "Change the columns a plotter displays",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(c *CommandContext) error {
				id, err := c.ResolveKind(args[0], engine.KindPlotter)
				if err != nil {
					return err
				}
				if err := c.Engine.SetPlotterColumns(id, args[1:]); err != nil {
					return err
				}
				if err := c.Wait(cmd.Context()); err != nil {
					return err
				}
				return reportElement(c, id, fmt.Sprintf("plotter %s now shows %s", shortID(id), strings.Join(args[1:], ", ")))
			})
		},
	}
}

func newPlotterDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <plotter>",
		Aliases: []string{"rm"},
		Short:   "Delete a plotter",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(c *CommandContext) error {
				id, err := c.ResolveKind(args[0], engine.KindPlotter)
				if err != nil {
					return err
				}
				if err := c.Engine.DeletePlotter(id); err != nil {
					return err
				}
				c.Renderer.Success("deleted plotter " + shortID(id))
				return nil
			})
		},
	}
}
