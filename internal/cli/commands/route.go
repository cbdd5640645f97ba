package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaproute/internal/cli/output"
	"github.com/leapstack-labs/leaproute/internal/engine"
)

// NewRouteCommand creates the route command and its subcommands.
func NewRouteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Manage routes",
		Long: `Create, list, and edit routes.

A route reads one CSV, TSV or XLSX source and feeds the resulting table to
its tree of nodes. Routes are saved in the state database.`,
		Example: `  # Create a route over a CSV file
  leaproute route add sales data/sales.csv

  # List routes with their status
  leaproute route list

  # Point a route at another file
  leaproute route source sales data/sales-2025.csv`,
	}

	cmd.AddCommand(newRouteAddCommand())
	cmd.AddCommand(newRouteListCommand())
	cmd.AddCommand(newRouteRenameCommand())
	cmd.AddCommand(newRouteSourceCommand())
	cmd.AddCommand(newRouteStarCommand())
	cmd.AddCommand(newRouteRefreshCommand())
	cmd.AddCommand(newRouteDeleteCommand())
	return cmd
}

func newRouteAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> [source]",
		Short: "Create a route",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := ""
			if len(args) == 2 {
				source = absPath(args[1])
			}
			return mutate(cmd, func(c *CommandContext) error {
				id, err := c.Engine.CreateRoute(args[0], source)
				if err != nil {
					return err
				}
				if err := c.Wait(cmd.Context()); err != nil {
					return err
				}
				return reportElement(c, id, "created route "+args[0])
			})
		},
	}
}

func newRouteListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List routes",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cmdCtx.Wait(cmd.Context()); err != nil {
				return err
			}
			return listRoutes(cmdCtx)
		},
	}
}

func listRoutes(c *CommandContext) error {
	routes := c.Engine.Routes()
	headers := []string{"ID", "NAME", "SOURCE", "STATUS", "ROWS", "NODES"}
	rows := make([][]string, 0, len(routes))
	for _, r := range routes {
		nodes, err := c.Engine.Nodes(r.ID)
		if err != nil {
			return err
		}
		name := r.Name
		if r.Starred {
			name += " ★"
		}
		rows = append(rows, []string{
			shortID(r.ID), name, r.SourcePath, r.Status.Label(), rowCount(c, r.Status), fmt.Sprint(len(nodes)),
		})
	}
	if len(rows) == 0 && c.Renderer.EffectiveMode() != output.ModeJSON {
		c.Renderer.Muted("No routes. Create one with: leaproute route add <name> <source>")
		return nil
	}
	return c.Renderer.Table(headers, rows)
}

func newRouteRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <route> <name>",
		Short: "Rename a route",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(c *CommandContext) error {
				id, err := c.ResolveKind(args[0], engine.KindRoute)
				if err != nil {
					return err
				}
				if err := c.Engine.RenameRoute(id, args[1]); err != nil {
					return err
				}
				c.Renderer.Success(fmt.Sprintf("renamed route %s to %s", shortID(id), args[1]))
				return nil
			})
		},
	}
}

func newRouteSourceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "source <route> <path>",
		Short: "Change the source file of a route",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(c *CommandContext) error {
				id, err := c.ResolveKind(args[0], engine.KindRoute)
				if err != nil {
					return err
				}
				if err := c.Engine.SetRouteSource(id, absPath(args[1])); err != nil {
					return err
				}
				if err := c.Wait(cmd.Context()); err != nil {
					return err
				}
				return reportElement(c, id, "updated source of route "+shortID(id))
			})
		},
	}
}

func newRouteStarCommand() *cobra.Command {
	var unset bool
	cmd := &cobra.Command{
		Use:   "star <route>",
		Short: "Star or unstar a route",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(c *CommandContext) error {
				id, err := c.ResolveKind(args[0], engine.KindRoute)
				if err != nil {
					return err
				}
				return c.Engine.SetRouteStarred(id, !unset)
			})
		},
	}
	cmd.Flags().BoolVar(&unset, "unset", false, "Remove the star")
	return cmd
}

func newRouteRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <route>",
		Short: "Reload a route's source and re-evaluate its tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := cmdCtx.ResolveKind(args[0], engine.KindRoute)
			if err != nil {
				return err
			}
			if err := cmdCtx.Engine.RefreshRoute(id); err != nil {
				return err
			}
			if err := cmdCtx.Wait(cmd.Context()); err != nil {
				return err
			}
			return reportElement(cmdCtx, id, "refreshed route "+shortID(id))
		},
	}
}

func newRouteDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <route>",
		Aliases: []string{"rm"},
		Short:   "Delete a route and its whole tree",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(c *CommandContext) error {
				id, err := c.ResolveKind(args[0], engine.KindRoute)
				if err != nil {
					return err
				}
				if err := c.Engine.DeleteRoute(id); err != nil {
					return err
				}
				c.Renderer.Success("deleted route " + shortID(id))
				return nil
			})
		},
	}
}
