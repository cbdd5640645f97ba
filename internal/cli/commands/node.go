package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	intconfig "github.com/leapstack-labs/leaproute/internal/config"
	"github.com/leapstack-labs/leaproute/internal/engine"
	"github.com/leapstack-labs/leaproute/internal/reducer"
)

// ReducerOptions selects a reducer on the command line, either as a JSON
// envelope or as an op with key=value params.
type ReducerOptions struct {
	Envelope string
	Op       string
	Params   []string
}

func (o *ReducerOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Envelope, "reducer", "", `Reducer envelope as JSON, e.g. '{"op":"integer.add","params":{...}}'`)
	cmd.Flags().StringVar(&o.Op, "op", "", "Reducer op (see: leaproute reducers)")
	cmd.Flags().StringArrayVarP(&o.Params, "param", "p", nil, "Reducer param as key=value; JSON values are decoded (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("reducer", "op")
	_ = cmd.RegisterFlagCompletionFunc("op", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return reducer.Ops(), cobra.ShellCompDirectiveNoFileComp
	})
}

// Reducer decodes the selected reducer.
func (o *ReducerOptions) Reducer() (reducer.Reducer, error) {
	if o.Envelope != "" {
		if len(o.Params) > 0 {
			return nil, fmt.Errorf("--param cannot be combined with --reducer")
		}
		return reducer.Unmarshal([]byte(o.Envelope))
	}
	if o.Op == "" {
		return nil, fmt.Errorf("a reducer is required: pass --op or --reducer")
	}

	params := make(map[string]any, len(o.Params))
	for _, p := range o.Params {
		key, raw, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q: want key=value", p)
		}
		params[key] = paramValue(raw)
	}
	return intconfig.ReducerDef{Op: o.Op, Params: params}.Decode()
}

// paramValue decodes raw as JSON when it is valid JSON and keeps it as a
// string otherwise, so both rhs=3 and column=value work.
func paramValue(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}

// NewNodeCommand creates the node command and its subcommands.
func NewNodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage nodes",
		Long: `Add, edit, and remove nodes.

A node applies one reducer to its parent's table. Its parent is a route
(the node becomes a head) or another node. Changing a node re-evaluates it
and everything below it.`,
		Example: `  # Add 3 to value, writing value2
  leaproute node add sales --title "plus three" --op integer.add \
    -p column=value -p rhs=3 -p intoColumn=value2

  # Same reducer as a JSON envelope
  leaproute node add sales --title "plus three" \
    --reducer '{"op":"integer.add","params":{"column":"value","rhs":3,"intoColumn":"value2"}}'

  # Replace a node's reducer
  leaproute node set-reducer 1f2e3d4c --op select.exclude -p 'columns=["value"]'`,
	}

	cmd.AddCommand(newNodeAddCommand())
	cmd.AddCommand(newNodeSetReducerCommand())
	cmd.AddCommand(newNodeRenameCommand())
	cmd.AddCommand(newNodeStarCommand())
	cmd.AddCommand(newNodeDeleteCommand())
	return cmd
}

func newNodeAddCommand() *cobra.Command {
	opts := &ReducerOptions{}
	var title string
	cmd := &cobra.Command{
		Use:   "add <parent>",
		Short: "Add a node under a route or node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.Reducer()
			if err != nil {
				return err
			}
			return mutate(cmd, func(c *CommandContext) error {
				parent, err := c.ResolveKind(args[0], engine.KindRoute, engine.KindNode)
				if err != nil {
					return err
				}
				if title == "" {
					title = r.Describe().Full
				}
				id, err := c.Engine.AddNode(parent, title, r)
				if err != nil {
					return err
				}
				if err := c.Wait(cmd.Context()); err != nil {
					return err
				}
				return reportElement(c, id, "added node "+title)
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Node title (default: the reducer's description)")
	opts.bind(cmd)
	return cmd
}

func newNodeSetReducerCommand() *cobra.Command {
	opts := &ReducerOptions{}
	cmd := &cobra.Command{
		Use:   "set-reducer <node>",
		Short: "Replace a node's reducer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.Reducer()
			if err != nil {
				return err
			}
			return mutate(cmd, func(c *CommandContext) error {
				id, err := c.ResolveKind(args[0], engine.KindNode)
				if err != nil {
					return err
				}
				if err := c.Engine.SetReducer(id, r); err != nil {
					return err
				}
				if err := c.Wait(cmd.Context()); err != nil {
					return err
				}
				return reportElement(c, id, "updated reducer of node "+shortID(id))
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

func newNodeRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <node> <title>",
		Short: "Change a node's title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(c *CommandContext) error {
				id, err := c.ResolveKind(args[0], engine.KindNode)
				if err != nil {
					return err
				}
				if err := c.Engine.SetNodeTitle(id, args[1]); err != nil {
					return err
				}
				c.Renderer.Success(fmt.Sprintf("renamed node %s to %s", shortID(id), args[1]))
				return nil
			})
		},
	}
}

func newNodeStarCommand() *cobra.Command {
	var unset bool
	cmd := &cobra.Command{
		Use:   "star <node>",
		Short: "Star or unstar a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(c *CommandContext) error {
				id, err := c.ResolveKind(args[0], engine.KindNode)
				if err != nil {
					return err
				}
				return c.Engine.SetNodeStarred(id, !unset)
			})
		},
	}
	cmd.Flags().BoolVar(&unset, "unset", false, "Remove the star")
	return cmd
}

func newNodeDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <node>",
		Aliases: []string{"rm"},
		Short:   "Delete a node and its subtree",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(c *CommandContext) error {
				id, err := c.ResolveKind(args[0], engine.KindNode)
				if err != nil {
					return err
				}
				if err := c.Engine.DeleteNode(id); err != nil {
					return err
				}
				c.Renderer.Success("deleted node " + shortID(id))
				return nil
			})
		},
	}
}
