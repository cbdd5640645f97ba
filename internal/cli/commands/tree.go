package commands

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaproute/internal/cli/output"
	"github.com/leapstack-labs/leaproute/internal/dag"
	"github.com/leapstack-labs/leaproute/internal/engine"
	"github.com/leapstack-labs/leaproute/internal/reducer"
	"github.com/leapstack-labs/leaproute/internal/table"
	"github.com/leapstack-labs/leaproute/pkg/core"
)

// TreeElement is one vertex of a rendered route tree.
type TreeElement struct {
	ID       string               `json:"id"`
	Kind     string               `json:"kind"`
	Name     string               `json:"name"`
	Starred  bool                 `json:"starred,omitempty"`
	Status   string               `json:"status"`
	Error    string               `json:"error,omitempty"`
	Rows     *int                 `json:"rows,omitempty"`
	Reducer  *reducer.Description `json:"reducer,omitempty"`
	Columns  []string             `json:"columns,omitempty"`
	Children []*TreeElement       `json:"children,omitempty"`
}

// TreeOutput is the JSON form of the tree command.
type TreeOutput struct {
	Routes []*TreeElement `json:"routes"`
	Depth  int            `json:"depth"`
}

// NewTreeCommand creates the tree command.
func NewTreeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [route]",
		Short: "Show route trees with their status",
		Long: `Display every route (or one) as a tree of nodes and plotters.

Each element shows its evaluation status: pending, running, success or
failure. Failures show the error that caused them.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show all routes
  leaproute tree

  # Show one route as JSON
  leaproute tree sales --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(cmd, args)
		},
	}
	return cmd
}

func runTree(cmd *cobra.Command, args []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cmdCtx.Wait(cmd.Context()); err != nil {
		return err
	}

	var routeIDs []uuid.UUID
	if len(args) == 1 {
		id, err := cmdCtx.ResolveKind(args[0], engine.KindRoute)
		if err != nil {
			return err
		}
		routeIDs = []uuid.UUID{id}
	} else {
		for _, r := range cmdCtx.Engine.Routes() {
			routeIDs = append(routeIDs, r.ID)
		}
	}

	out := TreeOutput{Routes: make([]*TreeElement, 0, len(routeIDs))}
	for _, id := range routeIDs {
		g, err := cmdCtx.Engine.Graph(id)
		if err != nil {
			return err
		}
		levels, err := g.Levels()
		if err != nil {
			return fmt.Errorf("failed to order route %s: %w", shortID(id), err)
		}
		out.Depth = max(out.Depth, len(levels))
		out.Routes = append(out.Routes, treeElement(g, id.String()))
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		treeMarkdown(r, out)
	default:
		treeText(r, out)
	}
	return nil
}

// treeElement converts the graph below id.
func treeElement(g *dag.Graph, id string) *TreeElement {
	el := &TreeElement{ID: id}
	if n, ok := g.Node(id); ok {
		switch v := n.Data.(type) {
		case engine.RouteView:
			el.Kind, el.Name, el.Starred = "route", v.Name, v.Starred
			setStatus(el, v.Status)
		case engine.NodeView:
			el.Kind, el.Name, el.Starred = "node", v.Title, v.Starred
			desc := v.Reducer.Describe()
			el.Reducer = &desc
			setStatus(el, v.Status)
		case engine.PlotterView:
			el.Kind, el.Name, el.Columns = "plotter", v.Title, v.Columns
			setStatus(el, v.Status)
		}
	}
	for _, child := range g.Children(id) {
		el.Children = append(el.Children, treeElement(g, child))
	}
	return el
}

func setStatus(el *TreeElement, s core.Status[*table.Table]) {
	el.Status = s.Label()
	if s.Failed() {
		el.Error = s.Err.Error()
	}
	if s.Succeeded() && s.Value != nil {
		rows := s.Value.NumRows()
		el.Rows = &rows
	}
}

func (el *TreeElement) label() string {
	name := el.Name
	switch el.Kind {
	case "node":
		if el.Reducer != nil && el.Reducer.Short != "" {
			name = fmt.Sprintf("%s (%s)", name, el.Reducer.Short)
		}
	case "plotter":
		name = fmt.Sprintf("%s [%s]", name, strings.Join(el.Columns, ", "))
	}
	if el.Starred {
		name += " ★"
	}
	return name
}

func (el *TreeElement) detail() string {
	switch {
	case el.Error != "":
		return el.Error
	case el.Rows != nil && el.Kind != "plotter":
		return fmt.Sprintf("%d rows", *el.Rows)
	default:
		return ""
	}
}

// treeText outputs the trees with box-drawing branches.
func treeText(r *output.Renderer, out TreeOutput) {
	if len(out.Routes) == 0 {
		r.Muted("No routes.")
		return
	}
	styles := r.Styles()
	for i, route := range out.Routes {
		if i > 0 {
			r.Println()
		}
		r.StatusLine(styles.Bold.Render(route.label()), route.Status, route.detail())
		treeTextChildren(r, route.Children, "")
	}
}

func treeTextChildren(r *output.Renderer, children []*TreeElement, prefix string) {
	styles := r.Styles()
	for i, el := range children {
		branch, next := "├── ", "│   "
		if i == len(children)-1 {
			branch, next = "└── ", "    "
		}
		line := styles.Muted.Render(prefix+branch) + r.Badge(el.Status) + " " + el.label()
		if d := el.detail(); d != "" {
			line += " " + styles.Muted.Render(d)
		}
		r.Println(line + " " + styles.Muted.Render(el.ID[:8]))
		treeTextChildren(r, el.Children, prefix+next)
	}
}

// treeMarkdown outputs the trees as nested lists.
func treeMarkdown(r *output.Renderer, out TreeOutput) {
	r.Println(output.FormatHeader(1, "Routes"))
	r.Println()
	for _, route := range out.Routes {
		r.Println(output.FormatHeader(2, route.label()))
		r.Println()
		r.Println(output.FormatKeyValue("ID", route.ID))
		r.Println(output.FormatKeyValue("Status", route.Status))
		if d := route.detail(); d != "" {
			r.Println(output.FormatKeyValue("Detail", d))
		}
		r.Println()
		treeMarkdownChildren(r, route.Children, "")
		r.Println()
	}
}

func treeMarkdownChildren(r *output.Renderer, children []*TreeElement, indent string) {
	for _, el := range children {
		line := fmt.Sprintf("%s- **%s** `%s` %s", indent, el.Status, el.ID[:8], el.label())
		if d := el.detail(); d != "" {
			line += ": " + d
		}
		r.Println(line)
		treeMarkdownChildren(r, el.Children, indent+"  ")
	}
}
