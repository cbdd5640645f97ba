package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaproute/internal/cli/output"
	"github.com/leapstack-labs/leaproute/internal/engine"
	"github.com/leapstack-labs/leaproute/internal/table"
)

// ShowOptions holds options for the show command.
type ShowOptions struct {
	Limit   int
	Summary bool
}

// NewShowCommand creates the show command.
func NewShowCommand() *cobra.Command {
	opts := &ShowOptions{}

	cmd := &cobra.Command{
		Use:   "show <route|node|plotter>",
		Short: "Preview the table an element produces",
		Long: `Evaluate the saved routes and print the table produced by a route, node
or plotter. A plotter shows only its columns.

A failed element prints its error instead and exits with a non-zero status.`,
		Example: `  # First rows of a route's source
  leaproute show sales

  # Fifty rows of a node's output
  leaproute show 1f2e3d4c --limit 50

  # Per-column statistics
  leaproute show 1f2e3d4c --summary`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", -1, "Rows to print (default: preview_rows from config, 0 for all)")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "Print per-column statistics instead of rows")
	return cmd
}

func runShow(cmd *cobra.Command, ref string, opts *ShowOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cmdCtx.Wait(cmd.Context()); err != nil {
		return err
	}
	id, err := cmdCtx.Resolve(ref)
	if err != nil {
		return err
	}
	name, status, err := elementStatus(cmdCtx, id)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if !status.Succeeded() {
		r.StatusLine(name, status.Label(), statusDetail(cmdCtx, status))
		if status.Failed() {
			return fmt.Errorf("%s failed: %w", name, status.Err)
		}
		return fmt.Errorf("%s is %s", name, status.Label())
	}

	tbl := status.Value
	if cmdCtx.Engine.Kind(id) == engine.KindPlotter {
		p, err := cmdCtx.Engine.Plotter(id)
		if err != nil {
			return err
		}
		tbl = tbl.Select(p.Columns)
	}
	if opts.Summary {
		tbl = tbl.Summary()
	}

	limit := opts.Limit
	if limit < 0 {
		limit = cmdCtx.Cfg.PreviewRows
	}
	if limit == 0 {
		limit = tbl.NumRows()
	}
	preview := tbl.Head(limit)

	if r.EffectiveMode() != output.ModeJSON {
		r.Header(2, name)
	}
	if err := r.Table(tableHeaders(tbl, r.EffectiveMode()), tableRows(preview)); err != nil {
		return err
	}
	if r.EffectiveMode() != output.ModeJSON && preview.NumRows() < tbl.NumRows() {
		r.Muted(fmt.Sprintf("%s of %s rows", r.Number(preview.NumRows()), r.Number(tbl.NumRows())))
	}
	return nil
}

// tableHeaders names columns with their type, except in JSON where the
// header becomes an object key.
func tableHeaders(t *table.Table, mode output.Mode) []string {
	schema := t.Schema()
	headers := make([]string, len(schema))
	for i, f := range schema {
		if mode == output.ModeJSON {
			headers[i] = f.Name
			continue
		}
		headers[i] = fmt.Sprintf("%s (%s)", f.Name, f.Type)
	}
	return headers
}

func tableRows(t *table.Table) [][]string {
	rows := make([][]string, t.NumRows())
	for i := range rows {
		rows[i] = t.FormattedRow(i)
	}
	return rows
}
