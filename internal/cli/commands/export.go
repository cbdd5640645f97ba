package commands

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	intconfig "github.com/leapstack-labs/leaproute/internal/config"
	"github.com/leapstack-labs/leaproute/internal/engine"
	"github.com/leapstack-labs/leaproute/internal/export"
)

// ExportOptions holds options for the export command.
type ExportOptions struct {
	Table string
	Type  string
	Path  string
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export <route|node|plotter>",
		Short: "Write an element's table to a database",
		Long: `Evaluate the saved routes and write the table produced by a route, node
or plotter to the database configured under export.target in
leaproute.yaml. The destination table is dropped and recreated.

Supported targets: ` + strings.Join(export.List(), ", ") + `.`,
		Example: `  # Export a node's output to the configured target
  leaproute export 1f2e3d4c --table city_totals

  # Export to a local SQLite file, ignoring the configured target
  leaproute export sales --type sqlite --path out/sales.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Table, "table", "", "Destination table (default: the element's name)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "Target type, overriding export.target.type")
	cmd.Flags().StringVar(&opts.Path, "path", "", "Database file for sqlite or duckdb targets")
	return cmd
}

func runExport(cmd *cobra.Command, ref string, opts *ExportOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	target := exportTarget(cmdCtx, opts)
	if target.Type == "sqlite" || target.Type == "duckdb" {
		if target.Path == "" {
			return fmt.Errorf("%s export needs a database file: set export.target.path or pass --path", target.Type)
		}
	}

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
	if !status.Succeeded() {
		if status.Failed() {
			return fmt.Errorf("cannot export %s: %w", name, status.Err)
		}
		return fmt.Errorf("cannot export %s: it is %s", name, status.Label())
	}

	tbl := status.Value
	if cmdCtx.Engine.Kind(id) == engine.KindPlotter {
		p, err := cmdCtx.Engine.Plotter(id)
		if err != nil {
			return err
		}
		tbl = tbl.Select(p.Columns)
	}

	tableName := opts.Table
	if tableName == "" {
		tableName = tableNameFor(name)
	}

	exp, err := export.Open(cmd.Context(), target, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = exp.Close() }()

	n, err := exp.Export(cmd.Context(), tableName, tbl)
	if err != nil {
		return err
	}
	cmdCtx.Renderer.Success(fmt.Sprintf("exported %s rows to %s table %s", cmdCtx.Renderer.Number(int(n)), target.Type, tableName))
	return nil
}

// exportTarget is the configured target with command-line overrides.
func exportTarget(c *CommandContext, opts *ExportOptions) export.Target {
	var target export.Target
	if t := c.Cfg.ExportTarget(); t != nil {
		target = *t
	}
	if opts.Type != "" && !strings.EqualFold(opts.Type, target.Type) {
		target = export.Target{Type: opts.Type}
	}
	if opts.Path != "" {
		target.Path = absPath(opts.Path)
	}
	target.Type = strings.ToLower(target.Type)
	intconfig.ApplyTargetDefaults(&target)
	return target
}

var nonIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// tableNameFor turns a display name into a plain SQL identifier.
func tableNameFor(name string) string {
	s := strings.Trim(nonIdent.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if s == "" {
		return "export"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "t_" + s
	}
	return s
}
