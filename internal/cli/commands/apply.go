package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	intconfig "github.com/leapstack-labs/leaproute/internal/config"
)

// NewApplyCommand creates the apply command.
func NewApplyCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply [file]",
		Short: "Replace saved routes with a routes file",
		Long: `Read a routes file (default: routes_file from config, routes.yaml) and
make the saved routes match it exactly. Routes, nodes and plotters that
carry an id keep it; the rest get a fresh one.

Relative source paths are resolved against the routes file's directory.`,
		Example: `  # Apply routes.yaml
  leaproute apply

  # Validate a file without saving it
  leaproute apply pipelines.yaml --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewEmptyCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			path := cmdCtx.Cfg.RoutesFile
			if len(args) == 1 {
				path = absPath(args[0])
			}
			rf, err := intconfig.LoadRoutes(path)
			if err != nil {
				return err
			}
			resolveSources(rf, filepath.Dir(path))

			snap, err := rf.Snapshot(time.Now())
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if err := cmdCtx.Engine.Restore(snap); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			r := cmdCtx.Renderer
			summary := fmt.Sprintf("%d routes, %d nodes, %d plotters from %s",
				len(snap.Routes), len(snap.Nodes), len(snap.Plotters), path)
			if dryRun {
				r.Success("valid: " + summary)
				return nil
			}
			if err := cmdCtx.Save(); err != nil {
				return err
			}
			r.Success("applied " + summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate without saving")
	return cmd
}

// NewDumpCommand creates the dump command.
func NewDumpCommand() *cobra.Command {
	var stdout bool

	cmd := &cobra.Command{
		Use:   "dump [file]",
		Short: "Write saved routes to a routes file",
		Long: `Write every saved route to a routes file (default: routes_file from
config) with ids, so that a later apply keeps them. Sources under the
file's directory are written as relative paths.`,
		Example: `  # Write routes.yaml
  leaproute dump

  # Print to stdout
  leaproute dump --stdout`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			path := cmdCtx.Cfg.RoutesFile
			if len(args) == 1 {
				path = absPath(args[0])
			}

			snap, err := cmdCtx.Engine.Snapshot()
			if err != nil {
				return err
			}
			rf, err := intconfig.FromSnapshot(snap)
			if err != nil {
				return err
			}
			relativizeSources(rf, filepath.Dir(path))
			data, err := rf.Marshal()
			if err != nil {
				return err
			}

			if stdout {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(path, data, 0600); err != nil {
				return fmt.Errorf("failed to write routes file: %w", err)
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("wrote %d routes to %s", len(rf.Routes), path))
			return nil
		},
	}

	cmd.Flags().BoolVar(&stdout, "stdout", false, "Print to stdout instead of writing a file")
	return cmd
}

func resolveSources(rf *intconfig.RoutesFile, dir string) {
	for i := range rf.Routes {
		src := rf.Routes[i].Source
		if src != "" && !filepath.IsAbs(src) {
			rf.Routes[i].Source = filepath.Join(dir, src)
		}
	}
}

func relativizeSources(rf *intconfig.RoutesFile, dir string) {
	for i := range rf.Routes {
		src := rf.Routes[i].Source
		if src == "" || !filepath.IsAbs(src) {
			continue
		}
		if rel, err := filepath.Rel(dir, src); err == nil && !strings.HasPrefix(rel, "..") {
			rf.Routes[i].Source = rel
		}
	}
}
