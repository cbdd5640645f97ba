package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaproute/internal/cli/output"
	"github.com/leapstack-labs/leaproute/internal/engine"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Routes      []string
	FailOnError bool
}

// RunResult is one evaluated element in the run command's JSON output.
type RunResult struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Route  string `json:"route"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RunOutput is the JSON form of the run command.
type RunOutput struct {
	Results    []RunResult `json:"results"`
	Succeeded  int         `json:"succeeded"`
	Failed     int         `json:"failed"`
	Pending    int         `json:"pending"`
	DurationMS int64       `json:"duration_ms"`
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate saved routes",
		Long: `Load every saved route (or the selected ones), evaluate its tree, and
report the status of each route, node and plotter.

A failing reducer is a normal state of a tree: its subtree is reported as
failed and the command still succeeds unless --fail-on-error is given.`,
		Example: `  # Evaluate everything
  leaproute run

  # Evaluate two routes and fail on any error (for CI)
  leaproute run --route sales --route stock --fail-on-error

  # JSON output
  leaproute run --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Routes, "route", "r", nil, "Route to evaluate (repeatable, default: all)")
	cmd.Flags().BoolVar(&opts.FailOnError, "fail-on-error", false, "Exit non-zero when any element fails")
	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	start := time.Now()
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	var routeIDs []uuid.UUID
	for _, ref := range opts.Routes {
		id, err := cmdCtx.ResolveKind(ref, engine.KindRoute)
		if err != nil {
			return err
		}
		routeIDs = append(routeIDs, id)
	}
	if len(routeIDs) == 0 {
		for _, r := range eng.Routes() {
			routeIDs = append(routeIDs, r.ID)
		}
	}

	for _, id := range routeIDs {
		if err := eng.WaitIdle(cmd.Context(), id); err != nil {
			return fmt.Errorf("route %s did not settle: %w", shortID(id), err)
		}
	}

	out := RunOutput{}
	for _, id := range routeIDs {
		results, err := routeResults(cmdCtx, id)
		if err != nil {
			return err
		}
		out.Results = append(out.Results, results...)
	}
	for _, res := range out.Results {
		switch res.Status {
		case "success":
			out.Succeeded++
		case "failure":
			out.Failed++
		default:
			out.Pending++
		}
	}
	out.DurationMS = time.Since(start).Milliseconds()

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(out); err != nil {
			return err
		}
	} else {
		printRunResults(r, out)
	}

	if opts.FailOnError && out.Failed > 0 {
		return fmt.Errorf("%d element(s) failed", out.Failed)
	}
	return nil
}

func routeResults(c *CommandContext, id uuid.UUID) ([]RunResult, error) {
	route, err := c.Engine.Route(id)
	if err != nil {
		return nil, err
	}
	results := []RunResult{{
		ID: id.String(), Kind: "route", Route: route.Name, Name: route.Name,
		Status: route.Status.Label(), Error: errText(route.Status.Err),
	}}

	nodes, err := c.Engine.Nodes(id)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		results = append(results, RunResult{
			ID: n.ID.String(), Kind: "node", Route: route.Name, Name: n.Title,
			Status: n.Status.Label(), Error: errText(n.Status.Err),
		})
	}

	plotters, err := c.Engine.Plotters(id)
	if err != nil {
		return nil, err
	}
	for _, p := range plotters {
		results = append(results, RunResult{
			ID: p.ID.String(), Kind: "plotter", Route: route.Name, Name: p.Title,
			Status: p.Status.Label(), Error: errText(p.Status.Err),
		})
	}
	return results, nil
}

func printRunResults(r *output.Renderer, out RunOutput) {
	if len(out.Results) == 0 {
		r.Muted("No routes to evaluate.")
		return
	}

	r.Header(1, "Evaluation")
	for _, res := range out.Results {
		name := res.Name
		if res.Kind != "route" {
			name = "  " + res.Kind + " " + name
		}
		r.StatusLine(name, res.Status, res.Error)
	}
	r.Println()

	summary := fmt.Sprintf("%d succeeded, %d failed, %d pending in %dms", out.Succeeded, out.Failed, out.Pending, out.DurationMS)
	if out.Failed > 0 {
		r.Warning(summary)
		return
	}
	r.Success(summary)
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
