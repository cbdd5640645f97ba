package commands

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaproute/internal/engine"
	"github.com/leapstack-labs/leaproute/internal/table"
	"github.com/leapstack-labs/leaproute/pkg/core"
)

// mutate runs f against the saved routes and saves the result.
func mutate(cmd *cobra.Command, f func(c *CommandContext) error) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := f(cmdCtx); err != nil {
		return err
	}
	return cmdCtx.Save()
}

// absPath makes source paths independent of the directory a later command
// runs from.
func absPath(p string) string {
	if p == "" {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// elementStatus returns the display name and status of any element.
func elementStatus(c *CommandContext, id uuid.UUID) (string, core.Status[*table.Table], error) {
	switch c.Engine.Kind(id) {
	case engine.KindRoute:
		r, err := c.Engine.Route(id)
		return r.Name, r.Status, err
	case engine.KindNode:
		n, err := c.Engine.Node(id)
		return n.Title, n.Status, err
	case engine.KindPlotter:
		p, err := c.Engine.Plotter(id)
		return p.Title, p.Status, err
	default:
		return "", core.Status[*table.Table]{}, fmt.Errorf("%s: %w", id, core.ErrNotFound)
	}
}

// reportElement prints msg and the element's current status.
func reportElement(c *CommandContext, id uuid.UUID, msg string) error {
	name, status, err := elementStatus(c, id)
	if err != nil {
		return err
	}
	c.Renderer.Success(fmt.Sprintf("%s (%s)", msg, id))
	c.Renderer.StatusLine(name, status.Label(), statusDetail(c, status))
	return nil
}

// statusDetail is the muted text after a status badge: the table shape on
// success, the error on failure.
func statusDetail(c *CommandContext, s core.Status[*table.Table]) string {
	switch {
	case s.Succeeded() && s.Value != nil:
		return fmt.Sprintf("%s rows × %d columns", c.Renderer.Number(s.Value.NumRows()), s.Value.NumColumns())
	case s.Failed():
		return s.Err.Error()
	default:
		return ""
	}
}

func rowCount(c *CommandContext, s core.Status[*table.Table]) string {
	if s.Succeeded() && s.Value != nil {
		return c.Renderer.Number(s.Value.NumRows())
	}
	return "-"
}
