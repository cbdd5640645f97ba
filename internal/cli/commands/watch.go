package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leaproute/internal/engine"
	"github.com/leapstack-labs/leaproute/internal/watch"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-evaluate routes when their sources change",
		Long: `Evaluate the saved routes, then watch their source files. Whenever a
source is written, every route reading it is reloaded and its new status is
printed once evaluation settles.

Press Ctrl+C to stop.`,
		Example: `  leaproute watch
  leaproute watch --debounce 500ms`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if cmd.Flags().Changed("debounce") {
				cmdCtx.Cfg.Watch.Debounce = debounce
			}
			w, err := newSourceWatcher(cmdCtx)
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cmdCtx.Renderer.Muted(fmt.Sprintf("Watching %d source(s). Press Ctrl+C to stop.", len(w.Sources())))
			return watchRoutes(ctx, cmdCtx, w)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Quiet period before a changed source is reloaded (default: watch.debounce from config)")
	return cmd
}

// newSourceWatcher watches the source of every route.
func newSourceWatcher(c *CommandContext) (*watch.Watcher, error) {
	w, err := watch.New(watch.Config{Debounce: c.Cfg.Watch.Debounce, Logger: c.Logger}, c.Engine)
	if err != nil {
		return nil, err
	}
	for _, r := range c.Engine.Routes() {
		if r.SourcePath == "" {
			continue
		}
		if err := w.Add(r.SourcePath); err != nil {
			_ = w.Close()
			return nil, err
		}
	}
	return w, nil
}

// watchRoutes runs the watcher and prints each route's status whenever it
// settles on a new one.
func watchRoutes(ctx context.Context, c *CommandContext, w *watch.Watcher) error {
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return w.Run(egctx)
	})

	var printMu sync.Mutex
	for _, r := range c.Engine.Routes() {
		changes, unsubscribe, err := c.Engine.Subscribe(r.ID)
		if err != nil {
			return err
		}
		eg.Go(func() error {
			defer unsubscribe()
			last := ""
			for {
				if err := c.Engine.WaitIdle(egctx, r.ID); err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, engine.ErrClosed) {
						return nil
					}
					return err
				}
				printMu.Lock()
				last = printRouteChange(c, r.ID, last)
				printMu.Unlock()

				select {
				case <-egctx.Done():
					return nil
				case _, ok := <-changes:
					if !ok {
						return nil
					}
				}
			}
		})
	}
	return eg.Wait()
}

// printRouteChange prints the route and its failing elements unless they
// read the same as last. Returns what was printed.
func printRouteChange(c *CommandContext, id uuid.UUID, last string) string {
	results, err := routeResults(c, id)
	if err != nil || len(results) == 0 {
		return last
	}
	key := fmt.Sprint(results)
	if key == last {
		return last
	}

	route := results[0]
	detail := route.Error
	if route.Status == "success" {
		if rv, err := c.Engine.Route(id); err == nil {
			detail = statusDetail(c, rv.Status)
		}
	}
	c.Renderer.StatusLine(time.Now().Format("15:04:05")+" "+route.Name, route.Status, detail)
	for _, res := range results[1:] {
		if res.Status == "failure" {
			c.Renderer.StatusLine("  "+res.Kind+" "+res.Name, res.Status, res.Error)
		}
	}
	return key
}
