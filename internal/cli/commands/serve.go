package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaproute/internal/server"
	"github.com/leapstack-labs/leaproute/internal/watch"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port  int
	Watch bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve route trees over HTTP",
		Long: `Start a local HTTP server exposing the saved routes as JSON, table
previews, and a live event stream per route.

Endpoints:
  GET /api/routes                 list routes
  GET /api/routes/{id}            a route with its nodes and plotters
  GET /api/routes/{id}/table      the source table
  GET /api/routes/{id}/events     status changes (server-sent events)
  GET /api/nodes/{id}             a node with its reducer
  GET /api/nodes/{id}/table       the node's output table
  GET /api/plotters/{id}          a plotter`,
		Example: `  # Serve on the default port, reloading changed sources
  leaproute serve

  # Custom port, no file watching
  leaproute serve --port 3000 --watch=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			// CLI flags override config file
			port := cmdCtx.Cfg.Server.Port
			if opts.Port != 0 {
				port = opts.Port
			}
			watchSources := cmdCtx.Cfg.Server.Watch
			if cmd.Flags().Changed("watch") {
				watchSources = opts.Watch
			}

			var w *watch.Watcher
			if watchSources {
				if w, err = newSourceWatcher(cmdCtx); err != nil {
					return err
				}
				defer func() { _ = w.Close() }()
			}

			srv := server.New(server.Config{
				Engine:  cmdCtx.Engine,
				Port:    port,
				Watcher: w,
				Logger:  cmdCtx.Logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cmdCtx.Renderer.Println(fmt.Sprintf("Serving %d route(s) on http://localhost:%d", len(cmdCtx.Engine.Routes()), port))
			cmdCtx.Renderer.Muted("Press Ctrl+C to stop")
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: server.port from config, 8766)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Reload sources when they change")
	return cmd
}
