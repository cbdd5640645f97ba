package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaproute/internal/cli/config"
	"github.com/leapstack-labs/leaproute/internal/cli/output"
	intconfig "github.com/leapstack-labs/leaproute/internal/config"
	"github.com/leapstack-labs/leaproute/internal/engine"
	"github.com/leapstack-labs/leaproute/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    *state.SQLiteStore
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext opens the state store and restores every saved route
// into a fresh engine. Returns the context and a cleanup function that must
// be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	return newCommandContext(cmd, true)
}

// NewEmptyCommandContext is NewCommandContext without restoring saved routes.
func NewEmptyCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	return newCommandContext(cmd, false)
}

func newCommandContext(cmd *cobra.Command, restore bool) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutEngine(cmd)

	store, err := openStore(cmdCtx.Cfg.StatePath, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}

	eng := engine.New(engine.Config{
		Recorder: store,
		Logger:   cmdCtx.Logger,
	})
	cleanup := func() {
		eng.Close()
		_ = store.Close()
	}

	if restore {
		snap, err := store.LoadSnapshot()
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to load saved routes: %w", err)
		}
		if err := eng.Restore(snap); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to restore saved routes: %w", err)
		}
	}

	cmdCtx.Store = store
	cmdCtx.Engine = eng
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without a store or
// engine. Useful for commands that don't need saved routes.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		mode = output.ModeAuto
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}
}

// Save writes the engine's routes back to the state store.
func (c *CommandContext) Save() error {
	snap, err := c.Engine.Snapshot()
	if err != nil {
		return err
	}
	if err := c.Store.SaveSnapshot(snap); err != nil {
		return fmt.Errorf("failed to save routes: %w", err)
	}
	return nil
}

// Wait blocks until every route has finished evaluating.
func (c *CommandContext) Wait(ctx context.Context) error {
	if err := c.Engine.WaitAll(ctx); err != nil {
		return fmt.Errorf("evaluation did not settle: %w", err)
	}
	return nil
}

// Resolve maps a command-line reference to an element id. A reference is a
// full id, a unique id prefix, or the exact name of a route.
func (c *CommandContext) Resolve(ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		if c.Engine.Kind(id) == engine.KindUnknown {
			return uuid.Nil, fmt.Errorf("no route, node or plotter with id %s", id)
		}
		return id, nil
	}

	var byName, byPrefix []uuid.UUID
	prefix := strings.ToLower(ref)
	match := func(id uuid.UUID) {
		if prefix != "" && strings.HasPrefix(id.String(), prefix) {
			byPrefix = append(byPrefix, id)
		}
	}
	for _, r := range c.Engine.Routes() {
		if r.Name == ref {
			byName = append(byName, r.ID)
		}
		match(r.ID)
		nodes, err := c.Engine.Nodes(r.ID)
		if err != nil {
			return uuid.Nil, err
		}
		for _, n := range nodes {
			match(n.ID)
		}
		plotters, err := c.Engine.Plotters(r.ID)
		if err != nil {
			return uuid.Nil, err
		}
		for _, p := range plotters {
			match(p.ID)
		}
	}

	switch {
	case len(byName) == 1:
		return byName[0], nil
	case len(byName) > 1:
		return uuid.Nil, fmt.Errorf("route name %q is ambiguous, use an id", ref)
	case len(byPrefix) == 1:
		return byPrefix[0], nil
	case len(byPrefix) > 1:
		return uuid.Nil, fmt.Errorf("id prefix %q is ambiguous (%d matches)", ref, len(byPrefix))
	default:
		return uuid.Nil, fmt.Errorf("no route, node or plotter matches %q", ref)
	}
}

// ResolveKind is Resolve restricted to one kind of element.
func (c *CommandContext) ResolveKind(ref string, kinds ...engine.Kind) (uuid.UUID, error) {
	id, err := c.Resolve(ref)
	if err != nil {
		return uuid.Nil, err
	}
	kind := c.Engine.Kind(id)
	for _, k := range kinds {
		if k == kind {
			return id, nil
		}
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return uuid.Nil, fmt.Errorf("%s is a %s, expected %s", shortID(id), kind, strings.Join(names, " or "))
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to defaults.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		StatePath:    intconfig.DefaultStateFile,
		RoutesFile:   intconfig.DefaultRoutesFile,
		OutputFormat: config.DefaultOutput,
		LogLevel:     config.DefaultLogLevel,
		PreviewRows:  intconfig.DefaultPreviewRows,
		Server:       config.ServerConfig{Port: intconfig.DefaultServerPort, Watch: true},
		Watch:        config.WatchConfig{Debounce: intconfig.DefaultDebounce},
	}
}

func openStore(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	// Ensure state directory exists
	if dir := filepath.Dir(path); path != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}
	return store, nil
}

// shortID is the first block of an id, enough to resolve it in practice.
func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
