package config

import (
	"time"

	"github.com/leapstack-labs/leaproute/internal/export"
)

// Default configuration values.
const (
	DefaultStateFile   = ".leaproute/state.db"
	DefaultRoutesFile  = "routes.yaml"
	DefaultPreviewRows = 20
	DefaultServerPort  = 8766
	DefaultDebounce    = 100 * time.Millisecond
	DefaultExportType  = "sqlite"
)

// Defaults returns the default configuration as a flat koanf map.
func Defaults() map[string]any {
	return map[string]any{
		"state_path":     DefaultStateFile,
		"routes_file":    DefaultRoutesFile,
		"preview_rows":   DefaultPreviewRows,
		"server.port":    DefaultServerPort,
		"server.watch":   true,
		"watch.debounce": DefaultDebounce.String(),
	}
}

// ApplyDefaults fills unset values of a ProjectConfig.
func (c *ProjectConfig) ApplyDefaults() {
	if c == nil {
		return
	}
	if c.StatePath == "" {
		c.StatePath = DefaultStateFile
	}
	if c.RoutesFile == "" {
		c.RoutesFile = DefaultRoutesFile
	}
	if c.PreviewRows <= 0 {
		c.PreviewRows = DefaultPreviewRows
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = DefaultDebounce
	}
	if c.Export != nil {
		ApplyTargetDefaults(c.Export.Target)
	}
}

// ApplyTargetDefaults applies default values to an export target based on
// its type.
func ApplyTargetDefaults(t *export.Target) {
	if t == nil {
		return
	}
	if t.Type == "" {
		t.Type = DefaultExportType
	}
	switch t.Type {
	case "postgres":
		if t.Port == 0 {
			t.Port = 5432
		}
		if t.Schema == "" {
			t.Schema = "public"
		}
	case "duckdb":
		if t.Schema == "" {
			t.Schema = "main"
		}
	}
}
