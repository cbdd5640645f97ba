// Package config provides configuration management for the leaproute CLI.
//
// It layers environment variables and command-line flags on top of the
// project configuration types of internal/config.
package config

import (
	intconfig "github.com/leapstack-labs/leaproute/internal/config"
	"github.com/leapstack-labs/leaproute/internal/export"
)

// ServerConfig is an alias for the shared server configuration.
type ServerConfig = intconfig.ServerConfig

// WatchConfig is an alias for the shared watcher configuration.
type WatchConfig = intconfig.WatchConfig

// ExportConfig is an alias for the shared export configuration.
type ExportConfig = intconfig.ExportConfig

// Config holds all CLI configuration options.
type Config struct {
	ProjectRoot  string        `koanf:"-"`
	StatePath    string        `koanf:"state_path"`
	RoutesFile   string        `koanf:"routes_file"`
	OutputFormat string        `koanf:"output"`
	Verbose      bool          `koanf:"verbose"`
	LogLevel     string        `koanf:"log_level"`
	PreviewRows  int           `koanf:"preview_rows"`
	Server       ServerConfig  `koanf:"server"`
	Watch        WatchConfig   `koanf:"watch"`
	Export       *ExportConfig `koanf:"export"`
}

// Default configuration values not shared with internal/config.
const (
	DefaultOutput   = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel = "warn"
	EnvPrefix       = "LEAPROUTE_"
)

// ExportTarget returns the configured export target, or nil.
func (c *Config) ExportTarget() *export.Target {
	if c.Export == nil {
		return nil
	}
	return c.Export.Target
}
