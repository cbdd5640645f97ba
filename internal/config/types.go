// Package config provides the project configuration types of leaproute and
// the declarative route definition file.
//
// It is decoupled from CLI concerns: the CLI layers environment variables and
// flags on top of ProjectConfig, while routes.yaml handling is shared by the
// apply and dump commands.
package config

import (
	"time"

	"github.com/leapstack-labs/leaproute/internal/export"
)

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Port  int  `koanf:"port"`
	Watch bool `koanf:"watch"`
}

// WatchConfig holds configuration for the source watcher.
type WatchConfig struct {
	Debounce time.Duration `koanf:"debounce"`
}

// ExportConfig holds the target of `leaproute export`.
type ExportConfig struct {
	Target *export.Target `koanf:"target"`
}

// ProjectConfig is the content of leaproute.yaml.
type ProjectConfig struct {
	StatePath   string        `koanf:"state_path"`
	RoutesFile  string        `koanf:"routes_file"`
	PreviewRows int           `koanf:"preview_rows"`
	Server      ServerConfig  `koanf:"server"`
	Watch       WatchConfig   `koanf:"watch"`
	Export      *ExportConfig `koanf:"export"`
}
