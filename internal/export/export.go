// Package export writes finished tables to SQL databases.
//
// Each target type (duckdb, postgres, sqlite) registers an Exporter factory in
// init. Exporters share BaseSQLExporter, which creates the destination table
// with mapped column types and inserts every row inside one transaction.
package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leaproute/internal/table"
)

// Target describes the database an export writes to.
type Target struct {
	Type     string            `koanf:"type" yaml:"type" json:"type"`
	Path     string            `koanf:"path" yaml:"path,omitempty" json:"path,omitempty"`
	Host     string            `koanf:"host" yaml:"host,omitempty" json:"host,omitempty"`
	Port     int               `koanf:"port" yaml:"port,omitempty" json:"port,omitempty"`
	Database string            `koanf:"database" yaml:"database,omitempty" json:"database,omitempty"`
	User     string            `koanf:"user" yaml:"user,omitempty" json:"user,omitempty"`
	Password string            `koanf:"password" yaml:"password,omitempty" json:"-"`
	Schema   string            `koanf:"schema" yaml:"schema,omitempty" json:"schema,omitempty"`
	Options  map[string]string `koanf:"options" yaml:"options,omitempty" json:"options,omitempty"`
}

// Exporter writes tables to one database.
type Exporter interface {
	// Connect opens the database described by target.
	Connect(ctx context.Context, target Target) error

	// Export replaces the table name with the contents of t and returns the
	// number of rows written.
	Export(ctx context.Context, name string, t *table.Table) (int64, error)

	// Close releases the connection.
	Close() error
}

// Open creates the exporter registered for target.Type and connects it.
func Open(ctx context.Context, target Target, logger *slog.Logger) (Exporter, error) {
	exp, err := New(target, logger)
	if err != nil {
		return nil, err
	}
	if err := exp.Connect(ctx, target); err != nil {
		return nil, fmt.Errorf("failed to connect %s target: %w", target.Type, err)
	}
	return exp, nil
}
