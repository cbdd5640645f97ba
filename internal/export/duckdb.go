package export

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leaproute/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Exporter { return NewDuckDB(logger) })
}

// DuckDBDialect maps column types to DuckDB types.
var DuckDBDialect = &Dialect{
	Name:        "duckdb",
	Placeholder: questionMark,
	Types: map[core.ColumnType]string{
		core.TypeInt:    "BIGINT",
		core.TypeDouble: "DOUBLE",
		core.TypeDate:   "TIMESTAMP",
		core.TypeBool:   "BOOLEAN",
		core.TypeString: "VARCHAR",
	},
}

// DuckDBExporter writes tables to a DuckDB database.
type DuckDBExporter struct {
	BaseSQLExporter
}

// NewDuckDB creates a new DuckDB exporter.
// If logger is nil, a discard logger is used.
func NewDuckDB(logger *slog.Logger) *DuckDBExporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDBExporter{BaseSQLExporter{Dialect: DuckDBDialect, Logger: logger}}
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (e *DuckDBExporter) Connect(ctx context.Context, target Target) error {
	path := target.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	e.DB = db
	e.Target = target
	return nil
}

var _ Exporter = (*DuckDBExporter)(nil)
