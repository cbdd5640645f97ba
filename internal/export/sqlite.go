package export

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leaproute/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver
)

func init() {
	Register("sqlite", func(logger *slog.Logger) Exporter { return NewSQLite(logger) })
}

// SQLiteDialect maps column types to SQLite storage classes.
var SQLiteDialect = &Dialect{
	Name:        "sqlite",
	Placeholder: questionMark,
	Types: map[core.ColumnType]string{
		core.TypeInt:    "INTEGER",
		core.TypeDouble: "REAL",
		core.TypeDate:   "TIMESTAMP",
		core.TypeBool:   "BOOLEAN",
		core.TypeString: "TEXT",
	},
}

// SQLiteExporter writes tables to a SQLite database file.
type SQLiteExporter struct {
	BaseSQLExporter
}

// NewSQLite creates a new SQLite exporter.
// If logger is nil, a discard logger is used.
func NewSQLite(logger *slog.Logger) *SQLiteExporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteExporter{BaseSQLExporter{Dialect: SQLiteDialect, Logger: logger}}
}

// Connect opens the SQLite database at target.Path.
// Use ":memory:" (the default) for an in-memory database.
func (e *SQLiteExporter) Connect(ctx context.Context, target Target) error {
	path := target.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one connection keeps ":memory:" databases visible across calls
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	target.Schema = ""
	e.DB = db
	e.Target = target
	return nil
}

var _ Exporter = (*SQLiteExporter)(nil)
