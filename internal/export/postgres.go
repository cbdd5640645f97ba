package export

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/leaproute/internal/table"
	"github.com/leapstack-labs/leaproute/pkg/core"
)

func init() {
	Register("postgres", func(logger *slog.Logger) Exporter { return NewPostgres(logger) })
}

// PostgresDialect maps column types to PostgreSQL types.
var PostgresDialect = &Dialect{
	Name:        "postgres",
	Placeholder: dollar,
	Types: map[core.ColumnType]string{
		core.TypeInt:    "BIGINT",
		core.TypeDouble: "DOUBLE PRECISION",
		core.TypeDate:   "TIMESTAMP",
		core.TypeBool:   "BOOLEAN",
		core.TypeString: "TEXT",
	},
}

// PostgresExporter writes tables to PostgreSQL, using COPY when the
// connection is served by pgx.
type PostgresExporter struct {
	BaseSQLExporter
}

// NewPostgres creates a new PostgreSQL exporter.
// If logger is nil, a discard logger is used.
func NewPostgres(logger *slog.Logger) *PostgresExporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PostgresExporter{BaseSQLExporter{Dialect: PostgresDialect, Logger: logger}}
}

// Connect establishes a connection to PostgreSQL.
func (e *PostgresExporter) Connect(ctx context.Context, target Target) error {
	e.Logger.Debug("connecting to postgres", slog.String("host", target.Host), slog.String("database", target.Database))

	db, err := sql.Open("pgx", buildPostgresDSN(target))
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	e.DB = db
	e.Target = target
	return nil
}

// Export replaces the table name with the contents of t.
func (e *PostgresExporter) Export(ctx context.Context, name string, t *table.Table) (int64, error) {
	if e.DB == nil {
		return 0, ErrNotConnected
	}
	conn, err := e.DB.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get connection: %w", err)
	}

	var (
		written int64
		copied  bool
	)
	err = conn.Raw(func(driverConn any) error {
		pc, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return nil
		}
		copied = true
		written, err = e.copyTable(ctx, pc.Conn(), name, t)
		return err
	})
	_ = conn.Close()
	if err != nil || copied {
		return written, err
	}
	return e.BaseSQLExporter.Export(ctx, name, t)
}

// copyTable recreates the table and streams rows with COPY FROM STDIN.
func (e *PostgresExporter) copyTable(ctx context.Context, conn *pgx.Conn, name string, t *table.Table) (int64, error) {
	create, err := e.CreateTableSQL(name, t.Schema())
	if err != nil {
		return 0, err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, e.DropTableSQL(name)); err != nil {
		return 0, fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", name, err)
	}

	rows := make([][]any, 0, t.NumRows())
	for _, row := range t.Rows() {
		rows = append(rows, row)
	}
	ident := pgx.Identifier{name}
	if e.Target.Schema != "" {
		ident = pgx.Identifier{e.Target.Schema, name}
	}
	written, err := tx.CopyFrom(ctx, ident, t.ColumnNames(), pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to copy data: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit export: %w", err)
	}

	e.Logger.Debug("table exported", "target", "postgres", "table", name, "rows", written)
	return written, nil
}

// buildPostgresDSN constructs a key=value PostgreSQL connection string.
func buildPostgresDSN(target Target) string {
	host := target.Host
	if host == "" {
		host = "localhost"
	}
	port := target.Port
	if port == 0 {
		port = 5432
	}
	sslmode := "disable"
	if mode, ok := target.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, target.Database, sslmode)
	if target.User != "" {
		dsn += fmt.Sprintf(" user=%s", target.User)
	}
	if target.Password != "" {
		dsn += fmt.Sprintf(" password=%s", target.Password)
	}
	return dsn
}

var _ Exporter = (*PostgresExporter)(nil)
