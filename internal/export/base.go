package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leaproute/internal/table"
	"github.com/leapstack-labs/leaproute/pkg/core"
)

// ErrNotConnected is returned when an exporter is used before Connect.
var ErrNotConnected = errors.New("database connection not established")

// Dialect holds the SQL differences between targets.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// Types maps column types to the target's column type names.
	Types map[core.ColumnType]string
}

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

// BaseSQLExporter provides the database/sql export path.
// Embed it in concrete exporters to get Close and Export.
type BaseSQLExporter struct {
	DB      *sql.DB
	Target  Target
	Dialect *Dialect
	Logger  *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLExporter) Close() error {
	if b.DB != nil {
		b.Logger.Debug("closing export connection", "target", b.Dialect.Name)
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLExporter) IsConnected() bool {
	return b.DB != nil
}

// Export replaces the table name with the contents of t in one transaction.
func (b *BaseSQLExporter) Export(ctx context.Context, name string, t *table.Table) (int64, error) {
	if b.DB == nil {
		return 0, ErrNotConnected
	}
	create, err := b.CreateTableSQL(name, t.Schema())
	if err != nil {
		return 0, err
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, b.DropTableSQL(name)); err != nil {
		return 0, fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", name, err)
	}

	written, err := b.insertRows(ctx, tx, name, t)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit export: %w", err)
	}

	b.Logger.Debug("table exported", "target", b.Dialect.Name, "table", name, "rows", written)
	return written, nil
}

func (b *BaseSQLExporter) insertRows(ctx context.Context, tx *sql.Tx, name string, t *table.Table) (int64, error) {
	if t.NumColumns() == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, b.InsertSQL(name, t.ColumnNames()))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var written int64
	for i, row := range t.Rows() {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return written, fmt.Errorf("failed to insert row %d: %w", i, err)
		}
		written++
	}
	return written, nil
}

// QualifiedName returns the quoted table name, prefixed by the target schema.
func (b *BaseSQLExporter) QualifiedName(name string) string {
	if b.Target.Schema != "" {
		return QuoteIdentifier(b.Target.Schema) + "." + QuoteIdentifier(name)
	}
	return QuoteIdentifier(name)
}

// DropTableSQL returns the statement removing a previous export.
func (b *BaseSQLExporter) DropTableSQL(name string) string {
	return "DROP TABLE IF EXISTS " + b.QualifiedName(name)
}

// CreateTableSQL returns the CREATE TABLE statement for schema.
func (b *BaseSQLExporter) CreateTableSQL(name string, schema []core.Field) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("export table name is empty")
	}
	if len(schema) == 0 {
		return "", fmt.Errorf("table %s has no columns", name)
	}
	defs := make([]string, len(schema))
	for i, f := range schema {
		typ, ok := b.Dialect.Types[f.Type]
		if !ok {
			return "", fmt.Errorf("column %q: %s has no %s type", f.Name, f.Type, b.Dialect.Name)
		}
		defs[i] = QuoteIdentifier(f.Name) + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", b.QualifiedName(name), strings.Join(defs, ", ")), nil
}

// InsertSQL returns the parameterized INSERT statement for columns.
func (b *BaseSQLExporter) InsertSQL(name string, columns []string) string {
	quoted := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = QuoteIdentifier(c)
		params[i] = b.Dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		b.QualifiedName(name), strings.Join(quoted, ", "), strings.Join(params, ", "))
}

// QuoteIdentifier double-quotes an identifier, escaping embedded quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
