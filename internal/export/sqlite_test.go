package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaproute/internal/table"
	"github.com/leapstack-labs/leaproute/internal/testutil"
)

func TestSQLiteExporter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	exp, err := Open(ctx, Target{Type: "sqlite"}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = exp.Close() }()

	n, err := exp.Export(ctx, "people", sampleTable())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	db := exp.(*SQLiteExporter).DB
	var count, nulls int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*), COUNT(*) - COUNT(name) FROM people`).Scan(&count, &nulls))
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, nulls)

	// a second export replaces the first
	n, err = exp.Export(ctx, "people", table.MustNew(table.Of[int64]("id", 7)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var id int64
	require.NoError(t, db.QueryRowContext(ctx, `SELECT id FROM people`).Scan(&id))
	assert.Equal(t, int64(7), id)
}

func TestSQLiteExporter_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.db")

	exp := NewSQLite(nil)
	require.NoError(t, exp.Connect(ctx, Target{Type: "sqlite", Path: path, Schema: "ignored"}))
	defer func() { _ = exp.Close() }()

	_, err := exp.Export(ctx, "t", table.MustNew(table.Of("v", 1.5, 2.5)))
	require.NoError(t, err)

	var sum float64
	require.NoError(t, exp.DB.QueryRowContext(ctx, `SELECT SUM(v) FROM t`).Scan(&sum))
	assert.InDelta(t, 4.0, sum, 1e-9)
}
