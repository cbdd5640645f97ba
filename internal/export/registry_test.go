package export

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaproute/internal/testutil"
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"duckdb", "postgres", "sqlite"}, List())
	assert.True(t, IsRegistered("sqlite"))
	assert.False(t, IsRegistered("oracle"))

	exp, err := New(Target{Type: "sqlite"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteExporter{}, exp)

	exp, err = New(Target{Type: "postgres"}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &PostgresExporter{}, exp)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Target{}, nil)
	assert.ErrorContains(t, err, "type not specified")

	_, err = New(Target{Type: "oracle"}, nil)
	var unknown *UnknownExporterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "oracle", unknown.Type)
	assert.Contains(t, unknown.Available, "duckdb")
	assert.Contains(t, err.Error(), "export.target.type")

	_, err = Open(context.Background(), Target{Type: "oracle"}, nil)
	assert.ErrorAs(t, err, &unknown)
}
