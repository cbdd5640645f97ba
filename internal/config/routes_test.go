package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaproute/internal/reducer"
	"github.com/leapstack-labs/leaproute/pkg/core"
)

const sampleRoutes = `
routes:
  - name: sales
    source: data/sales.csv
    starred: true
    nodes:
      - title: plus three
        reducer:
          op: integer.add
          params: {column: value, rhs: 3, intoColumn: value2}
        children:
          - title: keep
            reducer:
              op: select.include
              params:
                columns: [value2]
        plotters:
          - title: chart
            columns: [value2]
      - title: cities
        reducer:
          op: table.groupBy
          params:
            keys:
              - {column: city, granularity: any}
            aggregation: {column: value, type: Double, function: sum}
    plotters:
      - title: raw
        columns: [value]
  - name: empty
`

func TestParseRoutes(t *testing.T) {
	f, err := ParseRoutes([]byte(sampleRoutes))
	require.NoError(t, err)
	require.Len(t, f.Routes, 2)

	sales := f.Routes[0]
	assert.Equal(t, "data/sales.csv", sales.Source)
	assert.True(t, sales.Starred)
	require.Len(t, sales.Nodes, 2)
	assert.Equal(t, "integer.add", sales.Nodes[0].Reducer.Op)
	require.Len(t, sales.Nodes[0].Children, 1)
	assert.Equal(t, []string{"value2"}, sales.Nodes[0].Plotters[0].Columns)

	r, err := sales.Nodes[0].Reducer.Decode()
	require.NoError(t, err)
	assert.Equal(t, &reducer.Arithmetic[int64]{Operator: reducer.OpAdd, Column: "value", RHS: 3, IntoColumn: "value2"}, r)

	r, err = sales.Nodes[1].Reducer.Decode()
	require.NoError(t, err)
	assert.Equal(t, "Group by city and take the sum of value", r.Describe().Full)
}

func TestParseRoutes_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "missing route name",
			input:   "routes:\n  - source: a.csv\n",
			wantErr: "name is required",
		},
		{
			name:    "unknown field",
			input:   "routes:\n  - name: a\n    colour: red\n",
			wantErr: "invalid routes file",
		},
		{
			name:    "unknown reducer",
			input:   "routes:\n  - name: a\n    nodes:\n      - title: n\n        reducer: {op: integer.frobnicate}\n",
			wantErr: `node "n"`,
		},
		{
			name:    "bad reducer params",
			input:   "routes:\n  - name: a\n    nodes:\n      - title: n\n        reducer: {op: integer.add, params: {colum: x}}\n",
			wantErr: "integer.add.params",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRoutes([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseRoutes_DecodeErrorIsTyped(t *testing.T) {
	_, err := ParseRoutes([]byte("routes:\n  - name: a\n    nodes:\n      - title: n\n        reducer: {op: nope.nope}\n"))
	var decodeErr *core.DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, "reducer.op", decodeErr.Field)
}

func TestRoutesFile_Snapshot(t *testing.T) {
	f, err := ParseRoutes([]byte(sampleRoutes))
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	snap, err := f.Snapshot(now)
	require.NoError(t, err)

	require.Len(t, snap.Routes, 2)
	require.Len(t, snap.Nodes, 3)
	require.Len(t, snap.Plotters, 2)

	sales := snap.Routes[0]
	assert.Equal(t, 0, sales.Position)
	assert.Equal(t, 1, snap.Routes[1].Position)
	assert.Equal(t, now, sales.CreatedAt)

	// depth first, parents before children
	plus, keep, cities := snap.Nodes[0], snap.Nodes[1], snap.Nodes[2]
	assert.Equal(t, "plus three", plus.Title)
	assert.Empty(t, plus.ParentID)
	assert.Equal(t, plus.ID, keep.ParentID)
	assert.Equal(t, 1, cities.Position)
	for _, n := range snap.Nodes {
		assert.Equal(t, sales.ID, n.RouteID)
		assert.True(t, json.Valid(n.Reducer))
	}

	chart := snap.Plotters[0]
	assert.Equal(t, plus.ID, chart.ParentID)
	assert.Empty(t, snap.Plotters[1].ParentID)
}

func TestRoutesFile_SnapshotIDs(t *testing.T) {
	id := "0b6f8a64-3a51-4d6b-9b84-2f0b5c6f0f10"
	f := &RoutesFile{Routes: []RouteDef{{ID: id, Name: "a"}}}
	snap, err := f.Snapshot(time.Now())
	require.NoError(t, err)
	assert.Equal(t, id, snap.Routes[0].ID)

	f = &RoutesFile{Routes: []RouteDef{{ID: id, Name: "a"}, {ID: id, Name: "b"}}}
	_, err = f.Snapshot(time.Now())
	assert.ErrorContains(t, err, "duplicate id")

	f = &RoutesFile{Routes: []RouteDef{{ID: "nope", Name: "a"}}}
	_, err = f.Snapshot(time.Now())
	var decodeErr *core.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestFromSnapshot_RoundTrip(t *testing.T) {
	f, err := ParseRoutes([]byte(sampleRoutes))
	require.NoError(t, err)
	snap, err := f.Snapshot(time.Now())
	require.NoError(t, err)

	back, err := FromSnapshot(snap)
	require.NoError(t, err)
	require.Len(t, back.Routes, 2)
	assert.Equal(t, snap.Routes[0].ID, back.Routes[0].ID)
	assert.Equal(t, "keep", back.Routes[0].Nodes[0].Children[0].Title)
	assert.Equal(t, "raw", back.Routes[0].Plotters[0].Title)

	out, err := back.Marshal()
	require.NoError(t, err)

	reparsed, err := ParseRoutes(out)
	require.NoError(t, err, string(out))
	snap2, err := reparsed.Snapshot(time.Now())
	require.NoError(t, err)

	require.Len(t, snap2.Nodes, len(snap.Nodes))
	for i := range snap.Nodes {
		assert.Equal(t, snap.Nodes[i].ID, snap2.Nodes[i].ID)
		assert.JSONEq(t, string(snap.Nodes[i].Reducer), string(snap2.Nodes[i].Reducer))
	}
}

func TestFromSnapshot_OrdersByPosition(t *testing.T) {
	snap := &core.Snapshot{
		Routes: []*core.RouteRecord{
			{ID: "r2", Name: "second", Position: 1},
			{ID: "r1", Name: "first", Position: 0},
		},
	}
	f, err := FromSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, "first", f.Routes[0].Name)
	assert.Equal(t, "second", f.Routes[1].Name)
}

func TestLoadRoutes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRoutes), 0o600))

	f, err := LoadRoutes(path)
	require.NoError(t, err)
	assert.Len(t, f.Routes, 2)

	_, err = LoadRoutes(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read routes file")
}
