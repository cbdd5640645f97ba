package dag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tree builds:
//
//	route -> a -> b -> d
//	      \-> c
func tree(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	for _, id := range []string{"route", "a", "b", "c", "d"} {
		g.AddNode(id, nil)
	}
	require.NoError(t, g.AddEdge("route", "a"))
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("route", "c"))
	require.NoError(t, g.AddEdge("b", "d"))
	return g
}

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := tree(t)

	assert.Equal(t, 5, g.Len())
	assert.Equal(t, 4, g.EdgeCount())
	assert.Equal(t, []string{"a", "c"}, g.Children("route"))
	assert.Equal(t, []string{"a"}, g.Parents("b"))

	// duplicate edges are ignored
	require.NoError(t, g.AddEdge("route", "a"))
	assert.Equal(t, 4, g.EdgeCount())

	g.AddNode("a", "payload")
	n, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, "payload", n.Data)
}

func TestGraph_AddEdge_Invalid(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)

	tests := []struct {
		name          string
		parent, child string
	}{
		{"missing child", "a", "nope"},
		{"missing parent", "nope", "a"},
		{"self loop", "a", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, g.AddEdge(tt.parent, tt.child))
		})
	}
}

func TestGraph_TopologicalSort(t *testing.T) {
	g := tree(t)

	sorted, err := g.TopologicalSort()
	require.NoError(t, err)

	pos := make(map[string]int)
	for i, n := range sorted {
		pos[n.ID] = i
	}
	require.Len(t, pos, 5)
	for _, id := range []string{"a", "b", "c", "d"} {
		for _, p := range g.Parents(id) {
			assert.Less(t, pos[p], pos[id], "%s must precede %s", p, id)
		}
	}
}

func TestGraph_Cycle(t *testing.T) {
	g := tree(t)
	require.NoError(t, g.AddEdge("d", "a"))

	cycle := g.FindCycle()
	require.NotEmpty(t, cycle)
	assert.Equal(t, cycle[0], cycle[len(cycle)-1])

	_, err := g.TopologicalSort()
	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr))

	_, err = g.Levels()
	assert.True(t, errors.As(err, &cycleErr))
}

func TestGraph_Levels(t *testing.T) {
	levels, err := tree(t).Levels()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"route"}, {"a", "c"}, {"b"}, {"d"}}, levels)
}

func TestGraph_Reachability(t *testing.T) {
	g := tree(t)

	assert.Equal(t, []string{"b", "d"}, g.Descendants("a"))
	assert.Equal(t, []string{"a", "b", "c", "d"}, g.Descendants("route"))
	assert.Empty(t, g.Descendants("d"))
	assert.Equal(t, []string{"a", "b", "route"}, g.Ancestors("d"))
	assert.Equal(t, []string{"route"}, g.Roots())
	assert.Equal(t, []string{"c", "d"}, g.Leaves())
}
