package dag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGraph_AddEdge_RejectsUnknownNodes(t *testing.T) {
	g := NewGraph()
	g.AddNode("orders")

	require.Error(t, g.AddEdge("orders", "nonexistent"))
	require.Error(t, g.AddEdge("nonexistent", "orders"))
}

func TestGraph_AddEdge_RejectsSelfLoop(t *testing.T) {
	g := NewGraph()
	g.AddNode("orders")

	require.Error(t, g.AddEdge("orders", "orders"))
}

func TestGraph_AddEdge_DuplicateIsIdempotent(t *testing.T) {
	g := NewGraph()
	g.AddNode("orders")
	g.AddNode("totals")

	require.NoError(t, g.AddEdge("orders", "totals"))
	require.NoError(t, g.AddEdge("orders", "totals"))

	levels, err := g.GetExecutionLevels()
	require.NoError(t, err)
	require.Equal(t, [][]string{{"orders"}, {"totals"}}, levels)
}

func TestGraph_HasCycle_DetectsDirectCycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")
	g.AddNode("b")
	g.AddNode("c")

	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))
	require.NoError(t, g.AddEdge("c", "a"))

	hasCycle, path := g.HasCycle()
	require.True(t, hasCycle)
	require.NotEmpty(t, path)
}

func TestGraph_GetExecutionLevels_DiamondDependency(t *testing.T) {
	g := NewGraph()
	g.AddNode("raw1")
	g.AddNode("raw2")
	g.AddNode("staging1")
	g.AddNode("staging2")
	g.AddNode("mart")

	require.NoError(t, g.AddEdge("raw1", "staging1"))
	require.NoError(t, g.AddEdge("raw2", "staging2"))
	require.NoError(t, g.AddEdge("staging1", "mart"))
	require.NoError(t, g.AddEdge("staging2", "mart"))

	levels, err := g.GetExecutionLevels()
	require.NoError(t, err)
	require.Len(t, levels, 3)
	require.ElementsMatch(t, []string{"raw1", "raw2"}, levels[0])
	require.ElementsMatch(t, []string{"staging1", "staging2"}, levels[1])
	require.Equal(t, []string{"mart"}, levels[2])
}

func TestGraph_GetExecutionLevels_RejectsCyclicGraph(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")
	g.AddNode("b")

	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "a"))

	_, err := g.GetExecutionLevels()
	require.Error(t, err)
}

func TestGraph_GetExecutionLevels_DisconnectedComponentsBothStartAtLevelZero(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")
	g.AddNode("b")
	g.AddNode("c")
	g.AddNode("d")

	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("c", "d"))

	levels, err := g.GetExecutionLevels()
	require.NoError(t, err)
	require.Len(t, levels, 2)
	require.ElementsMatch(t, []string{"a", "c"}, levels[0])
	require.ElementsMatch(t, []string{"b", "d"}, levels[1])
}
