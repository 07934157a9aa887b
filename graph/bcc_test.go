package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBiconnectedComponentsPair(t *testing.T) {
	g := NewUGraph[int]()
	g.AddEdge(0, 1)

	arts, comps, nonGroup := BiconnectedComponents(g, intLess)
	assert.Empty(t, arts)
	assert.Empty(t, comps)
	assert.Equal(t, [][]int{{0, 1}}, nonGroup)
}

func TestBiconnectedComponentsSingleton(t *testing.T) {
	g := NewUGraph[int]()
	g.AddVertex(7)

	arts, comps, nonGroup := BiconnectedComponents(g, intLess)
	assert.Empty(t, arts)
	assert.Empty(t, comps)
	assert.Equal(t, [][]int{{7}}, nonGroup)
}

func TestBiconnectedComponentsTriangleWithTail(t *testing.T) {
	g := NewUGraph[int]()
	g.AddEdge(1, 0)
	g.AddEdge(0, 2)
	g.AddEdge(2, 1)
	g.AddEdge(0, 3)
	g.AddEdge(3, 5)
	g.AddEdge(3, 4)
	g.AddVertex(6)

	arts, comps, nonGroup := BiconnectedComponents(g, intLess)

	assert.Equal(t, map[int]struct{}{0: {}, 3: {}}, arts)
	assert.ElementsMatch(t, [][]int{
		{0, 1, 2},
		{0, 3},
		{3, 4},
		{3, 5},
	}, comps)
	assert.Equal(t, [][]int{{6}}, nonGroup)
}

func TestBiconnectedComponentsWikipedia(t *testing.T) {
	g := NewUGraph[int]()
	g.AddEdges(0, 1, 9)
	g.AddEdges(1, 2, 6, 8)
	g.AddEdges(2, 3, 4)
	g.AddEdges(3, 4)
	g.AddEdges(4, 5)
	g.AddEdges(5, 6)
	g.AddEdges(6, 7)
	g.AddEdges(9, 10)
	g.AddEdges(10, 11, 12)
	g.AddEdges(11, 13)
	g.AddEdges(12, 13)

	arts, comps, nonGroup := BiconnectedComponents(g, intLess)

	assert.Equal(t, map[int]struct{}{0: {}, 1: {}, 6: {}, 9: {}, 10: {}}, arts)
	assert.ElementsMatch(t, [][]int{
		{0, 1},
		{0, 9},
		{1, 8},
		{6, 7},
		{9, 10},
		{10, 11, 12, 13},
		{1, 2, 3, 4, 5, 6},
	}, comps)
	assert.Empty(t, nonGroup)
}

func TestBiconnectedComponentsBiconnectedGraphHasNoArticulation(t *testing.T) {
	// A triangle is biconnected: no articulation points, one component.
	g := NewUGraph[int]()
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.AddEdge(2, 0)

	arts, comps, nonGroup := BiconnectedComponents(g, intLess)
	assert.Empty(t, arts)
	require.Len(t, comps, 1)
	assert.Equal(t, []int{0, 1, 2}, comps[0])
	assert.Empty(t, nonGroup)
}

func TestConnectedComponents(t *testing.T) {
	g := NewUGraph[int]()
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	g.AddEdge(5, 6)
	g.AddVertex(9)

	comps := g.ConnectedComponents(intLess)
	assert.Equal(t, [][]int{{1, 2, 3}, {5, 6}, {9}}, comps)
}
