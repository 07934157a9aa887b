package graph

import "sort"

// UGraph is an undirected graph over comparable vertices, stored as a
// symmetric adjacency map.
type UGraph[V comparable] struct {
	adj map[V]map[V]struct{}
}

// NewUGraph returns an empty undirected graph.
func NewUGraph[V comparable]() *UGraph[V] {
	return &UGraph[V]{adj: make(map[V]map[V]struct{})}
}

// AddVertex ensures v is present.
func (g *UGraph[V]) AddVertex(v V) {
	if _, ok := g.adj[v]; !ok {
		g.adj[v] = make(map[V]struct{})
	}
}

// AddEdge inserts the undirected edge a -- b.
func (g *UGraph[V]) AddEdge(a, b V) {
	g.AddVertex(a)
	g.AddVertex(b)
	g.adj[a][b] = struct{}{}
	g.adj[b][a] = struct{}{}
}

// AddEdges inserts an undirected edge from v to each of the others.
func (g *UGraph[V]) AddEdges(v V, others ...V) {
	for _, o := range others {
		g.AddEdge(v, o)
	}
}

// HasEdge reports whether the undirected edge a -- b is present.
func (g *UGraph[V]) HasEdge(a, b V) bool {
	_, ok := g.adj[a][b]
	return ok
}

// Degree returns the number of neighbors of v.
func (g *UGraph[V]) Degree(v V) int {
	return len(g.adj[v])
}

// VertexCount returns the number of vertices.
func (g *UGraph[V]) VertexCount() int {
	return len(g.adj)
}

// Vertices returns all vertices sorted by the supplied ordering.
func (g *UGraph[V]) Vertices(less func(a, b V) bool) []V {
	vs := make([]V, 0, len(g.adj))
	for v := range g.adj {
		vs = append(vs, v)
	}
	sort.Slice(vs, func(i, j int) bool { return less(vs[i], vs[j]) })
	return vs
}

// ConnectedComponents returns the connected components as sorted vertex
// slices, the component list ordered by each component's first vertex.
// Isolated vertices appear as singletons.
func (g *UGraph[V]) ConnectedComponents(less func(a, b V) bool) [][]V {
	visited := make(map[V]struct{})
	var components [][]V
	for _, start := range g.Vertices(less) {
		if _, ok := visited[start]; ok {
			continue
		}
		var component []V
		stack := []V{start}
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, ok := visited[v]; ok {
				continue
			}
			visited[v] = struct{}{}
			component = append(component, v)
			for n := range g.adj[v] {
				if _, ok := visited[n]; !ok {
					stack = append(stack, n)
				}
			}
		}
		sort.Slice(component, func(i, j int) bool { return less(component[i], component[j]) })
		components = append(components, component)
	}
	return components
}

// Neighbors returns the neighbors of v sorted by the supplied ordering.
func (g *UGraph[V]) Neighbors(v V, less func(a, b V) bool) []V {
	ns := make([]V, 0, len(g.adj[v]))
	for n := range g.adj[v] {
		ns = append(ns, n)
	}
	sort.Slice(ns, func(i, j int) bool { return less(ns[i], ns[j]) })
	return ns
}
