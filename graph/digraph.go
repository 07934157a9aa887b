// Package graph provides the small directed and undirected graph
// containers used by the consistency checkers: adjacency-map digraphs
// with transitive closure and cycle extraction, and an undirected graph
// with biconnected-component decomposition.
package graph

import "sort"

// Edge is a single directed edge.
type Edge[V comparable] struct {
	From V
	To   V
}

// DiGraph is a directed graph over comparable vertices. Self-loops are
// permitted; they are what cycle detection reports for length-one cycles.
// A reverse-adjacency index is maintained alongside the forward map so
// that IncrementalClosure can look up ancestors in O(1).
type DiGraph[V comparable] struct {
	adj map[V]map[V]struct{}
	rev map[V]map[V]struct{}
}

// NewDiGraph returns an empty directed graph.
func NewDiGraph[V comparable]() *DiGraph[V] {
	return &DiGraph[V]{
		adj: make(map[V]map[V]struct{}),
		rev: make(map[V]map[V]struct{}),
	}
}

// AddVertex ensures v is present, with no edges if it is new.
func (g *DiGraph[V]) AddVertex(v V) {
	if _, ok := g.adj[v]; !ok {
		g.adj[v] = make(map[V]struct{})
	}
	if _, ok := g.rev[v]; !ok {
		g.rev[v] = make(map[V]struct{})
	}
}

// AddEdge inserts the edge from -> to, adding both endpoints as needed.
// It reports whether the edge was new.
func (g *DiGraph[V]) AddEdge(from, to V) bool {
	g.AddVertex(from)
	g.AddVertex(to)
	if _, ok := g.adj[from][to]; ok {
		return false
	}
	g.adj[from][to] = struct{}{}
	g.rev[to][from] = struct{}{}
	return true
}

// AddEdges inserts an edge from v to each of the others and reports
// whether any of them was new.
func (g *DiGraph[V]) AddEdges(from V, tos ...V) bool {
	changed := false
	for _, to := range tos {
		if g.AddEdge(from, to) {
			changed = true
		}
	}
	return changed
}

// HasVertex reports whether v is present.
func (g *DiGraph[V]) HasVertex(v V) bool {
	_, ok := g.adj[v]
	return ok
}

// HasEdge reports whether the edge from -> to is present.
func (g *DiGraph[V]) HasEdge(from, to V) bool {
	_, ok := g.adj[from][to]
	return ok
}

// VertexCount returns the number of vertices.
func (g *DiGraph[V]) VertexCount() int {
	return len(g.adj)
}

// EdgeCount returns the number of edges.
func (g *DiGraph[V]) EdgeCount() int {
	n := 0
	for _, outs := range g.adj {
		n += len(outs)
	}
	return n
}

// Vertices returns all vertices in unspecified order.
func (g *DiGraph[V]) Vertices() []V {
	vs := make([]V, 0, len(g.adj))
	for v := range g.adj {
		vs = append(vs, v)
	}
	return vs
}

// Out returns the successors of v in unspecified order.
func (g *DiGraph[V]) Out(v V) []V {
	outs := g.adj[v]
	vs := make([]V, 0, len(outs))
	for u := range outs {
		vs = append(vs, u)
	}
	return vs
}

// In returns the predecessors of v in unspecified order.
func (g *DiGraph[V]) In(v V) []V {
	ins := g.rev[v]
	vs := make([]V, 0, len(ins))
	for u := range ins {
		vs = append(vs, u)
	}
	return vs
}

// OutDegree returns the number of successors of v.
func (g *DiGraph[V]) OutDegree(v V) int {
	return len(g.adj[v])
}

// ForEachEdge calls fn for every edge in unspecified order.
func (g *DiGraph[V]) ForEachEdge(fn func(from, to V)) {
	for from, outs := range g.adj {
		for to := range outs {
			fn(from, to)
		}
	}
}

// Clone returns a deep copy of the graph.
func (g *DiGraph[V]) Clone() *DiGraph[V] {
	c := NewDiGraph[V]()
	for v, outs := range g.adj {
		c.AddVertex(v)
		for u := range outs {
			c.AddEdge(v, u)
		}
	}
	return c
}

// Union inserts every vertex and edge of other into g and reports
// whether anything new was added.
func (g *DiGraph[V]) Union(other *DiGraph[V]) bool {
	changed := false
	for v, outs := range other.adj {
		if !g.HasVertex(v) {
			g.AddVertex(v)
			changed = true
		}
		for u := range outs {
			changed = g.AddEdge(v, u) || changed
		}
	}
	return changed
}

// TopologicalSort returns the vertices in a topological order using
// Kahn's algorithm, or ok=false if the graph has a cycle. Ties among
// zero-in-degree vertices are broken by the supplied ordering so the
// result is deterministic.
func (g *DiGraph[V]) TopologicalSort(less func(a, b V) bool) ([]V, bool) {
	indeg := make(map[V]int, len(g.adj))
	for v := range g.adj {
		indeg[v] = 0
	}
	for _, outs := range g.adj {
		for u := range outs {
			indeg[u]++
		}
	}

	ready := make([]V, 0, len(g.adj))
	for v, d := range indeg {
		if d == 0 {
			ready = append(ready, v)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })

	order := make([]V, 0, len(g.adj))
	for len(ready) > 0 {
		v := ready[0]
		ready = ready[1:]
		order = append(order, v)

		next := make([]V, 0)
		for u := range g.adj[v] {
			indeg[u]--
			if indeg[u] == 0 {
				next = append(next, u)
			}
		}
		sort.Slice(next, func(i, j int) bool { return less(next[i], next[j]) })
		ready = append(ready, next...)
	}
	if len(order) != len(g.adj) {
		return nil, false
	}
	return order, true
}

// FindCycleEdge peels zero-in-degree vertices the way TopologicalSort
// does and, if vertices remain, returns one edge that lies on a cycle.
// The boolean reports whether a cycle exists at all.
func (g *DiGraph[V]) FindCycleEdge(less func(a, b V) bool) (from, to V, ok bool) {
	indeg := make(map[V]int, len(g.adj))
	for v := range g.adj {
		indeg[v] = 0
	}
	for _, outs := range g.adj {
		for u := range outs {
			indeg[u]++
		}
	}

	ready := make([]V, 0)
	for v, d := range indeg {
		if d == 0 {
			ready = append(ready, v)
		}
	}
	removed := make(map[V]struct{})
	for len(ready) > 0 {
		v := ready[0]
		ready = ready[1:]
		removed[v] = struct{}{}
		for u := range g.adj[v] {
			indeg[u]--
			if indeg[u] == 0 {
				ready = append(ready, u)
			}
		}
	}
	if len(removed) == len(g.adj) {
		var zero V
		return zero, zero, false
	}

	// Every leftover vertex has an incoming edge from another leftover
	// vertex. Walk backwards until a vertex repeats; the closing edge is
	// on a cycle. Deterministic choice of predecessor via less.
	var start V
	found := false
	for v := range g.adj {
		if _, gone := removed[v]; gone {
			continue
		}
		if !found || less(v, start) {
			start = v
			found = true
		}
	}

	onPath := map[V]struct{}{start: {}}
	cur := start
	for {
		var pred V
		has := false
		for p := range g.rev[cur] {
			if _, gone := removed[p]; gone {
				continue
			}
			if !has || less(p, pred) {
				pred = p
				has = true
			}
		}
		if _, seen := onPath[pred]; seen {
			return pred, cur, true
		}
		onPath[pred] = struct{}{}
		cur = pred
	}
}

// IsAcyclic reports whether the graph has no cycle.
func (g *DiGraph[V]) IsAcyclic() bool {
	_, ok := g.TopologicalSort(func(a, b V) bool { return false })
	// The tie-break above is arbitrary; acyclicity does not depend on it.
	return ok
}

// reachableFrom collects every vertex reachable from src, excluding src
// itself unless it lies on a cycle through src. Iterative DFS.
func (g *DiGraph[V]) reachableFrom(src V) map[V]struct{} {
	seen := make(map[V]struct{})
	stack := make([]V, 0, len(g.adj[src]))
	for u := range g.adj[src] {
		stack = append(stack, u)
	}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		for u := range g.adj[v] {
			if _, ok := seen[u]; !ok {
				stack = append(stack, u)
			}
		}
	}
	return seen
}

// Closure returns a new graph whose edges are the transitive closure of g.
func (g *DiGraph[V]) Closure() *DiGraph[V] {
	c := NewDiGraph[V]()
	for v := range g.adj {
		c.AddVertex(v)
		for u := range g.reachableFrom(v) {
			c.AddEdge(v, u)
		}
	}
	return c
}

// ClosureWithChange replaces g's edges with their transitive closure in
// place and reports whether any edge was added. The closure is a
// superset of the original edge set, so an edge-count comparison
// detects change.
func (g *DiGraph[V]) ClosureWithChange() bool {
	closed := g.Closure()
	changed := closed.EdgeCount() != g.EdgeCount()
	g.adj = closed.adj
	g.rev = closed.rev
	return changed
}

// IncrementalClosure restores transitive closure after inserting the
// given edges into an already-closed graph. For each new edge u -> v it
// connects every ancestor of u (plus u) to every descendant of v (plus
// v). Because the graph stays closed after each insertion, ancestors and
// descendants are direct neighbor lookups. A cycle created by an
// insertion shows up as a self-loop.
func (g *DiGraph[V]) IncrementalClosure(edges []Edge[V]) bool {
	changed := false
	for _, e := range edges {
		g.AddVertex(e.From)
		g.AddVertex(e.To)
		if g.HasEdge(e.From, e.To) {
			continue
		}

		sources := make([]V, 0, len(g.rev[e.From])+1)
		sources = append(sources, e.From)
		for a := range g.rev[e.From] {
			sources = append(sources, a)
		}
		targets := make([]V, 0, len(g.adj[e.To])+1)
		targets = append(targets, e.To)
		for d := range g.adj[e.To] {
			targets = append(targets, d)
		}

		for _, s := range sources {
			for _, t := range targets {
				changed = g.AddEdge(s, t) || changed
			}
		}
	}
	return changed
}

// HasSelfLoop reports whether any vertex has an edge to itself.
func (g *DiGraph[V]) HasSelfLoop() bool {
	for v, outs := range g.adj {
		if _, ok := outs[v]; ok {
			return true
		}
	}
	return false
}

// ToEdgeList flattens the graph to a sequence of edges sorted by the
// supplied vertex ordering, source first then target.
func (g *DiGraph[V]) ToEdgeList(less func(a, b V) bool) []Edge[V] {
	edges := make([]Edge[V], 0, g.EdgeCount())
	for from, outs := range g.adj {
		for to := range outs {
			edges = append(edges, Edge[V]{From: from, To: to})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return less(edges[i].From, edges[j].From)
		}
		return less(edges[i].To, edges[j].To)
	})
	return edges
}
