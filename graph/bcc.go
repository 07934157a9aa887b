package graph

import "sort"

// bccFrame is one explicit-stack frame of the lowpoint DFS. hasChild
// marks that the frame just finished exploring the subtree rooted at
// child and still owes it the post-visit lowpoint bookkeeping.
type bccFrame[V comparable] struct {
	vertex     V
	neighbors  []V
	idx        int
	child      V
	hasChild   bool
	childCount int
}

type bccWalker[V comparable] struct {
	graph    *UGraph[V]
	less     func(a, b V) bool
	visited  map[V]struct{}
	depth    map[V]int
	lowpoint map[V]int
	parent   map[V]V
	dfsStack []V

	components  [][]V
	artPoints   map[V]struct{}
	nonGroupSet [][]V
}

// BiconnectedComponents decomposes an undirected graph into its
// biconnected components using the lowpoint method. It returns the
// articulation points, the components of connected subgraphs with three
// or more vertices, and the "non-group" leftovers: isolated vertices and
// isolated pairs, which have no meaningful biconnected structure. Each
// component is sorted by the supplied ordering, as is the component list
// itself, so the output is deterministic.
func BiconnectedComponents[V comparable](g *UGraph[V], less func(a, b V) bool) (artPoints map[V]struct{}, components [][]V, nonGroup [][]V) {
	w := &bccWalker[V]{
		graph:     g,
		less:      less,
		visited:   make(map[V]struct{}),
		depth:     make(map[V]int),
		lowpoint:  make(map[V]int),
		parent:    make(map[V]V),
		artPoints: make(map[V]struct{}),
	}

	for _, v := range g.Vertices(less) {
		switch g.Degree(v) {
		case 0:
			w.nonGroupSet = append(w.nonGroupSet, []V{v})
		case 1:
			partner := g.Neighbors(v, less)[0]
			// An isolated pair would otherwise be reported twice, once
			// from each endpoint.
			if g.Degree(partner) == 1 && less(v, partner) {
				w.nonGroupSet = append(w.nonGroupSet, []V{v, partner})
			}
			// A leaf of a larger connected subgraph is reached through
			// its neighbor.
		default:
			if _, ok := w.visited[v]; !ok {
				w.walk(v)
			}
		}
	}

	for _, c := range w.components {
		sort.Slice(c, func(i, j int) bool { return less(c[i], c[j]) })
	}
	sortComponentList(w.components, less)
	sortComponentList(w.nonGroupSet, less)
	return w.artPoints, w.components, w.nonGroupSet
}

func sortComponentList[V comparable](cs [][]V, less func(a, b V) bool) {
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return less(a[k], b[k])
			}
		}
		return len(a) < len(b)
	})
}

func (w *bccWalker[V]) walk(root V) {
	w.enter(root, 0)
	stack := []bccFrame[V]{{vertex: root, neighbors: w.graph.Neighbors(root, w.less)}}

	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		v := f.vertex

		if f.hasChild {
			f.hasChild = false
			child := f.child
			if w.lowpoint[child] >= w.depth[v] {
				w.popComponent(v)
				// A DFS root is an articulation point only when it has
				// more than one tree child.
				if w.depth[v] > 0 || f.childCount > 1 {
					w.artPoints[v] = struct{}{}
				}
			}
			if w.lowpoint[child] < w.lowpoint[v] {
				w.lowpoint[v] = w.lowpoint[child]
			}
		}

		if f.idx < len(f.neighbors) {
			n := f.neighbors[f.idx]
			f.idx++
			if _, seen := w.visited[n]; !seen {
				w.parent[n] = v
				f.child = n
				f.hasChild = true
				f.childCount++
				w.enter(n, w.depth[v]+1)
				stack = append(stack, bccFrame[V]{vertex: n, neighbors: w.graph.Neighbors(n, w.less)})
			} else if p, hasP := w.parent[v]; !hasP || n != p {
				if w.depth[n] < w.lowpoint[v] {
					w.lowpoint[v] = w.depth[n]
				}
			}
			continue
		}

		stack = stack[:len(stack)-1]
		if w.depth[v] == 0 {
			// The root is the only vertex left on the component stack.
			w.dfsStack = w.dfsStack[:len(w.dfsStack)-1]
		}
	}
}

func (w *bccWalker[V]) enter(v V, depth int) {
	w.visited[v] = struct{}{}
	w.depth[v] = depth
	w.lowpoint[v] = depth
	w.dfsStack = append(w.dfsStack, v)
}

// popComponent pops the component stack down to v inclusive, records the
// popped vertices as one biconnected component, and pushes v back since
// it may belong to further components.
func (w *bccWalker[V]) popComponent(v V) {
	var component []V
	for len(w.dfsStack) > 0 {
		top := w.dfsStack[len(w.dfsStack)-1]
		w.dfsStack = w.dfsStack[:len(w.dfsStack)-1]
		component = append(component, top)
		if top == v {
			break
		}
	}
	w.components = append(w.components, component)
	w.dfsStack = append(w.dfsStack, v)
}
