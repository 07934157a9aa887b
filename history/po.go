package history

import (
	"sort"

	"github.com/txncheck/txncheck/graph"
)

// TransactionIDLess is the ordering used at every deterministic
// decision point over transaction ids.
func TransactionIDLess(a, b TransactionID) bool { return a.Less(b) }

// AtomicPO is the partial order over transactions derived from an
// atomic history. The session order and write-read relations are fixed
// at construction; the visibility relation starts as the session order
// and is grown by the saturation checkers.
type AtomicPO struct {
	// Root is the synthetic transaction (0,0).
	Root TransactionID
	// History holds the per-transaction read/write summaries, root
	// included.
	History AtomicHistory
	// SessionOrder is the transitive closure of the per-session chain
	// order, with the root before every transaction.
	SessionOrder *graph.DiGraph[TransactionID]
	// WriteRead holds one graph per variable x: an edge (w, r) means r
	// read x from w. Every committed writer of x is a vertex even when
	// nothing reads from it.
	WriteRead map[Variable]*graph.DiGraph[TransactionID]
	// WRUnion is the union of all per-variable write-read graphs.
	WRUnion *graph.DiGraph[TransactionID]
	// Visibility is the relation the saturation checkers extend. An
	// edge (a, b) means a is visible to b.
	Visibility *graph.DiGraph[TransactionID]
}

// NewPO builds the partial order of an atomic history. Each session is
// a chain root -> t_0 -> t_1 -> ..., and the closure of a chain is all
// pairs (i, j) with i < j, computed directly instead of via the general
// closure.
func NewPO(atomic AtomicHistory) *AtomicPO {
	root := RootTransaction()
	sessionOrder := graph.NewDiGraph[TransactionID]()
	sessionOrder.AddVertex(root)

	bySession := make(map[uint64][]TransactionID)
	for tid := range atomic {
		if tid.IsRoot() {
			continue
		}
		bySession[tid.SessionID] = append(bySession[tid.SessionID], tid)
	}
	for _, txns := range bySession {
		sort.Slice(txns, func(i, j int) bool {
			return txns[i].SessionHeight < txns[j].SessionHeight
		})
		for i, tid := range txns {
			sessionOrder.AddEdge(root, tid)
			for _, earlier := range txns[:i] {
				sessionOrder.AddEdge(earlier, tid)
			}
		}
	}

	writeRead := make(map[Variable]*graph.DiGraph[TransactionID])
	wrFor := func(x Variable) *graph.DiGraph[TransactionID] {
		g, ok := writeRead[x]
		if !ok {
			g = graph.NewDiGraph[TransactionID]()
			writeRead[x] = g
		}
		return g
	}
	for tid, info := range atomic {
		for x := range info.Writes {
			wrFor(x).AddVertex(tid)
		}
		for x, writer := range info.Reads {
			wrFor(x).AddEdge(writer, tid)
		}
	}

	wrUnion := graph.NewDiGraph[TransactionID]()
	for _, g := range writeRead {
		wrUnion.Union(g)
	}

	return &AtomicPO{
		Root:         root,
		History:      atomic,
		SessionOrder: sessionOrder,
		WriteRead:    writeRead,
		WRUnion:      wrUnion,
		Visibility:   sessionOrder.Clone(),
	}
}

// VisIncludes adds the edges of g to the visibility relation and
// reports whether it changed.
func (po *AtomicPO) VisIncludes(g *graph.DiGraph[TransactionID]) bool {
	return po.Visibility.Union(g)
}

// VisIsTrans closes the visibility relation transitively and reports
// whether it changed.
func (po *AtomicPO) VisIsTrans() bool {
	return po.Visibility.ClosureWithChange()
}

// VisIncludesIncremental inserts edges into an already-closed
// visibility relation, restoring closure, and reports change.
func (po *AtomicPO) VisIncludesIncremental(edges []graph.Edge[TransactionID]) bool {
	return po.Visibility.IncrementalClosure(edges)
}

// HasValidVisibility reports whether the visibility relation is
// acyclic.
func (po *AtomicPO) HasValidVisibility() bool {
	return po.Visibility.IsAcyclic()
}

// writersOf lists the committed writers of x present in wr_x, sorted.
// The root counts as a writer of every variable.
func (po *AtomicPO) writersOf(x Variable, wrx *graph.DiGraph[TransactionID]) []TransactionID {
	var writers []TransactionID
	for _, tid := range wrx.Vertices() {
		info, ok := po.History[tid]
		if !ok || !info.Committed {
			continue
		}
		if _, writes := info.Writes[x]; writes {
			writers = append(writers, tid)
		}
	}
	sort.Slice(writers, func(i, j int) bool { return writers[i].Less(writers[j]) })
	return writers
}

// CausalWW derives write-write ordering per variable from the current
// visibility relation. For writers t1, t2 of x with t1's version read
// by some t3: vis(t2, t1) trivially orders t2 before t1, and
// vis(t2, t3) forces t2's write before t1's, since t3 observed t1
// after t2 became visible.
//
//	t2 ----vis----> t3
//	 \              ^
//	  ww_x          | wr_x
//	   v            |
//	   t1-----------+
func (po *AtomicPO) CausalWW() map[Variable]*graph.DiGraph[TransactionID] {
	ww := make(map[Variable]*graph.DiGraph[TransactionID], len(po.WriteRead))
	for x, wrx := range po.WriteRead {
		writers := po.writersOf(x, wrx)
		wwx := graph.NewDiGraph[TransactionID]()
		for _, t1 := range writers {
			readers := wrx.Out(t1)
			for _, t2 := range writers {
				if t1 == t2 {
					continue
				}
				if po.Visibility.HasEdge(t2, t1) {
					wwx.AddEdge(t2, t1)
					continue
				}
				for _, t3 := range readers {
					if t3 != t2 && po.Visibility.HasEdge(t2, t3) {
						wwx.AddEdge(t2, t1)
						break
					}
				}
			}
		}
		ww[x] = wwx
	}
	return ww
}

// CausalRW derives read-write anti-dependency ordering per variable.
// If t3 reads x from t1 and a different writer t2 of x has t1 visible
// to it, then t3 must precede t2, since t2 overwrites the version t3
// observed.
func (po *AtomicPO) CausalRW() map[Variable]*graph.DiGraph[TransactionID] {
	rw := make(map[Variable]*graph.DiGraph[TransactionID], len(po.WriteRead))
	for x, wrx := range po.WriteRead {
		writers := po.writersOf(x, wrx)
		rwx := graph.NewDiGraph[TransactionID]()
		for _, t1 := range writers {
			readers := wrx.Out(t1)
			for _, t2 := range writers {
				if t1 == t2 {
					continue
				}
				if po.Visibility.HasEdge(t1, t2) {
					for _, t3 := range readers {
						if t3 != t2 {
							rwx.AddEdge(t3, t2)
						}
					}
					continue
				}
				for _, t3 := range readers {
					if po.Visibility.HasEdge(t3, t2) {
						rwx.AddEdge(t3, t2)
					}
				}
			}
		}
		rw[x] = rwx
	}
	return rw
}
