package linearize

import (
	"github.com/txncheck/txncheck/history"
)

// SerializableSolver decides serializability over a causally saturated
// partial order. Transactions are not split: reads and writes take
// effect at a single point, so each vertex is a whole transaction and
// a transaction may be placed only when every outstanding reader of
// the variables it overwrites has already been placed. A transaction
// that reads a variable it also writes may be its own last reader.
type SerializableSolver struct {
	po     *history.AtomicPO
	opts   Options
	active activeWrites
}

// NewSerializable wraps a saturated partial order in a serializability
// solver.
func NewSerializable(po *history.AtomicPO, opts Options) *SerializableSolver {
	return &SerializableSolver{po: po, opts: opts, active: make(activeWrites)}
}

func (s *SerializableSolver) Options() Options { return s.opts }

func (s *SerializableSolver) Vertices() []Vertex {
	vs := make([]Vertex, 0, len(s.po.History))
	for t := range s.po.History {
		vs = append(vs, Vertex{Txn: t})
	}
	return vs
}

func (s *SerializableSolver) ChildrenOf(v Vertex) []Vertex {
	succ := s.po.Visibility.Out(v.Txn)
	children := make([]Vertex, len(succ))
	for i, t := range succ {
		children[i] = Vertex{Txn: t}
	}
	return children
}

func (s *SerializableSolver) AllowNext(_ []Vertex, v Vertex) bool {
	return s.active.allowWriter(v.Txn, s.po.History[v.Txn].Writes)
}

func (s *SerializableSolver) ForwardBookKeeping(lin []Vertex) {
	v := lin[len(lin)-1]
	info := s.po.History[v.Txn]
	// Resolve reads before installing writes so a self-reading writer
	// leaves no stale entry behind.
	s.active.resolve(v.Txn, info.Reads)
	s.active.install(s.po, v.Txn, info.Writes)
}

func (s *SerializableSolver) BacktrackBookKeeping(lin []Vertex) {
	v := lin[len(lin)-1]
	info := s.po.History[v.Txn]
	s.active.release(info.Writes)
	s.active.unresolve(v.Txn, info.Reads)
}

func (s *SerializableSolver) BranchScore(_ []Vertex, v Vertex) int64 {
	return int64(len(s.ChildrenOf(v)))
}

func (s *SerializableSolver) ZobristValue(v Vertex) Hash128 {
	return HashVertex(zobristSeedVertex, v)
}

// FrontierSignature mixes the outstanding-reader state into the
// frontier hash.
func (s *SerializableSolver) FrontierSignature(frontierHash Hash128, _ []Vertex) Hash128 {
	return frontierHash.Xor(s.active.signature())
}

func (s *SerializableSolver) ShouldPrune(_ []Vertex, _ int) bool { return false }
