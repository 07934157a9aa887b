package linearize

import (
	"github.com/txncheck/txncheck/history"
)

// PrefixSolver decides prefix consistency over a causally saturated
// partial order. Each transaction splits into a read phase (its
// snapshot point) and a write phase (its commit point); a write phase
// may only be placed once every outstanding reader of the same
// variables has taken its snapshot, so every snapshot observes a prefix
// of the commit order.
type PrefixSolver struct {
	po     *history.AtomicPO
	opts   Options
	active activeWrites
}

// NewPrefix wraps a saturated partial order in a prefix solver.
func NewPrefix(po *history.AtomicPO, opts Options) *PrefixSolver {
	return &PrefixSolver{po: po, opts: opts, active: make(activeWrites)}
}

func (s *PrefixSolver) Options() Options { return s.opts }

func (s *PrefixSolver) Vertices() []Vertex { return splitVertices(s.po) }

func (s *PrefixSolver) ChildrenOf(v Vertex) []Vertex { return splitChildren(s.po, v) }

func (s *PrefixSolver) AllowNext(_ []Vertex, v Vertex) bool {
	if !v.Write {
		return true
	}
	return s.active.allowWriter(v.Txn, s.po.History[v.Txn].Writes)
}

func (s *PrefixSolver) ForwardBookKeeping(lin []Vertex) {
	v := lin[len(lin)-1]
	info := s.po.History[v.Txn]
	if v.Write {
		s.active.install(s.po, v.Txn, info.Writes)
	} else {
		s.active.resolve(v.Txn, info.Reads)
	}
}

func (s *PrefixSolver) BacktrackBookKeeping(lin []Vertex) {
	v := lin[len(lin)-1]
	info := s.po.History[v.Txn]
	if v.Write {
		s.active.release(info.Writes)
	} else {
		s.active.unresolve(v.Txn, info.Reads)
	}
}

func (s *PrefixSolver) BranchScore(_ []Vertex, v Vertex) int64 {
	return int64(len(s.ChildrenOf(v)))
}

func (s *PrefixSolver) ZobristValue(v Vertex) Hash128 {
	return HashVertex(zobristSeedVertex, v)
}

// FrontierSignature mixes the outstanding-reader state into the
// frontier hash. Two states with the same frontier but different
// outstanding readers must not be identified.
func (s *PrefixSolver) FrontierSignature(frontierHash Hash128, _ []Vertex) Hash128 {
	return frontierHash.Xor(s.active.signature())
}

func (s *PrefixSolver) ShouldPrune(_ []Vertex, _ int) bool { return false }
