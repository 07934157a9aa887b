package linearize

import (
	"github.com/txncheck/txncheck/history"
)

// SnapshotIsolationSolver strengthens the prefix search with write-
// write conflict freedom. On top of the outstanding-reader rule it
// tracks activeVariable, the variables written by transactions whose
// read phase is placed but whose write phase is not. A read phase is
// blocked while any of its transaction's written variables is active,
// so two writers of the same variable never overlap.
type SnapshotIsolationSolver struct {
	po             *history.AtomicPO
	opts           Options
	active         activeWrites
	activeVariable map[history.Variable]struct{}
}

// NewSnapshotIsolation wraps a saturated partial order in a snapshot
// isolation solver.
func NewSnapshotIsolation(po *history.AtomicPO, opts Options) *SnapshotIsolationSolver {
	return &SnapshotIsolationSolver{
		po:             po,
		opts:           opts,
		active:         make(activeWrites),
		activeVariable: make(map[history.Variable]struct{}),
	}
}

func (s *SnapshotIsolationSolver) Options() Options { return s.opts }

func (s *SnapshotIsolationSolver) Vertices() []Vertex { return splitVertices(s.po) }

func (s *SnapshotIsolationSolver) ChildrenOf(v Vertex) []Vertex { return splitChildren(s.po, v) }

func (s *SnapshotIsolationSolver) AllowNext(_ []Vertex, v Vertex) bool {
	info := s.po.History[v.Txn]
	if v.Write {
		return s.active.allowWriter(v.Txn, info.Writes)
	}
	for x := range info.Writes {
		if _, locked := s.activeVariable[x]; locked {
			return false
		}
	}
	return true
}

func (s *SnapshotIsolationSolver) ForwardBookKeeping(lin []Vertex) {
	v := lin[len(lin)-1]
	info := s.po.History[v.Txn]
	if v.Write {
		s.active.install(s.po, v.Txn, info.Writes)
		for x := range info.Writes {
			delete(s.activeVariable, x)
		}
	} else {
		s.active.resolve(v.Txn, info.Reads)
		for x := range info.Writes {
			s.activeVariable[x] = struct{}{}
		}
	}
}

func (s *SnapshotIsolationSolver) BacktrackBookKeeping(lin []Vertex) {
	v := lin[len(lin)-1]
	info := s.po.History[v.Txn]
	if v.Write {
		s.active.release(info.Writes)
		for x := range info.Writes {
			s.activeVariable[x] = struct{}{}
		}
	} else {
		s.active.unresolve(v.Txn, info.Reads)
		for x := range info.Writes {
			delete(s.activeVariable, x)
		}
	}
}

// BranchScore favors moves that unlock the most follow-up work: write
// phases releasing locked variables and read phases resolving
// outstanding reads, weighted above plain out-degree.
func (s *SnapshotIsolationSolver) BranchScore(_ []Vertex, v Vertex) int64 {
	info := s.po.History[v.Txn]
	childScore := int64(len(s.ChildrenOf(v)))
	writeSetScore := int64(len(info.Writes))

	if v.Write {
		var release int64
		for x := range info.Writes {
			if _, locked := s.activeVariable[x]; locked {
				release++
			}
		}
		return release*8 + childScore*2 + writeSetScore + 2
	}

	var unresolved int64
	for x := range info.Reads {
		if set, ok := s.active[x]; ok {
			if _, pending := set[v.Txn]; pending {
				unresolved++
			}
		}
	}
	return unresolved*8 + childScore*2 + writeSetScore*2
}

func (s *SnapshotIsolationSolver) ZobristValue(v Vertex) Hash128 {
	return HashVertex(zobristSeedVertex, v)
}

// FrontierSignature mixes both constraint trackers into the frontier
// hash, so memoized and learned entries never identify states that
// differ in outstanding readers or locked variables.
func (s *SnapshotIsolationSolver) FrontierSignature(frontierHash Hash128, _ []Vertex) Hash128 {
	sig := frontierHash.Xor(s.active.signature())
	for x := range s.activeVariable {
		sig = sig.Xor(HashVariable(sigSeedActiveVar, x))
	}
	return sig
}

func (s *SnapshotIsolationSolver) ShouldPrune(_ []Vertex, _ int) bool { return false }
