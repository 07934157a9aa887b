package linearize

import (
	"github.com/txncheck/txncheck/history"
)

const (
	zobristSeedVertex = 0x5a0b

	sigSeedReader    = 0x601
	sigSeedVariable  = 0x602
	sigSeedCount     = 0x603
	sigSeedActiveVar = 0x604
)

type readerSet = map[history.TransactionID]struct{}

// activeWrites maps each variable to the readers of its latest placed
// write that have not resolved their read yet. Entries are purged when
// they empty, so a missing entry and an empty one mean the same thing.
type activeWrites map[history.Variable]readerSet

// install replaces each written variable's entry with the readers of
// the writer's version.
func (aw activeWrites) install(po *history.AtomicPO, t history.TransactionID, writes map[history.Variable]struct{}) {
	for x := range writes {
		readers := po.WriteRead[x].Out(t)
		if len(readers) == 0 {
			delete(aw, x)
			continue
		}
		set := make(readerSet, len(readers))
		for _, r := range readers {
			set[r] = struct{}{}
		}
		aw[x] = set
	}
}

// release undoes install. The entry was empty before the matching
// install, so dropping it restores the previous state.
func (aw activeWrites) release(writes map[history.Variable]struct{}) {
	for x := range writes {
		delete(aw, x)
	}
}

// resolve marks t's reads as taken.
func (aw activeWrites) resolve(t history.TransactionID, reads map[history.Variable]history.TransactionID) {
	for x := range reads {
		set := aw[x]
		delete(set, t)
		if len(set) == 0 {
			delete(aw, x)
		}
	}
}

// unresolve undoes resolve.
func (aw activeWrites) unresolve(t history.TransactionID, reads map[history.Variable]history.TransactionID) {
	for x := range reads {
		set := aw[x]
		if set == nil {
			set = make(readerSet)
			aw[x] = set
		}
		set[t] = struct{}{}
	}
}

// allowWriter reports whether t may install its writes: every written
// variable's outstanding readers must be resolved, except t itself.
func (aw activeWrites) allowWriter(t history.TransactionID, writes map[history.Variable]struct{}) bool {
	for x := range writes {
		set, ok := aw[x]
		if !ok || len(set) == 0 {
			continue
		}
		if len(set) == 1 {
			if _, self := set[t]; self {
				continue
			}
		}
		return false
	}
	return true
}

// signature folds the outstanding-reader state into a Zobrist tag. XOR
// keeps it independent of map iteration order.
func (aw activeWrites) signature() Hash128 {
	var sig Hash128
	for x, readers := range aw {
		if len(readers) == 0 {
			continue
		}
		mix := HashVariable(sigSeedVariable, x)
		mix = mix.Xor(HashUint(sigSeedCount, uint64(len(readers))))
		for r := range readers {
			mix = mix.Xor(HashTxn(sigSeedReader, r))
		}
		sig = sig.Xor(mix)
	}
	return sig
}

// splitVertices lists both phases of every transaction, root included.
func splitVertices(po *history.AtomicPO) []Vertex {
	vs := make([]Vertex, 0, 2*len(po.History))
	for t := range po.History {
		vs = append(vs, Vertex{Txn: t}, Vertex{Txn: t, Write: true})
	}
	return vs
}

// splitChildren wires the split-phase DAG: a read phase precedes its
// own write phase, and a write phase precedes the read phases of every
// visibility successor.
func splitChildren(po *history.AtomicPO, v Vertex) []Vertex {
	if !v.Write {
		return []Vertex{{Txn: v.Txn, Write: true}}
	}
	succ := po.Visibility.Out(v.Txn)
	children := make([]Vertex, len(succ))
	for i, t := range succ {
		children[i] = Vertex{Txn: t}
	}
	return children
}
