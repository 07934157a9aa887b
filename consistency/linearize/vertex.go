// Package linearize implements the constrained-linearization search
// used by the NP-complete consistency checks. A solver describes a
// precedence DAG over (transaction, phase) vertices plus a
// consistency-specific placement constraint; the engine searches for a
// topological ordering satisfying the constraint using an explicit
// stack DFS with Zobrist memoization, nogood learning, dominance
// pruning, move-ordering heuristics and randomized restarts.
package linearize

import (
	"encoding/binary"

	farm "github.com/dgryski/go-farm"

	"github.com/txncheck/txncheck/history"
)

// Vertex is one node of the linearization DAG. Split-phase solvers use
// both phases of a transaction; whole-transaction solvers only the
// read phase.
type Vertex struct {
	Txn   history.TransactionID
	Write bool
}

// Less orders vertices by transaction, read phase before write phase.
// It is the deterministic base ordering of every candidate list.
func (v Vertex) Less(o Vertex) bool {
	if v.Txn != o.Txn {
		return v.Txn.Less(o.Txn)
	}
	return !v.Write && o.Write
}

func (v Vertex) String() string {
	if v.Write {
		return v.Txn.String() + "w"
	}
	return v.Txn.String() + "r"
}

// Hash128 is a 128-bit Zobrist tag. Frontier and state signatures are
// built by XOR-ing tags, so insertion and removal are O(1).
type Hash128 struct {
	Hi, Lo uint64
}

// Xor combines two tags.
func (h Hash128) Xor(o Hash128) Hash128 {
	return Hash128{Hi: h.Hi ^ o.Hi, Lo: h.Lo ^ o.Lo}
}

func fingerprint(buf []byte) Hash128 {
	lo, hi := farm.Fingerprint128(buf)
	return Hash128{Hi: hi, Lo: lo}
}

// HashVertex derives the Zobrist tag of a vertex under a seed.
func HashVertex(seed uint64, v Vertex) Hash128 {
	var buf [25]byte
	binary.LittleEndian.PutUint64(buf[0:], seed)
	binary.LittleEndian.PutUint64(buf[8:], v.Txn.SessionID)
	binary.LittleEndian.PutUint64(buf[16:], v.Txn.SessionHeight)
	if v.Write {
		buf[24] = 1
	}
	return fingerprint(buf[:])
}

// HashTxn derives a tag for a bare transaction id under a seed.
func HashTxn(seed uint64, t history.TransactionID) Hash128 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], seed)
	binary.LittleEndian.PutUint64(buf[8:], t.SessionID)
	binary.LittleEndian.PutUint64(buf[16:], t.SessionHeight)
	return fingerprint(buf[:])
}

// HashUint derives a tag for an integer under a seed.
func HashUint(seed, n uint64) Hash128 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:], seed)
	binary.LittleEndian.PutUint64(buf[8:], n)
	return fingerprint(buf[:])
}

// HashVariable derives a tag for a variable under a seed.
func HashVariable(seed uint64, x history.Variable) Hash128 {
	return HashUint(seed, uint64(x))
}
