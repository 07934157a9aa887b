package consistency

import (
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/txncheck/txncheck/consistency/linearize"
	"github.com/txncheck/txncheck/history"
)

// CheckOptions carries the search tuning of each NP-complete level.
type CheckOptions struct {
	Prefix            linearize.Options
	SnapshotIsolation linearize.Options
	Serializable      linearize.Options
}

// DefaultCheckOptions tunes the snapshot isolation search aggressively
// and leaves the others on the plain memoized DFS.
func DefaultCheckOptions() CheckOptions {
	return CheckOptions{
		Prefix:            linearize.DefaultOptions(),
		SnapshotIsolation: linearize.TunedOptions(),
		Serializable:      linearize.DefaultOptions(),
	}
}

// Check decides whether a history satisfies a consistency level.
//
// On success the witness is a SaturationOrder for the polynomial
// levels, a CommitOrder for Prefix and Serializable, and a
// SplitCommitOrder for SnapshotIsolation. The empty history yields an
// empty CommitOrder for every level.
//
// On failure the error is a *history.NonAtomicError for structurally
// malformed input, a *CycleError from a saturation checker, or an
// *InvalidError from a linearization checker.
func Check(h history.History, level Level) (Witness, error) {
	return CheckWithOptions(h, level, DefaultCheckOptions())
}

// CheckWithOptions is Check with explicit search tuning.
func CheckWithOptions(h history.History, level Level, opts CheckOptions) (Witness, error) {
	log.L().Debug("checking consistency",
		zap.Int("sessions", len(h)),
		zap.Stringer("level", level))

	if verr := history.Validate(h); verr != nil {
		return nil, verr
	}
	if realSessions(h) == 0 {
		return CommitOrder{}, nil
	}

	switch level {
	case CommittedRead:
		order, err := CheckCommittedRead(h)
		if err != nil {
			return nil, err
		}
		return SaturationOrder{Order: order}, nil
	case AtomicRead:
		po, err := CheckAtomicRead(h)
		if err != nil {
			return nil, err
		}
		return SaturationOrder{Order: po.Visibility}, nil
	case Causal:
		po, err := CheckCausal(h)
		if err != nil {
			return nil, err
		}
		return SaturationOrder{Order: po.Visibility}, nil
	default:
		return checkNPC(h, level, opts)
	}
}

func realSessions(h history.History) int {
	n := 0
	for _, session := range h {
		if len(session) > 0 {
			n++
		}
	}
	return n
}

// checkNPC decides an NP-complete level: causal saturation first, then
// decomposition along the communication graph, each component solved
// by the level's linearization solver.
func checkNPC(h history.History, level Level, opts CheckOptions) (Witness, error) {
	atomic, verr := history.BuildAtomic(h)
	if verr != nil {
		return nil, verr
	}
	po := saturateCausal(history.NewPO(atomic))
	if !po.HasValidVisibility() {
		// The causal prerequisite already rules the level out.
		return nil, &InvalidError{Level: level}
	}

	if realSessions(h) == 1 {
		return singletonWitness(h, level), nil
	}

	components := sessionComponents(po)
	var nontrivial [][]uint64
	for _, comp := range components {
		if len(comp) >= 2 {
			nontrivial = append(nontrivial, comp)
		}
	}
	log.L().Debug("communication graph decomposition",
		zap.Int("components", len(nontrivial)),
		zap.Int("sessions", len(h)),
		zap.Stringer("level", level),
		zap.Bool("decomposable", components != nil))

	if components == nil || len(nontrivial) <= 1 {
		return solveWhole(po, level, opts)
	}

	merged := emptyWitness(level)
	for _, sessionIDs := range nontrivial {
		sub := make(history.History, len(sessionIDs))
		for i, sid := range sessionIDs {
			sub[i] = h[sid-1]
		}
		subWitness, err := checkNPC(sub, level, opts)
		if err != nil {
			return nil, err
		}
		merged = mergeWitness(merged, remapWitness(subWitness, sessionIDs))
	}
	return merged, nil
}

// solveWhole runs the level's solver over the full saturated order.
func solveWhole(po *history.AtomicPO, level Level, opts CheckOptions) (Witness, error) {
	switch level {
	case Prefix:
		lin, ok := linearize.Search(linearize.NewPrefix(po, opts.Prefix))
		if !ok {
			return nil, &InvalidError{Level: Prefix}
		}
		order := make(CommitOrder, 0, len(lin)/2)
		for _, v := range lin {
			if v.Write {
				order = append(order, v.Txn)
			}
		}
		return order, nil
	case SnapshotIsolation:
		lin, ok := linearize.Search(linearize.NewSnapshotIsolation(po, opts.SnapshotIsolation))
		if !ok {
			return nil, &InvalidError{Level: SnapshotIsolation}
		}
		order := make(SplitCommitOrder, len(lin))
		for i, v := range lin {
			order[i] = PhasedTransaction{Txn: v.Txn, Write: v.Write}
		}
		return order, nil
	default:
		lin, ok := linearize.Search(linearize.NewSerializable(po, opts.Serializable))
		if !ok {
			return nil, &InvalidError{Level: Serializable}
		}
		order := make(CommitOrder, len(lin))
		for i, v := range lin {
			order[i] = v.Txn
		}
		return order, nil
	}
}

// singletonWitness is the trivial witness of a one-session history
// whose causal prerequisite passed: the session order itself.
func singletonWitness(h history.History, level Level) Witness {
	ids := []history.TransactionID{history.RootTransaction()}
	for sIdx, session := range h {
		sessionID := uint64(sIdx) + 1
		for tIdx := range session {
			ids = append(ids, history.TransactionID{
				SessionID:     sessionID,
				SessionHeight: uint64(tIdx),
			})
		}
	}
	if level != SnapshotIsolation {
		return CommitOrder(ids)
	}
	order := make(SplitCommitOrder, 0, 2*len(ids))
	for _, id := range ids {
		order = append(order,
			PhasedTransaction{Txn: id},
			PhasedTransaction{Txn: id, Write: true})
	}
	return order
}

func emptyWitness(level Level) Witness {
	if level == SnapshotIsolation {
		return SplitCommitOrder{
			{Txn: history.RootTransaction()},
			{Txn: history.RootTransaction(), Write: true},
		}
	}
	return CommitOrder{history.RootTransaction()}
}

// remapWitness rewrites sub-history session ids back to the original
// ones. sessionIDs[i] is the original id of sub-history session i+1.
func remapWitness(w Witness, sessionIDs []uint64) Witness {
	remap := func(tid history.TransactionID) history.TransactionID {
		if tid.IsRoot() {
			return tid
		}
		return history.TransactionID{
			SessionID:     sessionIDs[tid.SessionID-1],
			SessionHeight: tid.SessionHeight,
		}
	}
	switch w := w.(type) {
	case CommitOrder:
		out := make(CommitOrder, len(w))
		for i, tid := range w {
			out[i] = remap(tid)
		}
		return out
	case SplitCommitOrder:
		out := make(SplitCommitOrder, len(w))
		for i, p := range w {
			out[i] = PhasedTransaction{Txn: remap(p.Txn), Write: p.Write}
		}
		return out
	default:
		return w
	}
}

// mergeWitness concatenates a sub-witness onto the merged one. Each
// sub-witness carries its own copy of the root, which is dropped in
// favor of the single leading root of the merged witness.
func mergeWitness(base, sub Witness) Witness {
	switch base := base.(type) {
	case CommitOrder:
		for _, tid := range sub.(CommitOrder) {
			if tid.IsRoot() {
				continue
			}
			base = append(base, tid)
		}
		return base
	case SplitCommitOrder:
		for _, p := range sub.(SplitCommitOrder) {
			if p.Txn.IsRoot() {
				continue
			}
			base = append(base, p)
		}
		return base
	default:
		return base
	}
}
