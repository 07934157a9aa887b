package consistency

import (
	"github.com/txncheck/txncheck/history"
)

// CheckAtomicRead decides the atomic read level. The visibility
// relation is grown by the write-read edges and one round of the
// write-write rule; no transitive closure is taken, so a single round
// reaches the fixpoint. The returned partial order's visibility
// relation is the acyclic witness.
func CheckAtomicRead(h history.History) (*history.AtomicPO, error) {
	atomic, verr := history.BuildAtomic(h)
	if verr != nil {
		return nil, verr
	}
	po := history.NewPO(atomic)

	po.VisIncludes(po.WRUnion)
	for _, wwx := range po.CausalWW() {
		po.VisIncludes(wwx)
	}

	if !po.HasValidVisibility() {
		return nil, cycleOrInvalid(po, AtomicRead)
	}
	return po, nil
}

func cycleOrInvalid(po *history.AtomicPO, level Level) error {
	if a, b, ok := po.Visibility.FindCycleEdge(history.TransactionIDLess); ok {
		return &CycleError{Level: level, A: a, B: b}
	}
	return &InvalidError{Level: level}
}
