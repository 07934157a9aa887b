package consistency

import (
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/txncheck/txncheck/graph"
	"github.com/txncheck/txncheck/history"
)

// CheckCausal decides causal consistency and returns the saturated
// partial order. The visibility relation is kept transitively closed
// while the write-write rule is applied to fixpoint; a cycle surfaces
// as a self-loop during incremental closure and stops the loop.
func CheckCausal(h history.History) (*history.AtomicPO, error) {
	atomic, verr := history.BuildAtomic(h)
	if verr != nil {
		return nil, verr
	}
	po := saturateCausal(history.NewPO(atomic))

	if !po.HasValidVisibility() {
		return nil, cycleOrInvalid(po, Causal)
	}
	return po, nil
}

// saturateCausal closes visibility over write-read edges and the
// write-write rule. The result may be cyclic; the caller decides how
// to report that.
func saturateCausal(po *history.AtomicPO) *history.AtomicPO {
	po.VisIncludes(po.WRUnion)
	po.VisIsTrans()

	for iteration := 0; ; iteration++ {
		var newEdges []graph.Edge[history.TransactionID]
		for _, wwx := range po.CausalWW() {
			for _, e := range wwx.ToEdgeList(history.TransactionIDLess) {
				if !po.Visibility.HasEdge(e.From, e.To) {
					newEdges = append(newEdges, e)
				}
			}
		}
		if len(newEdges) == 0 {
			log.L().Debug("causal saturation fixpoint",
				zap.Int("iterations", iteration))
			return po
		}
		po.VisIncludesIncremental(newEdges)
		if po.Visibility.HasSelfLoop() {
			// Already inconsistent, no point saturating further.
			return po
		}
	}
}
