package consistency

import (
	"github.com/txncheck/txncheck/graph"
	"github.com/txncheck/txncheck/history"
)

func sessionLess(a, b uint64) bool { return a < b }

// communicationGraph connects two sessions whenever a transaction of
// one reads a version written by a transaction of the other. Reads
// from the root do not connect anything.
func communicationGraph(po *history.AtomicPO) *graph.UGraph[uint64] {
	comm := graph.NewUGraph[uint64]()
	for tid, info := range po.History {
		if tid.IsRoot() {
			continue
		}
		comm.AddVertex(tid.SessionID)
		for _, writer := range info.Reads {
			if writer.IsRoot() || writer.SessionID == tid.SessionID {
				continue
			}
			comm.AddEdge(writer.SessionID, tid.SessionID)
		}
	}
	return comm
}

// sessionComponents returns groups of sessions whose checks are
// independent, or nil when decomposition is unsafe. Biconnected
// components without articulation points coincide with the connected
// components; an articulation session is shared between blocks, and
// projecting it away would lose writer context, so the whole problem
// is solved instead.
func sessionComponents(po *history.AtomicPO) [][]uint64 {
	comm := communicationGraph(po)
	articulation, _, _ := graph.BiconnectedComponents(comm, sessionLess)
	if len(articulation) > 0 {
		return nil
	}
	return comm.ConnectedComponents(sessionLess)
}
