package consistency

import (
	"github.com/txncheck/txncheck/graph"
	"github.com/txncheck/txncheck/history"
)

// CheckCommittedRead decides the weakest level and returns the
// committed order graph as witness. The graph holds the per-session
// chains, one edge per external read from writer to reader, and, when
// a transaction reads the same variable twice, an ordering edge
// between the two observed writers. The history satisfies committed
// read iff that graph is acyclic.
func CheckCommittedRead(h history.History) (*graph.DiGraph[history.TransactionID], error) {
	if err := history.Validate(h); err != nil {
		return nil, err
	}

	order := graph.NewDiGraph[history.TransactionID]()
	root := history.RootTransaction()
	order.AddVertex(root)

	for sIdx, session := range h {
		sessionID := uint64(sIdx) + 1
		if len(session) == 0 {
			continue
		}
		order.AddEdge(root, history.TransactionID{SessionID: sessionID})
		for tIdx := 1; tIdx < len(session); tIdx++ {
			order.AddEdge(
				history.TransactionID{SessionID: sessionID, SessionHeight: uint64(tIdx) - 1},
				history.TransactionID{SessionID: sessionID, SessionHeight: uint64(tIdx)},
			)
		}
	}

	obs, verr := h.ExternalReads()
	if verr != nil {
		return nil, verr
	}

	// lastWriter tracks, per reading transaction, the writer observed
	// by the previous read of each variable.
	type readerVar struct {
		reader history.TransactionID
		x      history.Variable
	}
	lastWriter := make(map[readerVar]history.TransactionID)
	for _, o := range obs {
		reader := o.Reader.TransactionID()
		key := readerVar{reader: reader, x: o.Variable}
		if prev, ok := lastWriter[key]; ok && prev != o.Writer {
			// The earlier observed version was overwritten by the later
			// writer before this read.
			order.AddEdge(prev, o.Writer)
		}
		lastWriter[key] = o.Writer
		order.AddEdge(o.Writer, reader)
	}

	if !order.IsAcyclic() {
		if a, b, ok := order.FindCycleEdge(history.TransactionIDLess); ok {
			return nil, &CycleError{Level: CommittedRead, A: a, B: b}
		}
		return nil, &InvalidError{Level: CommittedRead}
	}
	return order, nil
}
