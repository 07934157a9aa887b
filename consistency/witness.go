package consistency

import (
	"encoding/json"

	"github.com/pingcap/errors"

	"github.com/txncheck/txncheck/graph"
	"github.com/txncheck/txncheck/history"
)

// Witness is the evidence that a history satisfies a level. Exactly one
// of three shapes is produced: a commit order (Prefix, Serializable and
// the empty history), a split commit order (SnapshotIsolation) or a
// saturation order (the polynomial levels).
type Witness interface {
	isWitness()
}

// CommitOrder is a total order over transactions, root first.
type CommitOrder []history.TransactionID

func (CommitOrder) isWitness() {}

// PhasedTransaction is one half of a split transaction.
type PhasedTransaction struct {
	Txn history.TransactionID `json:"txn"`
	// Write distinguishes the write phase from the read phase.
	Write bool `json:"write"`
}

// SplitCommitOrder is a total order over transaction phases, each
// transaction's read phase before its write phase.
type SplitCommitOrder []PhasedTransaction

func (SplitCommitOrder) isWitness() {}

// SaturationOrder is the acyclic visibility relation a saturation
// checker reached its fixpoint with.
type SaturationOrder struct {
	Order *graph.DiGraph[history.TransactionID]
}

func (SaturationOrder) isWitness() {}

// MarshalJSON renders {"CommitOrder": [...]}.
func (w CommitOrder) MarshalJSON() ([]byte, error) {
	order := []history.TransactionID(w)
	if order == nil {
		order = []history.TransactionID{}
	}
	return json.Marshal(map[string][]history.TransactionID{"CommitOrder": order})
}

// MarshalJSON renders {"SplitCommitOrder": [...]}.
func (w SplitCommitOrder) MarshalJSON() ([]byte, error) {
	order := []PhasedTransaction(w)
	if order == nil {
		order = []PhasedTransaction{}
	}
	return json.Marshal(map[string][]PhasedTransaction{"SplitCommitOrder": order})
}

// MarshalJSON renders {"SaturationOrder": {"edges": [...]}} with a
// deterministic edge list.
func (w SaturationOrder) MarshalJSON() ([]byte, error) {
	type edge struct {
		From history.TransactionID `json:"from"`
		To   history.TransactionID `json:"to"`
	}
	edges := []edge{}
	for _, e := range w.Order.ToEdgeList(history.TransactionIDLess) {
		edges = append(edges, edge{From: e.From, To: e.To})
	}
	return json.Marshal(map[string]map[string][]edge{
		"SaturationOrder": {"edges": edges},
	})
}

// UnmarshalWitness parses the tagged witness shape produced by the
// marshalers above. A saturation order comes back as its edge list.
func UnmarshalWitness(data []byte) (Witness, error) {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, errors.AddStack(err)
	}
	if len(tagged) != 1 {
		return nil, errors.Errorf("witness must have exactly one tag, got %d", len(tagged))
	}
	for tag, raw := range tagged {
		switch tag {
		case "CommitOrder":
			var order CommitOrder
			if err := json.Unmarshal(raw, (*[]history.TransactionID)(&order)); err != nil {
				return nil, errors.AddStack(err)
			}
			return order, nil
		case "SplitCommitOrder":
			var order SplitCommitOrder
			if err := json.Unmarshal(raw, (*[]PhasedTransaction)(&order)); err != nil {
				return nil, errors.AddStack(err)
			}
			return order, nil
		case "SaturationOrder":
			var body struct {
				Edges []struct {
					From history.TransactionID `json:"from"`
					To   history.TransactionID `json:"to"`
				} `json:"edges"`
			}
			if err := json.Unmarshal(raw, &body); err != nil {
				return nil, errors.AddStack(err)
			}
			g := graph.NewDiGraph[history.TransactionID]()
			for _, e := range body.Edges {
				g.AddEdge(e.From, e.To)
			}
			return SaturationOrder{Order: g}, nil
		default:
			return nil, errors.Errorf("unknown witness tag %q", tag)
		}
	}
	return nil, errors.New("empty witness")
}
