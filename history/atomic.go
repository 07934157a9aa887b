package history

import "sort"

// AtomicTransactionInfo summarizes one transaction after the raw
// history validates: which variables it read and from whom, and which
// variables it wrote. Only committed transactions carry reads and
// writes; an aborted transaction stays in the session order as a bare
// vertex.
type AtomicTransactionInfo struct {
	// Reads maps each externally-read variable to the committed
	// transaction (possibly the root) whose final write it observed.
	Reads map[Variable]TransactionID
	// Writes is the set of variables the transaction installed a
	// version of.
	Writes map[Variable]struct{}
	// Committed mirrors the raw transaction's commit flag.
	Committed bool
}

// AtomicHistory maps every transaction of a validated history, plus the
// root transaction, to its read/write summary. The root is a committed
// writer of every variable in the history and has no reads.
type AtomicHistory map[TransactionID]*AtomicTransactionInfo

// Variables returns the set of variables touched anywhere in a history.
func (h History) Variables() map[Variable]struct{} {
	vars := make(map[Variable]struct{})
	for _, session := range h {
		for _, txn := range session {
			for _, event := range txn.Events {
				vars[event.Variable] = struct{}{}
			}
		}
	}
	return vars
}

// BuildAtomic validates a raw history and condenses it into atomic
// transaction summaries keyed by transaction id.
func BuildAtomic(h History) (AtomicHistory, *NonAtomicError) {
	if err := Validate(h); err != nil {
		return nil, err
	}

	writes, err := allWrites(h)
	if err != nil {
		return nil, err
	}

	atomic := make(AtomicHistory)

	root := &AtomicTransactionInfo{
		Reads:     make(map[Variable]TransactionID),
		Writes:    h.Variables(),
		Committed: true,
	}
	atomic[RootTransaction()] = root

	for sIdx, session := range h {
		sessionID := uint64(sIdx) + 1
		for tIdx, txn := range session {
			tid := TransactionID{SessionID: sessionID, SessionHeight: uint64(tIdx)}
			info := &AtomicTransactionInfo{
				Reads:     make(map[Variable]TransactionID),
				Writes:    make(map[Variable]struct{}),
				Committed: txn.Committed,
			}
			atomic[tid] = info
			if !txn.Committed {
				continue
			}
			for _, event := range txn.Events {
				if event.IsWrite {
					info.Writes[event.Variable] = struct{}{}
					continue
				}
				writerID, ok := resolveRead(writes, event)
				if !ok {
					// Validate resolved this read already.
					return nil, &NonAtomicError{Kind: KindIncompleteHistory, Event: event}
				}
				writer := writerID.TransactionID()
				if writer != tid {
					info.Reads[event.Variable] = writer
				}
			}
		}
	}

	return atomic, nil
}

// SortedTransactionIDs returns the ids of an atomic history in
// session-then-height order, root first.
func (a AtomicHistory) SortedTransactionIDs() []TransactionID {
	ids := make([]TransactionID, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sortTransactionIDs(ids)
	return ids
}

func sortTransactionIDs(ids []TransactionID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}
