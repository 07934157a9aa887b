package history

// ReadObservation is one external read of a committed transaction
// together with the transaction whose write it observed. Reads of the
// initial version observe the root.
type ReadObservation struct {
	Reader   EventID
	Writer   TransactionID
	Variable Variable
}

// ExternalReads lists the external read observations of every
// committed transaction in event order. Reads a transaction serves
// from its own writes are omitted.
func (h History) ExternalReads() ([]ReadObservation, *NonAtomicError) {
	writes, err := allWrites(h)
	if err != nil {
		return nil, err
	}

	var obs []ReadObservation
	for sIdx, session := range h {
		sessionID := uint64(sIdx) + 1
		for tIdx, txn := range session {
			if !txn.Committed {
				continue
			}
			tid := TransactionID{SessionID: sessionID, SessionHeight: uint64(tIdx)}
			for eIdx, event := range txn.Events {
				if event.IsWrite {
					continue
				}
				id := EventID{
					SessionID:         sessionID,
					SessionHeight:     uint64(tIdx),
					TransactionHeight: uint64(eIdx),
				}
				writerID, ok := resolveRead(writes, event)
				if !ok {
					return nil, &NonAtomicError{Kind: KindUnknownVersion, Event: event, EventID: id}
				}
				writer := writerID.TransactionID()
				if writer == tid {
					continue
				}
				obs = append(obs, ReadObservation{
					Reader:   id,
					Writer:   writer,
					Variable: event.Variable,
				})
			}
		}
	}
	return obs, nil
}
