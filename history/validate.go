package history

// writeKey identifies one installed version of a variable, with the
// initial version as a distinguished case.
type writeKey struct {
	variable Variable
	version  Version
	initial  bool
}

func readKey(e Event) writeKey {
	if e.Version == nil {
		return writeKey{variable: e.Variable, initial: true}
	}
	return writeKey{variable: e.Variable, version: *e.Version}
}

// allWrites indexes every write in the history (committed or not) by
// the version it installs. Two writes installing the same version of
// the same variable make the history non-atomic.
func allWrites(h History) (map[writeKey]EventID, *NonAtomicError) {
	writes := make(map[writeKey]EventID)
	for sIdx, session := range h {
		sessionID := uint64(sIdx) + 1
		for tIdx, txn := range session {
			for eIdx, event := range txn.Events {
				if !event.IsWrite {
					continue
				}
				id := EventID{
					SessionID:         sessionID,
					SessionHeight:     uint64(tIdx),
					TransactionHeight: uint64(eIdx),
				}
				if event.Version == nil {
					return nil, &NonAtomicError{
						Kind:    KindVersionlessWrite,
						Event:   event,
						EventID: id,
					}
				}
				key := writeKey{variable: event.Variable, version: *event.Version}
				if other, ok := writes[key]; ok {
					return nil, &NonAtomicError{
						Kind:    KindSameVersionWrite,
						Event:   event,
						EventID: id,
						Related: []EventID{other},
					}
				}
				writes[key] = id
			}
		}
	}
	return writes, nil
}

// resolveRead returns the id of the write a read observes. Reads of
// the initial version resolve to the root event.
func resolveRead(writes map[writeKey]EventID, e Event) (EventID, bool) {
	if e.Version == nil {
		return rootEventID(), true
	}
	id, ok := writes[readKey(e)]
	return id, ok
}

type committedWrite struct {
	version Version
	id      EventID
}

// committedWrites maps (transaction, variable) to the last write of
// that variable in the transaction, for committed transactions. Only
// the last write installs a visible version.
func committedWrites(h History) map[TransactionID]map[Variable]committedWrite {
	writes := make(map[TransactionID]map[Variable]committedWrite)
	for sIdx, session := range h {
		sessionID := uint64(sIdx) + 1
		for tIdx, txn := range session {
			if !txn.Committed {
				continue
			}
			tid := TransactionID{SessionID: sessionID, SessionHeight: uint64(tIdx)}
			for eIdx, event := range txn.Events {
				if !event.IsWrite {
					continue
				}
				if writes[tid] == nil {
					writes[tid] = make(map[Variable]committedWrite)
				}
				writes[tid][event.Variable] = committedWrite{
					version: *event.Version,
					id: EventID{
						SessionID:         sessionID,
						SessionHeight:     uint64(tIdx),
						TransactionHeight: uint64(eIdx),
					},
				}
			}
		}
	}
	return writes
}

// consistentLocalReads checks that a read observing a write of its own
// transaction observes the latest preceding local write of that
// variable.
func consistentLocalReads(h History, writes map[writeKey]EventID) *NonAtomicError {
	for sIdx, session := range h {
		sessionID := uint64(sIdx) + 1
		for tIdx, txn := range session {
			if !txn.Committed {
				continue
			}
			tid := TransactionID{SessionID: sessionID, SessionHeight: uint64(tIdx)}
			localWrites := make(map[Variable]EventID)
			for eIdx, event := range txn.Events {
				id := EventID{
					SessionID:         sessionID,
					SessionHeight:     uint64(tIdx),
					TransactionHeight: uint64(eIdx),
				}
				if event.IsWrite {
					localWrites[event.Variable] = id
					continue
				}
				if event.Version == nil {
					continue
				}
				writerID, ok := resolveRead(writes, event)
				if !ok {
					return &NonAtomicError{Kind: KindUnknownVersion, Event: event, EventID: id}
				}
				if writerID.TransactionID() != tid {
					continue
				}
				if latest, ok := localWrites[event.Variable]; !ok || latest != writerID {
					related := []EventID{writerID}
					if ok {
						related = append(related, latest)
					}
					return &NonAtomicError{
						Kind:    KindLocalRead,
						Event:   event,
						EventID: id,
						Related: related,
					}
				}
			}
		}
	}
	return nil
}

// committedExternalReads checks that every read of a committed
// transaction observes either the initial version or the final write
// of a committed transaction.
func committedExternalReads(h History, writes map[writeKey]EventID) *NonAtomicError {
	committed := committedWrites(h)
	for sIdx, session := range h {
		sessionID := uint64(sIdx) + 1
		for tIdx, txn := range session {
			if !txn.Committed {
				continue
			}
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
					return &NonAtomicError{Kind: KindUnknownVersion, Event: event, EventID: id}
				}
				if writerID == rootEventID() {
					continue
				}
				final, ok := committed[writerID.TransactionID()][event.Variable]
				if !ok {
					return &NonAtomicError{
						Kind:    KindUncommittedRead,
						Event:   event,
						EventID: id,
						Related: []EventID{writerID},
					}
				}
				if final.id != writerID {
					return &NonAtomicError{
						Kind:    KindOverwrittenRead,
						Event:   event,
						EventID: id,
						Related: []EventID{writerID, final.id},
					}
				}
			}
		}
	}
	return nil
}

// repeatableReads checks that all reads of a variable within a
// committed transaction observe a single writer: either one external
// transaction, the initial version, or the transaction's own writes.
func repeatableReads(h History, writes map[writeKey]EventID) *NonAtomicError {
	for sIdx, session := range h {
		sessionID := uint64(sIdx) + 1
		for tIdx, txn := range session {
			if !txn.Committed {
				continue
			}
			latest := make(map[Variable]EventID)
			for eIdx, event := range txn.Events {
				id := EventID{
					SessionID:         sessionID,
					SessionHeight:     uint64(tIdx),
					TransactionHeight: uint64(eIdx),
				}
				if event.IsWrite {
					// Later reads of this variable must observe this write.
					latest[event.Variable] = id
					continue
				}
				writerID, ok := resolveRead(writes, event)
				if !ok {
					return &NonAtomicError{Kind: KindUnknownVersion, Event: event, EventID: id}
				}
				if seen, ok := latest[event.Variable]; ok {
					if seen != writerID {
						return &NonAtomicError{
							Kind:    KindNonRepeatableRead,
							Event:   event,
							EventID: id,
							Related: []EventID{seen, writerID},
						}
					}
				} else {
					latest[event.Variable] = writerID
				}
			}
		}
	}
	return nil
}

// Validate checks that the history normalizes into atomic transactions
// and returns the first violation found, or nil.
func Validate(h History) *NonAtomicError {
	writes, err := allWrites(h)
	if err != nil {
		return err
	}
	if err := consistentLocalReads(h, writes); err != nil {
		return err
	}
	if err := committedExternalReads(h, writes); err != nil {
		return err
	}
	return repeatableReads(h, writes)
}
