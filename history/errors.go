package history

import (
	"encoding/json"
	"fmt"
)

// NonAtomicKind classifies why a raw history fails to normalize into
// atomic transactions.
type NonAtomicKind int

const (
	// KindIncompleteHistory marks an internal validator inconsistency:
	// an event resolved during one pass cannot be resolved in a later
	// one. It does not surface for well-formed inputs.
	KindIncompleteHistory NonAtomicKind = iota
	// KindUnknownVersion marks a read observing a version that no write
	// in the history installs.
	KindUnknownVersion
	// KindSameVersionWrite marks two writes installing the same version
	// of the same variable.
	KindSameVersionWrite
	// KindUncommittedRead marks a committed transaction reading a
	// version whose writer never committed.
	KindUncommittedRead
	// KindOverwrittenRead marks a read observing a version its writer
	// overwrote before committing.
	KindOverwrittenRead
	// KindLocalRead marks a read that observes a write of its own
	// transaction other than the latest preceding one.
	KindLocalRead
	// KindNonRepeatableRead marks a transaction observing two different
	// external writers for the same variable.
	KindNonRepeatableRead
	// KindVersionlessWrite marks a write event carrying no version.
	// Every write installs a version; the constructors enforce that, but
	// a hand-built event can omit it.
	KindVersionlessWrite
)

func (k NonAtomicKind) String() string {
	switch k {
	case KindIncompleteHistory:
		return "IncompleteHistory"
	case KindUnknownVersion:
		return "UnknownVersion"
	case KindSameVersionWrite:
		return "SameVersionWrite"
	case KindUncommittedRead:
		return "UncommittedRead"
	case KindOverwrittenRead:
		return "OverwrittenRead"
	case KindLocalRead:
		return "LocalReadInconsistentWithLocalWrite"
	case KindNonRepeatableRead:
		return "NonRepeatableRead"
	case KindVersionlessWrite:
		return "VersionlessWrite"
	}
	return fmt.Sprintf("NonAtomicKind(%d)", int(k))
}

// MarshalJSON renders the kind as its name.
func (k NonAtomicKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// NonAtomicError reports that a history cannot be normalized into
// atomic transactions. Event and EventID name the offending event;
// Related lists the ids of the writes involved, when any.
type NonAtomicError struct {
	Kind    NonAtomicKind `json:"kind"`
	Event   Event         `json:"event"`
	EventID EventID       `json:"event_id"`
	Related []EventID     `json:"related,omitempty"`
}

// MarshalJSON renders {"NonAtomic": {...}}, the externally-tagged
// shape shared by the checker errors.
func (e *NonAtomicError) MarshalJSON() ([]byte, error) {
	type body NonAtomicError
	return json.Marshal(map[string]*body{"NonAtomic": (*body)(e)})
}

func (e *NonAtomicError) Error() string {
	if len(e.Related) == 0 {
		return fmt.Sprintf("non-atomic history: %s at %s %s", e.Kind, e.EventID, e.Event)
	}
	return fmt.Sprintf("non-atomic history: %s at %s %s, involving %v", e.Kind, e.EventID, e.Event, e.Related)
}
