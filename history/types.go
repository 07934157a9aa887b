// Package history defines recorded multi-session executions over a
// transactional key-value store and turns them into the atomic
// transaction form the consistency checkers operate on: validated
// per-transaction read/write summaries plus session-order, write-read
// and visibility relations.
package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pingcap/errors"
)

// Variable identifies a register in the store.
type Variable uint64

// Version identifies one installed value of a variable. Every committed
// write installs a globally unique version; the initial version of a
// variable predates the history and has no number.
type Version uint64

// Event is a single read or write inside a transaction. A read with a
// nil Version observes the initial version of the variable. Writes
// always carry a version.
type Event struct {
	IsWrite  bool
	Variable Variable
	Version  *Version
}

// Read returns a read event observing the given version.
func Read(variable Variable, version Version) Event {
	v := version
	return Event{Variable: variable, Version: &v}
}

// InitialRead returns a read event observing the initial version.
func InitialRead(variable Variable) Event {
	return Event{Variable: variable}
}

// Write returns a write event installing the given version.
func Write(variable Variable, version Version) Event {
	v := version
	return Event{IsWrite: true, Variable: variable, Version: &v}
}

func (e Event) String() string {
	if e.IsWrite {
		if e.Version == nil {
			return fmt.Sprintf("%d:=?", e.Variable)
		}
		return fmt.Sprintf("%d:=%d", e.Variable, *e.Version)
	}
	if e.Version == nil {
		return fmt.Sprintf("%d==?", e.Variable)
	}
	return fmt.Sprintf("%d==%d", e.Variable, *e.Version)
}

type eventFields struct {
	Variable Variable `json:"variable"`
	Version  *Version `json:"version"`
}

// MarshalJSON renders the externally-tagged shape
// {"Read":{"variable":..,"version":..}} / {"Write":{...}}. A read of
// the initial version carries "version": null.
func (e Event) MarshalJSON() ([]byte, error) {
	tag := "Read"
	if e.IsWrite {
		tag = "Write"
	}
	return json.Marshal(map[string]eventFields{
		tag: {Variable: e.Variable, Version: e.Version},
	})
}

// UnmarshalJSON accepts the externally-tagged shape.
func (e *Event) UnmarshalJSON(data []byte) error {
	var tagged map[string]eventFields
	if err := json.Unmarshal(data, &tagged); err != nil {
		return errors.AddStack(err)
	}
	if len(tagged) != 1 {
		return errors.Errorf("event must have exactly one of Read/Write, got %d keys", len(tagged))
	}
	for tag, fields := range tagged {
		switch tag {
		case "Read":
			*e = Event{Variable: fields.Variable, Version: fields.Version}
		case "Write":
			if fields.Version == nil {
				return errors.New("write event requires a version")
			}
			*e = Event{IsWrite: true, Variable: fields.Variable, Version: fields.Version}
		default:
			return errors.Errorf("unknown event tag %q", tag)
		}
	}
	return nil
}

// sameVersion reports whether two optional versions are equal,
// treating nil as the initial version.
func sameVersion(a, b *Version) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Transaction is an ordered sequence of events executed atomically,
// either committed or aborted.
type Transaction struct {
	Events    []Event `json:"events"`
	Committed bool    `json:"committed"`
}

// Committed builds a committed transaction from events.
func Committed(events ...Event) Transaction {
	return Transaction{Events: events, Committed: true}
}

// Uncommitted builds an aborted transaction from events.
func Uncommitted(events ...Event) Transaction {
	return Transaction{Events: events, Committed: false}
}

func (t Transaction) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range t.Events {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.String())
	}
	b.WriteByte(']')
	if !t.Committed {
		b.WriteByte('!')
	}
	return b.String()
}

// Session is the ordered sequence of transactions issued by one client.
type Session = []Transaction

// History is a recorded execution: one session per client. Session ids
// are 1-based; session id 0 is reserved for the root transaction that
// installs every initial version.
type History []Session

// Format renders the whole history in the compact text form, sessions
// separated by "---" lines, one transaction per line.
func (h History) Format() string {
	var b bytes.Buffer
	for i, session := range h {
		if i > 0 {
			b.WriteString("---\n")
		}
		for _, t := range session {
			b.WriteString(t.String())
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// TransactionID locates a transaction by session and position within
// the session. The zero value is the root transaction.
type TransactionID struct {
	SessionID     uint64 `json:"session_id"`
	SessionHeight uint64 `json:"session_height"`
}

// RootTransaction is the id of the synthetic transaction that installs
// the initial version of every variable.
func RootTransaction() TransactionID {
	return TransactionID{}
}

// IsRoot reports whether the id names the root transaction.
func (t TransactionID) IsRoot() bool {
	return t.SessionID == 0
}

// Less orders ids by session, then by height within the session.
func (t TransactionID) Less(o TransactionID) bool {
	if t.SessionID != o.SessionID {
		return t.SessionID < o.SessionID
	}
	return t.SessionHeight < o.SessionHeight
}

func (t TransactionID) String() string {
	return fmt.Sprintf("(%d,%d)", t.SessionID, t.SessionHeight)
}

// EventID locates an event by session, transaction, and position
// within the transaction.
type EventID struct {
	SessionID         uint64 `json:"session_id"`
	SessionHeight     uint64 `json:"session_height"`
	TransactionHeight uint64 `json:"transaction_height"`
}

// TransactionID returns the id of the transaction containing the event.
func (e EventID) TransactionID() TransactionID {
	return TransactionID{SessionID: e.SessionID, SessionHeight: e.SessionHeight}
}

func (e EventID) String() string {
	return fmt.Sprintf("(%d,%d,%d)", e.SessionID, e.SessionHeight, e.TransactionHeight)
}

// rootEventID is where reads of initial versions resolve to.
func rootEventID() EventID {
	return EventID{}
}
