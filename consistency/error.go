package consistency

import (
	"encoding/json"
	"fmt"

	"github.com/txncheck/txncheck/history"
)

// Check returns one of three error shapes: *history.NonAtomicError for
// structurally malformed input, *CycleError from the polynomial-level
// saturation checkers, and *InvalidError from the NP-complete-level
// linearization checkers.

// InvalidError reports that no valid total order exists for the
// requested level. It names no specific conflict, since extracting a
// minimal one is itself intractable.
type InvalidError struct {
	Level Level `json:"Invalid"`
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("history does not satisfy %s", e.Level)
}

// CycleError reports a visibility cycle found by a saturation checker.
// The edge (A, B) lies on the cycle.
type CycleError struct {
	Level Level                 `json:"level"`
	A     history.TransactionID `json:"a"`
	B     history.TransactionID `json:"b"`
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s visibility cycle through %s -> %s", e.Level, e.A, e.B)
}

// MarshalJSON renders {"Cycle": {"level": ..., "a": ..., "b": ...}}.
func (e *CycleError) MarshalJSON() ([]byte, error) {
	type body CycleError
	return json.Marshal(map[string]*body{"Cycle": (*body)(e)})
}
