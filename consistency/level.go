// Package consistency decides whether a recorded multi-session history
// satisfies a transactional consistency level. The polynomial levels
// (committed read, atomic read, causal) are decided by saturating a
// visibility relation to a fixpoint; the NP-complete levels (prefix,
// snapshot isolation, serializable) additionally search for a
// constrained linearization, after decomposing the history along its
// communication graph.
package consistency

import (
	"encoding/json"

	"github.com/pingcap/errors"
)

// Level is a consistency level, ordered from weakest to strongest.
// Each level strictly includes all weaker ones.
type Level int

const (
	// CommittedRead forbids dirty reads: only committed writes are
	// observable.
	CommittedRead Level = iota
	// AtomicRead additionally forbids fractured reads: a transaction
	// observing one of a writer's values observes all of them.
	AtomicRead
	// Causal additionally requires visibility to be transitive.
	Causal
	// Prefix requires every snapshot to be a prefix of one total commit
	// order.
	Prefix
	// SnapshotIsolation is Prefix plus write-write conflict freedom.
	SnapshotIsolation
	// Serializable requires an equivalent serial execution.
	Serializable
)

// Polynomial reports whether the level is decided by saturation alone.
// The remaining levels are NP-complete and need the linearization
// search.
func (l Level) Polynomial() bool { return l <= Causal }

func (l Level) String() string {
	switch l {
	case CommittedRead:
		return "CommittedRead"
	case AtomicRead:
		return "AtomicRead"
	case Causal:
		return "Causal"
	case Prefix:
		return "Prefix"
	case SnapshotIsolation:
		return "SnapshotIsolation"
	case Serializable:
		return "Serializable"
	}
	return "Unknown"
}

// MarshalJSON renders the level by name, the stable wire shape.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON parses a level name.
func (l *Level) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return errors.AddStack(err)
	}
	parsed, err := ParseLevel(name)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel maps a level name to its Level.
func ParseLevel(name string) (Level, error) {
	for l := CommittedRead; l <= Serializable; l++ {
		if l.String() == name {
			return l, nil
		}
	}
	return 0, errors.Errorf("unknown consistency level %q", name)
}
