package consistency

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txncheck/txncheck/history"
)

const (
	varX history.Variable = 1
	varY history.Variable = 2
)

func tid(session, height uint64) history.TransactionID {
	return history.TransactionID{SessionID: session, SessionHeight: height}
}

// serialChain has an obvious serial order: the writer then the reader.
func serialChain() history.History {
	return history.History{
		{history.Committed(history.Write(varX, 1), history.Write(varY, 2))},
		{history.Committed(history.Read(varX, 1), history.Read(varY, 2))},
	}
}

// writeSkewHistory reads each other's pre-image with disjoint write
// sets. Snapshot isolation admits it, serializability does not.
func writeSkewHistory() history.History {
	return history.History{
		{history.Committed(history.Write(varX, 1), history.Write(varY, 2))},
		{history.Committed(history.Read(varX, 1), history.Write(varY, 3))},
		{history.Committed(history.Read(varY, 2), history.Write(varX, 4))},
	}
}

// lostUpdateHistory has two transactions that both read the same
// version of x and then overwrite it. Their write sets overlap, so
// snapshot isolation rejects it while causal consistency admits it.
func lostUpdateHistory() history.History {
	return history.History{
		{history.Committed(history.Write(varX, 1))},
		{history.Committed(history.Read(varX, 1), history.Write(varX, 2))},
		{history.Committed(history.Read(varX, 1), history.Write(varX, 3))},
	}
}

// staleReadHistory observes y=1 written after x=1, then reads the
// initial version of x. Causally inconsistent.
func staleReadHistory() history.History {
	return history.History{
		{history.Committed(history.Write(varX, 1))},
		{history.Committed(history.Read(varX, 1), history.Write(varY, 1))},
		{history.Committed(history.Read(varY, 1), history.InitialRead(varX))},
	}
}

func allLevels() []Level {
	return []Level{CommittedRead, AtomicRead, Causal, Prefix, SnapshotIsolation, Serializable}
}

func TestSerialChainPassesEveryLevel(t *testing.T) {
	h := serialChain()
	for _, level := range allLevels() {
		w, err := Check(h, level)
		require.NoError(t, err, "level %s", level)
		require.NotNil(t, w, "level %s", level)
	}
}

func TestSerialChainSerializableWitness(t *testing.T) {
	w, err := Check(serialChain(), Serializable)
	require.NoError(t, err)

	order, ok := w.(CommitOrder)
	require.True(t, ok)
	assert.Equal(t, CommitOrder{tid(0, 0), tid(1, 0), tid(2, 0)}, order)
}

func TestWriteSkewAdmittedBelowSerializable(t *testing.T) {
	h := writeSkewHistory()
	for _, level := range []Level{CommittedRead, AtomicRead, Causal, Prefix, SnapshotIsolation} {
		_, err := Check(h, level)
		assert.NoError(t, err, "level %s", level)
	}

	_, err := Check(h, Serializable)
	var invalid *InvalidError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, Serializable, invalid.Level)
}

func TestLostUpdateRejectedBySnapshotIsolation(t *testing.T) {
	h := lostUpdateHistory()
	for _, level := range []Level{CommittedRead, AtomicRead, Causal, Prefix} {
		_, err := Check(h, level)
		assert.NoError(t, err, "level %s", level)
	}

	for _, level := range []Level{SnapshotIsolation, Serializable} {
		_, err := Check(h, level)
		var invalid *InvalidError
		require.True(t, errors.As(err, &invalid), "level %s", level)
		assert.Equal(t, level, invalid.Level)
	}
}

func TestStaleReadFailsCausalWithCycle(t *testing.T) {
	h := staleReadHistory()

	// The weaker saturation levels do not chase the transitive
	// dependency, so they still admit the history.
	for _, level := range []Level{CommittedRead, AtomicRead} {
		_, err := Check(h, level)
		assert.NoError(t, err, "level %s", level)
	}

	_, err := Check(h, Causal)
	var cycle *CycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, Causal, cycle.Level)

	// The stronger levels share the causal prerequisite and report the
	// requested level.
	for _, level := range []Level{Prefix, SnapshotIsolation, Serializable} {
		_, err := Check(h, level)
		var invalid *InvalidError
		require.True(t, errors.As(err, &invalid), "level %s", level)
		assert.Equal(t, level, invalid.Level)
	}
}

func TestSingleSessionFastPath(t *testing.T) {
	h := history.History{
		{
			history.Committed(history.Write(varX, 1)),
			history.Committed(history.Read(varX, 1), history.Write(varX, 2)),
		},
	}

	w, err := Check(h, Serializable)
	require.NoError(t, err)
	assert.Equal(t, CommitOrder{tid(0, 0), tid(1, 0), tid(1, 1)}, w)

	w, err = Check(h, SnapshotIsolation)
	require.NoError(t, err)
	split, ok := w.(SplitCommitOrder)
	require.True(t, ok)
	require.Len(t, split, 6)
	for i := 0; i < len(split); i += 2 {
		assert.Equal(t, split[i].Txn, split[i+1].Txn)
		assert.False(t, split[i].Write)
		assert.True(t, split[i+1].Write)
	}
}

func TestUnknownVersionIsNonAtomic(t *testing.T) {
	h := history.History{
		{history.Committed(history.Read(varX, 99))},
	}
	for _, level := range allLevels() {
		_, err := Check(h, level)
		var nonAtomic *history.NonAtomicError
		require.True(t, errors.As(err, &nonAtomic), "level %s", level)
		assert.Equal(t, history.KindUnknownVersion, nonAtomic.Kind)
	}
}

func TestEmptyHistory(t *testing.T) {
	for _, level := range allLevels() {
		w, err := Check(nil, level)
		require.NoError(t, err, "level %s", level)
		assert.Equal(t, CommitOrder{}, w, "level %s", level)
	}
	w, err := Check(history.History{{}, {}}, Serializable)
	require.NoError(t, err)
	assert.Equal(t, CommitOrder{}, w)
}

func TestAbortedTransactionsUnconstrained(t *testing.T) {
	// The aborted overwrite of x never blocks anything.
	h := history.History{
		{history.Committed(history.Write(varX, 1))},
		{history.Uncommitted(history.Write(varX, 5))},
		{history.Committed(history.Read(varX, 1))},
	}
	for _, level := range allLevels() {
		_, err := Check(h, level)
		assert.NoError(t, err, "level %s", level)
	}
}

func TestDisjointSessionGroupsDecompose(t *testing.T) {
	// Sessions 1-2 communicate over x, sessions 3-4 over y, never
	// across. The checker splits them and merges the sub-witnesses.
	h := history.History{
		{history.Committed(history.Write(varX, 1))},
		{history.Committed(history.Read(varX, 1))},
		{history.Committed(history.Write(varY, 2))},
		{history.Committed(history.Read(varY, 2))},
	}

	w, err := Check(h, Serializable)
	require.NoError(t, err)
	order, ok := w.(CommitOrder)
	require.True(t, ok)

	require.Len(t, order, 5)
	assert.True(t, order[0].IsRoot())
	seen := make(map[history.TransactionID]bool)
	for _, id := range order {
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}
	for session := uint64(1); session <= 4; session++ {
		assert.True(t, seen[tid(session, 0)], "missing (%d,0)", session)
	}
}

func TestDecompositionAgreesWithWholeProblem(t *testing.T) {
	h := history.History{
		{history.Committed(history.Write(varX, 1))},
		{history.Committed(history.Read(varX, 1), history.Write(varX, 2))},
		{history.Committed(history.Write(varY, 3))},
		{history.Committed(history.Read(varY, 3), history.Write(varY, 4))},
	}
	for _, level := range []Level{Prefix, SnapshotIsolation, Serializable} {
		_, err := Check(h, level)
		assert.NoError(t, err, "level %s", level)
	}

	// Violations inside one group still surface after decomposition.
	bad := history.History{
		{
			history.Committed(history.Write(varX, 1)),
			history.Committed(history.Read(varX, 1), history.Write(varX, 2)),
		},
		{history.Committed(history.Read(varX, 1), history.Write(varX, 3))},
		{history.Committed(history.Write(varY, 4))},
		{history.Committed(history.Read(varY, 4))},
	}
	_, err := Check(bad, SnapshotIsolation)
	var invalid *InvalidError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, SnapshotIsolation, invalid.Level)
}

func TestArticulationSessionSolvesWholeProblem(t *testing.T) {
	// Session 2 communicates with both 1 and 3, so the communication
	// graph has an articulation point and no split happens.
	h := history.History{
		{history.Committed(history.Write(varX, 1))},
		{history.Committed(history.Read(varX, 1), history.Write(varY, 2))},
		{history.Committed(history.Read(varY, 2))},
	}
	w, err := Check(h, Serializable)
	require.NoError(t, err)
	assert.Equal(t, CommitOrder{tid(0, 0), tid(1, 0), tid(2, 0), tid(3, 0)}, w)
}

func TestCheckIsDeterministic(t *testing.T) {
	h := writeSkewHistory()
	first, err := Check(h, SnapshotIsolation)
	require.NoError(t, err)
	second, err := Check(h, SnapshotIsolation)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSnapshotIsolationWitnessShape(t *testing.T) {
	w, err := Check(writeSkewHistory(), SnapshotIsolation)
	require.NoError(t, err)
	split, ok := w.(SplitCommitOrder)
	require.True(t, ok)

	// Four committed transactions including the root, two phases each.
	require.Len(t, split, 8)
	readAt := make(map[history.TransactionID]int)
	for i, p := range split {
		if !p.Write {
			readAt[p.Txn] = i
		} else {
			at, ok := readAt[p.Txn]
			require.True(t, ok, "write phase of %s before its read phase", p.Txn)
			assert.True(t, at < i, "phases of %s out of order", p.Txn)
		}
	}
	// Root commits before anything else starts.
	assert.True(t, split[0].Txn.IsRoot())
	assert.True(t, split[1].Txn.IsRoot())
}

func TestCausalWitnessIsSaturationOrder(t *testing.T) {
	w, err := Check(serialChain(), Causal)
	require.NoError(t, err)
	sat, ok := w.(SaturationOrder)
	require.True(t, ok)
	assert.True(t, sat.Order.HasEdge(tid(1, 0), tid(2, 0)))
	assert.True(t, sat.Order.IsAcyclic())
}

func TestWitnessJSONRoundTrip(t *testing.T) {
	for _, level := range []Level{Causal, SnapshotIsolation, Serializable} {
		w, err := Check(serialChain(), level)
		require.NoError(t, err, "level %s", level)

		data, err := json.Marshal(w)
		require.NoError(t, err, "level %s", level)
		back, err := UnmarshalWitness(data)
		require.NoError(t, err, "level %s", level)

		again, err := json.Marshal(back)
		require.NoError(t, err, "level %s", level)
		assert.JSONEq(t, string(data), string(again), "level %s", level)
	}
}

func TestCommitOrderJSONShape(t *testing.T) {
	w := CommitOrder{tid(0, 0), tid(1, 0)}
	data, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"CommitOrder":[{"session_id":0,"session_height":0},{"session_id":1,"session_height":0}]}`,
		string(data))
}

func TestErrorJSONShapes(t *testing.T) {
	data, err := json.Marshal(&InvalidError{Level: SnapshotIsolation})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Invalid":"SnapshotIsolation"}`, string(data))

	data, err = json.Marshal(&CycleError{Level: Causal, A: tid(1, 0), B: tid(0, 0)})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"Cycle":{"level":"Causal","a":{"session_id":1,"session_height":0},"b":{"session_id":0,"session_height":0}}}`,
		string(data))

	data, err = json.Marshal(&history.NonAtomicError{
		Kind:    history.KindUnknownVersion,
		Event:   history.Read(varX, 9),
		EventID: history.EventID{SessionID: 2, SessionHeight: 1},
	})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"NonAtomic":{"kind":"UnknownVersion","event":{"Read":{"variable":1,"version":9}},"event_id":{"session_id":2,"session_height":1,"transaction_height":0}}}`,
		string(data))
}

func TestLevelJSONAndParse(t *testing.T) {
	for _, level := range allLevels() {
		data, err := json.Marshal(level)
		require.NoError(t, err)

		var back Level
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, level, back)

		parsed, err := ParseLevel(level.String())
		require.NoError(t, err)
		assert.Equal(t, level, parsed)
	}
	_, err := ParseLevel("bogus")
	assert.Error(t, err)
}

func TestCommittedReadRepeatableReadViolation(t *testing.T) {
	// Reading two different external writers of x in one transaction
	// fails normalization before any graph is built.
	h := history.History{
		{history.Committed(history.Write(varX, 1))},
		{history.Committed(history.Write(varX, 2))},
		{history.Committed(history.Read(varX, 1), history.Read(varX, 2))},
	}
	_, err := Check(h, CommittedRead)
	var nonAtomic *history.NonAtomicError
	require.True(t, errors.As(err, &nonAtomic))
	assert.Equal(t, history.KindNonRepeatableRead, nonAtomic.Kind)
}

func TestCheckWithRestartOptions(t *testing.T) {
	opts := DefaultCheckOptions()
	opts.Serializable.RestartAttempts = 2
	opts.Serializable.RestartNodeBudget = 16
	opts.Serializable.NogoodLearning = true
	opts.Serializable.AdaptivePortfolio = true
	opts.Serializable.Seed = 7

	_, err := CheckWithOptions(writeSkewHistory(), Serializable, opts)
	var invalid *InvalidError
	require.True(t, errors.As(err, &invalid))

	w, err := CheckWithOptions(serialChain(), Serializable, opts)
	require.NoError(t, err)
	assert.NotNil(t, w)
}
