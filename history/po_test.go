package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPO(t *testing.T, h History) *AtomicPO {
	t.Helper()
	atomic, err := BuildAtomic(h)
	require.Nil(t, err)
	return NewPO(atomic)
}

func tid(session, height uint64) TransactionID {
	return TransactionID{SessionID: session, SessionHeight: height}
}

func TestSessionOrderChainClosure(t *testing.T) {
	h := History{
		{
			Committed(Write(1, 1)),
			Committed(Write(1, 2)),
			Committed(Write(1, 3)),
		},
	}
	po := buildPO(t, h)

	root := RootTransaction()
	assert.True(t, po.SessionOrder.HasEdge(root, tid(1, 0)))
	assert.True(t, po.SessionOrder.HasEdge(root, tid(1, 1)))
	assert.True(t, po.SessionOrder.HasEdge(root, tid(1, 2)))
	assert.True(t, po.SessionOrder.HasEdge(tid(1, 0), tid(1, 1)))
	assert.True(t, po.SessionOrder.HasEdge(tid(1, 0), tid(1, 2)))
	assert.True(t, po.SessionOrder.HasEdge(tid(1, 1), tid(1, 2)))
	assert.False(t, po.SessionOrder.HasEdge(tid(1, 1), tid(1, 0)))
}

func TestWriteReadRelation(t *testing.T) {
	h := History{
		{Committed(Write(1, 1))},
		{Committed(Read(1, 1))},
	}
	po := buildPO(t, h)

	wrx := po.WriteRead[1]
	require.NotNil(t, wrx)
	assert.True(t, wrx.HasEdge(tid(1, 0), tid(2, 0)))
	assert.True(t, po.WRUnion.HasEdge(tid(1, 0), tid(2, 0)))
	// The root writes every variable and is a vertex of wr_x.
	assert.True(t, wrx.HasVertex(RootTransaction()))
}

func TestCausalWWOrdersOverwrite(t *testing.T) {
	// s1 installs x=1, s2 reads it and installs x=2, s3 reads x=2.
	// With wr in the closed visibility, s1's write must precede s2's.
	h := History{
		{Committed(Write(1, 1))},
		{Committed(Read(1, 1), Write(1, 2))},
		{Committed(Read(1, 2))},
	}
	po := buildPO(t, h)
	po.VisIncludes(po.WRUnion)
	po.VisIsTrans()

	ww := po.CausalWW()
	wwx := ww[1]
	require.NotNil(t, wwx)
	assert.True(t, wwx.HasEdge(tid(1, 0), tid(2, 0)))
	// The root precedes every other writer of x.
	assert.True(t, wwx.HasEdge(RootTransaction(), tid(1, 0)))
	assert.False(t, wwx.HasEdge(tid(2, 0), tid(1, 0)))
}

func TestCausalWWIgnoresNonWriters(t *testing.T) {
	h := History{
		{Committed(Write(1, 1), Write(2, 1))},
		{Committed(Read(1, 1), Write(1, 2))},
		{Committed(Read(1, 2), Write(2, 2))},
		{Committed(Read(1, 2), Read(2, 2))},
	}
	po := buildPO(t, h)
	po.VisIncludes(po.WRUnion)
	po.VisIsTrans()

	wwx := po.CausalWW()[1]
	require.NotNil(t, wwx)
	// s3 reads x but never writes it, so it cannot appear as a source
	// of a ww edge on x.
	assert.False(t, wwx.HasEdge(tid(3, 0), tid(2, 0)))
}

func TestCausalWWFracturedInitialRead(t *testing.T) {
	// t2 observes t1's y but the initial x, although t1 wrote both.
	// The ww rule forces t1's x-write before the root's, a cycle.
	h := History{
		{Committed(Write(1, 1), Write(2, 1))},
		{Committed(Read(2, 1), InitialRead(1))},
	}
	po := buildPO(t, h)
	po.VisIncludes(po.WRUnion)

	ww := po.CausalWW()
	wwx := ww[1]
	require.NotNil(t, wwx)
	assert.True(t, wwx.HasEdge(tid(1, 0), RootTransaction()))

	for _, g := range ww {
		po.VisIncludes(g)
	}
	assert.False(t, po.HasValidVisibility())
}

func TestCausalRWAntiDependency(t *testing.T) {
	// s1 installs x=1 and y=1. s2 reads x=1. s3 sees s1 (via y) and
	// overwrites x, so the reader s2 must precede the overwriter s3.
	h := History{
		{Committed(Write(1, 1), Write(2, 1))},
		{Committed(Read(1, 1))},
		{Committed(Read(2, 1), Write(1, 2))},
	}
	po := buildPO(t, h)
	po.VisIncludes(po.WRUnion)
	po.VisIsTrans()

	rwx := po.CausalRW()[1]
	require.NotNil(t, rwx)
	assert.True(t, rwx.HasEdge(tid(2, 0), tid(3, 0)))
	// The overwriter is never ordered before the reader.
	assert.False(t, rwx.HasEdge(tid(3, 0), tid(2, 0)))
}

func TestHasValidVisibility(t *testing.T) {
	h := History{
		{Committed(Write(1, 1))},
		{Committed(Read(1, 1))},
	}
	po := buildPO(t, h)
	assert.True(t, po.HasValidVisibility())

	changed := po.VisIncludes(po.WRUnion)
	assert.True(t, changed)
	assert.False(t, po.VisIncludes(po.WRUnion))
	assert.True(t, po.HasValidVisibility())
}

func TestVisIsTransAddsTransitiveEdges(t *testing.T) {
	h := History{
		{Committed(Write(1, 1))},
		{Committed(Read(1, 1), Write(2, 1))},
		{Committed(Read(2, 1))},
	}
	po := buildPO(t, h)
	po.VisIncludes(po.WRUnion)

	assert.False(t, po.Visibility.HasEdge(tid(1, 0), tid(3, 0)))
	assert.True(t, po.VisIsTrans())
	assert.True(t, po.Visibility.HasEdge(tid(1, 0), tid(3, 0)))
}
