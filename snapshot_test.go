package amli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotCommitAndRollbackArena(t *testing.T) {
	st := NewState(nil, DefaultLimits())
	defer st.Free()
	st.dec = newDecoder(make([]byte, 64), st.limits.MaxRecursionDepth)

	snap := st.beginSnapshot()
	before := st.arena.current.used
	buf := st.arena.Allocate(32)
	require.NotNil(t, buf)
	require.Greater(t, st.arena.current.used, before)
	snap.Rollback()
	require.Equal(t, before, st.arena.current.used, "rollback must restore the arena bump pointer")
}

func TestSnapshotLIFOViolationPanics(t *testing.T) {
	st := NewState(nil, DefaultLimits())
	defer st.Free()
	st.dec = newDecoder(make([]byte, 64), st.limits.MaxRecursionDepth)

	outer := st.beginSnapshot()
	_ = st.beginSnapshot()

	require.Panics(t, func() {
		outer.Commit(false)
	}, "committing an outer snapshot before the inner one is a LIFO violation")
}

func TestSnapshotNestedCommitThenRollback(t *testing.T) {
	st := NewState(nil, DefaultLimits())
	defer st.Free()
	st.dec = newDecoder(make([]byte, 64), st.limits.MaxRecursionDepth)

	outer := st.beginSnapshot()
	outerUsed := st.arena.current.used
	inner := st.beginSnapshot()
	st.arena.Allocate(16)
	inner.Commit(false)
	st.arena.Allocate(16)
	outer.Rollback()

	require.Equal(t, outerUsed, st.arena.current.used)
}
