package journal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRevertRestoresInReverseOrder(t *testing.T) {
	j := New()
	v := 1

	set := func(n int) {
		prev := v
		j.Record(func() { v = prev })
		v = n
	}

	set(2)
	snap := j.Snapshot()
	set(3)
	set(4)
	require.Equal(t, 4, v)

	j.RevertToSnapshot(snap)
	require.Equal(t, 2, v)
	require.Equal(t, 1, j.Len())

	j.RevertToSnapshot(0)
	require.Equal(t, 1, v)
	require.Equal(t, 0, j.Len())
}

func TestCommitMakesChangesPermanent(t *testing.T) {
	j := New()
	m := map[string]int{}

	j.Record(func() { delete(m, "a") })
	m["a"] = 1
	j.Commit()
	require.Equal(t, 0, j.Len())

	j.RevertToSnapshot(0)
	require.Equal(t, 1, m["a"])
}

func TestInvalidSnapshotPanics(t *testing.T) {
	j := New()
	require.Panics(t, func() { j.RevertToSnapshot(1) })
}
