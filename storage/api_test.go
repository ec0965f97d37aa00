package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryBatch(t *testing.T) {
	batch := &QueryBatch{}
	batch.Queue("INSERT INTO vault.events (seq) VALUES ($1)", uint64(1))
	batch.Queue("DELETE FROM vault.cooldowns WHERE account = $1", "0xabc")

	other := &QueryBatch{}
	other.Queue("SELECT 1")
	batch.Extend(other)

	require.Equal(t, 3, batch.Len())
	require.Equal(t, "SELECT 1", batch.Queries()[2].Cmd)
	require.Equal(t, []interface{}{uint64(1)}, batch.Queries()[0].Args)
	require.Contains(t, batch.Queries()[1].String(), "0xabc")

	pgxBatch := batch.AsPgxBatch()
	require.Equal(t, 3, pgxBatch.Len())
	require.Equal(t, "DELETE FROM vault.cooldowns WHERE account = $1", pgxBatch.QueuedQueries[1].SQL)
}

func TestQueryBatchEmpty(t *testing.T) {
	batch := &QueryBatch{}
	require.Equal(t, 0, batch.Len())
	pgxBatch := batch.AsPgxBatch()
	require.Equal(t, 0, pgxBatch.Len())
}
