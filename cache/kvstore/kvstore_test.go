package kvstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/metrics"
)

type entry struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

func openTestStore(t *testing.T, path string) KVStore {
	m := metrics.NewDefaultCheckpointMetrics("kvstore_test")
	store, err := OpenKVStore(log.NewNopLogger(), path, &m)
	require.NoError(t, err)
	return store
}

func TestPutGetJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	store := openTestStore(t, path)

	var out entry
	require.ErrorIs(t, GetJSON(store, CacheKey("missing"), &out), ErrNoSuchKey)

	require.NoError(t, PutJSON(store, CacheKey("k"), &entry{Name: "a", Value: 7}))
	require.NoError(t, GetJSON(store, CacheKey("k"), &out))
	require.Equal(t, entry{Name: "a", Value: 7}, out)
	require.NoError(t, store.Close())

	// Values survive a reopen.
	store = openTestStore(t, path)
	defer store.Close()
	out = entry{}
	require.NoError(t, GetJSON(store, CacheKey("k"), &out))
	require.Equal(t, uint64(7), out.Value)
}

func TestGetJSONBadValue(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "db"))
	defer store.Close()

	require.NoError(t, store.Put([]byte("k"), []byte("not json")))
	var out entry
	err := GetJSON(store, CacheKey("k"), &out)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoSuchKey)
}

func TestReopenAfterCrash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	store := openTestStore(t, path)
	require.NoError(t, PutJSON(store, CacheKey("k"), &entry{Name: "a", Value: 7}))
	require.NoError(t, store.Close())

	// A lock file left behind by an unclean shutdown forces a reindex; the old
	// indexes are backed up first.
	require.NoError(t, os.WriteFile(filepath.Join(path, "lock"), nil, 0o600))
	store = openTestStore(t, path)
	defer store.Close()
	require.DirExists(t, path+".backup")

	var out entry
	require.NoError(t, GetJSON(store, CacheKey("k"), &out))
	require.Equal(t, uint64(7), out.Value)
}

func TestOpenFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err := OpenKVStore(log.NewNopLogger(), filepath.Join(file, "db"), nil)
	require.Error(t, err)
}
