// Package kvstore implements a key-value store.
package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"sync"

	"github.com/akrylysov/pogreb"

	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/metrics"
)

// A key in the KVStore.
type CacheKey []byte

// A key-value store. Additional method-like functions that give a typed interface
// to the store (i.e. with typed values instead of []byte) are provided below,
// taking KVStore as the first argument so they can use generics.
type KVStore interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	Put(key []byte, value []byte) error
	Close() error
}

type pogrebKVStore struct {
	db *pogreb.DB

	path    string
	logger  *log.Logger
	metrics *metrics.CheckpointMetrics // if nil, no metrics are emitted
}

var _ KVStore = (*pogrebKVStore)(nil)

// Get implements KVStore.
// NOTE: Read metrics are not captured if you call this method directly.
// Consider using GetJSON() instead.
func (s *pogrebKVStore) Get(key []byte) ([]byte, error) {
	return s.db.Get(key)
}

// Has implements KVStore.
func (s *pogrebKVStore) Has(key []byte) (bool, error) {
	return s.db.Has(key)
}

// Put implements KVStore. Writes are synced to disk before returning.
func (s *pogrebKVStore) Put(key []byte, value []byte) error {
	if err := s.db.Put(key, value); err != nil {
		return err
	}
	return s.db.Sync()
}

// Close implements KVStore.
func (s *pogrebKVStore) Close() error {
	s.logger.Info("closing KVStore", "path", s.path)
	return s.db.Close()
}

// Returns true if path exists. Uses simplified error handling
// to match pogreb's behavior.
func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Returns a list of files that match any of the patterns, but do not match any of the antipatterns.
func glob(patterns []string, antipatterns []string) ([]string, error) {
	files := map[string]struct{}{}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			files[match] = struct{}{}
		}
	}
	for _, antipattern := range antipatterns {
		matches, err := filepath.Glob(antipattern)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			delete(files, match)
		}
	}
	filesArr := make([]string, 0, len(files))
	for k := range files {
		filesArr = append(filesArr, k)
	}
	return filesArr, nil
}

// Moves all files that match the src glob patterns to the destination directory.
// NOTE: If multiple source files have the same filename, one will clobber the others when moved!
func moveFiles(srcPatterns []string, srcAntipatterns []string, dst string) error {
	files, err := glob(srcPatterns, srcAntipatterns)
	if err != nil {
		return fmt.Errorf("unable to glob for files to move: %w", err)
	}

	if err := os.MkdirAll(dst, 0o700); err != nil {
		return fmt.Errorf("unable to create destination directory %s: %w", dst, err)
	}

	for _, srcFile := range files {
		dstFile := filepath.Join(dst, filepath.Base(srcFile))
		if err := os.Rename(srcFile, dstFile); err != nil {
			return fmt.Errorf("unable to move file %s to %s: %w", srcFile, dstFile, err)
		}
	}
	return nil
}

// Deletes all files that match the glob pattern.
func deleteFiles(pattern string) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("unable to glob for files %s to delete: %w", pattern, err)
	}
	var lastErr error
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			lastErr = fmt.Errorf("unable to delete file %s: %w", f, err)
		}
	}
	return lastErr
}

// Gets rid of excessively backed-up pogreb index files.
// If we know pogreb will reindex, this backs up the old index files first.
func (s *pogrebKVStore) preBackup() {
	backupNeeded := pathExists(filepath.Join(s.path, "lock"))
	backupDir := filepath.Join(filepath.Dir(s.path), filepath.Base(s.path)+".backup")
	if backupNeeded && !pathExists(backupDir) { // If an older backup exists, keep that one.
		s.logger.Info("pogreb lock file found; preemptively backing up indexes", "path", s.path, "backup_path", backupDir)
		err := moveFiles(
			[]string{filepath.Join(s.path, "*")},
			[]string{
				filepath.Join(s.path, "*.psg"), // the data that needs to be reindexed
				filepath.Join(s.path, "lock"),  // will trigger a reindex
			},
			backupDir,
		)
		if err != nil {
			s.logger.Warn("failed to move pogreb index files to backup directory", "err", err, "path", s.path, "backup_path", backupDir)
		}
	}
	// Prevent build-up of extensively-long .bac.bac.bac.... filenames.
	if err := deleteFiles(filepath.Join(s.path, "*.bac.bac")); err != nil {
		s.logger.Warn("failed to delete excessively backed-up pogreb index files", "err", err)
	}
}

var setPogrebLogger sync.Once

func (s *pogrebKVStore) init() error {
	// Pogreb backs up its indices into <oldname>.bac. ".bac" becomes ".bac.bac", etc.
	// Repeated crash loops would grow the filenames past what the filesystem allows.
	s.preBackup()

	setPogrebLogger.Do(func() {
		pogreb.SetLogger(stdlog.New(log.WriterIntoLogger(*s.logger.WithModule("pogreb")), "", 0))
	})

	// Open the DB. If a reindex is needed, this can take a while.
	s.logger.Info("(re)opening KVStore", "path", s.path)
	db, err := pogreb.Open(s.path, &pogreb.Options{BackgroundSyncInterval: -1})
	if err != nil {
		s.logger.Error("failed to initialize pogreb store", "err", err)
		return err
	}

	s.db = db
	s.logger.Info(fmt.Sprintf("KVStore has %d entries", db.Count()))
	return nil
}

// OpenKVStore initializes a new KVStore backed by a database at `path`, or
// opens an existing one. After a crash pogreb reindexes the data while
// opening, which can take a while; the call blocks until the store is usable.
// `metrics` can be `nil`, in which case no metrics are emitted during operation.
func OpenKVStore(logger *log.Logger, path string, metrics *metrics.CheckpointMetrics) (KVStore, error) {
	store := &pogrebKVStore{
		logger:  logger,
		path:    path,
		metrics: metrics,
	}
	if err := store.init(); err != nil {
		return nil, err
	}
	return store, nil
}

// ErrNoSuchKey is returned by GetJSON for keys that are not in the store.
var ErrNoSuchKey = errors.New("no such key")

func increaseReadCounter(store KVStore, status metrics.CacheReadStatus) {
	// Make sure the store supports metric-gathering.
	if metricsStore, ok := store.(*pogrebKVStore); ok && metricsStore.metrics != nil {
		metricsStore.metrics.Reads(status).Inc()
	}
}

// GetJSON fetches the value of `key` from the store, decoded from JSON into a `Value`.
func GetJSON[Value any](store KVStore, key CacheKey, value *Value) error {
	found, err := store.Has(key)
	if err != nil {
		increaseReadCounter(store, metrics.CacheReadStatusError)
		return err
	}
	if !found {
		increaseReadCounter(store, metrics.CacheReadStatusMiss)
		return ErrNoSuchKey
	}
	raw, err := store.Get(key)
	if err != nil {
		increaseReadCounter(store, metrics.CacheReadStatusError)
		return fmt.Errorf("failed to fetch key %s: %w", key, err)
	}
	if err = json.Unmarshal(raw, value); err != nil {
		increaseReadCounter(store, metrics.CacheReadStatusBadValue)
		return fmt.Errorf("failed to unmarshal the value for key %s into %T: %w", key, value, err)
	}
	increaseReadCounter(store, metrics.CacheReadStatusHit)
	return nil
}

// PutJSON stores `value` under `key`, encoded as JSON.
func PutJSON[Value any](store KVStore, key CacheKey, value *Value) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %T: %w", value, err)
	}
	return store.Put(key, raw)
}
