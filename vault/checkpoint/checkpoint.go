// Package checkpoint persists vault state snapshots to a local key-value
// store and restores them at startup.
package checkpoint

import (
	"context"
	"errors"
	"time"

	"github.com/oasisprotocol/vault/cache/kvstore"
	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/metrics"
	"github.com/oasisprotocol/vault/vault"
)

const moduleName = "checkpoint"

var stateKey = kvstore.CacheKey("vault/state")

// Store reads and writes vault snapshots.
type Store struct {
	kv      kvstore.KVStore
	logger  *log.Logger
	metrics *metrics.CheckpointMetrics // if nil, no metrics are emitted
}

// NewStore wraps an open key-value store.
func NewStore(kv kvstore.KVStore, logger *log.Logger, m *metrics.CheckpointMetrics) *Store {
	return &Store{kv: kv, logger: logger.WithModule(moduleName), metrics: m}
}

// Load returns the latest snapshot, or false if none was saved yet.
func (s *Store) Load() (*vault.State, bool, error) {
	var state vault.State
	switch err := kvstore.GetJSON(s.kv, stateKey, &state); {
	case err == nil:
		return &state, true, nil
	case errors.Is(err, kvstore.ErrNoSuchKey):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// Save overwrites the snapshot.
func (s *Store) Save(state vault.State) error {
	err := kvstore.PutJSON(s.kv, stateKey, &state)
	if s.metrics != nil {
		status := metrics.OperationStatusSuccess
		if err != nil {
			status = metrics.OperationStatusFailure
		}
		s.metrics.Writes(status).Inc()
	}
	return err
}

// Close closes the underlying store.
func (s *Store) Close() error {
	return s.kv.Close()
}

// Checkpointer periodically saves a vault's state.
type Checkpointer struct {
	vault    *vault.Vault
	store    *Store
	interval time.Duration
	logger   *log.Logger

	lastSeq uint64
	saved   bool
}

// NewCheckpointer creates a checkpointer. A restored vault should be passed
// in after its state was imported, so unchanged state isn't re-saved.
func NewCheckpointer(v *vault.Vault, store *Store, interval time.Duration, logger *log.Logger) *Checkpointer {
	return &Checkpointer{
		vault:    v,
		store:    store,
		interval: interval,
		logger:   logger.WithModule(moduleName),
	}
}

// Restore imports the saved snapshot into the vault, if there is one.
func (c *Checkpointer) Restore() (bool, error) {
	state, found, err := c.store.Load()
	if err != nil || !found {
		return false, err
	}
	if err := c.vault.Import(*state); err != nil {
		return false, err
	}
	c.lastSeq, c.saved = state.Seq, true
	c.logger.Info("restored checkpoint", "seq", state.Seq)
	return true, nil
}

// Checkpoint saves the vault's state if events were committed since the
// last save.
func (c *Checkpointer) Checkpoint() error {
	state := c.vault.Export()
	if c.saved && state.Seq == c.lastSeq {
		return nil
	}
	if err := c.store.Save(state); err != nil {
		return err
	}
	c.lastSeq, c.saved = state.Seq, true
	c.logger.Debug("saved checkpoint", "seq", state.Seq)
	return nil
}

// Run checkpoints every interval until ctx is done, then once more.
func (c *Checkpointer) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.Checkpoint(); err != nil {
				c.logger.Error("checkpoint failed", "err", err)
			}
		case <-ctx.Done():
			if err := c.Checkpoint(); err != nil {
				c.logger.Error("final checkpoint failed", "err", err)
				return err
			}
			return nil
		}
	}
}
