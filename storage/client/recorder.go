package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/storage"
	"github.com/oasisprotocol/vault/storage/client/queries"
	"github.com/oasisprotocol/vault/vault"
	"github.com/oasisprotocol/vault/vault/evmabi"
)

const (
	maxBatchQueries = 500
	retryDelay      = 2 * time.Second
	drainTimeout    = 10 * time.Second
)

// EventRecorder persists committed vault events. Events are converted to
// queries as they are delivered and written from Run, one transaction per
// group of commits.
//
// Delivery never blocks: commits wait in an in-memory backlog for as long as
// the database is unavailable.
type EventRecorder struct {
	db         storage.TargetStorage
	logger     *log.Logger
	retryDelay time.Duration

	mu      sync.Mutex
	backlog []*storage.QueryBatch
	stopped bool
	wake    chan struct{}
}

var _ vault.Listener = (*EventRecorder)(nil)

// NewEventRecorder creates a recorder writing to db.
func NewEventRecorder(db storage.TargetStorage, logger *log.Logger) *EventRecorder {
	return &EventRecorder{
		db:         db,
		logger:     logger.WithModule("recorder"),
		retryDelay: retryDelay,
		wake:       make(chan struct{}, 1),
	}
}

func decOrZero(x *uint256.Int) string {
	if x == nil {
		return "0"
	}
	return x.Dec()
}

// QueueEvent adds the queries recording e to batch.
func QueueEvent(batch *storage.QueryBatch, e vault.Event) error {
	meta := e.Meta()
	encoded, err := evmabi.EncodeEvent(e.Name(), e.Args())
	if err != nil {
		return err
	}
	fields, err := evmabi.Fields(e.Name(), e.Args())
	if err != nil {
		return err
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("event %s payload: %w", e.Name(), err)
	}
	var account *string
	if a := e.Account(); !common.IsZeroAddress(a) {
		hex := a.Hex()
		account = &hex
	}
	batch.Queue(queries.InsertEvent,
		meta.Seq,
		e.Name(),
		time.Unix(int64(meta.Time), 0).UTC(),
		account,
		payload,
		encoded.Topics,
		encoded.Data,
	)

	switch ev := e.(type) {
	case *vault.CooldownStartedEvent:
		batch.Queue(queries.UpsertCooldown,
			ev.Holder.Hex(),
			ev.UnlockTimestamp,
			decOrZero(ev.Assets),
			decOrZero(ev.Replaced),
			meta.Seq,
		)
	case *vault.CooldownClaimedEvent:
		batch.Queue(queries.DeleteCooldown, ev.Holder.Hex())
	}
	return nil
}

// OnEvents implements vault.Listener. It runs under the vault's lock and
// only appends to the backlog.
func (r *EventRecorder) OnEvents(events []vault.Event) {
	batch := &storage.QueryBatch{}
	for _, e := range events {
		if err := QueueEvent(batch, e); err != nil {
			r.logger.Error("failed to encode event",
				"seq", e.Meta().Seq,
				"name", e.Name(),
				"err", err,
			)
		}
	}
	if batch.Len() == 0 {
		return
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		r.logger.Error("recorder stopped, dropping events",
			"first_seq", events[0].Meta().Seq,
			"count", len(events),
		)
		return
	}
	r.backlog = append(r.backlog, batch)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Backlog is the number of commits waiting to be written.
func (r *EventRecorder) Backlog() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.backlog)
}

// Resync makes the stored history agree with s, typically a state restored
// from a checkpoint: events recorded after the checkpoint are dropped and the
// cooldown table is rebuilt.
func (r *EventRecorder) Resync(ctx context.Context, s vault.State) error {
	batch := &storage.QueryBatch{}
	batch.Queue(queries.DeleteEventsAfter, s.Seq)
	batch.Queue(queries.DeleteCooldowns)
	for _, c := range s.Cooldowns {
		batch.Queue(queries.InsertCooldown, c.Account.Hex(), c.UnlockTimestamp, c.Amount, s.Seq)
	}
	if err := r.db.SendBatch(ctx, batch); err != nil {
		return fmt.Errorf("resync event store: %w", err)
	}
	r.logger.Info("event store resynced",
		"seq", s.Seq,
		"cooldowns", len(s.Cooldowns),
	)
	return nil
}

// next takes the oldest commits off the backlog, merged up to
// maxBatchQueries. It returns nil when the backlog is empty.
func (r *EventRecorder) next() *storage.QueryBatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.backlog) == 0 {
		return nil
	}
	merged := &storage.QueryBatch{}
	n := 0
	for n < len(r.backlog) && (n == 0 || merged.Len()+r.backlog[n].Len() <= maxBatchQueries) {
		merged.Extend(r.backlog[n])
		r.backlog[n] = nil
		n++
	}
	r.backlog = r.backlog[n:]
	return merged
}

// stop makes later deliveries drop their events and discards anything left
// in the backlog.
func (r *EventRecorder) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if len(r.backlog) > 0 {
		r.logger.Error("recorder stopped with unwritten events", "commits", len(r.backlog))
	}
	r.backlog = nil
}

// Run writes backlogged events until ctx is cancelled, then drains the
// backlog. A failed write is retried, in order, until it succeeds.
func (r *EventRecorder) Run(ctx context.Context) error {
	defer r.stop()
	for {
		select {
		case <-ctx.Done():
			return r.drain(nil)
		case <-r.wake:
		}
		for batch := r.next(); batch != nil; batch = r.next() {
			for {
				err := r.db.SendBatch(ctx, batch)
				if err == nil {
					break
				}
				r.logger.Error("failed to record events, retrying",
					"queries", batch.Len(),
					"backlog", r.Backlog(),
					"err", err,
				)
				select {
				case <-ctx.Done():
					return r.drain(batch)
				case <-time.After(r.retryDelay):
				}
			}
		}
	}
}

// drain writes pending, then everything still backlogged.
func (r *EventRecorder) drain(pending *storage.QueryBatch) error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if pending == nil {
		pending = r.next()
	}
	for pending != nil {
		if err := r.db.SendBatch(ctx, pending); err != nil {
			return fmt.Errorf("drain event queue: %w", err)
		}
		pending = r.next()
	}
	r.logger.Info("event recorder stopped")
	return nil
}
