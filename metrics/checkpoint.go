package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckpointMetrics instruments the local checkpoint store.
type CheckpointMetrics struct {
	// Name of the store that is being instrumented.
	store string

	// Counts of checkpoint writes, partitioned by status.
	writes *prometheus.CounterVec

	// Read outcomes when restoring from the store.
	reads *prometheus.CounterVec
}

type CacheReadStatus string

const (
	CacheReadStatusHit      CacheReadStatus = "hit"
	CacheReadStatusMiss     CacheReadStatus = "miss"
	CacheReadStatusBadValue CacheReadStatus = "bad_value" // Value in store could not be decoded.
	CacheReadStatusError    CacheReadStatus = "error"     // Other internal error reading from the store.
)

// NewDefaultCheckpointMetrics creates Prometheus metric instrumentation for
// a checkpoint store.
func NewDefaultCheckpointMetrics(store string) CheckpointMetrics {
	metrics := CheckpointMetrics{
		store: store,
		writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkpoint_writes",
				Help: "How many checkpoints were written, partitioned by store and status.",
			},
			[]string{"store", "status"}, // Labels.
		),
		reads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkpoint_reads",
				Help: "How many checkpoint reads occur, partitioned by status (hit, miss, bad_value, error).",
			},
			[]string{"store", "status"}, // Labels.
		),
	}
	metrics.writes = registerOnce(metrics.writes)
	metrics.reads = registerOnce(metrics.reads)
	return metrics
}

// Writes returns the counter for checkpoint writes with the given status.
func (m *CheckpointMetrics) Writes(status string) prometheus.Counter {
	return m.writes.WithLabelValues(m.store, status)
}

// Reads returns the counter for checkpoint reads with the given status.
func (m *CheckpointMetrics) Reads(status CacheReadStatus) prometheus.Counter {
	return m.reads.WithLabelValues(m.store, string(status))
}
