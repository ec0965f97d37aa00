package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DatabaseMetrics instruments accesses to the event store.
type DatabaseMetrics struct {
	// Counts of database operations, partitioned by database, operation and status.
	operations *prometheus.CounterVec

	// Latencies of database operations.
	latencies *prometheus.HistogramVec

	// Queries per submitted batch.
	batchSizes *prometheus.HistogramVec
}

// NewDefaultDatabaseMetrics creates Prometheus metric instrumentation for
// database accesses made by pkg.
func NewDefaultDatabaseMetrics(pkg string) DatabaseMetrics {
	metrics := DatabaseMetrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_db_operations", pkg),
				Help: "How many database operations occur, partitioned by operation and status.",
			},
			[]string{"database", "operation", "status"}, // Labels.
		),
		latencies: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: fmt.Sprintf("%s_db_latencies", pkg),
				Help: "How long database operations take, partitioned by operation.",
			},
			[]string{"database", "operation"}, // Labels.
		),
		batchSizes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    fmt.Sprintf("%s_db_batch_sizes", pkg),
				Help:    "How many queries each submitted batch holds.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 6),
			},
			[]string{"database"}, // Labels.
		),
	}
	metrics.operations = registerOnce(metrics.operations)
	metrics.latencies = registerOnce(metrics.latencies)
	metrics.batchSizes = registerOnce(metrics.batchSizes)
	return metrics
}

// DatabaseOperations returns the counter for the database operation.
func (m *DatabaseMetrics) DatabaseOperations(db, operation, status string) prometheus.Counter {
	return m.operations.WithLabelValues(db, operation, status)
}

// DatabaseLatencies returns a new latency timer for the database operation.
func (m *DatabaseMetrics) DatabaseLatencies(db string, operation string) *prometheus.Timer {
	return prometheus.NewTimer(m.latencies.WithLabelValues(db, operation))
}

// BatchSize returns the observer for batch sizes submitted to db.
func (m *DatabaseMetrics) BatchSize(db string) prometheus.Observer {
	return m.batchSizes.WithLabelValues(db)
}

// Observe starts timing a database operation. The returned function stops
// the timer and counts the operation as failed if err is non-nil.
func (m *DatabaseMetrics) Observe(db, operation string) func(err error) {
	timer := m.DatabaseLatencies(db, operation)
	return func(err error) {
		timer.ObserveDuration()
		status := OperationStatusSuccess
		if err != nil {
			status = OperationStatusFailure
		}
		m.DatabaseOperations(db, operation, status).Inc()
	}
}
