package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// VaultMetrics instruments vault operations and the vault's aggregate state.
type VaultMetrics struct {
	// Counts of vault operations, partitioned by operation and status.
	operations *prometheus.CounterVec

	// Latencies of vault operations, including lock wait.
	latencies *prometheus.HistogramVec

	// Aggregate balances, as float approximations of the 256-bit values.
	balances *prometheus.GaugeVec

	// Insurance fees paid out by instant exits, in base units.
	feesCollected prometheus.Counter

	// Last committed event sequence number.
	eventSeq prometheus.Gauge
}

const (
	OperationStatusSuccess = "success"
	OperationStatusFailure = "failure"
)

// Names of the balances tracked by VaultMetrics.
const (
	BalanceTotalAssets     = "total_assets"
	BalanceTotalShares     = "total_shares"
	BalanceEscrow          = "escrow"
	BalanceUnvested        = "unvested"
	BalancePendingCooldown = "pending_cooldown"
)

// NewDefaultVaultMetrics creates Prometheus metric instrumentation for a vault.
func NewDefaultVaultMetrics(pkg string) VaultMetrics {
	metrics := VaultMetrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_operations", pkg),
				Help: "How many vault operations were executed, partitioned by operation and status.",
			},
			[]string{"operation", "status"}, // Labels.
		),
		latencies: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: fmt.Sprintf("%s_operation_latencies", pkg),
				Help: "How long vault operations take, partitioned by operation.",
			},
			[]string{"operation"}, // Labels.
		),
		balances: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: fmt.Sprintf("%s_balances", pkg),
				Help: "Aggregate vault balances in base units, partitioned by kind.",
			},
			[]string{"kind"}, // Labels.
		),
		feesCollected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_fees_collected", pkg),
				Help: "Insurance fees paid by instant exits, in base units.",
			},
		),
		eventSeq: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: fmt.Sprintf("%s_event_seq", pkg),
				Help: "Sequence number of the last committed vault event.",
			},
		),
	}
	metrics.operations = registerOnce(metrics.operations)
	metrics.latencies = registerOnce(metrics.latencies)
	metrics.balances = registerOnce(metrics.balances)
	metrics.feesCollected = registerOnce(metrics.feesCollected)
	metrics.eventSeq = registerOnce(metrics.eventSeq)
	return metrics
}

// Operations returns the counter for the vault operation.
func (m *VaultMetrics) Operations(operation, status string) prometheus.Counter {
	return m.operations.WithLabelValues(operation, status)
}

// OperationLatencies returns a new latency timer for the vault operation.
func (m *VaultMetrics) OperationLatencies(operation string) *prometheus.Timer {
	return prometheus.NewTimer(m.latencies.WithLabelValues(operation))
}

// Balance returns the gauge for the named aggregate balance.
func (m *VaultMetrics) Balance(kind string) prometheus.Gauge {
	return m.balances.WithLabelValues(kind)
}

// FeesCollected returns the counter of insurance fees.
func (m *VaultMetrics) FeesCollected() prometheus.Counter {
	return m.feesCollected
}

// EventSeq returns the gauge tracking the last committed event.
func (m *VaultMetrics) EventSeq() prometheus.Gauge {
	return m.eventSeq
}
