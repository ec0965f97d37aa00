package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics instruments the HTTP API.
type RequestMetrics struct {
	// Counts of requests, partitioned by endpoint, status and cause.
	counts *prometheus.CounterVec

	// Latencies of serving requests, partitioned by endpoint and method.
	latencies *prometheus.HistogramVec

	// Requests currently being served.
	inFlight prometheus.Gauge
}

// NewDefaultRequestMetrics creates Prometheus metric instrumentation for an
// HTTP API served by pkg.
func NewDefaultRequestMetrics(pkg string) RequestMetrics {
	metrics := RequestMetrics{
		counts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_requests", pkg),
				Help: "How many service requests were made, partitioned by request endpoint, status, and cause.",
			},
			[]string{"endpoint", "status", "cause"}, // Labels.
		),
		latencies: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: fmt.Sprintf("%s_request_latencies", pkg),
				Help: "How long requests take to process, partitioned by request endpoint and method.",
			},
			[]string{"endpoint", "method"}, // Labels.
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: fmt.Sprintf("%s_requests_in_flight", pkg),
				Help: "How many requests are being served.",
			},
		),
	}
	metrics.counts = registerOnce(metrics.counts)
	metrics.latencies = registerOnce(metrics.latencies)
	metrics.inFlight = registerOnce(metrics.inFlight)
	return metrics
}

// RequestCounter returns the counter for requests to endpoint that finished
// with status. cause is empty unless the request was rejected.
func (m *RequestMetrics) RequestCounter(endpoint, status, cause string) prometheus.Counter {
	return m.counts.WithLabelValues(endpoint, status, cause)
}

// ObserveLatency records how long serving a request took.
func (m *RequestMetrics) ObserveLatency(endpoint, method string, d time.Duration) {
	m.latencies.WithLabelValues(endpoint, method).Observe(d.Seconds())
}

// InFlight returns the gauge of requests being served.
func (m *RequestMetrics) InFlight() prometheus.Gauge {
	return m.inFlight
}
