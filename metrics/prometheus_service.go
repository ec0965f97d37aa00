// Package metrics contains the prometheus infrastructure.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/log"
)

const (
	moduleName = "metrics"
)

// PullService serves the default registry for Prometheus to scrape, along
// with a liveness probe.
type PullService struct {
	pullEndpoint string
	logger       *log.Logger
}

// Handler returns the service's routes: /metrics and /healthz.
func (s *PullService) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			// A broken collector shouldn't blind us to all the others.
			ErrorHandling: promhttp.ContinueOnError,
		}),
	))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// Run serves until ctx is done.
func (s *PullService) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:           s.pullEndpoint,
		Handler:        s.Handler(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return common.RunServer(ctx, server, s.logger)
}

// NewPullService creates a new Prometheus pull service.
func NewPullService(pullEndpoint string, logger *log.Logger) (*PullService, error) {
	return &PullService{
		pullEndpoint: pullEndpoint,
		logger:       logger.WithModule(moduleName),
	}, nil
}
