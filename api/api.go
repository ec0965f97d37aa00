// Package api defines API handlers for the vault service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	v1 "github.com/oasisprotocol/vault/api/v1"
	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/metrics"
	storage "github.com/oasisprotocol/vault/storage/client"
	"github.com/oasisprotocol/vault/vault"
)

const (
	moduleName = "api"

	defaultRequestTimeout = 10 * time.Second
)

// APIHandler is a handler that handles API requests.
type APIHandler interface {
	// RegisterRoutes registers routes for this API Handler
	RegisterRoutes(chi.Router)

	// Name returns the name of this API handler.
	Name() string
}

// Options configure the router.
type Options struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// VaultAPI is the HTTP API of a vault.
type VaultAPI struct {
	router   *chi.Mux
	handlers []APIHandler
	logger   *log.Logger
}

// NewVaultAPI creates a new API serving v. history may be nil, in which case
// the event history endpoints report that they are unavailable.
func NewVaultAPI(v *vault.Vault, history *storage.StorageClient, opts Options, l *log.Logger) *VaultAPI {
	logger := l.WithModule(moduleName)
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(MetricsMiddleware(metrics.NewDefaultRequestMetrics(moduleName), logger))
	r.Use(NewCorsMiddleware(opts.CORSOrigins))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))

	handlers := []APIHandler{
		v1.NewHandler(v, history, l),
	}
	for _, handler := range handlers {
		handler.RegisterRoutes(r)
	}

	return &VaultAPI{
		router:   r,
		handlers: handlers,
		logger:   logger,
	}
}

// Router gets the router for this Handler.
func (a *VaultAPI) Router() http.Handler {
	return a.router
}
