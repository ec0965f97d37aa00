// Package api implements the serve sub-command.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/oasisprotocol/vault/api"
	"github.com/oasisprotocol/vault/cache/kvstore"
	cmdCommon "github.com/oasisprotocol/vault/cmd/common"
	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/config"
	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/metrics"
	"github.com/oasisprotocol/vault/storage"
	storageClient "github.com/oasisprotocol/vault/storage/client"
	"github.com/oasisprotocol/vault/vault"
	"github.com/oasisprotocol/vault/vault/checkpoint"
)

const (
	moduleName = "api"
)

var apiCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the vault API",
	Run:   runServer,
}

func runServer(cmd *cobra.Command, args []string) {
	cfg := cmdCommon.LoadConfig()
	logger := cmdCommon.RootLogger()

	if cfg.Vault == nil || cfg.Server == nil {
		logger.Error("vault and server config must be provided")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, err := Init(ctx, cfg)
	if err != nil {
		os.Exit(1)
	}
	defer service.Shutdown()

	if err := service.Run(ctx); err != nil {
		logger.Error("service stopped with error", "err", err)
		service.Shutdown()
		os.Exit(1)
	}
}

// Init initializes the API service.
func Init(ctx context.Context, cfg *config.Config) (*Service, error) {
	logger := cmdCommon.RootLogger()

	service, err := NewService(ctx, cfg, vault.SystemClock{})
	if err != nil {
		logger.Error("service failed to start",
			"error", err,
		)
		return nil, err
	}
	return service, nil
}

// Service is the vault's API service. Besides the HTTP server it owns the
// background workers that persist the vault: the checkpointer and the event
// recorder, both optional.
type Service struct {
	vault  *vault.Vault
	server *http.Server
	logger *log.Logger

	metrics      *metrics.PullService
	checkpoints  *checkpoint.Store
	checkpointer *checkpoint.Checkpointer
	backing      storage.TargetStorage
	recorder     *storageClient.EventRecorder
	history      *storageClient.StorageClient
}

// NewService builds the vault from cfg, restores its last checkpoint (or
// bootstraps it on first start) and wires up persistence and the API.
func NewService(ctx context.Context, cfg *config.Config, clock vault.Clock) (_ *Service, err error) {
	logger := cmdCommon.RootLogger().WithModule(moduleName)
	s := &Service{logger: logger}
	defer func() {
		if err != nil {
			s.Shutdown()
		}
	}()

	vaultMetrics := metrics.NewDefaultVaultMetrics("vault")
	v, asset, err := newVault(cfg.Vault, clock, &vaultMetrics, cmdCommon.RootLogger())
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	s.vault = v

	restored := false
	if cfg.Checkpoint != nil {
		checkpointMetrics := metrics.NewDefaultCheckpointMetrics("vault")
		kv, err := kvstore.OpenKVStore(logger.WithModule("kvstore"), cfg.Checkpoint.Dir, &checkpointMetrics)
		if err != nil {
			return nil, fmt.Errorf("opening checkpoint store: %w", err)
		}
		s.checkpoints = checkpoint.NewStore(kv, logger, &checkpointMetrics)
		s.checkpointer = checkpoint.NewCheckpointer(v, s.checkpoints, cfg.Checkpoint.Interval, logger)
		if restored, err = s.checkpointer.Restore(); err != nil {
			return nil, fmt.Errorf("restoring checkpoint: %w", err)
		}
	}

	if sc := cfg.Server.Storage; sc != nil {
		if s.backing, err = cmdCommon.NewClient(sc, logger); err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		if err = cmdCommon.PrepareStorage(ctx, sc, s.backing, logger); err != nil {
			return nil, err
		}
		s.recorder = storageClient.NewEventRecorder(s.backing, logger)
		// Drop history the restored state doesn't know about before any new
		// events are sequenced.
		if err = s.recorder.Resync(ctx, v.Export()); err != nil {
			return nil, err
		}
		v.Subscribe(s.recorder)
		if s.history, err = storageClient.NewStorageClient(s.backing, logger); err != nil {
			return nil, fmt.Errorf("storage client: %w", err)
		}
	}

	if !restored {
		if err = bootstrap(v, asset, cfg.Vault, logger); err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
	}

	if cfg.Metrics != nil {
		if s.metrics, err = metrics.NewPullService(cfg.Metrics.PullEndpoint, logger); err != nil {
			return nil, err
		}
	}

	opts := api.Options{CORSOrigins: cfg.Server.CORSOrigins}
	if cfg.Server.RequestTimeout != nil {
		opts.RequestTimeout = *cfg.Server.RequestTimeout
	}
	s.server = &http.Server{
		Addr:           cfg.Server.Endpoint,
		Handler:        api.NewVaultAPI(v, s.history, opts, logger).Router(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   2 * time.Minute,
		MaxHeaderBytes: 1 << 20,
	}
	return s, nil
}

// Run serves until ctx is done. The background workers are stopped only
// after the servers are, so the final checkpoint and recorded history
// include every served operation.
func (s *Service) Run(ctx context.Context) error {
	servers, serveCtx := errgroup.WithContext(ctx)
	servers.Go(func() error {
		return common.RunServer(serveCtx, s.server, s.logger)
	})
	if s.metrics != nil {
		servers.Go(func() error {
			return s.metrics.Run(serveCtx)
		})
	}

	workCtx, stopWork := context.WithCancel(context.Background())
	defer stopWork()
	var workers errgroup.Group
	if s.checkpointer != nil {
		workers.Go(func() error {
			return s.checkpointer.Run(workCtx)
		})
	}
	if s.recorder != nil {
		workers.Go(func() error {
			return s.recorder.Run(workCtx)
		})
	}

	s.logger.Info("started all services")
	serveErr := servers.Wait()
	stopWork()
	return errors.Join(serveErr, workers.Wait())
}

// Shutdown releases the service's storage. It is safe to call repeatedly.
func (s *Service) Shutdown() {
	if s.checkpoints != nil {
		if err := s.checkpoints.Close(); err != nil {
			s.logger.Error("failed to close checkpoint store", "err", err)
		}
		s.checkpoints = nil
	}
	if s.history != nil {
		// Also closes the backing storage.
		s.history.Close()
		s.history, s.backing = nil, nil
	}
	if s.backing != nil {
		s.backing.Close()
		s.backing = nil
	}
}

// Vault returns the served vault.
func (s *Service) Vault() *vault.Vault {
	return s.vault
}

// Register registers the serve sub-command.
func Register(parentCmd *cobra.Command) {
	parentCmd.AddCommand(apiCmd)
}
