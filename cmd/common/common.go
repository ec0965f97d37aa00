// Package common implements common vault command options.
package common

import (
	"context"
	"fmt"
	"io"
	stdLog "log"
	"os"

	"github.com/akrylysov/pogreb"

	"github.com/oasisprotocol/vault/config"
	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/storage"
	"github.com/oasisprotocol/vault/storage/postgres"
)

var (
	rootLogger = log.NewDefaultLogger("vault")

	// ConfigFile is the path to the configuration file, shared by all
	// sub-commands.
	ConfigFile string
)

// LoadConfig reads ConfigFile and initializes the common environment from
// it. Failures are logged and exit the process.
func LoadConfig() *config.Config {
	cfg, err := config.InitConfig(ConfigFile)
	if err != nil {
		log.NewDefaultLogger("init").Error("init failed",
			"config", ConfigFile,
			"error", err,
		)
		os.Exit(1)
	}
	if err = Init(cfg); err != nil {
		log.NewDefaultLogger("init").Error("init failed",
			"error", err,
		)
		os.Exit(1)
	}
	return cfg
}

// Init initializes the common environment.
func Init(cfg *config.Config) error {
	var w io.Writer = os.Stdout
	format := log.FmtJSON
	level := log.LevelDebug

	if cfg.Log != nil {
		var err error
		if w, err = getLoggingStream(cfg.Log); err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		if err := format.Set(cfg.Log.Format); err != nil {
			return err
		}
		if err := level.Set(cfg.Log.Level); err != nil {
			return err
		}
	}
	logger, err := log.NewLogger("vault", w, format, level)
	if err != nil {
		return err
	}
	rootLogger = logger

	// Route pogreb's own logging (checkpoint store) through ours.
	pogrebLogger := RootLogger().WithModule("pogreb").WithCallerUnwind(7)
	pogreb.SetLogger(stdLog.New(log.WriterIntoLogger(*pogrebLogger), "", 0))

	if cfg.Debug != nil && cfg.Debug.PprofEndpoint != "" {
		startPprof(cfg.Debug.PprofEndpoint)
	}
	return nil
}

// RootLogger returns the logger defined by logging flags.
func RootLogger() *log.Logger {
	return rootLogger
}

func getLoggingStream(cfg *config.LogConfig) (io.Writer, error) {
	if cfg == nil || cfg.File == "" {
		return os.Stdout, nil
	}
	w, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// NewClient creates a new client to target storage.
func NewClient(cfg *config.StorageConfig, logger *log.Logger) (storage.TargetStorage, error) {
	var backend config.StorageBackend
	if err := backend.Set(cfg.Backend); err != nil {
		return nil, err
	}

	var client storage.TargetStorage
	var err error
	switch backend {
	case config.BackendPostgres:
		client, err = postgres.NewClient(cfg.Endpoint, logger)
	default:
		panic(fmt.Sprintf("unsupported storage backend: %v", backend))
	}
	if err != nil {
		return nil, err
	}

	return client, nil
}

// PrepareStorage optionally wipes the target storage and applies pending
// migrations, as requested by cfg.
func PrepareStorage(ctx context.Context, cfg *config.StorageConfig, db storage.TargetStorage, logger *log.Logger) error {
	if cfg.WipeStorage {
		logger.Warn("wiping storage", "storage", db.Name())
		if err := db.Wipe(ctx); err != nil {
			return fmt.Errorf("wiping storage: %w", err)
		}
	}
	if cfg.Migrations == "" {
		return nil
	}
	logger.Info("applying migrations", "source", cfg.Migrations)
	return postgres.Migrate(cfg.Migrations, cfg.Endpoint, logger)
}
