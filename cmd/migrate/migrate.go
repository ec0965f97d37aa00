// Package migrate implements the migrate sub-command.
package migrate

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	cmdCommon "github.com/oasisprotocol/vault/cmd/common"
)

const moduleName = "migrate"

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply event store migrations",
	Run:   runMigrations,
}

func runMigrations(cmd *cobra.Command, args []string) {
	cfg := cmdCommon.LoadConfig()
	logger := cmdCommon.RootLogger().WithModule(moduleName)

	if cfg.Server == nil || cfg.Server.Storage == nil {
		logger.Error("server storage config not provided")
		os.Exit(1)
	}
	sc := cfg.Server.Storage
	if err := sc.Validate(true /* requireMigrations */); err != nil {
		logger.Error("invalid storage config", "err", err)
		os.Exit(1)
	}

	db, err := cmdCommon.NewClient(sc, logger)
	if err != nil {
		logger.Error("failed to connect to storage", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err = cmdCommon.PrepareStorage(context.Background(), sc, db, logger); err != nil {
		logger.Error("migration failed", "err", err)
		db.Close()
		os.Exit(1)
	}
}

// Register registers the migrate sub-command.
func Register(parentCmd *cobra.Command) {
	parentCmd.AddCommand(migrateCmd)
}
