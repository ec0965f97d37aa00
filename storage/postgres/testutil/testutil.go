package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/storage/postgres"
)

const connStringEnv = "CI_TEST_CONN_STRING"

// SkipUnlessDB skips the test when no test database is configured.
func SkipUnlessDB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	if os.Getenv(connStringEnv) == "" {
		t.Skip("skipping database test; " + connStringEnv + " not set")
	}
}

// ConnString returns the connection string of the CI test database.
func ConnString() string {
	return os.Getenv(connStringEnv)
}

// NewTestClient returns a postgres client used in CI tests.
func NewTestClient(t *testing.T) *postgres.Client {
	SkipUnlessDB(t)
	logger, err := log.NewLogger("postgres-test", os.Stdout, log.FmtJSON, log.LevelError)
	require.Nil(t, err, "log.NewLogger")

	client, err := postgres.NewClient(ConnString(), logger)
	require.Nil(t, err, "postgres.NewClient")
	return client
}
