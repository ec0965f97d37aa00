// Package postgres implements the target storage interface
// backed by PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"

	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/metrics"
	"github.com/oasisprotocol/vault/storage"
)

const (
	moduleName = "postgres"
)

// Client is a client for connecting to PostgreSQL.
type Client struct {
	pool    *pgxpool.Pool
	logger  *log.Logger
	metrics metrics.DatabaseMetrics
}

var _ storage.TargetStorage = (*Client)(nil)

// pgxLogger is a pgx-compatible logger interface that uses the vault's standard
// logger as the backend.
type pgxLogger struct {
	logger *log.Logger
}

// logFuncForLevel maps a pgx log severity level to a corresponding logger function.
func (l *pgxLogger) logFuncForLevel(level tracelog.LogLevel) func(string, ...interface{}) {
	switch level {
	case tracelog.LogLevelTrace, tracelog.LogLevelDebug:
		return l.logger.Debug
	case tracelog.LogLevelInfo:
		return l.logger.Info
	case tracelog.LogLevelWarn:
		return l.logger.Warn
	case tracelog.LogLevelError, tracelog.LogLevelNone:
		return l.logger.Error
	default:
		l.logger.Warn("Unknown log level", "unknown_level", level)
		return l.logger.Info
	}
}

// Implements the tracelog.Logger interface.
func (l *pgxLogger) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]interface{}) {
	args := []interface{}{}
	for k, v := range data {
		args = append(args, k, v)
	}

	logFunc := l.logFuncForLevel(level)
	logFunc(msg, args...)
}

// NewClient creates a new PostgreSQL client.
func NewClient(connString string, l *log.Logger) (*Client, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}

	// For a log line to be produced, it needs to be >= the level specified
	// here, and >= the level of the underlying logger. "Info" level logs
	// every SQL statement executed.
	config.ConnConfig.Tracer = &tracelog.TraceLog{
		LogLevel: tracelog.LogLevelWarn,
		Logger: &pgxLogger{
			logger: l.WithModule(moduleName).With("db", config.ConnConfig.Database),
		},
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}
	return &Client{
		pool:    pool,
		logger:  l.WithModule(moduleName),
		metrics: metrics.NewDefaultDatabaseMetrics("vault"),
	}, nil
}

// SendBatch submits a new batch of queries as an atomic transaction to PostgreSQL.
//
// Updated row counts are discarded; callers only care about atomic success
// or failure of the batch.
func (c *Client) SendBatch(ctx context.Context, batch *storage.QueryBatch) error {
	return c.SendBatchWithOptions(ctx, batch, pgx.TxOptions{})
}

// Submits a new batch. Under the hood, uses `tx.SendBatch(batch.AsPgxBatch())`,
// which is more efficient as it happens in a single roundtrip to the server.
// However, it reports errors poorly: If _any_ query is syntactically
// malformed, called with the wrong number of args, or has a type conversion problem,
// pgx will report the _first_ query as failing.
func (c *Client) sendBatchWithOptionsFast(ctx context.Context, batch *storage.QueryBatch, opts pgx.TxOptions) error {
	pgxBatch := batch.AsPgxBatch()
	var batchResults pgx.BatchResults
	var emptyTxOptions pgx.TxOptions
	var tx pgx.Tx
	var err error

	useExplicitTx := opts != emptyTxOptions
	if useExplicitTx {
		tx, err = c.pool.BeginTx(ctx, opts)
		if err != nil {
			return fmt.Errorf("failed to begin tx: %w", err)
		}
		batchResults = tx.SendBatch(ctx, &pgxBatch)
	} else {
		// Implicit tx provided by SendBatch; see https://github.com/jackc/pgx/issues/879
		batchResults = c.pool.SendBatch(ctx, &pgxBatch)
	}

	for i := 0; i < pgxBatch.Len(); i++ {
		if _, err := batchResults.Exec(); err != nil {
			common.CloseOrLog(batchResults, c.logger)
			rollbackErr := ""
			if useExplicitTx {
				if err2 := tx.Rollback(ctx); err2 != nil {
					rollbackErr = fmt.Sprintf("; also failed to rollback tx: %s", err2.Error())
				}
			}
			return fmt.Errorf("query %d %v: %w%s", i, batch.Queries()[i], err, rollbackErr)
		}
	}
	if err := batchResults.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if useExplicitTx {
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit tx: %w", err)
		}
	}
	return nil
}

// Submits a new batch of queries, sending one query at a time. Compared with
// `sendBatchWithOptionsFast`, this gives slower performance but better error reporting.
func (c *Client) sendBatchWithOptionsSlow(ctx context.Context, batch *storage.QueryBatch, opts pgx.TxOptions) error {
	tx, err := c.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	for i, q := range batch.Queries() {
		if _, err2 := tx.Exec(ctx, q.Cmd, q.Args...); err2 != nil {
			rollbackErr := ""
			if err3 := tx.Rollback(ctx); err3 != nil {
				rollbackErr = fmt.Sprintf("; also failed to rollback tx: %s", err3.Error())
			}
			return fmt.Errorf("query %d %v: %w%s", i, q, err2, rollbackErr)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		c.logger.Error("failed to submit tx",
			"error", err,
			"batch", batch.Queries(),
		)
		return err
	}
	return nil
}

// SendBatchWithOptions submits a batch, retrying query by query on failure
// so the error names the offending query.
func (c *Client) SendBatchWithOptions(ctx context.Context, batch *storage.QueryBatch, opts pgx.TxOptions) (err error) {
	done := c.metrics.Observe(moduleName, "send_batch")
	defer func() { done(err) }()
	c.metrics.BatchSize(moduleName).Observe(float64(batch.Len()))

	if err = c.sendBatchWithOptionsFast(ctx, batch, opts); err == nil {
		return nil
	}
	// The tx was reverted, so we can resubmit.
	return c.sendBatchWithOptionsSlow(ctx, batch, opts)
}

// Query submits a new read query to PostgreSQL.
func (c *Client) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	done := c.metrics.Observe(moduleName, "query")
	rows, err := c.pool.Query(ctx, sql, args...)
	done(err)
	if err != nil {
		c.logger.Error("failed to query db",
			"error", err,
			"query_cmd", sql,
			"query_args", args,
		)
		return nil, err
	}
	return rows, nil
}

// QueryRow submits a new read query for a single row to PostgreSQL.
func (c *Client) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return c.pool.QueryRow(ctx, sql, args...)
}

// Begin implements the storage.TargetStorage interface for Client.
func (c *Client) Begin(ctx context.Context) (storage.Tx, error) {
	return c.pool.Begin(ctx)
}

// Close implements the storage.TargetStorage interface for Client.
func (c *Client) Close() {
	c.pool.Close()
}

// Name implements the storage.TargetStorage interface for Client.
func (c *Client) Name() string {
	return moduleName
}

// listQualified runs a catalog query returning (schema, name) pairs and
// joins them into fully-qualified names.
func (c *Client) listQualified(ctx context.Context, what string, sql string) ([]string, error) {
	rows, err := c.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", what, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var schema, name string
		if err = rows.Scan(&schema, &name); err != nil {
			return nil, err
		}
		names = append(names, fmt.Sprintf("%s.%s", schema, name))
	}
	return names, rows.Err()
}

// Wipe removes all contents of the database.
func (c *Client) Wipe(ctx context.Context) error {
	objects := []struct {
		kind string
		list string
	}{
		{"TABLE", `
			SELECT schemaname, tablename
			FROM pg_tables
			WHERE schemaname != 'information_schema' AND schemaname NOT LIKE 'pg_%'`},
		// Query from https://stackoverflow.com/questions/3660787/how-to-list-custom-types-using-postgres-information-schema
		{"TYPE", `
			SELECT      n.nspname as schema, t.typname as type
			FROM        pg_type t
			LEFT JOIN   pg_catalog.pg_namespace n ON n.oid = t.typnamespace
			WHERE       (t.typrelid = 0 OR (SELECT c.relkind = 'c' FROM pg_catalog.pg_class c WHERE c.oid = t.typrelid))
			AND     NOT EXISTS(SELECT 1 FROM pg_catalog.pg_type el WHERE el.oid = t.typelem AND el.typarray = t.oid)
			AND     n.nspname != 'information_schema' AND n.nspname NOT LIKE 'pg_%'`},
		{"FUNCTION", `
			SELECT n.nspname as schema, p.proname as function
			FROM pg_proc p
			LEFT JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace
			WHERE n.nspname NOT IN ('pg_catalog', 'information_schema')`},
	}

	for _, o := range objects {
		names, err := c.listQualified(ctx, o.kind, o.list)
		if err != nil {
			return err
		}
		for _, name := range names {
			c.logger.Info("dropping", "kind", o.kind, "name", name)
			if _, err = c.pool.Exec(ctx, fmt.Sprintf("DROP %s IF EXISTS %s CASCADE;", o.kind, name)); err != nil {
				return err
			}
		}
	}

	// The schema itself survives table drops; remove it so migrations start clean.
	_, err := c.pool.Exec(ctx, "DROP SCHEMA IF EXISTS vault CASCADE;")
	return err
}
