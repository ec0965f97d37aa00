// Package storage defines storage interfaces.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// QueryResults represents the results from a read query.
type QueryResults = pgx.Rows

// QueryResult represents the result from a read query.
type QueryResult = pgx.Row

// Tx represents a database transaction.
type Tx = pgx.Tx

// BatchItem is a single queued query.
type BatchItem struct {
	Cmd  string
	Args []interface{}
}

func (i BatchItem) String() string {
	return fmt.Sprintf("%q %v", i.Cmd, i.Args)
}

// QueryBatch represents a batch of queries to be executed atomically.
// Unlike pgx.Batch, it keeps the queued queries around for error reporting.
type QueryBatch struct {
	items []*BatchItem
}

// Queue adds a query to the batch.
func (b *QueryBatch) Queue(cmd string, args ...interface{}) {
	b.items = append(b.items, &BatchItem{
		Cmd:  cmd,
		Args: args,
	})
}

// Extend appends all queries of another batch.
func (b *QueryBatch) Extend(qb *QueryBatch) {
	b.items = append(b.items, qb.items...)
}

// Len returns the number of queued queries.
func (b *QueryBatch) Len() int {
	return len(b.items)
}

// Queries returns the queued queries.
func (b *QueryBatch) Queries() []*BatchItem {
	return b.items
}

// AsPgxBatch converts the batch into a pgx.Batch.
func (b *QueryBatch) AsPgxBatch() pgx.Batch {
	pgxBatch := pgx.Batch{}
	for _, item := range b.items {
		pgxBatch.Queue(item.Cmd, item.Args...)
	}
	return pgxBatch
}

// TargetStorage defines an interface for reading and writing
// vault history.
type TargetStorage interface {
	// SendBatch sends a batch of queries to be applied to target storage.
	SendBatch(ctx context.Context, batch *QueryBatch) error

	// SendBatchWithOptions is like SendBatch, with custom DB options (e.g. level of tx isolation).
	SendBatchWithOptions(ctx context.Context, batch *QueryBatch, opts pgx.TxOptions) error

	// Query submits a query to fetch data from target storage.
	Query(ctx context.Context, sql string, args ...interface{}) (QueryResults, error)

	// QueryRow submits a query to fetch a single row of data from target storage.
	QueryRow(ctx context.Context, sql string, args ...interface{}) QueryResult

	// Begin starts a new transaction.
	Begin(ctx context.Context) (Tx, error)

	// Close shuts down the database client.
	Close()

	// Name returns the name of the target storage.
	Name() string

	// Wipe removes all contents of the database.
	Wipe(ctx context.Context) error
}
