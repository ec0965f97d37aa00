package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jackc/pgx/v5"

	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/storage"
	"github.com/oasisprotocol/vault/storage/client/queries"
)

const (
	eventCost = 1

	maxTotalCount = 1000
)

var (
	// ErrNotFound is returned when a queried item does not exist.
	ErrNotFound = common.NewError(common.KindNotFound, "NotFound", "not found")
	// ErrStorage wraps any other storage failure.
	ErrStorage = common.NewError(common.KindUnknown, "StorageError", "storage error")
)

// StorageClient is a wrapper around a storage.TargetStorage
// with knowledge of the vault's history tables.
type StorageClient struct {
	db storage.TargetStorage

	// Recorded events never change once the vault has started serving.
	eventCache *ristretto.Cache[uint64, *Event]

	logger *log.Logger
}

type rowsWithCount struct {
	rows                pgx.Rows
	totalCount          uint64
	isTotalCountClipped bool
}

// NewStorageClient creates a new storage client.
func NewStorageClient(db storage.TargetStorage, l *log.Logger) (*StorageClient, error) {
	eventCache, err := ristretto.NewCache(&ristretto.Config[uint64, *Event]{
		NumCounters:        1024 * 10,
		MaxCost:            1024,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		l.Error("api client: failed to create event cache", "err", err)
		return nil, err
	}
	return &StorageClient{db, eventCache, l.WithModule("storage_client")}, nil
}

// Close releases the cache and closes the backing TargetStorage.
func (c *StorageClient) Close() {
	c.eventCache.Close()
	c.db.Close()
}

// Wraps an error into one of the error types defined by this package.
func wrapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

// For queries that return multiple rows, returns the rows for a given query, as well as
// the total count of matching records, i.e. the number of rows the query would return
// with limit=infinity.
// Assumes that the last two query parameters are limit and offset.
// The total count is capped by an internal limit for performance reasons.
func (c *StorageClient) withTotalCount(ctx context.Context, sql string, args ...interface{}) (*rowsWithCount, error) {
	var totalCount uint64
	if len(args) < 2 {
		return nil, fmt.Errorf("list queries must have at least two params (limit and offset)")
	}

	// The count is scanned before the rows are queried so that the count's
	// connection is released before the caller holds one while scanning rows.
	origLimit := args[len(args)-2]
	// Temporarily set limit to just high enough to learn
	// if there are >maxTotalCount matching items in the DB.
	args[len(args)-2] = maxTotalCount + 1
	if err := c.db.QueryRow(
		ctx,
		queries.TotalCountQuery(sql),
		args...,
	).Scan(&totalCount); err != nil {
		return nil, wrapError(err)
	}
	clipped := totalCount == maxTotalCount+1
	if clipped {
		totalCount = maxTotalCount
	}

	args[len(args)-2] = origLimit
	rows, err := c.db.Query(
		ctx,
		sql,
		args...,
	)
	if err != nil {
		return nil, err
	}

	return &rowsWithCount{
		rows:                rows,
		totalCount:          totalCount,
		isTotalCountClipped: clipped,
	}, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row scanner) (*Event, error) {
	var e Event
	var topics [][]byte
	var data []byte
	if err := row.Scan(
		&e.Seq,
		&e.Name,
		&e.Time,
		&e.Account,
		&e.Fields,
		&topics,
		&data,
	); err != nil {
		return nil, err
	}
	e.Time = e.Time.UTC()
	e.Topics = make([]string, 0, len(topics))
	for _, t := range topics {
		e.Topics = append(e.Topics, hexutil.Encode(t))
	}
	e.Data = hexutil.Encode(data)
	return &e, nil
}

// Events returns a list of recorded events, newest first.
func (c *StorageClient) Events(ctx context.Context, f EventFilter) (*EventList, error) {
	res, err := c.withTotalCount(
		ctx,
		queries.Events,
		f.Account,
		f.Name,
		f.After,
		f.Limit,
		f.Offset,
	)
	if err != nil {
		return nil, wrapError(err)
	}
	defer res.rows.Close()

	es := EventList{
		Events:              []Event{},
		TotalCount:          res.totalCount,
		IsTotalCountClipped: res.isTotalCountClipped,
	}
	for res.rows.Next() {
		e, err := scanEvent(res.rows)
		if err != nil {
			return nil, wrapError(err)
		}
		es.Events = append(es.Events, *e)
	}
	if err := res.rows.Err(); err != nil {
		return nil, wrapError(err)
	}

	return &es, nil
}

// Event returns the event with the given sequence number. This endpoint is cached.
func (c *StorageClient) Event(ctx context.Context, seq uint64) (*Event, error) {
	if e, ok := c.eventCache.Get(seq); ok {
		return e, nil
	}

	e, err := scanEvent(c.db.QueryRow(ctx, queries.Event, seq))
	if err != nil {
		return nil, wrapError(err)
	}
	c.eventCache.Set(seq, e, eventCost)
	return e, nil
}

// Cooldown returns the recorded pending cooldown of account.
func (c *StorageClient) Cooldown(ctx context.Context, account string) (*Cooldown, error) {
	var cd Cooldown
	if err := c.db.QueryRow(
		ctx,
		queries.Cooldown,
		account,
	).Scan(&cd.Account, &cd.UnlockTimestamp, &cd.UnderlyingAmount, &cd.LastSeq); err != nil {
		return nil, wrapError(err)
	}
	return &cd, nil
}

// LatestSeq returns the sequence number of the newest recorded event, or 0.
func (c *StorageClient) LatestSeq(ctx context.Context) (uint64, error) {
	var seq uint64
	if err := c.db.QueryRow(ctx, queries.LatestSeq).Scan(&seq); err != nil {
		return 0, wrapError(err)
	}
	return seq, nil
}
