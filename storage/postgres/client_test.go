package postgres_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/storage"
	"github.com/oasisprotocol/vault/storage/postgres"
	"github.com/oasisprotocol/vault/storage/postgres/testutil"
)

func TestInvalidConnect(t *testing.T) {
	_, err := postgres.NewClient("an invalid connstring", log.NewNopLogger())
	require.NotNil(t, err)
}

func TestQuery(t *testing.T) {
	client := testutil.NewTestClient(t)
	defer client.Close()

	rows, err := client.Query(context.Background(), `
		SELECT * FROM ( VALUES (0),(1),(2) ) AS q;
	`)
	require.Nil(t, err)
	defer rows.Close()

	i := 0
	for rows.Next() {
		var result int
		require.Nil(t, rows.Scan(&result))
		require.Equal(t, i, result)
		i++
	}
	require.Equal(t, 3, i)
}

func TestInvalidQuery(t *testing.T) {
	client := testutil.NewTestClient(t)
	defer client.Close()

	_, err := client.Query(context.Background(), `
		an invalid query
	`)
	require.NotNil(t, err)
}

func TestQueryRow(t *testing.T) {
	client := testutil.NewTestClient(t)
	defer client.Close()

	var result int
	err := client.QueryRow(context.Background(), `
		SELECT 1+1;
	`).Scan(&result)
	require.Nil(t, err)
	require.Equal(t, 2, result)
}

func TestSendBatch(t *testing.T) {
	client := testutil.NewTestClient(t)
	defer client.Close()
	ctx := context.Background()

	defer func() {
		destroy := &storage.QueryBatch{}
		destroy.Queue(`DROP TABLE IF EXISTS films;`)
		require.Nil(t, client.SendBatch(ctx, destroy))
	}()

	create := &storage.QueryBatch{}
	create.Queue(`
		CREATE TABLE films (
			fid  INTEGER PRIMARY KEY,
			name TEXT
		);
	`)
	require.Nil(t, client.SendBatch(ctx, create))

	insert := &storage.QueryBatch{}
	for i, film := range []string{"Gattaca", "Heat", "Ran"} {
		insert.Queue(`INSERT INTO films (fid, name) VALUES ($1, $2);`, i, film)
	}
	require.Nil(t, client.SendBatch(ctx, insert))

	var count int
	require.Nil(t, client.QueryRow(ctx, `SELECT COUNT(*) FROM films;`).Scan(&count))
	require.Equal(t, 3, count)

	// A failing query reverts the whole batch and names the offending query.
	bad := &storage.QueryBatch{}
	bad.Queue(`INSERT INTO films (fid, name) VALUES ($1, $2);`, 10, "Alien")
	bad.Queue(`INSERT INTO films (fid, name) VALUES ($1, $2);`, 0, "Duplicate")
	err := client.SendBatch(ctx, bad)
	require.Error(t, err)
	require.Contains(t, err.Error(), fmt.Sprintf("query %d", 1))

	require.Nil(t, client.QueryRow(ctx, `SELECT COUNT(*) FROM films;`).Scan(&count))
	require.Equal(t, 3, count)
}
