package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/storage/postgres"
	"github.com/oasisprotocol/vault/storage/postgres/testutil"
)

func TestStorageRoundTrip(t *testing.T) {
	db := testutil.NewTestClient(t)
	ctx := context.Background()
	require.NoError(t, db.Wipe(ctx))
	require.NoError(t, postgres.Migrate("file://../migrations", testutil.ConnString(), log.NewNopLogger()))

	r := NewEventRecorder(db, log.NewNopLogger())
	v, clock := newTestVault(t)
	v.Subscribe(r)
	exercise(t, v)
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	require.NoError(t, r.Run(cctx))

	c, err := NewStorageClient(db, log.NewNopLogger())
	require.NoError(t, err)
	defer c.Close()

	seq, err := c.LatestSeq(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), seq)

	account := alice.Hex()
	list, err := c.Events(ctx, EventFilter{Account: &account, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, uint64(2), list.TotalCount)
	require.Equal(t, "CooldownStarted", list.Events[0].Name)
	require.Equal(t, "Deposit", list.Events[1].Name)
	require.Equal(t, "1000", list.Events[1].Fields["assets"])
	require.Len(t, list.Events[1].Topics, 3)

	e, err := c.Event(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Deposit", e.Name)

	_, err = c.Event(ctx, 99)
	require.True(t, errors.Is(err, ErrNotFound))

	cd, err := c.Cooldown(ctx, account)
	require.NoError(t, err)
	require.Equal(t, "300", cd.UnderlyingAmount)

	// A claim removes the cooldown row.
	r = NewEventRecorder(db, log.NewNopLogger())
	v.Subscribe(r)
	clock.now += 3600
	_, err = v.Unstake(alice, alice)
	require.NoError(t, err)
	cctx, cancel = context.WithCancel(ctx)
	cancel()
	require.NoError(t, r.Run(cctx))
	_, err = c.Cooldown(ctx, account)
	require.True(t, errors.Is(err, ErrNotFound))
}
