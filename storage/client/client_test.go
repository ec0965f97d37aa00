package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/storage"
	"github.com/oasisprotocol/vault/storage/client/queries"
	"github.com/oasisprotocol/vault/vault"
	"github.com/oasisprotocol/vault/vault/journal"
	"github.com/oasisprotocol/vault/vault/token"
)

var (
	vaultAddr = ethCommon.HexToAddress("0x00000000000000000000000000000000000000a1")
	siloAddr  = ethCommon.HexToAddress("0x00000000000000000000000000000000000000a2")
	assetAddr = ethCommon.HexToAddress("0x00000000000000000000000000000000000000a3")
	admin     = ethCommon.HexToAddress("0x00000000000000000000000000000000000000b1")
	minter    = ethCommon.HexToAddress("0x00000000000000000000000000000000000000b2")
	alice     = ethCommon.HexToAddress("0x00000000000000000000000000000000000000c1")
)

// MockStorage is a mock object that implements the
// storage.TargetStorage interface and remembers every batch sent to it.
type MockStorage struct {
	mu      sync.Mutex
	batches []*storage.QueryBatch
	down    bool
}

var _ storage.TargetStorage = (*MockStorage)(nil)

func (m *MockStorage) SendBatch(ctx context.Context, batch *storage.QueryBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errors.New("connection refused")
	}
	m.batches = append(m.batches, batch)
	return nil
}

// setDown makes every following write fail until called with false.
func (m *MockStorage) setDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = down
}

func (m *MockStorage) SendBatchWithOptions(ctx context.Context, batch *storage.QueryBatch, opts pgx.TxOptions) error {
	return m.SendBatch(ctx, batch)
}

func (m *MockStorage) Query(ctx context.Context, sql string, args ...interface{}) (storage.QueryResults, error) {
	return nil, nil
}

func (m *MockStorage) QueryRow(ctx context.Context, sql string, args ...interface{}) storage.QueryResult {
	return nil
}

func (m *MockStorage) Begin(ctx context.Context) (storage.Tx, error) {
	return nil, nil
}

func (m *MockStorage) Close() {}

func (m *MockStorage) Name() string {
	return "mock"
}

func (m *MockStorage) Wipe(ctx context.Context) error {
	return nil
}

// queries returns every query sent so far, in order.
func (m *MockStorage) queries() []*storage.BatchItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*storage.BatchItem
	for _, b := range m.batches {
		out = append(out, b.Queries()...)
	}
	return out
}

type testClock struct {
	now uint64
}

func (c *testClock) Now() uint64 { return c.now }

func newTestVault(t *testing.T) (*vault.Vault, *testClock) {
	j := journal.New()
	asset := token.New(j, token.Params{Address: assetAddr, Symbol: "USDe", Decimals: 18, Minter: minter})
	dir, err := token.NewDirectory(asset)
	require.NoError(t, err)
	clock := &testClock{now: 1_700_000_000}
	v, err := vault.New(vault.Config{
		Address:          vaultAddr,
		SiloAddress:      siloAddr,
		Admin:            admin,
		CooldownDuration: 3600,
	}, vault.Deps{Journal: j, Asset: asset, Tokens: dir, Clock: clock})
	require.NoError(t, err)

	require.NoError(t, v.Apply("fund", func() error {
		if err := asset.Mint(minter, alice, uint256.NewInt(1000)); err != nil {
			return err
		}
		return asset.Approve(alice, vaultAddr, token.MaxAllowance())
	}))
	return v, clock
}

// exercise deposits and starts a cooldown, producing a Deposit and a
// CooldownStarted event.
func exercise(t *testing.T, v *vault.Vault) {
	_, err := v.Deposit(alice, uint256.NewInt(1000), alice)
	require.NoError(t, err)
	_, err = v.CooldownShares(alice, uint256.NewInt(300), alice)
	require.NoError(t, err)
}

func insertedSeqs(items []*storage.BatchItem) []uint64 {
	var seqs []uint64
	for _, q := range items {
		if q.Cmd == queries.InsertEvent {
			seqs = append(seqs, q.Args[0].(uint64))
		}
	}
	return seqs
}

func TestQueueEvent(t *testing.T) {
	v, _ := newTestVault(t)
	var events []vault.Event
	v.Subscribe(vault.ListenerFunc(func(es []vault.Event) {
		events = append(events, es...)
	}))
	exercise(t, v)
	require.Len(t, events, 2)

	batch := &storage.QueryBatch{}
	require.NoError(t, QueueEvent(batch, events[0]))
	require.Equal(t, 1, batch.Len())
	deposit := batch.Queries()[0]
	require.Equal(t, queries.InsertEvent, deposit.Cmd)
	require.Equal(t, uint64(1), deposit.Args[0])
	require.Equal(t, "Deposit", deposit.Args[1])
	require.Equal(t, alice.Hex(), *(deposit.Args[3].(*string)))
	require.Contains(t, string(deposit.Args[4].([]byte)), `"assets":"1000"`)

	batch = &storage.QueryBatch{}
	require.NoError(t, QueueEvent(batch, events[1]))
	require.Equal(t, 2, batch.Len())
	upsert := batch.Queries()[1]
	require.Equal(t, queries.UpsertCooldown, upsert.Cmd)
	require.Equal(t, []interface{}{alice.Hex(), uint64(1_700_000_000 + 3600), "300", "0", uint64(2)}, upsert.Args)
}

func TestQueueEventWithoutAccount(t *testing.T) {
	v, _ := newTestVault(t)
	var events []vault.Event
	v.Subscribe(vault.ListenerFunc(func(es []vault.Event) {
		events = append(events, es...)
	}))
	require.NoError(t, v.SetCooldownDuration(admin, 60))
	require.Len(t, events, 1)

	batch := &storage.QueryBatch{}
	require.NoError(t, QueueEvent(batch, events[0]))
	require.Nil(t, batch.Queries()[0].Args[3])
}

func TestRecorderWritesInOrder(t *testing.T) {
	db := &MockStorage{}
	r := NewEventRecorder(db, log.NewNopLogger())
	v, _ := newTestVault(t)
	v.Subscribe(r)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	exercise(t, v)
	_, err := v.Withdraw(alice, uint256.NewInt(0), alice, alice)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(insertedSeqs(db.queries())) == 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.Equal(t, []uint64{1, 2}, insertedSeqs(db.queries()))
}

func TestRecorderDrainsOnShutdown(t *testing.T) {
	db := &MockStorage{}
	r := NewEventRecorder(db, log.NewNopLogger())
	v, _ := newTestVault(t)
	v.Subscribe(r)

	// Events queued before Run starts are written by the drain.
	exercise(t, v)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))
	require.Equal(t, []uint64{1, 2}, insertedSeqs(db.queries()))

	// Once stopped, further events are dropped instead of blocking the vault.
	require.NoError(t, v.SetCooldownDuration(admin, 60))
	require.Equal(t, []uint64{1, 2}, insertedSeqs(db.queries()))
}

func TestRecorderKeepsVaultServingWhileStorageDown(t *testing.T) {
	db := &MockStorage{}
	db.setDown(true)
	r := NewEventRecorder(db, log.NewNopLogger())
	r.retryDelay = 10 * time.Millisecond
	v, _ := newTestVault(t)
	v.Subscribe(r)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	const commits = 2000
	committed := make(chan error, 1)
	go func() {
		for i := 0; i < commits; i++ {
			if err := v.SetCooldownDuration(admin, uint64(60+i)); err != nil {
				committed <- err
				return
			}
		}
		committed <- nil
	}()
	select {
	case err := <-committed:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("vault blocked while the event store is down")
	}
	require.Equal(t, uint64(commits), v.Status().Seq)
	require.GreaterOrEqual(t, r.Backlog(), commits-maxBatchQueries)
	require.Empty(t, insertedSeqs(db.queries()))

	// Everything is written, in order, once the store is back.
	db.setDown(false)
	require.Eventually(t, func() bool {
		return len(insertedSeqs(db.queries())) == commits
	}, 10*time.Second, 10*time.Millisecond)
	seqs := insertedSeqs(db.queries())
	for i, seq := range seqs {
		require.Equal(t, uint64(i+1), seq)
	}
	require.Zero(t, r.Backlog())

	cancel()
	require.NoError(t, <-done)
}

func TestResync(t *testing.T) {
	db := &MockStorage{}
	r := NewEventRecorder(db, log.NewNopLogger())
	v, _ := newTestVault(t)
	exercise(t, v)

	require.NoError(t, r.Resync(context.Background(), v.Export()))
	qs := db.queries()
	require.Len(t, qs, 3)
	require.Equal(t, queries.DeleteEventsAfter, qs[0].Cmd)
	require.Equal(t, []interface{}{uint64(2)}, qs[0].Args)
	require.Equal(t, queries.DeleteCooldowns, qs[1].Cmd)
	require.Equal(t, queries.InsertCooldown, qs[2].Cmd)
	require.Equal(t, alice.Hex(), qs[2].Args[0])
	require.Equal(t, "300", qs[2].Args[2])
}
