package cooldown

import (
	"testing"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/vault/vault/journal"
)

var (
	alice = ethCommon.HexToAddress("0xa1")
	bob   = ethCommon.HexToAddress("0xb0")
)

func TestStartAndClear(t *testing.T) {
	r := New(journal.New(), ModeOverwrite)

	rec := r.Get(alice)
	require.False(t, rec.Active())
	require.Equal(t, uint64(0), rec.UnlockTimestamp)

	replaced, err := r.Start(alice, uint256.NewInt(100), 1_000)
	require.NoError(t, err)
	require.True(t, replaced.IsZero())

	rec = r.Get(alice)
	require.True(t, rec.Active())
	require.Equal(t, uint64(100), rec.UnderlyingAmount.Uint64())
	require.False(t, rec.Unlocked(999))
	require.True(t, rec.Unlocked(1_000))

	cleared := r.Clear(alice)
	require.Equal(t, uint64(100), cleared.UnderlyingAmount.Uint64())
	require.False(t, r.Get(alice).Active())
	require.Equal(t, uint64(0), r.Get(alice).UnlockTimestamp)
	require.True(t, r.TotalPending().IsZero())

	// Clearing again is harmless.
	require.False(t, r.Clear(alice).Active())
}

func TestOverwrite(t *testing.T) {
	r := New(journal.New(), ModeOverwrite)
	_, err := r.Start(alice, uint256.NewInt(100), 1_000)
	require.NoError(t, err)
	_, err = r.Start(bob, uint256.NewInt(5), 1_000)
	require.NoError(t, err)

	replaced, err := r.Start(alice, uint256.NewInt(30), 2_000)
	require.NoError(t, err)
	require.Equal(t, uint64(100), replaced.Uint64())

	rec := r.Get(alice)
	require.Equal(t, uint64(30), rec.UnderlyingAmount.Uint64())
	require.Equal(t, uint64(2_000), rec.UnlockTimestamp)
	require.Equal(t, uint64(35), r.TotalPending().Uint64())
}

func TestAccumulate(t *testing.T) {
	r := New(journal.New(), ModeAccumulate)
	_, err := r.Start(alice, uint256.NewInt(100), 1_000)
	require.NoError(t, err)

	replaced, err := r.Start(alice, uint256.NewInt(30), 2_000)
	require.NoError(t, err)
	require.True(t, replaced.IsZero())

	rec := r.Get(alice)
	require.Equal(t, uint64(130), rec.UnderlyingAmount.Uint64())
	require.Equal(t, uint64(2_000), rec.UnlockTimestamp)
	require.Equal(t, uint64(130), r.TotalPending().Uint64())

	_, err = r.Start(alice, new(uint256.Int).SetAllOne(), 3_000)
	require.ErrorIs(t, err, ErrOverflow)
	require.Equal(t, uint64(130), r.Get(alice).UnderlyingAmount.Uint64())
}

func TestRevert(t *testing.T) {
	j := journal.New()
	r := New(j, ModeOverwrite)
	_, err := r.Start(alice, uint256.NewInt(100), 1_000)
	require.NoError(t, err)
	j.Commit()

	snap := j.Snapshot()
	_, err = r.Start(alice, uint256.NewInt(1), 5_000)
	require.NoError(t, err)
	r.Clear(alice)
	_, err = r.Start(bob, uint256.NewInt(7), 5_000)
	require.NoError(t, err)
	j.RevertToSnapshot(snap)

	require.Equal(t, uint64(100), r.Get(alice).UnderlyingAmount.Uint64())
	require.Equal(t, uint64(1_000), r.Get(alice).UnlockTimestamp)
	require.False(t, r.Get(bob).Active())
	require.Equal(t, uint64(100), r.TotalPending().Uint64())
}

func TestGetReturnsCopy(t *testing.T) {
	r := New(journal.New(), ModeOverwrite)
	_, err := r.Start(alice, uint256.NewInt(100), 1_000)
	require.NoError(t, err)

	rec := r.Get(alice)
	rec.UnderlyingAmount.SetUint64(0)
	require.Equal(t, uint64(100), r.Get(alice).UnderlyingAmount.Uint64())
}

func TestExportImport(t *testing.T) {
	r := New(journal.New(), ModeOverwrite)
	_, err := r.Start(bob, uint256.NewInt(7), 10)
	require.NoError(t, err)
	_, err = r.Start(alice, uint256.NewInt(100), 20)
	require.NoError(t, err)

	entries := r.Export()
	require.Equal(t, []Entry{
		{Account: alice, UnlockTimestamp: 20, Amount: "100"},
		{Account: bob, UnlockTimestamp: 10, Amount: "7"},
	}, entries)

	other := New(journal.New(), ModeOverwrite)
	require.NoError(t, other.Import(entries))
	require.Equal(t, entries, other.Export())
	require.Equal(t, uint64(107), other.TotalPending().Uint64())
}

func TestMode(t *testing.T) {
	var m Mode
	require.NoError(t, m.Set("ACCUMULATE"))
	require.Equal(t, ModeAccumulate, m)
	require.Equal(t, "accumulate", m.String())
	require.NoError(t, m.Set("overwrite"))
	require.Equal(t, ModeOverwrite, m)
	require.Error(t, m.Set("queue"))

	bad := Mode(9)
	require.Panics(t, func() { _ = bad.String() })
}
