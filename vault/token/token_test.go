package token

import (
	"testing"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/vault/journal"
)

var (
	minter = ethCommon.HexToAddress("0x00000000000000000000000000000000000000f0")
	alice  = ethCommon.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob    = ethCommon.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func newTestToken(t *testing.T) (*Token, *journal.Journal) {
	j := journal.New()
	tok := New(j, Params{
		Address:  ethCommon.HexToAddress("0x0000000000000000000000000000000000000100"),
		Symbol:   "USDe",
		Decimals: 18,
		Minter:   minter,
	})
	require.NoError(t, tok.Mint(minter, alice, uint256.NewInt(1000)))
	j.Commit()
	return tok, j
}

func TestMintBurn(t *testing.T) {
	tok, _ := newTestToken(t)
	require.Equal(t, uint64(1000), tok.TotalSupply().Uint64())
	require.Equal(t, uint64(1000), tok.BalanceOf(alice).Uint64())

	require.ErrorIs(t, tok.Mint(alice, alice, uint256.NewInt(1)), ErrOnlyMinter)
	require.ErrorIs(t, tok.Burn(alice, alice, uint256.NewInt(1)), ErrOnlyMinter)
	require.ErrorIs(t, tok.Burn(minter, alice, uint256.NewInt(1001)), ErrInsufficientBalance)
	require.ErrorIs(t, tok.Mint(minter, common.ZeroAddress, uint256.NewInt(1)), common.ErrZeroAddress)

	require.NoError(t, tok.Burn(minter, alice, uint256.NewInt(400)))
	require.Equal(t, uint64(600), tok.TotalSupply().Uint64())
	require.Equal(t, uint64(600), tok.BalanceOf(alice).Uint64())
}

func TestMintOverflow(t *testing.T) {
	tok, _ := newTestToken(t)
	err := tok.Mint(minter, bob, new(uint256.Int).SetAllOne())
	require.ErrorIs(t, err, ErrOverflow)
	require.Equal(t, common.KindBalance, common.KindOf(err))
	require.Equal(t, uint64(1000), tok.TotalSupply().Uint64())
}

func TestTransfer(t *testing.T) {
	tok, _ := newTestToken(t)

	require.NoError(t, tok.Transfer(alice, bob, uint256.NewInt(300)))
	require.Equal(t, uint64(700), tok.BalanceOf(alice).Uint64())
	require.Equal(t, uint64(300), tok.BalanceOf(bob).Uint64())

	require.ErrorIs(t, tok.Transfer(bob, alice, uint256.NewInt(301)), ErrInsufficientBalance)
	require.ErrorIs(t, tok.Transfer(bob, common.ZeroAddress, uint256.NewInt(1)), common.ErrZeroAddress)

	// Self-transfer and zero transfer leave balances alone.
	require.NoError(t, tok.Transfer(alice, alice, uint256.NewInt(700)))
	require.NoError(t, tok.Transfer(alice, bob, uint256.NewInt(0)))
	require.Equal(t, uint64(700), tok.BalanceOf(alice).Uint64())
	require.Equal(t, []ethCommon.Address{alice, bob}, tok.Holders())
}

func TestTransferFromSpendsAllowance(t *testing.T) {
	tok, _ := newTestToken(t)

	err := tok.TransferFrom(bob, alice, bob, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientAllowance)
	require.Equal(t, common.KindAuthorization, common.KindOf(err))

	require.NoError(t, tok.Approve(alice, bob, uint256.NewInt(100)))
	require.NoError(t, tok.TransferFrom(bob, alice, bob, uint256.NewInt(60)))
	require.Equal(t, uint64(40), tok.Allowance(alice, bob).Uint64())
	require.Equal(t, uint64(60), tok.BalanceOf(bob).Uint64())

	require.ErrorIs(t, tok.TransferFrom(bob, alice, bob, uint256.NewInt(41)), ErrInsufficientAllowance)
}

func TestInfiniteAllowanceIsNotDecremented(t *testing.T) {
	tok, _ := newTestToken(t)

	require.NoError(t, tok.Approve(alice, bob, MaxAllowance()))
	require.NoError(t, tok.TransferFrom(bob, alice, bob, uint256.NewInt(500)))
	require.True(t, tok.Allowance(alice, bob).Eq(MaxAllowance()))
}

func TestRevertRestoresEverything(t *testing.T) {
	tok, j := newTestToken(t)
	before := tok.Export()

	snap := j.Snapshot()
	require.NoError(t, tok.Approve(alice, bob, uint256.NewInt(10)))
	require.NoError(t, tok.TransferFrom(bob, alice, bob, uint256.NewInt(10)))
	require.NoError(t, tok.Mint(minter, bob, uint256.NewInt(5)))
	require.NoError(t, tok.Burn(minter, alice, uint256.NewInt(990)))
	j.RevertToSnapshot(snap)

	require.Equal(t, before, tok.Export())
	require.Equal(t, uint64(0), tok.BalanceOf(bob).Uint64())
	require.Equal(t, uint64(0), tok.Allowance(alice, bob).Uint64())
}

func TestExportImport(t *testing.T) {
	tok, j := newTestToken(t)
	require.NoError(t, tok.Approve(alice, bob, uint256.NewInt(7)))
	require.NoError(t, tok.Transfer(alice, bob, uint256.NewInt(250)))
	j.Commit()

	state := tok.Export()
	restored := New(journal.New(), Params{Address: tok.Address(), Symbol: "USDe", Minter: minter})
	require.NoError(t, restored.Import(state))
	require.Equal(t, state, restored.Export())
	require.Equal(t, uint64(750), restored.BalanceOf(alice).Uint64())
	require.Equal(t, uint64(7), restored.Allowance(alice, bob).Uint64())

	state.Supply = "999"
	require.Error(t, restored.Import(state))
}

func TestDirectory(t *testing.T) {
	tok, _ := newTestToken(t)
	d, err := NewDirectory(tok)
	require.NoError(t, err)

	got, err := d.Get(tok.Address())
	require.NoError(t, err)
	require.Same(t, tok, got)

	_, err = d.Get(bob)
	require.ErrorIs(t, err, ErrUnknownToken)
	require.Error(t, d.Register(tok))
	require.Len(t, d.All(), 1)
}
