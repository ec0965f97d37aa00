package access

import (
	"testing"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/vault/journal"
)

var (
	admin    = ethCommon.HexToAddress("0x00000000000000000000000000000000000000ad")
	rewarder = ethCommon.HexToAddress("0x00000000000000000000000000000000000000e0")
)

func TestRoleIDs(t *testing.T) {
	require.Equal(t, ethCommon.Hash{}, DefaultAdminRole)
	// keccak256("REWARDER_ROLE")
	require.Equal(t, "0xbeec13769b5f410b0584f69811bfd923818456d5edcf426b0e31cf90eed7a3f6", RewarderRole.Hex())
	require.Equal(t, "REWARDER_ROLE", RoleName(RewarderRole))
}

func TestGrantRevoke(t *testing.T) {
	j := journal.New()
	c, err := New(j, admin)
	require.NoError(t, err)
	require.True(t, c.HasRole(DefaultAdminRole, admin))

	err = c.GrantRole(rewarder, RewarderRole, rewarder)
	require.ErrorIs(t, err, ErrMissingRole)
	require.Equal(t, common.KindAuthorization, common.KindOf(err))

	require.NoError(t, c.GrantRole(admin, RewarderRole, rewarder))
	require.NoError(t, c.CheckRole(RewarderRole, rewarder))
	require.Equal(t, []ethCommon.Address{rewarder}, c.Members(RewarderRole))

	require.ErrorIs(t, c.GrantRole(admin, RewarderRole, common.ZeroAddress), common.ErrZeroAddress)

	require.NoError(t, c.RevokeRole(admin, RewarderRole, rewarder))
	require.False(t, c.HasRole(RewarderRole, rewarder))

	c.RenounceRole(admin, DefaultAdminRole)
	require.False(t, c.HasRole(DefaultAdminRole, admin))
}

func TestRevert(t *testing.T) {
	j := journal.New()
	c, err := New(j, admin)
	require.NoError(t, err)
	j.Commit()

	snap := j.Snapshot()
	require.NoError(t, c.GrantRole(admin, RewarderRole, rewarder))
	c.RenounceRole(admin, DefaultAdminRole)
	j.RevertToSnapshot(snap)

	require.True(t, c.HasRole(DefaultAdminRole, admin))
	require.False(t, c.HasRole(RewarderRole, rewarder))
}

func TestExportImport(t *testing.T) {
	j := journal.New()
	c, err := New(j, admin)
	require.NoError(t, err)
	require.NoError(t, c.GrantRole(admin, RewarderRole, rewarder))

	other, err := New(journal.New(), rewarder)
	require.NoError(t, err)
	other.Import(c.Export())
	require.True(t, other.HasRole(DefaultAdminRole, admin))
	require.True(t, other.HasRole(RewarderRole, rewarder))
	require.False(t, other.HasRole(DefaultAdminRole, rewarder))
}

func TestNewRejectsZeroAdmin(t *testing.T) {
	_, err := New(journal.New(), common.ZeroAddress)
	require.ErrorIs(t, err, common.ErrZeroAddress)
}
