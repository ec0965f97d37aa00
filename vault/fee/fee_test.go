package fee

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	for _, tc := range []struct {
		name   string
		rate   Rate
		amount uint64
		fee    uint64
		net    uint64
	}{
		{"zero rate", 0, 1000, 0, 1000},
		{"full rate", MaxBasisPoints, 1000, 1000, 0},
		{"half percent", 50, 200, 1, 199},
		{"rounds fee down", 1, 50, 0, 50},
		{"exact", 1, 10_000, 1, 9_999},
		{"zero amount", 5000, 0, 0, 0},
		{"thirty percent", 3000, 333, 99, 234},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fee, net := tc.rate.Split(uint256.NewInt(tc.amount))
			require.Equal(t, tc.fee, fee.Uint64())
			require.Equal(t, tc.net, net.Uint64())
		})
	}
}

func TestSplitFullRange(t *testing.T) {
	maxAmount := new(uint256.Int).SetAllOne()

	fee, net := Rate(MaxBasisPoints - 1).Split(maxAmount)
	sum := new(uint256.Int).Add(fee, net)
	require.True(t, sum.Eq(maxAmount), "fee + net must equal gross")

	// floor(max * 9999 / 10000) computed without overflow.
	expected, overflow := new(uint256.Int).MulDivOverflow(maxAmount, uint256.NewInt(9999), uint256.NewInt(10_000))
	require.False(t, overflow)
	require.True(t, fee.Eq(expected))
}

func TestSplitDoesNotAlias(t *testing.T) {
	amount := uint256.NewInt(100)
	_, net := Rate(0).Split(amount)
	net.AddUint64(net, 1)
	require.Equal(t, uint64(100), amount.Uint64())
}

func TestValidate(t *testing.T) {
	require.NoError(t, Rate(0).Validate())
	require.NoError(t, Rate(MaxBasisPoints).Validate())
	require.ErrorIs(t, Rate(MaxBasisPoints+1).Validate(), ErrInvalidFee)
}

func TestString(t *testing.T) {
	require.Equal(t, "0.5%", Rate(50).String())
	require.Equal(t, "0.01%", Rate(1).String())
	require.Equal(t, "100%", Rate(MaxBasisPoints).String())
	require.Equal(t, "12.34%", Rate(1234).String())
}
