// Package fee computes the instant-exit fee.
package fee

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/oasisprotocol/vault/common"
)

// MaxBasisPoints is 100%.
const MaxBasisPoints = 10_000

var (
	// ErrInvalidFee is returned for rates above MaxBasisPoints.
	ErrInvalidFee = common.NewError(common.KindValidation, "InvalidFee", "invalid fee rate")

	maxBP = uint256.NewInt(MaxBasisPoints)
)

// Rate is a fee rate in basis points.
type Rate uint16

// Validate checks that the rate is at most 100%.
func (r Rate) Validate() error {
	if r > MaxBasisPoints {
		return fmt.Errorf("%w: %d bp exceeds %d", ErrInvalidFee, r, MaxBasisPoints)
	}
	return nil
}

// Split divides a gross amount into the fee and the amount left for the
// user: fee = floor(amount*r/10000), net = amount - fee.
//
// The product is computed in 512 bits so any 256-bit amount is accepted.
// Small amounts can produce a zero fee at a non-zero rate.
func (r Rate) Split(amount *uint256.Int) (fee, net *uint256.Int) {
	switch {
	case r == 0 || amount.IsZero():
		return new(uint256.Int), amount.Clone()
	case r >= MaxBasisPoints:
		return amount.Clone(), new(uint256.Int)
	}
	fee, _ = new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(uint64(r)), maxBP)
	net = new(uint256.Int).Sub(amount, fee)
	return fee, net
}

// String renders the rate as a percentage, e.g. "0.5%".
func (r Rate) String() string {
	whole, frac := uint16(r)/100, uint16(r)%100
	switch {
	case frac == 0:
		return fmt.Sprintf("%d%%", whole)
	case frac%10 == 0:
		return fmt.Sprintf("%d.%d%%", whole, frac/10)
	default:
		return fmt.Sprintf("%d.%02d%%", whole, frac)
	}
}
