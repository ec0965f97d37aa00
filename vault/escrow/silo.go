// Package escrow implements the silo that holds assets while their owners
// wait out the cooldown.
package escrow

import (
	"fmt"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/vault/token"
)

// Releaser pays escrowed assets out. The vault is the only holder of a
// Releaser for its silo.
type Releaser interface {
	Release(to ethCommon.Address, amount *uint256.Int) error
}

// Silo holds a balance of the base asset under its own address. It has no
// logic beyond holding and releasing on command.
type Silo struct {
	address ethCommon.Address
	asset   token.Ledger
}

var _ Releaser = (*Silo)(nil)

// New creates a silo at address holding asset.
func New(address ethCommon.Address, asset token.Ledger) (*Silo, error) {
	if common.IsZeroAddress(address) {
		return nil, fmt.Errorf("silo: %w", common.ErrZeroAddress)
	}
	return &Silo{address: address, asset: asset}, nil
}

// Address is the account that holds the escrowed balance.
func (s *Silo) Address() ethCommon.Address {
	return s.address
}

// Balance is the aggregate amount currently escrowed.
func (s *Silo) Balance() *uint256.Int {
	return s.asset.BalanceOf(s.address)
}

// Release implements Releaser.
func (s *Silo) Release(to ethCommon.Address, amount *uint256.Int) error {
	if err := s.asset.Transfer(s.address, to, amount); err != nil {
		return fmt.Errorf("silo release: %w", err)
	}
	return nil
}
