package vault

import (
	"fmt"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/oasisprotocol/vault/vault/access"
)

// TransferInRewards pulls amount of the asset from caller into the vault.
// The rewards vest linearly over the configured vesting period and only
// count towards total assets once vested. A new batch is rejected while the
// previous one is still vesting.
func (v *Vault) TransferInRewards(caller ethCommon.Address, amount *uint256.Int) error {
	return v.execute("transfer_in_rewards", func(now uint64) error {
		if err := v.roles.CheckRole(access.RewarderRole, caller); err != nil {
			return err
		}
		if amount == nil || amount.IsZero() {
			return ErrInvalidAmount
		}
		if unvested := v.unvestedAt(now); !unvested.IsZero() {
			return fmt.Errorf("%w: %s unvested", ErrStillVesting, unvested.Dec())
		}
		if err := v.asset.TransferFrom(v.cfg.Address, caller, v.cfg.Address, amount); err != nil {
			return fmt.Errorf("pull rewards: %w", err)
		}
		v.updateSettings(func(s *settings) {
			s.vestingAmount = amount.Clone()
			s.lastDistribution = now
		})
		v.emit(&RewardsReceivedEvent{Amount: amount.Clone()})
		return nil
	})
}

// UnvestedAmount is the part of the last reward batch that has not vested yet.
func (v *Vault) UnvestedAmount() *uint256.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.unvestedAt(v.clock.Now())
}
