package vault

import (
	"fmt"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/vault/cooldown"
)

// CooldownAssets burns owner's shares worth assets and escrows the assets
// for caller until the cooldown ends. While the cooldown duration is zero
// it is an instant withdrawal to caller instead. It returns the burned shares.
func (v *Vault) CooldownAssets(caller ethCommon.Address, assets *uint256.Int, owner ethCommon.Address) (*uint256.Int, error) {
	shares := new(uint256.Int)
	err := v.execute("cooldown_assets", func(now uint64) error {
		if zero, err := v.checkZero(assets); zero {
			return err
		}
		s, err := v.toShares(assets, now, true)
		if err != nil {
			return err
		}
		if v.settings.cooldownDuration == 0 {
			_, _, err = v.instantExit(caller, caller, owner, assets, s)
		} else {
			err = v.startCooldown(now, caller, owner, assets, s)
		}
		if err != nil {
			return err
		}
		shares = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// CooldownShares burns shares from owner and escrows the assets they are
// worth for caller until the cooldown ends. While the cooldown duration is
// zero it is an instant redemption to caller instead, and the net assets
// are returned; otherwise the escrowed assets are.
func (v *Vault) CooldownShares(caller ethCommon.Address, shares *uint256.Int, owner ethCommon.Address) (*uint256.Int, error) {
	assets := new(uint256.Int)
	err := v.execute("cooldown_shares", func(now uint64) error {
		if zero, err := v.checkZero(shares); zero {
			return err
		}
		a, err := v.toAssets(shares, now, false)
		if err != nil {
			return err
		}
		if v.settings.cooldownDuration == 0 {
			_, a, err = v.instantExit(caller, caller, owner, a, shares)
		} else {
			err = v.startCooldown(now, caller, owner, a, shares)
		}
		if err != nil {
			return err
		}
		assets = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (v *Vault) startCooldown(now uint64, caller, owner ethCommon.Address, assets, shares *uint256.Int) error {
	if err := v.burnShares(caller, owner, shares); err != nil {
		return err
	}
	if err := v.asset.Transfer(v.cfg.Address, v.silo.Address(), assets); err != nil {
		return fmt.Errorf("escrow assets: %w", err)
	}
	unlock := now + v.settings.cooldownDuration
	replaced, err := v.cooldowns.Start(caller, assets, unlock)
	if err != nil {
		return err
	}
	if err := v.checkMinShares(); err != nil {
		return err
	}
	if !replaced.IsZero() {
		v.logger.Warn("unclaimed cooldown overwritten",
			"account", caller.Hex(),
			"replaced", replaced.Dec(),
		)
	}
	v.emit(&CooldownStartedEvent{
		Holder:          caller,
		Owner:           owner,
		Assets:          assets.Clone(),
		Shares:          shares.Clone(),
		UnlockTimestamp: unlock,
		Replaced:        replaced,
	})
	return nil
}

// Unstake releases caller's escrowed assets to receiver once the cooldown
// has ended. It returns the released assets; without a pending cooldown it
// releases nothing.
func (v *Vault) Unstake(caller, receiver ethCommon.Address) (*uint256.Int, error) {
	assets := new(uint256.Int)
	err := v.execute("unstake", func(now uint64) error {
		if common.IsZeroAddress(receiver) {
			return fmt.Errorf("receiver: %w", common.ErrZeroAddress)
		}
		rec := v.cooldowns.Get(caller)
		if !rec.Active() {
			if v.cfg.RejectZeroAmounts {
				return fmt.Errorf("no pending cooldown: %w", ErrZeroAmount)
			}
			return nil
		}
		if !rec.Unlocked(now) {
			return fmt.Errorf("%w: unlocks at %d, now %d", ErrCooldownNotEnded, rec.UnlockTimestamp, now)
		}
		v.cooldowns.Clear(caller)
		if err := v.silo.Release(receiver, rec.UnderlyingAmount); err != nil {
			return err
		}
		v.emit(&CooldownClaimedEvent{
			Holder:   caller,
			Receiver: receiver,
			Assets:   rec.UnderlyingAmount.Clone(),
		})
		assets = rec.UnderlyingAmount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// CooldownOf returns account's cooldown record.
func (v *Vault) CooldownOf(account ethCommon.Address) cooldown.Record {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cooldowns.Get(account)
}
