package vault

import (
	"fmt"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/oasisprotocol/vault/common"
)

// Deposit pulls assets from caller, which must have approved the vault, and
// mints the corresponding shares to receiver. It returns the minted shares.
func (v *Vault) Deposit(caller ethCommon.Address, assets *uint256.Int, receiver ethCommon.Address) (*uint256.Int, error) {
	shares := new(uint256.Int)
	err := v.execute("deposit", func(now uint64) error {
		if zero, err := v.checkZero(assets); zero {
			return err
		}
		s, err := v.toShares(assets, now, false)
		if err != nil {
			return err
		}
		if s.IsZero() {
			return ErrZeroShares
		}
		if err := v.deposit(caller, receiver, assets, s); err != nil {
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

// Mint mints exactly shares to receiver, pulling the assets they cost
// (rounded up) from caller. It returns the assets pulled.
func (v *Vault) Mint(caller ethCommon.Address, shares *uint256.Int, receiver ethCommon.Address) (*uint256.Int, error) {
	assets := new(uint256.Int)
	err := v.execute("mint", func(now uint64) error {
		if zero, err := v.checkZero(shares); zero {
			return err
		}
		a, err := v.toAssets(shares, now, true)
		if err != nil {
			return err
		}
		if err := v.deposit(caller, receiver, a, shares); err != nil {
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

func (v *Vault) deposit(caller, receiver ethCommon.Address, assets, shares *uint256.Int) error {
	if common.IsZeroAddress(receiver) {
		return fmt.Errorf("receiver: %w", common.ErrZeroAddress)
	}
	if err := v.asset.TransferFrom(v.cfg.Address, caller, v.cfg.Address, assets); err != nil {
		return fmt.Errorf("pull assets: %w", err)
	}
	if err := v.shares.Mint(v.cfg.Address, receiver, shares); err != nil {
		return fmt.Errorf("mint shares: %w", err)
	}
	if err := v.checkMinShares(); err != nil {
		return err
	}
	v.emit(&DepositEvent{
		Sender:   caller,
		Receiver: receiver,
		Assets:   assets.Clone(),
		Shares:   shares.Clone(),
	})
	return nil
}

// Withdraw burns owner's shares worth a gross amount of assets and pays
// the assets out instantly, minus the insurance fee. It returns the burned
// shares.
func (v *Vault) Withdraw(caller ethCommon.Address, assets *uint256.Int, receiver, owner ethCommon.Address) (*uint256.Int, error) {
	shares := new(uint256.Int)
	err := v.execute("withdraw", func(now uint64) error {
		if zero, err := v.checkZero(assets); zero {
			return err
		}
		s, err := v.toShares(assets, now, true)
		if err != nil {
			return err
		}
		if _, _, err := v.instantExit(caller, receiver, owner, assets, s); err != nil {
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

// Redeem burns shares from owner and pays out the assets they are worth
// instantly, minus the insurance fee. It returns the net assets received.
func (v *Vault) Redeem(caller ethCommon.Address, shares *uint256.Int, receiver, owner ethCommon.Address) (*uint256.Int, error) {
	net := new(uint256.Int)
	err := v.execute("redeem", func(now uint64) error {
		if zero, err := v.checkZero(shares); zero {
			return err
		}
		assets, err := v.toAssets(shares, now, false)
		if err != nil {
			return err
		}
		_, n, err := v.instantExit(caller, receiver, owner, assets, shares)
		if err != nil {
			return err
		}
		net = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return net, nil
}

// instantExit burns shares from owner and splits the gross assets between
// the insurance fund and receiver.
func (v *Vault) instantExit(caller, receiver, owner ethCommon.Address, assets, shares *uint256.Int) (fee, net *uint256.Int, err error) {
	if common.IsZeroAddress(receiver) {
		return nil, nil, fmt.Errorf("receiver: %w", common.ErrZeroAddress)
	}
	fund := v.settings.insuranceFund
	if common.IsZeroAddress(fund) {
		return nil, nil, ErrInsuranceFundNotSet
	}
	if err = v.burnShares(caller, owner, shares); err != nil {
		return nil, nil, err
	}

	fee, net = v.settings.feeRate.Split(assets)
	if !fee.IsZero() {
		if err = v.asset.Transfer(v.cfg.Address, fund, fee); err != nil {
			return nil, nil, fmt.Errorf("pay insurance fee: %w", err)
		}
	}
	if !net.IsZero() {
		if err = v.asset.Transfer(v.cfg.Address, receiver, net); err != nil {
			return nil, nil, fmt.Errorf("pay out: %w", err)
		}
	}
	if err = v.checkMinShares(); err != nil {
		return nil, nil, err
	}
	v.emit(&InstantUnstakeEvent{
		Sender:   caller,
		Owner:    owner,
		Receiver: receiver,
		Net:      net.Clone(),
		Fee:      fee.Clone(),
		Shares:   shares.Clone(),
	})
	return fee, net, nil
}

// burnShares burns shares from owner on behalf of caller, spending caller's
// share allowance when caller is not the owner.
func (v *Vault) burnShares(caller, owner ethCommon.Address, shares *uint256.Int) error {
	if balance := v.shares.BalanceOf(owner); balance.Lt(shares) {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientShares, owner.Hex(), balance.Dec(), shares.Dec())
	}
	if caller != owner {
		if err := v.shares.SpendAllowance(owner, caller, shares); err != nil {
			return err
		}
	}
	if err := v.shares.Burn(v.cfg.Address, owner, shares); err != nil {
		return fmt.Errorf("burn shares: %w", err)
	}
	return nil
}
