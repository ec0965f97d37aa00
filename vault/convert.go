package vault

import (
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// mulDiv computes x*y/d with a 512-bit intermediate product. d must be non-zero.
func mulDiv(x, y, d *uint256.Int, roundUp bool) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	if roundUp && !new(uint256.Int).MulMod(x, y, d).IsZero() {
		if _, overflow = z.AddOverflow(z, uint256.NewInt(1)); overflow {
			return nil, ErrOverflow
		}
	}
	return z, nil
}

// unvestedAt is the part of the last reward batch that has not vested at now.
func (v *Vault) unvestedAt(now uint64) *uint256.Int {
	s := v.settings
	period := v.cfg.VestingPeriod
	if period == 0 || s.vestingAmount == nil || s.vestingAmount.IsZero() {
		return new(uint256.Int)
	}
	var elapsed uint64
	if now > s.lastDistribution {
		elapsed = now - s.lastDistribution
	}
	if elapsed >= period {
		return new(uint256.Int)
	}
	// remaining < period, so the result never exceeds vestingAmount.
	z, _ := new(uint256.Int).MulDivOverflow(s.vestingAmount, uint256.NewInt(period-elapsed), uint256.NewInt(period))
	return z
}

// totalAssetsAt is the vault's asset balance net of unvested rewards.
func (v *Vault) totalAssetsAt(now uint64) *uint256.Int {
	balance := v.asset.BalanceOf(v.cfg.Address)
	unvested := v.unvestedAt(now)
	if balance.Lt(unvested) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(balance, unvested)
}

func (v *Vault) toShares(assets *uint256.Int, now uint64, roundUp bool) (*uint256.Int, error) {
	supply := v.shares.TotalSupply()
	total := v.totalAssetsAt(now)
	if supply.IsZero() || total.IsZero() {
		return assets.Clone(), nil
	}
	return mulDiv(assets, supply, total, roundUp)
}

func (v *Vault) toAssets(shares *uint256.Int, now uint64, roundUp bool) (*uint256.Int, error) {
	supply := v.shares.TotalSupply()
	if supply.IsZero() {
		return shares.Clone(), nil
	}
	return mulDiv(shares, v.totalAssetsAt(now), supply, roundUp)
}

// ConvertToShares returns the shares assets are worth, rounded down.
func (v *Vault) ConvertToShares(assets *uint256.Int) (*uint256.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.toShares(assets, v.clock.Now(), false)
}

// ConvertToAssets returns the assets shares are worth, rounded down.
func (v *Vault) ConvertToAssets(shares *uint256.Int) (*uint256.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.toAssets(shares, v.clock.Now(), false)
}

// PreviewDeposit returns the shares Deposit would mint for assets.
func (v *Vault) PreviewDeposit(assets *uint256.Int) (*uint256.Int, error) {
	return v.ConvertToShares(assets)
}

// PreviewMint returns the assets Mint would pull for shares.
func (v *Vault) PreviewMint(shares *uint256.Int) (*uint256.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.toAssets(shares, v.clock.Now(), true)
}

// PreviewWithdraw returns the shares Withdraw would burn for a gross amount
// of assets.
func (v *Vault) PreviewWithdraw(assets *uint256.Int) (*uint256.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.toShares(assets, v.clock.Now(), true)
}

// PreviewRedeem returns the net assets and the fee Redeem would pay out
// for shares.
func (v *Vault) PreviewRedeem(shares *uint256.Int) (net, fee *uint256.Int, err error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	assets, err := v.toAssets(shares, v.clock.Now(), false)
	if err != nil {
		return nil, nil, err
	}
	fee, net = v.settings.feeRate.Split(assets)
	return net, fee, nil
}

// MaxWithdraw is the largest gross amount of assets owner can withdraw.
func (v *Vault) MaxWithdraw(owner ethCommon.Address) (*uint256.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.toAssets(v.shares.BalanceOf(owner), v.clock.Now(), false)
}

// MaxRedeem is the largest amount of shares owner can redeem.
func (v *Vault) MaxRedeem(owner ethCommon.Address) *uint256.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.shares.BalanceOf(owner)
}
