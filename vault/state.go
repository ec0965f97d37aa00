package vault

import (
	"fmt"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/vault/access"
	"github.com/oasisprotocol/vault/vault/cooldown"
	"github.com/oasisprotocol/vault/vault/fee"
	"github.com/oasisprotocol/vault/vault/token"
)

// State is a serializable snapshot of everything a vault mutates, including
// the ledgers registered in its token directory.
type State struct {
	Seq              uint64                              `json:"seq"`
	Time             uint64                              `json:"time"`
	FeeRate          fee.Rate                            `json:"fee_rate"`
	CooldownDuration uint64                              `json:"cooldown_duration"`
	InsuranceFund    ethCommon.Address                   `json:"insurance_fund"`
	InitializedV2    bool                                `json:"initialized_v2"`
	VestingAmount    string                              `json:"vesting_amount"`
	LastDistribution uint64                              `json:"last_distribution"`
	Cooldowns        []cooldown.Entry                    `json:"cooldowns"`
	Roles            map[access.Role][]ethCommon.Address `json:"roles"`
	Tokens           map[ethCommon.Address]token.State   `json:"tokens"`
}

// Export returns a consistent snapshot of the vault.
func (v *Vault) Export() State {
	v.mu.RLock()
	defer v.mu.RUnlock()

	s := State{
		Seq:              v.seq,
		Time:             v.clock.Now(),
		FeeRate:          v.settings.feeRate,
		CooldownDuration: v.settings.cooldownDuration,
		InsuranceFund:    v.settings.insuranceFund,
		InitializedV2:    v.settings.initializedV2,
		VestingAmount:    v.settings.vestingAmount.Dec(),
		LastDistribution: v.settings.lastDistribution,
		Cooldowns:        v.cooldowns.Export(),
		Roles:            v.roles.Export(),
		Tokens:           make(map[ethCommon.Address]token.State),
	}
	for _, t := range v.tokens.All() {
		s.Tokens[t.Address()] = t.Export()
	}
	return s
}

// Import replaces the vault's state with s. Every token in s must be
// registered in the vault's directory. A rejected state leaves the vault
// unchanged. It must only be used before the vault starts serving.
func (v *Vault) Import(s State) (err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	snapshot := v.journal.Snapshot()
	defer func() {
		if err != nil {
			v.journal.RevertToSnapshot(snapshot)
		}
	}()

	if err := s.FeeRate.Validate(); err != nil {
		return err
	}
	if s.CooldownDuration > MaxCooldownDuration {
		return fmt.Errorf("cooldown duration %d: %w", s.CooldownDuration, ErrInvalidCooldown)
	}
	vesting, err := common.ParseAmount(s.VestingAmount)
	if err != nil {
		return fmt.Errorf("vesting amount: %w", err)
	}
	for addr, ts := range s.Tokens {
		t, err := v.tokens.Get(addr)
		if err != nil {
			return err
		}
		if err = t.Import(ts); err != nil {
			return err
		}
	}
	if err = v.cooldowns.Import(s.Cooldowns); err != nil {
		return err
	}
	if escrowed, pending := v.silo.Balance(), v.cooldowns.TotalPending(); escrowed.Lt(pending) {
		return fmt.Errorf("silo holds %s but %s is pending", escrowed.Dec(), pending.Dec())
	}
	v.roles.Import(s.Roles)

	v.settings = settings{
		feeRate:          s.FeeRate,
		cooldownDuration: s.CooldownDuration,
		insuranceFund:    s.InsuranceFund,
		initializedV2:    s.InitializedV2,
		vestingAmount:    vesting,
		lastDistribution: s.LastDistribution,
	}
	v.seq = s.Seq
	v.journal.Commit()
	v.updateGauges(v.clock.Now())
	v.logger.Info("state imported", "seq", s.Seq, "tokens", len(s.Tokens), "cooldowns", len(s.Cooldowns))
	return nil
}

// Status is a point-in-time summary of the vault.
type Status struct {
	Address          ethCommon.Address
	Silo             ethCommon.Address
	Asset            ethCommon.Address
	AssetSymbol      string
	ShareSymbol      string
	Decimals         uint8
	TotalAssets      *uint256.Int
	TotalShares      *uint256.Int
	Escrowed         *uint256.Int
	PendingCooldowns *uint256.Int
	Unvested         *uint256.Int
	FeeRate          fee.Rate
	CooldownDuration uint64
	CooldownMode     cooldown.Mode
	VestingPeriod    uint64
	InsuranceFund    ethCommon.Address
	InitializedV2    bool
	Seq              uint64
	Time             uint64
}

// Status returns a consistent summary of the vault.
func (v *Vault) Status() Status {
	v.mu.RLock()
	defer v.mu.RUnlock()
	now := v.clock.Now()
	return Status{
		Address:          v.cfg.Address,
		Silo:             v.silo.Address(),
		Asset:            v.asset.Address(),
		AssetSymbol:      v.asset.Symbol(),
		ShareSymbol:      v.shares.Symbol(),
		Decimals:         v.shares.Decimals(),
		TotalAssets:      v.totalAssetsAt(now),
		TotalShares:      v.shares.TotalSupply(),
		Escrowed:         v.silo.Balance(),
		PendingCooldowns: v.cooldowns.TotalPending(),
		Unvested:         v.unvestedAt(now),
		FeeRate:          v.settings.feeRate,
		CooldownDuration: v.settings.cooldownDuration,
		CooldownMode:     v.cooldowns.Mode(),
		VestingPeriod:    v.cfg.VestingPeriod,
		InsuranceFund:    v.settings.insuranceFund,
		InitializedV2:    v.settings.initializedV2,
		Seq:              v.seq,
		Time:             now,
	}
}

// Address is the vault's custody account and share token address.
func (v *Vault) Address() ethCommon.Address { return v.cfg.Address }

// SiloAddress is the escrow account.
func (v *Vault) SiloAddress() ethCommon.Address { return v.silo.Address() }

// Asset is the backing token.
func (v *Vault) Asset() token.Ledger { return v.asset }

// Tokens is the directory of ledgers the vault knows about.
func (v *Vault) Tokens() *token.Directory { return v.tokens }

// FeeRate is the current instant-exit fee rate.
func (v *Vault) FeeRate() fee.Rate {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.settings.feeRate
}

// CooldownDuration is the current cooldown duration in seconds.
func (v *Vault) CooldownDuration() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.settings.cooldownDuration
}

// InsuranceFund is the account receiving exit fees; zero if unset.
func (v *Vault) InsuranceFund() ethCommon.Address {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.settings.insuranceFund
}

// Initialized reports whether InitializeV2 has run.
func (v *Vault) Initialized() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.settings.initializedV2
}

// TotalAssets is the vault's asset balance net of unvested rewards.
func (v *Vault) TotalAssets() *uint256.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.totalAssetsAt(v.clock.Now())
}

// TotalShares is the share supply.
func (v *Vault) TotalShares() *uint256.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.shares.TotalSupply()
}

// SharesOf is account's share balance.
func (v *Vault) SharesOf(account ethCommon.Address) *uint256.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.shares.BalanceOf(account)
}

// ShareAllowance is how many of owner's shares spender may move or redeem.
func (v *Vault) ShareAllowance(owner, spender ethCommon.Address) *uint256.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.shares.Allowance(owner, spender)
}

// AssetBalanceOf is account's asset balance.
func (v *Vault) AssetBalanceOf(account ethCommon.Address) *uint256.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.asset.BalanceOf(account)
}

// AssetAllowance is how much of owner's asset spender may pull.
func (v *Vault) AssetAllowance(owner, spender ethCommon.Address) *uint256.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.asset.Allowance(owner, spender)
}

// TransferShares moves shares between accounts.
func (v *Vault) TransferShares(from, to ethCommon.Address, amount *uint256.Int) error {
	return v.execute("transfer_shares", func(uint64) error {
		return v.shares.Transfer(from, to, amount)
	})
}

// ApproveShares sets spender's allowance over owner's shares.
func (v *Vault) ApproveShares(owner, spender ethCommon.Address, amount *uint256.Int) error {
	return v.execute("approve_shares", func(uint64) error {
		return v.shares.Approve(owner, spender, amount)
	})
}
