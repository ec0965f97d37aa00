package vault

import (
	"fmt"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/vault/access"
	"github.com/oasisprotocol/vault/vault/fee"
)

// SetFeeRate changes the instant-exit fee rate.
func (v *Vault) SetFeeRate(caller ethCommon.Address, rate fee.Rate) error {
	return v.execute("set_fee_rate", func(uint64) error {
		if err := v.roles.CheckRole(access.DefaultAdminRole, caller); err != nil {
			return err
		}
		if err := rate.Validate(); err != nil {
			return err
		}
		old := v.settings.feeRate
		if rate == old {
			return ErrFeeNotChanged
		}
		v.updateSettings(func(s *settings) { s.feeRate = rate })
		v.logger.Info("fee rate changed", "old", old.String(), "new", rate.String())
		v.emit(&FeeRateChangedEvent{Old: old, New: rate})
		return nil
	})
}

// SetCooldownDuration changes the cooldown duration for future requests.
// Zero switches the cooldown entry points to instant exits.
func (v *Vault) SetCooldownDuration(caller ethCommon.Address, duration uint64) error {
	return v.execute("set_cooldown_duration", func(uint64) error {
		if err := v.roles.CheckRole(access.DefaultAdminRole, caller); err != nil {
			return err
		}
		if duration > MaxCooldownDuration {
			return fmt.Errorf("%w: %d exceeds %d", ErrInvalidCooldown, duration, MaxCooldownDuration)
		}
		old := v.settings.cooldownDuration
		v.updateSettings(func(s *settings) { s.cooldownDuration = duration })
		v.logger.Info("cooldown duration changed", "old", old, "new", duration)
		v.emit(&CooldownDurationChangedEvent{Old: old, New: duration})
		return nil
	})
}

// SetInsuranceFund changes the account that receives exit fees.
func (v *Vault) SetInsuranceFund(caller, fund ethCommon.Address) error {
	return v.execute("set_insurance_fund", func(uint64) error {
		if err := v.roles.CheckRole(access.DefaultAdminRole, caller); err != nil {
			return err
		}
		if common.IsZeroAddress(fund) {
			return fmt.Errorf("insurance fund: %w", common.ErrZeroAddress)
		}
		old := v.settings.insuranceFund
		if fund == old {
			return ErrInsuranceFundNotChanged
		}
		v.updateSettings(func(s *settings) { s.insuranceFund = fund })
		v.logger.Info("insurance fund changed", "old", old.Hex(), "new", fund.Hex())
		v.emit(&InsuranceFundChangedEvent{Old: old, New: fund})
		return nil
	})
}

// InitializeV2 sets the fee rate and insurance fund. It succeeds only once.
func (v *Vault) InitializeV2(caller ethCommon.Address, rate fee.Rate, fund ethCommon.Address) error {
	return v.execute("initialize_v2", func(uint64) error {
		if err := v.roles.CheckRole(access.DefaultAdminRole, caller); err != nil {
			return err
		}
		if v.settings.initializedV2 {
			return ErrAlreadyInitialized
		}
		if err := rate.Validate(); err != nil {
			return err
		}
		if common.IsZeroAddress(fund) {
			return fmt.Errorf("insurance fund: %w", common.ErrZeroAddress)
		}
		prev := v.settings
		v.updateSettings(func(s *settings) {
			s.feeRate = rate
			s.insuranceFund = fund
			s.initializedV2 = true
		})
		v.logger.Info("initialized", "version", 2, "fee_rate", rate.String(), "insurance_fund", fund.Hex())
		v.emit(&InitializedEvent{Version: 2})
		if rate != prev.feeRate {
			v.emit(&FeeRateChangedEvent{Old: prev.feeRate, New: rate})
		}
		if fund != prev.insuranceFund {
			v.emit(&InsuranceFundChangedEvent{Old: prev.insuranceFund, New: fund})
		}
		return nil
	})
}

// RescueTokens transfers a foreign token out of the vault's custody. The
// vault's own asset can never be rescued.
func (v *Vault) RescueTokens(caller, tokenAddr ethCommon.Address, amount *uint256.Int, to ethCommon.Address) error {
	return v.execute("rescue_tokens", func(uint64) error {
		if tokenAddr == v.asset.Address() {
			return ErrInvalidToken
		}
		if err := v.roles.CheckRole(access.DefaultAdminRole, caller); err != nil {
			return err
		}
		if common.IsZeroAddress(to) {
			return fmt.Errorf("receiver: %w", common.ErrZeroAddress)
		}
		t, err := v.tokens.Get(tokenAddr)
		if err != nil {
			return err
		}
		if err := t.Transfer(v.cfg.Address, to, amount); err != nil {
			return fmt.Errorf("rescue %s: %w", t.Symbol(), err)
		}
		v.logger.Info("tokens rescued", "token", tokenAddr.Hex(), "to", to.Hex(), "amount", amount.Dec())
		v.emit(&TokensRescuedEvent{Token: tokenAddr, Receiver: to, Amount: amount.Clone()})
		return nil
	})
}

// GrantRole grants role to account. Only admins may grant roles.
func (v *Vault) GrantRole(caller ethCommon.Address, role access.Role, account ethCommon.Address) error {
	return v.execute("grant_role", func(uint64) error {
		had := v.roles.HasRole(role, account)
		if err := v.roles.GrantRole(caller, role, account); err != nil {
			return err
		}
		if !had {
			v.emit(&RoleChangedEvent{Granted: true, Role: role, Member: account, Sender: caller})
		}
		return nil
	})
}

// RevokeRole revokes role from account. Only admins may revoke roles.
func (v *Vault) RevokeRole(caller ethCommon.Address, role access.Role, account ethCommon.Address) error {
	return v.execute("revoke_role", func(uint64) error {
		had := v.roles.HasRole(role, account)
		if err := v.roles.RevokeRole(caller, role, account); err != nil {
			return err
		}
		if had {
			v.emit(&RoleChangedEvent{Granted: false, Role: role, Member: account, Sender: caller})
		}
		return nil
	})
}

// HasRole reports whether account holds role.
func (v *Vault) HasRole(role access.Role, account ethCommon.Address) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.roles.HasRole(role, account)
}
