package api

import (
	"fmt"
	"sort"
	"time"

	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/config"
	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/metrics"
	"github.com/oasisprotocol/vault/vault"
	"github.com/oasisprotocol/vault/vault/access"
	"github.com/oasisprotocol/vault/vault/cooldown"
	"github.com/oasisprotocol/vault/vault/fee"
	"github.com/oasisprotocol/vault/vault/journal"
	"github.com/oasisprotocol/vault/vault/token"
)

func newToken(j *journal.Journal, cfg *config.TokenConfig) (*token.Token, error) {
	addr, err := common.ParseAddress(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("token %s: %w", cfg.Symbol, err)
	}
	minter, err := common.ParseAddress(cfg.Minter)
	if err != nil {
		return nil, fmt.Errorf("token %s minter: %w", cfg.Symbol, err)
	}
	return token.New(j, token.Params{
		Address:  addr,
		Symbol:   cfg.Symbol,
		Decimals: cfg.Decimals,
		Minter:   minter,
	}), nil
}

func seconds(d time.Duration) uint64 {
	return uint64(d / time.Second)
}

// newVault builds an empty vault, together with its asset and foreign token
// ledgers, from cfg.
func newVault(cfg *config.VaultConfig, clock vault.Clock, m *metrics.VaultMetrics, logger *log.Logger) (*vault.Vault, *token.Token, error) {
	j := journal.New()
	asset, err := newToken(j, &cfg.Asset)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := token.NewDirectory(asset)
	if err != nil {
		return nil, nil, err
	}
	for i := range cfg.ForeignTokens {
		t, err := newToken(j, &cfg.ForeignTokens[i])
		if err != nil {
			return nil, nil, err
		}
		if err := tokens.Register(t); err != nil {
			return nil, nil, err
		}
	}

	vcfg := vault.Config{
		ShareSymbol:       cfg.ShareSymbol,
		CooldownDuration:  seconds(cfg.CooldownDuration),
		VestingPeriod:     seconds(cfg.VestingPeriod),
		RejectZeroAmounts: cfg.RejectZeroAmounts,
	}
	if vcfg.Address, err = common.ParseAddress(cfg.Address); err != nil {
		return nil, nil, fmt.Errorf("vault address: %w", err)
	}
	if vcfg.SiloAddress, err = common.ParseAddress(cfg.SiloAddress); err != nil {
		return nil, nil, fmt.Errorf("silo address: %w", err)
	}
	if vcfg.Admin, err = common.ParseAddress(cfg.Admin); err != nil {
		return nil, nil, fmt.Errorf("admin: %w", err)
	}
	if cfg.MinShares != "" {
		if vcfg.MinShares, err = common.ParseAmount(cfg.MinShares); err != nil {
			return nil, nil, fmt.Errorf("min shares: %w", err)
		}
	}
	var mode cooldown.Mode
	if err := mode.Set(cfg.CooldownMode); err != nil {
		return nil, nil, err
	}
	vcfg.CooldownMode = mode

	v, err := vault.New(vcfg, vault.Deps{
		Journal: j,
		Asset:   asset,
		Tokens:  tokens,
		Clock:   clock,
		Logger:  logger,
		Metrics: m,
	})
	if err != nil {
		return nil, nil, err
	}
	return v, asset, nil
}

// bootstrap applies the first-start parts of cfg to a fresh vault: genesis
// asset balances, rewarder grants and, if an insurance fund is configured,
// the V2 initialization.
func bootstrap(v *vault.Vault, asset *token.Token, cfg *config.VaultConfig, logger *log.Logger) error {
	admin, err := common.ParseAddress(cfg.Admin)
	if err != nil {
		return err
	}

	accounts := make([]string, 0, len(cfg.Genesis))
	for account := range cfg.Genesis {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	if err := v.Apply("genesis", func() error {
		for _, account := range accounts {
			to, err := common.ParseAddress(account)
			if err != nil {
				return err
			}
			amount, err := common.ParseAmount(cfg.Genesis[account])
			if err != nil {
				return err
			}
			if err := asset.Mint(asset.Minter(), to, amount); err != nil {
				return fmt.Errorf("genesis balance of %s: %w", account, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	for _, r := range cfg.Rewarders {
		rewarder, err := common.ParseAddress(r)
		if err != nil {
			return err
		}
		if err := v.GrantRole(admin, access.RewarderRole, rewarder); err != nil {
			return fmt.Errorf("granting rewarder role to %s: %w", r, err)
		}
	}

	if cfg.InsuranceFund != "" {
		fund, err := common.ParseAddress(cfg.InsuranceFund)
		if err != nil {
			return err
		}
		if err := v.InitializeV2(admin, fee.Rate(cfg.FeeBasisPoints), fund); err != nil {
			return fmt.Errorf("initializing: %w", err)
		}
	}

	logger.Info("vault bootstrapped",
		"genesis_accounts", len(accounts),
		"rewarders", len(cfg.Rewarders),
		"initialized", cfg.InsuranceFund != "",
	)
	return nil
}
