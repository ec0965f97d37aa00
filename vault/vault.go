// Package vault implements a tokenized staking vault with an insurance fee on
// instant exits and an optional cooldown exit path backed by an escrow silo.
//
// Every mutating operation runs under a single lock against a journal shared
// by all ledgers the vault touches; it either commits completely or leaves no
// trace. Committed operations emit events that are delivered, in order, to
// the registered listeners.
package vault

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/metrics"
	"github.com/oasisprotocol/vault/vault/access"
	"github.com/oasisprotocol/vault/vault/cooldown"
	"github.com/oasisprotocol/vault/vault/escrow"
	"github.com/oasisprotocol/vault/vault/fee"
	"github.com/oasisprotocol/vault/vault/journal"
	"github.com/oasisprotocol/vault/vault/token"
)

const moduleName = "vault"

// MaxCooldownDuration is the longest cooldown an admin may configure, in seconds.
const MaxCooldownDuration uint64 = 90 * 24 * 60 * 60

// Clock reports the current unix time in seconds.
type Clock interface {
	Now() uint64
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// Config holds the vault's static parameters.
type Config struct {
	// Address is the vault's custody account. The share token lives at the
	// same address.
	Address ethCommon.Address
	// SiloAddress is the escrow account holding assets during cooldown.
	SiloAddress ethCommon.Address
	// Admin receives the default admin role.
	Admin ethCommon.Address
	// ShareSymbol is the share token's symbol.
	ShareSymbol string

	// CooldownDuration is the initial cooldown duration in seconds.
	CooldownDuration uint64
	// VestingPeriod is how long transferred-in rewards take to vest, in seconds.
	VestingPeriod uint64
	// MinShares is the smallest non-zero share supply allowed after any
	// operation. Nil or zero disables the check.
	MinShares *uint256.Int
	// CooldownMode decides what a cooldown re-request does to an unclaimed record.
	CooldownMode cooldown.Mode
	// RejectZeroAmounts turns zero-amount requests into ErrZeroAmount
	// failures instead of no-ops.
	RejectZeroAmounts bool
}

// Validate checks the config.
func (c *Config) Validate() error {
	if common.IsZeroAddress(c.Address) {
		return fmt.Errorf("vault address: %w", common.ErrZeroAddress)
	}
	if common.IsZeroAddress(c.SiloAddress) {
		return fmt.Errorf("silo address: %w", common.ErrZeroAddress)
	}
	if c.SiloAddress == c.Address {
		return fmt.Errorf("silo address must differ from the vault address")
	}
	if common.IsZeroAddress(c.Admin) {
		return fmt.Errorf("admin: %w", common.ErrZeroAddress)
	}
	if c.CooldownDuration > MaxCooldownDuration {
		return fmt.Errorf("cooldown duration %d: %w", c.CooldownDuration, ErrInvalidCooldown)
	}
	return nil
}

// Deps are the collaborators a vault works with.
type Deps struct {
	// Journal must be the journal every ledger below records into.
	Journal *journal.Journal
	// Asset is the vault's backing token.
	Asset token.Ledger
	// Tokens are the foreign tokens the vault can rescue. The share token is
	// registered here on construction. Optional.
	Tokens *token.Directory
	// Clock defaults to SystemClock.
	Clock Clock
	// Logger defaults to a nop logger.
	Logger *log.Logger
	// Metrics is optional; if nil, no metrics are emitted.
	Metrics *metrics.VaultMetrics
}

// settings is the mutable, journaled configuration. Amounts are replaced,
// never mutated in place.
type settings struct {
	feeRate          fee.Rate
	cooldownDuration uint64
	insuranceFund    ethCommon.Address
	initializedV2    bool
	vestingAmount    *uint256.Int
	lastDistribution uint64
}

// Vault is the staking vault.
type Vault struct {
	mu sync.RWMutex

	cfg     Config
	journal *journal.Journal
	clock   Clock
	logger  *log.Logger
	metrics *metrics.VaultMetrics

	asset     token.Ledger
	shares    *token.Token
	tokens    *token.Directory
	silo      *escrow.Silo
	cooldowns *cooldown.Registry
	roles     *access.Control

	settings settings

	seq       uint64
	pending   []Event
	listeners []Listener
}

// New creates a vault with an empty share supply.
func New(cfg Config, deps Deps) (*Vault, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Journal == nil || deps.Asset == nil {
		return nil, fmt.Errorf("vault: journal and asset are required")
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = log.NewNopLogger()
	}
	if deps.Tokens == nil {
		deps.Tokens, _ = token.NewDirectory()
	}

	silo, err := escrow.New(cfg.SiloAddress, deps.Asset)
	if err != nil {
		return nil, err
	}
	roles, err := access.New(deps.Journal, cfg.Admin)
	if err != nil {
		return nil, err
	}
	symbol := cfg.ShareSymbol
	if symbol == "" {
		symbol = "s" + deps.Asset.Symbol()
	}
	shares := token.New(deps.Journal, token.Params{
		Address:  cfg.Address,
		Symbol:   symbol,
		Decimals: deps.Asset.Decimals(),
		Minter:   cfg.Address,
	})
	if err := deps.Tokens.Register(shares); err != nil {
		return nil, err
	}

	v := &Vault{
		cfg:       cfg,
		journal:   deps.Journal,
		clock:     deps.Clock,
		logger:    deps.Logger.WithModule(moduleName),
		metrics:   deps.Metrics,
		asset:     deps.Asset,
		shares:    shares,
		tokens:    deps.Tokens,
		silo:      silo,
		cooldowns: cooldown.New(deps.Journal, cfg.CooldownMode),
		roles:     roles,
		settings: settings{
			cooldownDuration: cfg.CooldownDuration,
			vestingAmount:    new(uint256.Int),
		},
	}
	mode := v.cooldowns.Mode()
	v.logger.Info("vault created",
		"address", cfg.Address.Hex(),
		"silo", cfg.SiloAddress.Hex(),
		"asset", deps.Asset.Address().Hex(),
		"cooldown_duration", cfg.CooldownDuration,
		"cooldown_mode", mode.String(),
	)
	return v, nil
}

// Subscribe registers l for all events committed from now on.
func (v *Vault) Subscribe(l Listener) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, l)
}

// Apply runs fn as an atomic operation named op. It is meant for ledger
// operations outside the vault proper (e.g. asset approvals) that must be
// serialized with, and journaled like, vault operations.
func (v *Vault) Apply(op string, fn func() error) error {
	return v.execute(op, func(uint64) error { return fn() })
}

// execute runs fn under the write lock. If fn fails, every journaled change
// it made is reverted and its events are dropped; otherwise the changes are
// committed and its events are sequenced and delivered.
func (v *Vault) execute(op string, fn func(now uint64) error) error {
	if v.metrics != nil {
		timer := v.metrics.OperationLatencies(op)
		defer timer.ObserveDuration()
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.clock.Now()
	snapshot := v.journal.Snapshot()
	if err := fn(now); err != nil {
		v.journal.RevertToSnapshot(snapshot)
		v.pending = nil
		v.countOperation(op, metrics.OperationStatusFailure)
		v.logger.Debug("operation reverted",
			"operation", op,
			"err", err,
		)
		return err
	}
	v.journal.Commit()

	events := v.pending
	v.pending = nil
	for _, e := range events {
		v.seq++
		e.setMeta(Meta{Seq: v.seq, Time: now})
		if exit, ok := e.(*InstantUnstakeEvent); ok && v.metrics != nil {
			v.metrics.FeesCollected().Add(toFloat(exit.Fee))
		}
	}
	v.countOperation(op, metrics.OperationStatusSuccess)
	v.updateGauges(now)
	if len(events) > 0 {
		for _, l := range v.listeners {
			l.OnEvents(events)
		}
	}
	return nil
}

func (v *Vault) emit(e Event) {
	v.pending = append(v.pending, e)
}

func (v *Vault) updateSettings(update func(s *settings)) {
	prev := v.settings
	update(&v.settings)
	v.journal.Record(func() { v.settings = prev })
}

// checkZero reports whether amount is zero, and if so, the error the
// operation should finish with (nil for a no-op).
func (v *Vault) checkZero(amount *uint256.Int) (bool, error) {
	if amount != nil && !amount.IsZero() {
		return false, nil
	}
	if v.cfg.RejectZeroAmounts {
		return true, ErrZeroAmount
	}
	return true, nil
}

func (v *Vault) checkMinShares() error {
	if v.cfg.MinShares == nil || v.cfg.MinShares.IsZero() {
		return nil
	}
	supply := v.shares.TotalSupply()
	if !supply.IsZero() && supply.Lt(v.cfg.MinShares) {
		return fmt.Errorf("%w: supply %s, minimum %s", ErrMinSharesViolation, supply.Dec(), v.cfg.MinShares.Dec())
	}
	return nil
}

func (v *Vault) countOperation(op, status string) {
	if v.metrics == nil {
		return
	}
	v.metrics.Operations(op, status).Inc()
}

func (v *Vault) updateGauges(now uint64) {
	if v.metrics == nil {
		return
	}
	v.metrics.Balance(metrics.BalanceTotalAssets).Set(toFloat(v.totalAssetsAt(now)))
	v.metrics.Balance(metrics.BalanceTotalShares).Set(toFloat(v.shares.TotalSupply()))
	v.metrics.Balance(metrics.BalanceEscrow).Set(toFloat(v.silo.Balance()))
	v.metrics.Balance(metrics.BalanceUnvested).Set(toFloat(v.unvestedAt(now)))
	v.metrics.Balance(metrics.BalancePendingCooldown).Set(toFloat(v.cooldowns.TotalPending()))
	v.metrics.EventSeq().Set(float64(v.seq))
}

func toFloat(x *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(x.ToBig()).Float64()
	return f
}
