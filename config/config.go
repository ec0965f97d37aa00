// Package config enables config file parsing.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"

	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/vault/cooldown"
	"github.com/oasisprotocol/vault/vault/fee"
)

// MaxCooldownDuration mirrors the vault's upper bound on cooldown durations.
const MaxCooldownDuration = 90 * 24 * time.Hour

// Config contains the CLI configuration.
type Config struct {
	Vault      *VaultConfig      `koanf:"vault"`
	Server     *ServerConfig     `koanf:"server"`
	Checkpoint *CheckpointConfig `koanf:"checkpoint"`
	Log        *LogConfig        `koanf:"log"`
	Metrics    *MetricsConfig    `koanf:"metrics"`
	Debug      *DebugConfig      `koanf:"debug"`
}

// Validate performs config validation.
func (cfg *Config) Validate() error {
	if cfg.Vault != nil {
		if err := cfg.Vault.Validate(); err != nil {
			return fmt.Errorf("vault: %w", err)
		}
	}
	if cfg.Server != nil {
		if err := cfg.Server.Validate(); err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}
	if cfg.Checkpoint != nil {
		if err := cfg.Checkpoint.Validate(); err != nil {
			return fmt.Errorf("checkpoint: %w", err)
		}
	}
	if cfg.Log != nil {
		if err := cfg.Log.Validate(); err != nil {
			return fmt.Errorf("log: %w", err)
		}
	}
	if cfg.Metrics != nil {
		if err := cfg.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	if cfg.Debug != nil {
		if err := cfg.Debug.Validate(); err != nil {
			return fmt.Errorf("debug: %w", err)
		}
	}

	return nil
}

// TokenConfig describes a token ledger hosted by the service.
type TokenConfig struct {
	Address  string `koanf:"address"`
	Symbol   string `koanf:"symbol"`
	Decimals uint8  `koanf:"decimals"`
	// Minter may mint new tokens through the API.
	Minter string `koanf:"minter"`
}

// Validate validates the token configuration.
func (cfg *TokenConfig) Validate() error {
	if _, err := common.ParseAddress(cfg.Address); err != nil {
		return fmt.Errorf("address: %w", err)
	}
	if cfg.Symbol == "" {
		return fmt.Errorf("no symbol provided")
	}
	if _, err := common.ParseAddress(cfg.Minter); err != nil {
		return fmt.Errorf("minter: %w", err)
	}
	return nil
}

// VaultConfig is the configuration of the vault and its ledgers.
type VaultConfig struct {
	// Address is the vault's custody account and share token address.
	Address string `koanf:"address"`
	// SiloAddress is the escrow account for cooling-down assets.
	SiloAddress string `koanf:"silo_address"`
	// Admin holds the default admin role on first start.
	Admin string `koanf:"admin"`
	// ShareSymbol defaults to "s" + the asset symbol.
	ShareSymbol string `koanf:"share_symbol"`

	// Asset is the vault's backing token.
	Asset TokenConfig `koanf:"asset"`
	// ForeignTokens are other tokens that may end up in the vault's custody.
	ForeignTokens []TokenConfig `koanf:"foreign_tokens"`

	// FeeBasisPoints and InsuranceFund are applied with InitializeV2 on
	// first start if InsuranceFund is set.
	FeeBasisPoints uint16 `koanf:"fee_bp"`
	InsuranceFund  string `koanf:"insurance_fund"`

	CooldownDuration time.Duration `koanf:"cooldown_duration"`
	VestingPeriod    time.Duration `koanf:"vesting_period"`

	// MinShares is the smallest allowed non-zero share supply, in base units.
	MinShares string `koanf:"min_shares"`
	// CooldownMode is "overwrite" (default) or "accumulate".
	CooldownMode string `koanf:"cooldown_mode"`
	// RejectZeroAmounts turns zero-amount requests into errors instead of no-ops.
	RejectZeroAmounts bool `koanf:"reject_zero_amounts"`

	// Rewarders receive the rewarder role on first start.
	Rewarders []string `koanf:"rewarders"`
	// Genesis maps accounts to the asset balances minted on first start.
	Genesis map[string]string `koanf:"genesis"`
}

// Validate validates the vault configuration.
func (cfg *VaultConfig) Validate() error {
	for name, addr := range map[string]string{
		"address":      cfg.Address,
		"silo_address": cfg.SiloAddress,
		"admin":        cfg.Admin,
	} {
		if _, err := common.ParseAddress(addr); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if err := cfg.Asset.Validate(); err != nil {
		return fmt.Errorf("asset: %w", err)
	}
	for i := range cfg.ForeignTokens {
		if err := cfg.ForeignTokens[i].Validate(); err != nil {
			return fmt.Errorf("foreign_tokens[%d]: %w", i, err)
		}
	}
	if err := fee.Rate(cfg.FeeBasisPoints).Validate(); err != nil {
		return fmt.Errorf("fee_bp: %w", err)
	}
	if cfg.InsuranceFund != "" {
		if _, err := common.ParseAddress(cfg.InsuranceFund); err != nil {
			return fmt.Errorf("insurance_fund: %w", err)
		}
	}
	if cfg.CooldownDuration < 0 || cfg.CooldownDuration > MaxCooldownDuration {
		return fmt.Errorf("cooldown_duration %s out of range [0, %s]", cfg.CooldownDuration, MaxCooldownDuration)
	}
	if cfg.VestingPeriod < 0 {
		return fmt.Errorf("negative vesting_period %s", cfg.VestingPeriod)
	}
	if cfg.MinShares != "" {
		if _, err := common.ParseAmount(cfg.MinShares); err != nil {
			return fmt.Errorf("min_shares: %w", err)
		}
	}
	var mode cooldown.Mode
	if err := mode.Set(cfg.CooldownMode); err != nil {
		return err
	}
	for _, r := range cfg.Rewarders {
		if _, err := common.ParseAddress(r); err != nil {
			return fmt.Errorf("rewarders: %w", err)
		}
	}
	for account, amount := range cfg.Genesis {
		if _, err := common.ParseAddress(account); err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
		if _, err := common.ParseAmount(amount); err != nil {
			return fmt.Errorf("genesis balance of %s: %w", account, err)
		}
	}
	return nil
}

// ServerConfig contains the API server configuration.
type ServerConfig struct {
	// Endpoint is the service endpoint from which to serve the API.
	Endpoint string `koanf:"endpoint"`

	// CORSOrigins are the allowed CORS origins. Empty allows all.
	CORSOrigins []string `koanf:"cors_origins"`

	// RequestTimeout bounds the handling of a single request.
	RequestTimeout *time.Duration `koanf:"request_timeout"`

	// Storage is the event store. Optional; without it the event history
	// endpoints are disabled.
	Storage *StorageConfig `koanf:"storage"`
}

// Validate validates the server configuration.
func (cfg *ServerConfig) Validate() error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("malformed server endpoint '%s'", cfg.Endpoint)
	}
	if cfg.RequestTimeout != nil && *cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if cfg.Storage != nil {
		return cfg.Storage.Validate(false /* requireMigrations */)
	}
	return nil
}

// StorageBackend is a storage backend.
type StorageBackend uint

const (
	// BackendPostgres is the PostgreSQL storage backend.
	BackendPostgres StorageBackend = iota
)

// String returns the string representation of a StorageBackend.
func (sb *StorageBackend) String() string {
	switch *sb {
	case BackendPostgres:
		return "postgres"
	default:
		panic("config: unsupported storage backend")
	}
}

// Set sets the StorageBackend to the value specified by the provided string.
func (sb *StorageBackend) Set(s string) error {
	switch strings.ToLower(s) {
	case "postgres":
		*sb = BackendPostgres
	default:
		return fmt.Errorf("config: invalid storage backend: '%s'", s)
	}

	return nil
}

// Type returns the list of supported StorageBackends.
func (sb *StorageBackend) Type() string {
	return "[postgres]"
}

// StorageConfig contains the storage layer configuration.
type StorageConfig struct {
	// Endpoint is the storage endpoint to which vault events are written.
	Endpoint string `koanf:"endpoint"`

	// Backend is the storage backend to select.
	Backend string `koanf:"backend"`

	// Migrations is the directory containing schema migrations.
	Migrations string `koanf:"migrations"`

	// If true, we'll first delete all tables in the DB
	// before applying migrations.
	WipeStorage bool `koanf:"DANGER__WIPE_STORAGE_ON_STARTUP"`
}

// Validate validates the storage configuration.
func (cfg *StorageConfig) Validate(requireMigrations bool) error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("malformed storage endpoint '%s'", cfg.Endpoint)
	}
	if cfg.Migrations == "" && requireMigrations {
		return fmt.Errorf("invalid path to migrations '%s'", cfg.Migrations)
	}
	var sb StorageBackend
	return sb.Set(cfg.Backend)
}

// CheckpointConfig contains the local state snapshot configuration.
type CheckpointConfig struct {
	// Dir is the pogreb database directory.
	Dir string `koanf:"dir"`

	// Interval between snapshots.
	Interval time.Duration `koanf:"interval"`
}

// Validate validates the checkpoint configuration.
func (cfg *CheckpointConfig) Validate() error {
	if cfg.Dir == "" {
		return fmt.Errorf("no checkpoint dir provided")
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("checkpoint interval must be positive")
	}
	return nil
}

// LogConfig contains the logging configuration.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
	File   string `koanf:"file"`
}

// Validate validates the logging configuration.
func (cfg *LogConfig) Validate() error {
	var format log.Format
	if err := format.Set(cfg.Format); err != nil {
		return err
	}
	var level log.Level
	return level.Set(cfg.Level)
}

// MetricsConfig contains the metrics configuration.
type MetricsConfig struct {
	PullEndpoint string `koanf:"pull_endpoint"`
}

// Validate validates the metrics configuration.
func (cfg *MetricsConfig) Validate() error {
	if cfg.PullEndpoint == "" {
		return fmt.Errorf("malformed Prometheus pull endpoint '%s'", cfg.PullEndpoint)
	}
	return nil
}

// DebugConfig contains debugging aids.
type DebugConfig struct {
	// PprofEndpoint serves net/http/pprof if set.
	PprofEndpoint string `koanf:"pprof_endpoint"`
}

// Validate validates the debug configuration.
func (cfg *DebugConfig) Validate() error {
	if cfg.PprofEndpoint == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.PprofEndpoint); err != nil {
		return fmt.Errorf("pprof_endpoint: %w", err)
	}
	return nil
}

// InitConfig initializes configuration from file.
func InitConfig(f string) (*Config, error) {
	return initConfig(file.Provider(f))
}

func initConfig(p koanf.Provider) (*Config, error) {
	var config Config
	k := koanf.New(".")

	// Load configuration from the yaml config.
	if err := k.Load(p, yaml.Parser()); err != nil {
		return nil, err
	}

	// Load environment variables and merge into the loaded config.
	if err := k.Load(env.Provider("VAULT__", ".", func(s string) string {
		// `__` is used as a hierarchy delimiter.
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "VAULT__")), "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	// Unmarshal into config.
	if err := k.Unmarshal("", &config); err != nil {
		return nil, err
	}

	// Validate config.
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
