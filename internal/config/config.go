// Package config provides configuration management for the treasury controller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
)

// Config holds all application configuration.
type Config struct {
	Controller    ControllerConfig   `mapstructure:"controller"`
	Policy        PolicyOverlay      `mapstructure:"policy"`
	Sim           SimConfig          `mapstructure:"sim"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
}

// ControllerConfig holds tick-loop configuration.
type ControllerConfig struct {
	Mode                string   `mapstructure:"mode"` // "live", "sim"
	TickIntervalSeconds int      `mapstructure:"tick_interval_seconds"`
	Borrowers           []string `mapstructure:"borrowers"`
	GasReserve          float64  `mapstructure:"gas_reserve"` // dollars withheld per bucket on repay
	DatabasePath        string   `mapstructure:"database_path"`
}

// PolicyOverlay holds operator overrides for the on-chain policy.
// Zero values mean "not set"; set values always win over contract values.
type PolicyOverlay struct {
	LTVBps                 int64   `mapstructure:"ltv_bps"`
	MinHealth              float64 `mapstructure:"min_health"`
	EmergencyHealth        float64 `mapstructure:"emergency_health"`
	TargetHealth           float64 `mapstructure:"target_health"`
	LiquidityMin           float64 `mapstructure:"liquidity_min"`
	MaxPerTx               float64 `mapstructure:"max_per_tx"`
	MaxDaily               float64 `mapstructure:"max_daily"`
	TargetLiquidityBps     int64   `mapstructure:"target_liquidity_bps"`
	TargetReserveBps       int64   `mapstructure:"target_reserve_bps"`
	VolatilityThresholdPct float64 `mapstructure:"volatility_threshold_pct"`
}

// SimConfig seeds the simulated backends when running without credentials.
type SimConfig struct {
	CollateralTokens float64 `mapstructure:"collateral_tokens"`
	InitialDebt      float64 `mapstructure:"initial_debt"`
	OraclePrice      float64 `mapstructure:"oracle_price"`
	Liquidity        float64 `mapstructure:"liquidity"`
	Reserve          float64 `mapstructure:"reserve"`
	Yield            float64 `mapstructure:"yield"`
	CreditFacility   float64 `mapstructure:"credit_facility"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, risk_only, errors_only
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// Credentials holds collaborator credentials.
type Credentials struct {
	Rail   RailCredentials   `mapstructure:"rail"`
	Ledger LedgerCredentials `mapstructure:"ledger"`
	Oracle OracleCredentials `mapstructure:"oracle"`
}

// RailCredentials holds payment-rail API credentials.
type RailCredentials struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	AccountID string `mapstructure:"account_id"`
}

// LedgerCredentials holds on-chain ledger access configuration.
type LedgerCredentials struct {
	RPCURL          string `mapstructure:"rpc_url"`
	ContractAddress string `mapstructure:"contract_address"`
	SignerKey       string `mapstructure:"signer_key"`
}

// OracleCredentials holds price oracle access configuration.
type OracleCredentials struct {
	URL    string `mapstructure:"url"`
	Source string `mapstructure:"source"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/treasurer"
	}
	return filepath.Join(home, ".config", "treasurer")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("controller.mode", "sim")
	v.SetDefault("controller.tick_interval_seconds", 30)
	v.SetDefault("controller.borrowers", []string{"default"})
	v.SetDefault("controller.gas_reserve", 5.0)
	v.SetDefault("sim.collateral_tokens", 5.0)
	v.SetDefault("sim.oracle_price", 2000.0)
	v.SetDefault("sim.liquidity", 1500.0)
	v.SetDefault("sim.reserve", 3000.0)
	v.SetDefault("sim.credit_facility", 50000.0)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if werr := createTemplateConfig(configDir); werr != nil {
				return werr
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RAIL_BASE_URL"); v != "" {
		cfg.Credentials.Rail.BaseURL = v
	}
	if v := os.Getenv("RAIL_API_KEY"); v != "" {
		cfg.Credentials.Rail.APIKey = v
	}
	if v := os.Getenv("RAIL_API_SECRET"); v != "" {
		cfg.Credentials.Rail.APISecret = v
	}
	if v := os.Getenv("LEDGER_RPC_URL"); v != "" {
		cfg.Credentials.Ledger.RPCURL = v
	}
	if v := os.Getenv("LEDGER_CONTRACT"); v != "" {
		cfg.Credentials.Ledger.ContractAddress = v
	}
	if v := os.Getenv("ORACLE_URL"); v != "" {
		cfg.Credentials.Oracle.URL = v
	}
	if v := os.Getenv("TREASURY_MODE"); v != "" {
		cfg.Controller.Mode = v
	}
	if v := os.Getenv("TICK_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Controller.TickIntervalSeconds = n
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Controller.Mode == "" {
		cfg.Controller.Mode = "sim"
	}
	if cfg.Controller.TickIntervalSeconds <= 0 {
		cfg.Controller.TickIntervalSeconds = 30
	}
	if len(cfg.Controller.Borrowers) == 0 {
		cfg.Controller.Borrowers = []string{"default"}
	}
	if cfg.Controller.GasReserve <= 0 {
		cfg.Controller.GasReserve = 5.0
	}
	if cfg.Controller.DatabasePath == "" {
		cfg.Controller.DatabasePath = filepath.Join(DefaultConfigDir(), "treasurer.db")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Controller.Mode != "live" && c.Controller.Mode != "sim" {
		return fmt.Errorf("invalid controller mode: %s (must be 'live' or 'sim')", c.Controller.Mode)
	}
	if c.Controller.TickIntervalSeconds < 1 {
		return fmt.Errorf("tick_interval_seconds must be at least 1")
	}
	if c.Policy.MinHealth < 0 || c.Policy.EmergencyHealth < 0 {
		return fmt.Errorf("health thresholds must be non-negative")
	}
	if c.Policy.MinHealth > 0 && c.Policy.EmergencyHealth > c.Policy.MinHealth {
		return fmt.Errorf("emergency_health must not exceed min_health")
	}
	if c.Policy.LTVBps < 0 || c.Policy.LTVBps > 10000 {
		return fmt.Errorf("ltv_bps must be between 0 and 10000")
	}
	if c.Controller.Mode == "live" {
		if c.Credentials.Rail.APIKey == "" || c.Credentials.Rail.BaseURL == "" {
			return fmt.Errorf("live mode requires rail credentials")
		}
		if c.Credentials.Ledger.RPCURL == "" {
			return fmt.Errorf("live mode requires a ledger RPC URL")
		}
	}
	return nil
}

// IsSimMode returns true if simulated backends are selected.
func (c *Config) IsSimMode() bool {
	return c.Controller.Mode == "sim"
}

// MergePolicy layers the overlay over ledger-sourced policy values.
// Precedence: overlay > contract > safe defaults. Contract fields left at
// zero fall back to the defaults before the overlay is applied.
func (c *Config) MergePolicy(contract models.Policy) models.Policy {
	p := models.DefaultPolicy()

	// Contract values replace defaults where the contract provides them.
	if contract.LTVBps > 0 {
		p.LTVBps = contract.LTVBps
	}
	if contract.MinHealthBps > 0 {
		p.MinHealthBps = contract.MinHealthBps
	}
	if contract.EmergencyHealthBps > 0 {
		p.EmergencyHealthBps = contract.EmergencyHealthBps
	}
	if contract.TargetHealthBps > 0 {
		p.TargetHealthBps = contract.TargetHealthBps
	}
	if contract.LiquidityMin > 0 {
		p.LiquidityMin = contract.LiquidityMin
	}
	if contract.MaxPerTx > 0 {
		p.MaxPerTx = contract.MaxPerTx
	}
	if contract.MaxDaily > 0 {
		p.MaxDaily = contract.MaxDaily
	}
	if contract.TargetLiquidityBps > 0 {
		p.TargetLiquidityBps = contract.TargetLiquidityBps
	}
	if contract.TargetReserveBps > 0 {
		p.TargetReserveBps = contract.TargetReserveBps
	}
	if contract.VolatilityThresholdPct > 0 {
		p.VolatilityThresholdPct = contract.VolatilityThresholdPct
	}

	// Overlay always wins when present.
	o := c.Policy
	if o.LTVBps > 0 {
		p.LTVBps = o.LTVBps
	}
	if o.MinHealth > 0 {
		p.MinHealthBps = int64(o.MinHealth * money.BpsScale)
	}
	if o.EmergencyHealth > 0 {
		p.EmergencyHealthBps = int64(o.EmergencyHealth * money.BpsScale)
	}
	if o.TargetHealth > 0 {
		p.TargetHealthBps = int64(o.TargetHealth * money.BpsScale)
	}
	if o.LiquidityMin > 0 {
		p.LiquidityMin = money.FromDollars(o.LiquidityMin)
	}
	if o.MaxPerTx > 0 {
		p.MaxPerTx = money.FromDollars(o.MaxPerTx)
	}
	if o.MaxDaily > 0 {
		p.MaxDaily = money.FromDollars(o.MaxDaily)
	}
	if o.TargetLiquidityBps > 0 {
		p.TargetLiquidityBps = o.TargetLiquidityBps
	}
	if o.TargetReserveBps > 0 {
		p.TargetReserveBps = o.TargetReserveBps
	}
	if o.VolatilityThresholdPct > 0 {
		p.VolatilityThresholdPct = o.VolatilityThresholdPct
	}

	return p
}

// GasReserveMoney returns the per-bucket gas reserve as Money6.
func (c *Config) GasReserveMoney() money.Money6 {
	return money.FromDollars(c.Controller.GasReserve)
}
