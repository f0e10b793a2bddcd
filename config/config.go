// Package config loads and validates the YAML run configuration.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete configuration for one simulation or optimization.
type Config struct {
	Data      []Dataset       `yaml:"data"`
	Execution ExecutionConfig `yaml:"execution"`
	Backtest  BacktestConfig  `yaml:"backtest"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	Sizing    SizingConfig    `yaml:"sizing"`
	Journal   JournalConfig   `yaml:"journal"`
}

// Dataset names one input CSV series. Multiple datasets form the simulated
// universe; a single entry is simply the one-symbol case.
type Dataset struct {
	CSV    string `yaml:"csv"`
	Symbol string `yaml:"symbol"`
	Start  string `yaml:"start,omitempty"`
	End    string `yaml:"end,omitempty"`
}

// ExecutionConfig mirrors the execution model's broker constraints and cost
// parameters.
type ExecutionConfig struct {
	CommissionPerTrade float64 `yaml:"commission_per_trade"`
	CommissionBps      float64 `yaml:"commission_bps"`
	SlippageBps        float64 `yaml:"slippage_bps"`
	MaxLeverage        float64 `yaml:"max_leverage"`
	MaxPosPctEquity    float64 `yaml:"max_pos_pct_equity"`
	AllowShort         bool    `yaml:"allow_short"`

	// CostModel selects "bps" (default) or "impact".
	CostModel   string  `yaml:"cost_model,omitempty"`
	SpreadBps   float64 `yaml:"spread_bps,omitempty"`
	ImpactK     float64 `yaml:"impact_k,omitempty"`
	ImpactAlpha float64 `yaml:"impact_alpha,omitempty"`
	ADVMultiple float64 `yaml:"adv_multiple,omitempty"`
}

// BacktestConfig holds the loop parameters.
type BacktestConfig struct {
	InitialCash     float64 `yaml:"initial_cash"`
	MaxDrawdownHalt float64 `yaml:"max_drawdown_halt"` // e.g. -0.2; 0 disables
	FlattenOnHalt   bool    `yaml:"flatten_on_halt"`
}

// StrategyConfig names the strategy and carries its free-form parameters.
// Parameter keys match the optimizer's parameter-vector names (fast, slow,
// atr_stop, rsi_n, ...).
type StrategyConfig struct {
	Name   string             `yaml:"name"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

// SizingConfig selects the position-sizing policy.
type SizingConfig struct {
	Name         string  `yaml:"name"` // "fixed_pct" or "risk_atr"
	FixedPct     float64 `yaml:"fixed_pct,omitempty"`
	RiskPerTrade float64 `yaml:"risk_per_trade,omitempty"`
	ATRMult      float64 `yaml:"atr_mult,omitempty"`
}

// JournalConfig selects run persistence.
type JournalConfig struct {
	Type       string `yaml:"type"` // "none", "csv" or "sqlite"
	FillsFile  string `yaml:"fills_file,omitempty"`
	EquityFile string `yaml:"equity_file,omitempty"`
	DBPath     string `yaml:"db_path,omitempty"`
}

// Default returns a runnable configuration matching the historical script
// defaults: 100k cash, 1bp slippage, 0.5bp commission, no leverage.
func Default() *Config {
	return &Config{
		Execution: ExecutionConfig{
			CommissionBps:   0.5,
			SlippageBps:     1.0,
			MaxLeverage:     1.0,
			MaxPosPctEquity: 1.0,
		},
		Backtest: BacktestConfig{
			InitialCash:   100_000,
			FlattenOnHalt: true,
		},
		Strategy: StrategyConfig{Name: "trend"},
		Sizing:   SizingConfig{Name: "risk_atr", RiskPerTrade: 0.01, ATRMult: 2.5, FixedPct: 1.0},
		Journal:  JournalConfig{Type: "none"},
	}
}

// Load reads the YAML file at path, then applies .env / environment variable
// overrides. Validation failures are returned before any simulation starts.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides loads a .env file when present and applies well-known
// environment variables on top of the file configuration.
func applyEnvOverrides(cfg *Config) {
	_ = godotenv.Load() // no .env is fine

	if v := os.Getenv("QUANTSIM_DB_PATH"); v != "" {
		cfg.Journal.DBPath = v
	}
	if v := os.Getenv("QUANTSIM_INITIAL_CASH"); v != "" {
		if cash, err := strconv.ParseFloat(v, 64); err == nil && cash > 0 {
			cfg.Backtest.InitialCash = cash
		}
	}
}

// Validate fails fast on invalid configuration. Strategy parameter
// relationships are validated by the strategy constructors at dispatch time.
func (c *Config) Validate() error {
	if len(c.Data) == 0 {
		return fmt.Errorf("data: at least one dataset is required")
	}
	for i, d := range c.Data {
		if d.CSV == "" {
			return fmt.Errorf("data[%d]: csv path is required", i)
		}
		if d.Symbol == "" {
			return fmt.Errorf("data[%d]: symbol is required", i)
		}
	}
	if c.Backtest.InitialCash <= 0 {
		return fmt.Errorf("backtest.initial_cash must be positive")
	}
	if c.Backtest.MaxDrawdownHalt > 0 {
		return fmt.Errorf("backtest.max_drawdown_halt must be negative (or 0 to disable)")
	}
	if c.Execution.MaxLeverage <= 0 {
		return fmt.Errorf("execution.max_leverage must be positive")
	}
	if c.Execution.MaxPosPctEquity <= 0 {
		return fmt.Errorf("execution.max_pos_pct_equity must be positive")
	}
	switch c.Execution.CostModel {
	case "", "bps", "impact":
	default:
		return fmt.Errorf("execution.cost_model must be 'bps' or 'impact', got %q", c.Execution.CostModel)
	}
	switch c.Sizing.Name {
	case "fixed_pct", "risk_atr":
	default:
		return fmt.Errorf("sizing.name must be 'fixed_pct' or 'risk_atr', got %q", c.Sizing.Name)
	}
	switch c.Journal.Type {
	case "none", "csv", "sqlite":
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite', got %q", c.Journal.Type)
	}
	if c.Journal.Type == "csv" && (c.Journal.FillsFile == "" || c.Journal.EquityFile == "") {
		return fmt.Errorf("journal fills_file and equity_file required for csv type")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal db_path required for sqlite type")
	}
	return nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
