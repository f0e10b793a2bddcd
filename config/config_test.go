package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
data:
  - csv: data/spy.csv
    symbol: SPY
execution:
  commission_bps: 1.0
  slippage_bps: 2.0
  max_leverage: 2.0
  max_pos_pct_equity: 0.5
  allow_short: true
backtest:
  initial_cash: 250000
  max_drawdown_halt: -0.2
strategy:
  name: meanrev
  params:
    rsi_n: 10
    buy_below: 25
sizing:
  name: fixed_pct
  fixed_pct: 0.8
journal:
  type: sqlite
  db_path: runs.db
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	require.Len(t, cfg.Data, 1)
	assert.Equal(t, "SPY", cfg.Data[0].Symbol)
	assert.InDelta(t, 250_000, cfg.Backtest.InitialCash, 1e-9)
	assert.InDelta(t, -0.2, cfg.Backtest.MaxDrawdownHalt, 1e-9)
	assert.True(t, cfg.Execution.AllowShort)
	assert.Equal(t, "meanrev", cfg.Strategy.Name)
	assert.InDelta(t, 25, cfg.Strategy.Params["buy_below"], 1e-9)
	assert.Equal(t, "fixed_pct", cfg.Sizing.Name)
	assert.Equal(t, "sqlite", cfg.Journal.Type)
}

func TestLoadKeepsDefaultsForOmittedSections(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
data:
  - csv: data/spy.csv
    symbol: SPY
`))
	require.NoError(t, err)

	// untouched sections keep the script defaults
	assert.InDelta(t, 100_000, cfg.Backtest.InitialCash, 1e-9)
	assert.InDelta(t, 0.5, cfg.Execution.CommissionBps, 1e-9)
	assert.InDelta(t, 1.0, cfg.Execution.SlippageBps, 1e-9)
	assert.Equal(t, "trend", cfg.Strategy.Name)
	assert.Equal(t, "risk_atr", cfg.Sizing.Name)
	assert.Equal(t, "none", cfg.Journal.Type)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "data: [unclosed"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUANTSIM_DB_PATH", "/tmp/override.db")
	t.Setenv("QUANTSIM_INITIAL_CASH", "55000")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.db", cfg.Journal.DBPath)
	assert.InDelta(t, 55_000, cfg.Backtest.InitialCash, 1e-9)
}

func TestEnvOverrideIgnoresBadCash(t *testing.T) {
	t.Setenv("QUANTSIM_INITIAL_CASH", "not-a-number")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.InDelta(t, 250_000, cfg.Backtest.InitialCash, 1e-9)
}

func TestValidateFailures(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		c := Default()
		c.Data = []Dataset{{CSV: "data/spy.csv", Symbol: "SPY"}}
		return c
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no datasets", func(c *Config) { c.Data = nil }},
		{"dataset missing csv", func(c *Config) { c.Data[0].CSV = "" }},
		{"dataset missing symbol", func(c *Config) { c.Data[0].Symbol = "" }},
		{"non-positive cash", func(c *Config) { c.Backtest.InitialCash = 0 }},
		{"positive halt threshold", func(c *Config) { c.Backtest.MaxDrawdownHalt = 0.2 }},
		{"non-positive leverage", func(c *Config) { c.Execution.MaxLeverage = 0 }},
		{"non-positive pos pct", func(c *Config) { c.Execution.MaxPosPctEquity = -1 }},
		{"unknown cost model", func(c *Config) { c.Execution.CostModel = "quadratic" }},
		{"unknown sizer", func(c *Config) { c.Sizing.Name = "kelly" }},
		{"unknown journal type", func(c *Config) { c.Journal.Type = "parquet" }},
		{"csv journal without paths", func(c *Config) { c.Journal.Type = "csv" }},
		{"sqlite journal without path", func(c *Config) { c.Journal.Type = "sqlite" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	assert.NoError(t, base().Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	c := Default()
	c.Data = []Dataset{{CSV: "data/spy.csv", Symbol: "SPY"}}
	c.Strategy.Params = map[string]float64{"fast": 8}

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, c.SaveToFile(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c.Data, got.Data)
	assert.InDelta(t, 8, got.Strategy.Params["fast"], 1e-9)
}
