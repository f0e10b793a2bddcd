package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantsim/backtest"
	"github.com/rustyeddy/quantsim/config"
	"github.com/rustyeddy/quantsim/exec"
	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/metrics"
	"github.com/rustyeddy/quantsim/optimize"
	"github.com/rustyeddy/quantsim/risk"
	"github.com/rustyeddy/quantsim/strategies"
)

// commonOpts are the flags shared by run, grid and ga.
type commonOpts struct {
	configPath string

	csv    string
	symbol string
	start  string
	end    string

	strategy    string
	initialCash float64

	slippageBps     float64
	commissionBps   float64
	commissionFixed float64
	maxLeverage     float64
	maxPosPct       float64
	allowShort      bool
	maxDDHalt       float64

	// trend params
	fast    int
	slow    int
	atrN    int
	atrStop float64
	tpR     float64

	// mean reversion params
	rsiN      int
	buyBelow  float64
	sellAbove float64
	exitAt    float64
	stopPct   float64

	// sizing
	sizer        string
	riskPerTrade float64
	fixedPct     float64
}

func (o *commonOpts) addFlags(c *cobra.Command) {
	c.Flags().StringVar(&o.configPath, "config", "", "YAML config file (flags below are ignored when set)")

	c.Flags().StringVar(&o.csv, "csv", "", "path to OHLCV CSV (required without --config)")
	c.Flags().StringVar(&o.symbol, "symbol", "ASSET", "symbol name for the dataset")
	c.Flags().StringVar(&o.start, "start", "", "start timestamp filter (RFC3339)")
	c.Flags().StringVar(&o.end, "end", "", "end timestamp filter (RFC3339)")

	c.Flags().StringVarP(&o.strategy, "strategy", "s", "trend", "strategy name (trend, meanrev, noop)")
	c.Flags().Float64Var(&o.initialCash, "initial-cash", 100_000, "starting cash")

	c.Flags().Float64Var(&o.slippageBps, "slippage-bps", 1.0, "slippage in basis points")
	c.Flags().Float64Var(&o.commissionBps, "commission-bps", 0.5, "commission in basis points of notional")
	c.Flags().Float64Var(&o.commissionFixed, "commission-per-trade", 0, "fixed commission per trade")
	c.Flags().Float64Var(&o.maxLeverage, "max-leverage", 1.0, "maximum gross leverage")
	c.Flags().Float64Var(&o.maxPosPct, "max-pos-pct", 1.0, "maximum position notional as fraction of equity")
	c.Flags().BoolVar(&o.allowShort, "allow-short", false, "allow opening short positions")
	c.Flags().Float64Var(&o.maxDDHalt, "max-dd-halt", 0, "halt threshold, e.g. -0.2 (0 disables)")

	c.Flags().IntVar(&o.fast, "fast", 12, "trend: fast EMA period")
	c.Flags().IntVar(&o.slow, "slow", 26, "trend: slow EMA period")
	c.Flags().IntVar(&o.atrN, "atr-n", 14, "trend: ATR period")
	c.Flags().Float64Var(&o.atrStop, "atr-stop", 2.5, "trend: stop distance in ATR multiples")
	c.Flags().Float64Var(&o.tpR, "tp-r", 0, "trend: take-profit as R multiple (0 disables)")

	c.Flags().IntVar(&o.rsiN, "rsi-n", 14, "meanrev: RSI period")
	c.Flags().Float64Var(&o.buyBelow, "buy-below", 30, "meanrev: RSI long entry threshold")
	c.Flags().Float64Var(&o.sellAbove, "sell-above", 70, "meanrev: RSI short entry threshold")
	c.Flags().Float64Var(&o.exitAt, "exit-at", 50, "meanrev: RSI exit level")
	c.Flags().Float64Var(&o.stopPct, "stop-pct", 0.03, "meanrev: stop as fraction of entry price")

	c.Flags().StringVar(&o.sizer, "sizer", "risk_atr", "sizing policy (risk_atr, fixed_pct)")
	c.Flags().Float64Var(&o.riskPerTrade, "risk-per-trade", 0.01, "risk_atr: equity fraction risked per trade")
	c.Flags().Float64Var(&o.fixedPct, "fixed-pct", 1.0, "fixed_pct: equity fraction per entry")
}

// buildConfig resolves flags (or --config) into a validated Config.
func (o *commonOpts) buildConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.Load(o.configPath)
	}
	if o.csv == "" {
		return nil, fmt.Errorf("--csv is required (or use --config)")
	}

	cfg := config.Default()
	cfg.Data = []config.Dataset{{CSV: o.csv, Symbol: o.symbol, Start: o.start, End: o.end}}
	cfg.Execution = config.ExecutionConfig{
		CommissionPerTrade: o.commissionFixed,
		CommissionBps:      o.commissionBps,
		SlippageBps:        o.slippageBps,
		MaxLeverage:        o.maxLeverage,
		MaxPosPctEquity:    o.maxPosPct,
		AllowShort:         o.allowShort,
	}
	cfg.Backtest = config.BacktestConfig{
		InitialCash:     o.initialCash,
		MaxDrawdownHalt: o.maxDDHalt,
		FlattenOnHalt:   true,
	}
	cfg.Strategy = config.StrategyConfig{Name: o.strategy, Params: o.strategyParams()}
	cfg.Sizing = config.SizingConfig{
		Name:         o.sizer,
		RiskPerTrade: o.riskPerTrade,
		ATRMult:      o.atrStop,
		FixedPct:     o.fixedPct,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *commonOpts) strategyParams() map[string]float64 {
	return map[string]float64{
		"fast":       float64(o.fast),
		"slow":       float64(o.slow),
		"atr_n":      float64(o.atrN),
		"atr_stop":   o.atrStop,
		"tp_r":       o.tpR,
		"rsi_n":      float64(o.rsiN),
		"buy_below":  o.buyBelow,
		"sell_above": o.sellAbove,
		"exit_at":    o.exitAt,
		"stop_pct":   o.stopPct,
	}
}

// loadSet reads every configured dataset into the simulation universe.
func loadSet(cfg *config.Config) (market.Set, error) {
	set := make(market.Set, len(cfg.Data))
	for _, d := range cfg.Data {
		opts := market.LoadOptions{}
		if d.Start != "" {
			ts, err := time.Parse(time.RFC3339, d.Start)
			if err != nil {
				return nil, fmt.Errorf("data %s: bad start: %w", d.Symbol, err)
			}
			opts.Start = ts
		}
		if d.End != "" {
			ts, err := time.Parse(time.RFC3339, d.End)
			if err != nil {
				return nil, fmt.Errorf("data %s: bad end: %w", d.Symbol, err)
			}
			opts.End = ts
		}
		s, err := market.LoadCSV(d.CSV, d.Symbol, opts)
		if err != nil {
			return nil, err
		}
		set[d.Symbol] = s
	}
	return set, nil
}

// newRunner wires the execution engine and loop config.
func newRunner(cfg *config.Config) *backtest.Runner {
	ec := exec.Config{
		CommissionPerTrade: cfg.Execution.CommissionPerTrade,
		CommissionBps:      cfg.Execution.CommissionBps,
		SlippageBps:        cfg.Execution.SlippageBps,
		MaxLeverage:        cfg.Execution.MaxLeverage,
		MaxPosPctEquity:    cfg.Execution.MaxPosPctEquity,
		AllowShort:         cfg.Execution.AllowShort,
	}

	var engine *exec.Engine
	if cfg.Execution.CostModel == "impact" {
		advMult := cfg.Execution.ADVMultiple
		if advMult <= 0 {
			advMult = 390 // minutes per session; crude bar-volume scale-up
		}
		engine = exec.NewEngineWithCost(ec, exec.ImpactCost{
			SpreadBps:   cfg.Execution.SpreadBps,
			ImpactK:     cfg.Execution.ImpactK,
			ImpactAlpha: cfg.Execution.ImpactAlpha,
			ADV:         exec.DefaultADV(advMult),
		})
	} else {
		engine = exec.NewEngine(ec)
	}

	return backtest.NewRunner(engine, backtest.Config{
		InitialCash:     cfg.Backtest.InitialCash,
		MaxDrawdownHalt: cfg.Backtest.MaxDrawdownHalt,
		FlattenOnHalt:   cfg.Backtest.FlattenOnHalt,
	})
}

// newSizer builds the configured sizing policy with its base parameters.
func newSizer(cfg *config.Config) (risk.Sizer, error) {
	switch cfg.Sizing.Name {
	case "fixed_pct":
		return risk.NewFixedFraction(cfg.Sizing.FixedPct)
	case "risk_atr":
		return risk.NewATRRisk(cfg.Sizing.RiskPerTrade, cfg.Sizing.ATRMult)
	default:
		return nil, fmt.Errorf("unknown sizer %q", cfg.Sizing.Name)
	}
}

// factories bridges the config to the optimizer's per-evaluation builders.
// The base strategy params are overlaid with each evaluation's vector.
func factories(cfg *config.Config) (optimize.StrategyFactory, optimize.SizerFactory) {
	base := cfg.Strategy.Params

	stratFn := func(p optimize.Params) (strategies.Strategy, error) {
		merged := make(map[string]float64, len(base)+len(p))
		for k, v := range base {
			merged[k] = v
		}
		for k, v := range p {
			merged[k] = v
		}
		return strategies.ByName(cfg.Strategy.Name, merged)
	}

	sizerFn := func(p optimize.Params) (risk.Sizer, error) {
		get := func(key string, def float64) float64 {
			if v, ok := p[key]; ok {
				return v
			}
			return def
		}
		switch cfg.Sizing.Name {
		case "fixed_pct":
			return risk.NewFixedFraction(get("fixed_pct", cfg.Sizing.FixedPct))
		case "risk_atr":
			return risk.NewATRRisk(
				get("risk_per_trade", cfg.Sizing.RiskPerTrade),
				get("atr_stop", cfg.Sizing.ATRMult),
			)
		default:
			return nil, fmt.Errorf("unknown sizer %q", cfg.Sizing.Name)
		}
	}

	return stratFn, sizerFn
}

// metricOrder fixes the printed metric sequence.
var metricOrder = []string{
	"start_equity", "end_equity", "total_return", "cagr", "sharpe", "sortino",
	"max_drawdown", "exposure", "avg_hold_hours", "approx_win_rate",
	"num_fills", "total_commission", "total_slippage_cost",
}

func printMetrics(m metrics.Metrics) {
	vals := m.Map()
	for _, k := range metricOrder {
		fmt.Printf("%20s: %12.6f\n", k, vals[k])
	}
}

func printEvaluations(results []optimize.Evaluation, showGen bool) {
	for i, r := range results {
		keys := make([]string, 0, len(r.Params))
		for k := range r.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%.4g", k, r.Params[k]))
		}
		line := fmt.Sprintf("%3d. score=%.4f sharpe=%.4f max_dd=%.4f  %s",
			i+1, r.Score, r.Metrics.Sharpe, r.Metrics.MaxDrawdown, strings.Join(parts, " "))
		if showGen {
			line += fmt.Sprintf("  (gen %d)", r.Generation)
		}
		fmt.Println(line)
	}
}
