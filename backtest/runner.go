// Package backtest drives a strategy through a price series bar by bar,
// enforcing the drawdown-halt policy and recording the equity curve.
package backtest

import (
	"fmt"
	"time"

	"github.com/rustyeddy/quantsim/exec"
	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/metrics"
	"github.com/rustyeddy/quantsim/portfolio"
	"github.com/rustyeddy/quantsim/risk"
	"github.com/rustyeddy/quantsim/strategies"
)

// Config controls one simulation run.
type Config struct {
	InitialCash float64

	// MaxDrawdownHalt is the drawdown at which the run transitions to HALTED
	// (e.g. -0.2). Zero disables the halt policy; drawdowns are <= 0 so a
	// zero threshold would otherwise halt on the first bar.
	MaxDrawdownHalt float64

	// FlattenOnHalt forces open positions closed once halted.
	FlattenOnHalt bool
}

// DefaultConfig starts with 100k cash and no halt policy.
func DefaultConfig() Config {
	return Config{InitialCash: 100_000, FlattenOnHalt: true}
}

// Result is everything a run produces: the equity curve, the fill log, and
// the derived metrics. These are the only artifacts reporting layers may
// depend on.
type Result struct {
	Equity  []portfolio.Snapshot
	Fills   []exec.Fill
	Metrics metrics.Metrics
}

// Runner owns the simulation loop. It is strictly single-threaded: each
// bar's strategy callback, order submissions and ledger updates complete
// fully before the next timestamp is processed.
type Runner struct {
	Engine *exec.Engine
	Config Config
}

// NewRunner pairs an execution engine with a run configuration.
func NewRunner(engine *exec.Engine, cfg Config) *Runner {
	return &Runner{Engine: engine, Config: cfg}
}

// Run simulates strategy over the full input set and returns the recorded
// result. The input bars are shared read-only; indicator columns are
// attached to per-run copies so concurrent runs never share mutable state.
func (r *Runner) Run(set market.Set, strat strategies.Strategy, sizer risk.Sizer) (*Result, error) {
	if r.Engine == nil {
		return nil, fmt.Errorf("backtest: execution engine is required")
	}
	if strat == nil {
		return nil, fmt.Errorf("backtest: strategy is required")
	}
	if sizer == nil {
		return nil, fmt.Errorf("backtest: sizer is required")
	}
	if r.Config.InitialCash <= 0 {
		return nil, fmt.Errorf("backtest: initial cash must be positive, got %v", r.Config.InitialCash)
	}
	if r.Config.MaxDrawdownHalt > 0 {
		return nil, fmt.Errorf("backtest: drawdown halt threshold must be negative, got %v", r.Config.MaxDrawdownHalt)
	}

	// Per-run series copies: bars are shared, columns are owned by this run.
	prepared := make(market.Set, len(set))
	for sym, s := range set {
		cp := &market.Series{Symbol: s.Symbol, Bars: s.Bars}
		if err := strat.Prepare(cp); err != nil {
			return nil, fmt.Errorf("backtest: prepare %s: %w", sym, err)
		}
		prepared[sym] = cp
	}

	pf := portfolio.New(r.Config.InitialCash)
	ctx := strategies.NewContext(pf, sizer)

	res := &Result{}
	halted := false

	err := prepared.Walk(func(ts time.Time, ticks map[string]market.Tick) error {
		mark(pf, ticks)

		// HALTED is terminal for the remainder of the run.
		if !halted && r.Config.MaxDrawdownHalt < 0 && pf.MaxDrawdown <= r.Config.MaxDrawdownHalt {
			halted = true
		}

		if halted {
			if r.Config.FlattenOnHalt {
				r.flatten(pf, ts, ticks, res)
			}
			res.Equity = append(res.Equity, pf.Snap(ts))
			return nil
		}

		orders, err := strat.OnBar(ts, ticks, ctx)
		if err != nil {
			return fmt.Errorf("backtest: strategy %s at %s: %w", strat.Name(), ts.Format(time.RFC3339), err)
		}

		// Submit in the order returned; each fill updates the equity and
		// position basis seen by the next order in the same batch.
		for _, o := range orders {
			tick, ok := ticks[o.Symbol]
			if !ok {
				continue // no bar for this symbol at this tick, order expires
			}
			fill, err := r.Engine.TryFill(o, tick.Bar(), pf.Equity, pf.Position(o.Symbol).Qty)
			if err != nil {
				return fmt.Errorf("backtest: %w", err)
			}
			if fill != nil {
				pf.ApplyFill(*fill)
				res.Fills = append(res.Fills, *fill)
				mark(pf, ticks)
			}
		}

		mark(pf, ticks)
		res.Equity = append(res.Equity, pf.Snap(ts))
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Metrics = metrics.Compute(res.Equity, res.Fills)
	return res, nil
}

// flatten synthesizes market orders closing every non-zero position that has
// a bar available at this tick. The strategy is never consulted once halted.
func (r *Runner) flatten(pf *portfolio.Portfolio, ts time.Time, ticks map[string]market.Tick, res *Result) {
	for sym, tick := range ticks {
		pos := pf.Position(sym)
		if pos.Qty == 0 {
			continue
		}
		side := exec.Sell
		qty := pos.Qty
		if qty < 0 {
			side = exec.Buy
			qty = -qty
		}
		o := exec.MarketOrder(ts, sym, side, qty, "HALT_FLATTEN")
		fill, err := r.Engine.TryFill(o, tick.Bar(), pf.Equity, pos.Qty)
		if err != nil || fill == nil {
			continue
		}
		pf.ApplyFill(*fill)
		res.Fills = append(res.Fills, *fill)
		mark(pf, ticks)
	}
}

// mark re-marks the portfolio with the closes available at this tick;
// symbols without a bar keep their carried-forward price.
func mark(pf *portfolio.Portfolio, ticks map[string]market.Tick) {
	prices := make(map[string]float64, len(ticks))
	for sym, tick := range ticks {
		prices[sym] = tick.Bar().Close
	}
	pf.Mark(prices)
}
