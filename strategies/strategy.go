// Package strategies defines the strategy capability set and the built-in
// trading strategies driven by the backtest loop.
package strategies

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/quantsim/exec"
	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/portfolio"
	"github.com/rustyeddy/quantsim/risk"
)

// Strategy is the capability set the simulation loop drives:
// Prepare attaches indicator/signal columns to the raw series once per run,
// OnBar returns the orders to submit for the current clock tick.
type Strategy interface {
	Name() string
	Prepare(s *market.Series) error
	OnBar(ts time.Time, ticks map[string]market.Tick, ctx *Context) ([]exec.Order, error)
}

// Context is the mutable per-run scratch state threaded through OnBar. The
// simulation loop owns it, one instance per run; strategies must never hold
// state at package level.
type Context struct {
	Portfolio *portfolio.Portfolio
	Sizer     risk.Sizer

	states map[string]*State
}

// State holds the single resting stop/take-profit level a strategy manages
// per symbol. NaN means unset.
type State struct {
	Stop float64
	Take float64
}

// NewContext builds a fresh context for one run.
func NewContext(pf *portfolio.Portfolio, sizer risk.Sizer) *Context {
	return &Context{
		Portfolio: pf,
		Sizer:     sizer,
		states:    make(map[string]*State),
	}
}

// State returns the per-symbol scratch state, creating it unset.
func (c *Context) State(symbol string) *State {
	st, ok := c.states[symbol]
	if !ok {
		st = &State{Stop: math.NaN(), Take: math.NaN()}
		c.states[symbol] = st
	}
	return st
}

// HasStop reports whether a stop level is resting.
func (s *State) HasStop() bool { return !math.IsNaN(s.Stop) }

// HasTake reports whether a take-profit level is resting.
func (s *State) HasTake() bool { return !math.IsNaN(s.Take) }

// Clear removes both resting levels.
func (s *State) Clear() {
	s.Stop = math.NaN()
	s.Take = math.NaN()
}

// symbols returns the tick keys in a stable order so order submission is
// deterministic run to run.
func symbols(ticks map[string]market.Tick) []string {
	out := make([]string, 0, len(ticks))
	for sym := range ticks {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// ByName builds a registered strategy with defaults overridden by params.
// Unknown names fail fast; they are configuration errors, never coerced.
func ByName(name string, params map[string]float64) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "noop", "none":
		return Noop{}, nil

	case "trend", "trend-ema":
		cfg := TrendConfigDefaults()
		cfg.apply(params)
		return NewTrendEMA(cfg)

	case "meanrev", "mean-reversion", "rsi":
		cfg := MeanRevConfigDefaults()
		cfg.apply(params)
		return NewMeanReversionRSI(cfg)

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: noop, trend, meanrev)", name)
	}
}

func pick(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}
