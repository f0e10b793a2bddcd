package strategies

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/quantsim/exec"
	"github.com/rustyeddy/quantsim/indicators"
	"github.com/rustyeddy/quantsim/market"
)

// MeanRevConfig parameterizes the RSI mean-reversion strategy.
type MeanRevConfig struct {
	RSIPeriod int     `yaml:"rsi_period"`
	BuyBelow  float64 `yaml:"buy_below"`
	SellAbove float64 `yaml:"sell_above"`
	ExitAt    float64 `yaml:"exit_at"`
	StopPct   float64 `yaml:"stop_pct"`
}

// MeanRevConfigDefaults returns the usual 30/70 RSI bands with a 3% stop.
func MeanRevConfigDefaults() MeanRevConfig {
	return MeanRevConfig{RSIPeriod: 14, BuyBelow: 30, SellAbove: 70, ExitAt: 50, StopPct: 0.03}
}

func (c *MeanRevConfig) apply(params map[string]float64) {
	c.RSIPeriod = int(pick(params, "rsi_n", float64(c.RSIPeriod)))
	c.BuyBelow = pick(params, "buy_below", c.BuyBelow)
	c.SellAbove = pick(params, "sell_above", c.SellAbove)
	c.ExitAt = pick(params, "exit_at", c.ExitAt)
	c.StopPct = pick(params, "stop_pct", c.StopPct)
}

// MeanReversionRSI fades RSI extremes: long below BuyBelow, short above
// SellAbove, exit when RSI reverts through ExitAt, fixed-percentage stop.
type MeanReversionRSI struct {
	cfg MeanRevConfig
}

// NewMeanReversionRSI validates the band ordering at construction.
func NewMeanReversionRSI(cfg MeanRevConfig) (*MeanReversionRSI, error) {
	if cfg.RSIPeriod <= 0 {
		return nil, fmt.Errorf("meanrev-rsi: rsi period must be positive, got %d", cfg.RSIPeriod)
	}
	if !(cfg.BuyBelow < cfg.ExitAt && cfg.ExitAt < cfg.SellAbove) {
		return nil, fmt.Errorf("meanrev-rsi: bands must satisfy buy_below < exit_at < sell_above (got %v < %v < %v)",
			cfg.BuyBelow, cfg.ExitAt, cfg.SellAbove)
	}
	if cfg.StopPct <= 0 {
		return nil, fmt.Errorf("meanrev-rsi: stop pct must be positive, got %v", cfg.StopPct)
	}
	return &MeanReversionRSI{cfg: cfg}, nil
}

func (m *MeanReversionRSI) Name() string { return "meanrev-rsi" }

// Prepare attaches the rsi column.
func (m *MeanReversionRSI) Prepare(s *market.Series) error {
	s.SetColumn("rsi", indicators.RSI(s.Closes(), m.cfg.RSIPeriod))
	return nil
}

func (m *MeanReversionRSI) OnBar(ts time.Time, ticks map[string]market.Tick, ctx *Context) ([]exec.Order, error) {
	var orders []exec.Order

	for _, sym := range symbols(ticks) {
		tick := ticks[sym]
		bar := tick.Bar()
		st := ctx.State(sym)
		posQty := ctx.Portfolio.Position(sym).Qty

		// Stop management before anything else.
		if posQty > 0 && st.HasStop() && bar.Low <= st.Stop {
			orders = append(orders, exec.MarketOrder(ts, sym, exec.Sell, posQty, "STOP_LONG"))
			st.Clear()
			continue
		}
		if posQty < 0 && st.HasStop() && bar.High >= st.Stop {
			orders = append(orders, exec.MarketOrder(ts, sym, exec.Buy, -posQty, "STOP_SHORT"))
			st.Clear()
			continue
		}

		r := tick.Value("rsi")
		px := bar.Close
		qty := ctx.Sizer.Size(tick, ctx.Portfolio.Equity)

		// Entries only from flat, and only once RSI is defined.
		if posQty == 0 && !math.IsNaN(r) {
			if r <= m.cfg.BuyBelow {
				orders = append(orders, exec.MarketOrder(ts, sym, exec.Buy, qty, "MR_LONG"))
				st.Stop = px * (1 - m.cfg.StopPct)
			} else if r >= m.cfg.SellAbove {
				orders = append(orders, exec.MarketOrder(ts, sym, exec.Sell, qty, "MR_SHORT"))
				st.Stop = px * (1 + m.cfg.StopPct)
			}
		}

		// Reversion-to-neutral exits.
		if posQty > 0 && r >= m.cfg.ExitAt {
			orders = append(orders, exec.MarketOrder(ts, sym, exec.Sell, posQty, "MR_EXIT_LONG"))
			st.Clear()
		}
		if posQty < 0 && r <= m.cfg.ExitAt {
			orders = append(orders, exec.MarketOrder(ts, sym, exec.Buy, -posQty, "MR_EXIT_SHORT"))
			st.Clear()
		}
	}

	return orders, nil
}
