package strategies

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/quantsim/exec"
	"github.com/rustyeddy/quantsim/indicators"
	"github.com/rustyeddy/quantsim/market"
)

// TrendConfig parameterizes the trend-following EMA crossover strategy.
type TrendConfig struct {
	Fast        int     `yaml:"fast"`
	Slow        int     `yaml:"slow"`
	ATRPeriod   int     `yaml:"atr_period"`
	ATRStop     float64 `yaml:"atr_stop"`
	TakeProfitR float64 `yaml:"tp_r"` // take-profit as R multiple of the stop; 0 disables
}

// TrendConfigDefaults returns the classic 12/26 crossover with a 2.5 ATR stop.
func TrendConfigDefaults() TrendConfig {
	return TrendConfig{Fast: 12, Slow: 26, ATRPeriod: 14, ATRStop: 2.5}
}

func (c *TrendConfig) apply(params map[string]float64) {
	c.Fast = int(pick(params, "fast", float64(c.Fast)))
	c.Slow = int(pick(params, "slow", float64(c.Slow)))
	c.ATRPeriod = int(pick(params, "atr_n", float64(c.ATRPeriod)))
	c.ATRStop = pick(params, "atr_stop", c.ATRStop)
	c.TakeProfitR = pick(params, "tp_r", c.TakeProfitR)
}

// TrendEMA is classic trend-following: enter on an EMA fast/slow cross,
// protect with an ATR-multiple stop and an optional take-profit, reverse on
// the opposite cross.
type TrendEMA struct {
	cfg TrendConfig
}

// NewTrendEMA validates the parameter relationships at construction.
func NewTrendEMA(cfg TrendConfig) (*TrendEMA, error) {
	if cfg.Fast <= 0 || cfg.Slow <= 0 {
		return nil, fmt.Errorf("trend-ema: periods must be positive (fast=%d slow=%d)", cfg.Fast, cfg.Slow)
	}
	if cfg.Fast >= cfg.Slow {
		return nil, fmt.Errorf("trend-ema: fast period must be less than slow (fast=%d slow=%d)", cfg.Fast, cfg.Slow)
	}
	if cfg.ATRPeriod <= 0 {
		return nil, fmt.Errorf("trend-ema: atr period must be positive, got %d", cfg.ATRPeriod)
	}
	if cfg.ATRStop <= 0 {
		return nil, fmt.Errorf("trend-ema: atr stop multiple must be positive, got %v", cfg.ATRStop)
	}
	return &TrendEMA{cfg: cfg}, nil
}

func (t *TrendEMA) Name() string { return "trend-ema" }

// Prepare attaches ema_fast, ema_slow, atr and the sig column: +1 on the bar
// where the fast EMA first moves above the slow, -1 on the opposite cross,
// 0 elsewhere.
func (t *TrendEMA) Prepare(s *market.Series) error {
	closes := s.Closes()
	highs := make([]float64, len(s.Bars))
	lows := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		highs[i] = b.High
		lows[i] = b.Low
	}

	fast := indicators.EMA(closes, t.cfg.Fast)
	slow := indicators.EMA(closes, t.cfg.Slow)
	s.SetColumn("ema_fast", fast)
	s.SetColumn("ema_slow", slow)
	s.SetColumn("atr", indicators.ATR(highs, lows, closes, t.cfg.ATRPeriod))

	sig := make([]float64, len(closes))
	prevGT, prevLT := false, false
	for i := range closes {
		gt := fast[i] > slow[i] // false while either EMA is NaN
		lt := fast[i] < slow[i]
		switch {
		case gt && !prevGT:
			sig[i] = 1
		case lt && !prevLT:
			sig[i] = -1
		}
		prevGT, prevLT = gt, lt
	}
	s.SetColumn("sig", sig)
	return nil
}

func (t *TrendEMA) OnBar(ts time.Time, ticks map[string]market.Tick, ctx *Context) ([]exec.Order, error) {
	var orders []exec.Order

	for _, sym := range symbols(ticks) {
		tick := ticks[sym]
		bar := tick.Bar()
		st := ctx.State(sym)
		posQty := ctx.Portfolio.Position(sym).Qty

		// Resting stop/take management comes first; an exit consumes the bar.
		if posQty > 0 {
			if st.HasStop() && bar.Low <= st.Stop {
				orders = append(orders, exec.MarketOrder(ts, sym, exec.Sell, posQty, "STOP_LONG"))
				st.Clear()
				continue
			}
			if st.HasTake() && bar.High >= st.Take {
				orders = append(orders, exec.MarketOrder(ts, sym, exec.Sell, posQty, "TP_LONG"))
				st.Clear()
				continue
			}
		}
		if posQty < 0 {
			if st.HasStop() && bar.High >= st.Stop {
				orders = append(orders, exec.MarketOrder(ts, sym, exec.Buy, -posQty, "STOP_SHORT"))
				st.Clear()
				continue
			}
			if st.HasTake() && bar.Low <= st.Take {
				orders = append(orders, exec.MarketOrder(ts, sym, exec.Buy, -posQty, "TP_SHORT"))
				st.Clear()
				continue
			}
		}

		sig := tick.Value("sig")
		atr := tick.Value("atr")
		px := bar.Close
		qty := ctx.Sizer.Size(tick, ctx.Portfolio.Equity)

		if sig == 1 && posQty <= 0 {
			orders = append(orders, exec.MarketOrder(ts, sym, exec.Buy, qty, "ENTER_LONG"))
			if !math.IsNaN(atr) && atr > 0 {
				st.Stop = px - t.cfg.ATRStop*atr
				if t.cfg.TakeProfitR > 0 {
					st.Take = px + t.cfg.TakeProfitR*(t.cfg.ATRStop*atr)
				}
			}
		}
		if sig == -1 && posQty >= 0 {
			orders = append(orders, exec.MarketOrder(ts, sym, exec.Sell, qty, "ENTER_SHORT"))
			if !math.IsNaN(atr) && atr > 0 {
				st.Stop = px + t.cfg.ATRStop*atr
				if t.cfg.TakeProfitR > 0 {
					st.Take = px - t.cfg.TakeProfitR*(t.cfg.ATRStop*atr)
				}
			}
		}
	}

	return orders, nil
}
