package exec

import (
	"math"

	"github.com/rustyeddy/quantsim/market"
)

// Config holds the broker constraints and default cost parameters for one
// run. It is immutable once the engine is built.
type Config struct {
	CommissionPerTrade float64
	CommissionBps      float64
	SlippageBps        float64
	MaxLeverage        float64
	MaxPosPctEquity    float64
	AllowShort         bool
}

// DefaultConfig mirrors an unconstrained cash account: full equity in one
// position, no leverage, shorting allowed.
func DefaultConfig() Config {
	return Config{
		MaxLeverage:     1.0,
		MaxPosPctEquity: 1.0,
		AllowShort:      true,
	}
}

// Engine is the bar-based execution model:
//   - MARKET fills at close +/- slippage
//   - LIMIT fills if price crosses the limit within the bar (low/high)
//   - STOP fills if price crosses the stop within the bar
//
// This is not tick-accurate; swap the cost model or the trigger logic for a
// tick/L2 model if that fidelity is ever needed.
type Engine struct {
	cfg  Config
	cost CostModel
}

// NewEngine builds an engine using the flat bps cost model from cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg: cfg,
		cost: BpsCost{
			PerTrade:      cfg.CommissionPerTrade,
			CommissionBps: cfg.CommissionBps,
			SlippageBps:   cfg.SlippageBps,
		},
	}
}

// NewEngineWithCost builds an engine with a caller-supplied cost model.
// Constraint handling is unchanged; only pricing differs.
func NewEngineWithCost(cfg Config, cost CostModel) *Engine {
	return &Engine{cfg: cfg, cost: cost}
}

// Config returns the engine's immutable configuration.
func (e *Engine) Config() Config { return e.cfg }

// TryFill decides whether order executes against bar and returns the fill,
// or nil when the order does not trigger, is shrunk to nothing by exposure
// constraints, or would open a forbidden short. Unknown order types and
// sides are configuration errors and fail fast.
func (e *Engine) TryFill(order Order, bar market.Bar, equity, posQty float64) (*Fill, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if order.Qty <= 0 {
		return nil, nil
	}
	if order.Side == Sell && !e.cfg.AllowShort && posQty <= 0 {
		return nil, nil
	}

	trigger, ok := triggerPrice(order, bar)
	if !ok {
		return nil, nil
	}

	desired := order.Qty
	if order.Side == Sell {
		desired = -order.Qty
	}
	delta := e.constrain(equity, posQty, bar.Close, desired)
	if delta == 0 {
		return nil, nil
	}

	qty := math.Abs(delta)
	price := e.cost.FillPrice(order.Side, trigger, qty, bar)
	slipCost := math.Abs(price-trigger) * qty
	comm := e.cost.Commission(qty, price, bar)

	return &Fill{
		Time:         order.Time,
		Symbol:       order.Symbol,
		Side:         order.Side,
		Qty:          qty,
		Price:        price,
		Commission:   comm,
		SlippageCost: slipCost,
		Tag:          order.Tag,
	}, nil
}

// triggerPrice applies the bar trigger rules. The boolean is false when the
// order expires untriggered.
func triggerPrice(order Order, bar market.Bar) (float64, bool) {
	switch order.Type {
	case Market:
		return bar.Close, true

	case Limit:
		lp := order.LimitPrice
		if lp <= 0 || math.IsNaN(lp) {
			return 0, false
		}
		// Buy limit fills if low <= lp, sell limit if high >= lp.
		if order.Side == Buy && bar.Low <= lp {
			return lp, true
		}
		if order.Side == Sell && bar.High >= lp {
			return lp, true
		}

	case Stop:
		sp := order.StopPrice
		if sp <= 0 || math.IsNaN(sp) {
			return 0, false
		}
		// Buy stop triggers if high >= sp, sell stop if low <= sp.
		if order.Side == Buy && bar.High >= sp {
			return sp, true
		}
		if order.Side == Sell && bar.Low <= sp {
			return sp, true
		}
	}
	return 0, false
}

// constrain shrinks the signed delta so post-trade exposure stays under
// min(MaxPosPctEquity, MaxLeverage) * equity, preserving the sign. A cap
// already met or exceeded in the same direction zeroes the delta.
func (e *Engine) constrain(equity, posQty, price, desired float64) float64 {
	if equity <= 0 {
		return 0
	}

	proposed := math.Abs((posQty + desired) * price)
	cap := math.Min(e.cfg.MaxPosPctEquity, e.cfg.MaxLeverage) * equity
	if proposed <= cap+1e-9 {
		return desired
	}

	maxQty := cap / math.Max(price, 1e-12)
	allowed := maxQty - math.Abs(posQty)
	if allowed <= 0 {
		return 0
	}
	return math.Copysign(math.Min(math.Abs(desired), allowed), desired)
}
