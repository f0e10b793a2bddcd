package exec

import (
	"math"

	"github.com/rustyeddy/quantsim/market"
)

// CostModel prices the friction of a trade. The simulation loop is agnostic
// to which model is plugged in; it only sees the resulting fill.
type CostModel interface {
	// FillPrice moves the reference price against the trader: buys pay up,
	// sells receive down.
	FillPrice(side Side, ref, qty float64, bar market.Bar) float64

	// Commission returns the total fee charged for the trade.
	Commission(qty, price float64, bar market.Bar) float64
}

// BpsCost is the flat basis-point model: slippage as bps of the reference
// price, commission as a per-trade fee plus bps of notional.
type BpsCost struct {
	PerTrade      float64
	CommissionBps float64
	SlippageBps   float64
}

func (c BpsCost) FillPrice(side Side, ref, qty float64, bar market.Bar) float64 {
	slip := c.SlippageBps / 10000.0
	if side == Buy {
		return ref * (1 + slip)
	}
	return ref * (1 - slip)
}

func (c BpsCost) Commission(qty, price float64, bar market.Bar) float64 {
	return c.PerTrade + (c.CommissionBps/10000.0)*math.Abs(price*qty)
}

// ADVFunc supplies an average-daily-volume estimate for a bar. ADV is an
// injected external signal; DefaultADV is a crude placeholder that scales the
// current bar's volume and should be replaced by a real liquidity feed.
type ADVFunc func(bar market.Bar) float64

// DefaultADV treats one bar's volume times a fixed multiple as the day's
// volume. Placeholder policy, not a validated model.
func DefaultADV(multiple float64) ADVFunc {
	return func(bar market.Bar) float64 {
		return bar.Volume * multiple
	}
}

// ImpactCost scales commission with participation rate (qty/ADV)^alpha and
// charges a spread cost proportional to notional. Slippage on the fill price
// itself stays spread-based.
type ImpactCost struct {
	SpreadBps   float64
	ImpactK     float64
	ImpactAlpha float64
	ADV         ADVFunc
}

func (c ImpactCost) FillPrice(side Side, ref, qty float64, bar market.Bar) float64 {
	slip := c.SpreadBps / 2 / 10000.0 // pay half the spread on entry
	if side == Buy {
		return ref * (1 + slip)
	}
	return ref * (1 - slip)
}

func (c ImpactCost) Commission(qty, price float64, bar market.Bar) float64 {
	notional := math.Abs(price * qty)
	cost := (c.SpreadBps / 10000.0) * notional

	adv := 0.0
	if c.ADV != nil {
		adv = c.ADV(bar)
	}
	if adv > 0 && qty > 0 {
		participation := qty / adv
		cost += c.ImpactK * math.Pow(participation, c.ImpactAlpha) * notional
	}
	return cost
}
