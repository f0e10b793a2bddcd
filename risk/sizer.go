// Package risk provides pluggable position-sizing policies.
package risk

import (
	"fmt"
	"math"

	"github.com/rustyeddy/quantsim/market"
)

// Sizer converts a bar plus current equity into an order quantity. A sizer
// must degrade to zero on bad inputs (non-positive equity or price, undefined
// ATR) rather than fail: a single bad bar must not abort a run.
type Sizer interface {
	Size(t market.Tick, equity float64) float64
}

// FixedFraction sizes each entry to a fixed fraction of equity in notional
// terms: qty = pct * equity / close.
type FixedFraction struct {
	Pct float64
}

// NewFixedFraction validates the fraction at construction.
func NewFixedFraction(pct float64) (FixedFraction, error) {
	if pct <= 0 {
		return FixedFraction{}, fmt.Errorf("risk: fixed fraction must be positive, got %v", pct)
	}
	return FixedFraction{Pct: pct}, nil
}

func (s FixedFraction) Size(t market.Tick, equity float64) float64 {
	px := t.Bar().Close
	if equity <= 0 || px <= 0 {
		return 0
	}
	return s.Pct * equity / px
}

// ATRRisk scales quantity so a stop placed ATRMult ATRs away risks RiskPct of
// equity: qty = riskPct * equity / (atrMult * ATR). It reads the "atr" column
// the strategy attached during Prepare.
type ATRRisk struct {
	RiskPct float64
	ATRMult float64
}

// NewATRRisk validates the parameters at construction.
func NewATRRisk(riskPct, atrMult float64) (ATRRisk, error) {
	if riskPct <= 0 {
		return ATRRisk{}, fmt.Errorf("risk: risk per trade must be positive, got %v", riskPct)
	}
	if atrMult <= 0 {
		return ATRRisk{}, fmt.Errorf("risk: atr multiple must be positive, got %v", atrMult)
	}
	return ATRRisk{RiskPct: riskPct, ATRMult: atrMult}, nil
}

func (s ATRRisk) Size(t market.Tick, equity float64) float64 {
	px := t.Bar().Close
	atr := t.Value("atr")
	if equity <= 0 || px <= 0 || math.IsNaN(atr) || atr <= 0 {
		return 0
	}
	stopDist := s.ATRMult * atr
	qty := s.RiskPct * equity / stopDist
	if qty < 0 {
		return 0
	}
	return qty
}
