// Package portfolio owns cash and per-symbol position state for one
// simulation run. A fresh Portfolio exists per run and is never shared.
package portfolio

import (
	"time"

	"github.com/rustyeddy/quantsim/exec"
)

// Position tracks one symbol using weighted-average-cost accounting.
// Qty is signed: positive long, negative short. AvgPrice is meaningful only
// while Qty != 0; a flat position always has AvgPrice 0 and no EntryTime.
type Position struct {
	Qty         float64
	AvgPrice    float64
	RealizedPnL float64
	EntryTime   time.Time
}

// Flat reports whether the position is exactly zero.
func (p *Position) Flat() bool { return p.Qty == 0 }

// Portfolio is the ledger: cash, positions, equity and drawdown tracking.
type Portfolio struct {
	Cash        float64
	Positions   map[string]*Position
	Equity      float64
	PeakEquity  float64
	MaxDrawdown float64

	// last observed close per symbol, carried forward when a symbol has no
	// bar at the current clock tick
	lastPrice map[string]float64
}

// New creates a portfolio with the given starting cash.
func New(initialCash float64) *Portfolio {
	return &Portfolio{
		Cash:      initialCash,
		Positions: make(map[string]*Position),
		lastPrice: make(map[string]float64),
	}
}

// Position returns the tracked position for symbol, creating it when absent.
func (pf *Portfolio) Position(symbol string) *Position {
	p, ok := pf.Positions[symbol]
	if !ok {
		p = &Position{}
		pf.Positions[symbol] = p
	}
	return p
}

// Mark recomputes equity from cash plus the mark-to-market of all positions.
// prices holds the closes available at this tick; symbols absent from it are
// marked at their last observed price. Peak equity and max drawdown update
// here and nowhere else; max drawdown only ever moves more negative.
func (pf *Portfolio) Mark(prices map[string]float64) {
	for sym, px := range prices {
		pf.lastPrice[sym] = px
	}

	equity := pf.Cash
	for sym, p := range pf.Positions {
		if p.Qty == 0 {
			continue
		}
		px, ok := pf.lastPrice[sym]
		if !ok {
			// never priced; position can only have come from a fill, whose
			// price was recorded, so this is unreachable in practice
			px = p.AvgPrice
		}
		equity += p.Qty * px
	}
	pf.Equity = equity

	if pf.PeakEquity == 0 {
		pf.PeakEquity = equity
	}
	if equity > pf.PeakEquity {
		pf.PeakEquity = equity
	}
	if pf.PeakEquity > 0 {
		dd := equity/pf.PeakEquity - 1.0
		if dd < pf.MaxDrawdown {
			pf.MaxDrawdown = dd
		}
	}
}

// LastPrice returns the last observed close for symbol.
func (pf *Portfolio) LastPrice(symbol string) (float64, bool) {
	px, ok := pf.lastPrice[symbol]
	return px, ok
}

// ApplyFill updates cash and the symbol's position. A buy first covers any
// existing short (realizing pnl against the average price), then opens or
// extends a long at a blended average; a sell is the mirror image.
// Commission is apportioned pro-rata by quantity between the covering and
// opening legs.
func (pf *Portfolio) ApplyFill(f exec.Fill) {
	p := pf.Position(f.Symbol)
	qty, px, fees := f.Qty, f.Price, f.Commission

	switch f.Side {
	case exec.Buy:
		if p.Qty < 0 {
			cover := qty
			if short := -p.Qty; short < cover {
				cover = short
			}
			p.RealizedPnL += (p.AvgPrice - px) * cover
			p.Qty += cover
			pf.Cash -= px*cover + fees*(cover/qty)

			if p.Qty == 0 {
				p.AvgPrice = 0
				p.EntryTime = time.Time{}
			}

			if rem := qty - cover; rem > 0 {
				if p.Qty == 0 {
					p.EntryTime = f.Time
				}
				newQty := p.Qty + rem
				p.AvgPrice = blend(p.AvgPrice, p.Qty, px, rem, newQty)
				p.Qty = newQty
				pf.Cash -= px*rem + fees*(rem/qty)
			}
		} else {
			if p.Qty == 0 {
				p.EntryTime = f.Time
			}
			newQty := p.Qty + qty
			p.AvgPrice = blend(p.AvgPrice, p.Qty, px, qty, newQty)
			p.Qty = newQty
			pf.Cash -= px*qty + fees
		}

	case exec.Sell:
		if p.Qty > 0 {
			sold := qty
			if p.Qty < sold {
				sold = p.Qty
			}
			p.RealizedPnL += (px - p.AvgPrice) * sold
			p.Qty -= sold
			pf.Cash += px*sold - fees*(sold/qty)

			if p.Qty == 0 {
				p.AvgPrice = 0
				p.EntryTime = time.Time{}
			}

			if rem := qty - sold; rem > 0 {
				if p.Qty == 0 {
					p.EntryTime = f.Time
					p.AvgPrice = px
					p.Qty = -rem
				} else {
					tot := -p.Qty + rem
					p.AvgPrice = blend(p.AvgPrice, -p.Qty, px, rem, tot)
					p.Qty -= rem
				}
				pf.Cash += px*rem - fees*(rem/qty)
			}
		} else {
			if p.Qty == 0 {
				p.EntryTime = f.Time
			}
			tot := -p.Qty + qty
			p.AvgPrice = blend(p.AvgPrice, -p.Qty, px, qty, tot)
			p.Qty -= qty
			pf.Cash += px*qty - fees
		}
	}
}

// blend computes the weighted-average entry price of oldQty lots at oldAvg
// merged with addQty lots at addPx. A zero total cannot divide; the add price
// is returned for bookkeeping, though the value is moot with no position.
func blend(oldAvg, oldQty, addPx, addQty, total float64) float64 {
	if total == 0 {
		return addPx
	}
	return (oldAvg*oldQty + addPx*addQty) / total
}

// RealizedPnL sums realized pnl across all symbols.
func (pf *Portfolio) RealizedPnL() float64 {
	var sum float64
	for _, p := range pf.Positions {
		sum += p.RealizedPnL
	}
	return sum
}

// GrossQty sums |qty| across all symbols; zero means the book is flat.
func (pf *Portfolio) GrossQty() float64 {
	var sum float64
	for _, p := range pf.Positions {
		if p.Qty < 0 {
			sum -= p.Qty
		} else {
			sum += p.Qty
		}
	}
	return sum
}
