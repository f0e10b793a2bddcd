package portfolio

import "time"

// Snapshot is one row of the equity curve, recorded after each simulated
// clock tick. It is the primary artifact the metrics layer consumes.
type Snapshot struct {
	Time        time.Time
	Cash        float64
	Equity      float64
	GrossQty    float64
	RealizedPnL float64
	MaxDrawdown float64

	// per-symbol position state at the tick
	Positions map[string]PositionState
}

// PositionState is the per-symbol slice of a Snapshot.
type PositionState struct {
	Qty      float64
	AvgPrice float64
	Mark     float64
}

// Snap captures the portfolio state at ts. Only non-flat positions are
// included in the per-symbol map.
func (pf *Portfolio) Snap(ts time.Time) Snapshot {
	snap := Snapshot{
		Time:        ts,
		Cash:        pf.Cash,
		Equity:      pf.Equity,
		GrossQty:    pf.GrossQty(),
		RealizedPnL: pf.RealizedPnL(),
		MaxDrawdown: pf.MaxDrawdown,
		Positions:   make(map[string]PositionState),
	}
	for sym, p := range pf.Positions {
		if p.Qty == 0 {
			continue
		}
		snap.Positions[sym] = PositionState{
			Qty:      p.Qty,
			AvgPrice: p.AvgPrice,
			Mark:     pf.lastPrice[sym],
		}
	}
	return snap
}
