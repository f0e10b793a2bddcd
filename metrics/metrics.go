// Package metrics derives return and risk statistics from a recorded equity
// curve and fill log.
package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/quantsim/exec"
	"github.com/rustyeddy/quantsim/portfolio"
)

// Metrics is the named-scalar summary of one simulation run. Ratio fields are
// NaN when undefined (zero variance, no closed trades); consumers must treat
// NaN as "no information", not zero.
type Metrics struct {
	StartEquity     float64
	EndEquity       float64
	TotalReturn     float64
	CAGR            float64
	Sharpe          float64
	Sortino         float64
	MaxDrawdown     float64
	Exposure        float64
	AvgHoldHours    float64
	NumFills        float64
	WinRate         float64
	TotalCommission float64
	TotalSlippage   float64
}

// Map renders the metrics as the named-scalar mapping exposed to reporting
// and scoring layers.
func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		"start_equity":        m.StartEquity,
		"end_equity":          m.EndEquity,
		"total_return":        m.TotalReturn,
		"cagr":                m.CAGR,
		"sharpe":              m.Sharpe,
		"sortino":             m.Sortino,
		"max_drawdown":        m.MaxDrawdown,
		"exposure":            m.Exposure,
		"avg_hold_hours":      m.AvgHoldHours,
		"num_fills":           m.NumFills,
		"approx_win_rate":     m.WinRate,
		"total_commission":    m.TotalCommission,
		"total_slippage_cost": m.TotalSlippage,
	}
}

// Compute derives the full metric set from the equity curve and fills of one
// run. An empty curve yields zero-valued metrics with NaN ratios.
func Compute(equity []portfolio.Snapshot, fills []exec.Fill) Metrics {
	m := Metrics{
		Sharpe:       math.NaN(),
		Sortino:      math.NaN(),
		WinRate:      math.NaN(),
		AvgHoldHours: math.NaN(),
		NumFills:     float64(len(fills)),
	}
	if len(equity) == 0 {
		return m
	}

	first, last := equity[0].Equity, equity[len(equity)-1].Equity
	m.StartEquity = first
	m.EndEquity = last
	if first != 0 {
		m.TotalReturn = last/first - 1.0
	} else {
		m.TotalReturn = math.NaN()
	}

	// CAGR over the elapsed wall-clock span in 365.25-day years.
	days := equity[len(equity)-1].Time.Sub(equity[0].Time).Hours() / 24
	years := math.Max(days/365.25, 1e-12)
	if first > 0 {
		m.CAGR = math.Pow(last/first, 1/years) - 1.0
	} else {
		m.CAGR = math.NaN()
	}

	rets := stepReturns(equity)
	ann := annualFactor(equity)

	mu, sd := meanStd(rets)
	if sd > 0 {
		m.Sharpe = mu / sd * math.Sqrt(ann)
	}

	var downside []float64
	for _, r := range rets {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if _, dsd := meanStd(downside); dsd > 0 {
		m.Sortino = mu / dsd * math.Sqrt(ann)
	}

	// Max drawdown recomputed from the curve itself rather than trusting the
	// ledger's running value; the two must agree.
	peak := equity[0].Equity
	for _, snap := range equity {
		if snap.Equity > peak {
			peak = snap.Equity
		}
		if peak > 0 {
			if dd := snap.Equity/peak - 1.0; dd < m.MaxDrawdown {
				m.MaxDrawdown = dd
			}
		}
	}

	inMarket := 0
	for _, snap := range equity {
		if snap.GrossQty > 0 {
			inMarket++
		}
	}
	m.Exposure = float64(inMarket) / float64(len(equity))

	m.AvgHoldHours = avgHoldHours(equity)
	m.WinRate = approxWinRate(equity)

	for _, f := range fills {
		m.TotalCommission += f.Commission
		m.TotalSlippage += f.SlippageCost
	}

	return m
}

// stepReturns is the per-step percent change of equity; the first step and
// any step off a zero base contribute 0.
func stepReturns(equity []portfolio.Snapshot) []float64 {
	rets := make([]float64, len(equity))
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev != 0 {
			rets[i] = equity[i].Equity/prev - 1.0
		}
	}
	return rets
}

// annualFactor infers the annualization factor from the median inter-bar
// spacing, assuming a 252-session year of 6.5 trading hours. Inconclusive
// spacing falls back to 252.
func annualFactor(equity []portfolio.Snapshot) float64 {
	const fallback = 252.0
	if len(equity) < 3 {
		return fallback
	}
	gaps := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		gaps = append(gaps, equity[i].Time.Sub(equity[i-1].Time).Seconds())
	}
	sort.Float64s(gaps)
	dt := gaps[len(gaps)/2]
	if dt <= 0 {
		return fallback
	}
	return (252 * 6.5 * 3600) / dt
}

func meanStd(vals []float64) (mean, std float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	// population std, matching how per-step return series are conventionally
	// annualized here
	std = math.Sqrt(ss / float64(len(vals)))
	return mean, std
}

// avgHoldHours pairs each flat-to-open transition with the next subsequent
// open-to-flat transition; un-closed trailing positions are ignored.
func avgHoldHours(equity []portfolio.Snapshot) float64 {
	var entries, exits []time.Time
	prev := 0.0
	for _, snap := range equity {
		if prev == 0 && snap.GrossQty != 0 {
			entries = append(entries, snap.Time)
		}
		if prev != 0 && snap.GrossQty == 0 {
			exits = append(exits, snap.Time)
		}
		prev = snap.GrossQty
	}

	var holds []float64
	j := 0
	for _, et := range entries {
		for j < len(exits) && !exits[j].After(et) {
			j++
		}
		if j == len(exits) {
			break
		}
		holds = append(holds, exits[j].Sub(et).Hours())
	}
	if len(holds) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, h := range holds {
		sum += h
	}
	return sum / float64(len(holds))
}

// approxWinRate classifies each flat-closing bar by the sign of its realized
// pnl delta. Zero-pnl closes count toward neither side.
func approxWinRate(equity []portfolio.Snapshot) float64 {
	wins, losses := 0, 0
	prevGross, prevRealized := 0.0, 0.0
	for i, snap := range equity {
		if i > 0 && prevGross != 0 && snap.GrossQty == 0 {
			delta := snap.RealizedPnL - prevRealized
			if delta > 0 {
				wins++
			} else if delta < 0 {
				losses++
			}
		}
		prevGross = snap.GrossQty
		prevRealized = snap.RealizedPnL
	}
	if wins+losses == 0 {
		return math.NaN()
	}
	return float64(wins) / float64(wins+losses)
}
