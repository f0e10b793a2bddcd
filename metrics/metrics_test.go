package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantsim/exec"
	"github.com/rustyeddy/quantsim/portfolio"
)

func dailyCurve(equities []float64, gross []float64, realized []float64) []portfolio.Snapshot {
	start := time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC)
	out := make([]portfolio.Snapshot, len(equities))
	for i := range equities {
		snap := portfolio.Snapshot{
			Time:   start.AddDate(0, 0, i),
			Equity: equities[i],
		}
		if gross != nil {
			snap.GrossQty = gross[i]
		}
		if realized != nil {
			snap.RealizedPnL = realized[i]
		}
		out[i] = snap
	}
	return out
}

func TestEmptyCurve(t *testing.T) {
	t.Parallel()
	m := Compute(nil, nil)

	assert.Zero(t, m.StartEquity)
	assert.Zero(t, m.EndEquity)
	assert.True(t, math.IsNaN(m.Sharpe))
	assert.True(t, math.IsNaN(m.Sortino))
	assert.True(t, math.IsNaN(m.WinRate))
	assert.True(t, math.IsNaN(m.AvgHoldHours))
}

func TestTotalReturnAndDrawdown(t *testing.T) {
	t.Parallel()
	curve := dailyCurve([]float64{100_000, 110_000, 99_000, 104_500}, nil, nil)
	m := Compute(curve, nil)

	assert.InDelta(t, 100_000, m.StartEquity, 1e-9)
	assert.InDelta(t, 104_500, m.EndEquity, 1e-9)
	assert.InDelta(t, 0.045, m.TotalReturn, 1e-9)
	// worst point: 99k off the 110k peak
	assert.InDelta(t, 99_000.0/110_000.0-1.0, m.MaxDrawdown, 1e-9)
}

func TestFlatCurveHasNaNRatios(t *testing.T) {
	t.Parallel()
	curve := dailyCurve([]float64{100_000, 100_000, 100_000, 100_000}, nil, nil)
	m := Compute(curve, nil)

	// zero variance: Sharpe and Sortino undefined, never zero
	assert.True(t, math.IsNaN(m.Sharpe))
	assert.True(t, math.IsNaN(m.Sortino))
	assert.InDelta(t, 0, m.TotalReturn, 1e-9)
	assert.InDelta(t, 0, m.MaxDrawdown, 1e-9)
}

func TestMonotoneUpCurveHasPositiveSharpeNaNSortino(t *testing.T) {
	t.Parallel()
	eq := make([]float64, 30)
	for i := range eq {
		eq[i] = 100_000 * math.Pow(1.001, float64(i)) * (1 + 0.0001*float64(i%3))
	}
	m := Compute(dailyCurve(eq, nil, nil), nil)

	assert.Greater(t, m.Sharpe, 0.0)
	// no negative steps: downside deviation undefined
	assert.True(t, math.IsNaN(m.Sortino))
	assert.Greater(t, m.CAGR, 0.0)
}

func TestExposureAndHoldTimes(t *testing.T) {
	t.Parallel()
	eq := []float64{100, 100, 100, 100, 100, 100}
	gross := []float64{0, 10, 10, 0, 5, 0}
	m := Compute(dailyCurve(eq, gross, nil), nil)

	assert.InDelta(t, 3.0/6.0, m.Exposure, 1e-9)
	// two round trips of 2 days and 1 day
	assert.InDelta(t, (48.0+24.0)/2.0, m.AvgHoldHours, 1e-9)
}

func TestApproxWinRate(t *testing.T) {
	t.Parallel()
	eq := []float64{100, 100, 100, 100, 100, 100, 100}
	gross := []float64{0, 10, 0, 5, 0, 3, 0}
	realized := []float64{0, 0, 50, 50, 20, 20, 20}
	m := Compute(dailyCurve(eq, gross, realized), nil)

	// first close +50 wins, second -30 loses, third +0 is discarded
	assert.InDelta(t, 0.5, m.WinRate, 1e-9)
}

func TestCostTotalsFromFills(t *testing.T) {
	t.Parallel()
	fills := []exec.Fill{
		{Commission: 1.5, SlippageCost: 0.2},
		{Commission: 2.5, SlippageCost: 0.3},
	}
	m := Compute(dailyCurve([]float64{100, 101}, nil, nil), fills)

	assert.InDelta(t, 4.0, m.TotalCommission, 1e-9)
	assert.InDelta(t, 0.5, m.TotalSlippage, 1e-9)
	assert.InDelta(t, 2, m.NumFills, 1e-9)
}

func TestAnnualFactorFromSpacing(t *testing.T) {
	t.Parallel()
	// hourly bars: (252*6.5*3600)/3600 = 1638 periods per year
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	curve := make([]portfolio.Snapshot, 10)
	for i := range curve {
		curve[i] = portfolio.Snapshot{Time: start.Add(time.Duration(i) * time.Hour), Equity: 100}
	}
	assert.InDelta(t, 252*6.5, annualFactor(curve), 1e-9)

	// too few points falls back to 252
	assert.InDelta(t, 252, annualFactor(curve[:2]), 1e-9)
}

func TestMapKeys(t *testing.T) {
	t.Parallel()
	m := Compute(dailyCurve([]float64{100, 110}, nil, nil), nil)
	vals := m.Map()

	for _, k := range []string{
		"start_equity", "end_equity", "total_return", "cagr", "sharpe", "sortino",
		"max_drawdown", "exposure", "avg_hold_hours", "num_fills",
		"approx_win_rate", "total_commission", "total_slippage_cost",
	} {
		_, ok := vals[k]
		require.True(t, ok, "missing key %s", k)
	}
	assert.InDelta(t, 0.1, vals["total_return"], 1e-9)
}
