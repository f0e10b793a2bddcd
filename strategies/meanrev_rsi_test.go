package strategies

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantsim/exec"
	"github.com/rustyeddy/quantsim/market"
)

func TestMeanRevPrepareAttachesRSI(t *testing.T) {
	t.Parallel()
	strat, err := NewMeanReversionRSI(MeanRevConfigDefaults())
	require.NoError(t, err)

	s := &market.Series{Symbol: "SPY"}
	for i := 0; i < 30; i++ {
		c := 100 + float64(i%5)
		s.Bars = append(s.Bars, market.Bar{Open: c, High: c + 1, Low: c - 1, Close: c})
	}
	require.NoError(t, strat.Prepare(s))
	assert.Contains(t, s.Columns, "rsi")
	assert.Len(t, s.Columns["rsi"], 30)
}

func TestMeanRevLongEntryFromOversold(t *testing.T) {
	t.Parallel()
	strat, err := NewMeanReversionRSI(MeanRevConfigDefaults())
	require.NoError(t, err)

	ctx := newTrendCtx(10)
	tick := oneBarTick("SPY", 100, 101, 99, 100, map[string]float64{"rsi": 25})

	orders, err := strat.OnBar(ts0, map[string]market.Tick{"SPY": tick}, ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "MR_LONG", orders[0].Tag)
	assert.Equal(t, exec.Buy, orders[0].Side)
	assert.InDelta(t, 100*0.97, ctx.State("SPY").Stop, 1e-9)
}

func TestMeanRevShortEntryFromOverbought(t *testing.T) {
	t.Parallel()
	strat, err := NewMeanReversionRSI(MeanRevConfigDefaults())
	require.NoError(t, err)

	ctx := newTrendCtx(10)
	tick := oneBarTick("SPY", 100, 101, 99, 100, map[string]float64{"rsi": 75})

	orders, err := strat.OnBar(ts0, map[string]market.Tick{"SPY": tick}, ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "MR_SHORT", orders[0].Tag)
	assert.InDelta(t, 100*1.03, ctx.State("SPY").Stop, 1e-9)
}

func TestMeanRevNoEntryDuringWarmup(t *testing.T) {
	t.Parallel()
	strat, err := NewMeanReversionRSI(MeanRevConfigDefaults())
	require.NoError(t, err)

	ctx := newTrendCtx(10)
	tick := oneBarTick("SPY", 100, 101, 99, 100, map[string]float64{"rsi": math.NaN()})

	orders, err := strat.OnBar(ts0, map[string]market.Tick{"SPY": tick}, ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestMeanRevNoPyramiding(t *testing.T) {
	t.Parallel()
	strat, err := NewMeanReversionRSI(MeanRevConfigDefaults())
	require.NoError(t, err)

	ctx := newTrendCtx(10)
	ctx.Portfolio.Position("SPY").Qty = 5
	tick := oneBarTick("SPY", 100, 101, 99, 100, map[string]float64{"rsi": 20})

	orders, err := strat.OnBar(ts0, map[string]market.Tick{"SPY": tick}, ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestMeanRevReversionExits(t *testing.T) {
	t.Parallel()
	strat, err := NewMeanReversionRSI(MeanRevConfigDefaults())
	require.NoError(t, err)

	ctx := newTrendCtx(10)
	ctx.Portfolio.Position("SPY").Qty = 5
	tick := oneBarTick("SPY", 100, 101, 99, 100, map[string]float64{"rsi": 55})

	orders, err := strat.OnBar(ts0, map[string]market.Tick{"SPY": tick}, ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "MR_EXIT_LONG", orders[0].Tag)

	ctx2 := newTrendCtx(10)
	ctx2.Portfolio.Position("SPY").Qty = -5
	tick = oneBarTick("SPY", 100, 101, 99, 100, map[string]float64{"rsi": 45})

	orders, err = strat.OnBar(ts0, map[string]market.Tick{"SPY": tick}, ctx2)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "MR_EXIT_SHORT", orders[0].Tag)
}

func TestMeanRevStopBeforeEverything(t *testing.T) {
	t.Parallel()
	strat, err := NewMeanReversionRSI(MeanRevConfigDefaults())
	require.NoError(t, err)

	ctx := newTrendCtx(10)
	ctx.Portfolio.Position("SPY").Qty = 5
	ctx.State("SPY").Stop = 95

	// low trades through the stop while RSI also says exit; stop wins alone
	tick := oneBarTick("SPY", 96, 97, 94, 96, map[string]float64{"rsi": 60})
	orders, err := strat.OnBar(ts0, map[string]market.Tick{"SPY": tick}, ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "STOP_LONG", orders[0].Tag)
}

func TestMeanRevValidation(t *testing.T) {
	t.Parallel()
	_, err := NewMeanReversionRSI(MeanRevConfig{RSIPeriod: 14, BuyBelow: 60, SellAbove: 70, ExitAt: 50, StopPct: 0.03})
	assert.Error(t, err)

	_, err = NewMeanReversionRSI(MeanRevConfig{RSIPeriod: 0, BuyBelow: 30, SellAbove: 70, ExitAt: 50, StopPct: 0.03})
	assert.Error(t, err)

	_, err = NewMeanReversionRSI(MeanRevConfig{RSIPeriod: 14, BuyBelow: 30, SellAbove: 70, ExitAt: 50, StopPct: 0})
	assert.Error(t, err)
}
