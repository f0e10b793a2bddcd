package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	t.Parallel()
	vals := []float64{1, 2, 3, 4, 5, 6}
	out := SMA(vals, 3)

	require.Len(t, out, 6)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2, out[2], 1e-9)
	assert.InDelta(t, 3, out[3], 1e-9)
	assert.InDelta(t, 5, out[5], 1e-9)
}

func TestSMAShortInput(t *testing.T) {
	t.Parallel()
	out := SMA([]float64{1, 2}, 5)
	for _, v := range out {
		assert.True(t, math.IsNaN(v))
	}
}

func TestEMAWarmupAndConvergence(t *testing.T) {
	t.Parallel()
	vals := make([]float64, 50)
	for i := range vals {
		vals[i] = 10
	}
	out := EMA(vals, 5)

	assert.True(t, math.IsNaN(out[3]))
	assert.False(t, math.IsNaN(out[4]))
	// constant input: EMA equals the input everywhere it is defined
	assert.InDelta(t, 10, out[4], 1e-9)
	assert.InDelta(t, 10, out[49], 1e-9)
}

func TestEMATracksTrend(t *testing.T) {
	t.Parallel()
	vals := make([]float64, 40)
	for i := range vals {
		vals[i] = float64(i)
	}
	fast := EMA(vals, 5)
	slow := EMA(vals, 20)

	// in a steady uptrend the faster average sits above the slower one
	assert.Greater(t, fast[39], slow[39])
	assert.Less(t, fast[39], vals[39])
}

func TestRSIBounds(t *testing.T) {
	t.Parallel()
	up := make([]float64, 30)
	for i := range up {
		up[i] = 100 + float64(i)
	}
	out := RSI(up, 14)

	assert.True(t, math.IsNaN(out[13]))
	// all gains, no losses
	assert.InDelta(t, 100, out[29], 1e-9)

	down := make([]float64, 30)
	for i := range down {
		down[i] = 100 - float64(i)
	}
	out = RSI(down, 14)
	assert.InDelta(t, 0, out[29], 1e-9)
}

func TestRSIMidrange(t *testing.T) {
	t.Parallel()
	vals := make([]float64, 60)
	for i := range vals {
		if i%2 == 0 {
			vals[i] = 100
		} else {
			vals[i] = 101
		}
	}
	out := RSI(vals, 14)
	v := out[59]
	require.False(t, math.IsNaN(v))
	assert.Greater(t, v, 30.0)
	assert.Less(t, v, 70.0)
}

func TestTrueRangeUsesPriorClose(t *testing.T) {
	t.Parallel()
	high := []float64{10, 12}
	low := []float64{8, 11}
	close := []float64{9, 11.5}

	out := TrueRange(high, low, close)
	assert.InDelta(t, 2, out[0], 1e-9)
	// gap up: high-prevClose (3) dominates high-low (1)
	assert.InDelta(t, 3, out[1], 1e-9)
}

func TestATRWarmupAndValue(t *testing.T) {
	t.Parallel()
	n := 5
	high := make([]float64, 20)
	low := make([]float64, 20)
	close := make([]float64, 20)
	for i := range high {
		high[i] = 102
		low[i] = 100
		close[i] = 101
	}
	out := ATR(high, low, close, n)

	assert.True(t, math.IsNaN(out[n-1]))
	require.False(t, math.IsNaN(out[n]))
	// constant 2-point range converges to 2
	assert.InDelta(t, 2, out[19], 1e-6)
}
