package risk

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantsim/market"
)

func tickWithATR(close, atr float64) market.Tick {
	s := &market.Series{
		Symbol: "SPY",
		Bars: []market.Bar{{
			Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open: close, High: close + 1, Low: close - 1, Close: close,
		}},
	}
	s.SetColumn("atr", []float64{atr})
	return market.Tick{Series: s, Index: 0}
}

func TestFixedFraction(t *testing.T) {
	t.Parallel()
	s, err := NewFixedFraction(0.5)
	require.NoError(t, err)

	// 0.5 * 100k / 100 = 500 shares
	assert.InDelta(t, 500, s.Size(tickWithATR(100, 2), 100_000), 1e-9)

	assert.Zero(t, s.Size(tickWithATR(100, 2), 0))
	assert.Zero(t, s.Size(tickWithATR(100, 2), -1))
	assert.Zero(t, s.Size(tickWithATR(0, 2), 100_000))
}

func TestFixedFractionRejectsBadPct(t *testing.T) {
	t.Parallel()
	_, err := NewFixedFraction(0)
	assert.Error(t, err)
	_, err = NewFixedFraction(-0.1)
	assert.Error(t, err)
}

func TestATRRisk(t *testing.T) {
	t.Parallel()
	s, err := NewATRRisk(0.01, 2.5)
	require.NoError(t, err)

	// 0.01 * 100k / (2.5 * 2) = 200 shares
	assert.InDelta(t, 200, s.Size(tickWithATR(100, 2), 100_000), 1e-9)
}

func TestATRRiskDegradesToZero(t *testing.T) {
	t.Parallel()
	s, err := NewATRRisk(0.01, 2.5)
	require.NoError(t, err)

	assert.Zero(t, s.Size(tickWithATR(100, math.NaN()), 100_000))
	assert.Zero(t, s.Size(tickWithATR(100, 0), 100_000))
	assert.Zero(t, s.Size(tickWithATR(100, 2), 0))
	assert.Zero(t, s.Size(tickWithATR(0, 2), 100_000))
}

func TestATRRiskRejectsBadParams(t *testing.T) {
	t.Parallel()
	_, err := NewATRRisk(0, 2.5)
	assert.Error(t, err)
	_, err = NewATRRisk(0.01, 0)
	assert.Error(t, err)
}
