package strategies

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantsim/portfolio"
)

func TestByName(t *testing.T) {
	t.Parallel()

	s, err := ByName("noop", nil)
	require.NoError(t, err)
	assert.Equal(t, "noop", s.Name())

	s, err = ByName("Trend", nil)
	require.NoError(t, err)
	assert.Equal(t, "trend-ema", s.Name())

	s, err = ByName("meanrev", nil)
	require.NoError(t, err)
	assert.Equal(t, "meanrev-rsi", s.Name())

	_, err = ByName("momentum", nil)
	assert.Error(t, err)
}

func TestByNameAppliesParams(t *testing.T) {
	t.Parallel()
	s, err := ByName("trend", map[string]float64{"fast": 5, "slow": 50, "atr_stop": 3})
	require.NoError(t, err)

	te, ok := s.(*TrendEMA)
	require.True(t, ok)
	assert.Equal(t, 5, te.cfg.Fast)
	assert.Equal(t, 50, te.cfg.Slow)
	assert.InDelta(t, 3, te.cfg.ATRStop, 1e-9)
	// untouched params keep their defaults
	assert.Equal(t, 14, te.cfg.ATRPeriod)
}

func TestByNameRejectsInvalidParams(t *testing.T) {
	t.Parallel()
	_, err := ByName("trend", map[string]float64{"fast": 30, "slow": 20})
	assert.Error(t, err)

	_, err = ByName("meanrev", map[string]float64{"buy_below": 60, "exit_at": 50})
	assert.Error(t, err)
}

func TestContextState(t *testing.T) {
	t.Parallel()
	ctx := NewContext(portfolio.New(100_000), nil)

	st := ctx.State("SPY")
	assert.False(t, st.HasStop())
	assert.False(t, st.HasTake())

	st.Stop = 95
	st.Take = 110
	assert.True(t, st.HasStop())
	assert.True(t, st.HasTake())

	// same pointer comes back per symbol
	assert.Same(t, st, ctx.State("SPY"))
	assert.NotSame(t, st, ctx.State("QQQ"))

	st.Clear()
	assert.True(t, math.IsNaN(st.Stop))
	assert.False(t, st.HasStop())
}
