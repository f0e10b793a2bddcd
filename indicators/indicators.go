// Package indicators provides the technical-analysis columns strategies
// attach to a series during Prepare. Every function returns a slice aligned
// with its input; math.NaN marks warmup entries.
package indicators

import "math"

// SMA returns the simple moving average over n values.
func SMA(vals []float64, n int) []float64 {
	out := nans(len(vals))
	if n <= 0 || len(vals) < n {
		return out
	}
	sum := 0.0
	for i, v := range vals {
		sum += v
		if i >= n {
			sum -= vals[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA returns the span-n exponential moving average (alpha = 2/(n+1)),
// seeded recursively from the first value and reported only once n
// observations have been consumed.
func EMA(vals []float64, n int) []float64 {
	out := nans(len(vals))
	if n <= 0 || len(vals) == 0 {
		return out
	}
	alpha := 2.0 / float64(n+1)
	ema := vals[0]
	for i, v := range vals {
		if i > 0 {
			ema = alpha*v + (1-alpha)*ema
		}
		if i >= n-1 {
			out[i] = ema
		}
	}
	return out
}

// RSI returns the Wilder relative strength index of the close series.
func RSI(close []float64, n int) []float64 {
	out := nans(len(close))
	if n <= 0 || len(close) < 2 {
		return out
	}
	alpha := 1.0 / float64(n)
	var gain, loss float64
	for i := 1; i < len(close); i++ {
		d := close[i] - close[i-1]
		up, dn := 0.0, 0.0
		if d > 0 {
			up = d
		} else {
			dn = -d
		}
		if i == 1 {
			gain, loss = up, dn
		} else {
			gain = alpha*up + (1-alpha)*gain
			loss = alpha*dn + (1-alpha)*loss
		}
		if i < n {
			continue
		}
		if loss == 0 {
			out[i] = 100
			continue
		}
		rs := gain / loss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// TrueRange returns the per-bar true range. The first bar has no prior close,
// so its true range is simply high-low.
func TrueRange(high, low, close []float64) []float64 {
	out := nans(len(close))
	for i := range close {
		if i == 0 {
			out[i] = high[i] - low[i]
			continue
		}
		pc := close[i-1]
		tr := high[i] - low[i]
		tr = math.Max(tr, math.Abs(high[i]-pc))
		tr = math.Max(tr, math.Abs(low[i]-pc))
		out[i] = tr
	}
	return out
}

// ATR returns the Wilder-smoothed average true range (alpha = 1/n).
func ATR(high, low, close []float64, n int) []float64 {
	out := nans(len(close))
	if n <= 0 || len(close) == 0 {
		return out
	}
	tr := TrueRange(high, low, close)
	alpha := 1.0 / float64(n)
	atr := tr[0]
	for i := range tr {
		if i > 0 {
			atr = alpha*tr[i] + (1-alpha)*atr
		}
		if i >= n {
			out[i] = atr
		}
	}
	return out
}

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
