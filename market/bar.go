// Package market holds OHLCV bars, per-symbol series and the unified
// timestamp clock that drives a simulation.
package market

import (
	"math"
	"sort"
	"time"
)

// Bar represents one OHLC(V) observation for a symbol at a timestamp.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is the bar history for a single symbol, sorted ascending by time
// with unique timestamps. Columns carries indicator/signal values aligned
// index-for-index with Bars; math.NaN marks warmup or undefined entries.
type Series struct {
	Symbol  string
	Bars    []Bar
	Columns map[string][]float64
}

// SetColumn attaches (or replaces) a named column. The slice must be aligned
// with Bars; shorter slices are padded with NaN.
func (s *Series) SetColumn(name string, vals []float64) {
	if s.Columns == nil {
		s.Columns = make(map[string][]float64)
	}
	if len(vals) < len(s.Bars) {
		padded := make([]float64, len(s.Bars))
		copy(padded, vals)
		for i := len(vals); i < len(padded); i++ {
			padded[i] = math.NaN()
		}
		vals = padded
	}
	s.Columns[name] = vals
}

// Column returns the value of a named column at index i, or NaN when the
// column is absent or not defined at i.
func (s *Series) Column(name string, i int) float64 {
	col, ok := s.Columns[name]
	if !ok || i < 0 || i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

// Closes returns the close column as a fresh slice.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Tick is one bar of a series together with its index, giving strategies
// access to the indicator columns prepared for that bar.
type Tick struct {
	Series *Series
	Index  int
}

// Bar returns the underlying bar.
func (t Tick) Bar() Bar { return t.Series.Bars[t.Index] }

// Symbol returns the owning series' symbol.
func (t Tick) Symbol() string { return t.Series.Symbol }

// Value returns the named column value at this tick (NaN when undefined).
func (t Tick) Value(name string) float64 { return t.Series.Column(name, t.Index) }

// Set is the full input universe, one series per symbol.
type Set map[string]*Series

// Clock returns the sorted union of all timestamps across the set. This is
// the master clock of a simulation; symbols may be absent at any given tick.
func (set Set) Clock() []time.Time {
	seen := make(map[int64]time.Time)
	for _, s := range set {
		for _, b := range s.Bars {
			seen[b.Time.UnixNano()] = b.Time
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, ts := range seen {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// cursorSet walks a Set along its clock without re-searching each series.
type cursorSet struct {
	set     Set
	cursors map[string]int
}

func newCursorSet(set Set) *cursorSet {
	return &cursorSet{set: set, cursors: make(map[string]int, len(set))}
}

// at advances the cursors to ts and returns the ticks available exactly at
// that instant. Symbols with no bar at ts are absent from the result.
func (c *cursorSet) at(ts time.Time) map[string]Tick {
	out := make(map[string]Tick)
	for sym, s := range c.set {
		i := c.cursors[sym]
		for i < len(s.Bars) && s.Bars[i].Time.Before(ts) {
			i++
		}
		c.cursors[sym] = i
		if i < len(s.Bars) && s.Bars[i].Time.Equal(ts) {
			out[sym] = Tick{Series: s, Index: i}
		}
	}
	return out
}

// Walk calls fn once per master-clock timestamp with the sparse tick set
// available at that instant, in ascending time order.
func (set Set) Walk(fn func(ts time.Time, ticks map[string]Tick) error) error {
	cs := newCursorSet(set)
	for _, ts := range set.Clock() {
		if err := fn(ts, cs.at(ts)); err != nil {
			return err
		}
	}
	return nil
}
