// Package optimize searches strategy-parameter space by repeatedly re-running
// the simulation loop and scoring each run. Evaluations are independent:
// every one builds a fresh portfolio, strategy and sizer, so they parallelize
// across a bounded worker pool with no shared mutable state beyond the
// read-only input bars.
package optimize

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/rustyeddy/quantsim/backtest"
	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/metrics"
	"github.com/rustyeddy/quantsim/risk"
	"github.com/rustyeddy/quantsim/strategies"
)

// Params is one point in parameter space. Integer-typed parameters are
// carried as floats and truncated by the factories.
type Params map[string]float64

// Clone returns an independent copy.
func (p Params) Clone() Params {
	q := make(Params, len(p))
	for k, v := range p {
		q[k] = v
	}
	return q
}

// StrategyFactory builds a strategy from a parameter vector; construction
// errors (invalid parameter relationships) fail that evaluation only.
type StrategyFactory func(Params) (strategies.Strategy, error)

// SizerFactory builds a sizer from a parameter vector.
type SizerFactory func(Params) (risk.Sizer, error)

// ScoreFunc reduces one run's metrics to a single comparable number.
type ScoreFunc func(metrics.Metrics) float64

// DefaultScore prefers Sharpe but penalizes deep drawdowns: beyond -25% the
// excess is charged at 10x. An undefined Sharpe scores -999 so degenerate
// configurations always lose.
func DefaultScore(m metrics.Metrics) float64 {
	sharpe := m.Sharpe
	if math.IsNaN(sharpe) {
		sharpe = -999.0
	}
	penalty := 0.0
	if m.MaxDrawdown < -0.25 {
		penalty = math.Abs(m.MaxDrawdown+0.25) * 10.0
	}
	return sharpe - penalty
}

// Evaluation is one scored run.
type Evaluation struct {
	Params     Params
	Metrics    metrics.Metrics
	Score      float64
	Generation int // genetic algorithm only

	// Err records an isolated evaluation failure; the sweep continues.
	Err error
}

// Evaluator treats one full simulation run as a black-box scoring function
// over a parameter vector.
type Evaluator struct {
	Runner      *backtest.Runner
	Set         market.Set
	NewStrategy StrategyFactory
	NewSizer    SizerFactory
	Score       ScoreFunc

	// Workers bounds the evaluation pool; 0 means runtime.NumCPU.
	Workers int
}

func (ev *Evaluator) validate() error {
	if ev.Runner == nil {
		return fmt.Errorf("optimize: runner is required")
	}
	if len(ev.Set) == 0 {
		return fmt.Errorf("optimize: input set is empty")
	}
	if ev.NewStrategy == nil || ev.NewSizer == nil {
		return fmt.Errorf("optimize: strategy and sizer factories are required")
	}
	if ev.Score == nil {
		return fmt.Errorf("optimize: score function is required")
	}
	return nil
}

// evalOne runs a single parameter vector. A panic inside one evaluation is
// converted to an error so one bad combination cannot abort the sweep.
func (ev *Evaluator) evalOne(p Params) (e Evaluation) {
	e = Evaluation{Params: p}
	defer func() {
		if r := recover(); r != nil {
			e.Err = fmt.Errorf("evaluation panic: %v", r)
		}
	}()

	strat, err := ev.NewStrategy(p)
	if err != nil {
		e.Err = err
		return e
	}
	sizer, err := ev.NewSizer(p)
	if err != nil {
		e.Err = err
		return e
	}

	res, err := ev.Runner.Run(ev.Set, strat, sizer)
	if err != nil {
		e.Err = err
		return e
	}

	e.Metrics = res.Metrics
	e.Score = ev.Score(res.Metrics)
	return e
}

// evalAll scores every vector across the worker pool, preserving input order.
func (ev *Evaluator) evalAll(vectors []Params) []Evaluation {
	workers := ev.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(vectors) {
		workers = len(vectors)
	}

	out := make([]Evaluation, len(vectors))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = ev.evalOne(vectors[i])
			}
		}()
	}
	for i := range vectors {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return out
}
