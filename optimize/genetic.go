package optimize

import (
	"fmt"
	"math/rand"
	"sort"
)

// Range declares one searchable parameter: bounds plus whether it is integer
// valued. Integer parameters are re-sampled wholesale on mutation; floats are
// nudged by a bounded fraction of their span.
type Range struct {
	Name string
	Min  float64
	Max  float64
	Int  bool
}

// Space is the ordered set of ranges the genetic algorithm samples.
type Space []Range

// GAOptions tunes the genetic algorithm. Zero values take the defaults used
// by the research scripts this grew out of.
type GAOptions struct {
	PopSize      int
	Generations  int
	Elite        int
	MutationRate float64
	Seed         int64
}

func (o GAOptions) withDefaults() GAOptions {
	if o.PopSize <= 0 {
		o.PopSize = 25
	}
	if o.Generations <= 0 {
		o.Generations = 12
	}
	if o.Elite <= 0 {
		o.Elite = 5
	}
	if o.MutationRate <= 0 {
		o.MutationRate = 0.25
	}
	if o.Seed == 0 {
		o.Seed = 7
	}
	return o
}

// gaFailScore makes failed evaluations lose against anything real while still
// participating in ranking.
const gaFailScore = -1e9

// Genetic runs a fixed-generation genetic search over space: uniform initial
// sampling, elite retention, uniform crossover between two random elites, and
// per-parameter mutation. It returns the best individual of each generation,
// ranked by (score, generation) descending.
func (ev *Evaluator) Genetic(space Space, opts GAOptions) ([]Evaluation, error) {
	if err := ev.validate(); err != nil {
		return nil, err
	}
	if len(space) == 0 {
		return nil, fmt.Errorf("optimize: genetic search space is empty")
	}
	for _, r := range space {
		if r.Max < r.Min {
			return nil, fmt.Errorf("optimize: range %s has max < min", r.Name)
		}
	}
	opts = opts.withDefaults()
	if opts.Elite > opts.PopSize {
		opts.Elite = opts.PopSize
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	sample := func() Params {
		p := make(Params, len(space))
		for _, r := range space {
			if r.Int {
				p[r.Name] = float64(intBetween(rng, int(r.Min), int(r.Max)))
			} else {
				p[r.Name] = r.Min + rng.Float64()*(r.Max-r.Min)
			}
		}
		return p
	}

	mutate := func(p Params) Params {
		q := p.Clone()
		for _, r := range space {
			if rng.Float64() >= opts.MutationRate {
				continue
			}
			if r.Int {
				q[r.Name] = float64(intBetween(rng, int(r.Min), int(r.Max)))
			} else {
				span := r.Max - r.Min
				v := q[r.Name] + (rng.Float64()*0.3-0.15)*span
				q[r.Name] = clamp(v, r.Min, r.Max)
			}
		}
		return q
	}

	crossover := func(a, b Params) Params {
		c := make(Params, len(space))
		for _, r := range space {
			if rng.Float64() < 0.5 {
				c[r.Name] = a[r.Name]
			} else {
				c[r.Name] = b[r.Name]
			}
		}
		return c
	}

	pop := make([]Params, opts.PopSize)
	for i := range pop {
		pop[i] = sample()
	}

	var history []Evaluation

	for gen := 0; gen < opts.Generations; gen++ {
		scored := ev.evalAll(pop)
		for i := range scored {
			if scored[i].Err != nil {
				scored[i].Score = gaFailScore
			}
			scored[i].Generation = gen
		}
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

		history = append(history, scored[0])

		elites := make([]Params, 0, opts.Elite)
		for i := 0; i < opts.Elite && i < len(scored); i++ {
			elites = append(elites, scored[i].Params)
		}

		next := make([]Params, 0, opts.PopSize)
		next = append(next, elites...)
		for len(next) < opts.PopSize {
			a := elites[rng.Intn(len(elites))]
			b := elites[rng.Intn(len(elites))]
			next = append(next, mutate(crossover(a, b)))
		}
		pop = next
	}

	sort.SliceStable(history, func(i, j int) bool {
		if history[i].Score != history[j].Score {
			return history[i].Score > history[j].Score
		}
		return history[i].Generation > history[j].Generation
	})
	return history, nil
}

func intBetween(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
