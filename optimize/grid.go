package optimize

import "sort"

// Axis is one dimension of a grid: a parameter name and its enumerated
// values. Axes are ordered so the Cartesian product is deterministic.
type Axis struct {
	Name   string
	Values []float64
}

// Grid is an ordered set of axes.
type Grid []Axis

// combos expands the grid into its full Cartesian product.
func (g Grid) combos() []Params {
	out := []Params{{}}
	for _, ax := range g {
		next := make([]Params, 0, len(out)*len(ax.Values))
		for _, base := range out {
			for _, v := range ax.Values {
				p := base.Clone()
				p[ax.Name] = v
				next = append(next, p)
			}
		}
		out = next
	}
	return out
}

// GridSearch evaluates every combination of the grid, ranks descending by
// score, and returns the top k rows. Failed evaluations are skipped; they
// never abort the sweep.
func (ev *Evaluator) GridSearch(grid Grid, topK int) ([]Evaluation, error) {
	if err := ev.validate(); err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, nil
	}

	results := ev.evalAll(grid.combos())

	kept := results[:0]
	for _, r := range results {
		if r.Err == nil {
			kept = append(kept, r)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })

	if topK > 0 && len(kept) > topK {
		kept = kept[:topK]
	}
	return kept, nil
}
