package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantsim/config"
	"github.com/rustyeddy/quantsim/optimize"
)

var gaOpts struct {
	commonOpts
	popSize     int
	generations int
	elite       int
	mutation    float64
	seed        int64
	workers     int
}

var gaCmd = &cobra.Command{
	Use:   "ga",
	Short: "Genetic search over strategy parameters",
	Long: `Ga evolves a population of parameter vectors over a fixed number of
generations and prints the per-generation champions ranked by score.
Runs are deterministic for a given seed.

Example:
  quantsim ga --csv data/spy.csv --strategy trend --gens 12 --seed 7`,
	RunE: runGA,
}

func init() {
	rootCmd.AddCommand(gaCmd)
	gaOpts.addFlags(gaCmd)

	gaCmd.Flags().IntVar(&gaOpts.popSize, "pop", 25, "population size")
	gaCmd.Flags().IntVar(&gaOpts.generations, "gens", 12, "number of generations")
	gaCmd.Flags().IntVar(&gaOpts.elite, "elite", 5, "elites carried into each generation")
	gaCmd.Flags().Float64Var(&gaOpts.mutation, "mutation", 0.25, "per-parameter mutation rate")
	gaCmd.Flags().Int64Var(&gaOpts.seed, "seed", 7, "random seed")
	gaCmd.Flags().IntVar(&gaOpts.workers, "workers", 0, "parallel evaluations (0 = NumCPU)")
}

func runGA(cmd *cobra.Command, args []string) error {
	cfg, err := gaOpts.buildConfig()
	if err != nil {
		return err
	}

	set, err := loadSet(cfg)
	if err != nil {
		return err
	}

	space, err := searchSpace(cfg)
	if err != nil {
		return err
	}

	stratFn, sizerFn := factories(cfg)
	ev := &optimize.Evaluator{
		Runner:      newRunner(cfg),
		Set:         set,
		NewStrategy: stratFn,
		NewSizer:    sizerFn,
		Score:       optimize.DefaultScore,
		Workers:     gaOpts.workers,
	}

	history, err := ev.Genetic(space, optimize.GAOptions{
		PopSize:      gaOpts.popSize,
		Generations:  gaOpts.generations,
		Elite:        gaOpts.elite,
		MutationRate: gaOpts.mutation,
		Seed:         gaOpts.seed,
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n--- GENETIC SEARCH (%s, %d generations) ---\n", cfg.Strategy.Name, gaOpts.generations)
	printEvaluations(history, true)
	return nil
}

// searchSpace returns the built-in GA bounds for the configured strategy.
func searchSpace(cfg *config.Config) (optimize.Space, error) {
	switch cfg.Strategy.Name {
	case "trend", "trend-ema":
		s := optimize.Space{
			{Name: "fast", Min: 5, Max: 25, Int: true},
			{Name: "slow", Min: 26, Max: 100, Int: true},
			{Name: "atr_stop", Min: 1.5, Max: 4.0},
		}
		if cfg.Sizing.Name == "risk_atr" {
			s = append(s, optimize.Range{Name: "risk_per_trade", Min: 0.002, Max: 0.03})
		}
		return s, nil
	case "meanrev", "mean-reversion", "rsi":
		return optimize.Space{
			{Name: "buy_below", Min: 15, Max: 40},
			{Name: "sell_above", Min: 60, Max: 85},
			{Name: "stop_pct", Min: 0.01, Max: 0.06},
		}, nil
	default:
		return nil, fmt.Errorf("no built-in search space for strategy %q", cfg.Strategy.Name)
	}
}
