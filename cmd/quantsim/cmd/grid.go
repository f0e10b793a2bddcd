package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantsim/config"
	"github.com/rustyeddy/quantsim/optimize"
)

var gridOpts struct {
	commonOpts
	topK    int
	workers int
}

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Exhaustive grid search over strategy parameters",
	Long: `Grid evaluates every combination of a built-in parameter grid for the
selected strategy and prints the top results ranked by score.

Example:
  quantsim grid --csv data/spy.csv --strategy trend --top 10`,
	RunE: runGrid,
}

func init() {
	rootCmd.AddCommand(gridCmd)
	gridOpts.addFlags(gridCmd)

	gridCmd.Flags().IntVar(&gridOpts.topK, "top", 10, "number of rows to print")
	gridCmd.Flags().IntVar(&gridOpts.workers, "workers", 0, "parallel evaluations (0 = NumCPU)")
}

func runGrid(cmd *cobra.Command, args []string) error {
	cfg, err := gridOpts.buildConfig()
	if err != nil {
		return err
	}

	set, err := loadSet(cfg)
	if err != nil {
		return err
	}

	grid, err := starterGrid(cfg)
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
		Workers:     gridOpts.workers,
	}

	results, err := ev.GridSearch(grid, gridOpts.topK)
	if err != nil {
		return err
	}

	fmt.Printf("\n--- GRID SEARCH (%s, top %d) ---\n", cfg.Strategy.Name, gridOpts.topK)
	printEvaluations(results, false)
	return nil
}

// starterGrid returns the built-in search grid for the configured strategy.
func starterGrid(cfg *config.Config) (optimize.Grid, error) {
	switch cfg.Strategy.Name {
	case "trend", "trend-ema":
		g := optimize.Grid{
			{Name: "fast", Values: []float64{8, 12, 16}},
			{Name: "slow", Values: []float64{26, 40, 60}},
			{Name: "atr_stop", Values: []float64{2.0, 2.5, 3.0}},
		}
		if cfg.Sizing.Name == "risk_atr" {
			g = append(g, optimize.Axis{Name: "risk_per_trade", Values: []float64{0.005, 0.01, 0.02}})
		}
		return g, nil
	case "meanrev", "mean-reversion", "rsi":
		return optimize.Grid{
			{Name: "buy_below", Values: []float64{25, 30, 35}},
			{Name: "sell_above", Values: []float64{65, 70, 75}},
			{Name: "stop_pct", Values: []float64{0.02, 0.03, 0.04}},
		}, nil
	default:
		return nil, fmt.Errorf("no built-in grid for strategy %q", cfg.Strategy.Name)
	}
}
