package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quantsim",
	Short: "A bar-resolution strategy simulator and parameter optimizer",
	Long: `Quantsim simulates trading strategies against historical OHLC bars and
scores the results.

It provides tools for:
  - Backtesting with a bar-based execution model (market/limit/stop orders,
    slippage, commissions, exposure constraints)
  - Portfolio accounting with drawdown tracking and risk halts
  - Performance analytics (Sharpe, Sortino, CAGR, drawdown, exposure)
  - Parameter search via grid search and a genetic algorithm
  - Journaling equity curves and fills to SQLite or CSV`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
