package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantsim/backtest"
	"github.com/rustyeddy/quantsim/config"
	"github.com/rustyeddy/quantsim/journal"
	"github.com/rustyeddy/quantsim/pkg/id"
	"github.com/rustyeddy/quantsim/strategies"
)

var runOpts struct {
	commonOpts
	dbPath    string
	outFills  string
	outEquity string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single backtest and print its metrics",
	Long: `Run simulates one strategy over the configured datasets and prints the
resulting metrics. The equity curve and fill log can be journaled to SQLite
and/or exported as CSV.

Example:
  quantsim run --csv data/spy.csv --strategy trend --fast 12 --slow 26 --max-dd-halt=-0.2`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runOpts.addFlags(runCmd)

	runCmd.Flags().StringVarP(&runOpts.dbPath, "db", "d", "", "journal run to this SQLite database")
	runCmd.Flags().StringVar(&runOpts.outFills, "out-fills", "", "export fills to this CSV file")
	runCmd.Flags().StringVar(&runOpts.outEquity, "out-equity", "", "export equity curve to this CSV file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := runOpts.buildConfig()
	if err != nil {
		return err
	}
	applyJournalFlags(cfg)

	set, err := loadSet(cfg)
	if err != nil {
		return err
	}

	strat, err := strategies.ByName(cfg.Strategy.Name, cfg.Strategy.Params)
	if err != nil {
		return err
	}

	sizer, err := newSizer(cfg)
	if err != nil {
		return err
	}

	runner := newRunner(cfg)
	res, err := runner.Run(set, strat, sizer)
	if err != nil {
		return err
	}

	fmt.Println("\n--- METRICS ---")
	printMetrics(res.Metrics)

	return journalResult(cfg, strat.Name(), res)
}

// applyJournalFlags lets run flags override the config journal section.
func applyJournalFlags(cfg *config.Config) {
	if runOpts.dbPath != "" {
		cfg.Journal = config.JournalConfig{Type: "sqlite", DBPath: runOpts.dbPath}
	} else if runOpts.outFills != "" && runOpts.outEquity != "" {
		cfg.Journal = config.JournalConfig{
			Type:       "csv",
			FillsFile:  runOpts.outFills,
			EquityFile: runOpts.outEquity,
		}
	}
}

func journalResult(cfg *config.Config, stratName string, res *backtest.Result) error {
	var j journal.Journal
	var err error

	switch cfg.Journal.Type {
	case "none", "":
		return nil
	case "sqlite":
		j, err = journal.NewSQLite(cfg.Journal.DBPath)
	case "csv":
		j, err = journal.NewCSV(cfg.Journal.FillsFile, cfg.Journal.EquityFile)
	}
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	runID := id.New()
	params, _ := json.Marshal(cfg.Strategy.Params)

	symbols := make([]string, 0, len(cfg.Data))
	for _, d := range cfg.Data {
		symbols = append(symbols, d.Symbol)
	}
	sort.Strings(symbols)

	if err := j.RecordRun(journal.RunRecord{
		RunID:       runID,
		Created:     time.Now().UTC(),
		Symbols:     strings.Join(symbols, ","),
		Strategy:    stratName,
		Sizer:       cfg.Sizing.Name,
		Params:      params,
		InitialCash: cfg.Backtest.InitialCash,
		EndEquity:   res.Metrics.EndEquity,
		TotalReturn: res.Metrics.TotalReturn,
		Sharpe:      res.Metrics.Sharpe,
		MaxDrawdown: res.Metrics.MaxDrawdown,
		NumFills:    len(res.Fills),
	}); err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	if err := journal.RecordResult(j, runID, res); err != nil {
		return fmt.Errorf("record result: %w", err)
	}

	fmt.Printf("\nJournaled run %s (%d fills, %d equity rows)\n", runID, len(res.Fills), len(res.Equity))
	return nil
}
