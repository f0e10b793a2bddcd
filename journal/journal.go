// Package journal persists simulation runs: one run row plus its fill log
// and equity curve, keyed by a time-sortable run ID.
package journal

import (
	"time"

	"github.com/rustyeddy/quantsim/backtest"
	"github.com/rustyeddy/quantsim/exec"
	"github.com/rustyeddy/quantsim/portfolio"
)

// RunRecord summarizes one completed simulation run.
type RunRecord struct {
	RunID       string
	Created     time.Time
	Symbols     string
	Strategy    string
	Sizer       string
	Params      []byte // JSON-encoded parameter vector
	InitialCash float64

	// headline results
	EndEquity   float64
	TotalReturn float64
	Sharpe      float64
	MaxDrawdown float64
	NumFills    int
}

// Journal records runs and their artifacts.
type Journal interface {
	RecordRun(RunRecord) error
	RecordFill(runID string, f exec.Fill) error
	RecordEquity(runID string, s portfolio.Snapshot) error
	Close() error
}

// RecordResult writes a full backtest result (fills then equity curve) under
// one run ID.
func RecordResult(j Journal, runID string, res *backtest.Result) error {
	for _, f := range res.Fills {
		if err := j.RecordFill(runID, f); err != nil {
			return err
		}
	}
	for _, s := range res.Equity {
		if err := j.RecordEquity(runID, s); err != nil {
			return err
		}
	}
	return nil
}
