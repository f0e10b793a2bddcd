package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/quantsim/exec"
	"github.com/rustyeddy/quantsim/portfolio"
)

// CSVJournal exports the equity curve and fill log as two CSV files, the
// shape downstream reporting and plotting tools expect. Run summary rows are
// not represented in this format; RecordRun is a no-op.
type CSVJournal struct {
	fills  *csv.Writer
	equity *csv.Writer
	ff, ef *os.File
}

func NewCSV(fillsPath, equityPath string) (*CSVJournal, error) {
	ff, err := os.Create(fillsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		ff.Close()
		return nil, err
	}

	fw := csv.NewWriter(ff)
	ew := csv.NewWriter(ef)

	if err := fw.Write([]string{"time", "symbol", "side", "qty", "price", "commission", "slippage_cost", "tag"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"time", "cash", "equity", "gross_qty", "realized_pnl", "max_drawdown"}); err != nil {
		return nil, err
	}

	fw.Flush()
	if err := fw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{fills: fw, equity: ew, ff: ff, ef: ef}, nil
}

func (j *CSVJournal) RecordRun(r RunRecord) error { return nil }

func (j *CSVJournal) RecordFill(runID string, fl exec.Fill) error {
	err := j.fills.Write([]string{
		fl.Time.Format(time.RFC3339),
		fl.Symbol,
		string(fl.Side),
		f(fl.Qty),
		f(fl.Price),
		f(fl.Commission),
		f(fl.SlippageCost),
		fl.Tag,
	})
	if err != nil {
		return err
	}
	j.fills.Flush()
	return j.fills.Error()
}

func (j *CSVJournal) RecordEquity(runID string, s portfolio.Snapshot) error {
	err := j.equity.Write([]string{
		s.Time.Format(time.RFC3339),
		f(s.Cash),
		f(s.Equity),
		f(s.GrossQty),
		f(s.RealizedPnL),
		f(s.MaxDrawdown),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	j.fills.Flush()
	if err := j.fills.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.ff.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
