package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/quantsim/exec"
	"github.com/rustyeddy/quantsim/portfolio"
)

// SQLiteJournal persists runs to a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and ensures the schema.
func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, created, symbols, strategy, sizer, params, initial_cash,
		 end_equity, total_return, sharpe, max_drawdown, num_fills)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Symbols, r.Strategy, r.Sizer, string(r.Params),
		r.InitialCash, r.EndEquity, r.TotalReturn, r.Sharpe, r.MaxDrawdown, r.NumFills,
	)
	return err
}

func (j *SQLiteJournal) RecordFill(runID string, f exec.Fill) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(run_id, time, symbol, side, qty, price, commission, slippage_cost, tag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, f.Time, f.Symbol, string(f.Side), f.Qty, f.Price, f.Commission, f.SlippageCost, f.Tag,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(runID string, s portfolio.Snapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, time, cash, equity, gross_qty, realized_pnl, max_drawdown)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, s.Time, s.Cash, s.Equity, s.GrossQty, s.RealizedPnL, s.MaxDrawdown,
	)
	return err
}

// ListFills returns the fill log of a run in time order.
func (j *SQLiteJournal) ListFills(runID string) ([]exec.Fill, error) {
	rows, err := j.db.Query(`
		SELECT time, symbol, side, qty, price, commission, slippage_cost, tag
		FROM fills WHERE run_id = ? ORDER BY time`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []exec.Fill
	for rows.Next() {
		var f exec.Fill
		var side string
		if err := rows.Scan(&f.Time, &f.Symbol, &side, &f.Qty, &f.Price, &f.Commission, &f.SlippageCost, &f.Tag); err != nil {
			return nil, err
		}
		f.Side = exec.Side(side)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
