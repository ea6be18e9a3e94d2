package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const dateLayout = "2006-01-02"

type SQLiteJournal struct {
	db *sql.DB
}

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

func (j *SQLiteJournal) RecordOrder(o OrderRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO orders
		(run_id, ticket, date, symbol, strategy, action, quantity, type, status, price, total_cost, commissions, margin, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.Ticket, o.Date.Format(dateLayout), o.Symbol, o.Strategy, o.Action,
		o.Quantity, o.Type, o.Status, o.Price, o.TotalCost, o.Commissions, o.Margin, o.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, date, cash, buying_power, nlv, commissions, positions, working)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Date.Format(dateLayout), e.Cash, e.BuyingPower, e.NetLiquidatingValue,
		e.Commissions, e.Positions, e.Working,
	)
	return err
}

func (j *SQLiteJournal) RecordRun(r BacktestRun) error {
	created := r.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO backtest_runs
		(run_id, created, dataset, symbols, strategy, config, start_date, end_date, ticks, orders, fills,
		 rejections, expirations, settlements, start_balance, end_balance, commissions, net_pl, return_pct, max_dd_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, created.Format(time.RFC3339), r.Dataset, r.Symbols, r.Strategy, r.Config,
		r.Start.Format(dateLayout), r.End.Format(dateLayout), r.Ticks, r.Orders, r.Fills,
		r.Rejections, r.Expirations, r.Settlements, r.StartBalance, r.EndBalance, r.Commissions,
		r.NetPL, r.ReturnPct, r.MaxDDPct,
	)
	if err != nil || r.OrgPath == "" {
		return err
	}

	report, err := j.ExportBacktestOrg(context.Background(), r.RunID)
	if err != nil {
		return err
	}
	return os.WriteFile(r.OrgPath, []byte(report), 0644)
}

// GetBacktestRun loads one run summary.
func (j *SQLiteJournal) GetBacktestRun(ctx context.Context, runID string) (BacktestRun, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT run_id, created, dataset, symbols, strategy, config, start_date, end_date, ticks, orders, fills,
		       rejections, expirations, settlements, start_balance, end_balance, commissions, net_pl, return_pct, max_dd_pct
		FROM backtest_runs WHERE run_id = ?`, runID)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return BacktestRun{}, fmt.Errorf("run %q not found", runID)
	}
	return r, err
}

// ListRuns returns run summaries, newest first.
func (j *SQLiteJournal) ListRuns(ctx context.Context, limit int) ([]BacktestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, created, dataset, symbols, strategy, config, start_date, end_date, ticks, orders, fills,
		       rejections, expirations, settlements, start_balance, end_balance, commissions, net_pl, return_pct, max_dd_pct
		FROM backtest_runs ORDER BY run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BacktestRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (BacktestRun, error) {
	var (
		r                   BacktestRun
		created, start, end string
	)
	err := s.Scan(&r.RunID, &created, &r.Dataset, &r.Symbols, &r.Strategy, &r.Config, &start, &end,
		&r.Ticks, &r.Orders, &r.Fills, &r.Rejections, &r.Expirations, &r.Settlements,
		&r.StartBalance, &r.EndBalance, &r.Commissions, &r.NetPL, &r.ReturnPct, &r.MaxDDPct)
	if err != nil {
		return BacktestRun{}, err
	}
	r.Created, _ = time.Parse(time.RFC3339, created)
	r.Start, _ = time.Parse(dateLayout, start)
	r.End, _ = time.Parse(dateLayout, end)
	return r, nil
}

func (j *SQLiteJournal) ListOrdersByRunID(ctx context.Context, runID string) ([]OrderRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, ticket, date, symbol, strategy, action, quantity, type, status, price, total_cost, commissions, margin, reason
		FROM orders
		WHERE run_id = ?
		ORDER BY rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		var (
			o    OrderRecord
			date string
		)
		if err := rows.Scan(&o.RunID, &o.Ticket, &date, &o.Symbol, &o.Strategy, &o.Action, &o.Quantity,
			&o.Type, &o.Status, &o.Price, &o.TotalCost, &o.Commissions, &o.Margin, &o.Reason); err != nil {
			return nil, err
		}
		o.Date, _ = time.Parse(dateLayout, date)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) ListEquityByRunID(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, date, cash, buying_power, nlv, commissions, positions, working
		FROM equity
		WHERE run_id = ?
		ORDER BY date ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var (
			e    EquitySnapshot
			date string
		)
		if err := rows.Scan(&e.RunID, &date, &e.Cash, &e.BuyingPower, &e.NetLiquidatingValue,
			&e.Commissions, &e.Positions, &e.Working); err != nil {
			return nil, err
		}
		e.Date, _ = time.Parse(dateLayout, date)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ExportBacktestOrg loads a run with its orders and returns the Org block.
func (j *SQLiteJournal) ExportBacktestOrg(ctx context.Context, runID string) (string, error) {
	r, err := j.GetBacktestRun(ctx, runID)
	if err != nil {
		return "", err
	}
	orders, err := j.ListOrdersByRunID(ctx, runID)
	if err != nil {
		return "", err
	}
	report, err := r.Org()
	if err != nil {
		return "", err
	}
	if len(orders) > 0 {
		report += "\n** Orders\n" + FormatOrdersOrg(orders)
	}
	return report, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
