package feed

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/optsim/market"
)

// chainColumns is the normalised column set of a <symbol>_option_chain
// table.
const chainColumns = `symbol, underlying_symbol, root, quote_date, expiration, strike,
	option_type, trade_volume, bid, ask, underlying_price, delta, gamma, theta, vega, rho`

const chainSchema = `
CREATE TABLE IF NOT EXISTS %[1]s (
	symbol TEXT NOT NULL,
	underlying_symbol TEXT NOT NULL,
	root TEXT NOT NULL,
	quote_date TEXT NOT NULL,
	expiration TEXT NOT NULL,
	strike REAL NOT NULL,
	option_type TEXT NOT NULL,
	trade_volume INTEGER NOT NULL DEFAULT 0,
	bid REAL NOT NULL,
	ask REAL NOT NULL,
	underlying_price REAL NOT NULL DEFAULT 0,
	delta REAL,
	gamma REAL,
	theta REAL,
	vega REAL,
	rho REAL
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_quote_date ON %[1]s(quote_date);
`

// SQLiteFeed reads chains from a SQLite database with one
// <symbol>_option_chain table per underlying.
type SQLiteFeed struct {
	db *sql.DB
}

// NewSQLite opens an existing database. A missing file is reported as
// ErrDataUnavailable instead of silently creating an empty database.
func NewSQLite(path string) (*SQLiteFeed, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, unavailable(path, err)
	}
	return openSQLite(path)
}

// CreateSQLite opens path, creating the database file if needed.
func CreateSQLite(path string) (*SQLiteFeed, error) {
	return openSQLite(path)
}

func openSQLite(path string) (*SQLiteFeed, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, unavailable(path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, unavailable(path, err)
	}
	return &SQLiteFeed{db: db}, nil
}

func (s *SQLiteFeed) Get(ctx context.Context, symbol string, f Filter) ([]market.Quote, error) {
	table, err := TableName(symbol)
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if !f.Start.IsZero() {
		where = append(where, "expiration >= ?")
		args = append(args, f.Start.Format(market.DateLayout))
	}
	if !f.End.IsZero() {
		where = append(where, "expiration <= ?")
		args = append(args, f.End.Format(market.DateLayout))
	}
	if f.ExcludeSplits {
		where = append(where, "root = ?")
		args = append(args, symbol)
	}
	if f.OptionType != "" {
		where = append(where, "option_type = ?")
		args = append(args, string(f.OptionType))
	}

	query := "SELECT " + chainColumns + " FROM " + table
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY quote_date, expiration, strike, symbol"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil && strings.Contains(err.Error(), "no such table") {
		return nil, noTable(symbol, err)
	}
	if err != nil {
		return nil, unavailable(symbol, err)
	}
	defer rows.Close()

	var out []market.Quote
	for rows.Next() {
		var (
			q                  market.Quote
			quoteDate, exp, ot string
			greeks             [5]sql.NullFloat64
		)
		if err := rows.Scan(&q.Symbol, &q.Underlying, &q.Root, &quoteDate, &exp, &q.Strike,
			&ot, &q.Volume, &q.Bid, &q.Ask, &q.UnderlyingPrice,
			&greeks[0], &greeks[1], &greeks[2], &greeks[3], &greeks[4]); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", table, err)
		}
		if q.QuoteDate, err = parseDay(quoteDate); err != nil {
			return nil, fmt.Errorf("%s: quote_date: %w", table, err)
		}
		if q.Expiration, err = parseDay(exp); err != nil {
			return nil, fmt.Errorf("%s: expiration: %w", table, err)
		}
		if q.Type, err = market.ParseOptionType(ot); err != nil {
			return nil, fmt.Errorf("%s: %w", table, err)
		}
		q.Delta = greeks[0].Float64
		q.Gamma = greeks[1].Float64
		q.Theta = greeks[2].Float64
		q.Vega = greeks[3].Float64
		q.Rho = greeks[4].Float64
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", table, err)
	}
	return out, nil
}

// Import creates the chain table for symbol and inserts the quotes in one
// transaction.
func (s *SQLiteFeed) Import(ctx context.Context, symbol string, quotes []market.Quote) error {
	table, err := TableName(symbol)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(chainSchema, table)); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	quotes = withUnderlying(symbol, quotes)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+table+" ("+chainColumns+
		") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, q := range quotes {
		root := q.Root
		if root == "" {
			root = symbol
		}
		underlying := q.Underlying
		if underlying == "" {
			underlying = symbol
		}
		if _, err := stmt.ExecContext(ctx, q.Symbol, underlying, root,
			q.QuoteDate.Format(market.DateLayout), q.Expiration.Format(market.DateLayout),
			q.Strike, string(q.Type), q.Volume, q.Bid, q.Ask, q.UnderlyingPrice,
			q.Delta, q.Gamma, q.Theta, q.Vega, q.Rho); err != nil {
			return fmt.Errorf("insert %s: %w", q.Symbol, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteFeed) Close() error {
	return s.db.Close()
}
