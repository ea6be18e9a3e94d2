package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rustyeddy/optsim/market"
)

// undefined_table
const undefinedTable = "42P01"

// PostgresFeed reads chain tables from a PostgreSQL server. The table
// layout matches the SQLite feed with quote_date and expiration stored as
// DATE.
type PostgresFeed struct {
	pool *pgxpool.Pool
}

// NewPostgres connects and pings the server. Connection failures are
// reported as ErrDataUnavailable.
func NewPostgres(ctx context.Context, dsn string) (*PostgresFeed, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, unavailable("postgres", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, unavailable("postgres", err)
	}
	return &PostgresFeed{pool: pool}, nil
}

func (p *PostgresFeed) Get(ctx context.Context, symbol string, f Filter) ([]market.Quote, error) {
	table, err := TableName(symbol)
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	arg := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if !f.Start.IsZero() {
		arg("expiration >= $%d", market.Day(f.Start))
	}
	if !f.End.IsZero() {
		arg("expiration <= $%d", market.Day(f.End))
	}
	if f.ExcludeSplits {
		arg("root = $%d", symbol)
	}
	if f.OptionType != "" {
		arg("option_type = $%d", string(f.OptionType))
	}

	query := "SELECT " + chainColumns + " FROM " + pgx.Identifier{table}.Sanitize()
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY quote_date, expiration, strike, symbol"

	rows, err := p.pool.Query(ctx, query, args...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return nil, noTable(symbol, err)
	}
	if err != nil {
		return nil, unavailable(symbol, err)
	}
	defer rows.Close()

	var out []market.Quote
	for rows.Next() {
		var (
			q              market.Quote
			quoteDate, exp time.Time
			ot             string
			greeks         [5]*float64
		)
		if err := rows.Scan(&q.Symbol, &q.Underlying, &q.Root, &quoteDate, &exp, &q.Strike,
			&ot, &q.Volume, &q.Bid, &q.Ask, &q.UnderlyingPrice,
			&greeks[0], &greeks[1], &greeks[2], &greeks[3], &greeks[4]); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", table, err)
		}
		q.QuoteDate = market.Day(quoteDate)
		q.Expiration = market.Day(exp)
		if q.Type, err = market.ParseOptionType(ot); err != nil {
			return nil, fmt.Errorf("%s: %w", table, err)
		}
		for i, dst := range []*float64{&q.Delta, &q.Gamma, &q.Theta, &q.Vega, &q.Rho} {
			if greeks[i] != nil {
				*dst = *greeks[i]
			}
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(symbol, err)
	}
	return out, nil
}

func (p *PostgresFeed) Close() error {
	p.pool.Close()
	return nil
}
