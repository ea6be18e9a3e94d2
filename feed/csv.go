package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rustyeddy/optsim/market"
)

// CSVFeed reads <dir>/<symbol>.csv files with a header row. Column names
// follow the chain table; underlying_symbol, root, trade_volume,
// underlying_price and the greeks are optional.
type CSVFeed struct {
	Dir string
}

func NewCSV(dir string) (*CSVFeed, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, unavailable(dir, err)
	}
	if !st.IsDir() {
		return nil, unavailable(dir, errors.New("not a directory"))
	}
	return &CSVFeed{Dir: dir}, nil
}

func (c *CSVFeed) Path(symbol string) string {
	return filepath.Join(c.Dir, strings.ToLower(symbol)+".csv")
}

func (c *CSVFeed) Get(ctx context.Context, symbol string, f Filter) ([]market.Quote, error) {
	if _, err := TableName(symbol); err != nil {
		return nil, err
	}
	fh, err := os.Open(c.Path(symbol))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, noTable(symbol, err)
	}
	if err != nil {
		return nil, unavailable(symbol, err)
	}
	defer fh.Close()

	quotes, err := ReadCSV(ctx, fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Path(symbol), err)
	}
	return f.apply(symbol, withUnderlying(symbol, quotes)), nil
}

var requiredColumns = []string{"symbol", "quote_date", "expiration", "strike", "option_type", "bid", "ask"}

// ReadCSV parses chain rows from r.
func ReadCSV(ctx context.Context, r io.Reader) ([]market.Quote, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var out []market.Quote
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		q, err := parseRecord(rec, col)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, q)
	}
	return out, nil
}

func parseRecord(rec []string, col map[string]int) (market.Quote, error) {
	get := func(name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	num := func(name string) (float64, error) {
		s := get(name)
		if s == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}

	var (
		q   market.Quote
		err error
	)
	q.Symbol = get("symbol")
	q.Underlying = get("underlying_symbol")
	q.Root = get("root")
	if q.QuoteDate, err = parseDay(get("quote_date")); err != nil {
		return q, err
	}
	if q.Expiration, err = parseDay(get("expiration")); err != nil {
		return q, err
	}
	if q.Type, err = market.ParseOptionType(get("option_type")); err != nil {
		return q, err
	}

	fields := []struct {
		name string
		dst  *float64
	}{
		{"strike", &q.Strike},
		{"bid", &q.Bid},
		{"ask", &q.Ask},
		{"underlying_price", &q.UnderlyingPrice},
		{"delta", &q.Delta},
		{"gamma", &q.Gamma},
		{"theta", &q.Theta},
		{"vega", &q.Vega},
		{"rho", &q.Rho},
	}
	for _, fd := range fields {
		if *fd.dst, err = num(fd.name); err != nil {
			return q, err
		}
	}
	if v := get("trade_volume"); v != "" {
		if q.Volume, err = strconv.ParseInt(v, 10, 64); err != nil {
			return q, fmt.Errorf("trade_volume: %w", err)
		}
	}
	return q, nil
}
