// Package feed loads historical option chains for the broker and merges
// them into a date ordered snapshot stream.
package feed

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rustyeddy/optsim/market"
)

// ErrDataUnavailable is returned when the backing source cannot be reached
// or holds no table for the symbol. Feeds never answer that case with an
// empty result.
var ErrDataUnavailable = errors.New("data unavailable")

// ErrNoTable marks an ErrDataUnavailable caused by a symbol the source has
// no table for. The source itself answered, so it does not count against
// the circuit breaker.
var ErrNoTable = errors.New("no table for symbol")

// DataFeed returns the quote rows of one underlying ordered by quote date.
type DataFeed interface {
	Get(ctx context.Context, symbol string, f Filter) ([]market.Quote, error)
}

// Filter narrows a chain query. Start and End bound the expiration date,
// zero values are open ends. ExcludeSplits drops contracts whose root
// differs from the symbol (adjusted contracts created by a split). An
// empty OptionType returns calls and puts.
type Filter struct {
	Start         time.Time
	End           time.Time
	ExcludeSplits bool
	OptionType    market.OptionType
}

// Keep applies the filter to one row.
func (f Filter) Keep(symbol string, q market.Quote) bool {
	if !f.Start.IsZero() && q.Expiration.Before(market.Day(f.Start)) {
		return false
	}
	if !f.End.IsZero() && q.Expiration.After(market.Day(f.End)) {
		return false
	}
	if f.ExcludeSplits && q.Root != "" && !strings.EqualFold(q.Root, symbol) {
		return false
	}
	if f.OptionType != "" && q.Type != f.OptionType {
		return false
	}
	return true
}

func (f Filter) apply(symbol string, quotes []market.Quote) []market.Quote {
	out := make([]market.Quote, 0, len(quotes))
	for _, q := range quotes {
		if f.Keep(symbol, q) {
			out = append(out, q)
		}
	}
	return out
}

var symbolRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,15}$`)

// TableName is the chain table holding symbol's quotes.
func TableName(symbol string) (string, error) {
	if !symbolRE.MatchString(symbol) {
		return "", fmt.Errorf("invalid symbol %q", symbol)
	}
	return strings.ToLower(symbol) + "_option_chain", nil
}

var dateLayouts = []string{
	market.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"01/02/2006",
}

func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return market.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date %q", s)
}

func unavailable(symbol string, err error) error {
	return fmt.Errorf("%s: %w: %v", symbol, ErrDataUnavailable, err)
}

func noTable(symbol string, err error) error {
	return fmt.Errorf("%s: %w: %w: %v", symbol, ErrDataUnavailable, ErrNoTable, err)
}

// withUnderlying fills in the underlying of rows that did not carry one.
func withUnderlying(symbol string, quotes []market.Quote) []market.Quote {
	u := strings.ToUpper(symbol)
	for i := range quotes {
		if quotes[i].Underlying == "" {
			quotes[i].Underlying = u
		}
	}
	return quotes
}
