package market

import (
	"math"
	"sort"
	"time"
)

// Chain is the quote table for a single quote date. Rows are kept sorted by
// underlying, expiration, option type and strike so that neighbouring
// strikes of one expiration are adjacent.
type Chain struct {
	Date   time.Time
	quotes []Quote
	index  map[string]int
}

func NewChain(date time.Time, quotes []Quote) *Chain {
	rows := make([]Quote, len(quotes))
	copy(rows, quotes)

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Underlying != b.Underlying {
			return a.Underlying < b.Underlying
		}
		if !a.Expiration.Equal(b.Expiration) {
			return a.Expiration.Before(b.Expiration)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Strike < b.Strike
	})

	idx := make(map[string]int, len(rows))
	for i, q := range rows {
		idx[q.Symbol] = i
	}
	return &Chain{Date: Day(date), quotes: rows, index: idx}
}

func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.quotes)
}

// Quotes returns a copy of the rows.
func (c *Chain) Quotes() []Quote {
	if c == nil {
		return nil
	}
	out := make([]Quote, len(c.quotes))
	copy(out, c.quotes)
	return out
}

func (c *Chain) Lookup(symbol string) (Quote, bool) {
	if c == nil {
		return Quote{}, false
	}
	i, ok := c.index[symbol]
	if !ok {
		return Quote{}, false
	}
	return c.quotes[i], true
}

func (c *Chain) Filter(keep func(Quote) bool) *Chain {
	var rows []Quote
	if c != nil {
		for _, q := range c.quotes {
			if keep(q) {
				rows = append(rows, q)
			}
		}
	}
	var date time.Time
	if c != nil {
		date = c.Date
	}
	return NewChain(date, rows)
}

func (c *Chain) Calls() *Chain { return c.Filter(Quote.IsCall) }
func (c *Chain) Puts() *Chain  { return c.Filter(Quote.IsPut) }

func (c *Chain) Type(t OptionType) *Chain {
	return c.Filter(func(q Quote) bool { return q.Type == t })
}

func (c *Chain) Underlying(symbol string) *Chain {
	return c.Filter(func(q Quote) bool { return q.Underlying == symbol })
}

func (c *Chain) Expiring(exp time.Time) *Chain {
	return c.Filter(func(q Quote) bool { return SameDay(q.Expiration, exp) })
}

// Expirations lists the distinct expiration days in ascending order.
func (c *Chain) Expirations() []time.Time {
	if c == nil {
		return nil
	}
	seen := map[time.Time]struct{}{}
	var out []time.Time
	for _, q := range c.quotes {
		d := Day(q.Expiration)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// ClosestExpiration returns the expiration whose days-to-expiration is
// nearest dte. Ties go to the later expiration.
func (c *Chain) ClosestExpiration(dte int) (time.Time, bool) {
	var best time.Time
	bestDist := math.MaxInt
	for _, exp := range c.Expirations() {
		d := DaysBetween(c.Date, exp) - dte
		if d < 0 {
			d = -d
		}
		if d <= bestDist {
			best, bestDist = exp, d
		}
	}
	return best, !best.IsZero()
}

// Closest returns the row whose value(q) is nearest target.
func (c *Chain) Closest(value func(Quote) float64, target float64) (Quote, bool) {
	if c.Len() == 0 {
		return Quote{}, false
	}
	best := c.quotes[0]
	bestDist := math.Abs(value(best) - target)
	for _, q := range c.quotes[1:] {
		if d := math.Abs(value(q) - target); d < bestDist {
			best, bestDist = q, d
		}
	}
	return best, true
}

func (c *Chain) ClosestStrike(strike float64) (Quote, bool) {
	return c.Closest(func(q Quote) float64 { return q.Strike }, strike)
}

// Strike finds the row sharing q's underlying, expiration and type at the
// given strike.
func (c *Chain) Strike(q Quote, strike float64) (Quote, bool) {
	if c == nil {
		return Quote{}, false
	}
	for _, r := range c.quotes {
		if r.Underlying == q.Underlying && r.Type == q.Type &&
			SameDay(r.Expiration, q.Expiration) && nearlyEqual(r.Strike, strike) {
			return r, true
		}
	}
	return Quote{}, false
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// Snapshot is one quote date of the replay.
type Snapshot struct {
	Date  time.Time
	Chain *Chain
}
