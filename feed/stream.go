package feed

import (
	"sort"
	"time"

	"github.com/rustyeddy/optsim/market"
)

// Stream replays cached quote tables one quote date at a time. Rows of
// every symbol sharing a quote date end up in the same snapshot.
type Stream struct {
	dates  []time.Time
	quotes map[time.Time][]market.Quote
	pos    int
}

// NewStream merges tables into date order. Dates on or before after are
// dropped so a rebuilt stream resumes past the current date.
func NewStream(tables map[string][]market.Quote, after time.Time) *Stream {
	symbols := make([]string, 0, len(tables))
	for sym := range tables {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	s := &Stream{quotes: map[time.Time][]market.Quote{}}
	for _, sym := range symbols {
		for _, q := range tables[sym] {
			d := market.Day(q.QuoteDate)
			if !after.IsZero() && !d.After(market.Day(after)) {
				continue
			}
			if _, ok := s.quotes[d]; !ok {
				s.dates = append(s.dates, d)
			}
			s.quotes[d] = append(s.quotes[d], q)
		}
	}
	sort.Slice(s.dates, func(i, j int) bool { return s.dates[i].Before(s.dates[j]) })
	return s
}

// Next returns the next snapshot. ok is false once the stream is exhausted.
func (s *Stream) Next() (snap market.Snapshot, ok bool) {
	if s == nil || s.pos >= len(s.dates) {
		return market.Snapshot{}, false
	}
	d := s.dates[s.pos]
	s.pos++
	rows := s.quotes[d]
	delete(s.quotes, d)
	return market.Snapshot{Date: d, Chain: market.NewChain(d, rows)}, true
}

// Remaining is the number of snapshots left.
func (s *Stream) Remaining() int {
	if s == nil {
		return 0
	}
	return len(s.dates) - s.pos
}
