// Package options models the multi-leg option strategies that orders are
// placed against.
package options

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/optsim/market"
)

const (
	NameSingle     = "single"
	NameVertical   = "vertical"
	NameIronCondor = "iron_condor"
	NameCalendar   = "calendar"
	NameCombo      = "combo"
)

var (
	ErrMissingQuote = errors.New("quote not found")
	ErrNoLegs       = errors.New("strategy has no legs")
)

// Leg is one option of a strategy. Ratio is the signed number of contracts
// per unit of the strategy when the strategy is bought.
type Leg struct {
	Quote market.Quote
	Ratio int
}

func (l Leg) Symbol() string { return l.Quote.Symbol }

// Strategy is a named set of legs. Legs are ordered so that buying the
// strategy is a debit: Mark is positive for a well-formed spread.
type Strategy struct {
	Name   string
	Symbol string
	Legs   []Leg
}

func newStrategy(name string, legs ...Leg) *Strategy {
	return &Strategy{Name: name, Symbol: CompositeSymbol(legs), Legs: legs}
}

// CompositeSymbol names a strategy after its legs, e.g. ".A-.B" for a
// vertical that is long A and short B.
func CompositeSymbol(legs []Leg) string {
	if len(legs) == 1 && legs[0].Ratio == 1 {
		return legs[0].Symbol()
	}
	var b strings.Builder
	for i, l := range legs {
		switch {
		case l.Ratio < 0:
			b.WriteByte('-')
		case i > 0:
			b.WriteByte('+')
		}
		if r := abs(l.Ratio); r != 1 {
			b.WriteString(strconv.Itoa(r))
		}
		b.WriteByte('.')
		b.WriteString(l.Symbol())
	}
	return b.String()
}

// Mark is the net mid price of one unit, rounded to the cent.
func (s *Strategy) Mark() float64 {
	var mid float64
	for _, l := range s.Legs {
		mid += l.Quote.Mid() * float64(l.Ratio)
	}
	return round2(mid)
}

// NatPrice is the price of crossing the spread on every leg: asks for the
// long legs, bids for the short legs.
func (s *Strategy) NatPrice() float64 {
	var nat float64
	for _, l := range s.Legs {
		px := l.Quote.Ask
		if l.Ratio < 0 {
			px = l.Quote.Bid
		}
		nat += px * float64(l.Ratio)
	}
	return round2(nat)
}

// MaxStrikeWidth is the largest distance between strikes of the same
// option type.
func (s *Strategy) MaxStrikeWidth() float64 {
	width := 0.0
	for _, t := range []market.OptionType{market.Call, market.Put} {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, l := range s.Legs {
			if l.Quote.Type != t {
				continue
			}
			lo = math.Min(lo, l.Quote.Strike)
			hi = math.Max(hi, l.Quote.Strike)
		}
		if hi > lo && hi-lo > width {
			width = hi - lo
		}
	}
	return width
}

// Expiration is the earliest expiration among the legs.
func (s *Strategy) Expiration() time.Time {
	var exp time.Time
	for _, l := range s.Legs {
		if exp.IsZero() || l.Quote.Expiration.Before(exp) {
			exp = l.Quote.Expiration
		}
	}
	return market.Day(exp)
}

func (s *Strategy) Underlying() string {
	if len(s.Legs) == 0 {
		return ""
	}
	return s.Legs[0].Quote.Underlying
}

func (s *Strategy) Symbols() []string {
	out := make([]string, len(s.Legs))
	for i, l := range s.Legs {
		out[i] = l.Symbol()
	}
	return out
}

// Contracts is the total number of option contracts in one unit.
func (s *Strategy) Contracts() int {
	n := 0
	for _, l := range s.Legs {
		n += abs(l.Ratio)
	}
	return n
}

// Update refreshes every leg from the chain. A missing leg is an error and
// leaves the strategy untouched.
func (s *Strategy) Update(c *market.Chain) error {
	if len(s.Legs) == 0 {
		return ErrNoLegs
	}
	fresh := make([]market.Quote, len(s.Legs))
	for i, l := range s.Legs {
		q, ok := c.Lookup(l.Symbol())
		if !ok {
			return fmt.Errorf("%s leg %s: %w", s.Symbol, l.Symbol(), ErrMissingQuote)
		}
		fresh[i] = q
	}
	for i := range s.Legs {
		s.Legs[i].Quote = fresh[i]
	}
	return nil
}

// Clone returns a copy that shares no legs with s.
func (s *Strategy) Clone() *Strategy {
	legs := make([]Leg, len(s.Legs))
	copy(legs, s.Legs)
	return &Strategy{Name: s.Name, Symbol: s.Symbol, Legs: legs}
}

func (s *Strategy) String() string {
	return fmt.Sprintf("%s %s @ %.2f", s.Name, s.Symbol, s.Mark())
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
