package market

import (
	"fmt"
	"strings"
	"time"
)

// Multiplier is the number of shares one equity option contract controls.
const Multiplier = 100.0

type OptionType string

const (
	Call OptionType = "c"
	Put  OptionType = "p"
)

// ParseOptionType accepts c/call/p/put in any case.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "call", "calls":
		return Call, nil
	case "p", "put", "puts":
		return Put, nil
	}
	return "", fmt.Errorf("unknown option type %q", s)
}

func (t OptionType) String() string {
	switch t {
	case Call:
		return "call"
	case Put:
		return "put"
	}
	return string(t)
}

type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// Quote is one row of an option chain on a quote date.
type Quote struct {
	Symbol     string
	Underlying string
	Root       string

	QuoteDate  time.Time
	Expiration time.Time
	Strike     float64
	Type       OptionType

	Bid    float64
	Ask    float64
	Volume int64

	UnderlyingPrice float64
	Greeks
}

func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

func (q Quote) IsCall() bool { return q.Type == Call }
func (q Quote) IsPut() bool  { return q.Type == Put }

// DTE is the number of calendar days from the quote date to expiration.
func (q Quote) DTE() int {
	return DaysBetween(q.QuoteDate, q.Expiration)
}

func (q Quote) Moneyness() Moneyness {
	return MoneynessOf(q.Type, q.UnderlyingPrice, q.Strike)
}

// Day truncates t to midnight UTC. Quote dates are compared by day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

const DateLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD (or RFC3339) into a UTC day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return Day(t), nil
}
