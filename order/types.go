package order

import (
	"fmt"
	"strings"
)

type Action int

const (
	Buy  Action = 1
	Sell Action = -1
)

// Sign is +1 for buys and -1 for sells.
func (a Action) Sign() int { return int(a) }

func (a Action) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "BTO", "B":
		return Buy, nil
	case "SELL", "STO", "S":
		return Sell, nil
	}
	return 0, fmt.Errorf("unknown order action %q", s)
}

type Type int

const (
	Market Type = iota
	Limit
)

func (t Type) String() string {
	if t == Limit {
		return "LMT"
	}
	return "MKT"
}

func ParseType(s string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "MKT", "MARKET":
		return Market, nil
	case "LMT", "LIMIT":
		return Limit, nil
	}
	return 0, fmt.Errorf("unknown order type %q", s)
}

// TIF is the time in force of a working order.
type TIF int

const (
	GTC TIF = iota
	Day
)

func (t TIF) String() string {
	if t == Day {
		return "DAY"
	}
	return "GTC"
}

func ParseTIF(s string) (TIF, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "GTC":
		return GTC, nil
	case "DAY":
		return Day, nil
	}
	return 0, fmt.Errorf("unknown time in force %q", s)
}

// Ticket identifies an order for the life of a run.
type Ticket int64

func (t Ticket) String() string { return fmt.Sprintf("#%d", int64(t)) }
