// Package event holds the messages passed between the broker and the
// backtest loop.
package event

import (
	"fmt"
	"time"

	"github.com/rustyeddy/optsim/account"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/order"
)

// Event is one of Data, Order, Fill, Rejected or Expired.
type Event interface {
	When() time.Time
	Kind() Kind
	isEvent()
}

type Kind int

const (
	KindData Kind = iota + 1
	KindOrder
	KindFill
	KindRejected
	KindExpired
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "DATA"
	case KindOrder:
		return "ORDER"
	case KindFill:
		return "FILL"
	case KindRejected:
		return "REJECTED"
	case KindExpired:
		return "EXPIRED"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Data carries the quote snapshot for a new date.
type Data struct {
	Date     time.Time
	Snapshot market.Snapshot
}

// Order asks the broker to admit a CREATED order.
type Order struct {
	Date  time.Time
	Order *order.Order
}

type Fill struct {
	Date  time.Time
	Order *order.Order
}

type Rejected struct {
	Date   time.Time
	Order  *order.Order
	Reason string
}

// Expired reports either a WORKING order that lapsed or a position that
// was settled at expiration. For a settlement Order is the order that
// opened the position and keeps its FILLED status.
type Expired struct {
	Date     time.Time
	Order    *order.Order
	Position *account.Position
	Amount   float64
}

func (e Data) When() time.Time     { return e.Date }
func (e Order) When() time.Time    { return e.Date }
func (e Fill) When() time.Time     { return e.Date }
func (e Rejected) When() time.Time { return e.Date }
func (e Expired) When() time.Time  { return e.Date }

func (Data) Kind() Kind     { return KindData }
func (Order) Kind() Kind    { return KindOrder }
func (Fill) Kind() Kind     { return KindFill }
func (Rejected) Kind() Kind { return KindRejected }
func (Expired) Kind() Kind  { return KindExpired }

func (Data) isEvent()     {}
func (Order) isEvent()    {}
func (Fill) isEvent()     {}
func (Rejected) isEvent() {}
func (Expired) isEvent()  {}

// Settlement reports whether the event is a position settlement rather
// than a lapsed order.
func (e Expired) Settlement() bool { return e.Position != nil }

// Sink receives events produced by the broker.
type Sink interface {
	Put(Event)
}
