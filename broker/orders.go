package broker

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/optsim/account"
	"github.com/rustyeddy/optsim/event"
	"github.com/rustyeddy/optsim/journal"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/order"
)

const (
	ReasonInsufficientFunds = "insufficient cash or buying power"
	ReasonDay               = "day order not filled"
	ReasonContractExpired   = "contract expired"
	ReasonSettled           = "settled at expiration"
	ReasonCancelled         = "cancelled"
)

// ProcessOrder prices a CREATED order with the margin and commission
// models and admits it when post-trade cash and buying power both stay
// positive. Admitted orders reserve their margin and execute at once when
// marketable. A rejection is reported through a Rejected event, not an
// error. Errors are fatal: a bad order state or a margin model that cannot
// price the strategy.
func (b *Broker) ProcessOrder(o *order.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if o.Status() != order.Created {
		return fmt.Errorf("process order %v: status %s: %w", o.Ticket, o.Status(), order.ErrInvalidTransition)
	}
	if _, dup := b.pending[o.Ticket]; dup {
		return fmt.Errorf("process order %v: duplicate ticket", o.Ticket)
	}
	if _, dup := b.filled[o.Ticket]; dup {
		return fmt.Errorf("process order %v: duplicate ticket", o.Ticket)
	}

	// zero quantity: the sizer could not afford one unit
	if o.Quantity == 0 {
		b.stats.Orders++
		return b.rejectLocked(o)
	}

	perUnit, err := b.margin.InitialMargin(o.Strategy, o.Action)
	if err != nil {
		return fmt.Errorf("process order %v: %w", o.Ticket, err)
	}
	margin := math.Abs(perUnit * float64(o.Quantity) * market.Multiplier)
	o.SetCosts(b.commission.Commissions(o.Strategy, o.Quantity), margin)
	b.stats.Orders++

	if !b.acct.Affords(o.TotalCost, o.Margin) {
		return b.rejectLocked(o)
	}

	if err := o.Transition(order.Working); err != nil {
		return err
	}
	b.acct.Reserve(o.Margin)
	b.pending[o.Ticket] = o
	b.orderLog(o).Debug("order working")

	if o.Executable() {
		return b.executeLocked(o)
	}
	return nil
}

// Cancel withdraws a WORKING order and releases its buying power.
func (b *Broker) Cancel(ticket order.Ticket) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.pending[ticket]
	if !ok || !o.Working() {
		return fmt.Errorf("cancel %v: %w", ticket, ErrNotWorking)
	}
	if err := o.Transition(order.Cancelled); err != nil {
		return err
	}
	delete(b.pending, ticket)
	b.acct.Release(o.Margin)
	b.stats.Cancels++
	b.orderLog(o).Warn("order cancelled")
	return b.recordLocked(o, ReasonCancelled)
}

func (b *Broker) executeLocked(o *order.Order) error {
	if err := o.Fill(b.date); err != nil {
		return err
	}
	if err := b.acct.ProcessOrder(o); err != nil {
		return err
	}
	delete(b.pending, o.Ticket)
	b.filled[o.Ticket] = o
	b.stats.Fills++

	b.orderLog(o).WithFields(logrus.Fields{
		"price": o.ExecutedPrice,
		"cost":  round2(o.TotalCost),
		"cash":  round2(b.acct.Cash),
	}).Info("order filled")
	if err := b.recordLocked(o, ""); err != nil {
		return err
	}
	b.sink.Put(event.Fill{Date: b.date, Order: o})
	return nil
}

func (b *Broker) expireLocked(o *order.Order, reason string) error {
	if err := o.Transition(order.Expired); err != nil {
		return err
	}
	delete(b.pending, o.Ticket)
	b.acct.Release(o.Margin)
	b.stats.Expirations++
	b.orderLog(o).WithField("reason", reason).Warn("order expired")
	if err := b.recordLocked(o, reason); err != nil {
		return err
	}
	b.sink.Put(event.Expired{Date: b.date, Order: o})
	return nil
}

func (b *Broker) settleLocked(s account.Settlement) error {
	b.stats.Settlements++
	o := b.filled[s.Position.Ticket]

	b.log.WithFields(logrus.Fields{
		"date":   s.Date.Format(market.DateLayout),
		"symbol": s.Position.Symbol(),
		"ticket": s.Position.Ticket.String(),
		"qty":    s.Position.Quantity,
		"amount": round2(s.Amount),
	}).Info("position settled")

	if err := b.journal.RecordOrder(journal.OrderRecord{
		RunID:     b.runID,
		Ticket:    int64(s.Position.Ticket),
		Date:      s.Date,
		Symbol:    s.Position.Symbol(),
		Strategy:  s.Position.Strategy.Name,
		Quantity:  s.Position.Quantity,
		Status:    "SETTLED",
		Price:     s.Position.Mark,
		TotalCost: -s.Amount,
		Margin:    s.Position.Margin,
		Reason:    ReasonSettled,
	}); err != nil {
		return err
	}
	b.sink.Put(event.Expired{Date: s.Date, Order: o, Position: s.Position, Amount: s.Amount})
	return nil
}

func (b *Broker) rejectLocked(o *order.Order) error {
	if err := o.Transition(order.Rejected); err != nil {
		return err
	}
	b.stats.Rejections++
	b.orderLog(o).WithFields(logrus.Fields{
		"quantity": o.Quantity,
		"cost":     round2(o.TotalCost),
		"margin":   round2(o.Margin),
		"cash":     round2(b.acct.Cash),
		"bp":       round2(b.acct.OptionBuyingPower),
	}).Info("order rejected")
	if err := b.recordLocked(o, ReasonInsufficientFunds); err != nil {
		return err
	}
	b.sink.Put(event.Rejected{Date: b.date, Order: o, Reason: ReasonInsufficientFunds})
	return nil
}

func (b *Broker) recordLocked(o *order.Order, reason string) error {
	price := o.Mark
	if o.Status() == order.Filled {
		price = o.ExecutedPrice
	}
	return b.journal.RecordOrder(journal.OrderRecord{
		RunID:       b.runID,
		Ticket:      int64(o.Ticket),
		Date:        b.date,
		Symbol:      o.Strategy.Symbol,
		Strategy:    o.Strategy.Name,
		Action:      o.Action.String(),
		Quantity:    o.Quantity,
		Type:        o.Type.String(),
		Status:      o.Status().String(),
		Price:       price,
		TotalCost:   o.TotalCost,
		Commissions: o.Commissions,
		Margin:      o.Margin,
		Reason:      reason,
	})
}

func (b *Broker) orderLog(o *order.Order) logrus.FieldLogger {
	return b.log.WithFields(logrus.Fields{
		"date":   b.date.Format(market.DateLayout),
		"ticket": o.Ticket.String(),
		"symbol": o.Strategy.Symbol,
		"status": o.Status().String(),
		"action": o.Action.String(),
		"qty":    o.Quantity,
	})
}
