// Package backtest runs a strategy against the broker: it drains the event
// queue, asks the broker for the next snapshot once the queue is empty and
// dispatches every event to the strategy.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/optsim/account"
	"github.com/rustyeddy/optsim/broker"
	"github.com/rustyeddy/optsim/event"
	"github.com/rustyeddy/optsim/feed"
	"github.com/rustyeddy/optsim/journal"
	"github.com/rustyeddy/optsim/order"
	"github.com/rustyeddy/optsim/sizer"
	"github.com/rustyeddy/optsim/strategy"
)

var ErrUnknownEvent = errors.New("unknown event")

type Config struct {
	Broker   *broker.Broker
	Queue    *event.Queue // must be the broker's sink
	Strategy strategy.Strategy
	Sizer    sizer.Sizer // optional, defaults to FixedQuantity

	// Filter applies to symbols the strategy sources during the run.
	Filter feed.Filter

	Journal journal.Journal    // optional, receives the run summary
	Logger  logrus.FieldLogger // optional

	Dataset  string
	Settings []byte // strategy settings stored with the run
	OrgPath  string
}

// Backtest is the main loop. It also implements strategy.Trader, the
// surface handed to strategy callbacks.
type Backtest struct {
	broker   *broker.Broker
	queue    *event.Queue
	strategy strategy.Strategy
	sizer    sizer.Sizer
	filter   feed.Filter
	journal  journal.Journal
	log      logrus.FieldLogger

	dataset  string
	settings []byte
	orgPath  string

	ctx          context.Context
	startBalance float64
	equity       []journal.EquitySnapshot
	first, last  time.Time
}

func New(cfg Config) (*Backtest, error) {
	if cfg.Broker == nil {
		return nil, fmt.Errorf("backtest: Broker is required")
	}
	if cfg.Queue == nil {
		return nil, fmt.Errorf("backtest: Queue is required")
	}
	if cfg.Strategy == nil {
		return nil, fmt.Errorf("backtest: Strategy is required")
	}
	if cfg.Sizer == nil {
		cfg.Sizer = sizer.FixedQuantity{N: sizer.DefaultQuantity}
	}
	if cfg.Journal == nil {
		cfg.Journal = journal.Nop{}
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.Logger = l
	}
	return &Backtest{
		broker:   cfg.Broker,
		queue:    cfg.Queue,
		strategy: cfg.Strategy,
		sizer:    cfg.Sizer,
		filter:   cfg.Filter,
		journal:  cfg.Journal,
		log:      cfg.Logger,
		dataset:  cfg.Dataset,
		settings: cfg.Settings,
		orgPath:  cfg.OrgPath,
		ctx:      context.Background(),
	}, nil
}

// Run executes the loop until the quote stream is exhausted. A strategy
// callback error, a data integrity error or a journal error aborts the
// run.
func (bt *Backtest) Run(ctx context.Context) (Result, error) {
	bt.ctx = ctx
	defer func() { bt.ctx = context.Background() }()

	if err := bt.strategy.Init(bt); err != nil {
		return Result{}, fmt.Errorf("%s init: %w", bt.strategy.Name(), err)
	}
	bt.startBalance = bt.broker.Account().Cash

	bt.log.WithFields(logrus.Fields{
		"run":      bt.broker.RunID(),
		"strategy": bt.strategy.Name(),
		"symbols":  strings.Join(bt.broker.Symbols(), ","),
		"cash":     bt.startBalance,
	}).Info("backtest started")

	for {
		ev, ok := bt.queue.Get()
		if !ok {
			more, err := bt.broker.StreamNext(ctx)
			if err != nil {
				return Result{}, err
			}
			if !more {
				break
			}
			continue
		}
		if err := bt.dispatch(ev); err != nil {
			return Result{}, err
		}
	}

	res := bt.result()
	bt.log.WithFields(logrus.Fields{
		"run":    res.RunID,
		"ticks":  res.Stats.Ticks,
		"fills":  res.Stats.Fills,
		"nlv":    res.Account.NetLiquidatingValue,
		"net_pl": res.NetPL,
	}).Info("backtest finished")

	if err := bt.journal.RecordRun(res.Run(bt.strategy.Name(), bt.broker.Symbols(), bt.dataset, bt.settings, bt.orgPath)); err != nil {
		return res, fmt.Errorf("journal run: %w", err)
	}
	return res, nil
}

func (bt *Backtest) dispatch(ev event.Event) error {
	name := bt.strategy.Name()

	switch e := ev.(type) {
	case event.Data:
		bt.observe(e)
		if err := bt.strategy.OnData(bt, e.Snapshot); err != nil {
			return fmt.Errorf("%s on data %s: %w", name, e.Date.Format("2006-01-02"), err)
		}
	case event.Order:
		return bt.broker.ProcessOrder(e.Order)
	case event.Fill:
		if err := bt.strategy.OnFill(bt, e.Order); err != nil {
			return fmt.Errorf("%s on fill %v: %w", name, e.Order.Ticket, err)
		}
	case event.Rejected:
		if err := bt.strategy.OnRejected(bt, e.Order); err != nil {
			return fmt.Errorf("%s on rejected %v: %w", name, e.Order.Ticket, err)
		}
	case event.Expired:
		if err := bt.strategy.OnExpired(bt, e.Order); err != nil {
			return fmt.Errorf("%s on expired %v: %w", name, e.Order.Ticket, err)
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
	return nil
}

func (bt *Backtest) observe(e event.Data) {
	if bt.first.IsZero() {
		bt.first = e.Date
	}
	bt.last = e.Date

	s := bt.broker.Account()
	bt.equity = append(bt.equity, journal.EquitySnapshot{
		RunID:               bt.broker.RunID(),
		Date:                e.Date,
		Cash:                s.Cash,
		BuyingPower:         s.OptionBuyingPower,
		NetLiquidatingValue: s.NetLiquidatingValue,
		Commissions:         s.Commissions,
		Positions:           s.Positions,
	})
}

// PlaceOrder sizes the request when Quantity is zero, reserves a ticket
// and enqueues the CREATED order for the broker. A request the sizer
// cannot afford one unit of is still enqueued and comes back REJECTED.
func (bt *Backtest) PlaceOrder(req order.Request) (order.Ticket, error) {
	if req.Strategy == nil {
		return 0, fmt.Errorf("%w: strategy is required", order.ErrInvalidRequest)
	}
	if req.Quantity < 0 {
		return 0, fmt.Errorf("quantity %d: %w", req.Quantity, order.ErrInvalidQuantity)
	}
	newOrder := order.New
	if req.Quantity == 0 {
		n, err := bt.sizer.Quantity(req.Strategy, req.Action, bt.broker.Account())
		if err != nil {
			return 0, fmt.Errorf("size %s: %w", req.Strategy.Symbol, err)
		}
		if n == 0 {
			// the broker rejects it for insufficient funds
			newOrder = order.NewUnsized
		}
		req.Quantity = n
	}

	date := bt.broker.Date()
	o, err := newOrder(bt.broker.NextTicket(), date, req)
	if err != nil {
		return 0, err
	}
	bt.queue.Put(event.Order{Date: date, Order: o})
	return o.Ticket, nil
}

func (bt *Backtest) Cancel(ticket order.Ticket) error {
	return bt.broker.Cancel(ticket)
}

func (bt *Backtest) SetCash(amount float64) error {
	if err := bt.broker.SetCash(amount); err != nil {
		return err
	}
	bt.startBalance = amount
	return nil
}

// Source adds a symbol's quotes to the run.
func (bt *Backtest) Source(symbol string) error {
	return bt.broker.Source(bt.ctx, symbol, bt.filter)
}

func (bt *Backtest) Date() time.Time                { return bt.broker.Date() }
func (bt *Backtest) Account() account.Snapshot      { return bt.broker.Account() }
func (bt *Backtest) Positions() []*account.Position { return bt.broker.Positions() }
func (bt *Backtest) PositionsTotal() int            { return bt.broker.PositionsTotal() }
func (bt *Backtest) Working() []*order.Order        { return bt.broker.Working() }
