// Package broker admits, executes and ages orders against a replayed quote
// stream, and owns the account ledger they settle into.
package broker

import (
	"errors"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/optsim/account"
	"github.com/rustyeddy/optsim/costs"
	"github.com/rustyeddy/optsim/event"
	"github.com/rustyeddy/optsim/feed"
	"github.com/rustyeddy/optsim/journal"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/order"
)

var ErrNotWorking = errors.New("order is not working")

type Config struct {
	Feed       feed.DataFeed
	Margin     costs.MarginModel
	Commission costs.CommissionModel
	Sink       event.Sink

	Journal journal.Journal    // optional
	Logger  logrus.FieldLogger // optional
	Tickets *order.TicketSequence

	Cash  float64
	RunID string
}

// Stats counts order outcomes over a run.
type Stats struct {
	Ticks       int
	Orders      int
	Fills       int
	Rejections  int
	Expirations int
	Settlements int
	Cancels     int
}

type Broker struct {
	mu sync.Mutex

	feed       feed.DataFeed
	margin     costs.MarginModel
	commission costs.CommissionModel
	sink       event.Sink
	journal    journal.Journal
	log        logrus.FieldLogger
	tickets    *order.TicketSequence
	runID      string

	acct *account.Account

	tables map[string][]market.Quote
	stream *feed.Stream
	stale  bool

	date  time.Time
	chain *market.Chain

	pending map[order.Ticket]*order.Order
	filled  map[order.Ticket]*order.Order

	stats Stats
}

func New(cfg Config) (*Broker, error) {
	if cfg.Feed == nil {
		return nil, errors.New("broker: Feed is required")
	}
	if cfg.Margin == nil {
		return nil, errors.New("broker: Margin model is required")
	}
	if cfg.Commission == nil {
		return nil, errors.New("broker: Commission model is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("broker: Sink is required")
	}
	if cfg.Cash < 0 {
		return nil, errors.New("broker: Cash must not be negative")
	}
	if cfg.Cash == 0 {
		cfg.Cash = account.DefaultCash
	}
	if cfg.Journal == nil {
		cfg.Journal = journal.Nop{}
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.Logger = l
	}
	if cfg.Tickets == nil {
		cfg.Tickets = order.NewTicketSequence(order.FirstTicket)
	}

	return &Broker{
		feed:       cfg.Feed,
		margin:     cfg.Margin,
		commission: cfg.Commission,
		sink:       cfg.Sink,
		journal:    cfg.Journal,
		log:        cfg.Logger,
		tickets:    cfg.Tickets,
		runID:      cfg.RunID,
		acct:       account.New(cfg.Cash),
		tables:     map[string][]market.Quote{},
		pending:    map[order.Ticket]*order.Order{},
		filled:     map[order.Ticket]*order.Order{},
	}, nil
}

// NextTicket reserves a ticket for an order about to be submitted.
func (b *Broker) NextTicket() order.Ticket {
	return b.tickets.Next()
}

func (b *Broker) Date() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.date
}

// Chain is the quote table of the current date.
func (b *Broker) Chain() *market.Chain {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chain
}

func (b *Broker) Account() account.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.acct.Snapshot()
}

func (b *Broker) Positions() []*account.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.acct.Positions()
}

func (b *Broker) PositionsTotal() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.acct.PositionsTotal()
}

// SetCash resets the starting balance. It fails once the account has
// traded.
func (b *Broker) SetCash(amount float64) error {
	if amount <= 0 {
		return errors.New("cash must be positive")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) > 0 {
		return account.ErrHasActivity
	}
	return b.acct.SetCash(amount)
}

// Working returns the WORKING orders by ticket.
func (b *Broker) Working() []*order.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.workingLocked()
}

func (b *Broker) workingLocked() []*order.Order {
	out := make([]*order.Order, 0, len(b.pending))
	for _, o := range b.pending {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out
}

func (b *Broker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *Broker) RunID() string { return b.runID }

func (b *Broker) statusLocked() {
	s := b.acct.Snapshot()
	b.log.WithFields(logrus.Fields{
		"date":      b.date.Format(market.DateLayout),
		"cash":      round2(s.Cash),
		"nlv":       round2(s.NetLiquidatingValue),
		"bp":        round2(s.OptionBuyingPower),
		"working":   len(b.pending),
		"positions": s.Positions,
	}).Debug("status")
}

func (b *Broker) equityLocked() error {
	s := b.acct.Snapshot()
	return b.journal.RecordEquity(journal.EquitySnapshot{
		RunID:               b.runID,
		Date:                b.date,
		Cash:                s.Cash,
		BuyingPower:         s.OptionBuyingPower,
		NetLiquidatingValue: s.NetLiquidatingValue,
		Commissions:         s.Commissions,
		Positions:           s.Positions,
		Working:             len(b.pending),
	})
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
