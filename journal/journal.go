// Package journal records order outcomes, per-tick equity and run
// summaries of a backtest.
package journal

import (
	"time"
)

// OrderRecord is one order outcome: a fill, a rejection, a lapsed or
// cancelled working order, or a position settled at expiration.
type OrderRecord struct {
	RunID       string
	Ticket      int64
	Date        time.Time
	Symbol      string
	Strategy    string
	Action      string
	Quantity    int
	Type        string
	Status      string
	Price       float64
	TotalCost   float64
	Commissions float64
	Margin      float64
	Reason      string
}

// EquitySnapshot is the account state after one tick.
type EquitySnapshot struct {
	RunID               string
	Date                time.Time
	Cash                float64
	BuyingPower         float64
	NetLiquidatingValue float64
	Commissions         float64
	Positions           int
	Working             int
}

type Journal interface {
	RecordOrder(OrderRecord) error
	RecordEquity(EquitySnapshot) error
	RecordRun(BacktestRun) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordOrder(OrderRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) RecordRun(BacktestRun) error       { return nil }
func (Nop) Close() error                      { return nil }

// Memory keeps records in slices. Handy in tests.
type Memory struct {
	Orders []OrderRecord
	Equity []EquitySnapshot
	Runs   []BacktestRun
}

func (m *Memory) RecordOrder(r OrderRecord) error {
	m.Orders = append(m.Orders, r)
	return nil
}

func (m *Memory) RecordEquity(e EquitySnapshot) error {
	m.Equity = append(m.Equity, e)
	return nil
}

func (m *Memory) RecordRun(r BacktestRun) error {
	m.Runs = append(m.Runs, r)
	return nil
}

func (m *Memory) Close() error { return nil }
