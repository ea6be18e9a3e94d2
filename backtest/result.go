package backtest

import (
	"strings"
	"time"

	"github.com/rustyeddy/optsim/account"
	"github.com/rustyeddy/optsim/broker"
	"github.com/rustyeddy/optsim/journal"
)

type Result struct {
	RunID string
	Start time.Time // first quote date
	End   time.Time // last quote date

	Stats   broker.Stats
	Account account.Snapshot

	StartBalance float64
	NetPL        float64
	ReturnPct    float64
	MaxDDPct     float64

	Equity []journal.EquitySnapshot
}

func (bt *Backtest) result() Result {
	acct := bt.broker.Account()
	run := journal.BacktestRun{
		StartBalance: bt.startBalance,
		EndBalance:   acct.NetLiquidatingValue,
	}
	run.Derive(bt.equity)

	return Result{
		RunID:        bt.broker.RunID(),
		Start:        bt.first,
		End:          bt.last,
		Stats:        bt.broker.Stats(),
		Account:      acct,
		StartBalance: bt.startBalance,
		NetPL:        run.NetPL,
		ReturnPct:    run.ReturnPct,
		MaxDDPct:     run.MaxDDPct,
		Equity:       bt.equity,
	}
}

// Run converts the result into the journal's run summary.
func (r Result) Run(strategy string, symbols []string, dataset string, settings []byte, orgPath string) journal.BacktestRun {
	return journal.BacktestRun{
		RunID:        r.RunID,
		Created:      time.Now().UTC(),
		Dataset:      dataset,
		Symbols:      strings.Join(symbols, ","),
		Strategy:     strategy,
		Config:       settings,
		Start:        r.Start,
		End:          r.End,
		Ticks:        r.Stats.Ticks,
		Orders:       r.Stats.Orders,
		Fills:        r.Stats.Fills,
		Rejections:   r.Stats.Rejections,
		Expirations:  r.Stats.Expirations,
		Settlements:  r.Stats.Settlements,
		StartBalance: r.StartBalance,
		EndBalance:   r.Account.NetLiquidatingValue,
		Commissions:  r.Account.Commissions,
		NetPL:        r.NetPL,
		ReturnPct:    r.ReturnPct,
		MaxDDPct:     r.MaxDDPct,
		OrgPath:      orgPath,
	}
}
