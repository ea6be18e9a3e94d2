package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/optsim/backtest"
	"github.com/rustyeddy/optsim/broker"
	"github.com/rustyeddy/optsim/config"
	"github.com/rustyeddy/optsim/costs"
	"github.com/rustyeddy/optsim/event"
	"github.com/rustyeddy/optsim/feed"
	"github.com/rustyeddy/optsim/internal/id"
	"github.com/rustyeddy/optsim/journal"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/sizer"
	"github.com/rustyeddy/optsim/strategy"

	_ "github.com/rustyeddy/optsim/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a strategy against historical option chains",
	Long: `Backtest replays option chains one quote date at a time and runs the
configured strategy against the simulated broker.

Supported strategies:
  - noop: replays the data without trading
  - short-put-vertical: sells the put vertical nearest a target credit
  - iron-condor: sells an out of the money iron condor

Settings come from --config; the flags below override single fields.

Example:
  optsim backtest -c vxx.yaml --start 2016-01-01 --end 2016-06-30`,
	RunE: runBacktest,
}

var (
	btStrategy string
	btSymbol   string
	btDataType string
	btDataPath string
	btCash     float64
	btStart    string
	btEnd      string
	btJournal  string
	btDBPath   string
	btOrgPath  string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "s", "", "strategy name")
	backtestCmd.Flags().StringVar(&btSymbol, "symbol", "", "strategy underlying symbol")
	backtestCmd.Flags().StringVar(&btDataType, "data-type", "", "data source: sqlite|csv|postgres")
	backtestCmd.Flags().StringVarP(&btDataPath, "data", "d", "", "SQLite file or CSV directory")
	backtestCmd.Flags().Float64VarP(&btCash, "cash", "b", 0, "starting cash")
	backtestCmd.Flags().StringVar(&btStart, "start", "", "first expiration to load (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "last expiration to load (YYYY-MM-DD)")
	backtestCmd.Flags().StringVarP(&btJournal, "journal", "j", "", "journal: none|csv|sqlite")
	backtestCmd.Flags().StringVar(&btDBPath, "db", "", "SQLite journal DB")
	backtestCmd.Flags().StringVar(&btOrgPath, "org", "", "write an org-mode run report to this file")
}

// applyFlags copies the flags that were set onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("strategy") {
		cfg.Strategy.Name = btStrategy
	}
	if set("symbol") {
		cfg.Strategy.Symbol = strings.ToUpper(btSymbol)
		cfg.Data.Symbols = []string{cfg.Strategy.Symbol}
	}
	if set("data-type") {
		cfg.Data.Type = btDataType
	}
	if set("data") {
		cfg.Data.Path = btDataPath
	}
	if set("cash") {
		cfg.Account.Cash = btCash
	}
	if set("start") {
		cfg.Data.Start = btStart
	}
	if set("end") {
		cfg.Data.End = btEnd
	}
	if set("journal") {
		cfg.Journal.Type = btJournal
	}
	if set("db") {
		cfg.Journal.DBPath = btDBPath
		if !set("journal") {
			cfg.Journal.Type = "sqlite"
		}
	}
	if set("org") {
		cfg.Journal.OrgPath = btOrgPath
	}
}

func filterFor(d config.DataConfig) (feed.Filter, error) {
	start, end, err := d.Range()
	if err != nil {
		return feed.Filter{}, err
	}
	f := feed.Filter{Start: start, End: end, ExcludeSplits: d.ExcludeSplits}
	if d.OptionType != "" {
		if f.OptionType, err = market.ParseOptionType(d.OptionType); err != nil {
			return feed.Filter{}, err
		}
	}
	return f, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx := cmd.Context()
	runID := id.NewRunID()
	rlog := log.WithField("run", runID)

	filter, err := filterFor(cfg.Data)
	if err != nil {
		return err
	}
	margin, err := costs.MarginByName(cfg.Models.Margin)
	if err != nil {
		return err
	}
	commission, err := costs.CommissionByName(cfg.Models.Commission, cfg.Models.PerContract, cfg.Models.PerOrder)
	if err != nil {
		return err
	}
	sz, err := sizer.ByName(cfg.Strategy.Sizer.Type, cfg.Strategy.Sizer.Quantity, cfg.Strategy.Sizer.Amount, cfg.Strategy.Sizer.RiskPct)
	if err != nil {
		return err
	}
	strat, err := strategy.New(cfg.Strategy)
	if err != nil {
		return err
	}
	settings, err := yaml.Marshal(cfg.Strategy)
	if err != nil {
		return fmt.Errorf("marshal strategy: %w", err)
	}

	df, closeFeed, err := feed.Open(ctx, cfg.Data.Type, cfg.Data.Path, cfg.Data.DSN, rlog)
	if err != nil {
		return fmt.Errorf("open data: %w", err)
	}
	defer closeFeed()

	j, err := journal.Open(cfg.Journal.Type, cfg.Journal.OrdersFile, cfg.Journal.EquityFile, cfg.Journal.DBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	q := event.NewQueue()
	b, err := broker.New(broker.Config{
		Feed:       df,
		Margin:     margin,
		Commission: commission,
		Sink:       q,
		Journal:    j,
		Logger:     rlog,
		Cash:       cfg.Account.Cash,
		RunID:      runID,
	})
	if err != nil {
		return err
	}

	symbols := cfg.Data.Symbols
	if len(symbols) == 0 {
		symbols = []string{cfg.Strategy.Symbol}
	}
	if err := b.SourceAll(ctx, symbols, filter); err != nil {
		return err
	}

	bt, err := backtest.New(backtest.Config{
		Broker:   b,
		Queue:    q,
		Strategy: strat,
		Sizer:    sz,
		Filter:   filter,
		Journal:  j,
		Logger:   rlog,
		Dataset:  dataset(cfg.Data),
		Settings: settings,
		OrgPath:  cfg.Journal.OrgPath,
	})
	if err != nil {
		return err
	}

	rlog.WithFields(logrus.Fields{"strategy": strat.Name(), "data": dataset(cfg.Data)}).Info("running backtest")
	res, err := bt.Run(ctx)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	// csv and sqlite journals write the report themselves
	if o := cfg.Journal.OrgPath; o != "" && (cfg.Journal.Type == "" || cfg.Journal.Type == "none") {
		run := res.Run(strat.Name(), b.Symbols(), dataset(cfg.Data), settings, o)
		if err := run.WriteBacktestOrg(); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	printResult(res)
	return nil
}

func dataset(d config.DataConfig) string {
	switch d.Type {
	case "postgres":
		return "postgres"
	case "memory":
		return "memory"
	}
	return d.Type + ":" + filepath.Base(d.Path)
}

func printResult(res backtest.Result) {
	fmt.Printf("\nBacktest Complete! (run %s)\n", res.RunID)
	fmt.Printf("  Period:        %s .. %s (%d days)\n",
		res.Start.Format(market.DateLayout), res.End.Format(market.DateLayout), res.Stats.Ticks)
	fmt.Printf("  Orders:        %d (%d filled, %d rejected, %d expired, %d cancelled)\n",
		res.Stats.Orders, res.Stats.Fills, res.Stats.Rejections, res.Stats.Expirations, res.Stats.Cancels)
	fmt.Printf("  Settlements:   %d\n", res.Stats.Settlements)
	fmt.Printf("  Cash:          $%.2f\n", res.Account.Cash)
	fmt.Printf("  Buying Power:  $%.2f\n", res.Account.OptionBuyingPower)
	fmt.Printf("  Net Liq Value: $%.2f\n", res.Account.NetLiquidatingValue)
	fmt.Printf("  Commissions:   $%.2f\n", res.Account.Commissions)
	fmt.Printf("  Net P/L:       $%.2f (%.2f%%)\n", res.NetPL, res.ReturnPct)
	fmt.Printf("  Max Drawdown:  %.2f%%\n", res.MaxDDPct)
	fmt.Printf("  Open Positions: %d\n", res.Account.Positions)
}
