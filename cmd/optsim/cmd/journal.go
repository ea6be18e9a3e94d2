package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optsim/internal/id"
	"github.com/rustyeddy/optsim/journal"
	"github.com/rustyeddy/optsim/market"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query backtest journal data",
	Long: `Query and display backtest records from a SQLite journal.

Subcommands:
  runs    - List recent backtest runs
  orders  - List the orders of a run
  org     - Export a run as an Org-mode report

Examples:
  optsim journal runs
  optsim journal orders 01HQ3Z9V6P8Y4K2M1N0R5T7W9X
  optsim journal org 01HQ3Z9V6P8Y4K2M1N0R5T7W9X > run.org`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent backtest runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalOrdersCmd = &cobra.Command{
	Use:   "orders <run-id>",
	Short: "List the orders of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalOrders,
}

var journalOrgCmd = &cobra.Command{
	Use:   "org <run-id>",
	Short: "Export a run as an Org-mode report",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalOrg,
}

var (
	journalDBPath string
	journalLimit  int
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalOrdersCmd)
	journalCmd.AddCommand(journalOrgCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./optsim.sqlite", "path to SQLite journal DB")
	journalRunsCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "number of runs to list")
}

func openJournal() (*journal.SQLiteJournal, error) {
	if _, err := os.Stat(journalDBPath); err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(cmd.Context(), journalLimit)
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tCREATED\tSTRATEGY\tSYMBOLS\tSTART\tEND\tFILLS\tNET P/L\tRETURN %")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%.2f\t%.2f\n",
			r.RunID, runCreated(r).Format(createdLayout), r.Strategy, r.Symbols,
			r.Start.Format(market.DateLayout), r.End.Format(market.DateLayout),
			r.Fills, r.NetPL, r.ReturnPct)
	}
	return w.Flush()
}

const createdLayout = "2006-01-02 15:04"

// runCreated reads the creation time out of the run id; ids that are not
// ULIDs fall back to the stored timestamp.
func runCreated(r journal.BacktestRun) time.Time {
	if t, err := id.Time(r.RunID); err == nil {
		return t
	}
	return r.Created.UTC()
}

func runJournalOrders(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	orders, err := j.ListOrdersByRunID(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("query orders: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatOrdersOrg(orders))
	return nil
}

func runJournalOrg(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	report, err := j.ExportBacktestOrg(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("export run: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), report)
	return nil
}
