package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/optsim/feed"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Manage option chain data",
}

var dataImportCmd = &cobra.Command{
	Use:   "import <symbol> <chain.csv>",
	Short: "Import an option chain CSV into SQLite",
	Long: `Import reads a chain CSV (symbol, quote_date, expiration, strike,
option_type, bid, ask and optional greeks columns) and appends it to the
<symbol>_option_chain table of the SQLite data file.

Example:
  optsim data import VXX vxx_2016.csv --db data/options.db`,
	Args: cobra.ExactArgs(2),
	RunE: runDataImport,
}

var dataDBPath string

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataImportCmd)

	dataImportCmd.Flags().StringVar(&dataDBPath, "db", "./data/options.db", "SQLite data file (created if missing)")
}

func runDataImport(cmd *cobra.Command, args []string) error {
	symbol := strings.ToUpper(args[0])

	f, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer f.Close()

	quotes, err := feed.ReadCSV(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("read %s: %w", args[1], err)
	}

	db, err := feed.CreateSQLite(dataDBPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", dataDBPath, err)
	}
	defer db.Close()

	if err := db.Import(cmd.Context(), symbol, quotes); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	log.WithFields(logrus.Fields{"symbol": symbol, "rows": len(quotes), "db": dataDBPath}).Info("imported chain")
	return nil
}
