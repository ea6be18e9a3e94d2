package journal

import (
	"encoding/csv"
	"os"
	"strconv"
)

var (
	orderHeader  = []string{"run_id", "ticket", "date", "symbol", "strategy", "action", "quantity", "type", "status", "price", "total_cost", "commissions", "margin", "reason"}
	equityHeader = []string{"run_id", "date", "cash", "buying_power", "nlv", "commissions", "positions", "working"}
)

// CSVJournal writes orders and equity to two CSV files. A run summary is
// written as an Org report when the run carries an OrgPath.
type CSVJournal struct {
	orders *csv.Writer
	equity *csv.Writer
	of, ef *os.File
}

func NewCSV(ordersPath, equityPath string) (*CSVJournal, error) {
	of, err := os.Create(ordersPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		of.Close()
		return nil, err
	}

	ow := csv.NewWriter(of)
	ew := csv.NewWriter(ef)

	if err := ow.Write(orderHeader); err != nil {
		return nil, err
	}
	if err := ew.Write(equityHeader); err != nil {
		return nil, err
	}

	ow.Flush()
	if err := ow.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{ow, ew, of, ef}, nil
}

func (j *CSVJournal) RecordOrder(o OrderRecord) error {
	err := j.orders.Write([]string{
		o.RunID,
		strconv.FormatInt(o.Ticket, 10),
		o.Date.Format(dateLayout),
		o.Symbol,
		o.Strategy,
		o.Action,
		strconv.Itoa(o.Quantity),
		o.Type,
		o.Status,
		f(o.Price),
		f(o.TotalCost),
		f(o.Commissions),
		f(o.Margin),
		o.Reason,
	})
	if err != nil {
		return err
	}
	j.orders.Flush()
	return j.orders.Error()
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.RunID,
		e.Date.Format(dateLayout),
		f(e.Cash),
		f(e.BuyingPower),
		f(e.NetLiquidatingValue),
		f(e.Commissions),
		strconv.Itoa(e.Positions),
		strconv.Itoa(e.Working),
	})
	if err != nil {
		return err
	}

	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) RecordRun(r BacktestRun) error {
	if r.OrgPath == "" {
		return nil
	}
	return r.WriteBacktestOrg()
}

func (j *CSVJournal) Close() error {
	j.orders.Flush()
	if err := j.orders.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.of.Close(); err != nil {
		return err
	}
	if err := j.ef.Close(); err != nil {
		return err
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}
