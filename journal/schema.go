package journal

const Schema = `
CREATE TABLE IF NOT EXISTS orders (
	run_id TEXT NOT NULL,
	ticket INTEGER NOT NULL,
	date TEXT NOT NULL,
	symbol TEXT NOT NULL,
	strategy TEXT NOT NULL,
	action TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	price REAL NOT NULL,
	total_cost REAL NOT NULL,
	commissions REAL NOT NULL,
	margin REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_run ON orders(run_id, date);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	date TEXT NOT NULL,
	cash REAL NOT NULL,
	buying_power REAL NOT NULL,
	nlv REAL NOT NULL,
	commissions REAL NOT NULL,
	positions INTEGER NOT NULL,
	working INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, date);

CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id TEXT PRIMARY KEY,
	created TEXT NOT NULL,
	dataset TEXT NOT NULL,
	symbols TEXT NOT NULL,
	strategy TEXT NOT NULL,
	config BLOB,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	ticks INTEGER NOT NULL,
	orders INTEGER NOT NULL,
	fills INTEGER NOT NULL,
	rejections INTEGER NOT NULL,
	expirations INTEGER NOT NULL,
	settlements INTEGER NOT NULL,
	start_balance REAL NOT NULL,
	end_balance REAL NOT NULL,
	commissions REAL NOT NULL,
	net_pl REAL NOT NULL,
	return_pct REAL NOT NULL,
	max_dd_pct REAL NOT NULL
);
`
