// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS counterparties (
	id TEXT NOT NULL,
	type TEXT NOT NULL,
	short_name TEXT NOT NULL,
	PRIMARY KEY (id, type)
);

CREATE TABLE IF NOT EXISTS counterparty_limits (
	counterparty_id TEXT NOT NULL,
	counterparty_type TEXT NOT NULL,
	currency TEXT NOT NULL DEFAULT '',
	overall_exposure_limit TEXT NOT NULL DEFAULT '0',
	currency_limit TEXT NOT NULL DEFAULT '0',
	product_money_market_limit TEXT NOT NULL DEFAULT '0',
	product_fx_limit TEXT NOT NULL DEFAULT '0',
	product_derivative_limit TEXT NOT NULL DEFAULT '0',
	product_repo_limit TEXT NOT NULL DEFAULT '0',
	product_reverse_repo_limit TEXT NOT NULL DEFAULT '0',
	product_gsec_limit TEXT NOT NULL DEFAULT '0',
	product_sell_and_buy_back_limit TEXT NOT NULL DEFAULT '0',
	product_buy_and_sell_back_limit TEXT NOT NULL DEFAULT '0',
	product_transaction_limit TEXT NOT NULL DEFAULT '0',
	tenor_limit TEXT NOT NULL DEFAULT '0',
	settlement_risk_limit TEXT NOT NULL DEFAULT '0',
	country_limit TEXT NOT NULL DEFAULT '0',
	group_limit TEXT NOT NULL DEFAULT '0',
	intraday_limit TEXT NOT NULL DEFAULT '0',
	updated_at DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_limits_key
	ON counterparty_limits(counterparty_id, counterparty_type, currency);

CREATE TABLE IF NOT EXISTS transactions (
	transaction_id TEXT PRIMARY KEY,
	counterparty_id TEXT NOT NULL,
	counterparty_type TEXT NOT NULL,
	product_type TEXT NOT NULL,
	amount TEXT NOT NULL,
	currency TEXT NOT NULL,
	isin TEXT NOT NULL DEFAULT '',
	trade_date DATE,
	status TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	comment TEXT NOT NULL DEFAULT '',
	authorized_by TEXT NOT NULL DEFAULT '',
	booked_at DATETIME NOT NULL,
	authorized_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_transactions_exposure
	ON transactions(counterparty_id, counterparty_type, currency, status, product_type);

CREATE TABLE IF NOT EXISTS isin_master (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	isin_issuer TEXT NOT NULL,
	isin_number TEXT NOT NULL UNIQUE,
	issue_date DATE NOT NULL,
	maturity_date DATE NOT NULL,
	coupon_rate TEXT NOT NULL,
	series TEXT NOT NULL DEFAULT '',
	coupon_date_1 TEXT NOT NULL DEFAULT '',
	coupon_date_2 TEXT NOT NULL DEFAULT '',
	day_basis TEXT NOT NULL DEFAULT '',
	currency TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS isin_coupon_schedule (
	isin TEXT NOT NULL,
	coupon_number INTEGER NOT NULL,
	coupon_date DATE NOT NULL,
	coupon_amount TEXT NOT NULL,
	principal TEXT NOT NULL,
	PRIMARY KEY (isin, coupon_number)
);
`
