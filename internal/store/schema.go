package store

// schema is valid for both DuckDB and PostgreSQL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS prices (
		symbol       VARCHAR NOT NULL,
		date         DATE NOT NULL,
		open         DOUBLE PRECISION,
		high         DOUBLE PRECISION,
		low          DOUBLE PRECISION,
		close        DOUBLE PRECISION NOT NULL,
		adj_close    DOUBLE PRECISION,
		volume       BIGINT,
		daily_return DOUBLE PRECISION,
		log_return   DOUBLE PRECISION,
		PRIMARY KEY (symbol, date)
	)`,
	`CREATE INDEX IF NOT EXISTS prices_date_idx ON prices (date)`,
	`CREATE TABLE IF NOT EXISTS macro_series (
		series_id VARCHAR PRIMARY KEY,
		name      VARCHAR NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS macro_observations (
		series_id VARCHAR NOT NULL,
		date      DATE NOT NULL,
		value     DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (series_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS failed_tickers (
		id        UUID PRIMARY KEY,
		run_id    UUID NOT NULL,
		symbol    VARCHAR NOT NULL,
		source    VARCHAR NOT NULL,
		failed_at TIMESTAMP NOT NULL,
		kind      VARCHAR NOT NULL,
		message   VARCHAR NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS failed_tickers_symbol_idx ON failed_tickers (symbol)`,
	`CREATE TABLE IF NOT EXISTS crsp_daily_returns (
		permno        BIGINT NOT NULL,
		date          DATE NOT NULL,
		ticker        VARCHAR,
		company_name  VARCHAR,
		ret           DOUBLE PRECISION,
		price         DOUBLE PRECISION,
		exchange_code INTEGER NOT NULL,
		dlret         DOUBLE PRECISION,
		total_return  DOUBLE PRECISION,
		log_return    DOUBLE PRECISION,
		PRIMARY KEY (permno, date)
	)`,
	`CREATE INDEX IF NOT EXISTS crsp_daily_returns_date_idx ON crsp_daily_returns (date)`,
	`CREATE TABLE IF NOT EXISTS crsp_delistings (
		permno BIGINT NOT NULL,
		date   DATE NOT NULL,
		dlret  DOUBLE PRECISION,
		dlretx DOUBLE PRECISION,
		dlstcd INTEGER NOT NULL,
		dlprc  DOUBLE PRECISION,
		PRIMARY KEY (permno, date)
	)`,
}

const (
	insertPriceSQL = `
		INSERT INTO prices (symbol, date, open, high, low, close, adj_close, volume, daily_return, log_return)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (symbol, date) DO NOTHING`

	insertMacroSQL = `
		INSERT INTO macro_observations (series_id, date, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (series_id, date) DO NOTHING`

	upsertSeriesSQL = `
		INSERT INTO macro_series (series_id, name)
		VALUES ($1, $2)
		ON CONFLICT (series_id) DO UPDATE SET name = excluded.name`

	insertFailureSQL = `
		INSERT INTO failed_tickers (id, run_id, symbol, source, failed_at, kind, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertCRSPReturnSQL = `
		INSERT INTO crsp_daily_returns (` + crspReturnColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (permno, date) DO NOTHING`

	insertDelistingSQL = `
		INSERT INTO crsp_delistings (` + delistingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (permno, date) DO NOTHING`

	hasHistorySQL = `SELECT EXISTS (SELECT 1 FROM prices WHERE symbol = $1)`

	hasCRSPSQL = `SELECT EXISTS (SELECT 1 FROM crsp_daily_returns WHERE date >= $1 AND date <= $2)`

	maxDateSQL = `SELECT MAX(date) FROM prices`

	statsSQL = `
		SELECT
			(SELECT COUNT(*) FROM prices),
			(SELECT COUNT(DISTINCT symbol) FROM prices),
			(SELECT MIN(date) FROM prices),
			(SELECT MAX(date) FROM prices),
			(SELECT COUNT(*) FROM macro_series),
			(SELECT COUNT(*) FROM macro_observations),
			(SELECT COUNT(*) FROM failed_tickers),
			(SELECT COUNT(*) FROM crsp_daily_returns),
			(SELECT COUNT(*) FROM crsp_delistings)`
)
