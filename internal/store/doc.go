// Package store owns the schema and every write to the market database.
//
// Tables:
//   - prices: one row per (symbol, date), indexed by date
//   - macro_series: series metadata, name replaced on re-ingest
//   - macro_observations: one row per (series_id, date)
//   - failed_tickers: append-only failure log, indexed by symbol
//   - crsp_daily_returns: one row per (permno, date), indexed by date
//   - crsp_delistings: one row per (permno, date)
//
// Price and macro rows are never mutated once written: each upsert validates
// its records, drops in-batch duplicates and inserts the rest in a single
// transaction with ON CONFLICT DO NOTHING, so reruns are idempotent and a
// crash never leaves a partial series behind.
//
// Two backends implement Store: DuckStore over a local DuckDB file (the
// default) and PGStore over a pgx pool. Both run the same SQL.
package store
