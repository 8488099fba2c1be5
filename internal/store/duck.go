package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rickgao/market-ingest/internal/model"
)

// duckInsertChunk bounds the rows per multi-row INSERT.
const duckInsertChunk = 256

// DuckStore is a Store over a DuckDB database.
type DuckStore struct {
	db     *sql.DB
	logger *slog.Logger

	mu      sync.Mutex
	metrics Metrics
}

var _ Store = (*DuckStore)(nil)

// NewDuckStore wraps db and creates the schema if needed. The store takes
// ownership of db.
func NewDuckStore(ctx context.Context, db *sql.DB, logger *slog.Logger) (*DuckStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &DuckStore{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DuckStore) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// UpsertPrices implements Store.
func (s *DuckStore) UpsertPrices(ctx context.Context, bars []model.PriceBar) (WriteResult, error) {
	valid, res := preparePrices(bars)
	if len(valid) == 0 {
		s.record(res, nil)
		return res, nil
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := existingPriceDates(ctx, tx, valid)
		if err != nil {
			return err
		}

		fresh := valid[:0:0]
		for _, b := range valid {
			if existing[dayKey(b.Symbol, b.Date)] {
				res.Duplicates++
				continue
			}
			fresh = append(fresh, b)
		}

		args := make([][]any, len(fresh))
		for i, b := range fresh {
			args[i] = priceArgs(b)
		}
		if err := insertChunked(ctx, tx, "prices", priceColumns, "symbol, date", args); err != nil {
			return err
		}
		res.Inserted = len(fresh)
		return nil
	})
	if err != nil {
		s.record(WriteResult{}, err)
		return WriteResult{}, fmt.Errorf("upsert prices: %w", err)
	}

	s.record(res, nil)
	return res, nil
}

// UpsertMacro implements Store.
func (s *DuckStore) UpsertMacro(ctx context.Context, points []model.MacroPoint) (WriteResult, error) {
	valid, res := prepareMacro(points)
	if len(valid) == 0 {
		s.record(res, nil)
		return res, nil
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		return insertMacro(ctx, tx, valid, &res)
	})
	if err != nil {
		s.record(WriteResult{}, err)
		return WriteResult{}, fmt.Errorf("upsert macro: %w", err)
	}

	s.record(res, nil)
	return res, nil
}

// UpsertMacroSeries implements Store.
func (s *DuckStore) UpsertMacroSeries(ctx context.Context, series model.MacroSeries, points []model.MacroPoint) (WriteResult, error) {
	valid, res, err := prepareSeriesPoints(series, points)
	if err != nil {
		return WriteResult{}, err
	}
	if len(valid) == 0 {
		s.record(res, nil)
		return res, nil
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsertSeriesSQL, series.ID, series.Name); err != nil {
			return fmt.Errorf("upsert series %s: %w", series.ID, err)
		}
		return insertMacro(ctx, tx, valid, &res)
	})
	if err != nil {
		s.record(WriteResult{}, err)
		return WriteResult{}, fmt.Errorf("upsert macro %s: %w", series.ID, err)
	}

	s.record(res, nil)
	return res, nil
}

// UpsertCRSP implements Store.
func (s *DuckStore) UpsertCRSP(ctx context.Context, batch model.CRSPBatch) (WriteResult, error) {
	valid, res := prepareCRSP(batch)
	if valid.Len() == 0 {
		s.record(res, nil)
		return res, nil
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var returns, delistings [][]any
		if len(valid.Returns) > 0 {
			dates := make([]time.Time, len(valid.Returns))
			for i, r := range valid.Returns {
				dates[i] = r.Date
			}
			existing, err := existingPermnoDates(ctx, tx, "crsp_daily_returns", dates)
			if err != nil {
				return err
			}
			for _, r := range valid.Returns {
				if existing[permnoKey(r.PermNo, r.Date)] {
					res.Duplicates++
					continue
				}
				returns = append(returns, crspReturnArgs(r))
			}
		}
		if len(valid.Delistings) > 0 {
			dates := make([]time.Time, len(valid.Delistings))
			for i, d := range valid.Delistings {
				dates[i] = d.Date
			}
			existing, err := existingPermnoDates(ctx, tx, "crsp_delistings", dates)
			if err != nil {
				return err
			}
			for _, d := range valid.Delistings {
				if existing[permnoKey(d.PermNo, d.Date)] {
					res.Duplicates++
					continue
				}
				delistings = append(delistings, delistingArgs(d))
			}
		}

		if err := insertChunked(ctx, tx, "crsp_daily_returns", crspReturnColumns, "permno, date", returns); err != nil {
			return err
		}
		if err := insertChunked(ctx, tx, "crsp_delistings", delistingColumns, "permno, date", delistings); err != nil {
			return err
		}
		res.Inserted = len(returns) + len(delistings)
		return nil
	})
	if err != nil {
		s.record(WriteResult{}, err)
		return WriteResult{}, fmt.Errorf("upsert crsp: %w", err)
	}

	s.record(res, nil)
	return res, nil
}

// UpsertSeries implements Store.
func (s *DuckStore) UpsertSeries(ctx context.Context, series model.MacroSeries) error {
	if _, err := s.db.ExecContext(ctx, upsertSeriesSQL, series.ID, series.Name); err != nil {
		return fmt.Errorf("upsert series %s: %w", series.ID, err)
	}
	return nil
}

// LogFailure implements Store.
func (s *DuckStore) LogFailure(ctx context.Context, f model.FailedTicker) error {
	f = prepareFailure(f)
	if _, err := s.db.ExecContext(ctx, insertFailureSQL, failureArgs(f)...); err != nil {
		s.record(WriteResult{}, err)
		return fmt.Errorf("log failure %s: %w", f.Symbol, err)
	}
	s.mu.Lock()
	s.metrics.Failures++
	s.mu.Unlock()
	return nil
}

// HasHistory implements Store.
func (s *DuckStore) HasHistory(ctx context.Context, symbol string) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, hasHistorySQL, model.NormalizeSymbol(symbol)).Scan(&ok); err != nil {
		return false, fmt.Errorf("has history %s: %w", symbol, err)
	}
	return ok, nil
}

// HasCRSP implements Store.
func (s *DuckStore) HasCRSP(ctx context.Context, from, to time.Time) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, hasCRSPSQL, model.Day(from), model.Day(to)).Scan(&ok); err != nil {
		return false, fmt.Errorf("has crsp %s: %w", from.Format(time.DateOnly), err)
	}
	return ok, nil
}

// QueryUniverse implements Store.
func (s *DuckStore) QueryUniverse(ctx context.Context, f UniverseFilter) ([]model.PriceBar, error) {
	ref, err := s.referenceDate(ctx, f)
	if err != nil {
		return nil, err
	}
	q, args := universeQuery(f, ref)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query universe: %w", err)
	}
	defer rows.Close()
	return scanPrices(rows)
}

// Symbols implements Store.
func (s *DuckStore) Symbols(ctx context.Context, f UniverseFilter) ([]string, error) {
	ref, err := s.referenceDate(ctx, f)
	if err != nil {
		return nil, err
	}
	q, args := symbolsQuery(f, ref)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// referenceDate is the end date MinHistoryYears counts back from.
func (s *DuckStore) referenceDate(ctx context.Context, f UniverseFilter) (time.Time, error) {
	if f.MinHistoryYears <= 0 || !f.To.IsZero() {
		return f.To, nil
	}
	var last sql.NullTime
	if err := s.db.QueryRowContext(ctx, maxDateSQL).Scan(&last); err != nil {
		return time.Time{}, fmt.Errorf("latest price date: %w", err)
	}
	return last.Time, nil
}

// Failures implements Store.
func (s *DuckStore) Failures(ctx context.Context, f FailureFilter) ([]model.FailedTicker, error) {
	q, args := failuresQuery(f)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()
	return scanFailures(rows)
}

// MacroSeries implements Store.
func (s *DuckStore) MacroSeries(ctx context.Context, seriesID string, from, to time.Time) ([]model.MacroPoint, error) {
	q, args := macroQuery(seriesID, from, to)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query macro %s: %w", seriesID, err)
	}
	defer rows.Close()
	return scanMacro(rows)
}

// CRSPReturns implements Store.
func (s *DuckStore) CRSPReturns(ctx context.Context, f CRSPFilter) ([]model.CRSPReturn, error) {
	q, args := crspQuery(f)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query crsp: %w", err)
	}
	defer rows.Close()
	return scanCRSP(rows)
}

// Stats implements Store.
func (s *DuckStore) Stats(ctx context.Context) (Stats, error) {
	var (
		st          Stats
		first, last sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, statsSQL).Scan(
		&st.PriceRows, &st.Symbols, &first, &last,
		&st.MacroSeries, &st.MacroObservations, &st.Failures,
		&st.CRSPReturns, &st.CRSPDelistings,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	if first.Valid {
		st.FirstDate = model.Day(first.Time)
	}
	if last.Valid {
		st.LastDate = model.Day(last.Time)
	}
	return st, nil
}

// Metrics returns cumulative write counters.
func (s *DuckStore) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// Close releases the database handle.
func (s *DuckStore) Close() error {
	return s.db.Close()
}

func (s *DuckStore) record(res WriteResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.metrics.Errors++
		return
	}
	s.metrics.record(res)
}

func (s *DuckStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func dayKey(key string, d time.Time) string {
	return key + "|" + d.Format(time.DateOnly)
}

// existingPriceDates returns the (symbol, date) keys of bars already stored.
// bars must be sorted by symbol then date.
func existingPriceDates(ctx context.Context, tx *sql.Tx, bars []model.PriceBar) (map[string]bool, error) {
	existing := make(map[string]bool)
	for start := 0; start < len(bars); {
		end := start
		for end < len(bars) && bars[end].Symbol == bars[start].Symbol {
			end++
		}
		sym, from, to := bars[start].Symbol, bars[start].Date, bars[end-1].Date

		rows, err := tx.QueryContext(ctx,
			`SELECT date FROM prices WHERE symbol = $1 AND date >= $2 AND date <= $3`, sym, from, to)
		if err != nil {
			return nil, fmt.Errorf("existing dates %s: %w", sym, err)
		}
		for rows.Next() {
			var d time.Time
			if err := rows.Scan(&d); err != nil {
				rows.Close()
				return nil, err
			}
			existing[dayKey(sym, model.Day(d))] = true
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
		start = end
	}
	return existing, nil
}

func existingMacroDates(ctx context.Context, tx *sql.Tx, points []model.MacroPoint) (map[string]bool, error) {
	existing := make(map[string]bool)
	for start := 0; start < len(points); {
		end := start
		for end < len(points) && points[end].SeriesID == points[start].SeriesID {
			end++
		}
		id, from, to := points[start].SeriesID, points[start].Date, points[end-1].Date

		rows, err := tx.QueryContext(ctx,
			`SELECT date FROM macro_observations WHERE series_id = $1 AND date >= $2 AND date <= $3`, id, from, to)
		if err != nil {
			return nil, fmt.Errorf("existing dates %s: %w", id, err)
		}
		for rows.Next() {
			var d time.Time
			if err := rows.Scan(&d); err != nil {
				rows.Close()
				return nil, err
			}
			existing[dayKey(id, model.Day(d))] = true
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
		start = end
	}
	return existing, nil
}

// existingPermnoDates returns the (permno, date) keys stored in table within
// the span of dates, which must be non-empty.
func existingPermnoDates(ctx context.Context, tx *sql.Tx, table string, dates []time.Time) (map[string]bool, error) {
	from, to := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(from) {
			from = d
		}
		if d.After(to) {
			to = d
		}
	}
	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT permno, date FROM %s WHERE date >= $1 AND date <= $2`, table), from, to)
	if err != nil {
		return nil, fmt.Errorf("existing dates %s: %w", table, err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var (
			permno int64
			d      time.Time
		)
		if err := rows.Scan(&permno, &d); err != nil {
			return nil, err
		}
		existing[permnoKey(permno, model.Day(d))] = true
	}
	return existing, rows.Err()
}

// insertMacro writes the points not already stored and counts the rest as
// duplicates.
func insertMacro(ctx context.Context, tx *sql.Tx, valid []model.MacroPoint, res *WriteResult) error {
	existing, err := existingMacroDates(ctx, tx, valid)
	if err != nil {
		return err
	}

	var args [][]any
	for _, p := range valid {
		if existing[dayKey(p.SeriesID, p.Date)] {
			res.Duplicates++
			continue
		}
		args = append(args, []any{p.SeriesID, p.Date, p.Value})
	}
	if err := insertChunked(ctx, tx, "macro_observations", "series_id, date, value", "series_id, date", args); err != nil {
		return err
	}
	res.Inserted = len(args)
	return nil
}

// insertChunked writes rows with multi-row INSERT ... ON CONFLICT DO NOTHING.
func insertChunked(ctx context.Context, tx *sql.Tx, table, columns, conflict string, rows [][]any) error {
	for start := 0; start < len(rows); start += duckInsertChunk {
		end := min(start+duckInsertChunk, len(rows))
		chunk := rows[start:end]

		var (
			sb   strings.Builder
			args []any
		)
		fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", table, columns)
		for i, r := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			for j, v := range r {
				if j > 0 {
					sb.WriteString(", ")
				}
				args = append(args, v)
				fmt.Fprintf(&sb, "$%d", len(args))
			}
			sb.WriteByte(')')
		}
		fmt.Fprintf(&sb, " ON CONFLICT (%s) DO NOTHING", conflict)

		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}
