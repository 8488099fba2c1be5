package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/market-ingest/internal/model"
)

// PGStore is a Store over a PostgreSQL pool.
type PGStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	mu      sync.Mutex
	metrics Metrics
}

var _ Store = (*PGStore)(nil)

// NewPGStore wraps pool and creates the schema if needed. The store takes
// ownership of pool.
func NewPGStore(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*PGStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PGStore{pool: pool, logger: logger}

	batch := &pgx.Batch{}
	for _, stmt := range schema {
		batch.Queue(stmt)
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

// UpsertPrices implements Store.
func (s *PGStore) UpsertPrices(ctx context.Context, bars []model.PriceBar) (WriteResult, error) {
	valid, res := preparePrices(bars)
	if len(valid) == 0 {
		s.record(res, nil)
		return res, nil
	}

	batch := &pgx.Batch{}
	for _, b := range valid {
		batch.Queue(insertPriceSQL, priceArgs(b)...)
	}

	inserted, conflicts, err := s.sendInTx(ctx, batch, 0, len(valid))
	if err != nil {
		s.record(WriteResult{}, err)
		return WriteResult{}, fmt.Errorf("upsert prices: %w", err)
	}
	res.Inserted = inserted
	res.Duplicates += conflicts

	s.record(res, nil)
	return res, nil
}

// UpsertMacro implements Store.
func (s *PGStore) UpsertMacro(ctx context.Context, points []model.MacroPoint) (WriteResult, error) {
	valid, res := prepareMacro(points)
	if len(valid) == 0 {
		s.record(res, nil)
		return res, nil
	}

	batch := &pgx.Batch{}
	for _, p := range valid {
		batch.Queue(insertMacroSQL, p.SeriesID, p.Date, p.Value)
	}

	inserted, conflicts, err := s.sendInTx(ctx, batch, 0, len(valid))
	if err != nil {
		s.record(WriteResult{}, err)
		return WriteResult{}, fmt.Errorf("upsert macro: %w", err)
	}
	res.Inserted = inserted
	res.Duplicates += conflicts

	s.record(res, nil)
	return res, nil
}

// UpsertMacroSeries implements Store.
func (s *PGStore) UpsertMacroSeries(ctx context.Context, series model.MacroSeries, points []model.MacroPoint) (WriteResult, error) {
	valid, res, err := prepareSeriesPoints(series, points)
	if err != nil {
		return WriteResult{}, err
	}
	if len(valid) == 0 {
		s.record(res, nil)
		return res, nil
	}

	batch := &pgx.Batch{}
	batch.Queue(upsertSeriesSQL, series.ID, series.Name)
	for _, p := range valid {
		batch.Queue(insertMacroSQL, p.SeriesID, p.Date, p.Value)
	}

	inserted, conflicts, err := s.sendInTx(ctx, batch, 1, len(valid))
	if err != nil {
		s.record(WriteResult{}, err)
		return WriteResult{}, fmt.Errorf("upsert macro %s: %w", series.ID, err)
	}
	res.Inserted = inserted
	res.Duplicates += conflicts

	s.record(res, nil)
	return res, nil
}

// UpsertCRSP implements Store.
func (s *PGStore) UpsertCRSP(ctx context.Context, batch model.CRSPBatch) (WriteResult, error) {
	valid, res := prepareCRSP(batch)
	if valid.Len() == 0 {
		s.record(res, nil)
		return res, nil
	}

	b := &pgx.Batch{}
	for _, r := range valid.Returns {
		b.Queue(insertCRSPReturnSQL, crspReturnArgs(r)...)
	}
	for _, d := range valid.Delistings {
		b.Queue(insertDelistingSQL, delistingArgs(d)...)
	}

	inserted, conflicts, err := s.sendInTx(ctx, b, 0, valid.Len())
	if err != nil {
		s.record(WriteResult{}, err)
		return WriteResult{}, fmt.Errorf("upsert crsp: %w", err)
	}
	res.Inserted = inserted
	res.Duplicates += conflicts

	s.record(res, nil)
	return res, nil
}

// sendInTx runs batch inside one transaction. The first lead statements are
// executed without counting; conflicts among the next n are counted via
// RowsAffected() == 0.
func (s *PGStore) sendInTx(ctx context.Context, batch *pgx.Batch, lead, n int) (inserted, conflicts int, err error) {
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		inserted, conflicts = 0, 0
		results := tx.SendBatch(ctx, batch)
		defer results.Close()

		for i := 0; i < lead; i++ {
			if _, err := results.Exec(); err != nil {
				return err
			}
		}
		for i := 0; i < n; i++ {
			ct, err := results.Exec()
			if err != nil {
				return err
			}
			if ct.RowsAffected() == 0 {
				conflicts++
			} else {
				inserted++
			}
		}
		return results.Close()
	})
	return inserted, conflicts, err
}

// UpsertSeries implements Store.
func (s *PGStore) UpsertSeries(ctx context.Context, series model.MacroSeries) error {
	if _, err := s.pool.Exec(ctx, upsertSeriesSQL, series.ID, series.Name); err != nil {
		return fmt.Errorf("upsert series %s: %w", series.ID, err)
	}
	return nil
}

// LogFailure implements Store.
func (s *PGStore) LogFailure(ctx context.Context, f model.FailedTicker) error {
	f = prepareFailure(f)
	if _, err := s.pool.Exec(ctx, insertFailureSQL, failureArgs(f)...); err != nil {
		s.record(WriteResult{}, err)
		return fmt.Errorf("log failure %s: %w", f.Symbol, err)
	}
	s.mu.Lock()
	s.metrics.Failures++
	s.mu.Unlock()
	return nil
}

// HasHistory implements Store.
func (s *PGStore) HasHistory(ctx context.Context, symbol string) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, hasHistorySQL, model.NormalizeSymbol(symbol)).Scan(&ok); err != nil {
		return false, fmt.Errorf("has history %s: %w", symbol, err)
	}
	return ok, nil
}

// HasCRSP implements Store.
func (s *PGStore) HasCRSP(ctx context.Context, from, to time.Time) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, hasCRSPSQL, model.Day(from), model.Day(to)).Scan(&ok); err != nil {
		return false, fmt.Errorf("has crsp %s: %w", from.Format(time.DateOnly), err)
	}
	return ok, nil
}

// QueryUniverse implements Store.
func (s *PGStore) QueryUniverse(ctx context.Context, f UniverseFilter) ([]model.PriceBar, error) {
	ref, err := s.referenceDate(ctx, f)
	if err != nil {
		return nil, err
	}
	q, args := universeQuery(f, ref)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query universe: %w", err)
	}
	defer rows.Close()
	return scanPrices(rows)
}

// Symbols implements Store.
func (s *PGStore) Symbols(ctx context.Context, f UniverseFilter) ([]string, error) {
	ref, err := s.referenceDate(ctx, f)
	if err != nil {
		return nil, err
	}
	q, args := symbolsQuery(f, ref)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *PGStore) referenceDate(ctx context.Context, f UniverseFilter) (time.Time, error) {
	if f.MinHistoryYears <= 0 || !f.To.IsZero() {
		return f.To, nil
	}
	var last *time.Time
	err := s.pool.QueryRow(ctx, maxDateSQL).Scan(&last)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, fmt.Errorf("latest price date: %w", err)
	}
	if last == nil {
		return time.Time{}, nil
	}
	return *last, nil
}

// Failures implements Store.
func (s *PGStore) Failures(ctx context.Context, f FailureFilter) ([]model.FailedTicker, error) {
	q, args := failuresQuery(f)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()
	return scanFailures(rows)
}

// MacroSeries implements Store.
func (s *PGStore) MacroSeries(ctx context.Context, seriesID string, from, to time.Time) ([]model.MacroPoint, error) {
	q, args := macroQuery(seriesID, from, to)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query macro %s: %w", seriesID, err)
	}
	defer rows.Close()
	return scanMacro(rows)
}

// CRSPReturns implements Store.
func (s *PGStore) CRSPReturns(ctx context.Context, f CRSPFilter) ([]model.CRSPReturn, error) {
	q, args := crspQuery(f)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query crsp: %w", err)
	}
	defer rows.Close()
	return scanCRSP(rows)
}

// Stats implements Store.
func (s *PGStore) Stats(ctx context.Context) (Stats, error) {
	var (
		st          Stats
		first, last *time.Time
	)
	err := s.pool.QueryRow(ctx, statsSQL).Scan(
		&st.PriceRows, &st.Symbols, &first, &last,
		&st.MacroSeries, &st.MacroObservations, &st.Failures,
		&st.CRSPReturns, &st.CRSPDelistings,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	if first != nil {
		st.FirstDate = model.Day(*first)
	}
	if last != nil {
		st.LastDate = model.Day(*last)
	}
	return st, nil
}

// Metrics returns cumulative write counters.
func (s *PGStore) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// Close releases the pool.
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PGStore) record(res WriteResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.metrics.Errors++
		return
	}
	s.metrics.record(res)
}
