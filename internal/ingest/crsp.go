package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/rickgao/market-ingest/internal/crsp"
	"github.com/rickgao/market-ingest/internal/model"
	"github.com/rickgao/market-ingest/internal/progress"
	"github.com/rickgao/market-ingest/internal/store"
	"github.com/rickgao/market-ingest/internal/universe"
)

// CRSPFetcher downloads one month of CRSP rows. crsp.Client implements it.
type CRSPFetcher interface {
	FetchMonth(ctx context.Context, month string, from, to time.Time) (model.CRSPBatch, error)
}

// NewCRSP builds the CRSP run: one key per calendar month in [cfg.From,
// cfg.To], each written as a single transaction.
func NewCRSP(
	cfg Config,
	fetcher CRSPFetcher,
	st store.Store,
	tracker *progress.Tracker,
	logger *slog.Logger,
) *Orchestrator[model.CRSPBatch] {
	months := universe.Static(crsp.Months(cfg.From, cfg.To))

	fetchFn := func(ctx context.Context, month string, from, to time.Time) ([]model.CRSPBatch, error) {
		batch, err := fetcher.FetchMonth(ctx, month, from, to)
		if err != nil || batch.Len() == 0 {
			return nil, err
		}
		return []model.CRSPBatch{batch}, nil
	}

	writeFn := func(ctx context.Context, _ string, batches []model.CRSPBatch) (store.WriteResult, error) {
		var total store.WriteResult
		for _, b := range batches {
			res, err := st.UpsertCRSP(ctx, b)
			if err != nil {
				return total, err
			}
			total.Add(res)
		}
		return total, nil
	}

	return New[model.CRSPBatch](cfg, model.SourceCRSP, months, FetchFunc[model.CRSPBatch](fetchFn), writeFn, st, tracker, logger)
}

// CRSPMonths reports a month as fetched once it has ended and st holds rows
// for it. The month containing now is never skipped.
type CRSPMonths struct {
	Store store.Store
	Now   func() time.Time
}

// NewCRSPTracker returns a tracker that skips completed, stored months.
func NewCRSPTracker(st store.Store) *progress.Tracker {
	return progress.NewTracker(CRSPMonths{Store: st, Now: time.Now})
}

// HasHistory implements progress.HistoryChecker for month keys.
func (m CRSPMonths) HasHistory(ctx context.Context, month string) (bool, error) {
	start, end, err := crsp.MonthRange(month, time.Time{}, time.Time{})
	if err != nil {
		return false, err
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	if !end.Before(model.Day(now())) {
		return false, nil
	}
	return m.Store.HasCRSP(ctx, start, end)
}
