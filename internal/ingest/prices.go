package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/rickgao/market-ingest/internal/model"
	"github.com/rickgao/market-ingest/internal/progress"
	"github.com/rickgao/market-ingest/internal/store"
	"github.com/rickgao/market-ingest/internal/universe"
)

// PriceFetcher downloads daily bars for one symbol.
type PriceFetcher interface {
	FetchPrices(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error)
}

// NewPrices builds the equity-price run: symbols come from keys, symbols that
// already have history in st are skipped unless tracker is progress.Disabled().
func NewPrices(
	cfg Config,
	keys universe.Source,
	fetcher PriceFetcher,
	st store.Store,
	tracker *progress.Tracker,
	logger *slog.Logger,
) *Orchestrator[model.PriceBar] {
	return New[model.PriceBar](cfg, model.SourcePrices, keys,
		FetchFunc[model.PriceBar](fetcher.FetchPrices),
		func(ctx context.Context, _ string, bars []model.PriceBar) (store.WriteResult, error) {
			return st.UpsertPrices(ctx, bars)
		},
		st, tracker, logger,
	)
}
