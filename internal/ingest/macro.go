package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/market-ingest/internal/model"
	"github.com/rickgao/market-ingest/internal/store"
	"github.com/rickgao/market-ingest/internal/universe"
)

// MacroFetcher downloads observations for one series.
type MacroFetcher interface {
	FetchSeries(ctx context.Context, seriesID string, from, to time.Time) ([]model.MacroPoint, error)
}

// Titler resolves a human readable series name. fred.Client implements it.
type Titler interface {
	SeriesTitle(ctx context.Context, seriesID string) (string, error)
}

// NewMacro builds the macro run over series. Series are always refetched;
// overlapping observations are absorbed by the store. The metadata row is
// written in the same transaction as the observations, named from config,
// else the fetcher's title when it implements Titler, else the id.
func NewMacro(
	cfg Config,
	series []model.MacroSeries,
	fetcher MacroFetcher,
	st store.Store,
	logger *slog.Logger,
) *Orchestrator[model.MacroPoint] {
	if logger == nil {
		logger = slog.Default()
	}

	ids := make(universe.Static, 0, len(series))
	var mu sync.Mutex
	names := make(map[string]string, len(series))
	for _, s := range series {
		ids = append(ids, s.ID)
		names[s.ID] = s.Name
	}
	titler, _ := fetcher.(Titler)

	fetchFn := func(ctx context.Context, id string, from, to time.Time) ([]model.MacroPoint, error) {
		points, err := fetcher.FetchSeries(ctx, id, from, to)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		name := names[id]
		mu.Unlock()
		if name == "" && titler != nil {
			title, terr := titler.SeriesTitle(ctx, id)
			if terr != nil {
				logger.Debug("series title lookup failed", "series", id, "err", terr)
			} else {
				mu.Lock()
				names[id] = title
				mu.Unlock()
			}
		}
		return points, nil
	}

	writeFn := func(ctx context.Context, id string, points []model.MacroPoint) (store.WriteResult, error) {
		mu.Lock()
		name := names[id]
		mu.Unlock()
		if name == "" {
			name = id
		}
		return st.UpsertMacroSeries(ctx, model.MacroSeries{ID: id, Name: name}, points)
	}

	return New[model.MacroPoint](cfg, model.SourceMacro, ids, FetchFunc[model.MacroPoint](fetchFn), writeFn, st, nil, logger)
}
