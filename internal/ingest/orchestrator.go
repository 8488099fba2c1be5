package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/market-ingest/internal/fetch"
	"github.com/rickgao/market-ingest/internal/model"
	"github.com/rickgao/market-ingest/internal/progress"
	"github.com/rickgao/market-ingest/internal/store"
	"github.com/rickgao/market-ingest/internal/universe"
)

// State is the lifecycle position of one key within a run.
type State string

const (
	StatePending  State = "pending"
	StateFetching State = "fetching"
	StateStored   State = "stored"
	StateFailed   State = "failed"
)

// Fetcher downloads the records for one key.
type Fetcher[R any] interface {
	Fetch(ctx context.Context, key string, from, to time.Time) ([]R, error)
}

// FetchFunc is a function adapter for Fetcher.
type FetchFunc[R any] func(ctx context.Context, key string, from, to time.Time) ([]R, error)

func (f FetchFunc[R]) Fetch(ctx context.Context, key string, from, to time.Time) ([]R, error) {
	return f(ctx, key, from, to)
}

// WriteFunc persists the records of one key atomically.
type WriteFunc[R any] func(ctx context.Context, key string, records []R) (store.WriteResult, error)

// FailureLogger records a failed key.
type FailureLogger interface {
	LogFailure(ctx context.Context, f model.FailedTicker) error
}

// Config holds orchestrator configuration.
type Config struct {
	From       time.Time
	To         time.Time
	Workers    int           // Concurrent fetches (default: 1)
	KeyTimeout time.Duration // Per-key fetch deadline including retries (0: none)
}

// Orchestrator runs one ingestion pass over a universe of keys.
type Orchestrator[R any] struct {
	cfg      Config
	source   string
	keys     universe.Source
	fetcher  Fetcher[R]
	write    WriteFunc[R]
	failures FailureLogger
	tracker  *progress.Tracker
	logger   *slog.Logger

	// OnTransition, when set, observes every state change. It may be called
	// from several goroutines.
	OnTransition func(key string, state State)

	writeMu sync.Mutex
}

// New creates an orchestrator. source is stamped on failure rows
// (model.SourcePrices, model.SourceMacro or model.SourceCRSP). A nil tracker never skips.
func New[R any](
	cfg Config,
	source string,
	keys universe.Source,
	fetcher Fetcher[R],
	write WriteFunc[R],
	failures FailureLogger,
	tracker *progress.Tracker,
	logger *slog.Logger,
) *Orchestrator[R] {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Orchestrator[R]{
		cfg:      cfg,
		source:   source,
		keys:     keys,
		fetcher:  fetcher,
		write:    write,
		failures: failures,
		tracker:  tracker,
		logger:   logger,
	}
}

// Run processes every key once. Per-key fetch failures are logged to the
// store and counted; the returned error is non-nil only for fatal conditions
// or cancellation, in which case the summary covers the keys completed so far.
func (o *Orchestrator[R]) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	sum := newSummary(uuid.New(), o.source)

	keys, err := o.keys.List(ctx)
	if err != nil {
		return sum, fmt.Errorf("list universe: %w", err)
	}
	keys = dedupe(keys)
	sum.Total = len(keys)

	o.logger.Info("ingestion started",
		"source", o.source,
		"run_id", sum.RunID,
		"keys", len(keys),
		"workers", o.cfg.Workers,
		"from", o.cfg.From.Format(time.DateOnly),
		"to", o.cfg.To.Format(time.DateOnly),
	)

	runID := sum.RunID
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	for _, key := range keys {
		if gctx.Err() != nil {
			break
		}
		o.transition(key, StatePending)
		g.Go(func() error {
			return o.process(gctx, runID, key, &sum, &mu)
		})
	}

	err = g.Wait()
	sum.Duration = time.Since(start)

	o.logger.Info("ingestion complete", sum.LogAttrs()...)

	if err != nil {
		return sum, err
	}
	if ctx.Err() != nil {
		return sum, ctx.Err()
	}
	return sum, nil
}

// process moves one key through its lifecycle. A returned error aborts the run.
func (o *Orchestrator[R]) process(ctx context.Context, runID uuid.UUID, key string, sum *Summary, mu *sync.Mutex) error {
	if ctx.Err() != nil {
		return nil
	}

	done, err := o.tracker.AlreadyFetched(ctx, key)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if done {
		o.logger.Debug("already fetched, skipping", "key", key)
		mu.Lock()
		sum.Skipped++
		mu.Unlock()
		o.transition(key, StateStored)
		return nil
	}

	o.transition(key, StateFetching)

	fetchCtx := ctx
	if o.cfg.KeyTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, o.cfg.KeyTimeout)
		defer cancel()
	}

	records, err := o.fetcher.Fetch(fetchCtx, key, o.cfg.From, o.cfg.To)
	if err == nil && len(records) == 0 {
		err = fetch.Errorf(fetch.NotFound, key, "no data")
	}
	if err != nil {
		if ctx.Err() != nil {
			// run cancelled mid-fetch; the key stays pending for the next run
			return nil
		}
		return o.recordFailure(ctx, runID, key, err, sum, mu)
	}

	// finish the write even if the run is being cancelled
	wctx := context.WithoutCancel(ctx)
	o.writeMu.Lock()
	res, err := o.write(wctx, key, records)
	o.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}

	mu.Lock()
	sum.Stored++
	sum.Rows += res.Inserted
	sum.Duplicates += res.Duplicates
	sum.Rejected += res.Rejected
	mu.Unlock()

	o.logger.Debug("stored",
		"key", key,
		"rows", res.Inserted,
		"duplicates", res.Duplicates,
		"rejected", res.Rejected,
	)
	o.transition(key, StateStored)
	return nil
}

func (o *Orchestrator[R]) recordFailure(ctx context.Context, runID uuid.UUID, key string, ferr error, sum *Summary, mu *sync.Mutex) error {
	kind := fetch.KindOf(ferr)
	var fe *fetch.Error
	msg := ferr.Error()
	if errors.As(ferr, &fe) && fe.Err != nil {
		msg = fe.Err.Error()
	}

	o.writeMu.Lock()
	err := o.failures.LogFailure(context.WithoutCancel(ctx), model.FailedTicker{
		RunID:   runID,
		Symbol:  key,
		Source:  o.source,
		At:      time.Now(),
		Kind:    kind.String(),
		Message: msg,
	})
	o.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("record failure %s: %w", key, err)
	}

	mu.Lock()
	sum.Failed++
	sum.FailuresByKind[kind]++
	mu.Unlock()

	o.logger.Warn("fetch failed", "key", key, "kind", kind, "err", ferr)
	o.transition(key, StateFailed)
	return nil
}

func (o *Orchestrator[R]) transition(key string, s State) {
	if o.OnTransition != nil {
		o.OnTransition(key, s)
	}
}

// dedupe drops repeated keys, keeping first-seen order.
func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
