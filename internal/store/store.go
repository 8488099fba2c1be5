package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/market-ingest/internal/model"
)

// Store is the persistence layer used by ingestion and by read-side tools.
type Store interface {
	UpsertPrices(ctx context.Context, bars []model.PriceBar) (WriteResult, error)
	UpsertMacro(ctx context.Context, points []model.MacroPoint) (WriteResult, error)
	UpsertSeries(ctx context.Context, series model.MacroSeries) error
	// UpsertMacroSeries writes the series row and its points in one
	// transaction; neither is stored if any statement fails.
	UpsertMacroSeries(ctx context.Context, series model.MacroSeries, points []model.MacroPoint) (WriteResult, error)
	LogFailure(ctx context.Context, f model.FailedTicker) error
	// UpsertCRSP writes the daily returns and delistings of a batch in one
	// transaction.
	UpsertCRSP(ctx context.Context, batch model.CRSPBatch) (WriteResult, error)

	HasHistory(ctx context.Context, symbol string) (bool, error)
	HasCRSP(ctx context.Context, from, to time.Time) (bool, error)
	QueryUniverse(ctx context.Context, f UniverseFilter) ([]model.PriceBar, error)
	Symbols(ctx context.Context, f UniverseFilter) ([]string, error)
	Failures(ctx context.Context, f FailureFilter) ([]model.FailedTicker, error)
	MacroSeries(ctx context.Context, seriesID string, from, to time.Time) ([]model.MacroPoint, error)
	CRSPReturns(ctx context.Context, f CRSPFilter) ([]model.CRSPReturn, error)
	Stats(ctx context.Context) (Stats, error)

	Close() error
}

// WriteResult counts the outcome of one upsert call.
type WriteResult struct {
	Inserted   int // new rows
	Duplicates int // already stored or repeated within the call
	Rejected   int // failed validation, never written
}

// Add accumulates o into r.
func (r *WriteResult) Add(o WriteResult) {
	r.Inserted += o.Inserted
	r.Duplicates += o.Duplicates
	r.Rejected += o.Rejected
}

// UniverseFilter selects price history for downstream analytics. Zero
// values disable a criterion.
type UniverseFilter struct {
	Symbols []string
	From    time.Time
	To      time.Time

	// MinHistoryYears keeps symbols whose first bar is at or before
	// To minus N years and which still trade near To. When To is zero the
	// latest stored date is used.
	MinHistoryYears int

	// MinAvgPrice keeps symbols whose average close within [From, To] is
	// strictly above the threshold.
	MinAvgPrice float64
}

// FailureFilter selects rows from the failure log.
type FailureFilter struct {
	Symbol string
	RunID  uuid.UUID
	Kind   string
	Limit  int
}

// CRSPFilter selects rows from the CRSP daily returns. Zero values disable a
// criterion.
type CRSPFilter struct {
	PermNos []int64
	From    time.Time
	To      time.Time
}

// Stats summarizes table contents.
type Stats struct {
	PriceRows         int64
	Symbols           int64
	FirstDate         time.Time
	LastDate          time.Time
	MacroSeries       int64
	MacroObservations int64
	Failures          int64
	CRSPReturns       int64
	CRSPDelistings    int64
}
