package model

import (
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Time-Series Types
// -----------------------------------------------------------------------------

// PriceBar is one daily bar for a ticker.
type PriceBar struct {
	Symbol      string    // Ticker symbol (e.g., "AAPL")
	Date        time.Time // Trading day (UTC midnight)
	Open        float64
	High        float64
	Low         float64
	Close       float64
	AdjClose    float64  // Split/dividend adjusted close, falls back to Close
	Volume      int64    // Shares traded
	DailyReturn *float64 // AdjClose / prev AdjClose - 1
	LogReturn   *float64 // ln(AdjClose / prev AdjClose)
}

// MacroPoint is one observation of a macroeconomic series.
type MacroPoint struct {
	SeriesID string    // Provider series identifier (e.g., "CPIAUCSL")
	Date     time.Time // Observation date (UTC midnight)
	Value    float64
}

// -----------------------------------------------------------------------------
// Relational Types
// -----------------------------------------------------------------------------

// MacroSeries is the metadata row describing a macro series.
type MacroSeries struct {
	ID   string // Primary key (e.g., "M2SL")
	Name string // Human readable name
}

// Failure sources, recorded on FailedTicker.Source.
const (
	SourcePrices = "prices"
	SourceMacro  = "macro"
)

// FailedTicker records one failed fetch. Rows are append-only.
type FailedTicker struct {
	ID      uuid.UUID // Primary key
	RunID   uuid.UUID // Ingestion run that produced the failure
	Symbol  string    // Ticker symbol, macro series id or CRSP month
	Source  string    // SourcePrices, SourceMacro or SourceCRSP
	At      time.Time // When the failure was recorded
	Kind    string    // Failure classification (fetch.Kind string form)
	Message string    // Optional detail
}
