// Package model defines shared data types used across the ingestion pipeline.
//
// All types mirror the database schema owned by internal/store.
//
// Conventions:
//   - Dates: time.Time truncated to a UTC calendar day (see Day)
//   - Prices: float64 in the listing currency
//   - Returns: *float64, nil when undefined (first bar, non-positive prices)
//   - IDs: upper-case strings for symbols and series, int64 PERMNOs for CRSP,
//     uuid.UUID for runs and failures
package model
