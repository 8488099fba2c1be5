// Package progress decides which keys a rerun can skip.
//
// Skipping is only an optimization: every write is an idempotent upsert, so a
// key fetched twice produces the same stored rows.
package progress

import (
	"context"
	"fmt"
)

// HistoryChecker reports whether any rows are stored for a key.
type HistoryChecker interface {
	HasHistory(ctx context.Context, key string) (bool, error)
}

// Tracker answers AlreadyFetched from stored history. A nil Tracker never
// skips.
type Tracker struct {
	history  HistoryChecker
	disabled bool
}

// NewTracker returns a tracker backed by h.
func NewTracker(h HistoryChecker) *Tracker {
	return &Tracker{history: h}
}

// Disabled returns a tracker that never skips, used to force a refetch.
func Disabled() *Tracker {
	return &Tracker{disabled: true}
}

// AlreadyFetched reports whether key has non-empty stored history.
func (t *Tracker) AlreadyFetched(ctx context.Context, key string) (bool, error) {
	if t == nil || t.disabled || t.history == nil {
		return false, nil
	}
	ok, err := t.history.HasHistory(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check progress %s: %w", key, err)
	}
	return ok, nil
}
