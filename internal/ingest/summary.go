package ingest

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/market-ingest/internal/fetch"
)

// Summary reports the outcome of a run.
type Summary struct {
	RunID          uuid.UUID
	Source         string
	Total          int // distinct keys in the universe
	Skipped        int // already stored, not fetched
	Stored         int // fetched and written
	Failed         int // fetch failed, logged
	Rows           int // rows inserted
	Duplicates     int // rows already present
	Rejected       int // rows failing validation
	FailuresByKind map[fetch.Kind]int
	Duration       time.Duration
}

func newSummary(runID uuid.UUID, source string) Summary {
	return Summary{
		RunID:          runID,
		Source:         source,
		FailuresByKind: make(map[fetch.Kind]int),
	}
}

// Pending returns the keys that were neither stored, skipped nor failed,
// which is non-zero only for interrupted runs.
func (s Summary) Pending() int {
	return s.Total - s.Skipped - s.Stored - s.Failed
}

// LogAttrs returns the summary as slog key-value pairs.
func (s Summary) LogAttrs() []any {
	attrs := []any{
		"source", s.Source,
		"run_id", s.RunID,
		"total", s.Total,
		"skipped", s.Skipped,
		"stored", s.Stored,
		"failed", s.Failed,
		"pending", s.Pending(),
		"rows", s.Rows,
		"duplicates", s.Duplicates,
		"rejected", s.Rejected,
		"duration", s.Duration.Round(time.Millisecond),
	}
	for _, k := range fetch.Kinds {
		if n := s.FailuresByKind[k]; n > 0 {
			attrs = append(attrs, "failed_"+k.String(), n)
		}
	}
	return attrs
}

// Print writes a human-readable report.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "run %s (%s)\n", s.RunID, s.Source)
	fmt.Fprintf(w, "  keys:       %d\n", s.Total)
	fmt.Fprintf(w, "  skipped:    %d\n", s.Skipped)
	fmt.Fprintf(w, "  stored:     %d\n", s.Stored)
	fmt.Fprintf(w, "  failed:     %d\n", s.Failed)
	for _, k := range fetch.Kinds {
		if n := s.FailuresByKind[k]; n > 0 {
			fmt.Fprintf(w, "    %-20s %d\n", k, n)
		}
	}
	if p := s.Pending(); p > 0 {
		fmt.Fprintf(w, "  pending:    %d (interrupted)\n", p)
	}
	fmt.Fprintf(w, "  rows:       %d new, %d duplicate, %d rejected\n", s.Rows, s.Duplicates, s.Rejected)
	fmt.Fprintf(w, "  duration:   %s\n", s.Duration.Round(time.Millisecond))
}
