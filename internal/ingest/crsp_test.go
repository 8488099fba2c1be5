package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/market-ingest/internal/fetch"
	"github.com/rickgao/market-ingest/internal/model"
	"github.com/rickgao/market-ingest/internal/progress"
	"github.com/rickgao/market-ingest/internal/store"
)

// fakeCRSP serves canned monthly batches and counts calls per month.
type fakeCRSP struct {
	mu    sync.Mutex
	data  map[string]model.CRSPBatch
	errs  map[string]error
	calls map[string]int
}

func (f *fakeCRSP) FetchMonth(_ context.Context, month string, _, _ time.Time) (model.CRSPBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[month]++
	if err := f.errs[month]; err != nil {
		return model.CRSPBatch{}, err
	}
	return f.data[month], nil
}

func crspReturn(permno int64, d time.Time, ret float64) model.CRSPReturn {
	return model.CRSPReturn{PermNo: permno, Date: d, Return: &ret, ExchangeCode: 1}
}

func crspFixture() *fakeCRSP {
	jan := []model.CRSPReturn{
		crspReturn(10001, day(2024, 1, 2), 0.01),
		crspReturn(10001, day(2024, 1, 3), 0.02),
	}
	mar := []model.CRSPReturn{crspReturn(10001, day(2024, 3, 1), -0.01)}
	dl := []model.Delisting{{PermNo: 10001, Date: day(2024, 3, 1), Code: 500}}
	model.MergeDelistings(mar, dl)
	return &fakeCRSP{
		data: map[string]model.CRSPBatch{
			"2024-01": {Returns: jan},
			"2024-03": {Returns: mar, Delistings: dl},
		},
		errs: map[string]error{
			"2024-04": fetch.Errorf(fetch.MalformedResponse, "2024-04", "scan daily return"),
		},
	}
}

func TestCRSPRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	cfg := Config{From: day(2024, 1, 15), To: day(2024, 4, 10), Workers: 2}
	fetcher := crspFixture()

	sum, err := NewCRSP(cfg, fetcher, st, progress.Disabled(), quietLogger()).Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sum.Source != model.SourceCRSP {
		t.Errorf("Source = %q, want %q", sum.Source, model.SourceCRSP)
	}
	if sum.Total != 4 || sum.Stored != 2 || sum.Failed != 2 {
		t.Errorf("summary = %+v, want 4 total, 2 stored, 2 failed", sum)
	}
	if sum.Rows != 4 {
		t.Errorf("Rows = %d, want 4", sum.Rows)
	}
	if sum.FailuresByKind[fetch.NotFound] != 1 || sum.FailuresByKind[fetch.MalformedResponse] != 1 {
		t.Errorf("FailuresByKind = %v, want 1 not_found, 1 malformed_response", sum.FailuresByKind)
	}

	failures, err := st.Failures(ctx, store.FailureFilter{Symbol: "2024-02"})
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 1 || failures[0].Source != model.SourceCRSP {
		t.Errorf("failures for 2024-02 = %+v, want one crsp row", failures)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.CRSPReturns != 3 || stats.CRSPDelistings != 1 {
		t.Errorf("Stats() crsp = %d returns, %d delistings, want 3, 1", stats.CRSPReturns, stats.CRSPDelistings)
	}
}

func TestCRSPRunSkipsCompletedMonths(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	cfg := Config{From: day(2024, 1, 1), To: day(2024, 3, 31), Workers: 1}
	fetcher := crspFixture()

	if _, err := NewCRSP(cfg, fetcher, st, progress.Disabled(), quietLogger()).Run(ctx); err != nil {
		t.Fatal(err)
	}

	tracker := progress.NewTracker(CRSPMonths{Store: st, Now: func() time.Time { return day(2024, 3, 20) }})
	sum, err := NewCRSP(cfg, fetcher, st, tracker, quietLogger()).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// january is complete and stored; march is still open
	if sum.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", sum.Skipped)
	}
	if got := fetcher.calls["2024-01"]; got != 1 {
		t.Errorf("2024-01 fetched %d times, want 1", got)
	}
	if got := fetcher.calls["2024-03"]; got != 2 {
		t.Errorf("2024-03 fetched %d times, want 2", got)
	}
	if sum.Rows != 0 || sum.Duplicates != 2 {
		t.Errorf("rerun rows = %d, duplicates = %d, want 0, 2", sum.Rows, sum.Duplicates)
	}
}

func TestCRSPMonthsHasHistory(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	if _, err := st.UpsertCRSP(ctx, model.CRSPBatch{Returns: []model.CRSPReturn{
		crspReturn(10001, day(2024, 1, 2), 0.01),
		crspReturn(10001, day(2024, 2, 1), 0.01),
	}}); err != nil {
		t.Fatal(err)
	}
	m := CRSPMonths{Store: st, Now: func() time.Time { return day(2024, 2, 29) }}

	tests := []struct {
		month string
		want  bool
	}{
		{"2024-01", true},
		{"2024-02", false}, // ends today
		{"2023-12", false},
	}
	for _, tt := range tests {
		t.Run(tt.month, func(t *testing.T) {
			got, err := m.HasHistory(ctx, tt.month)
			if err != nil {
				t.Fatalf("HasHistory() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HasHistory(%s) = %v, want %v", tt.month, got, tt.want)
			}
		})
	}

	if _, err := m.HasHistory(ctx, "Jan 2024"); err == nil {
		t.Error("HasHistory(bad key) error = nil, want error")
	}
}
