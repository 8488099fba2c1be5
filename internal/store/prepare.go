package store

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/market-ingest/internal/model"
)

// preparePrices normalizes bars, drops invalid ones and repeats of the same
// (symbol, date). The first occurrence wins.
func preparePrices(bars []model.PriceBar) ([]model.PriceBar, WriteResult) {
	var res WriteResult
	valid := make([]model.PriceBar, 0, len(bars))
	for _, b := range bars {
		b.Symbol = model.NormalizeSymbol(b.Symbol)
		if !b.Date.IsZero() {
			b.Date = model.Day(b.Date)
		}
		if err := model.ValidatePriceBar(b); err != nil {
			res.Rejected++
			continue
		}
		valid = append(valid, b)
	}
	deduped := model.SortAndDedupePrices(valid)
	res.Duplicates = len(valid) - len(deduped)
	return deduped, res
}

func prepareMacro(points []model.MacroPoint) ([]model.MacroPoint, WriteResult) {
	var res WriteResult
	valid := make([]model.MacroPoint, 0, len(points))
	for _, p := range points {
		if !p.Date.IsZero() {
			p.Date = model.Day(p.Date)
		}
		if err := model.ValidateMacroPoint(p); err != nil {
			res.Rejected++
			continue
		}
		valid = append(valid, p)
	}
	deduped := model.SortAndDedupeMacro(valid)
	res.Duplicates = len(valid) - len(deduped)
	return deduped, res
}

// prepareSeriesPoints is prepareMacro for points that must all belong to
// series. A series without an id or a point of another series is an error.
func prepareSeriesPoints(series model.MacroSeries, points []model.MacroPoint) ([]model.MacroPoint, WriteResult, error) {
	if series.ID == "" {
		return nil, WriteResult{}, errors.New("upsert macro: series id is required")
	}
	for _, p := range points {
		if p.SeriesID != series.ID {
			return nil, WriteResult{}, fmt.Errorf("upsert macro %s: point belongs to %q", series.ID, p.SeriesID)
		}
	}
	valid, res := prepareMacro(points)
	return valid, res, nil
}

// prepareCRSP normalizes dates, drops invalid rows and repeats of the same
// (permno, date) in either table. Returned slices are sorted by permno then
// date.
func prepareCRSP(batch model.CRSPBatch) (model.CRSPBatch, WriteResult) {
	var res WriteResult

	returns := make([]model.CRSPReturn, 0, len(batch.Returns))
	for _, r := range batch.Returns {
		if !r.Date.IsZero() {
			r.Date = model.Day(r.Date)
		}
		if err := model.ValidateCRSPReturn(r); err != nil {
			res.Rejected++
			continue
		}
		returns = append(returns, r)
	}
	deduped := model.SortAndDedupeCRSP(returns)
	res.Duplicates = len(returns) - len(deduped)

	seen := make(map[string]bool, len(batch.Delistings))
	delistings := make([]model.Delisting, 0, len(batch.Delistings))
	for _, d := range batch.Delistings {
		if !d.Date.IsZero() {
			d.Date = model.Day(d.Date)
		}
		if err := model.ValidateDelisting(d); err != nil {
			res.Rejected++
			continue
		}
		k := permnoKey(d.PermNo, d.Date)
		if seen[k] {
			res.Duplicates++
			continue
		}
		seen[k] = true
		delistings = append(delistings, d)
	}
	sort.Slice(delistings, func(i, j int) bool {
		if delistings[i].PermNo != delistings[j].PermNo {
			return delistings[i].PermNo < delistings[j].PermNo
		}
		return delistings[i].Date.Before(delistings[j].Date)
	})

	return model.CRSPBatch{Returns: deduped, Delistings: delistings}, res
}

func permnoKey(permno int64, d time.Time) string {
	return dayKey(strconv.FormatInt(permno, 10), d)
}

// prepareFailure fills the id and timestamp when unset.
func prepareFailure(f model.FailedTicker) model.FailedTicker {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.At.IsZero() {
		f.At = time.Now()
	}
	f.At = f.At.UTC().Truncate(time.Microsecond)
	return f
}

// Metrics tracks cumulative write activity of a store.
type Metrics struct {
	Inserts    int64
	Duplicates int64
	Rejected   int64
	Failures   int64
	Errors     int64
}

func (m *Metrics) record(res WriteResult) {
	m.Inserts += int64(res.Inserted)
	m.Duplicates += int64(res.Duplicates)
	m.Rejected += int64(res.Rejected)
}
