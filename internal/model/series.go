package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// NormalizeSymbol trims and upper-cases a ticker or series identifier.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Day truncates t to midnight UTC of its calendar day (in t's own location).
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SortAndDedupePrices orders bars by date and keeps the first bar seen for each
// (symbol, date) pair. The input slice is not modified.
func SortAndDedupePrices(bars []PriceBar) []PriceBar {
	out := make([]PriceBar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Date.Before(out[j].Date)
	})

	result := out[:0]
	for i, b := range out {
		if i > 0 && b.Symbol == out[i-1].Symbol && b.Date.Equal(out[i-1].Date) {
			continue
		}
		result = append(result, b)
	}
	return result
}

// SortAndDedupeMacro orders points by date and keeps the first point seen for
// each (series, date) pair. The input slice is not modified.
func SortAndDedupeMacro(points []MacroPoint) []MacroPoint {
	out := make([]MacroPoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SeriesID != out[j].SeriesID {
			return out[i].SeriesID < out[j].SeriesID
		}
		return out[i].Date.Before(out[j].Date)
	})

	result := out[:0]
	for i, p := range out {
		if i > 0 && p.SeriesID == out[i-1].SeriesID && p.Date.Equal(out[i-1].Date) {
			continue
		}
		result = append(result, p)
	}
	return result
}

// ComputeReturns fills DailyReturn and LogReturn for bars of a single symbol,
// which must already be sorted by date.
func ComputeReturns(bars []PriceBar) {
	for i := range bars {
		bars[i].DailyReturn = nil
		bars[i].LogReturn = nil
		if i == 0 {
			continue
		}
		prev, cur := bars[i-1].AdjClose, bars[i].AdjClose
		if prev <= 0 || cur <= 0 {
			continue
		}
		daily := cur/prev - 1
		logRet := math.Log(cur / prev)
		bars[i].DailyReturn = &daily
		bars[i].LogReturn = &logRet
	}
}

// ErrInvalidRecord is wrapped by the validation helpers.
var ErrInvalidRecord = errors.New("invalid record")

// ValidatePriceBar reports whether a bar can be written to the price table.
func ValidatePriceBar(b PriceBar) error {
	switch {
	case b.Symbol == "":
		return fmt.Errorf("%w: empty symbol", ErrInvalidRecord)
	case b.Date.IsZero():
		return fmt.Errorf("%w: %s has zero date", ErrInvalidRecord, b.Symbol)
	case !finite(b.Close) || b.Close <= 0:
		return fmt.Errorf("%w: %s %s close %v", ErrInvalidRecord, b.Symbol, b.Date.Format(time.DateOnly), b.Close)
	case !finite(b.Open) || !finite(b.High) || !finite(b.Low) || !finite(b.AdjClose):
		return fmt.Errorf("%w: %s %s non-finite price", ErrInvalidRecord, b.Symbol, b.Date.Format(time.DateOnly))
	case b.Volume < 0:
		return fmt.Errorf("%w: %s %s negative volume", ErrInvalidRecord, b.Symbol, b.Date.Format(time.DateOnly))
	}
	return nil
}

// ValidateMacroPoint reports whether a point can be written to the macro table.
func ValidateMacroPoint(p MacroPoint) error {
	switch {
	case p.SeriesID == "":
		return fmt.Errorf("%w: empty series id", ErrInvalidRecord)
	case p.Date.IsZero():
		return fmt.Errorf("%w: %s has zero date", ErrInvalidRecord, p.SeriesID)
	case !finite(p.Value):
		return fmt.Errorf("%w: %s %s value %v", ErrInvalidRecord, p.SeriesID, p.Date.Format(time.DateOnly), p.Value)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
