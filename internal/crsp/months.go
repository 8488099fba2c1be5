package crsp

import (
	"fmt"
	"time"

	"github.com/rickgao/market-ingest/internal/model"
)

// monthLayout formats the key of a monthly window.
const monthLayout = "2006-01"

// Months returns the keys of every calendar month touching [from, to], oldest
// first. It is empty when to is before from.
func Months(from, to time.Time) []string {
	from, to = model.Day(from), model.Day(to)
	var out []string
	for m := monthStart(from); !m.After(to); m = m.AddDate(0, 1, 0) {
		out = append(out, m.Format(monthLayout))
	}
	return out
}

// MonthRange returns the first and last day of the month named by key,
// clamped to [from, to]. Zero bounds do not clamp.
func MonthRange(key string, from, to time.Time) (time.Time, time.Time, error) {
	start, err := time.Parse(monthLayout, key)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse month %q: %w", key, err)
	}
	end := start.AddDate(0, 1, -1)
	if !from.IsZero() && model.Day(from).After(start) {
		start = model.Day(from)
	}
	if !to.IsZero() && model.Day(to).Before(end) {
		end = model.Day(to)
	}
	return start, end, nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
