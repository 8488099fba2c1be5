package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/market-ingest/internal/model"
)

// tradingGrace is how far the last bar may trail the reference date for a
// symbol to count as still trading.
const tradingGrace = 10 * 24 * time.Hour

const (
	priceColumns      = `symbol, date, open, high, low, close, adj_close, volume, daily_return, log_return`
	crspReturnColumns = `permno, date, ticker, company_name, ret, price, exchange_code, dlret, total_return, log_return`
	delistingColumns  = `permno, date, dlret, dlretx, dlstcd, dlprc`
)

// queryBuilder accumulates WHERE clauses with numbered placeholders.
type queryBuilder struct {
	where []string
	args  []any
}

func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) add(format string, args ...any) {
	b.where = append(b.where, fmt.Sprintf(format, args...))
}

func (b *queryBuilder) clause() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

// universeConditions builds the shared filter for QueryUniverse and Symbols.
// ref is the reference end date for MinHistoryYears.
func universeConditions(f UniverseFilter, ref time.Time) *queryBuilder {
	b := &queryBuilder{}

	if len(f.Symbols) > 0 {
		ph := make([]string, len(f.Symbols))
		for i, s := range f.Symbols {
			ph[i] = b.arg(model.NormalizeSymbol(s))
		}
		b.add("symbol IN (%s)", strings.Join(ph, ", "))
	}
	if !f.From.IsZero() {
		b.add("date >= %s", b.arg(model.Day(f.From)))
	}
	if !f.To.IsZero() {
		b.add("date <= %s", b.arg(model.Day(f.To)))
	}

	if f.MinHistoryYears > 0 && !ref.IsZero() {
		cutoff := model.Day(ref).AddDate(-f.MinHistoryYears, 0, 0)
		recent := model.Day(ref.Add(-tradingGrace))
		b.add("symbol IN (SELECT symbol FROM prices GROUP BY symbol HAVING MIN(date) <= %s AND MAX(date) >= %s)",
			b.arg(cutoff), b.arg(recent))
	}

	if f.MinAvgPrice > 0 {
		var rng []string
		if !f.From.IsZero() {
			rng = append(rng, "date >= "+b.arg(model.Day(f.From)))
		}
		if !f.To.IsZero() {
			rng = append(rng, "date <= "+b.arg(model.Day(f.To)))
		}
		where := ""
		if len(rng) > 0 {
			where = " WHERE " + strings.Join(rng, " AND ")
		}
		b.add("symbol IN (SELECT symbol FROM prices%s GROUP BY symbol HAVING AVG(close) > %s)",
			where, b.arg(f.MinAvgPrice))
	}

	return b
}

func universeQuery(f UniverseFilter, ref time.Time) (string, []any) {
	b := universeConditions(f, ref)
	return "SELECT " + priceColumns + " FROM prices" + b.clause() + " ORDER BY symbol, date", b.args
}

func symbolsQuery(f UniverseFilter, ref time.Time) (string, []any) {
	b := universeConditions(f, ref)
	return "SELECT DISTINCT symbol FROM prices" + b.clause() + " ORDER BY symbol", b.args
}

func failuresQuery(f FailureFilter) (string, []any) {
	b := &queryBuilder{}
	if f.Symbol != "" {
		b.add("symbol = %s", b.arg(model.NormalizeSymbol(f.Symbol)))
	}
	if f.RunID != uuid.Nil {
		b.add("run_id = %s", b.arg(f.RunID.String()))
	}
	if f.Kind != "" {
		b.add("kind = %s", b.arg(f.Kind))
	}

	q := `SELECT CAST(id AS VARCHAR), CAST(run_id AS VARCHAR), symbol, source, failed_at, kind, message
		FROM failed_tickers` + b.clause() + ` ORDER BY failed_at DESC, symbol`
	if f.Limit > 0 {
		q += " LIMIT " + b.arg(f.Limit)
	}
	return q, b.args
}

func macroQuery(seriesID string, from, to time.Time) (string, []any) {
	b := &queryBuilder{}
	b.add("series_id = %s", b.arg(seriesID))
	if !from.IsZero() {
		b.add("date >= %s", b.arg(model.Day(from)))
	}
	if !to.IsZero() {
		b.add("date <= %s", b.arg(model.Day(to)))
	}
	return "SELECT series_id, date, value FROM macro_observations" + b.clause() + " ORDER BY date", b.args
}

func crspQuery(f CRSPFilter) (string, []any) {
	b := &queryBuilder{}
	if len(f.PermNos) > 0 {
		ph := make([]string, len(f.PermNos))
		for i, p := range f.PermNos {
			ph[i] = b.arg(p)
		}
		b.add("permno IN (%s)", strings.Join(ph, ", "))
	}
	if !f.From.IsZero() {
		b.add("date >= %s", b.arg(model.Day(f.From)))
	}
	if !f.To.IsZero() {
		b.add("date <= %s", b.arg(model.Day(f.To)))
	}
	return "SELECT " + crspReturnColumns + " FROM crsp_daily_returns" + b.clause() + " ORDER BY permno, date", b.args
}
