package store

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rickgao/market-ingest/internal/model"
)

// rows is the subset of *sql.Rows and pgx.Rows the scanners need.
type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanPrices(r rows) ([]model.PriceBar, error) {
	var out []model.PriceBar
	for r.Next() {
		var (
			b      model.PriceBar
			open   *float64
			high   *float64
			low    *float64
			adj    *float64
			volume *int64
		)
		if err := r.Scan(&b.Symbol, &b.Date, &open, &high, &low, &b.Close, &adj, &volume, &b.DailyReturn, &b.LogReturn); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		b.Date = model.Day(b.Date)
		b.Open = deref(open)
		b.High = deref(high)
		b.Low = deref(low)
		b.AdjClose = deref(adj)
		if volume != nil {
			b.Volume = *volume
		}
		out = append(out, b)
	}
	return out, r.Err()
}

func scanStrings(r rows) ([]string, error) {
	var out []string
	for r.Next() {
		var s string
		if err := r.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, r.Err()
}

func scanFailures(r rows) ([]model.FailedTicker, error) {
	var out []model.FailedTicker
	for r.Next() {
		var (
			f         model.FailedTicker
			id, runID string
		)
		if err := r.Scan(&id, &runID, &f.Symbol, &f.Source, &f.At, &f.Kind, &f.Message); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		var err error
		if f.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse failure id: %w", err)
		}
		if f.RunID, err = uuid.Parse(runID); err != nil {
			return nil, fmt.Errorf("parse run id: %w", err)
		}
		f.At = f.At.UTC()
		out = append(out, f)
	}
	return out, r.Err()
}

func scanMacro(r rows) ([]model.MacroPoint, error) {
	var out []model.MacroPoint
	for r.Next() {
		var p model.MacroPoint
		if err := r.Scan(&p.SeriesID, &p.Date, &p.Value); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		p.Date = model.Day(p.Date)
		out = append(out, p)
	}
	return out, r.Err()
}

func scanCRSP(r rows) ([]model.CRSPReturn, error) {
	var out []model.CRSPReturn
	for r.Next() {
		var (
			c            model.CRSPReturn
			ticker, name *string
			exchange     int64
		)
		if err := r.Scan(&c.PermNo, &c.Date, &ticker, &name, &c.Return, &c.Price, &exchange,
			&c.DelistReturn, &c.TotalReturn, &c.LogReturn); err != nil {
			return nil, fmt.Errorf("scan crsp return: %w", err)
		}
		c.Date = model.Day(c.Date)
		if ticker != nil {
			c.Ticker = *ticker
		}
		if name != nil {
			c.CompanyName = *name
		}
		c.ExchangeCode = int(exchange)
		out = append(out, c)
	}
	return out, r.Err()
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// nullable converts an optional value to a driver argument.
func nullable(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func priceArgs(b model.PriceBar) []any {
	return []any{
		b.Symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume,
		nullable(b.DailyReturn), nullable(b.LogReturn),
	}
}

// nullString stores an empty string as NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func crspReturnArgs(c model.CRSPReturn) []any {
	return []any{
		c.PermNo, c.Date, nullString(c.Ticker), nullString(c.CompanyName),
		nullable(c.Return), nullable(c.Price), int64(c.ExchangeCode),
		nullable(c.DelistReturn), nullable(c.TotalReturn), nullable(c.LogReturn),
	}
}

func delistingArgs(d model.Delisting) []any {
	return []any{d.PermNo, d.Date, nullable(d.Return), nullable(d.ReturnExDiv), int64(d.Code), nullable(d.Price)}
}

func failureArgs(f model.FailedTicker) []any {
	return []any{f.ID.String(), f.RunID.String(), f.Symbol, f.Source, f.At.UTC(), f.Kind, f.Message}
}
