package yahoo

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/market-ingest/internal/fetch"
	"github.com/rickgao/market-ingest/internal/model"
)

// FetchPrices returns the daily bars for symbol between from and to
// (inclusive), sorted by date with duplicate dates removed and returns filled in.
func (c *Client) FetchPrices(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error) {
	symbol = model.NormalizeSymbol(symbol)
	from, to = model.Day(from), model.Day(to)
	if to.Before(from) {
		return nil, fetch.Errorf(fetch.NotFound, symbol, "empty range %s..%s",
			from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	var bars []model.PriceBar
	for _, w := range windows(from, to, c.chunkDays) {
		part, err := c.fetchWindow(ctx, symbol, w[0], w[1])
		if err != nil {
			// an empty window in a chunked range is not fatal
			if c.chunkDays > 0 && fetch.KindOf(err) == fetch.NotFound && ctx.Err() == nil {
				c.logger.Debug("empty window", "symbol", symbol, "from", w[0], "to", w[1])
				continue
			}
			return nil, err
		}
		bars = append(bars, part...)
	}

	if len(bars) == 0 {
		return nil, fetch.Errorf(fetch.NotFound, symbol, "no data")
	}

	bars = model.SortAndDedupePrices(bars)
	model.ComputeReturns(bars)
	return bars, nil
}

func (c *Client) fetchWindow(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error) {
	query := url.Values{}
	query.Set("period1", strconv.FormatInt(from.Unix(), 10))
	query.Set("period2", strconv.FormatInt(to.AddDate(0, 0, 1).Unix(), 10))
	query.Set("interval", "1d")
	query.Set("events", "div,splits")

	var resp chartResponse
	if err := c.get(ctx, symbol, "/v8/finance/chart/"+url.PathEscape(symbol), query, &resp); err != nil {
		return nil, err
	}

	bars, err := convertChart(symbol, &resp)
	if err != nil {
		return nil, err
	}

	// period2 is exclusive on the provider side but intraday stamps can leak past it
	out := bars[:0]
	for _, b := range bars {
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, fetch.Errorf(fetch.NotFound, symbol, "no data")
	}
	return out, nil
}

// windows splits [from, to] into consecutive inclusive windows of n days.
func windows(from, to time.Time, n int) [][2]time.Time {
	if n <= 0 {
		return [][2]time.Time{{from, to}}
	}
	var out [][2]time.Time
	for cur := from; !cur.After(to); cur = cur.AddDate(0, 0, n) {
		end := cur.AddDate(0, 0, n-1)
		if end.After(to) {
			end = to
		}
		out = append(out, [2]time.Time{cur, end})
	}
	return out
}

// convertChart validates a chart payload and converts it to bars.
func convertChart(symbol string, resp *chartResponse) ([]model.PriceBar, error) {
	if e := resp.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return nil, fetch.Errorf(fetch.NotFound, symbol, "%s", e.Description)
		}
		return nil, fetch.Errorf(fetch.MalformedResponse, symbol, "chart error %s: %s", e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fetch.Errorf(fetch.NotFound, symbol, "no data")
	}

	r := resp.Chart.Result[0]
	n := len(r.Timestamp)
	if n == 0 {
		return nil, fetch.Errorf(fetch.NotFound, symbol, "no data")
	}
	if len(r.Indicators.Quote) == 0 {
		return nil, fetch.Errorf(fetch.MalformedResponse, symbol, "missing quote indicators")
	}

	q := r.Indicators.Quote[0]
	for name, col := range map[string][]decimal.NullDecimal{
		"open": q.Open, "high": q.High, "low": q.Low, "close": q.Close, "volume": q.Volume,
	} {
		if len(col) != n {
			return nil, fetch.Errorf(fetch.MalformedResponse, symbol,
				"%s has %d values for %d timestamps", name, len(col), n)
		}
	}

	var adj []decimal.NullDecimal
	if len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
		if len(adj) != n {
			return nil, fetch.Errorf(fetch.MalformedResponse, symbol,
				"adjclose has %d values for %d timestamps", len(adj), n)
		}
	}

	bars := make([]model.PriceBar, 0, n)
	positive := false
	for i, ts := range r.Timestamp {
		if !q.Close[i].Valid {
			continue
		}
		closePx := q.Close[i].Decimal.InexactFloat64()
		if closePx > 0 {
			positive = true
		}

		b := model.PriceBar{
			Symbol:   symbol,
			Date:     model.Day(time.Unix(ts+r.Meta.GMTOffset, 0).UTC()),
			Open:     orElse(q.Open[i], closePx),
			High:     orElse(q.High[i], closePx),
			Low:      orElse(q.Low[i], closePx),
			Close:    closePx,
			AdjClose: closePx,
		}
		if q.Volume[i].Valid {
			b.Volume = q.Volume[i].Decimal.IntPart()
		}
		if adj != nil && adj[i].Valid {
			b.AdjClose = adj[i].Decimal.InexactFloat64()
		}
		bars = append(bars, b)
	}

	if len(bars) == 0 {
		// every close null: nothing was published in the range
		return nil, fetch.Errorf(fetch.NotFound, symbol, "no data")
	}
	if !positive {
		return nil, fetch.Errorf(fetch.MalformedResponse, symbol, "no bar with a positive close")
	}
	return bars, nil
}

func orElse(v decimal.NullDecimal, fallback float64) float64 {
	if !v.Valid {
		return fallback
	}
	return v.Decimal.InexactFloat64()
}
