package crsp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/market-ingest/internal/fetch"
	"github.com/rickgao/market-ingest/internal/model"
)

const (
	dailyReturnsSQL = `
		SELECT d.permno::bigint, d.date, n.ticker, n.comnam, d.ret::float8, d.prc::float8, d.hexcd::bigint
		FROM crsp.dsf AS d
		LEFT JOIN crsp.stocknames AS n
			ON d.permno = n.permno
			AND d.date BETWEEN n.namedt AND n.nameenddt
		WHERE d.date >= $1 AND d.date <= $2
			AND d.hexcd IN (1, 2, 3)
		ORDER BY d.permno, d.date`

	delistingsSQL = `
		SELECT permno::bigint, dlstdt, dlret::float8, dlretx::float8, dlstcd::bigint, dlprc::float8
		FROM crsp.dsedelist
		WHERE dlstdt >= $1 AND dlstdt <= $2
		ORDER BY permno, dlstdt`
)

// FetchMonth returns the daily returns and delistings of the month named by
// key ("2006-01"), restricted to [from, to]. Delisting returns are merged
// onto the daily rows. A month without daily rows is NotFound.
func (c *Client) FetchMonth(ctx context.Context, key string, from, to time.Time) (model.CRSPBatch, error) {
	start, end, err := MonthRange(key, from, to)
	if err != nil {
		return model.CRSPBatch{}, fetch.Errorf(fetch.MalformedResponse, key, "%w", err)
	}
	if end.Before(start) {
		return model.CRSPBatch{}, fetch.Errorf(fetch.NotFound, key, "month outside %s..%s",
			from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	return fetch.Retry(ctx, c.retrier, key, func(ctx context.Context) (model.CRSPBatch, error) {
		returns, err := c.dailyReturns(ctx, key, start, end)
		if err != nil {
			return model.CRSPBatch{}, err
		}
		if len(returns) == 0 {
			return model.CRSPBatch{}, fetch.Errorf(fetch.NotFound, key, "no data")
		}
		delistings, err := c.delistings(ctx, key, start, end)
		if err != nil {
			return model.CRSPBatch{}, err
		}

		model.MergeDelistings(returns, delistings)
		c.logger.Debug("crsp month fetched",
			"month", key,
			"returns", len(returns),
			"delistings", len(delistings),
		)
		return model.CRSPBatch{Returns: returns, Delistings: delistings}, nil
	})
}

func (c *Client) dailyReturns(ctx context.Context, key string, from, to time.Time) ([]model.CRSPReturn, error) {
	rows, err := c.db.Query(ctx, dailyReturnsSQL, from, to)
	if err != nil {
		return nil, classify(key, err)
	}
	defer rows.Close()

	var out []model.CRSPReturn
	for rows.Next() {
		var (
			r            model.CRSPReturn
			ticker, name *string
			exchange     *int64
		)
		if err := rows.Scan(&r.PermNo, &r.Date, &ticker, &name, &r.Return, &r.Price, &exchange); err != nil {
			return nil, fetch.Errorf(fetch.MalformedResponse, key, "scan daily return: %w", err)
		}
		r.Date = model.Day(r.Date)
		if ticker != nil {
			r.Ticker = strings.TrimSpace(*ticker)
		}
		if name != nil {
			r.CompanyName = strings.TrimSpace(*name)
		}
		if exchange != nil {
			r.ExchangeCode = int(*exchange)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(key, err)
	}
	return out, nil
}

func (c *Client) delistings(ctx context.Context, key string, from, to time.Time) ([]model.Delisting, error) {
	rows, err := c.db.Query(ctx, delistingsSQL, from, to)
	if err != nil {
		return nil, classify(key, err)
	}
	defer rows.Close()

	var out []model.Delisting
	for rows.Next() {
		var (
			d    model.Delisting
			code *int64
		)
		if err := rows.Scan(&d.PermNo, &d.Date, &d.Return, &d.ReturnExDiv, &code, &d.Price); err != nil {
			return nil, fetch.Errorf(fetch.MalformedResponse, key, "scan delisting: %w", err)
		}
		d.Date = model.Day(d.Date)
		if code != nil {
			d.Code = int(*code)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(key, err)
	}
	return out, nil
}

// classify maps a query error onto a fetch kind. Server errors are sorted by
// SQLSTATE class; anything that never reached the server is a network error.
func classify(key string, err error) error {
	if fetch.IsCanceled(err) {
		return err
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		if errors.Is(err, pgx.ErrNoRows) {
			return fetch.Errorf(fetch.NotFound, key, "no data")
		}
		return &fetch.Error{Kind: fetch.NetworkError, Key: key, Err: err}
	}

	kind := fetch.MalformedResponse
	switch {
	case pgErr.Code == "42P01", pgErr.Code == "42501":
		// missing table or no subscription to it
		kind = fetch.NotFound
	case pgErr.Code == "53300":
		kind = fetch.RateLimited
	case strings.HasPrefix(pgErr.Code, "08"),
		strings.HasPrefix(pgErr.Code, "40"),
		strings.HasPrefix(pgErr.Code, "53"),
		strings.HasPrefix(pgErr.Code, "57"):
		kind = fetch.NetworkError
	}
	return &fetch.Error{Kind: kind, Key: key, Err: fmt.Errorf("sqlstate %s: %w", pgErr.Code, err)}
}
