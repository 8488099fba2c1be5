package fred

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/market-ingest/internal/fetch"
	"github.com/rickgao/market-ingest/internal/model"
)

// missingValue marks an observation the provider has no value for.
const missingValue = "."

// FetchSeries returns the observations of seriesID between from and to
// (inclusive), sorted by date.
func (c *Client) FetchSeries(ctx context.Context, seriesID string, from, to time.Time) ([]model.MacroPoint, error) {
	seriesID = strings.TrimSpace(seriesID)

	query := url.Values{}
	query.Set("series_id", seriesID)
	query.Set("observation_start", model.Day(from).Format(time.DateOnly))
	query.Set("observation_end", model.Day(to).Format(time.DateOnly))

	var resp observationsResponse
	if err := c.get(ctx, seriesID, "/fred/series/observations", query, &resp); err != nil {
		return nil, err
	}

	points, err := convertObservations(seriesID, resp.Observations)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fetch.Errorf(fetch.NotFound, seriesID, "no data")
	}
	return model.SortAndDedupeMacro(points), nil
}

// SeriesTitle returns the provider's human-readable name for seriesID.
func (c *Client) SeriesTitle(ctx context.Context, seriesID string) (string, error) {
	query := url.Values{}
	query.Set("series_id", seriesID)

	var resp seriesResponse
	if err := c.get(ctx, seriesID, "/fred/series", query, &resp); err != nil {
		return "", err
	}
	if len(resp.Series) == 0 {
		return "", fetch.Errorf(fetch.NotFound, seriesID, "unknown series")
	}
	return resp.Series[0].Title, nil
}

func convertObservations(seriesID string, obs []observation) ([]model.MacroPoint, error) {
	points := make([]model.MacroPoint, 0, len(obs))
	for _, o := range obs {
		if strings.TrimSpace(o.Value) == missingValue {
			continue
		}
		date, err := time.Parse(time.DateOnly, o.Date)
		if err != nil {
			return nil, fetch.Errorf(fetch.MalformedResponse, seriesID, "parse date %q: %w", o.Date, err)
		}
		v, err := decimal.NewFromString(strings.TrimSpace(o.Value))
		if err != nil {
			return nil, fetch.Errorf(fetch.MalformedResponse, seriesID, "parse value %q on %s: %w", o.Value, o.Date, err)
		}
		points = append(points, model.MacroPoint{
			SeriesID: seriesID,
			Date:     model.Day(date),
			Value:    v.InexactFloat64(),
		})
	}
	return points, nil
}
