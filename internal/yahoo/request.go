package yahoo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rickgao/market-ingest/internal/fetch"
)

// classifyStatus maps an HTTP status to a failure kind.
func classifyStatus(code int) fetch.Kind {
	switch {
	case code == http.StatusNotFound:
		return fetch.NotFound
	case code == http.StatusTooManyRequests,
		code == http.StatusBadGateway,
		code == http.StatusServiceUnavailable:
		return fetch.RateLimited
	case code >= 500:
		return fetch.NetworkError
	// an expired cookie/crumb pair surfaces as 401 or 403
	case code == http.StatusUnauthorized,
		code == http.StatusForbidden:
		return fetch.NetworkError
	default:
		return fetch.MalformedResponse
	}
}

// doRequest performs one GET and classifies any failure.
func (c *Client) doRequest(ctx context.Context, key, path string, query url.Values) ([]byte, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fetch.Errorf(fetch.MalformedResponse, key, "create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fetch.Errorf(fetch.NetworkError, key, "do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fetch.Errorf(fetch.NetworkError, key, "read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &fetch.Error{
			Kind: classifyStatus(resp.StatusCode),
			Key:  key,
			Err: &fetch.HTTPError{
				StatusCode: resp.StatusCode,
				Message:    http.StatusText(resp.StatusCode),
				Body:       body,
			},
		}
	}

	return body, nil
}

// get performs a GET request with retries and decodes the JSON body.
func (c *Client) get(ctx context.Context, key, path string, query url.Values, result any) error {
	body, err := fetch.Retry(ctx, c.retrier, key, func(ctx context.Context) ([]byte, error) {
		return c.doRequest(ctx, key, path, query)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fetch.Errorf(fetch.MalformedResponse, key, "unmarshal response: %w", err)
	}
	return nil
}
