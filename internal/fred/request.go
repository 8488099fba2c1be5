package fred

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rickgao/market-ingest/internal/fetch"
)

// classify maps a failed response to a failure kind.
func classify(code int, body []byte) (fetch.Kind, string) {
	var e errorResponse
	_ = json.Unmarshal(body, &e)
	msg := e.ErrorMessage
	if msg == "" {
		msg = http.StatusText(code)
	}

	switch {
	case code == http.StatusTooManyRequests:
		return fetch.RateLimited, msg
	case code >= 500:
		return fetch.NetworkError, msg
	case code == http.StatusNotFound,
		code == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "does not exist"):
		return fetch.NotFound, msg
	default:
		return fetch.MalformedResponse, msg
	}
}

func (c *Client) doRequest(ctx context.Context, key, path string, query url.Values) ([]byte, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fetch.Errorf(fetch.MalformedResponse, key, "create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// drop the URL, it carries the api key
		if ue, ok := err.(*url.Error); ok {
			err = ue.Err
		}
		return nil, fetch.Errorf(fetch.NetworkError, key, "do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fetch.Errorf(fetch.NetworkError, key, "read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		kind, msg := classify(resp.StatusCode, body)
		return nil, &fetch.Error{
			Kind: kind,
			Key:  key,
			Err: &fetch.HTTPError{
				StatusCode: resp.StatusCode,
				Message:    msg,
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
