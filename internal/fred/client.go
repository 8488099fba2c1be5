package fred

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/market-ingest/internal/fetch"
)

// DefaultBaseURL is the public FRED API host.
const DefaultBaseURL = "https://api.stlouisfed.org"

// Client provides access to the FRED REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	throttle   *fetch.Throttle
	retrier    fetch.Retrier
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new FRED client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
		retrier: fetch.Retrier{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}
	c.retrier.Logger = c.logger

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, base, maxDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.retrier.MaxRetries = max
		c.retrier.BaseDelay = base
		c.retrier.MaxDelay = maxDelay
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithThrottle shares a request throttle with the client.
func WithThrottle(t *fetch.Throttle) ClientOption {
	return func(c *Client) {
		c.throttle = t
	}
}
