package yahoo

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/market-ingest/internal/fetch"
)

// DefaultBaseURL is the public chart API host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Client provides access to the chart API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
	throttle   *fetch.Throttle
	retrier    fetch.Retrier
	chunkDays  int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new chart API client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   baseURL,
		userAgent: "Mozilla/5.0",
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		logger: slog.Default(),
		retrier: fetch.Retrier{
			MaxRetries: 5,
			BaseDelay:  2 * time.Second,
			MaxDelay:   60 * time.Second,
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

// WithUserAgent overrides the User-Agent header. The chart API rejects
// requests without one.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithChunkDays splits each range into windows of n days. Zero disables chunking.
func WithChunkDays(n int) ClientOption {
	return func(c *Client) {
		c.chunkDays = n
	}
}
