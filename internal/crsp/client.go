package crsp

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/market-ingest/internal/fetch"
)

// Querier runs a read query. *pgxpool.Pool implements it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Client reads CRSP tables through a WRDS connection.
type Client struct {
	db      Querier
	logger  *slog.Logger
	retrier fetch.Retrier
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client over db. The caller keeps ownership of db.
func NewClient(db Querier, opts ...ClientOption) *Client {
	c := &Client{
		db:     db,
		logger: slog.Default(),
		retrier: fetch.Retrier{
			MaxRetries: 3,
			BaseDelay:  5 * time.Second,
			MaxDelay:   time.Minute,
		},
	}

	for _, opt := range opts {
		opt(c)
	}
	c.retrier.Logger = c.logger

	return c
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
