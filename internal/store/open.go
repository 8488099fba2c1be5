package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/market-ingest/internal/config"
	"github.com/rickgao/market-ingest/internal/database"
)

// Open connects to the backend selected by cfg.Driver and prepares the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Driver {
	case "", "duckdb":
		db, err := database.OpenDuckDB(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		s, err := NewDuckStore(ctx, db, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		logger.Debug("opened duckdb store", "path", cfg.Path)
		return s, nil

	case "postgres":
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s, err := NewPGStore(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Debug("opened postgres store", "host", cfg.Postgres.Host, "db", cfg.Postgres.Name)
		return s, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
