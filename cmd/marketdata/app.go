package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/rickgao/market-ingest/internal/config"
	"github.com/rickgao/market-ingest/internal/store"
)

const defaultConfigHint = config.DefaultPath

// loadConfig reads -config. Without the flag, the default path is used when
// it exists and built-in defaults otherwise.
func loadConfig() (*config.Config, error) {
	p := *configPath
	explicit := p != ""
	if !explicit {
		p = config.DefaultPath
	}

	cfg, err := config.LoadAndValidate(p)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			cfg = config.Default()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("validate default config: %w", err)
			}
		} else {
			return nil, err
		}
	}

	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	return cfg, nil
}

// newLogger builds the process logger from cfg.Log.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger, nil
}

// setup loads config, builds the logger and opens the store.
func setup(ctx context.Context) (*config.Config, *slog.Logger, store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, logger, st, nil
}

// dateFlag parses an optional YYYY-MM-DD flag value.
func dateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := config.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("-%s: %w", name, err)
	}
	return t, nil
}

// overrideRange replaces the configured range bounds with non-empty flags.
func overrideRange(from, to time.Time, fromFlag, toFlag string) (time.Time, time.Time, error) {
	f, err := dateFlag("from", fromFlag)
	if err != nil {
		return from, to, err
	}
	t, err := dateFlag("to", toFlag)
	if err != nil {
		return from, to, err
	}
	if !f.IsZero() {
		from = f
	}
	if !t.IsZero() {
		to = t
	}
	if to.Before(from) {
		return from, to, fmt.Errorf("-from %s is after -to %s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return from, to, nil
}
