package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "duckdb":
		if c.Database.Path == "" {
			return errors.New("database.path is required for duckdb")
		}
	case "postgres":
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("database.driver must be duckdb or postgres, got %q", c.Database.Driver)
	}

	if c.Universe.Path == "" {
		return errors.New("universe.path is required")
	}

	if err := c.Prices.FetchConfig.validate("prices"); err != nil {
		return err
	}
	if c.Prices.Workers < 1 {
		return errors.New("prices.workers must be >= 1")
	}
	if c.Prices.ChunkDays < 0 {
		return errors.New("prices.chunk_days must be >= 0")
	}

	if err := c.Macro.FetchConfig.validate("macro"); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Macro.Series))
	for i, s := range c.Macro.Series {
		if s.ID == "" {
			return fmt.Errorf("macro.series[%d].id is required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("macro.series[%d]: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true
	}

	if c.CRSP.Workers < 1 {
		return errors.New("crsp.workers must be >= 1")
	}
	if c.CRSP.MaxRetries < 0 {
		return errors.New("crsp.max_retries must be >= 0")
	}
	if c.CRSP.RetryMaxDelay > 0 && c.CRSP.RetryBaseDelay > c.CRSP.RetryMaxDelay {
		return fmt.Errorf("crsp.retry_base_delay (%v) cannot exceed retry_max_delay (%v)",
			c.CRSP.RetryBaseDelay, c.CRSP.RetryMaxDelay)
	}
	if !c.CRSP.Start.IsZero() && !c.CRSP.End.IsZero() && c.CRSP.End.Before(c.CRSP.Start.Time) {
		return fmt.Errorf("crsp.end (%s) is before start (%s)",
			c.CRSP.End.Format("2006-01-02"), c.CRSP.Start.Format("2006-01-02"))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// ValidateMacroCredentials checks what a macro run needs beyond Validate.
func (c *Config) ValidateMacroCredentials() error {
	if c.Macro.APIKey == "" {
		return errors.New("macro.api_key is required (set FRED_API_KEY)")
	}
	return nil
}

// ValidateCRSPCredentials checks what a CRSP run needs beyond Validate.
func (c *Config) ValidateCRSPCredentials() error {
	if c.CRSP.WRDS.User == "" || c.CRSP.WRDS.Password == "" {
		return errors.New("crsp.wrds.user and crsp.wrds.password are required (set WRDS_USER and WRDS_PASSWORD)")
	}
	return c.CRSP.WRDS.validate("crsp.wrds")
}

func (f *FetchConfig) validate(prefix string) error {
	if f.BaseURL == "" {
		return fmt.Errorf("%s.base_url is required", prefix)
	}
	if f.Timeout < 0 {
		return fmt.Errorf("%s.timeout must be >= 0", prefix)
	}
	if f.MaxRetries < 0 {
		return fmt.Errorf("%s.max_retries must be >= 0", prefix)
	}
	if f.RetryBaseDelay < 0 || f.RetryMaxDelay < 0 {
		return fmt.Errorf("%s retry delays must be >= 0", prefix)
	}
	if f.RetryMaxDelay > 0 && f.RetryBaseDelay > f.RetryMaxDelay {
		return fmt.Errorf("%s.retry_base_delay (%v) cannot exceed retry_max_delay (%v)",
			prefix, f.RetryBaseDelay, f.RetryMaxDelay)
	}
	if f.RequestsPerSecond < 0 {
		return fmt.Errorf("%s.requests_per_second must be >= 0", prefix)
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start.Time) {
		return fmt.Errorf("%s.end (%s) is before start (%s)", prefix,
			f.End.Format("2006-01-02"), f.Start.Format("2006-01-02"))
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
