package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
database:
  driver: duckdb
  path: /tmp/market.duckdb
universe:
  path: tickers.txt
prices:
  start: 2000-01-03
  end: 2024-12-31
  workers: 4
  retry_base_delay: 500ms
macro:
  series:
    - id: CPIAUCSL
      name: CPI
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "/tmp/market.duckdb" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/market.duckdb")
	}
	if cfg.Universe.Path != "tickers.txt" {
		t.Errorf("Universe.Path = %q, want %q", cfg.Universe.Path, "tickers.txt")
	}
	if want := time.Date(2000, 1, 3, 0, 0, 0, 0, time.UTC); !cfg.Prices.Start.Equal(want) {
		t.Errorf("Prices.Start = %v, want %v", cfg.Prices.Start, want)
	}
	if cfg.Prices.Workers != 4 {
		t.Errorf("Prices.Workers = %d, want 4", cfg.Prices.Workers)
	}
	if cfg.Prices.RetryBaseDelay != 500*time.Millisecond {
		t.Errorf("Prices.RetryBaseDelay = %v, want 500ms", cfg.Prices.RetryBaseDelay)
	}
	if len(cfg.Macro.Series) != 1 || cfg.Macro.Series[0].ID != "CPIAUCSL" {
		t.Errorf("Macro.Series = %+v", cfg.Macro.Series)
	}
}

func TestLoadInvalidDate(t *testing.T) {
	path := writeTempFile(t, "prices:\n  start: 03/01/2000\n")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for non ISO date")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_FRED_KEY", "secret123")
	t.Setenv("TEST_DB_PASSWORD", "pw")

	yaml := `
database:
  driver: postgres
  postgres:
    host: localhost
    name: market
    user: ingest
    password: ${TEST_DB_PASSWORD}
macro:
  api_key: ${TEST_FRED_KEY}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Macro.APIKey != "secret123" {
		t.Errorf("Macro.APIKey = %q, want %q", cfg.Macro.APIKey, "secret123")
	}
	if cfg.Database.Postgres.Password != "pw" {
		t.Errorf("Database.Postgres.Password = %q, want %q", cfg.Database.Postgres.Password, "pw")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "log:\n  level: debug\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Database.Driver != DefaultDriver {
		t.Errorf("Database.Driver = %q, want default %q", cfg.Database.Driver, DefaultDriver)
	}
	if cfg.Database.Path != DefaultDBPath {
		t.Errorf("Database.Path = %q, want default %q", cfg.Database.Path, DefaultDBPath)
	}
	if cfg.Prices.MaxRetries != DefaultPricesMaxRetries {
		t.Errorf("Prices.MaxRetries = %d, want default %d", cfg.Prices.MaxRetries, DefaultPricesMaxRetries)
	}
	if cfg.Prices.RetryMaxDelay != DefaultPricesRetryMaxDelay {
		t.Errorf("Prices.RetryMaxDelay = %v, want default %v", cfg.Prices.RetryMaxDelay, DefaultPricesRetryMaxDelay)
	}
	if !cfg.Prices.Start.Equal(DefaultPricesStart) {
		t.Errorf("Prices.Start = %v, want default %v", cfg.Prices.Start, DefaultPricesStart)
	}
	if cfg.Macro.MaxRetries != DefaultMacroMaxRetries {
		t.Errorf("Macro.MaxRetries = %d, want default %d", cfg.Macro.MaxRetries, DefaultMacroMaxRetries)
	}
	if len(cfg.Macro.Series) != len(DefaultSeries) {
		t.Errorf("len(Macro.Series) = %d, want %d", len(cfg.Macro.Series), len(DefaultSeries))
	}
	if cfg.Database.Postgres.Port != DefaultDBPort {
		t.Errorf("Database.Postgres.Port = %d, want default %d", cfg.Database.Postgres.Port, DefaultDBPort)
	}
	if cfg.CRSP.WRDS.Host != DefaultCRSPHost || cfg.CRSP.WRDS.Port != DefaultCRSPPort {
		t.Errorf("CRSP.WRDS = %s:%d, want default %s:%d", cfg.CRSP.WRDS.Host, cfg.CRSP.WRDS.Port, DefaultCRSPHost, DefaultCRSPPort)
	}
	if cfg.CRSP.WRDS.SSLMode != DefaultCRSPSSLMode {
		t.Errorf("CRSP.WRDS.SSLMode = %q, want default %q", cfg.CRSP.WRDS.SSLMode, DefaultCRSPSSLMode)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
}

func TestDefault(t *testing.T) {
	t.Setenv("FRED_API_KEY", "from-env")

	cfg := Default()
	if cfg.Macro.APIKey != "from-env" {
		t.Errorf("Macro.APIKey = %q, want %q", cfg.Macro.APIKey, "from-env")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestRange(t *testing.T) {
	now := time.Date(2025, 6, 15, 18, 30, 0, 0, time.UTC)
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("prices defaults", func(t *testing.T) {
		from, to := PricesConfig{}.Range(now)
		if !from.Equal(DefaultPricesStart) || !to.Equal(today) {
			t.Errorf("Range() = %v..%v, want %v..%v", from, to, DefaultPricesStart, today)
		}
	})

	t.Run("macro lookback", func(t *testing.T) {
		from, to := MacroConfig{}.Range(now)
		if want := time.Date(2015, 6, 15, 0, 0, 0, 0, time.UTC); !from.Equal(want) || !to.Equal(today) {
			t.Errorf("Range() = %v..%v, want %v..%v", from, to, want, today)
		}
	})

	t.Run("explicit", func(t *testing.T) {
		start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)
		m := MacroConfig{FetchConfig: FetchConfig{Start: Date{start}, End: Date{end}}}
		from, to := m.Range(now)
		if !from.Equal(start) || !to.Equal(end) {
			t.Errorf("Range() = %v..%v, want %v..%v", from, to, start, end)
		}
	})
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := LogConfig{Level: tt.in}.SlogLevel()
		if (err != nil) != tt.wantErr {
			t.Errorf("SlogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "sqlite" },
			wantErr: `database.driver must be duckdb or postgres, got "sqlite"`,
		},
		{
			name: "postgres missing host",
			mutate: func(c *Config) {
				c.Database.Driver = "postgres"
			},
			wantErr: "database.postgres.host is required",
		},
		{
			name: "postgres min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Database.Driver = "postgres"
				c.Database.Postgres = DBConfig{Host: "localhost", Name: "db", User: "user", MaxConns: 5, MinConns: 10}
			},
			wantErr: "database.postgres.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "negative workers",
			mutate:  func(c *Config) { c.Prices.Workers = -1 },
			wantErr: "prices.workers must be >= 1",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Macro.MaxRetries = -2 },
			wantErr: "macro.max_retries must be >= 0",
		},
		{
			name: "base delay above cap",
			mutate: func(c *Config) {
				c.Prices.RetryBaseDelay = time.Minute
				c.Prices.RetryMaxDelay = time.Second
			},
			wantErr: "prices.retry_base_delay (1m0s) cannot exceed retry_max_delay (1s)",
		},
		{
			name: "end before start",
			mutate: func(c *Config) {
				c.Prices.Start = Date{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
				c.Prices.End = Date{time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
			},
			wantErr: "prices.end (2023-01-01) is before start (2024-01-01)",
		},
		{
			name: "duplicate series",
			mutate: func(c *Config) {
				c.Macro.Series = []SeriesConfig{{ID: "GDPC1"}, {ID: "GDPC1"}}
			},
			wantErr: `macro.series[1]: duplicate id "GDPC1"`,
		},
		{
			name:    "crsp zero workers",
			mutate:  func(c *Config) { c.CRSP.Workers = -1 },
			wantErr: "crsp.workers must be >= 1",
		},
		{
			name: "crsp end before start",
			mutate: func(c *Config) {
				c.CRSP.Start = Date{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
				c.CRSP.End = Date{time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)}
			},
			wantErr: "crsp.end (2023-06-01) is before start (2024-01-01)",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestValidateMacroCredentials(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateMacroCredentials(); err == nil {
		t.Error("expected error for missing api key")
	}
	cfg.Macro.APIKey = "k"
	if err := cfg.ValidateMacroCredentials(); err != nil {
		t.Errorf("ValidateMacroCredentials() = %v", err)
	}
}

func TestValidateCRSPCredentials(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.ValidateCRSPCredentials(); err == nil || !strings.Contains(err.Error(), "WRDS_USER") {
		t.Errorf("ValidateCRSPCredentials() = %v, want missing credentials error", err)
	}
	cfg.CRSP.WRDS.User = "analyst"
	cfg.CRSP.WRDS.Password = "pw"
	if err := cfg.ValidateCRSPCredentials(); err != nil {
		t.Errorf("ValidateCRSPCredentials() = %v", err)
	}
}

func TestDefaultReadsWRDSCredentials(t *testing.T) {
	t.Setenv("WRDS_USER", "analyst")
	t.Setenv("WRDS_PASSWORD", "pw")

	cfg := Default()
	if cfg.CRSP.WRDS.User != "analyst" || cfg.CRSP.WRDS.Password != "pw" {
		t.Errorf("CRSP.WRDS credentials = %q/%q, want analyst/pw", cfg.CRSP.WRDS.User, cfg.CRSP.WRDS.Password)
	}
	if err := cfg.ValidateCRSPCredentials(); err != nil {
		t.Errorf("ValidateCRSPCredentials() = %v", err)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadSampleConfig(t *testing.T) {
	t.Setenv("FRED_API_KEY", "sample-key")
	t.Setenv("WRDS_USER", "analyst")
	t.Setenv("WRDS_PASSWORD", "pw")

	cfg, err := LoadAndValidate(filepath.Join("..", "..", DefaultPath))
	if err != nil {
		t.Fatalf("LoadAndValidate() error = %v", err)
	}
	if cfg.Macro.APIKey != "sample-key" {
		t.Errorf("Macro.APIKey = %q, want sample-key", cfg.Macro.APIKey)
	}
	if len(cfg.Macro.Series) != len(DefaultSeries) {
		t.Errorf("len(Macro.Series) = %d, want %d", len(cfg.Macro.Series), len(DefaultSeries))
	}
	if cfg.Macro.SeriesName("CPIAUCSL") != "" {
		t.Errorf("SeriesName(CPIAUCSL) = %q, want empty", cfg.Macro.SeriesName("CPIAUCSL"))
	}
	if cfg.Prices.Workers != 1 {
		t.Errorf("Prices.Workers = %d, want 1", cfg.Prices.Workers)
	}
	if cfg.CRSP.WRDS.User != "analyst" || cfg.CRSP.WRDS.Port != 9737 {
		t.Errorf("CRSP.WRDS = %+v, want user analyst on port 9737", cfg.CRSP.WRDS)
	}
	if err := cfg.ValidateCRSPCredentials(); err != nil {
		t.Errorf("ValidateCRSPCredentials() = %v", err)
	}
}
