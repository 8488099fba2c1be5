package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Universe UniverseConfig `yaml:"universe"`
	Prices   PricesConfig   `yaml:"prices"`
	Macro    MacroConfig    `yaml:"macro"`
	CRSP     CRSPConfig     `yaml:"crsp"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig selects and configures the storage backend.
type DatabaseConfig struct {
	Driver   string   `yaml:"driver"` // "duckdb" or "postgres"
	Path     string   `yaml:"path"`   // duckdb file
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// UniverseConfig points at the ticker list.
type UniverseConfig struct {
	Path string `yaml:"path"`
}

// FetchConfig holds the settings shared by both providers.
type FetchConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Start             Date          `yaml:"start"`
	End               Date          `yaml:"end"` // zero means today
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryBaseDelay    time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay     time.Duration `yaml:"retry_max_delay"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// PricesConfig holds the ticker price ingestion settings.
type PricesConfig struct {
	FetchConfig `yaml:",inline"`
	Workers     int    `yaml:"workers"`
	ChunkDays   int    `yaml:"chunk_days"` // 0 requests the whole range at once
	UserAgent   string `yaml:"user_agent"`
}

// MacroConfig holds the macro series ingestion settings.
type MacroConfig struct {
	FetchConfig `yaml:",inline"`
	APIKey      string         `yaml:"api_key"`
	Series      []SeriesConfig `yaml:"series"`
}

// SeriesConfig names one macro series to download.
type SeriesConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// CRSPConfig holds the CRSP ingestion settings. WRDS is the PostgreSQL
// server CRSP is read from.
type CRSPConfig struct {
	WRDS           DBConfig      `yaml:"wrds"`
	Start          Date          `yaml:"start"`
	End            Date          `yaml:"end"` // zero means today
	Workers        int           `yaml:"workers"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel parses Level. Empty means info.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// Date is a calendar day written as YYYY-MM-DD.
type Date struct {
	time.Time
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	s := strings.TrimSpace(value.Value)
	if s == "" || value.Tag == "!!null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	d.Time = t
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Date) MarshalYAML() (any, error) {
	if d.IsZero() {
		return "", nil
	}
	return d.Format(time.DateOnly), nil
}

// ParseDate parses YYYY-MM-DD as a UTC day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// SeriesIDs returns the configured macro series ids in order.
func (m MacroConfig) SeriesIDs() []string {
	ids := make([]string, len(m.Series))
	for i, s := range m.Series {
		ids[i] = s.ID
	}
	return ids
}

// SeriesName returns the configured display name for id.
func (m MacroConfig) SeriesName(id string) string {
	for _, s := range m.Series {
		if s.ID == id {
			return s.Name
		}
	}
	return ""
}
