package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDriver       = "duckdb"
	DefaultDBPath       = "data/market_data.duckdb"
	DefaultUniversePath = "data/all_tickers.txt"
	DefaultLogLevel     = "info"

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 4
	DefaultMinConns  = 1

	DefaultPricesBaseURL        = "https://query1.finance.yahoo.com"
	DefaultPricesTimeout        = 20 * time.Second
	DefaultPricesMaxRetries     = 5
	DefaultPricesRetryBaseDelay = 2 * time.Second
	DefaultPricesRetryMaxDelay  = 60 * time.Second
	DefaultPricesRPS            = 2.0
	DefaultPricesWorkers        = 1
	DefaultPricesUserAgent      = "Mozilla/5.0"

	DefaultMacroBaseURL        = "https://api.stlouisfed.org"
	DefaultMacroTimeout        = 30 * time.Second
	DefaultMacroMaxRetries     = 3
	DefaultMacroRetryBaseDelay = 1 * time.Second
	DefaultMacroRetryMaxDelay  = 30 * time.Second
	DefaultMacroRPS            = 2.0

	DefaultCRSPHost           = "wrds-pgdata.wharton.upenn.edu"
	DefaultCRSPPort           = 9737
	DefaultCRSPName           = "wrds"
	DefaultCRSPSSLMode        = "require"
	DefaultCRSPWorkers        = 2
	DefaultCRSPMaxRetries     = 3
	DefaultCRSPRetryBaseDelay = 5 * time.Second
	DefaultCRSPRetryMaxDelay  = 60 * time.Second

	// DefaultMacroLookbackYears applies when macro.start is unset.
	DefaultMacroLookbackYears = 10
)

// DefaultPricesStart is the earliest day requested when prices.start is unset.
var DefaultPricesStart = time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)

// DefaultSeries is the macro series list used when macro.series is empty.
var DefaultSeries = []SeriesConfig{
	{ID: "M2SL", Name: "M2 Money Supply (Seasonally Adj)"},
	{ID: "GDPC1", Name: "Real GDP"},
	{ID: "T10Y2Y", Name: "10Y-2Y Treasury Yield Spread"},
	{ID: "PAYEMS", Name: "Non-Farm Payrolls"},
	{ID: "ICSA", Name: "Initial Jobless Claims"},
	{ID: "BAMLH0A0HYM2", Name: "High Yield Corp Bond Yield (Junk Proxy)"},
	{ID: "AAA", Name: "AAA Corp Bond Yield"},
	{ID: "UMCSENT", Name: "University of Michigan: Consumer Sentiment"},
	{ID: "CPIAUCSL", Name: "Consumer Price Index for All Urban Consumers"},
}

func (c *Config) applyDefaults() {
	// Database defaults
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDBPath
	}
	applyDBDefaults(&c.Database.Postgres)

	if c.Universe.Path == "" {
		c.Universe.Path = DefaultUniversePath
	}

	// Prices defaults
	p := &c.Prices
	if p.BaseURL == "" {
		p.BaseURL = DefaultPricesBaseURL
	}
	if p.Start.IsZero() {
		p.Start = Date{DefaultPricesStart}
	}
	if p.Timeout == 0 {
		p.Timeout = DefaultPricesTimeout
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = DefaultPricesMaxRetries
	}
	if p.RetryBaseDelay == 0 {
		p.RetryBaseDelay = DefaultPricesRetryBaseDelay
	}
	if p.RetryMaxDelay == 0 {
		p.RetryMaxDelay = DefaultPricesRetryMaxDelay
	}
	if p.RequestsPerSecond == 0 {
		p.RequestsPerSecond = DefaultPricesRPS
	}
	if p.Workers == 0 {
		p.Workers = DefaultPricesWorkers
	}
	if p.UserAgent == "" {
		p.UserAgent = DefaultPricesUserAgent
	}

	// Macro defaults
	m := &c.Macro
	if m.BaseURL == "" {
		m.BaseURL = DefaultMacroBaseURL
	}
	if m.Timeout == 0 {
		m.Timeout = DefaultMacroTimeout
	}
	if m.MaxRetries == 0 {
		m.MaxRetries = DefaultMacroMaxRetries
	}
	if m.RetryBaseDelay == 0 {
		m.RetryBaseDelay = DefaultMacroRetryBaseDelay
	}
	if m.RetryMaxDelay == 0 {
		m.RetryMaxDelay = DefaultMacroRetryMaxDelay
	}
	if m.RequestsPerSecond == 0 {
		m.RequestsPerSecond = DefaultMacroRPS
	}
	if len(m.Series) == 0 {
		m.Series = append([]SeriesConfig(nil), DefaultSeries...)
	}

	// CRSP defaults
	cr := &c.CRSP
	if cr.WRDS.Host == "" {
		cr.WRDS.Host = DefaultCRSPHost
	}
	if cr.WRDS.Port == 0 {
		cr.WRDS.Port = DefaultCRSPPort
	}
	if cr.WRDS.Name == "" {
		cr.WRDS.Name = DefaultCRSPName
	}
	if cr.WRDS.SSLMode == "" {
		cr.WRDS.SSLMode = DefaultCRSPSSLMode
	}
	applyDBDefaults(&cr.WRDS)
	if cr.Start.IsZero() {
		cr.Start = Date{DefaultPricesStart}
	}
	if cr.Workers == 0 {
		cr.Workers = DefaultCRSPWorkers
	}
	if cr.MaxRetries == 0 {
		cr.MaxRetries = DefaultCRSPMaxRetries
	}
	if cr.RetryBaseDelay == 0 {
		cr.RetryBaseDelay = DefaultCRSPRetryBaseDelay
	}
	if cr.RetryMaxDelay == 0 {
		cr.RetryMaxDelay = DefaultCRSPRetryMaxDelay
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

// Range resolves the price date range relative to now.
func (p PricesConfig) Range(now time.Time) (from, to time.Time) {
	return resolveRange(p.Start.Time, p.End.Time, DefaultPricesStart, now)
}

// Range resolves the macro date range relative to now. An unset start means
// DefaultMacroLookbackYears before the end.
func (m MacroConfig) Range(now time.Time) (from, to time.Time) {
	return resolveRange(m.Start.Time, m.End.Time, time.Time{}, now)
}

// Range resolves the CRSP date range relative to now.
func (c CRSPConfig) Range(now time.Time) (from, to time.Time) {
	return resolveRange(c.Start.Time, c.End.Time, DefaultPricesStart, now)
}

func resolveRange(start, end, defStart, now time.Time) (from, to time.Time) {
	to = end
	if to.IsZero() {
		to = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	from = start
	if from.IsZero() {
		from = defStart
	}
	if from.IsZero() {
		from = to.AddDate(-DefaultMacroLookbackYears, 0, 0)
	}
	return from, to
}
