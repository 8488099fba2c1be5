package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/rickgao/market-ingest/internal/crsp"
	"github.com/rickgao/market-ingest/internal/database"
	"github.com/rickgao/market-ingest/internal/fetch"
	"github.com/rickgao/market-ingest/internal/fred"
	"github.com/rickgao/market-ingest/internal/ingest"
	"github.com/rickgao/market-ingest/internal/model"
	"github.com/rickgao/market-ingest/internal/progress"
	"github.com/rickgao/market-ingest/internal/universe"
	"github.com/rickgao/market-ingest/internal/yahoo"
)

// --- pricesCmd ---

type pricesCmd struct {
	universe string
	symbols  string
	from     string
	to       string
	workers  int
	refetch  bool
	timeout  time.Duration
}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "download daily prices for the ticker universe" }
func (*pricesCmd) Usage() string {
	return `prices [-universe FILE | -symbols A,B] [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-workers N] [-refetch]

Fetches daily bars for every symbol and stores them. Symbols that already
have stored history are skipped unless -refetch is given. Failed symbols are
recorded in the failure log and do not stop the run.
`
}

func (c *pricesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.universe, "universe", "", "ticker file (.txt or .json), overrides universe.path")
	f.StringVar(&c.symbols, "symbols", "", "comma-separated symbols, overrides the universe file")
	f.StringVar(&c.from, "from", "", "first day, overrides prices.start")
	f.StringVar(&c.to, "to", "", "last day, overrides prices.end")
	f.IntVar(&c.workers, "workers", 0, "concurrent fetches, overrides prices.workers")
	f.BoolVar(&c.refetch, "refetch", false, "fetch symbols that already have history")
	f.DurationVar(&c.timeout, "key-timeout", 0, "deadline per symbol including retries (0: none)")
}

func (c *pricesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger, st, err := setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()

	from, to := cfg.Prices.Range(time.Now().UTC())
	from, to, err = overrideRange(from, to, c.from, c.to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	var keys universe.Source = universe.FileSource{Path: cfg.Universe.Path}
	switch {
	case c.symbols != "":
		keys = universe.Static(strings.Split(strings.ToUpper(c.symbols), ","))
	case c.universe != "":
		keys = universe.FileSource{Path: c.universe}
	}

	workers := cfg.Prices.Workers
	if c.workers > 0 {
		workers = c.workers
	}

	p := cfg.Prices
	client := yahoo.NewClient(p.BaseURL,
		yahoo.WithTimeout(p.Timeout),
		yahoo.WithRetries(p.MaxRetries, p.RetryBaseDelay, p.RetryMaxDelay),
		yahoo.WithThrottle(fetch.NewThrottle(p.RequestsPerSecond, 1)),
		yahoo.WithUserAgent(p.UserAgent),
		yahoo.WithChunkDays(p.ChunkDays),
		yahoo.WithLogger(logger),
	)

	tracker := progress.NewTracker(st)
	if c.refetch {
		tracker = progress.Disabled()
	}

	o := ingest.NewPrices(ingest.Config{
		From:       from,
		To:         to,
		Workers:    workers,
		KeyTimeout: c.timeout,
	}, keys, client, st, tracker, logger)

	sum, err := o.Run(ctx)
	sum.Print(os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// --- macroCmd ---

type macroCmd struct {
	series  string
	from    string
	to      string
	workers int
}

func (*macroCmd) Name() string     { return "macro" }
func (*macroCmd) Synopsis() string { return "download the configured macroeconomic series" }
func (*macroCmd) Usage() string {
	return `macro [-series ID,ID] [-from YYYY-MM-DD] [-to YYYY-MM-DD]

Fetches every configured series (or the ones named by -series) and stores
the observations. Series are always refetched; stored observations are kept.
Requires macro.api_key or FRED_API_KEY.
`
}

func (c *macroCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.series, "series", "", "comma-separated series ids, overrides macro.series")
	f.StringVar(&c.from, "from", "", "first day, overrides macro.start")
	f.StringVar(&c.to, "to", "", "last day, overrides macro.end")
	f.IntVar(&c.workers, "workers", 1, "concurrent fetches")
}

func (c *macroCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger, st, err := setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()

	if cfg.Macro.APIKey == "" {
		cfg.Macro.APIKey = os.Getenv("FRED_API_KEY")
	}
	if err := cfg.ValidateMacroCredentials(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	from, to := cfg.Macro.Range(time.Now().UTC())
	from, to, err = overrideRange(from, to, c.from, c.to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	ids := cfg.Macro.SeriesIDs()
	if c.series != "" {
		ids = nil
		for _, id := range strings.Split(c.series, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	series := make([]model.MacroSeries, 0, len(ids))
	for _, id := range ids {
		series = append(series, model.MacroSeries{ID: id, Name: cfg.Macro.SeriesName(id)})
	}

	m := cfg.Macro
	client := fred.NewClient(m.BaseURL, m.APIKey,
		fred.WithTimeout(m.Timeout),
		fred.WithRetries(m.MaxRetries, m.RetryBaseDelay, m.RetryMaxDelay),
		fred.WithThrottle(fetch.NewThrottle(m.RequestsPerSecond, 1)),
		fred.WithLogger(logger),
	)

	o := ingest.NewMacro(ingest.Config{
		From:    from,
		To:      to,
		Workers: c.workers,
	}, series, client, st, logger)

	sum, err := o.Run(ctx)
	sum.Print(os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// --- crspCmd ---

type crspCmd struct {
	from    string
	to      string
	workers int
	refetch bool
	timeout time.Duration
}

func (*crspCmd) Name() string     { return "crsp" }
func (*crspCmd) Synopsis() string { return "download CRSP daily returns and delistings from WRDS" }
func (*crspCmd) Usage() string {
	return `crsp [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-workers N] [-refetch]

Fetches CRSP daily stock returns and delisting events one calendar month at a
time and stores them with delisting-adjusted total returns. Completed months
that are already stored are skipped unless -refetch is given. Requires
crsp.wrds.user and crsp.wrds.password, or WRDS_USER and WRDS_PASSWORD.
`
}

func (c *crspCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "first day, overrides crsp.start")
	f.StringVar(&c.to, "to", "", "last day, overrides crsp.end")
	f.IntVar(&c.workers, "workers", 0, "concurrent months, overrides crsp.workers")
	f.BoolVar(&c.refetch, "refetch", false, "fetch months that are already stored")
	f.DurationVar(&c.timeout, "key-timeout", 0, "deadline per month including retries (0: none)")
}

func (c *crspCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger, st, err := setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()

	if cfg.CRSP.WRDS.User == "" {
		cfg.CRSP.WRDS.User = os.Getenv("WRDS_USER")
	}
	if cfg.CRSP.WRDS.Password == "" {
		cfg.CRSP.WRDS.Password = os.Getenv("WRDS_PASSWORD")
	}
	if err := cfg.ValidateCRSPCredentials(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	from, to := cfg.CRSP.Range(time.Now().UTC())
	from, to, err = overrideRange(from, to, c.from, c.to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	workers := cfg.CRSP.Workers
	if c.workers > 0 {
		workers = c.workers
	}

	pool, err := database.Connect(ctx, cfg.CRSP.WRDS)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: connect to WRDS: %v\n", err)
		return subcommands.ExitFailure
	}
	defer pool.Close()

	client := crsp.NewClient(pool,
		crsp.WithRetries(cfg.CRSP.MaxRetries, cfg.CRSP.RetryBaseDelay, cfg.CRSP.RetryMaxDelay),
		crsp.WithLogger(logger),
	)

	tracker := ingest.NewCRSPTracker(st)
	if c.refetch {
		tracker = progress.Disabled()
	}

	o := ingest.NewCRSP(ingest.Config{
		From:       from,
		To:         to,
		Workers:    workers,
		KeyTimeout: c.timeout,
	}, client, st, tracker, logger)

	sum, err := o.Run(ctx)
	sum.Print(os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
