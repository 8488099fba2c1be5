package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/rickgao/market-ingest/internal/export"
	"github.com/rickgao/market-ingest/internal/fetch"
	"github.com/rickgao/market-ingest/internal/store"
	"github.com/rickgao/market-ingest/internal/version"
)

// --- failuresCmd ---

type failuresCmd struct {
	symbol string
	runID  string
	kind   string
	limit  int
}

func (*failuresCmd) Name() string     { return "failures" }
func (*failuresCmd) Synopsis() string { return "list recorded fetch failures, newest first" }
func (*failuresCmd) Usage() string {
	return `failures [-symbol SYM] [-run RUN_ID] [-kind KIND] [-limit N]

KIND is one of: not_found, rate_limited, network_error, malformed_response.
`
}

func (c *failuresCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "only this symbol or series id")
	f.StringVar(&c.runID, "run", "", "only this ingestion run")
	f.StringVar(&c.kind, "kind", "", "only this failure kind")
	f.IntVar(&c.limit, "limit", 50, "maximum rows (0: all)")
}

func (c *failuresCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	filter := store.FailureFilter{Symbol: strings.ToUpper(c.symbol), Kind: c.kind, Limit: c.limit}
	if c.runID != "" {
		id, err := uuid.Parse(c.runID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: -run: %v\n", err)
			return subcommands.ExitUsageError
		}
		filter.RunID = id
	}
	if c.kind != "" && !validKind(c.kind) {
		fmt.Fprintf(os.Stderr, "Error: unknown -kind %q\n", c.kind)
		return subcommands.ExitUsageError
	}

	_, _, st, err := setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()

	rows, err := st.Failures(ctx, filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "AT\tSOURCE\tSYMBOL\tKIND\tRUN\tMESSAGE")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.At.Format(time.DateTime), r.Source, r.Symbol, r.Kind, r.RunID.String()[:8], r.Message)
	}
	w.Flush()
	return subcommands.ExitSuccess
}

func validKind(s string) bool {
	for _, k := range fetch.Kinds {
		if k.String() == s {
			return true
		}
	}
	return false
}

// --- universeCmd ---

type universeCmd struct {
	symbols  string
	from     string
	to       string
	minYears int
	minPrice float64
	out      string
}

func (*universeCmd) Name() string     { return "universe" }
func (*universeCmd) Synopsis() string { return "select stored price history by filters" }
func (*universeCmd) Usage() string {
	return `universe [-symbols A,B] [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-min-years N] [-min-price P] [-out FILE.parquet]

Without -out, prints the matching symbols with their row counts. With -out,
writes the matching bars to a Parquet file.
`
}

func (c *universeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbols, "symbols", "", "comma-separated symbols")
	f.StringVar(&c.from, "from", "", "first day")
	f.StringVar(&c.to, "to", "", "last day")
	f.IntVar(&c.minYears, "min-years", 0, "minimum years of history, still trading at -to")
	f.Float64Var(&c.minPrice, "min-price", 0, "average close strictly above this value")
	f.StringVar(&c.out, "out", "", "write bars to this Parquet file")
}

func (c *universeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	from, err := dateFlag("from", c.from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	to, err := dateFlag("to", c.to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	filter := store.UniverseFilter{
		From:            from,
		To:              to,
		MinHistoryYears: c.minYears,
		MinAvgPrice:     c.minPrice,
	}
	for _, s := range strings.Split(c.symbols, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			filter.Symbols = append(filter.Symbols, s)
		}
	}

	_, logger, st, err := setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()

	bars, err := st.QueryUniverse(ctx, filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.out != "" {
		if err := export.WritePrices(c.out, bars); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		logger.Info("universe exported", "path", c.out, "rows", len(bars))
		return subcommands.ExitSuccess
	}

	// bars are ordered by symbol, then date
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tROWS\tFIRST\tLAST")
	for i := 0; i < len(bars); {
		j := i
		for j < len(bars) && bars[j].Symbol == bars[i].Symbol {
			j++
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", bars[i].Symbol, j-i,
			bars[i].Date.Format(time.DateOnly), bars[j-1].Date.Format(time.DateOnly))
		i = j
	}
	w.Flush()
	return subcommands.ExitSuccess
}

// --- statsCmd ---

type statsCmd struct{}

func (*statsCmd) Name() string             { return "stats" }
func (*statsCmd) Synopsis() string         { return "summarize stored data" }
func (*statsCmd) Usage() string            { return "stats\n" }
func (*statsCmd) SetFlags(f *flag.FlagSet) {}

func (*statsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, _, st, err := setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()

	s, err := st.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	span := "-"
	if !s.FirstDate.IsZero() {
		span = s.FirstDate.Format(time.DateOnly) + " .. " + s.LastDate.Format(time.DateOnly)
	}
	fmt.Printf("price rows:         %d\n", s.PriceRows)
	fmt.Printf("symbols:            %d\n", s.Symbols)
	fmt.Printf("date span:          %s\n", span)
	fmt.Printf("macro series:       %d\n", s.MacroSeries)
	fmt.Printf("macro observations: %d\n", s.MacroObservations)
	fmt.Printf("crsp returns:       %d\n", s.CRSPReturns)
	fmt.Printf("crsp delistings:    %d\n", s.CRSPDelistings)
	fmt.Printf("failures:           %d\n", s.Failures)
	return subcommands.ExitSuccess
}

// --- versionCmd ---

type versionCmd struct{}

func (*versionCmd) Name() string             { return "version" }
func (*versionCmd) Synopsis() string         { return "print version information" }
func (*versionCmd) Usage() string            { return "version\n" }
func (*versionCmd) SetFlags(f *flag.FlagSet) {}

func (*versionCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	fmt.Println(version.String())
	return subcommands.ExitSuccess
}
