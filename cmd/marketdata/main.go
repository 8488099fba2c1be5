// Command marketdata downloads daily equity prices and macroeconomic series
// into a local DuckDB file (or PostgreSQL) and queries the stored data.
//
//	marketdata prices              fetch prices for every symbol in the universe file
//	marketdata macro               fetch the configured macro series
//	marketdata crsp                fetch CRSP daily returns and delistings from WRDS
//	marketdata failures -kind=not_found
//	marketdata universe -min-years=5 -out=universe.parquet
//	marketdata stats
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

var (
	configPath = flag.String("config", "", "path to config file (default "+defaultConfigHint+")")
	logLevel   = flag.String("log-level", "", "override log.level (debug, info, warn, error)")
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&pricesCmd{}, "ingest")
	commander.Register(&macroCmd{}, "ingest")
	commander.Register(&crspCmd{}, "ingest")

	commander.Register(&failuresCmd{}, "query")
	commander.Register(&universeCmd{}, "query")
	commander.Register(&statsCmd{}, "query")

	commander.Register(&versionCmd{}, "")

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	os.Exit(int(commander.Execute(ctx)))
}
