// Package database opens the handles the store writes through.
//
// The default backend is a single DuckDB file on local disk, opened with one
// connection so that a run is the only writer. A PostgreSQL pool is available
// for deployments that keep the price history on a shared server.
package database
