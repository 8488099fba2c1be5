// Package config loads the YAML configuration shared by every marketdata
// subcommand.
//
// Files may reference environment variables as ${VAR}; they are expanded
// before parsing, which is how the FRED API key and database password are
// normally supplied. Missing fields fall back to the defaults in defaults.go.
package config
