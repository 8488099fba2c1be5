package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/market-ingest/internal/config"
)

// applicationName tags our sessions in pg_stat_activity.
const applicationName = "marketdata"

// BuildConnString builds a PostgreSQL connection URL from config.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}
	port := cfg.Port
	if port == 0 {
		port = config.DefaultDBPort
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, port),
		Path:   "/" + cfg.Name,
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("application_name", applicationName)
	u.RawQuery = q.Encode()

	return u.String()
}
