package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rickgao/market-ingest/internal/config"
)

func TestOverrideRange(t *testing.T) {
	from := time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		fromFlag string
		toFlag   string
		wantFrom string
		wantTo   string
		wantErr  bool
	}{
		{"no flags", "", "", "1950-01-01", "2024-06-01", false},
		{"from only", "2020-01-01", "", "2020-01-01", "2024-06-01", false},
		{"both", "2020-01-01", "2020-12-31", "2020-01-01", "2020-12-31", false},
		{"bad date", "2020/01/01", "", "", "", true},
		{"reversed", "2024-07-01", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotFrom, gotTo, err := overrideRange(from, to, tt.fromFlag, tt.toFlag)
			if (err != nil) != tt.wantErr {
				t.Fatalf("overrideRange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := gotFrom.Format(time.DateOnly); got != tt.wantFrom {
				t.Errorf("from = %s, want %s", got, tt.wantFrom)
			}
			if got := gotTo.Format(time.DateOnly); got != tt.wantTo {
				t.Errorf("to = %s, want %s", got, tt.wantTo)
			}
		})
	}
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	old := *configPath
	t.Cleanup(func() { *configPath = old })
	*configPath = ""

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Database.Driver != config.DefaultDriver {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, config.DefaultDriver)
	}
}

func TestLoadConfigExplicitMissing(t *testing.T) {
	old := *configPath
	t.Cleanup(func() { *configPath = old })
	*configPath = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := loadConfig(); err == nil {
		t.Error("loadConfig() error = nil, want error for missing explicit config")
	}
}

func TestLoadConfigLogLevelOverride(t *testing.T) {
	oldPath, oldLevel := *configPath, *logLevel
	t.Cleanup(func() { *configPath, *logLevel = oldPath, oldLevel })

	path := filepath.Join(t.TempDir(), "marketdata.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	*configPath = path
	*logLevel = "debug"

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}
