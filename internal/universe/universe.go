// Package universe enumerates the keys an ingestion run iterates over.
package universe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rickgao/market-ingest/internal/model"
)

// ErrEmpty is returned when a source yields no keys.
var ErrEmpty = errors.New("universe is empty")

// Source lists the keys of a run. The order is stable across calls.
type Source interface {
	List(ctx context.Context) ([]string, error)
}

// FileSource reads ticker symbols from a file.
//
// Files ending in .json hold an array of strings. Anything else is read as
// one symbol per line, with blank lines and lines starting with '#' ignored.
type FileSource struct {
	Path string
}

// List implements Source.
func (f FileSource) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read universe %s: %w", f.Path, err)
	}

	var raw []string
	if strings.EqualFold(filepath.Ext(f.Path), ".json") {
		if err := json.Unmarshal(content, &raw); err != nil {
			return nil, fmt.Errorf("parse universe %s: %w", f.Path, err)
		}
	} else {
		raw = parseLines(string(content))
	}

	symbols := normalize(raw)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%s: %w", f.Path, ErrEmpty)
	}
	return symbols, nil
}

func parseLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// normalize upper-cases and trims symbols, dropping blanks and repeats while
// keeping first-seen order.
func normalize(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = model.NormalizeSymbol(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Static is a fixed list of keys, used verbatim apart from trimming.
type Static []string

// List implements Source.
func (s Static) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(s))
	for _, k := range s {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}
