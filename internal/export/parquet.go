// Package export writes query results to Parquet files for downstream
// analytics.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/rickgao/market-ingest/internal/model"
)

// PriceRow is the Parquet layout of a daily bar.
type PriceRow struct {
	Symbol      string   `parquet:"symbol,dict"`
	Date        string   `parquet:"date"` // YYYY-MM-DD
	Open        float64  `parquet:"open"`
	High        float64  `parquet:"high"`
	Low         float64  `parquet:"low"`
	Close       float64  `parquet:"close"`
	AdjClose    float64  `parquet:"adj_close"`
	Volume      int64    `parquet:"volume"`
	DailyReturn *float64 `parquet:"daily_return,optional"`
	LogReturn   *float64 `parquet:"log_return,optional"`
}

// MacroRow is the Parquet layout of a macro observation.
type MacroRow struct {
	SeriesID string  `parquet:"series_id,dict"`
	Date     string  `parquet:"date"`
	Value    float64 `parquet:"value"`
}

func priceRows(bars []model.PriceBar) []PriceRow {
	rows := make([]PriceRow, len(bars))
	for i, b := range bars {
		rows[i] = PriceRow{
			Symbol:      b.Symbol,
			Date:        b.Date.Format(time.DateOnly),
			Open:        b.Open,
			High:        b.High,
			Low:         b.Low,
			Close:       b.Close,
			AdjClose:    b.AdjClose,
			Volume:      b.Volume,
			DailyReturn: b.DailyReturn,
			LogReturn:   b.LogReturn,
		}
	}
	return rows
}

func macroRows(points []model.MacroPoint) []MacroRow {
	rows := make([]MacroRow, len(points))
	for i, p := range points {
		rows[i] = MacroRow{SeriesID: p.SeriesID, Date: p.Date.Format(time.DateOnly), Value: p.Value}
	}
	return rows
}

// WritePrices writes bars to a Parquet file at path, creating parent
// directories as needed.
func WritePrices(path string, bars []model.PriceBar) error {
	if err := mkdirFor(path); err != nil {
		return err
	}
	if err := parquet.WriteFile(path, priceRows(bars)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteMacro writes observations to a Parquet file at path.
func WriteMacro(path string, points []model.MacroPoint) error {
	if err := mkdirFor(path); err != nil {
		return err
	}
	if err := parquet.WriteFile(path, macroRows(points)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// EncodePrices streams bars as Parquet to w.
func EncodePrices(w io.Writer, bars []model.PriceBar) error {
	pw := parquet.NewGenericWriter[PriceRow](w)
	if _, err := pw.Write(priceRows(bars)); err != nil {
		return fmt.Errorf("encode prices: %w", err)
	}
	return pw.Close()
}

// ReadPrices loads a file written by WritePrices.
func ReadPrices(path string) ([]PriceRow, error) {
	rows, err := parquet.ReadFile[PriceRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// ReadMacro loads a file written by WriteMacro.
func ReadMacro(path string) ([]MacroRow, error) {
	rows, err := parquet.ReadFile[MacroRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func mkdirFor(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}
