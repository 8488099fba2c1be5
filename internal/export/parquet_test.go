package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/rickgao/market-ingest/internal/model"
)

func testBars() []model.PriceBar {
	bars := []model.PriceBar{
		{Symbol: "AAPL", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 187.15, High: 188.44, Low: 183.89, Close: 185.64, AdjClose: 184.94, Volume: 82488700},
		{Symbol: "AAPL", Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Open: 184.22, High: 185.88, Low: 183.43, Close: 184.25, AdjClose: 183.56, Volume: 58414500},
	}
	model.ComputeReturns(bars)
	return bars
}

func TestWritePrices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "universe.parquet")
	bars := testBars()

	if err := WritePrices(path, bars); err != nil {
		t.Fatalf("WritePrices() error = %v", err)
	}
	rows, err := ReadPrices(path)
	if err != nil {
		t.Fatalf("ReadPrices() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}

	if rows[0].Date != "2024-01-02" || rows[0].Symbol != "AAPL" {
		t.Errorf("rows[0] = %+v, want AAPL 2024-01-02", rows[0])
	}
	if rows[0].DailyReturn != nil || rows[0].LogReturn != nil {
		t.Error("first row returns should be null")
	}
	if rows[1].DailyReturn == nil || *rows[1].DailyReturn != *bars[1].DailyReturn {
		t.Errorf("rows[1].DailyReturn = %v, want %v", rows[1].DailyReturn, *bars[1].DailyReturn)
	}
	if rows[1].Volume != 58414500 {
		t.Errorf("rows[1].Volume = %d, want 58414500", rows[1].Volume)
	}
}

func TestWriteMacro(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpi.parquet")
	points := []model.MacroPoint{
		{SeriesID: "CPIAUCSL", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: 308.417},
		{SeriesID: "CPIAUCSL", Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Value: 310.326},
	}
	if err := WriteMacro(path, points); err != nil {
		t.Fatalf("WriteMacro() error = %v", err)
	}
	rows, err := ReadMacro(path)
	if err != nil {
		t.Fatalf("ReadMacro() error = %v", err)
	}
	if len(rows) != 2 || rows[1].Date != "2024-02-01" || rows[1].Value != 310.326 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestEncodePrices(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodePrices(&buf, testBars()); err != nil {
		t.Fatalf("EncodePrices() error = %v", err)
	}
	rows, err := parquet.Read[PriceRow](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("parquet.Read() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("len(rows) = %d, want 2", len(rows))
	}
}

func TestWriteEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	if err := WritePrices(path, nil); err != nil {
		t.Fatalf("WritePrices(nil) error = %v", err)
	}
	rows, err := ReadPrices(path)
	if err != nil {
		t.Fatalf("ReadPrices() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("len(rows) = %d, want 0", len(rows))
	}
}
