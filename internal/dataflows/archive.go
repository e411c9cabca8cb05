package dataflows

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
)

// BarRecord is the parquet schema for archived daily bars.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	AdjClose  float64 `parquet:"adj_close"`
	Volume    int64   `parquet:"volume"`
}

func barToRecord(b Bar) BarRecord {
	return BarRecord{
		Symbol:    b.Symbol,
		Timestamp: b.Date.UnixMilli(),
		Open:      b.Open.InexactFloat64(),
		High:      b.High.InexactFloat64(),
		Low:       b.Low.InexactFloat64(),
		Close:     b.Close.InexactFloat64(),
		AdjClose:  b.AdjClose.InexactFloat64(),
		Volume:    b.Volume,
	}
}

func recordToBar(r BarRecord) Bar {
	return Bar{
		Symbol:   r.Symbol,
		Date:     time.UnixMilli(r.Timestamp).UTC(),
		Open:     decimal.NewFromFloat(r.Open),
		High:     decimal.NewFromFloat(r.High),
		Low:      decimal.NewFromFloat(r.Low),
		Close:    decimal.NewFromFloat(r.Close),
		AdjClose: decimal.NewFromFloat(r.AdjClose),
		Volume:   r.Volume,
	}
}

// PriceArchive keeps one parquet file of daily bars per symbol so backtests
// can run when the live provider is unreachable.
type PriceArchive struct {
	dir string
}

func NewPriceArchive(dir string) *PriceArchive {
	return &PriceArchive{dir: dir}
}

func (a *PriceArchive) path(symbol string) string {
	return filepath.Join(a.dir, NormalizeSymbol(symbol)+".parquet")
}

// Load returns the archived bars of symbol sorted by date.
func (a *PriceArchive) Load(symbol string) ([]Bar, error) {
	rows, err := parquet.ReadFile[BarRecord](a.path(symbol))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("archive %s: %w", symbol, ErrNoData)
		}
		return nil, fmt.Errorf("read archive %s: %w", symbol, err)
	}
	bars := make([]Bar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, recordToBar(r))
	}
	sortBars(bars)
	return bars, nil
}

// Merge adds bars to the archive. Bars for a day already archived are replaced.
func (a *PriceArchive) Merge(symbol string, bars []Bar) error {
	if len(bars) == 0 {
		return nil
	}
	byDay := make(map[string]Bar)
	if existing, err := a.Load(symbol); err == nil {
		for _, b := range existing {
			byDay[b.Day()] = b
		}
	}
	for _, b := range bars {
		byDay[b.Day()] = b
	}

	merged := make([]Bar, 0, len(byDay))
	for _, b := range byDay {
		merged = append(merged, b)
	}
	sortBars(merged)
	return WriteBarsParquet(a.path(symbol), merged)
}

// WriteBarsParquet writes bars to path, creating parent directories.
func WriteBarsParquet(path string, bars []Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	records := make([]BarRecord, 0, len(bars))
	for _, b := range bars {
		records = append(records, barToRecord(b))
	}
	return parquet.WriteFile(path, records)
}
