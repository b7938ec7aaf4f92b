// Package orderbook reads MBP-10 order-book snapshots from CSV and locates
// per-ticker data files.
package orderbook

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"slippage/internal/metrics"
	"slippage/internal/models"
)

// ErrMalformedFile is returned when a data file lacks required columns or
// cannot be parsed as CSV.
var ErrMalformedFile = errors.New("malformed order book file")

const (
	bidPriceColumn = "bid_px_00"
	askPriceColumn = "ask_px_00"
)

// LoadStats describes what a load kept and what it saw.
type LoadStats struct {
	Rows             int `json:"rows"`
	MissingTopOfBook int `json:"missing_top_of_book"`
	UnsortedAsks     int `json:"unsorted_asks"`
}

type columns struct {
	bid, ask  int
	askPrices [models.MaxBookLevels]int
	askSizes  [models.MaxBookLevels]int
}

// LoadFile opens path and loads at most maxRows snapshots from it.
func LoadFile(path string, maxRows int) ([]models.Snapshot, *LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return Load(f, maxRows)
}

// Load reads at most maxRows data rows (all rows when maxRows <= 0).
// Columns are located by header name. Empty and NaN cells are missing.
// Rows without a top of book are kept with NaN prices; ask levels are kept
// only when both price and size are present.
func Load(r io.Reader, maxRows int) ([]models.Snapshot, *LoadStats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read header: %v", ErrMalformedFile, err)
	}
	cols, err := locateColumns(header)
	if err != nil {
		return nil, nil, err
	}

	stats := &LoadStats{}
	var snapshots []models.Snapshot

	for maxRows <= 0 || len(snapshots) < maxRows {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: row %d: %v", ErrMalformedFile, len(snapshots)+1, err)
		}

		snap := parseRow(record, cols)
		if !snap.HasTopOfBook() {
			stats.MissingTopOfBook++
		}
		if metrics.AskSortingInvariant(snap.Asks) != nil {
			stats.UnsortedAsks++
		}
		snapshots = append(snapshots, snap)
	}

	stats.Rows = len(snapshots)
	return snapshots, stats, nil
}

func locateColumns(header []string) (*columns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	cols := &columns{bid: -1, ask: -1}
	var ok bool
	if cols.bid, ok = index[bidPriceColumn]; !ok {
		return nil, fmt.Errorf("%w: missing column %s", ErrMalformedFile, bidPriceColumn)
	}
	if cols.ask, ok = index[askPriceColumn]; !ok {
		return nil, fmt.Errorf("%w: missing column %s", ErrMalformedFile, askPriceColumn)
	}

	for i := 0; i < models.MaxBookLevels; i++ {
		cols.askPrices[i] = lookup(index, fmt.Sprintf("ask_px_%02d", i))
		cols.askSizes[i] = lookup(index, fmt.Sprintf("ask_sz_%02d", i))
	}
	return cols, nil
}

func lookup(index map[string]int, name string) int {
	if i, ok := index[name]; ok {
		return i
	}
	return -1
}

func parseRow(record []string, cols *columns) models.Snapshot {
	snap := models.Snapshot{
		BidPrice: cell(record, cols.bid),
		AskPrice: cell(record, cols.ask),
	}

	for i := 0; i < models.MaxBookLevels; i++ {
		price := cell(record, cols.askPrices[i])
		size := cell(record, cols.askSizes[i])
		if math.IsNaN(price) || math.IsNaN(size) {
			continue
		}
		snap.Asks = append(snap.Asks, models.Level{Price: price, Size: size})
	}
	return snap
}

// cell returns the value at i, or NaN when the column or value is missing.
func cell(record []string, i int) float64 {
	if i < 0 || i >= len(record) {
		return math.NaN()
	}
	s := strings.TrimSpace(record[i])
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}
