package orderbook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ErrTickerNotFound is returned when no data file exists for a ticker.
var ErrTickerNotFound = errors.New("data source not found")

var tickerPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Ticker is one discoverable data source.
type Ticker struct {
	Symbol string `json:"symbol"`
	File   string `json:"file"`
	Path   string `json:"path"`
}

// Discovery finds ticker data under DATA_DIR/<TICKER>/*.csv.
type Discovery struct {
	dataDir string
}

// NewDiscovery creates a discovery rooted at dataDir.
func NewDiscovery(dataDir string) *Discovery {
	return &Discovery{dataDir: dataDir}
}

// ValidTicker reports whether s is an acceptable ticker directory name.
func ValidTicker(s string) bool {
	return s != "." && s != ".." && tickerPattern.MatchString(s)
}

// ListTickers lists every ticker directory holding at least one CSV file,
// sorted by symbol. A missing data directory yields an empty list.
func (d *Discovery) ListTickers() ([]Ticker, error) {
	entries, err := os.ReadDir(d.dataDir)
	if errors.Is(err, os.ErrNotExist) {
		return []Ticker{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", d.dataDir, err)
	}

	tickers := []Ticker{}
	for _, entry := range entries {
		if !entry.IsDir() || !ValidTicker(entry.Name()) {
			continue
		}
		t, err := d.Resolve(entry.Name())
		if err != nil {
			continue
		}
		tickers = append(tickers, *t)
	}

	sort.Slice(tickers, func(i, j int) bool {
		return tickers[i].Symbol < tickers[j].Symbol
	})
	return tickers, nil
}

// Resolve returns the first CSV file (by name) for symbol.
func (d *Discovery) Resolve(symbol string) (*Ticker, error) {
	if !ValidTicker(symbol) {
		return nil, fmt.Errorf("%w: invalid ticker %q", ErrTickerNotFound, symbol)
	}

	dir := filepath.Join(d.dataDir, symbol)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}
	sort.Strings(files)

	return &Ticker{
		Symbol: symbol,
		File:   files[0],
		Path:   filepath.Join(dir, files[0]),
	}, nil
}
