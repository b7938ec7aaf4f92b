package orderbook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
}

func TestDiscovery_ListTickers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "SOUN", "SOUN_2025-05-02.csv"))
	writeFile(t, filepath.Join(dir, "CRWV", "b.csv"))
	writeFile(t, filepath.Join(dir, "CRWV", "a.csv"))
	writeFile(t, filepath.Join(dir, "EMPTY", "notes.txt"))
	writeFile(t, filepath.Join(dir, "bad name", "x.csv"))
	writeFile(t, filepath.Join(dir, "stray.csv"))

	tickers, err := NewDiscovery(dir).ListTickers()
	require.NoError(t, err)
	require.Len(t, tickers, 2)
	assert.Equal(t, "CRWV", tickers[0].Symbol)
	assert.Equal(t, "a.csv", tickers[0].File)
	assert.Equal(t, filepath.Join(dir, "CRWV", "a.csv"), tickers[0].Path)
	assert.Equal(t, "SOUN", tickers[1].Symbol)
}

func TestDiscovery_MissingDataDir(t *testing.T) {
	tickers, err := NewDiscovery(filepath.Join(t.TempDir(), "nope")).ListTickers()
	require.NoError(t, err)
	assert.Empty(t, tickers)
}

func TestDiscovery_Resolve(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "FROG", "FROG.csv"))

	d := NewDiscovery(dir)
	ticker, err := d.Resolve("FROG")
	require.NoError(t, err)
	assert.Equal(t, "FROG.csv", ticker.File)

	for _, symbol := range []string{"MISSING", "../etc", "..", "a/b", ""} {
		_, err := d.Resolve(symbol)
		assert.ErrorIs(t, err, ErrTickerNotFound, symbol)
	}
}
