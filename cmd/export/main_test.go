package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slippage/internal/models"
)

func writeTicker(t *testing.T, dataDir, symbol string, rows int) {
	t.Helper()

	var b strings.Builder
	b.WriteString("ts_event,bid_px_00,ask_px_00,ask_sz_00,ask_px_01,ask_sz_01,ask_px_02,ask_sz_02\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "2025-05-02T13:30:%02dZ,99.5,100.0,50,100.5,50,101.0,50\n", i%60)
	}

	dir := filepath.Join(dataDir, symbol)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, symbol+"_2025-05-02.csv"), []byte(b.String()), 0o644))
}

func TestRun(t *testing.T) {
	dataDir := t.TempDir()
	writeTicker(t, dataDir, "CRWV", 20)
	writeTicker(t, dataDir, "THIN", 5)
	out := filepath.Join(t.TempDir(), "results.json")

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-data", dataDir, "-out", out}, &stdout))
	assert.Contains(t, stdout.String(), out)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)

	var results []*models.BatchResult
	require.NoError(t, json.Unmarshal(raw, &results))
	require.Len(t, results, 2)
	require.NotNil(t, results[0])
	assert.Equal(t, "CRWV", results[0].Ticker)
	assert.Len(t, results[0].Allocations, 3)
	assert.Len(t, results[0].Allocations["50000"], 10)
	assert.Nil(t, results[1])
}

func TestRun_TickerFlag(t *testing.T) {
	dataDir := t.TempDir()
	writeTicker(t, dataDir, "CRWV", 20)
	out := filepath.Join(t.TempDir(), "results.json")

	require.NoError(t, run(context.Background(), []string{"-data", dataDir, "-out", out, "-tickers", " CRWV , NOPE"}, &bytes.Buffer{}))

	var results []*models.BatchResult
	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &results))
	require.Len(t, results, 2)
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
}

func TestRun_NoTickers(t *testing.T) {
	err := run(context.Background(), []string{"-data", t.TempDir(), "-out", filepath.Join(t.TempDir(), "r.json")}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "no tickers")
}

func TestSplitTickers(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, splitTickers("A, ,B,"))
	assert.Nil(t, splitTickers(""))
}
