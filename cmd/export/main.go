// Command export analyses every ticker under the data directory with default
// parameters and writes the batch results file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"slippage/internal/app"
	"slippage/internal/config"
	"slippage/internal/export"
	"slippage/internal/instrumentation"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	tickerList := fs.String("tickers", "", "comma-separated tickers (default: every ticker in the data directory)")
	out := fs.String("out", "results.json", "output file")
	dataDir := fs.String("data", cfg.DataDir, "data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.DataDir = *dataDir

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: app.ParseLevel(cfg.LogLevel)}))

	shutdownTracing, err := app.InitTracing("slippage-export", cfg.TraceStdout, os.Stderr)
	if err != nil {
		return err
	}
	defer shutdownTracing(ctx)

	// Batch runs never publish to the cache.
	service := app.NewService(cfg, nil, instrumentation.NewMetrics(prometheus.NewRegistry()), logger)

	tickers := splitTickers(*tickerList)
	if len(tickers) == 0 {
		found, err := service.Tickers()
		if err != nil {
			return fmt.Errorf("list tickers: %w", err)
		}
		for _, t := range found {
			tickers = append(tickers, t.Symbol)
		}
	}
	if len(tickers) == 0 {
		return fmt.Errorf("no tickers found under %s", cfg.DataDir)
	}

	results := service.Batch(ctx, tickers)

	body, err := export.JSON(results)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}

	failed := 0
	for _, r := range results {
		if r == nil {
			failed++
		}
	}
	logger.Info("batch_export_completed", "tickers", len(tickers), "failed", failed, "out", *out)
	fmt.Fprintf(stdout, "Results saved to %s\n", *out)
	return nil
}

func splitTickers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
