// Package app holds the process wiring shared by the server, worker and
// export binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"slippage/internal/aggregator"
	"slippage/internal/config"
	"slippage/internal/instrumentation"
	"slippage/internal/numeric"
	"slippage/internal/orderbook"
	"slippage/internal/pipeline"
)

// ParseLevel maps LOG_LEVEL to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger returns a JSON logger on w and installs it as the default.
func NewLogger(w io.Writer, level string) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}

// InitTracing installs a tracer provider exporting to w when enabled. The
// returned shutdown flushes pending spans; it is a no-op when disabled.
func InitTracing(serviceName string, enabled bool, w io.Writer) (func(context.Context) error, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// NewService builds the analysis service from configuration. A nil client
// disables result publishing.
func NewService(cfg *config.Config, client *redis.Client, metrics *instrumentation.Metrics, logger *slog.Logger) *aggregator.Service {
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithCurveFitter(numeric.NewLevenbergMarquardt()),
		pipeline.WithSolver(numeric.NewProjectedGradient()),
	}
	if cfg.TolerantLinearFit {
		opts = append(opts, pipeline.WithTolerantLinearFit())
	}
	runner := pipeline.NewRunner(pipeline.NewAnalyzer(opts...), cfg.WorkerPoolSize, cfg.AnalysisTimeout())

	var publisher aggregator.ResultPublisher
	if client != nil {
		publisher = aggregator.NewRedisPublisher(client, cfg.CacheTTL, logger)
	}

	return aggregator.New(orderbook.NewDiscovery(cfg.DataDir), runner, publisher, metrics, logger)
}

// ServeMetrics starts the Prometheus /metrics listener on port in the
// background and returns its server for shutdown.
func ServeMetrics(port int, gatherer prometheus.Gatherer, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics_server_starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics_server_failed", "error", err)
		}
	}()

	return srv
}

// Fatal logs msg with err and exits.
func Fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
