package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"slippage/internal/app"
	"slippage/internal/cache"
	"slippage/internal/config"
	"slippage/internal/consumer"
	"slippage/internal/instrumentation"
	"slippage/internal/models"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(os.Stdout, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		app.Fatal(logger, "invalid configuration", err)
	}

	logger.Info("slippage_worker_starting",
		"stream_key", cfg.JobStreamKey,
		"consumer_group", cfg.ConsumerGroup,
		"cache_ttl", cfg.CacheTTL,
	)

	shutdownTracing, err := app.InitTracing("slippage-worker", cfg.TraceStdout, os.Stderr)
	if err != nil {
		app.Fatal(logger, "failed to initialize tracing", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := cache.NewClient(cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		app.Fatal(logger, "failed to connect to redis", err)
	}
	defer client.Close()

	metrics := instrumentation.NewMetrics(prometheus.DefaultRegisterer)
	metricsServer := app.ServeMetrics(cfg.PrometheusPort, prometheus.DefaultGatherer, logger)

	service := app.NewService(cfg, client, metrics, logger)

	jobHandler := func(ctx context.Context, job *models.Job, streamID string) error {
		_, err := service.ProcessJob(ctx, job)
		return err
	}

	hostname, _ := os.Hostname()
	cons, err := consumer.New(ctx, client, consumer.Config{
		StreamKey:     cfg.JobStreamKey,
		ConsumerGroup: cfg.ConsumerGroup,
		ConsumerName:  fmt.Sprintf("worker-%s", hostname),
		BatchSize:     int64(cfg.WorkerPoolSize),
	}, jobHandler, logger)
	if err != nil {
		app.Fatal(logger, "failed to create consumer", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := cons.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- err
		}
	}()

	logger.Info("slippage_worker_running", "status", "healthy")

	select {
	case sig := <-sigChan:
		logger.Info("shutdown_signal_received", "signal", sig.String())
	case err := <-errChan:
		logger.Error("consumer_error", "error", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics_shutdown_error", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing_shutdown_error", "error", err)
	}

	logger.Info("slippage_worker_stopped")
}
