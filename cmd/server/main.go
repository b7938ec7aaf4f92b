package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"slippage/internal/app"
	"slippage/internal/cache"
	"slippage/internal/config"
	"slippage/internal/consumer"
	"slippage/internal/handlers"
	"slippage/internal/instrumentation"
	"slippage/internal/mcp"
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

	logger.Info("slippage_server_starting",
		"port", cfg.HTTPPort,
		"data_dir", cfg.DataDir,
		"worker_pool_size", cfg.WorkerPoolSize,
		"analysis_timeout_ms", cfg.AnalysisTimeoutMS,
		"tolerant_linear_fit", cfg.TolerantLinearFit,
	)

	shutdownTracing, err := app.InitTracing("slippage-server", cfg.TraceStdout, os.Stderr)
	if err != nil {
		app.Fatal(logger, "failed to initialize tracing", err)
	}

	client, err := cache.NewClient(cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		app.Fatal(logger, "failed to connect to redis", err)
	}
	defer client.Close()
	logger.Info("redis_connected")

	metrics := instrumentation.NewMetrics(prometheus.DefaultRegisterer)
	metricsServer := app.ServeMetrics(cfg.PrometheusPort, prometheus.DefaultGatherer, logger)

	service := app.NewService(cfg, client, metrics, logger)
	reader := cache.NewReader(client, logger)

	invoker, err := mcp.NewToolInvoker(mcp.NewToolExecutor(reader, service))
	if err != nil {
		app.Fatal(logger, "failed to compile tool schemas", err)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Service:            service,
		Queue:              consumer.NewProducer(client, cfg.JobStreamKey, logger),
		Reader:             reader,
		MCP:                handlers.NewMCPInvokeHandler(invoker, cfg.AnalysisTimeout(), logger),
		StaticDir:          cfg.StaticDir,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout:     cfg.RequestTimeout(),
		Logger:             logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 5*time.Second,
	}

	go func() {
		logger.Info("http_server_listening", "port", cfg.HTTPPort, "status", "healthy")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Fatal(logger, "server_error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info("shutdown_signal_received", "signal", sig.String())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("metrics_shutdown_error", "error", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Error("tracing_shutdown_error", "error", err)
	}

	logger.Info("slippage_server_stopped")
}
