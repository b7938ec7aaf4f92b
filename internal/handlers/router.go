// Package handlers is the HTTP surface of the slippage service: the JSON API
// used by the browser front-end, the cached-analysis lookup, the MCP tool
// endpoint and static file serving.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig wires the handlers' collaborators.
type RouterConfig struct {
	Service AnalysisService
	Queue   JobQueue
	Reader  ResultReader
	MCP     *MCPInvokeHandler

	StaticDir          string
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
	Logger             *slog.Logger
}

// NewRouter builds the chi router.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(CorrelationIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", CorrelationIDHeader},
		ExposedHeaders: []string{CorrelationIDHeader},
		MaxAge:         300,
	}))
	r.Use(TimeoutMiddleware(cfg.RequestTimeout, logger))

	r.Get("/health", HealthCheckHandler())

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/tickers", NewTickersHandler(cfg.Service, logger))
		r.Method(http.MethodPost, "/analyze", NewAnalyzeHandler(cfg.Service, logger))
		r.Method(http.MethodPost, "/compare", NewCompareHandler(cfg.Service, logger))
		r.Method(http.MethodPost, "/export", NewExportHandler(logger))

		jobs := NewJobsHandler(cfg.Service, cfg.Queue, cfg.Reader, logger)
		r.Post("/jobs", jobs.Submit)
		r.Get("/jobs/{id}", jobs.Get)
	})

	r.Method(http.MethodGet, "/get_analysis", NewGetAnalysisHandler(cfg.Reader, logger))
	if cfg.MCP != nil {
		r.Method(http.MethodPost, "/mcp/sse", cfg.MCP)
	}

	if cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return r
}
