package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"slippage/internal/aggregator"
	"slippage/internal/models"
	"slippage/internal/orderbook"
)

// AnalysisService runs analyses on behalf of the HTTP API.
type AnalysisService interface {
	Tickers() ([]orderbook.Ticker, error)
	ValidateParams(params models.Params) error
	Analyze(ctx context.Context, ticker string, params models.Params) (*models.AnalysisResult, error)
	Compare(ctx context.Context, scenarios []aggregator.Scenario) []*models.AnalysisResult
}

// analyzeRequest is a ticker plus analysis parameters. Omitted parameters
// take the documented defaults.
type analyzeRequest struct {
	Ticker string `json:"ticker"`
	models.Params
}

func (a *analyzeRequest) UnmarshalJSON(b []byte) error {
	type plain analyzeRequest
	p := plain{Params: models.DefaultParams()}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*a = analyzeRequest(p)
	return nil
}

// TickersHandler handles GET /api/tickers.
type TickersHandler struct {
	service AnalysisService
	logger  *slog.Logger
}

// NewTickersHandler creates a tickers handler.
func NewTickersHandler(service AnalysisService, logger *slog.Logger) *TickersHandler {
	return &TickersHandler{service: service, logger: logger.With("handler", "tickers")}
}

func (h *TickersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.service.Tickers()
	if err != nil {
		h.logger.Error("ticker_listing_failed", "error", err)
		sendError(w, r, http.StatusInternalServerError, "internal_error", "Failed to list tickers", nil)
		return
	}
	if tickers == nil {
		tickers = []orderbook.Ticker{}
	}
	render.JSON(w, r, tickers)
}

// AnalyzeHandler handles POST /api/analyze.
type AnalyzeHandler struct {
	service AnalysisService
	logger  *slog.Logger
}

// NewAnalyzeHandler creates an analyze handler.
func NewAnalyzeHandler(service AnalysisService, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{service: service, logger: logger.With("handler", "analyze")}
}

func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		sendError(w, r, http.StatusBadRequest, "invalid_request", "Request body must be a JSON object", nil)
		return
	}
	if req.Ticker == "" {
		sendError(w, r, http.StatusBadRequest, "missing_parameter", "ticker is required", nil)
		return
	}

	h.logger.Debug("analyze_request", "ticker", req.Ticker, "correlation_id", GetCorrelationID(r.Context()))

	result, err := h.service.Analyze(r.Context(), req.Ticker, req.Params)
	if err != nil {
		sendAnalysisError(w, r, h.logger, req.Ticker, err)
		return
	}
	render.JSON(w, r, result)
}

// CompareHandler handles POST /api/compare.
type CompareHandler struct {
	service AnalysisService
	logger  *slog.Logger
}

// NewCompareHandler creates a compare handler.
func NewCompareHandler(service AnalysisService, logger *slog.Logger) *CompareHandler {
	return &CompareHandler{service: service, logger: logger.With("handler", "compare")}
}

type compareRequest struct {
	Scenarios []analyzeRequest `json:"scenarios"`
}

type compareResponse struct {
	Scenarios         []*models.AnalysisResult           `json:"scenarios"`
	ComparisonMetrics map[string]models.ComparisonMetric `json:"comparison_metrics"`
}

func (h *CompareHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		sendError(w, r, http.StatusBadRequest, "invalid_request", "Request body must be a JSON object", nil)
		return
	}

	scenarios := make([]aggregator.Scenario, len(req.Scenarios))
	for i, s := range req.Scenarios {
		scenarios[i] = aggregator.Scenario{Ticker: s.Ticker, Params: s.Params}
	}

	results := h.service.Compare(r.Context(), scenarios)
	h.logger.Info("comparison_completed",
		"scenarios", len(scenarios),
		"succeeded", len(results),
		"correlation_id", GetCorrelationID(r.Context()),
	)

	render.JSON(w, r, compareResponse{
		Scenarios:         results,
		ComparisonMetrics: aggregator.ComparisonMetrics(results),
	})
}
