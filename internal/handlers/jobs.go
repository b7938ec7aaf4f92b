package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"slippage/internal/models"
	"slippage/internal/orderbook"
	"slippage/internal/pipeline"
)

// JobQueue enqueues asynchronous analyses.
type JobQueue interface {
	Enqueue(ctx context.Context, ticker string, params models.Params) (*models.Job, error)
}

// ResultReader reads cached analyses and job results.
type ResultReader interface {
	GetAnalysis(ctx context.Context, ticker string) (*models.AnalysisResult, error)
	GetJob(ctx context.Context, id string) (*models.JobResult, error)
}

// JobsHandler serves POST /api/jobs and GET /api/jobs/{id}.
type JobsHandler struct {
	service AnalysisService
	queue   JobQueue
	reader  ResultReader
	logger  *slog.Logger
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(service AnalysisService, queue JobQueue, reader ResultReader, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{
		service: service,
		queue:   queue,
		reader:  reader,
		logger:  logger.With("handler", "jobs"),
	}
}

type jobAccepted struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Submit validates the request and queues it, answering 202 with the job ID.
func (h *JobsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		sendError(w, r, http.StatusBadRequest, "invalid_request", "Request body must be a JSON object", nil)
		return
	}
	if !orderbook.ValidTicker(req.Ticker) {
		sendError(w, r, http.StatusBadRequest, "missing_parameter", "ticker is required and must be a directory name", nil)
		return
	}
	if err := h.service.ValidateParams(req.Params); err != nil {
		var ve *pipeline.ValidationError
		if errors.As(err, &ve) {
			sendError(w, r, http.StatusBadRequest, "invalid_parameters", ve.Error(), ve.Fields)
			return
		}
		sendError(w, r, http.StatusBadRequest, "invalid_parameters", err.Error(), nil)
		return
	}

	job, err := h.queue.Enqueue(r.Context(), req.Ticker, req.Params)
	if err != nil {
		h.logger.Error("job_enqueue_failed", "ticker", req.Ticker, "error", err)
		sendError(w, r, http.StatusServiceUnavailable, "backend_unavailable", "Failed to queue analysis job", nil)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, jobAccepted{JobID: job.ID, Status: "queued"})
}

// Get returns a processed job's result.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.reader.GetJob(r.Context(), id)
	if err != nil {
		h.logger.Error("cache_read_failed", "job_id", id, "error", err)
		sendError(w, r, http.StatusInternalServerError, "backend_unavailable", "Failed to read from cache", nil)
		return
	}
	if result == nil {
		sendError(w, r, http.StatusNotFound, "job_not_found", "Job not found or not yet processed", nil)
		return
	}
	render.JSON(w, r, result)
}

// GetAnalysisHandler handles GET /get_analysis?ticker=.
type GetAnalysisHandler struct {
	reader ResultReader
	logger *slog.Logger
}

// NewGetAnalysisHandler creates a get_analysis handler.
func NewGetAnalysisHandler(reader ResultReader, logger *slog.Logger) *GetAnalysisHandler {
	return &GetAnalysisHandler{reader: reader, logger: logger.With("handler", "get_analysis")}
}

func (h *GetAnalysisHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		sendError(w, r, http.StatusBadRequest, "missing_parameter", "ticker parameter is required", nil)
		return
	}

	result, err := h.reader.GetAnalysis(r.Context(), ticker)
	if err != nil {
		h.logger.Error("cache_read_failed", "ticker", ticker, "error", err)
		sendError(w, r, http.StatusInternalServerError, "backend_unavailable", "Failed to read from cache", nil)
		return
	}
	if result == nil {
		h.logger.Debug("ticker_not_cached", "ticker", ticker)
		sendError(w, r, http.StatusNotFound, "ticker_not_cached", "No cached analysis for ticker", nil)
		return
	}

	render.JSON(w, r, result)
}
