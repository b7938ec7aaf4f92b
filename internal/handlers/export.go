package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"slippage/internal/export"
)

// ExportHandler handles POST /api/export.
type ExportHandler struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewExportHandler creates an export handler.
func NewExportHandler(logger *slog.Logger) *ExportHandler {
	return &ExportHandler{logger: logger.With("handler", "export"), now: time.Now}
}

type exportRequest struct {
	Format  string         `json:"format"`
	Results export.Results `json:"results"`
}

func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		sendError(w, r, http.StatusBadRequest, "invalid_request", "Request body must hold a format and analysis results", nil)
		return
	}

	format, err := export.ParseFormat(req.Format)
	if err != nil {
		sendError(w, r, http.StatusBadRequest, "unsupported_format", err.Error(), nil)
		return
	}

	file, err := export.Export(format, req.Results, h.now())
	if err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			sendError(w, r, http.StatusBadRequest, "unsupported_format", err.Error(), nil)
			return
		}
		h.logger.Error("export_failed", "format", format, "error", err)
		sendError(w, r, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}

	h.logger.Info("results_exported", "format", format, "records", len(req.Results.Records), "filename", file.Filename)
	render.JSON(w, r, file)
}
