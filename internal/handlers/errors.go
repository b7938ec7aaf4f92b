package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"slippage/internal/models"
	"slippage/internal/orderbook"
	"slippage/internal/pipeline"
)

// sendError writes a JSON ErrorResponse with status.
func sendError(w http.ResponseWriter, r *http.Request, status int, code, message string, fields map[string]string) {
	render.Status(r, status)
	render.JSON(w, r, models.ErrorResponse{
		Error:   code,
		Message: message,
		Fields:  fields,
	})
}

// sendAnalysisError maps an analysis failure to its HTTP response.
func sendAnalysisError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, ticker string, err error) {
	var ve *pipeline.ValidationError
	switch {
	case errors.As(err, &ve):
		sendError(w, r, http.StatusBadRequest, "invalid_parameters", ve.Error(), ve.Fields)
	case errors.Is(err, pipeline.ErrInsufficientData):
		sendError(w, r, http.StatusBadRequest, "insufficient_data", "Insufficient data to fit models", nil)
	case errors.Is(err, orderbook.ErrTickerNotFound):
		sendError(w, r, http.StatusNotFound, "not_found", fmt.Sprintf("Data file not found for ticker %s", ticker), nil)
	case errors.Is(err, context.DeadlineExceeded):
		sendError(w, r, http.StatusGatewayTimeout, "timeout", "Analysis timed out", nil)
	default:
		logger.Error("analysis_error", "ticker", ticker, "error", err, "correlation_id", GetCorrelationID(r.Context()))
		sendError(w, r, http.StatusInternalServerError, "internal_error", err.Error(), nil)
	}
}
