package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"slippage/internal/orderbook"
	"slippage/internal/pipeline"
)

// FormatMCPError maps tool and analysis errors to JSON-RPC errors.
func FormatMCPError(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ErrorFromValidation(ve)
	}

	var pve *pipeline.ValidationError
	if errors.As(err, &pve) {
		return &RPCError{
			Code:    ValidationFailed,
			Message: "Parameter validation failed",
			Data:    pve.Fields,
		}
	}

	switch {
	case errors.Is(err, pipeline.ErrInsufficientData):
		return &RPCError{Code: InsufficientData, Message: "Insufficient data to fit models", Data: err.Error()}
	case errors.Is(err, orderbook.ErrTickerNotFound):
		return &RPCError{Code: TickerNotFound, Message: "Data source not found", Data: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return &RPCError{Code: TimeoutExceeded, Message: "Analysis timed out"}
	}

	return &RPCError{
		Code:    InternalError,
		Message: fmt.Sprintf("Internal error: %s", err.Error()),
	}
}

// ErrorFromValidation converts a schema validation error to an RPC error.
func ErrorFromValidation(err error) *RPCError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return &RPCError{
			Code:    ValidationFailed,
			Message: "Parameter validation failed",
			Data: map[string]interface{}{
				"field":   ve.Field,
				"message": ve.Message,
			},
		}
	}
	return &RPCError{
		Code:    ValidationFailed,
		Message: fmt.Sprintf("Validation failed: %s", err.Error()),
	}
}

// HTTPStatusFromError maps MCP error codes to HTTP status codes
func HTTPStatusFromError(rpcErr *RPCError) int {
	if rpcErr == nil {
		return http.StatusOK
	}

	switch rpcErr.Code {
	case ParseError, InvalidRequest, InvalidParams, ValidationFailed, InsufficientData:
		return http.StatusBadRequest
	case MethodNotFound, TickerNotFound:
		return http.StatusNotFound
	case DataUnavailable:
		return http.StatusServiceUnavailable
	case TimeoutExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
