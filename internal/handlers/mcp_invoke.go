package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"slippage/internal/mcp"
)

// MCPInvokeHandler handles MCP JSON-RPC requests over the SSE transport.
type MCPInvokeHandler struct {
	invoker *mcp.ToolInvoker
	timeout time.Duration
	logger  *slog.Logger
}

// NewMCPInvokeHandler creates the handler. timeout bounds each tool call.
func NewMCPInvokeHandler(invoker *mcp.ToolInvoker, timeout time.Duration, logger *slog.Logger) *MCPInvokeHandler {
	return &MCPInvokeHandler{
		invoker: invoker,
		timeout: timeout,
		logger:  logger,
	}
}

// ServeHTTP handles POST /mcp/sse. Every outcome, including protocol
// errors, is delivered as a single JSON-RPC event.
func (h *MCPInvokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	correlationID := GetCorrelationID(r.Context())
	sseWriter := mcp.NewSSEWriter(w)

	req, err := mcp.ParseJSONRPCRequest(r.Body)
	if err != nil {
		sseWriter.SendError(nil, mcp.FormatMCPError(err))
		return
	}

	switch req.Method {
	case mcp.MethodListTools:
		sseWriter.SendResult(req.ID, mcp.ListToolsResult{Tools: mcp.Tools()})
		return
	case mcp.MethodCallTool:
	default:
		sseWriter.SendError(req.ID, &mcp.RPCError{
			Code:    mcp.MethodNotFound,
			Message: "Unknown method (expected 'call_tool' or 'list_tools')",
			Data:    req.Method,
		})
		return
	}

	toolParams, err := mcp.ParseCallToolParams(req.Params)
	if err != nil {
		sseWriter.SendError(req.ID, mcp.FormatMCPError(err))
		return
	}

	ticker := toolParams.Ticker()
	mcp.LogMCPRequest(r.Context(), h.logger, toolParams.Name, ticker, correlationID)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	done := make(chan struct{})
	var result *mcp.CallToolResult
	var invokeErr error

	go func() {
		result, invokeErr = h.invoker.InvokeTool(ctx, toolParams.Name, toolParams.Arguments)
		close(done)
	}()

	select {
	case <-done:
		latencyMS := time.Since(start).Milliseconds()

		if invokeErr != nil {
			rpcErr := mcp.FormatMCPError(invokeErr)
			mcp.LogMCPError(ctx, h.logger, toolParams.Name, ticker, correlationID, rpcErr.Code, rpcErr.Message)
			sseWriter.SendError(req.ID, rpcErr)
			return
		}

		mcp.LogMCPSuccess(ctx, h.logger, toolParams.Name, ticker, correlationID, latencyMS)
		sseWriter.SendResult(req.ID, result)

	case <-ctx.Done():
		latencyMS := time.Since(start).Milliseconds()
		mcp.LogMCPError(ctx, h.logger, toolParams.Name, ticker, correlationID, mcp.TimeoutExceeded, "Request timeout")
		sseWriter.SendError(req.ID, &mcp.RPCError{
			Code:    mcp.TimeoutExceeded,
			Message: "Request timeout",
			Data: map[string]interface{}{
				"timeout_ms": h.timeout.Milliseconds(),
				"elapsed_ms": latencyMS,
			},
		})
	}
}
