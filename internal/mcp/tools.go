package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"slippage/internal/models"
)

// AnalysisReader reads published analyses.
type AnalysisReader interface {
	GetAnalysis(ctx context.Context, ticker string) (*models.AnalysisResult, error)
}

// TickerAnalyzer runs a fresh analysis.
type TickerAnalyzer interface {
	Analyze(ctx context.Context, ticker string, params models.Params) (*models.AnalysisResult, error)
}

// ToolExecutor executes the MCP tools against the cache and the analysis
// service.
type ToolExecutor struct {
	reader   AnalysisReader
	analyzer TickerAnalyzer
}

// NewToolExecutor creates a tool executor.
func NewToolExecutor(reader AnalysisReader, analyzer TickerAnalyzer) *ToolExecutor {
	return &ToolExecutor{
		reader:   reader,
		analyzer: analyzer,
	}
}

// ExecuteGetAnalysis returns the cached analysis for ticker as JSON text.
func (te *ToolExecutor) ExecuteGetAnalysis(ctx context.Context, ticker string) (*CallToolResult, error) {
	result, err := te.reader.GetAnalysis(ctx, ticker)
	if err != nil {
		return nil, &RPCError{
			Code:    DataUnavailable,
			Message: "Failed to retrieve analysis from cache",
			Data:    err.Error(),
		}
	}
	if result == nil {
		return nil, &RPCError{
			Code:    TickerNotFound,
			Message: fmt.Sprintf("No cached analysis for '%s'", ticker),
			Data:    ticker,
		}
	}
	return textResult(result)
}

// ExecuteAnalyzeTicker runs the pipeline for ticker and returns the result
// as JSON text. Analysis errors are mapped by FormatMCPError.
func (te *ToolExecutor) ExecuteAnalyzeTicker(ctx context.Context, ticker string, params models.Params) (*CallToolResult, error) {
	result, err := te.analyzer.Analyze(ctx, ticker, params)
	if err != nil {
		return nil, FormatMCPError(err)
	}
	return textResult(result)
}

func textResult(v interface{}) (*CallToolResult, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, &RPCError{
			Code:    InternalError,
			Message: "Failed to serialize result",
			Data:    err.Error(),
		}
	}

	return &CallToolResult{
		Content: []TextContent{
			{
				Type: "text",
				Text: string(body),
			},
		},
	}, nil
}
