package mcp

const (
	ToolGetAnalysis   = "get_analysis"
	ToolAnalyzeTicker = "analyze_ticker"

	tickerPattern = "^[A-Za-z0-9._-]+$"
)

func tickerProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Ticker directory name under the data directory (e.g., CRWV, FROG, SOUN)",
		"pattern":     tickerPattern,
	}
}

// GetAnalysisToolSchema returns the JSON Schema for get_analysis arguments.
func GetAnalysisToolSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"ticker": tickerProperty(),
		},
		"required": []string{"ticker"},
	}
}

// AnalyzeTickerToolSchema returns the JSON Schema for analyze_ticker
// arguments. Bounds mirror the HTTP parameter validation; omitted fields
// take the documented defaults.
func AnalyzeTickerToolSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"ticker": tickerProperty(),
			"sample_size": map[string]interface{}{
				"type":    "integer",
				"minimum": 1,
			},
			"order_size_points": map[string]interface{}{
				"type":    "integer",
				"minimum": 2,
				"maximum": 10000,
			},
			"book_depth_pct": map[string]interface{}{
				"type":             "number",
				"exclusiveMinimum": 0,
				"maximum":          100,
			},
			"total_shares": map[string]interface{}{
				"type":    "integer",
				"minimum": 1,
			},
			"trading_intervals": map[string]interface{}{
				"type":    "integer",
				"minimum": 1,
				"maximum": 1000,
			},
		},
		"required": []string{"ticker"},
	}
}

// GetAnalysisTool returns the MCP Tool definition for get_analysis.
func GetAnalysisTool() Tool {
	return Tool{
		Name:        ToolGetAnalysis,
		Description: "Retrieve the latest cached slippage analysis for a ticker: fitted impact models, sampled slippage curve, optimal allocation and risk metrics",
		InputSchema: GetAnalysisToolSchema(),
	}
}

// AnalyzeTickerTool returns the MCP Tool definition for analyze_ticker.
func AnalyzeTickerTool() Tool {
	return Tool{
		Name:        ToolAnalyzeTicker,
		Description: "Run a slippage analysis on a ticker's order book snapshots and return the fitted models, optimal execution schedule and risk metrics",
		InputSchema: AnalyzeTickerToolSchema(),
	}
}
