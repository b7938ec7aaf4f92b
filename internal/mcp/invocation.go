package mcp

import (
	"context"
)

// ToolInvoker validates tool arguments and dispatches to the executor.
type ToolInvoker struct {
	executor   *ToolExecutor
	validators map[string]*SchemaValidator
}

// NewToolInvoker compiles the argument schemas of every tool.
func NewToolInvoker(executor *ToolExecutor) (*ToolInvoker, error) {
	validators := make(map[string]*SchemaValidator)
	for _, tool := range Tools() {
		v, err := NewSchemaValidator(tool.Name, tool.InputSchema)
		if err != nil {
			return nil, err
		}
		validators[tool.Name] = v
	}

	return &ToolInvoker{
		executor:   executor,
		validators: validators,
	}, nil
}

// Tools lists the tool definitions served by the invoker.
func Tools() []Tool {
	return []Tool{GetAnalysisTool(), AnalyzeTickerTool()}
}

// InvokeTool validates args and runs toolName.
func (ti *ToolInvoker) InvokeTool(ctx context.Context, toolName string, args map[string]interface{}) (*CallToolResult, error) {
	validator, ok := ti.validators[toolName]
	if !ok {
		return nil, &RPCError{
			Code:    MethodNotFound,
			Message: "Unknown tool",
			Data:    toolName,
		}
	}
	if err := validator.Validate(args); err != nil {
		return nil, ErrorFromValidation(err)
	}

	call := CallToolParams{Name: toolName, Arguments: args}

	switch toolName {
	case ToolGetAnalysis:
		return ti.executor.ExecuteGetAnalysis(ctx, call.Ticker())
	default:
		params, err := call.AnalysisParams()
		if err != nil {
			return nil, err
		}
		return ti.executor.ExecuteAnalyzeTicker(ctx, call.Ticker(), params)
	}
}
