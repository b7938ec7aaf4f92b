package mcp

import (
	"encoding/json"
	"io"

	"slippage/internal/models"
)

const jsonrpcVersion = "2.0"

// methodAliases maps the slash-style MCP method names onto the names the
// invoke handler dispatches on.
var methodAliases = map[string]string{
	MethodToolsCall: MethodCallTool,
	MethodToolsList: MethodListTools,
}

// ParseJSONRPCRequest reads one JSON-RPC 2.0 request. Aliased method names
// come back in their canonical form; unknown methods are left for the
// caller to reject so the error can echo the request id.
func ParseJSONRPCRequest(r io.Reader) (*JSONRPCRequest, error) {
	var req JSONRPCRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, &RPCError{Code: ParseError, Message: "Invalid JSON", Data: err.Error()}
	}

	switch {
	case req.JSONRPC != jsonrpcVersion:
		return nil, &RPCError{
			Code:    InvalidRequest,
			Message: "Invalid JSON-RPC version (must be '2.0')",
			Data:    req.JSONRPC,
		}
	case req.Method == "":
		return nil, &RPCError{Code: InvalidRequest, Message: "Missing 'method' field"}
	}

	if canonical, ok := methodAliases[req.Method]; ok {
		req.Method = canonical
	}
	return &req, nil
}

// ParseCallToolParams decodes call_tool params. Arguments is never nil on
// success.
func ParseCallToolParams(params json.RawMessage) (*CallToolParams, error) {
	if len(params) == 0 {
		return nil, invalidParams("Missing parameters for call_tool", nil)
	}

	var call CallToolParams
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, invalidParams("Invalid call_tool parameters", err.Error())
	}
	if call.Name == "" {
		return nil, invalidParams("Missing 'name' field in call_tool parameters", nil)
	}
	if call.Arguments == nil {
		call.Arguments = map[string]interface{}{}
	}
	return &call, nil
}

// Ticker returns the ticker argument, or "" when absent.
func (c *CallToolParams) Ticker() string {
	ticker, _ := c.Arguments["ticker"].(string)
	return ticker
}

// AnalysisParams overlays the pipeline arguments on models.DefaultParams.
// Arguments the analysis does not know, such as ticker, are ignored.
func (c *CallToolParams) AnalysisParams() (models.Params, error) {
	params := models.DefaultParams()
	raw, err := json.Marshal(c.Arguments)
	if err == nil {
		err = json.Unmarshal(raw, &params)
	}
	if err != nil {
		return params, invalidParams("Invalid analysis parameters", err.Error())
	}
	return params, nil
}

func invalidParams(message string, data interface{}) *RPCError {
	return &RPCError{Code: InvalidParams, Message: message, Data: data}
}

// NewJSONRPCError wraps an error object in a response envelope.
func NewJSONRPCError(id interface{}, code int, message string, data interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	}
}

// NewJSONRPCResult wraps a result in a response envelope.
func NewJSONRPCResult(id interface{}, result interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: jsonrpcVersion, ID: id, Result: result}
}
