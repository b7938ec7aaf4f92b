package mcp

import "encoding/json"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// TextContent represents MCP text content response
type TextContent struct {
	Type string `json:"type"` // Always "text"
	Text string `json:"text"`
}

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"` // Always "2.0"
	ID      interface{}     `json:"id"`      // Can be string or number
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// Standard JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
	ServerError    = -32000
)

// Tool-specific error codes
const (
	TickerNotFound   = -32001 // no data source or cached analysis for the ticker
	DataUnavailable  = -32002 // Redis unavailable
	ValidationFailed = -32003
	TimeoutExceeded  = -32004
	InsufficientData = -32005 // too few usable rows or samples to fit
)

// Supported JSON-RPC methods. The slash forms are the newer MCP names.
const (
	MethodCallTool  = "call_tool"
	MethodToolsCall = "tools/call"
	MethodListTools = "list_tools"
	MethodToolsList = "tools/list"
)

// CallToolParams represents parameters for call_tool method
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// ListToolsResult represents the result of list_tools method
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolResult represents the result of call_tool method
type CallToolResult struct {
	Content []TextContent `json:"content"`
}
