package rpc

import "encoding/json"

// Version is the only protocol version the bridge speaks.
const Version = "2.0"

// Reserved JSON-RPC 2.0 error codes. The bridge defines no custom codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request represents a JSON-RPC 2.0 request envelope.
// ID and Params are kept raw so they can be echoed and forwarded verbatim.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response envelope.
// Exactly one of Result/Error is set; the dispatcher enforces this.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Error represents a JSON-RPC 2.0 error object. Constructed once per failed
// operation and immutable afterwards.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewError creates a new protocol error.
func NewError(code int, message string, data any) *Error {
	return &Error{Code: code, Message: message, Data: data}
}

// InvalidParams builds an invalid-params error with the offending detail.
func InvalidParams(message string, detail string) *Error {
	var data any
	if detail != "" {
		data = map[string]string{"detail": detail}
	}
	return NewError(CodeInvalidParams, message, data)
}

// InternalError wraps a collaborator failure. The original error's message is
// carried in data.detail so it is never dropped on the way to the caller.
func InternalError(message string, cause error) *Error {
	var data any
	if cause != nil {
		data = map[string]string{"detail": cause.Error()}
	}
	return NewError(CodeInternalError, message, data)
}
