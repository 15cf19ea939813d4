package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
)

// HandlerFunc defines the signature for a method handler.
// It takes the raw request params and returns a result or a protocol error.
type HandlerFunc func(params json.RawMessage) (any, *Error)

// Dispatcher routes parsed requests to a fixed registry of method handlers.
// It is stateless and reentrant; every Dispatch invocation is independent.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
	}
}

// Register adds a method handler to the registry.
func (d *Dispatcher) Register(method string, handler HandlerFunc) {
	if _, exists := d.handlers[method]; exists {
		slog.Warn("Overwriting an existing method handler", "method", method)
	}
	d.handlers[method] = handler
	slog.Debug("Registered method handler", "method", method)
}

var nullID = json.RawMessage("null")

// Dispatch parses a raw JSON-RPC request, routes it to the matching handler,
// and returns the serialized response envelope. A well-formed notification
// (id absent or null) is executed but yields nil; callers write nothing back.
func (d *Dispatcher) Dispatch(raw []byte) []byte {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		slog.Warn("Failed to parse request", "error", err)
		return marshalResponse(errorResponse(nullID, NewError(CodeParseError, "Parse error", nil)))
	}

	id := req.ID
	if !validID(id) {
		return marshalResponse(errorResponse(nullID, NewError(CodeInvalidRequest, "Invalid Request", map[string]string{"detail": "id must be a string, number, or null"})))
	}
	if id == nil {
		id = nullID
	}
	notification := bytes.Equal(id, nullID)

	if req.JSONRPC != Version {
		return marshalResponse(errorResponse(id, NewError(CodeInvalidRequest, "Invalid Request", map[string]string{"detail": fmt.Sprintf("jsonrpc must be %q", Version)})))
	}
	if req.Method == "" {
		return marshalResponse(errorResponse(id, NewError(CodeInvalidRequest, "Invalid Request", map[string]string{"detail": "method is required"})))
	}

	handler, found := d.handlers[req.Method]
	if !found {
		slog.Warn("No handler found for method", "method", req.Method)
		if notification {
			return nil
		}
		return marshalResponse(errorResponse(id, NewError(CodeMethodNotFound, "Method not found", map[string]string{"method": req.Method})))
	}

	result, rpcErr := handler(req.Params)
	if notification {
		return nil
	}
	if rpcErr != nil {
		return marshalResponse(errorResponse(id, rpcErr))
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		slog.Error("Failed to marshal handler result", "error", err, "method", req.Method)
		return marshalResponse(errorResponse(id, InternalError("Failed to serialize result", err)))
	}

	return marshalResponse(&Response{JSONRPC: Version, Result: resultBytes, ID: id})
}

func errorResponse(id json.RawMessage, rpcErr *Error) *Response {
	return &Response{JSONRPC: Version, Error: rpcErr, ID: id}
}

// marshalResponse serializes a response envelope. Failure here is a
// programming error, not a protocol condition; the caller still gets a
// syntactically valid envelope.
func marshalResponse(resp *Response) []byte {
	out, err := json.Marshal(resp)
	if err != nil {
		slog.Error("Failed to marshal response envelope", "error", err)
		return []byte(`{"jsonrpc":"2.0","error":{"code":-32603,"message":"Internal error"},"id":null}`)
	}
	return out
}

// validID reports whether a raw id is a string, a number, or null/absent.
func validID(id json.RawMessage) bool {
	if id == nil {
		return true
	}
	var v any
	if err := json.Unmarshal(id, &v); err != nil {
		return false
	}
	switch v.(type) {
	case nil, string, float64:
		return true
	default:
		return false
	}
}
