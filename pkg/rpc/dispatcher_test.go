package rpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dispatchJSON(t *testing.T, d *Dispatcher, raw string) *Response {
	t.Helper()
	out := d.Dispatch([]byte(raw))
	require.NotNil(t, out, "expected a response")
	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	return &resp
}

func TestDispatchParseError(t *testing.T) {
	d := NewDispatcher()

	resp := dispatchJSON(t, d, `{not json`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)
	assert.Equal(t, "null", string(resp.ID))
	assert.Nil(t, resp.Result)
}

func TestDispatchInvalidVersion(t *testing.T) {
	d := NewDispatcher()

	resp := dispatchJSON(t, d, `{"jsonrpc":"1.0","method":"getContext","id":1}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
	assert.Equal(t, "1", string(resp.ID))
}

func TestDispatchMissingMethod(t *testing.T) {
	d := NewDispatcher()

	resp := dispatchJSON(t, d, `{"jsonrpc":"2.0","id":"abc"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
	assert.Equal(t, `"abc"`, string(resp.ID))
}

func TestDispatchMalformedID(t *testing.T) {
	d := NewDispatcher()

	// Booleans and objects are not valid request ids.
	resp := dispatchJSON(t, d, `{"jsonrpc":"2.0","method":"getContext","id":true}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
	assert.Equal(t, "null", string(resp.ID))
}

func TestDispatchMethodNotFound(t *testing.T) {
	d := NewDispatcher()

	resp := dispatchJSON(t, d, `{"jsonrpc":"2.0","method":"deleteFile","id":7}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
	assert.Equal(t, "Method not found", resp.Error.Message)
	assert.Equal(t, "7", string(resp.ID))

	data, ok := resp.Error.Data.(map[string]any)
	require.True(t, ok, "error data should carry the unknown method name")
	assert.Equal(t, "deleteFile", data["method"])
}

func TestDispatchHandlerSuccess(t *testing.T) {
	d := NewDispatcher()
	d.Register("echo", func(params json.RawMessage) (any, *Error) {
		var p map[string]string
		require.NoError(t, json.Unmarshal(params, &p))
		return p, nil
	})

	resp := dispatchJSON(t, d, `{"jsonrpc":"2.0","method":"echo","params":{"k":"v"},"id":"42"}`)
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
	assert.Equal(t, `"42"`, string(resp.ID))

	var result map[string]string
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "v", result["k"])
}

func TestDispatchHandlerError(t *testing.T) {
	d := NewDispatcher()
	d.Register("boom", func(params json.RawMessage) (any, *Error) {
		return nil, InvalidParams("bad input", "missing field")
	})

	resp := dispatchJSON(t, d, `{"jsonrpc":"2.0","method":"boom","id":1}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, "bad input", resp.Error.Message)
	assert.Nil(t, resp.Result)
}

func TestDispatchNotification(t *testing.T) {
	d := NewDispatcher()
	called := false
	d.Register("note", func(params json.RawMessage) (any, *Error) {
		called = true
		return map[string]bool{"ok": true}, nil
	})

	// Null id marks a notification: the handler runs, no response is produced.
	out := d.Dispatch([]byte(`{"jsonrpc":"2.0","method":"note","id":null}`))
	assert.Nil(t, out)
	assert.True(t, called)

	// Absent id behaves the same.
	called = false
	out = d.Dispatch([]byte(`{"jsonrpc":"2.0","method":"note"}`))
	assert.Nil(t, out)
	assert.True(t, called)
}

func TestDispatchResponseShape(t *testing.T) {
	d := NewDispatcher()
	d.Register("ok", func(params json.RawMessage) (any, *Error) {
		return map[string]bool{"ok": true}, nil
	})

	// Exactly one of result/error, never both, never neither.
	out := d.Dispatch([]byte(`{"jsonrpc":"2.0","method":"ok","id":1}`))
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &raw))
	_, hasResult := raw["result"]
	_, hasError := raw["error"]
	assert.True(t, hasResult)
	assert.False(t, hasError)
	assert.Equal(t, `"2.0"`, string(raw["jsonrpc"]))

	out = d.Dispatch([]byte(`{"jsonrpc":"2.0","method":"nope","id":1}`))
	raw = nil
	require.NoError(t, json.Unmarshal(out, &raw))
	_, hasResult = raw["result"]
	_, hasError = raw["error"]
	assert.False(t, hasResult)
	assert.True(t, hasError)
}
