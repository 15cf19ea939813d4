package transport

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"workspace-bridge/pkg/events"
	"workspace-bridge/pkg/rpc"

	"github.com/google/uuid"
)

// NewHTTPHandler builds the bridge's HTTP surface: POST /rpc for JSON-RPC,
// GET /events for the SSE change stream, GET /healthz for liveness.
func NewHTTPHandler(dispatcher *rpc.Dispatcher, hub *events.Hub) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/rpc", withCORS(rpcHandler(dispatcher)))
	mux.Handle("/events", withCORS(events.SSEHandler(hub)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// RunHTTP starts the bridge over HTTP. It blocks for the lifetime of the
// server and returns the listen error, e.g. when the port is already in use.
func RunHTTP(port int, dispatcher *rpc.Dispatcher, hub *events.Hub) error {
	slog.Info("Starting HTTP server", "port", port)
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, NewHTTPHandler(dispatcher, hub))
}

func rpcHandler(dispatcher *rpc.Dispatcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Only POST method is allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}

		correlationID := uuid.NewString()
		slog.Debug("Handling RPC request", "correlationId", correlationID, "bytes", len(body))

		respBytes := dispatcher.Dispatch(body)
		if respBytes == nil {
			// Notification: nothing to send back.
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// The operation may have failed, but the response envelope is always
		// valid JSON-RPC; the HTTP status stays 200 either way.
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(respBytes); err != nil {
			slog.Error("Failed to write RPC response", "correlationId", correlationID, "error", err)
		}
	})
}

// withCORS allows browser-based tools from any origin to reach the bridge.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Last-Event-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
