package events

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// SSEHandler serves Server-Sent Events for the workspace change stream.
// Query:
//
//	since: optional last seen event id (Last-Event-ID header also respected)
//
// Buffered events with id > since are replayed before live streaming.
// Heartbeat comments are sent every 25s to keep intermediaries from closing
// the connection.
func SSEHandler(hub *Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}

		var since int64
		if s := r.URL.Query().Get("since"); s != "" {
			if v, err := strconv.ParseInt(s, 10, 64); err == nil {
				since = v
			}
		}
		if s := r.Header.Get("Last-Event-ID"); s != "" {
			if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > since {
				since = v
			}
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		eventsCh, unsubscribe := hub.Subscribe(since, 128)
		defer unsubscribe()

		heartbeat := time.NewTicker(25 * time.Second)
		defer heartbeat.Stop()

		notify := r.Context().Done()

		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case evt, ok := <-eventsCh:
				if !ok {
					return
				}
				data, err := json.Marshal(evt)
				if err != nil {
					slog.Warn("failed to marshal event", "error", err)
					continue
				}
				if _, err = w.Write([]byte("id: " + strconv.FormatInt(evt.ID, 10) + "\n")); err != nil {
					return
				}
				if _, err = w.Write([]byte("event: workspace.event\n")); err != nil {
					return
				}
				if _, err = w.Write([]byte("data: ")); err != nil {
					return
				}
				if _, err = w.Write(data); err != nil {
					return
				}
				if _, err = w.Write([]byte("\n\n")); err != nil {
					return
				}
				flusher.Flush()

			case <-heartbeat.C:
				if _, err := w.Write([]byte(": ping\n\n")); err != nil {
					return
				}
				flusher.Flush()

			case <-notify:
				return
			}
		}
	})
}
