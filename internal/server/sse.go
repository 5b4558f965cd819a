package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/alfredjeanlab/varhub/internal/broadcast"
	"github.com/alfredjeanlab/varhub/internal/events"
)

// EventStreamPath is the Server-Sent Events real-time channel.
const EventStreamPath = "/v1/events/stream"

// sseKeepaliveInterval is how often keepalive comments are sent to
// prevent connection timeouts.
const sseKeepaliveInterval = 15 * time.Second

// handleEventStream handles GET /v1/events/stream (SSE endpoint). There is no
// replay: a client sees only events announced while it is connected.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	// Ensure response supports flushing (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sub := s.hub.Subscribe(broadcast.TransportSSE, r.RemoteAddr)
	defer s.hub.Unsubscribe(sub)
	logger := s.logger.With("subscriber", sub.ID(), "request_id", RequestID(r.Context()))
	logger.Info("sse subscriber connected", "remote_addr", r.RemoteAddr)
	defer logger.Info("sse subscriber disconnected")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sub.Events():
			if err := writeSSEEvent(w, evt); err != nil {
				logger.Debug("sse write failed", "error", err)
				return
			}
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprintf(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes one event. The SSE event name is the real-time message
// name and the data line is the full frame.
func writeSSEEvent(w http.ResponseWriter, evt *broadcast.Event) error {
	data, err := json.Marshal(evt.Frame())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event:%s\ndata:%s\n\n", events.MessageName(evt.Topic), data)
	return err
}
