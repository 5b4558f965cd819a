package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"

	"github.com/alfredjeanlab/varhub/internal/idgen"
)

// RequestIDHeader carries the request id on responses. An incoming value is
// reused so ids can be correlated across hops.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the request id stored in ctx by RequestLogger.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestLogger assigns each request an id and logs method, path, status and
// duration once the handler returns. The wrapped writer keeps the Flusher and
// Hijacker interfaces the real-time handlers need.
func RequestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = idgen.MustGenerate(idgen.RequestPrefix)
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

		m := httpsnoop.CaptureMetrics(next, w, r)
		level := slog.LevelInfo
		if m.Code >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(r.Context(), level, "handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"duration", m.Duration,
			"bytes", m.Written,
			"request_id", id,
		)
	})
}
