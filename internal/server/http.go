package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/alfredjeanlab/varhub/internal/service"
)

// HealthPath is the liveness endpoint; it is never behind auth.
const HealthPath = "/health"

// healthTimeout bounds the store ping behind GET /health.
const healthTimeout = 2 * time.Second

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, mutating requests and the real-time channels
// must include a valid Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	r := mux.NewRouter()
	r.Methods(http.MethodGet).Path("/variables").HandlerFunc(s.handleListVariables)
	r.Methods(http.MethodPost).Path("/variables").HandlerFunc(s.handleCreateVariable)
	r.Methods(http.MethodGet).Path("/variables/by-identifier/{identifier}").HandlerFunc(s.handleGetVariableByIdentifier)
	r.Methods(http.MethodGet).Path("/variables/{id}").HandlerFunc(s.handleGetVariable)
	r.Methods(http.MethodPut).Path("/variables/{id}").HandlerFunc(s.handleUpdateVariable)
	r.Methods(http.MethodDelete).Path("/variables/{id}").HandlerFunc(s.handleDeleteVariable)
	r.Methods(http.MethodGet).Path(HubPath).HandlerFunc(s.handleVariableHub)
	r.Methods(http.MethodGet).Path(EventStreamPath).HandlerFunc(s.handleEventStream)
	r.Methods(http.MethodGet).Path("/v1/subscribers").HandlerFunc(s.handleListSubscribers)
	r.Methods(http.MethodGet).Path(HealthPath).HandlerFunc(s.handleHealth)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return RequestLogger(s.logger, AuthMiddleware(authToken, r))
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	if err := s.svc.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListSubscribers handles GET /v1/subscribers.
func (s *Server) handleListSubscribers(w http.ResponseWriter, _ *http.Request) {
	subs := s.hub.Subscribers()
	writeJSON(w, http.StatusOK, map[string]any{
		"subscribers": subs,
		"count":       len(subs),
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps a service error kind to a status code.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), service.Message(err))
}

func statusFor(err error) int {
	switch service.KindOf(err) {
	case service.KindInvalidArgument:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConstraintViolation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
