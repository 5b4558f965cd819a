package server

import (
	"log/slog"

	"github.com/alfredjeanlab/varhub/internal/broadcast"
	"github.com/alfredjeanlab/varhub/internal/service"
)

// Server exposes the variable service over HTTP and the real-time channels.
type Server struct {
	svc    *service.VariableService
	hub    *broadcast.Hub
	logger *slog.Logger
}

// New returns a Server for svc. Real-time connections register on hub.
func New(svc *service.VariableService, hub *broadcast.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, hub: hub, logger: logger}
}
