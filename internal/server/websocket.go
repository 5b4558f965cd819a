package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alfredjeanlab/varhub/internal/broadcast"
)

// HubPath is the WebSocket real-time channel.
const HubPath = "/variableHub"

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards are served from other origins; access is governed by the
	// bearer token instead.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleVariableHub handles GET /variableHub. Each change or deletion is
// written as one JSON text frame; anything the client sends is discarded.
func (s *Server) handleVariableHub(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe(broadcast.TransportWebSocket, r.RemoteAddr)
	defer s.hub.Unsubscribe(sub)
	logger := s.logger.With("subscriber", sub.ID(), "request_id", RequestID(r.Context()))
	logger.Info("websocket subscriber connected", "remote_addr", r.RemoteAddr)
	defer logger.Info("websocket subscriber disconnected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(4096)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case evt := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(evt.Frame()); err != nil {
				logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
