package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/alfredjeanlab/varhub/internal/events"
)

// hubPath is the server's WebSocket endpoint.
const hubPath = "/variableHub"

// ErrStopWatch may be returned by a Watch callback to end the watch cleanly.
var ErrStopWatch = errors.New("stop watch")

// websocketURL maps an http(s) base URL onto the ws(s) hub endpoint.
func websocketURL(baseURL string) (string, error) {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://") + hubPath, nil
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://") + hubPath, nil
	}
	return "", fmt.Errorf("unsupported server URL %q (want http:// or https://)", baseURL)
}

// Watch connects to the variable hub and calls fn for every frame until ctx
// is done, the connection drops, or fn returns an error. Returning
// ErrStopWatch from fn ends the watch without an error.
func (c *HTTPClient) Watch(ctx context.Context, fn func(events.Frame) error) error {
	wsURL, err := websocketURL(c.baseURL)
	if err != nil {
		return err
	}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return &APIError{StatusCode: resp.StatusCode, Message: "websocket handshake failed"}
		}
		return fmt.Errorf("dialing %s: %w", wsURL, err)
	}
	defer conn.Close()

	// Unblock ReadJSON when the caller gives up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var f events.Frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("reading frame: %w", err)
		}
		if err := fn(f); err != nil {
			if errors.Is(err, ErrStopWatch) {
				return nil
			}
			return err
		}
	}
}
