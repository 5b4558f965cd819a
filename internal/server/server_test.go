package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alfredjeanlab/varhub/internal/broadcast"
	"github.com/alfredjeanlab/varhub/internal/model"
	"github.com/alfredjeanlab/varhub/internal/service"
	"github.com/alfredjeanlab/varhub/internal/store"
	"github.com/alfredjeanlab/varhub/internal/store/memory"
)

// testEnv bundles a server wired to an in-memory store and a live broadcaster.
type testEnv struct {
	handler     http.Handler
	store       *memory.Store
	hub         *broadcast.Hub
	broadcaster *broadcast.Broadcaster
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, authToken string) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, memory.New(), authToken)
}

func newTestEnvWithStore(t *testing.T, st store.Store, authToken string) *testEnv {
	t.Helper()
	logger := discardLogger()
	hub := broadcast.NewHub()
	b := broadcast.New(hub, nil, logger, 64)
	t.Cleanup(func() { _ = b.Close(context.Background()) })

	svc := service.New(st, b, service.WithLogger(logger))
	env := &testEnv{
		handler:     New(svc, hub, logger).NewHTTPHandler(authToken),
		hub:         hub,
		broadcaster: b,
	}
	if ms, ok := st.(*memory.Store); ok {
		env.store = ms
	}
	return env
}

// brokenStore fails reads and pings.
type brokenStore struct{ *memory.Store }

var errDown = errors.New("database is down")

func (brokenStore) ListVariables(context.Context) ([]*model.Variable, error) { return nil, errDown }
func (brokenStore) GetVariable(context.Context, string) (*model.Variable, error) {
	return nil, errDown
}
func (brokenStore) Ping(context.Context) error { return errDown }

// doJSON performs a request against h with an optional JSON body.
func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// requireStatus asserts the recorder has the expected status code.
func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("expected status %d, got %d; body: %s", code, rec.Code, rec.Body.String())
	}
}

// decodeJSON decodes the recorder body into v.
func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

// createVariable posts a variable and returns the decoded response.
func createVariable(t *testing.T, h http.Handler, identifier, typ, value string) model.Variable {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/variables", map[string]any{
		"identifier": identifier, "type": typ, "value": value,
	})
	requireStatus(t, rec, http.StatusCreated)
	var v model.Variable
	decodeJSON(t, rec, &v)
	return v
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
