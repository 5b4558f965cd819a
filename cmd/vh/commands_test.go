package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/alfredjeanlab/varhub/internal/broadcast"
	"github.com/alfredjeanlab/varhub/internal/client"
	"github.com/alfredjeanlab/varhub/internal/model"
	"github.com/alfredjeanlab/varhub/internal/server"
	"github.com/alfredjeanlab/varhub/internal/service"
	"github.com/alfredjeanlab/varhub/internal/store/memory"
)

type testServer struct {
	url string
	hub *broadcast.Hub
}

// startServer runs a full in-process varhub on a memory store.
func startServer(t *testing.T) testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := broadcast.NewHub()
	b := broadcast.New(hub, nil, logger, 0)
	svc := service.New(memory.New(), b, service.WithLogger(logger))
	ts := httptest.NewServer(server.New(svc, hub, logger).NewHTTPHandler(""))
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return testServer{url: ts.URL, hub: hub}
}

// resetFlags restores every flag under cmd to its default.
func resetFlags(t *testing.T, cmd *cobra.Command) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		if err := f.Value.Set(f.DefValue); err != nil {
			t.Fatalf("resetting --%s: %v", f.Name, err)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(t, sub)
	}
}

// runVH executes the root command with args and returns its stdout.
func runVH(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	resetFlags(t, rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--url", url, "--token", "", "-o", formatTable}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands_CreateGetSetDelete(t *testing.T) {
	srv := startServer(t)

	out, err := runVH(t, srv.url, "create", "MaxUsers", "10", "--type", "Integer")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out, "Identifier:  MaxUsers") || !strings.Contains(out, "Type:        Integer") {
		t.Errorf("create output:\n%s", out)
	}

	out, err = runVH(t, srv.url, "get", "MaxUsers")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(out, "Value:       10") {
		t.Errorf("get output:\n%s", out)
	}

	out, err = runVH(t, srv.url, "set", "MaxUsers", "20")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if strings.TrimSpace(out) != `MaxUsers = "20"` {
		t.Errorf("set output = %q", out)
	}

	out, err = runVH(t, srv.url, "-o", "json", "get", "MaxUsers")
	if err != nil {
		t.Fatalf("get json: %v", err)
	}
	var v model.Variable
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if v.Value != "20" || v.Type != model.TypeInteger {
		t.Errorf("variable = %+v", v)
	}

	// Lookup by id works too.
	if _, err := runVH(t, srv.url, "get", v.ID); err != nil {
		t.Fatalf("get by id: %v", err)
	}

	out, err = runVH(t, srv.url, "delete", "MaxUsers")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out, "deleted MaxUsers ("+v.ID+")") {
		t.Errorf("delete output = %q", out)
	}

	_, err = runVH(t, srv.url, "get", "MaxUsers")
	if !client.IsNotFound(err) {
		t.Fatalf("get after delete: err = %v, want not found", err)
	}
}

func TestCommands_ListFormats(t *testing.T) {
	srv := startServer(t)
	for _, args := range [][]string{
		{"create", "B", "two"},
		{"create", "A", "true", "-t", "2"},
	} {
		if _, err := runVH(t, srv.url, args...); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	out, err := runVH(t, srv.url, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "IDENTIFIER") || !strings.Contains(out, "2 variables") {
		t.Errorf("table output:\n%s", out)
	}

	out, err = runVH(t, srv.url, "-o", "yaml", "list")
	if err != nil {
		t.Fatalf("list yaml: %v", err)
	}
	var docs []variableDoc
	if err := yaml.Unmarshal([]byte(out), &docs); err != nil {
		t.Fatalf("decoding yaml: %v\n%s", err, out)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	types := map[string]string{docs[0].Identifier: docs[0].Type, docs[1].Identifier: docs[1].Type}
	if types["A"] != "Boolean" || types["B"] != "String" {
		t.Errorf("types = %v", types)
	}
}

func TestCommands_Errors(t *testing.T) {
	srv := startServer(t)
	if _, err := runVH(t, srv.url, "create", "Dup", "1"); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		name string
		args []string
		want string
	}{
		{"DuplicateIdentifier", []string{"create", "Dup", "2"}, "already exists"},
		{"UnknownType", []string{"create", "X", "1", "--type", "Money"}, "unknown variable type"},
		{"EmptyValue", []string{"set", "Dup", " "}, "Value cannot be empty."},
		{"BadFormat", []string{"-o", "xml", "list"}, "unknown output format"},
		{"MissingArgs", []string{"set", "Dup"}, "accepts 2 arg(s)"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runVH(t, srv.url, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want it to contain %q", err, tc.want)
			}
		})
	}
}

func TestCommands_Health(t *testing.T) {
	srv := startServer(t)

	out, err := runVH(t, srv.url, "health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if strings.TrimSpace(out) != "Health: ok" {
		t.Errorf("health output = %q", out)
	}
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCommands_WatchAndSubscribers(t *testing.T) {
	srv := startServer(t)

	resetFlags(t, rootCmd)
	var out syncBuffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"--url", srv.url, "--token", "", "-o", formatTable, "watch"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rootCmd.ExecuteContext(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.Len() < 1 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("watch never connected")
		}
		time.Sleep(5 * time.Millisecond)
	}

	c := client.NewHTTPClient(srv.url, "")
	subs, err := c.Subscribers(context.Background())
	if err != nil || len(subs) != 1 || subs[0].Transport != broadcast.TransportWebSocket {
		t.Fatalf("subscribers = %+v, %v", subs, err)
	}

	v, err := c.CreateVariable(context.Background(), &client.CreateVariableRequest{
		Identifier: "Live", Type: model.TypeString, Value: "a",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.UpdateVariable(context.Background(), v.ID, "b"); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteVariable(context.Background(), v.ID); err != nil {
		t.Fatal(err)
	}

	for !strings.Contains(out.String(), "deleted  "+v.ID) {
		if time.Now().After(deadline.Add(2 * time.Second)) {
			cancel()
			t.Fatalf("watch output incomplete:\n%s", out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch returned %v", err)
	}

	got := out.String()
	if !strings.Contains(got, `created  Live (`+v.ID+`) = "a"`) || !strings.Contains(got, `updated  Live (`+v.ID+`) "a" -> "b"`) {
		t.Errorf("watch output:\n%s", got)
	}
}
