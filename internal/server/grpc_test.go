package server

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

// togglePinger fails while down is set.
type togglePinger struct{ down atomic.Bool }

func (p *togglePinger) Ping(context.Context) error {
	if p.down.Load() {
		return errors.New("unreachable")
	}
	return nil
}

func startGRPC(t *testing.T, hs *health.Server, token string) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(hs, token, discardLogger())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func waitForStatus(t *testing.T, client healthpb.HealthClient, service string, want healthpb.HealthCheckResponse_ServingStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
		if err == nil && resp.GetStatus() == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("service %q: status never became %v (last: %v, %v)", service, want, resp.GetStatus(), err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchHealth_FollowsPinger(t *testing.T) {
	hs := health.NewServer()
	client := startGRPC(t, hs, "secret") // health is exempt from auth

	p := &togglePinger{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		WatchHealth(ctx, hs, p, 10*time.Millisecond, discardLogger())
	}()

	waitForStatus(t, client, "", healthpb.HealthCheckResponse_SERVING)
	waitForStatus(t, client, HealthServiceName, healthpb.HealthCheckResponse_SERVING)

	p.down.Store(true)
	waitForStatus(t, client, HealthServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	p.down.Store(false)
	waitForStatus(t, client, HealthServiceName, healthpb.HealthCheckResponse_SERVING)

	cancel()
	<-done
	waitForStatus(t, client, "", healthpb.HealthCheckResponse_NOT_SERVING)
}
