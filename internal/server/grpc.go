package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServiceName is the service name reported by the gRPC health service
// alongside the overall ("") status.
const HealthServiceName = "varhub.Variables"

// NewGRPCServer creates a gRPC server with standard interceptors, registers
// the health service and reflection, and returns the server ready to serve.
func NewGRPCServer(hs *health.Server, authToken string, logger *slog.Logger) *grpc.Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
			AuthInterceptor(authToken),
		),
		grpc.ChainStreamInterceptor(
			StreamAuthInterceptor(authToken),
		),
	)

	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return srv
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WatchHealth pings p every interval and mirrors the result into hs until
// ctx is done. The first check runs immediately. On return every service is
// marked NOT_SERVING.
func WatchHealth(ctx context.Context, hs *health.Server, p Pinger, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	healthy := true
	check := func() {
		pctx, cancel := context.WithTimeout(ctx, healthTimeout)
		err := p.Ping(pctx)
		cancel()

		st := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			if healthy {
				logger.Warn("store unreachable, reporting NOT_SERVING", "error", err)
			}
		} else if !healthy {
			logger.Info("store reachable again, reporting SERVING")
		}
		healthy = err == nil
		hs.SetServingStatus("", st)
		hs.SetServingStatus(HealthServiceName, st)
	}

	check()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-t.C:
			check()
		}
	}
}
