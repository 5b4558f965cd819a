package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/health"

	"github.com/alfredjeanlab/varhub/internal/broadcast"
	"github.com/alfredjeanlab/varhub/internal/config"
	"github.com/alfredjeanlab/varhub/internal/events"
	"github.com/alfredjeanlab/varhub/internal/server"
	"github.com/alfredjeanlab/varhub/internal/service"
	"github.com/alfredjeanlab/varhub/internal/store"
	"github.com/alfredjeanlab/varhub/internal/store/memory"
	"github.com/alfredjeanlab/varhub/internal/store/postgres"
	"github.com/alfredjeanlab/varhub/internal/store/sqlite"
	varsync "github.com/alfredjeanlab/varhub/internal/sync"
)

const (
	shutdownTimeout     = 10 * time.Second
	healthCheckInterval = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the varhub server",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// The server needs no client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, closeLog := newLogger(cfg, os.Stderr)
		defer closeLog() //nolint:errcheck
		if cfg.LogFile != "" {
			logger.Info("logging to file", "path", cfg.LogFile)
		}
		return runServer(cmd.Context(), cfg, logger)
	},
}

// openStore opens the backend named by cfg.Store. Database backends apply
// their migrations before returning.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		return postgres.New(cfg.DatabaseURL)
	case config.StoreSQLite:
		return sqlite.Open(cfg.SQLitePath)
	case config.StoreMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info("bus events disabled (VARHUB_NATS_URL not set)")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	logger.Info("bus events enabled", "nats_url", cfg.NATSURL)
	return pub, nil
}

// syncDestinations builds the configured export destinations. A destination
// that cannot be created is logged and skipped.
func syncDestinations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []varsync.Destination {
	var dests []varsync.Destination
	if cfg.SyncS3Bucket != "" {
		s3Dest, err := varsync.NewS3Destination(ctx, cfg.SyncS3Bucket, cfg.SyncS3Key, cfg.SyncS3Region, cfg.SyncS3Endpoint)
		if err != nil {
			logger.Error("failed to create S3 sync destination", "error", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("sync S3 destination enabled", "bucket", cfg.SyncS3Bucket, "key", cfg.SyncS3Key)
		}
	}
	if cfg.SyncGitRepo != "" {
		dests = append(dests, varsync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch))
		logger.Info("sync git destination enabled", "repo", cfg.SyncGitRepo, "file", cfg.SyncGitFile)
	}
	return dests
}

// runServer starts every listener and blocks until ctx is done, then shuts
// down in reverse order.
func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "error", err)
		}
	}()
	logger.Info("store ready", "backend", cfg.Store)

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "error", err)
		}
	}()

	hub := broadcast.NewHub()
	broadcaster := broadcast.New(hub, publisher, logger, cfg.BroadcastQueue)
	svc := service.New(st, broadcaster, service.WithLogger(logger))
	srv := server.New(svc, hub, logger)

	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return err
	}
	// Long-lived streams end when baseCtx is canceled; Shutdown alone
	// would wait for them until the timeout.
	baseCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()
	httpServer := &http.Server{
		Handler:           srv.NewHTTPHandler(cfg.AuthToken),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	errCh := make(chan error, 2)
	go func() {
		logger.Info("HTTP server listening", "addr", httpLis.Addr().String())
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	healthCtx, stopHealth := context.WithCancel(context.Background())
	defer stopHealth()
	var stopGRPC func()
	if cfg.GRPCEnabled() {
		grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			_ = httpServer.Close()
			return err
		}
		hs := health.NewServer()
		grpcServer := server.NewGRPCServer(hs, cfg.AuthToken, logger)
		go server.WatchHealth(healthCtx, hs, st, healthCheckInterval, logger)
		go func() {
			logger.Info("gRPC server listening", "addr", grpcLis.Addr().String())
			if err := grpcServer.Serve(grpcLis); err != nil {
				errCh <- fmt.Errorf("gRPC server: %w", err)
			}
		}()
		stopGRPC = grpcServer.GracefulStop
	} else {
		logger.Info("gRPC listener disabled")
	}

	var scheduler *varsync.Scheduler
	if cfg.SyncInterval > 0 {
		if dests := syncDestinations(ctx, cfg, logger); len(dests) > 0 {
			scheduler = varsync.NewScheduler(st, dests, cfg.SyncInterval, logger)
			scheduler.Start()
			logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
		}
	}

	logger.Info("varhub server started", "http_addr", cfg.HTTPAddr, "grpc_addr", cfg.GRPCAddr)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
		logger.Error("listener failed, shutting down", "error", runErr)
	}

	if scheduler != nil {
		scheduler.Stop()
		logger.Info("sync scheduler stopped")
	}

	stopHealth()
	if stopGRPC != nil {
		stopGRPC()
		logger.Info("gRPC server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	cancelStreams()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	logger.Info("HTTP server stopped")

	if err := broadcaster.Close(shutdownCtx); err != nil {
		logger.Error("broadcaster drain incomplete", "error", err)
	}

	logger.Info("shutdown complete")
	return runErr
}
