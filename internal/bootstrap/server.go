package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/flightbook/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the gRPC health service name reported next to the overall "" status.
const ServiceName = "flightbook"

// Probe reports whether the process can serve requests, usually a store ping.
type Probe func(ctx context.Context) error

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
	logger     *zap.Logger
}

// Run serves the REST API over HTTP and the health probe over gRPC.
// It blocks until ctx is cancelled or a server fails, then shuts both down.
func Run(ctx context.Context, cfg *config.Config, handler http.Handler, probe Probe, logger *zap.Logger) error {
	s := newServers(handler, logger)

	grpcLis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	httpLis, err := net.Listen("tcp", cfg.HTTP.Address)
	if err != nil {
		grpcLis.Close()
		return fmt.Errorf("listen HTTP %s: %w", cfg.HTTP.Address, err)
	}

	return s.serve(ctx, grpcLis, httpLis, probe, healthInterval(cfg), shutdownTimeout(cfg))
}

func newServers(handler http.Handler, logger *zap.Logger) *Servers {
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)

	return &Servers{
		grpcServer: grpcSrv,
		health:     healthSrv,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (s *Servers) serve(ctx context.Context, grpcLis, httpLis net.Listener, probe Probe, interval, shutdown time.Duration) error {
	errCh := make(chan error, 2)

	go func() {
		if err := s.grpcServer.Serve(grpcLis); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()
	go func() {
		if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go s.watchHealth(watchCtx, probe, interval)

	s.logger.Info("servers started",
		zap.String("http", httpLis.Addr().String()),
		zap.String("grpc", grpcLis.Addr().String()),
	)

	select {
	case err := <-errCh:
		s.health.Shutdown()
		s.grpcServer.Stop()
		s.httpServer.Close()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	s.health.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdown)
	defer cancel()

	s.grpcServer.GracefulStop()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// watchHealth mirrors probe into the gRPC health service until ctx ends.
func (s *Servers) watchHealth(ctx context.Context, probe Probe, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.checkHealth(ctx, probe, interval)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Servers) checkHealth(ctx context.Context, probe Probe, timeout time.Duration) {
	status := healthpb.HealthCheckResponse_SERVING
	if probe != nil {
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		err := probe(probeCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("health probe failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func healthInterval(cfg *config.Config) time.Duration {
	if cfg.GRPC.HealthCheckInterval <= 0 {
		return 10 * time.Second
	}
	return time.Duration(cfg.GRPC.HealthCheckInterval) * time.Second
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.HTTP.ShutdownSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(cfg.HTTP.ShutdownSeconds) * time.Second
}
