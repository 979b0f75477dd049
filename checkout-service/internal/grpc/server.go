// Package grpc serves the standard gRPC health protocol for the checkout
// service, backed by the same dependency checks as the HTTP /health route.
package grpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name clients check besides "".
const ServiceName = "marketplace.checkout.v1.CheckoutService"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	checks map[string]Pinger
	logger *slog.Logger
}

func NewServer(checks map[string]Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		grpc:   grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler())),
		health: health.NewServer(),
		checks: checks,
		logger: logger,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	return s
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop reports NOT_SERVING before draining so load balancers stop
// routing here first.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// Check runs every dependency check once and publishes the result.
func (s *Server) Check(ctx context.Context) bool {
	ok := true
	for name, check := range s.checks {
		if err := check.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
			ok = false
		}
	}

	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return ok
}

// RunHealthChecks re-evaluates health every interval until ctx is done.
func (s *Server) RunHealthChecks(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.checkDependencies(ctx, interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkDependencies(ctx, interval)
		}
	}
}

func (s *Server) checkDependencies(ctx context.Context, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	s.Check(ctx)
}
