package api

import (
	"context"
	"fmt"
	"net"
	"time"

	"bookable/internal/config"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const defaultHealthInterval = 10 * time.Second

// HealthChecker reports whether the backing store answers.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// GRPCServer serves the standard health service, reflecting the store's state.
type GRPCServer struct {
	cfg      *config.APIConfig
	checker  HealthChecker
	health   *health.Server
	server   *grpc.Server
	listener net.Listener
	interval time.Duration
	log      zerolog.Logger
}

func NewGRPCServer(cfg *config.APIConfig, checker HealthChecker, logger *zerolog.Logger) (*GRPCServer, error) {
	addr := fmt.Sprintf(":%d", cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc listen %s: %w", addr, err)
	}

	auth := NewAuthInterceptor(cfg)
	unary := ChainUnaryInterceptors(
		RecoveryUnaryInterceptor(logger),
		LoggingUnaryInterceptor(logger),
		auth.Unary(),
	)

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(unary))

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	if cfg.GRPC.Reflection {
		reflection.Register(grpcServer)
	}

	serverLogger := zerolog.Nop()
	if logger != nil {
		serverLogger = logger.With().Str("component", "grpc").Logger()
	}

	return &GRPCServer{
		cfg:      cfg,
		checker:  checker,
		health:   healthServer,
		server:   grpcServer,
		listener: lis,
		interval: defaultHealthInterval,
		log:      serverLogger,
	}, nil
}

func (s *GRPCServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve probes the store in the background and blocks serving gRPC until Shutdown.
func (s *GRPCServer) Serve(ctx context.Context) error {
	s.probe(ctx)
	go s.watchHealth(ctx)

	s.log.Info().Str("addr", s.Addr()).Msg("gRPC API listening")
	return s.server.Serve(s.listener)
}

func (s *GRPCServer) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

func (s *GRPCServer) probe(ctx context.Context) {
	state := healthpb.HealthCheckResponse_SERVING
	if s.checker != nil {
		if err := s.checker.Healthy(ctx); err != nil {
			s.log.Warn().Err(err).Msg("health probe failed")
			state = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", state)
}

func (s *GRPCServer) Shutdown(ctx context.Context) {
	if s.server == nil {
		return
	}
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-ctx.Done():
		s.log.Warn().Msg("gRPC graceful shutdown timed out; forcing stop")
		s.server.Stop()
		return
	}
}
