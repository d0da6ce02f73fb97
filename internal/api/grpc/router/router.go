package router

import (
	"context"

	grpcprometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/dtroode/coursemarket-auth/internal/api/grpc/middleware"
	"github.com/dtroode/coursemarket-auth/internal/logger"
)

// Router represents the gRPC router of the ops endpoint.
// It registers the health service and reflection behind the interceptor chain.
type Router struct {
	health  *health.Server
	metrics *grpcprometheus.ServerMetrics
	logger  *logger.Logger
}

// New creates new gRPC Router instance. metrics must already be registered
// with the process registry.
func New(health *health.Server, metrics *grpcprometheus.ServerMetrics, logger *logger.Logger) *Router {
	return &Router{
		health:  health,
		metrics: metrics,
		logger:  logger,
	}
}

// Register builds the gRPC server with tracing, metrics, panic recovery and
// request logging.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	recoverer := recovery.WithRecoveryHandlerContext(func(ctx context.Context, p any) error {
		r.logger.Error("gRPC handler panic", "panic", p)
		return status.Error(codes.Internal, "internal server error")
	})

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			r.metrics.UnaryServerInterceptor(),
			logging.HandleGRPC,
			recovery.UnaryServerInterceptor(recoverer),
		),
		grpc.ChainStreamInterceptor(
			r.metrics.StreamServerInterceptor(),
			recovery.StreamServerInterceptor(recoverer),
		),
	)

	healthpb.RegisterHealthServer(s, r.health)
	reflection.Register(s)
	r.metrics.InitializeMetrics(s)

	return s
}
