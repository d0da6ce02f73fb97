package health

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/coursemarket-auth/internal/logger"
	"github.com/dtroode/coursemarket-auth/internal/model"
)

// ServiceName is the name probes use to query the auth service status.
const ServiceName = "coursemarket.auth.v1.Auth"

// Updater keeps the gRPC health status in line with store reachability.
type Updater struct {
	server   *health.Server
	pinger   model.Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *logger.Logger
}

func NewUpdater(server *health.Server, pinger model.Pinger, interval time.Duration, logger *logger.Logger) *Updater {
	return &Updater{
		server:   server,
		pinger:   pinger,
		interval: interval,
		timeout:  interval / 2,
		logger:   logger,
	}
}

// Probe pings the store once and publishes the result.
func (u *Updater) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := u.pinger.Ping(ctx); err != nil {
		u.logger.Warn("Health updater: store unreachable", "error", err.Error())
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	u.server.SetServingStatus("", status)
	u.server.SetServingStatus(ServiceName, status)
	return status
}

// Run probes immediately and then every interval until ctx is done. On exit
// every service is reported as not serving.
func (u *Updater) Run(ctx context.Context) error {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	u.Probe(ctx)

	for {
		select {
		case <-ctx.Done():
			u.server.Shutdown()
			return ctx.Err()
		case <-ticker.C:
			u.Probe(ctx)
		}
	}
}
