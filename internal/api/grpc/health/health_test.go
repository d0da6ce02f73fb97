package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/coursemarket-auth/internal/mocks"
	"github.com/dtroode/coursemarket-auth/internal/testutil"
)

func check(t *testing.T, s *health.Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestUpdater_Probe(t *testing.T) {
	srv := health.NewServer()
	pinger := mocks.NewPinger(t)
	u := NewUpdater(srv, pinger, time.Second, testutil.MakeNoopLogger())

	pinger.On("Ping", mock.Anything).Return(nil).Once()
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, u.Probe(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, srv, ServiceName))

	pinger.On("Ping", mock.Anything).Return(errors.New("connection refused")).Once()
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, u.Probe(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, srv, ""))
}

func TestUpdater_Run_ShutsDownOnCancel(t *testing.T) {
	srv := health.NewServer()
	pinger := mocks.NewPinger(t)
	pinger.On("Ping", mock.Anything).Return(nil)
	u := NewUpdater(srv, pinger, 10*time.Millisecond, testutil.MakeNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- u.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, srv, ServiceName))
}
