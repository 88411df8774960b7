package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) PingContext(context.Context) error {
	return f.err
}

func serve(t *testing.T, checker *Checker) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/healthz", checker.Serve)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	return rec
}

func grpcStatus(t *testing.T, checker *Checker, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := checker.grpc.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestServeHealthy(t *testing.T) {
	checker := NewChecker(&fakePinger{}, "circles-service")

	rec := serve(t, checker)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"connected"}`, rec.Body.String())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, grpcStatus(t, checker, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, grpcStatus(t, checker, "circles-service"))
}

func TestServeDatabaseDown(t *testing.T) {
	pinger := &fakePinger{err: errors.New("connection refused")}
	checker := NewChecker(pinger, "circles-service")

	rec := serve(t, checker)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, grpcStatus(t, checker, "circles-service"))

	pinger.err = nil
	require.NoError(t, checker.Check(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, grpcStatus(t, checker, "circles-service"))
}

func TestShutdownStopsServing(t *testing.T) {
	checker := NewChecker(&fakePinger{}, "circles-service")
	require.NoError(t, checker.Check(context.Background()))

	checker.Shutdown()

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, grpcStatus(t, checker, ""))
}

func TestNewGRPCServerRegistersHealth(t *testing.T) {
	srv := NewGRPCServer(NewChecker(&fakePinger{}, "circles-service"))
	defer srv.Stop()

	_, ok := srv.GetServiceInfo()[healthpb.Health_ServiceDesc.ServiceName]
	assert.True(t, ok)
}
