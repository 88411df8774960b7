package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"circles-service/internal/observability"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Checker reports database reachability to the HTTP and gRPC health surfaces.
type Checker struct {
	db      Pinger
	service string
	grpc    *grpchealth.Server
}

func NewChecker(db Pinger, service string) *Checker {
	return &Checker{db: db, service: service, grpc: grpchealth.NewServer()}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// Check pings the database once and updates the gRPC serving status.
func (h *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err := h.db.PingContext(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.grpc.SetServingStatus("", status)
	h.grpc.SetServingStatus(h.service, status)
	return err
}

// Serve handles GET /healthz.
func (h *Checker) Serve(c *gin.Context) {
	if err := h.Check(c.Request.Context()); err != nil {
		logrus.WithError(err).Error("health-check: database ping failed")
		c.JSON(http.StatusServiceUnavailable, healthResponse{
			Status:   "error",
			Database: "disconnected",
			Error:    err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, healthResponse{Status: "ok", Database: "connected"})
}

// Watch re-checks the database every interval until ctx is done.
func (h *Checker) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := h.Check(ctx); err != nil && ctx.Err() == nil {
			logrus.WithError(err).Warn("health-check: database unreachable")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown flips every service to NOT_SERVING so load balancers drain.
func (h *Checker) Shutdown() {
	h.grpc.Shutdown()
}

// NewGRPCServer returns a server exposing grpc.health.v1.Health backed by c.
func NewGRPCServer(c *Checker) *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	healthpb.RegisterHealthServer(srv, c.grpc)
	return srv
}
