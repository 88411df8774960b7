package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"circles-service/internal/auth"
	"circles-service/internal/config"
	"circles-service/internal/db"
	"circles-service/internal/handlers"
	"circles-service/internal/health"
	"circles-service/internal/middleware"
	"circles-service/internal/notify"
	"circles-service/internal/observability"
	"circles-service/internal/rabbitmq"
	"circles-service/internal/ratelimit"
	"circles-service/internal/repositories"
	"circles-service/internal/services"
	"circles-service/internal/telemetry"
	"circles-service/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	cfg.ConfigureLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		logrus.Fatalf("failed to init tracer: %v", err)
	}

	database, err := db.Connect(ctx, cfg.DatabaseDSN)
	if err != nil {
		logrus.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	logrus.WithFields(logrus.Fields{
		"mode":        rabbitmq.PublisherMode(publisher),
		"noop_reason": rabbitmq.PublisherNoopReason(publisher),
	}).Info("event publisher ready")

	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, cfg.ServiceName, cfg.Environment)

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		logrus.Fatalf("failed to init token verifier: %v", err)
	}

	groupRepo := repositories.NewGroupRepo(database)
	membershipRepo := repositories.NewMembershipRepo(database)
	profileRepo := repositories.NewProfileRepo(database)
	invitationRepo := repositories.NewInvitationRepo(database)
	inviteCodeRepo := repositories.NewInviteCodeRepo(database)
	activityRepo := repositories.NewActivityRepo(database)
	movieRepo := repositories.NewMovieRepo(database)

	hub := ws.NewHub()

	activityService := services.NewActivityService(activityRepo, membershipRepo, profileRepo, groupRepo, movieRepo, hub)
	inviteCodeService := services.NewInviteCodeService(inviteCodeRepo, membershipRepo, groupRepo, activityService)
	groupService := services.NewGroupService(groupRepo, membershipRepo, profileRepo, inviteCodeService, activityService, hub)
	sender := notify.NewSender(publisher, cfg.MailRoutingKey, cfg.SiteName)
	invitationService := services.NewInvitationService(
		invitationRepo, membershipRepo, profileRepo, groupRepo, sender, activityService, cfg.PublicBaseURL,
	)

	groupHandler := handlers.NewGroupHandler(groupService, audit)
	invitationHandler := handlers.NewInvitationHandler(invitationService, audit)
	inviteCodeHandler := handlers.NewInviteCodeHandler(inviteCodeService, audit)
	activityHandler := handlers.NewActivityHandler(activityService)
	activityWS := ws.NewActivityWebSocketHandler(hub, membershipRepo, verifier)

	if cfg.AMQPURL != "" {
		consumer := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
			URL:        cfg.AMQPURL,
			Exchange:   cfg.AMQPExchange,
			Queue:      cfg.ActivityQueue,
			BindingKey: cfg.ActivityBindingKey,
		}, handlers.NewActivityEventHandler(activityService))
		go consumer.Run(ctx)
	}

	checker := health.NewChecker(database, cfg.ServiceName)
	go checker.Watch(ctx, 15*time.Second)

	limiter := newLimiter(cfg)

	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", checker.Serve)
	router.GET("/ws/groups/:group_id/activities", activityWS.Handle)
	handlers.RegisterDebugRoutes(router, handlers.DebugDeps{Audit: audit, Subscribers: hub}, cfg.DebugRoutes)

	authMiddleware := middleware.AuthMiddleware(verifier, groupService)
	invitationLimit := middleware.RateLimit(limiter, "invitations")
	joinLimit := middleware.RateLimit(limiter, "join")
	acceptLimit := middleware.RateLimit(limiter, "accept")

	api := router.Group("/", authMiddleware)
	api.POST("/groups", groupHandler.CreateGroup)
	api.GET("/groups", groupHandler.ListGroups)
	api.POST("/groups/join", joinLimit, inviteCodeHandler.JoinGroup)
	api.GET("/groups/:group_id", groupHandler.GetGroup)
	api.PATCH("/groups/:group_id", groupHandler.UpdateGroup)
	api.DELETE("/groups/:group_id", groupHandler.DeleteGroup)
	api.GET("/groups/:group_id/members", groupHandler.ListMembers)
	api.DELETE("/groups/:group_id/members/:user_id", groupHandler.RemoveMember)
	api.POST("/groups/:group_id/leave", groupHandler.LeaveGroup)
	api.POST("/groups/:group_id/invitations", invitationLimit, invitationHandler.SendInvitation)
	api.POST("/groups/:group_id/invitations/resend", invitationLimit, invitationHandler.ResendInvitation)
	api.GET("/groups/:group_id/invitations", invitationHandler.ListInvitations)
	api.POST("/groups/:group_id/invite-code", inviteCodeHandler.GetInviteCode)
	api.GET("/groups/:group_id/activities", activityHandler.GroupActivities)
	api.POST("/groups/:group_id/activities", activityHandler.PostActivity)
	api.POST("/invitations/:invitation_id/accept", acceptLimit, invitationHandler.AcceptInvitation)
	api.GET("/activities", activityHandler.UserActivities)

	grpcServer := health.NewGRPCServer(checker)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logrus.Fatalf("failed to listen on %s: %v", cfg.GRPCAddr, err)
	}
	go func() {
		logrus.WithField("addr", cfg.GRPCAddr).Info("grpc health server listening")
		if err := grpcServer.Serve(lis); err != nil {
			logrus.WithError(err).Error("grpc server stopped")
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.WithField("port", cfg.HTTPPort).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	checker.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("http shutdown")
	}
	grpcServer.GracefulStop()
	if err := shutdownTracer(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("tracer shutdown")
	}
}

func newLimiter(cfg *config.Config) ratelimit.Limiter {
	if cfg.RedisURL == "" {
		return ratelimit.NewFixedWindow(cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.WithError(err).Warn("invalid redis url, using in-memory rate limiter")
		return ratelimit.NewFixedWindow(cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	return ratelimit.NewRedisLimiter(redis.NewClient(opts), "circles:ratelimit", cfg.RateLimitRequests, cfg.RateLimitWindow)
}
