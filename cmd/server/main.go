// Package main runs the Nerlude API server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nerlude/backend/config"
	"github.com/nerlude/backend/internal/assets"
	"github.com/nerlude/backend/internal/audit"
	"github.com/nerlude/backend/internal/auth"
	"github.com/nerlude/backend/internal/authz"
	"github.com/nerlude/backend/internal/dashboard"
	"github.com/nerlude/backend/internal/documents"
	"github.com/nerlude/backend/internal/health"
	"github.com/nerlude/backend/internal/middleware"
	"github.com/nerlude/backend/internal/notifications"
	"github.com/nerlude/backend/internal/projects"
	"github.com/nerlude/backend/internal/proxy"
	"github.com/nerlude/backend/internal/realtime"
	"github.com/nerlude/backend/internal/services"
	"github.com/nerlude/backend/internal/stacks"
	"github.com/nerlude/backend/internal/worker"
	"github.com/nerlude/backend/internal/workspaces"
	"github.com/nerlude/backend/pkg/database"
	"github.com/nerlude/backend/pkg/queue"
	"github.com/nerlude/backend/pkg/ratelimit"
	"github.com/nerlude/backend/pkg/redis"
	"github.com/nerlude/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis is optional: without it rate limiting falls back to the
	// in-process limiter and queued side effects are dropped.
	var rdb *redis.Client
	var limiter ratelimit.Limiter
	var jobQueue *queue.Queue
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedis(rdb.Client)
		jobQueue = queue.NewQueue(rdb.Client, logger)
	} else {
		logger.Warn("redis not configured: in-memory rate limiting, side-effect jobs disabled")
		limiter = ratelimit.NewMemory()
	}

	var s3Client *storage.S3
	if cfg.AWS.DocumentsBucket != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			DocumentsBucket:      cfg.AWS.DocumentsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("document storage disabled", zap.Error(err))
			s3Client = nil
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours, cfg.JWT.RefreshWindowHours)

	var hub *realtime.Hub
	if rdb != nil {
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, pubsub, pubsub)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}

	// Membership and authorization
	workspaceRepo := workspaces.NewRepository(pool)
	gate := authz.NewGate(workspaceRepo)

	// Audit trail
	auditRepo := audit.NewRepository(pool)
	recorder := audit.NewRecorder(auditRepo, hub, logger)
	defer recorder.Close()

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, workspaceRepo, recorder, jobQueue, cfg.App.BaseURL, logger)

	// Workspaces
	workspaceHandler := workspaces.NewHandler(workspaceRepo, gate, authRepo, recorder, jobQueue, logger)

	// Activity feed
	auditHandler := audit.NewHandler(auditRepo, gate, recorder, logger)

	// Projects and nested resources
	projectRepo := projects.NewRepository(pool)
	projectAccess := projects.NewAccess(projectRepo, gate)
	projectHandler := projects.NewHandler(projectRepo, projectAccess, gate, recorder, logger)
	serviceHandler := services.NewHandler(services.NewRepository(pool), projectAccess, gate, recorder, logger)
	assetHandler := assets.NewHandler(assets.NewRepository(pool), projectAccess, recorder, logger)
	stackHandler := stacks.NewHandler(stacks.NewRepository(pool), projectAccess, recorder, logger)
	documentHandler := documents.NewHandler(documents.NewRepository(pool), projectAccess, s3Client, recorder, logger)

	// Notifications and dashboard
	notificationRepo := notifications.NewRepository(pool)
	notificationHandler := notifications.NewHandler(notificationRepo, logger)
	dashboardHandler := dashboard.NewHandler(dashboard.NewRepository(pool), gate, logger)

	// Health
	dbPing := func(ctx context.Context) (time.Duration, error) { return database.Ping(ctx, pool) }
	var redisPing health.PingFunc
	if rdb != nil {
		redisPing = func(ctx context.Context) (time.Duration, error) {
			start := time.Now()
			err := rdb.Ping(ctx).Err()
			return time.Since(start), err
		}
	}
	healthHandler := health.NewHandler(dbPing, redisPing, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", healthHandler.Get)

	// Auth entry points: tight budget, credential guessing protection.
	authGroup := router.Group("/auth")
	authGroup.Use(middleware.RateLimit(limiter, middleware.ClassAuth, cfg.RateLimit.AuthPerMinute, logger))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
	}

	// Everything below requires a session. Handlers re-verify identity even
	// though the page proxy already redirects anonymous visitors.
	api := router.Group("")
	api.Use(middleware.Session(jwtService, logger))
	api.Use(middleware.RateLimit(limiter, middleware.ClassAPI, cfg.RateLimit.APIPerMinute, logger))
	{
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/auth/me", authHandler.Me)
		api.DELETE("/auth/account", authHandler.DeleteAccount)

		api.GET("/workspaces", workspaceHandler.List)
		api.POST("/workspaces", workspaceHandler.Create)
		api.GET("/workspaces/:id/members", workspaceHandler.ListMembers)
		api.POST("/workspaces/:id/invitations", workspaceHandler.Invite)
		api.DELETE("/workspaces/:id/members/:userID", workspaceHandler.RemoveMember)
		api.POST("/invitations/accept", workspaceHandler.AcceptInvitation)

		api.GET("/activity", auditHandler.List)
		api.POST("/activity", auditHandler.Record)

		api.GET("/projects", projectHandler.List)
		api.POST("/projects", projectHandler.Create)
		api.GET("/projects/:id", projectHandler.Get)
		api.PUT("/projects/:id", projectHandler.Update)
		api.DELETE("/projects/:id", projectHandler.Delete)

		api.GET("/projects/:id/assets", assetHandler.List)
		api.POST("/projects/:id/assets", assetHandler.Create)
		api.DELETE("/projects/:id/assets/:assetID", assetHandler.Delete)

		api.GET("/projects/:id/stacks", stackHandler.List)
		api.POST("/projects/:id/stacks", stackHandler.Create)
		api.DELETE("/projects/:id/stacks/:stackID", stackHandler.Delete)

		api.GET("/projects/:id/documents", documentHandler.List)
		api.POST("/projects/:id/documents/upload-url",
			middleware.RateLimit(limiter, middleware.ClassUpload, cfg.RateLimit.UploadPerMinute, logger),
			documentHandler.CreateUploadURL)
		api.GET("/projects/:id/documents/:docID/download-url", documentHandler.CreateDownloadURL)
		api.DELETE("/projects/:id/documents/:docID", documentHandler.Delete)

		api.GET("/services", serviceHandler.List)
		api.POST("/services", serviceHandler.Create)
		api.GET("/services/:id", serviceHandler.Get)
		api.PUT("/services/:id", serviceHandler.Update)
		api.DELETE("/services/:id", serviceHandler.Delete)

		api.GET("/notifications", notificationHandler.List)
		api.POST("/notifications/:id/read", notificationHandler.MarkRead)
		api.PUT("/notifications/read-all", notificationHandler.MarkAllRead)

		api.GET("/dashboard/stats", dashboardHandler.Stats)
		api.GET("/dashboard/alerts", dashboardHandler.Alerts)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws/activity", realtime.ServeWs(hub, jwtService, gate, logger))

	// Page requests fall through to the frontend proxy when configured.
	if cfg.App.FrontendOrigin != "" {
		redirector, err := proxy.NewRedirector(cfg.App.FrontendOrigin, jwtService, logger)
		if err != nil {
			logger.Fatal("frontend proxy", zap.Error(err))
		}
		router.NoRoute(redirector.Handle)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process side-effect worker; cmd/worker runs the same loop standalone.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if jobQueue != nil {
		processor := worker.NewSideEffectProcessor(notificationRepo, &worker.LogMailer{Logger: logger}, jobQueue, logger)
		go processor.Run(workerCtx)
		logger.Info("side-effect worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
