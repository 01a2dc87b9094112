package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"elva.app/accounting/common/id"
	"elva.app/accounting/common/logger"
	"elva.app/accounting/common/otel"
	"elva.app/accounting/core/config"
	"elva.app/accounting/core/db"
	"elva.app/accounting/internal/http/middleware"
	httprouter "elva.app/accounting/internal/http/router"
	"elva.app/accounting/internal/jobs"
	"elva.app/accounting/internal/lock"
	"elva.app/accounting/internal/queue"
	"elva.app/accounting/internal/service"
	"elva.app/accounting/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "accounting server starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	if err := database.Migrate(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to apply migrations", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Notifications.Stream)

	notifier := queue.NewRedisProducer(redisClient, cfg.Notifications.Stream, slog.Default())
	defer notifier.Close()

	services := service.NewServices(
		store.NewStores(database.Queries()),
		service.NewTxRunner(database),
		lock.NewRedisLocker(redisClient, cfg.Jobs.LockTTL),
		notifier,
		service.Options{
			Limits:     service.NewPlanLimits(cfg.Quota.PlanLimits),
			Location:   cfg.Analytics.Location(),
			Thresholds: cfg.Quota.Thresholds,
		},
	)

	runner := jobs.NewRunner(
		services.Quota(),
		services.Retention(),
		services.Analytics(),
		services.Audit(),
		jobs.Config{
			Timeout:     cfg.Jobs.Timeout,
			RebuildDays: cfg.Analytics.RebuildDays,
			Location:    cfg.Analytics.Location(),
		},
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, runner)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Ops-triggered jobs run inside the request.
		WriteTimeout: cfg.Jobs.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services, runner *jobs.Runner) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, runner, httprouter.RouterConfig{
		ServiceSecret: cfg.ServiceSecret,
		JobsSecret:    cfg.Jobs.Secret,
	})

	return router
}

const banner = `
 ___  ___ ___ ___  _   _ _  _ _____ ___ _  _  ___ 
/_\ \/ __/ __/ _ \| | | | \| |_   _|_ _| \| |/ __|
/ _ \ (_| (_| (_) | |_| | .' | | |  | || .' | (_ |
/_/ \_\___\___\___/ \___/|_|\_| |_| |___|_|\_|\___|  server
`
