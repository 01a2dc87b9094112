package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"elva.app/accounting/common/id"
	"elva.app/accounting/common/logger"
	"elva.app/accounting/common/otel"
	"elva.app/accounting/core/config"
	"elva.app/accounting/core/db"
	"elva.app/accounting/internal/jobs"
	"elva.app/accounting/internal/lock"
	"elva.app/accounting/internal/queue"
	"elva.app/accounting/internal/service"
	"elva.app/accounting/internal/store"
	"elva.app/accounting/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "accounting worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Notifications.Group,
		"consumer_name", cfg.Notifications.Consumer)

	// Use a different node ID than the server
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

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
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Notifications.Stream)

	// Reconciliation may re-emit threshold notifications, so the worker publishes too.
	notifier := queue.NewRedisProducer(redisClient, cfg.Notifications.Stream, slog.Default())

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

	scheduler := worker.NewScheduler(runner, worker.Schedule{
		Retention:  cfg.Jobs.RetentionSchedule,
		Reconcile:  cfg.Jobs.ReconcileSchedule,
		Analytics:  cfg.Jobs.AnalyticsSchedule,
		AuditPurge: cfg.Jobs.AuditPurgeSchedule,
	})

	consumer, err := queue.NewRedisConsumer(ctx, redisClient, queue.ConsumerConfig{
		Stream:       cfg.Notifications.Stream,
		Group:        cfg.Notifications.Group,
		Consumer:     cfg.Notifications.Consumer,
		DLQStream:    cfg.Notifications.DLQStream,
		BatchSize:    10,
		Block:        5 * time.Second,
		RequeueDelay: cfg.Notifications.RequeueDelay,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	var deliverer worker.Deliverer
	if d := worker.NewWebhookDeliverer(cfg.Notifications.WebhookURL, 10*time.Second); d != nil {
		deliverer = d
	} else {
		slog.WarnContext(ctx, "NOTIFICATION_WEBHOOK_URL not set, quota notifications will only be logged")
	}

	w := worker.New(consumer, deliverer, services.Audit(), worker.Config{
		MaxAttempts: cfg.Notifications.MaxAttempts,
	})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:    cfg.Notifications.Stream,
		Group:     cfg.Notifications.Group,
		Consumer:  cfg.Notifications.Consumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  time.Minute,
		BatchSize: 10,
	}, consumer, w.Handle)

	errCh := make(chan error, 3)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()
	go func() {
		errCh <- scheduler.Run(ctx)
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker component stopped", "error", err)
		}
		stop()
	}

	slog.InfoContext(context.Background(), "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		reclaimer.Stop()
		w.Stop()
		close(done)
	}()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(shutdownCtx, "shutdown timeout exceeded")
	case <-done:
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "worker shutdown complete")
}

const banner = `
 ___  ___ ___ ___  _   _ _  _ _____ ___ _  _  ___ 
/_\ \/ __/ __/ _ \| | | | \| |_   _|_ _| \| |/ __|
/ _ \ (_| (_| (_) | |_| | .' | | |  | || .' | (_ |
/_/ \_\___\___\___/ \___/|_|\_| |_| |___|_|\_|\___|  worker
`
