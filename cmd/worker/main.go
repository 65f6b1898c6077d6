package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/config"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/events"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/numbering"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/observability"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/persistence"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/repository"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/service"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	logger = logger.With(zap.String("component", "worker"))

	if cfg.Postgres.DSN == "" {
		logger.Fatal("POSTGRES_DSN is required for the worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	if !redis.Enabled() {
		logger.Fatal("REDIS_ADDR is required for the worker")
	}

	clock := domain.SystemClock()
	metrics := observability.NewMetrics()
	store := repository.NewPostgresStore(pg.PoolHandle(), clock)

	sinks := []events.Sink{worker.NewNotificationSink(logger, cfg.Notification)}
	if cfg.Kafka.Enabled() {
		kafka, err := events.NewKafkaSink(cfg.Kafka)
		if err != nil {
			logger.Fatal("failed to init kafka sink", zap.Error(err))
		}
		defer kafka.Close() //nolint:errcheck
		sinks = append([]events.Sink{kafka}, sinks...)
	}

	relay := worker.NewOutboxRelay(store.Outbox, events.FanOut(sinks...), clock, logger, metrics, worker.RelayConfig{
		Owner:       cfg.App.Name + "-worker-" + uuid.NewString()[:8],
		BatchSize:   cfg.Worker.OutboxBatchSize,
		MaxAttempts: cfg.Worker.OutboxMaxAttempts,
		Lease:       cfg.Worker.OutboxLease(),
	})
	organizations := service.NewOrganizationService(service.Dependencies{
		Store:     store,
		Sequencer: numbering.NewRedisSequencer(redis.Client, cfg.App.Name),
		Clock:     clock,
		Logger:    logger,
		Metrics:   metrics,
	})
	taskHandlers := worker.NewHandlers(relay, organizations, logger, cfg.Worker.ContractSweepBatch)

	redisOpt := redis.AsynqOpt()
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Queues: map[string]int{
			cfg.Worker.Queue: 1,
		},
		Logger: logger.Sugar(),
	})
	defer server.Shutdown()

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
	})
	defer scheduler.Shutdown()
	if err := worker.RegisterSchedules(scheduler, cfg.Worker); err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatal("scheduler start failed", zap.Error(err))
	}

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()
	go worker.MonitorQueueDepth(ctx, inspector, cfg.Worker.Queue, metrics, 10*time.Second)

	var metricsServer *http.Server
	if cfg.Worker.MetricsAddr != "" {
		metricsServer = &http.Server{Addr: cfg.Worker.MetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("worker started",
			zap.String("queue", cfg.Worker.Queue),
			zap.Int("concurrency", cfg.Worker.Concurrency),
			zap.Bool("kafka", cfg.Kafka.Enabled()),
		)
		errCh <- server.Run(taskHandlers.Mux())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if !errors.Is(err, asynq.ErrServerClosed) {
			logger.Fatal("worker failed", zap.Error(err))
		}
	}

	cancel()
	if metricsServer != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	logger.Info("worker stopped")
}
