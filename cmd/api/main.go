package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	httptransport "github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/api/http"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/api/http/handlers"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/auth"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/config"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/events"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/numbering"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/observability"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/persistence"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/repository"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/repository/memory"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := domain.SystemClock()
	metrics := observability.NewMetrics()
	healthDeps := map[string]handlers.Pinger{}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var (
		store     *repository.Store
		sequencer numbering.Sequencer
	)
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		if !redis.Enabled() {
			logger.Fatal("REDIS_ADDR is required with POSTGRES_DSN for ticket numbering")
		}

		store = repository.NewPostgresStore(pg.PoolHandle(), clock)
		sequencer = numbering.NewRedisSequencer(redis.Client, cfg.App.Name)
		healthDeps["postgres"] = pg
		healthDeps["redis"] = redis
	} else {
		store = memory.NewStore(clock).Repositories()
		sequencer = numbering.NewMemorySequencer()
	}

	deps := service.Dependencies{
		Store:        store,
		Sequencer:    sequencer,
		Clock:        clock,
		Logger:       logger,
		Metrics:      metrics,
		ReopenWindow: cfg.Tickets.ReopenWindow(),
	}
	organizations := service.NewOrganizationService(deps)
	machines := service.NewMachineService(deps)
	tickets := service.NewTicketService(deps)

	// Without postgres the outbox lives in this process, so the relay has to as well.
	if !pg.Enabled() {
		sink, closeSink := relaySink(cfg, logger)
		defer closeSink()
		relay := worker.NewOutboxRelay(store.Outbox, sink, clock, logger, metrics, worker.RelayConfig{
			Owner:       cfg.App.Name + "-" + uuid.NewString()[:8],
			BatchSize:   cfg.Worker.OutboxBatchSize,
			MaxAttempts: cfg.Worker.OutboxMaxAttempts,
			Lease:       cfg.Worker.OutboxLease(),
		})
		go relay.Run(ctx, cfg.Worker.OutboxScanInterval())
		logger.Info("in-process outbox relay started", zap.Duration("interval", cfg.Worker.OutboxScanInterval()))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTLMinutes)
	app := httptransport.NewApp(cfg.App.Name, logger, cfg.App.RequestTimeout(), httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps),
		Organizations:  handlers.NewOrganizationsHandler(organizations),
		Machines:       handlers.NewMachinesHandler(machines),
		Tickets:        handlers.NewTicketsHandler(tickets),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func relaySink(cfg *config.Config, logger *zap.Logger) (events.Sink, func()) {
	notifications := worker.NewNotificationSink(logger, cfg.Notification)
	if !cfg.Kafka.Enabled() {
		return notifications, func() {}
	}
	kafka, err := events.NewKafkaSink(cfg.Kafka)
	if err != nil {
		logger.Fatal("failed to init kafka sink", zap.Error(err))
	}
	return events.FanOut(kafka, notifications), func() { _ = kafka.Close() }
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
