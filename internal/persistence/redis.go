package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/config"
)

const redisConnectTimeout = 3 * time.Second

// Redis holds the go-redis client behind ticket numbering and the asynq connection settings.
// An empty address leaves it disabled.
type Redis struct {
	Client *redis.Client
	cfg    config.RedisConfig
}

// NewRedis builds the client when an address is configured. An unreachable server is
// logged, not fatal: readiness reports it until it comes back.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not provided; redis disabled")
		return &Redis{cfg: cfg}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}
	return &Redis{Client: client, cfg: cfg}
}

// Enabled reports whether a client was built.
func (r *Redis) Enabled() bool {
	return r != nil && r.Client != nil
}

// AsynqOpt returns the same server settings for the task queue.
func (r *Redis) AsynqOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     r.cfg.Addr,
		Password: r.cfg.Password,
		DB:       r.cfg.DB,
	}
}

// Close closes the client.
func (r *Redis) Close() {
	if r.Enabled() {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
