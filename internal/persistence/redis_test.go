package persistence

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/config"
)

func TestRedisDisabledWithoutAddress(t *testing.T) {
	r := NewRedis(context.Background(), config.RedisConfig{}, zap.NewNop())
	if r.Enabled() {
		t.Fatalf("redis must stay disabled without an address")
	}
	if err := r.Ping(context.Background()); err == nil {
		t.Fatalf("ping on a disabled client must fail")
	}
	r.Close()
}

func TestRedisAsynqOptMirrorsConfig(t *testing.T) {
	cfg := config.RedisConfig{Addr: "cache:6380", Password: "pw", DB: 4}
	opt := (&Redis{cfg: cfg}).AsynqOpt()
	if opt.Addr != cfg.Addr || opt.Password != cfg.Password || opt.DB != cfg.DB {
		t.Fatalf("unexpected asynq options %+v", opt)
	}
}

func TestPostgresDisabledWithoutDSN(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new postgres: %v", err)
	}
	if pg.Enabled() || pg.Ping(context.Background()) == nil {
		t.Fatalf("postgres must stay disabled without a DSN")
	}
	pg.Close()
}
