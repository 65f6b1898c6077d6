package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Kafka        KafkaConfig
	Worker       WorkerConfig
	Tickets      TicketConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer token verification parameters.
type AuthConfig struct {
	JWTSecret             string
	Issuer                string
	AccessTokenTTLMinutes int
}

// KafkaConfig configures the event sink. No brokers means events stay in-process.
type KafkaConfig struct {
	Brokers             []string
	Topic               string
	ClientID            string
	WriteBatchTimeoutMS int
	MaxAttempts         int
}

// Enabled reports whether a broker list was configured.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// WorkerConfig configures the outbox relay and scheduled jobs.
type WorkerConfig struct {
	Queue              string
	Concurrency        int
	OutboxScanSec      int
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxLeaseSec     int
	ContractSweepCron  string
	ContractSweepBatch int
	MetricsAddr        string
}

// OutboxScanInterval returns the relay polling period.
func (w WorkerConfig) OutboxScanInterval() time.Duration {
	if w.OutboxScanSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(w.OutboxScanSec) * time.Second
}

// OutboxLease returns how long a relay claim stays exclusive.
func (w WorkerConfig) OutboxLease() time.Duration {
	if w.OutboxLeaseSec <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(w.OutboxLeaseSec) * time.Second
}

// TicketConfig holds ticket workflow settings.
type TicketConfig struct {
	ReopenWindowDays int
}

// ReopenWindow returns how long after closure a ticket may be reopened. Zero disables the limit.
func (t TicketConfig) ReopenWindow() time.Duration {
	if t.ReopenWindowDays <= 0 {
		return 0
	}
	return time.Duration(t.ReopenWindowDays) * 24 * time.Hour
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "flowertrack"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnvOrEmpty("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			Issuer:                getEnv("AUTH_JWT_ISSUER", "flowertrack"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Kafka: KafkaConfig{
			Brokers:             getEnvAsList("KAFKA_BROKERS"),
			Topic:               getEnv("KAFKA_TOPIC", "flowertrack.domain-events"),
			ClientID:            getEnv("KAFKA_CLIENT_ID", "flowertrack"),
			WriteBatchTimeoutMS: getEnvAsInt("KAFKA_WRITE_BATCH_TIMEOUT_MS", 10),
			MaxAttempts:         getEnvAsInt("KAFKA_MAX_ATTEMPTS", 3),
		},
		Worker: WorkerConfig{
			Queue:              getEnv("WORKER_QUEUE", "flowertrack"),
			Concurrency:        getEnvAsInt("WORKER_CONCURRENCY", 5),
			OutboxScanSec:      getEnvAsInt("OUTBOX_SCAN_SECONDS", 5),
			OutboxBatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 50),
			OutboxMaxAttempts:  getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 10),
			OutboxLeaseSec:     getEnvAsInt("OUTBOX_LEASE_SECONDS", 300),
			ContractSweepCron:  getEnv("CONTRACT_SWEEP_CRON", "@every 1h"),
			ContractSweepBatch: getEnvAsInt("CONTRACT_SWEEP_BATCH", 100),
			MetricsAddr:        getEnv("WORKER_METRICS_ADDR", ":9091"),
		},
		Tickets: TicketConfig{
			ReopenWindowDays: getEnvAsInt("TICKET_REOPEN_WINDOW_DAYS", 14),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvOrEmpty is getEnv where an explicitly empty value is kept.
func getEnvOrEmpty(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
