package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ----------------------------
	// SMTP
	// ----------------------------
	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUser     string `envconfig:"SMTP_USER" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"recruiting@talentmail.local"`

	// ----------------------------
	// Dispatch workers
	// ----------------------------
	WorkerCount int `envconfig:"WORKER_COUNT" default:"5"`
	RateLimit   int `envconfig:"RATE_LIMIT" default:"10"`

	// RetryDelay is the fixed pause before a failed dispatch is retried as
	// a whole. RetryAttempts bounds those retries; the queue gives up after
	// that many redeliveries.
	RetryDelay    time.Duration `envconfig:"RETRY_DELAY" default:"2m"`
	RetryAttempts int           `envconfig:"RETRY_ATTEMPTS" default:"25"`

	// ----------------------------
	// HTTP API
	// ----------------------------
	APIPort string `envconfig:"API_PORT" default:"8080"`

	// ----------------------------
	// Metrics
	// ----------------------------
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// ----------------------------
	// Database
	// ----------------------------
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// ----------------------------
	// Redis (task queue)
	// ----------------------------
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

func Load() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return &cfg, err
}
