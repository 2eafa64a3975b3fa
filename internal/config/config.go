// Package config loads application settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the server settings
type Config struct {
	Port          string        `env:"PORT" envDefault:"8080"`
	GinMode       string        `env:"GIN_MODE" envDefault:"debug"`
	AppURL        string        `env:"APP_URL" envDefault:"http://localhost:8080"`
	JWTSecret     string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	TokenTTL      time.Duration `env:"JWT_TTL" envDefault:"24h"`
	AdminPassword string        `env:"ADMIN_PASSWORD" envDefault:"admin123"`
	AdminEmail    string        `env:"ADMIN_EMAIL" envDefault:"admin@authorshaven.local"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Cron expression for re-enqueueing unsent notification emails; empty disables retries
	EmailRetrySchedule string        `env:"EMAIL_RETRY_SCHEDULE"`
	EmailRetryAfter    time.Duration `env:"EMAIL_RETRY_AFTER" envDefault:"15m"`

	Mail  MailConfig  `envPrefix:"MAIL_"`
	Queue QueueConfig `envPrefix:"QUEUE_"`
}

// MailConfig selects and configures the email sender
type MailConfig struct {
	Backend   string `env:"BACKEND" envDefault:"log"` // "log" or "smtp"
	SMTPHost  string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort  int    `env:"SMTP_PORT" envDefault:"587"`
	Username  string `env:"USERNAME"`
	Password  string `env:"PASSWORD"`
	From      string `env:"FROM" envDefault:"no-reply@authorshaven.local"`
	Workers   int    `env:"WORKERS" envDefault:"2"`
	QueueSize int    `env:"QUEUE_SIZE" envDefault:"256"`
}

// QueueConfig selects where queued emails wait for a worker
type QueueConfig struct {
	Backend       string `env:"BACKEND" envDefault:"memory"` // "memory" or "redis"
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisKey      string `env:"REDIS_KEY" envDefault:"authors-haven:emails"`
}

// LoadDotEnv loads a .env file if present. A missing file is not an error.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the server configuration
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.Mail.Workers < 1 {
		cfg.Mail.Workers = 1
	}
	if cfg.Mail.QueueSize < 1 {
		return nil, fmt.Errorf("MAIL_QUEUE_SIZE must be positive, got %d", cfg.Mail.QueueSize)
	}
	return &cfg, nil
}
