package config

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the crisis service
// Environment variables are automatically parsed from CRISIS_ prefix
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string      `envconfig:"LOG_FORMAT" default:"json"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Persistence gateway
	KVDriver      string `envconfig:"KV_DRIVER" default:"auto"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"data/crisis.db"`
	PostgresDSN   string `envconfig:"POSTGRES_DSN" default:""`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"crisis:"`
	EncryptionKey string `envconfig:"ENCRYPTION_KEY" default:""`

	// Real-time gateway
	RealtimeDriver      string `envconfig:"REALTIME_DRIVER" default:"local"`
	NATSURL             string `envconfig:"NATS_URL" default:"nats://127.0.0.1:4222"`
	BusBuffer           int    `envconfig:"BUS_BUFFER" default:"256"`
	WSMessagesPerMinute int    `envconfig:"WS_MESSAGES_PER_MINUTE" default:"60"`

	// Crisis engine
	MonitorIntervalSeconds int `envconfig:"MONITOR_INTERVAL_SECONDS" default:"3600"`
	AssessmentHistoryLimit int `envconfig:"ASSESSMENT_HISTORY_LIMIT" default:"50"`
	SessionHistoryLimit    int `envconfig:"SESSION_HISTORY_LIMIT" default:"20"`
	FollowUpHours          int `envconfig:"FOLLOW_UP_HOURS" default:"24"`

	// Health
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
	BootstrapTimeoutSeconds   int `envconfig:"BOOTSTRAP_TIMEOUT_SECONDS" default:"5"`
}

// ResolveDefaults derives KVDriver when set to "auto" and validates driver choices.
func (c *Config) ResolveDefaults() error {
	if c.KVDriver == "" || c.KVDriver == "auto" {
		switch {
		case c.PostgresDSN != "":
			c.KVDriver = "postgres"
		case c.Environment == EnvTesting:
			c.KVDriver = "memory"
		default:
			c.KVDriver = "sqlite"
		}
	}

	allowedKV := map[string]bool{"memory": true, "sqlite": true, "postgres": true, "redis": true}
	if !allowedKV[c.KVDriver] {
		return fmt.Errorf("unsupported KV_DRIVER: %s", c.KVDriver)
	}
	if c.KVDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("KV_DRIVER=postgres requires POSTGRES_DSN")
	}

	if c.LogFormat != "" && c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("unsupported LOG_FORMAT: %s", c.LogFormat)
	}

	allowedRT := map[string]bool{"local": true, "nats": true}
	if !allowedRT[c.RealtimeDriver] {
		return fmt.Errorf("unsupported REALTIME_DRIVER: %s", c.RealtimeDriver)
	}

	if c.EncryptionKey != "" {
		if _, err := c.EncryptionKeyBytes(); err != nil {
			return err
		}
	} else if c.IsProduction() {
		return fmt.Errorf("ENCRYPTION_KEY is required in production")
	}

	if c.MonitorIntervalSeconds <= 0 {
		return fmt.Errorf("MONITOR_INTERVAL_SECONDS must be > 0")
	}
	return nil
}

// New creates a new Config by parsing environment variables
// Environment variables should be prefixed with CRISIS_
// Example: CRISIS_KV_DRIVER, CRISIS_HTTP_PORT
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("CRISIS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("kv_driver", cfg.KVDriver).
		Str("realtime_driver", cfg.RealtimeDriver).
		Int("port", cfg.HTTPPort).
		Bool("encryption", cfg.EncryptionKey != "").
		Int("monitor_interval_s", cfg.MonitorIntervalSeconds).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		Environment:               EnvTesting,
		LogLevel:                  "debug",
		LogFormat:                 "json",
		HTTPPort:                  8080,
		KVDriver:                  "memory",
		RealtimeDriver:            "local",
		BusBuffer:                 64,
		WSMessagesPerMinute:       60,
		MonitorIntervalSeconds:    3600,
		AssessmentHistoryLimit:    50,
		SessionHistoryLimit:       20,
		FollowUpHours:             24,
		HealthIntervalSeconds:     1,
		HealthProbeTimeoutSeconds: 1,
		BootstrapTimeoutSeconds:   1,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// EncryptionKeyBytes decodes the base64 encryption key; it must be 32 bytes.
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.MonitorIntervalSeconds) * time.Second
}

func (c *Config) FollowUpDelay() time.Duration {
	return time.Duration(c.FollowUpHours) * time.Hour
}

func (c *Config) BootstrapTimeout() time.Duration {
	return time.Duration(c.BootstrapTimeoutSeconds) * time.Second
}
