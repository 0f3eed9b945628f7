package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string `yaml:"api_port"`
	LogLevel string `yaml:"log_level"`

	ClassifierURL     string        `yaml:"classifier_url"`
	ClassifierTimeout time.Duration `yaml:"classifier_timeout"`

	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	SessionMax             int           `yaml:"session_max"`
	SessionIdleTTL         time.Duration `yaml:"session_idle_ttl"`
	SessionCleanupInterval time.Duration `yaml:"session_cleanup_interval"`

	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	MaxConnections int           `yaml:"max_connections"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	BreakerEnabled      bool          `yaml:"breaker_enabled"`
	BreakerMinRequests  uint32        `yaml:"breaker_min_requests"`
	BreakerFailureRatio float64       `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeout  time.Duration `yaml:"breaker_open_timeout"`

	// NATSURL empty disables event publishing.
	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`
}

// Load reads the environment with defaults and, when CONFIG_FILE is
// set, overlays the YAML file on top.
func Load() (Config, error) {
	cfg := Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		ClassifierURL:     mustEnv("CLASSIFIER_URL", "http://localhost:5040"),
		ClassifierTimeout: mustEnvDuration("CLASSIFIER_TIMEOUT", 120*time.Second),

		MaxUploadBytes: mustEnvInt64("MAX_UPLOAD_BYTES", 500<<20),

		SessionMax:             mustEnvInt("SESSION_MAX", 256),
		SessionIdleTTL:         mustEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
		SessionCleanupInterval: mustEnvDuration("SESSION_CLEANUP_INTERVAL", time.Minute),

		RateLimitRPS:   mustEnvFloat("RATE_LIMIT_RPS", 50),
		RateLimitBurst: mustEnvInt("RATE_LIMIT_BURST", 100),
		MaxConcurrent:  mustEnvInt("MAX_CONCURRENT", 64),
		MaxConnections: mustEnvInt("MAX_CONNECTIONS", 512),
		RequestTimeout: mustEnvDuration("REQUEST_TIMEOUT", 150*time.Second),

		BreakerEnabled:      mustEnvBool("BREAKER_ENABLED", true),
		BreakerMinRequests:  uint32(mustEnvInt("BREAKER_MIN_REQUESTS", 5)),
		BreakerFailureRatio: mustEnvFloat("BREAKER_FAILURE_RATIO", 0.6),
		BreakerOpenTimeout:  mustEnvDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "intake.sessions"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
