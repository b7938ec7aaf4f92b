package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the slippage service configuration shared by every binary.
type Config struct {
	// Server
	HTTPPort           int      `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeoutMS   int      `env:"REQUEST_TIMEOUT_MS" envDefault:"30000"`
	StaticDir          string   `env:"STATIC_DIR" envDefault:"."`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Analysis
	AnalysisTimeoutMS int    `env:"ANALYSIS_TIMEOUT_MS" envDefault:"20000"`
	WorkerPoolSize    int    `env:"WORKER_POOL_SIZE" envDefault:"4"`
	DataDir           string `env:"DATA_DIR" envDefault:"./Data"`
	TolerantLinearFit bool   `env:"TOLERANT_LINEAR_FIT" envDefault:"false"`

	// Redis
	RedisURL      string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	JobStreamKey  string `env:"JOB_STREAM_KEY" envDefault:"slippage:jobs"`
	ConsumerGroup string `env:"CONSUMER_GROUP" envDefault:"slippage"`
	CacheTTLSec   int    `env:"CACHE_TTL_SEC" envDefault:"300"`

	// Computed durations (not from env)
	CacheTTL time.Duration `env:"-"`

	// Observability
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	PrometheusPort int    `env:"PROMETHEUS_PORT" envDefault:"9091"`
	TraceStdout    bool   `env:"TRACE_STDOUT" envDefault:"false"`
}

// RequestTimeout returns the HTTP request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// AnalysisTimeout returns the per-analysis deadline.
func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.AnalysisTimeoutMS) * time.Millisecond
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	opts := env.Options{
		Prefix: "",
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	for i := range cfg.CORSAllowedOrigins {
		cfg.CORSAllowedOrigins[i] = strings.TrimSpace(cfg.CORSAllowedOrigins[i])
	}

	cfg.CacheTTL = time.Duration(cfg.CacheTTLSec) * time.Second

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid port: %d", c.HTTPPort)
	}

	if c.PrometheusPort < 1 || c.PrometheusPort > 65535 {
		return fmt.Errorf("invalid prometheus port: %d", c.PrometheusPort)
	}

	if c.RequestTimeoutMS < 1 {
		return fmt.Errorf("request timeout must be at least 1ms, got %dms", c.RequestTimeoutMS)
	}

	if c.AnalysisTimeoutMS < 1 {
		return fmt.Errorf("analysis timeout must be at least 1ms, got %dms", c.AnalysisTimeoutMS)
	}

	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1, got %d", c.WorkerPoolSize)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data directory must be set")
	}

	if c.JobStreamKey == "" || c.ConsumerGroup == "" {
		return fmt.Errorf("job stream key and consumer group must be set")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if c.CacheTTL < time.Second {
		return fmt.Errorf("cache TTL must be at least 1 second")
	}

	return nil
}
