package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 20*time.Second, cfg.AnalysisTimeout())
	assert.Equal(t, 4, cfg.WorkerPoolSize)
	assert.Equal(t, "./Data", cfg.DataDir)
	assert.Equal(t, "slippage:jobs", cfg.JobStreamKey)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.TolerantLinearFit)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("WORKER_POOL_SIZE", "8")
	t.Setenv("CACHE_TTL_SEC", "60")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("TOLERANT_LINEAR_FIT", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, 8, cfg.WorkerPoolSize)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.TolerantLinearFit)
}

func TestLoadFromEnv_BadValue(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-number")

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "port out of range", env: map[string]string{"HTTP_PORT": "70000"}, wantErr: "invalid port"},
		{name: "empty pool", env: map[string]string{"WORKER_POOL_SIZE": "0"}, wantErr: "worker pool size"},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "verbose"}, wantErr: "invalid log level"},
		{name: "zero ttl", env: map[string]string{"CACHE_TTL_SEC": "0"}, wantErr: "cache TTL"},
		{name: "zero analysis timeout", env: map[string]string{"ANALYSIS_TIMEOUT_MS": "0"}, wantErr: "analysis timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadFromEnv()
			require.NoError(t, err)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}
