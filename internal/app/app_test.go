package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"slippage/internal/config"
	"slippage/internal/instrumentation"
	"slippage/internal/models"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")
	logger.Info("dropped")
	logger.Warn("kept", "ticker", "CRWV")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
	assert.Contains(t, buf.String(), `"ticker":"CRWV"`)
}

func TestInitTracing(t *testing.T) {
	shutdown, err := InitTracing("slippage-test", false, io.Discard)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	var buf bytes.Buffer
	shutdown, err = InitTracing("slippage-test", true, &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "fit")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name": "fit"`)
	assert.Contains(t, buf.String(), "slippage-test")
}

func TestNewService_WithoutRedis(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)

	svc := NewService(cfg, nil, instrumentation.NewMetrics(prometheus.NewRegistry()), slog.New(slog.NewTextHandler(io.Discard, nil)))
	tickers, err := svc.Tickers()
	require.NoError(t, err)
	assert.Empty(t, tickers)

	bad := models.DefaultParams()
	bad.SampleSize = 0
	assert.Error(t, svc.ValidateParams(bad))
}
