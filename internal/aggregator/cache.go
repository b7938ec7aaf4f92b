package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"slippage/internal/cache"
	"slippage/internal/models"
)

// RedisPublisher publishes analysis and job results to the Redis cache.
// Keys are analysis:{TICKER} and job:{id}, both with TTL.
type RedisPublisher struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisPublisher creates a publisher on an existing client.
func NewRedisPublisher(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "redis_publisher"),
	}
}

// PublishAnalysis stores the latest analysis for ticker.
func (p *RedisPublisher) PublishAnalysis(ctx context.Context, ticker string, result *models.AnalysisResult) error {
	return p.set(ctx, cache.AnalysisKey(ticker), result)
}

// PublishJob stores a processed job result.
func (p *RedisPublisher) PublishJob(ctx context.Context, result *models.JobResult) error {
	return p.set(ctx, cache.JobKey(result.ID), result)
}

func (p *RedisPublisher) set(ctx context.Context, key string, value any) error {
	startTime := time.Now()

	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("json marshal failed: %w", err)
	}

	if err := p.client.Set(ctx, key, jsonBytes, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}

	p.logger.Info("result_cached",
		"cache_key", key,
		"ttl_sec", p.ttl.Seconds(),
		"size_bytes", len(jsonBytes),
		"latency_ms", time.Since(startTime).Milliseconds(),
	)

	return nil
}
