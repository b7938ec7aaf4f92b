package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"slippage/internal/models"
)

// Reader reads published analyses and job results from Redis.
// A missing key is not an error: the getters return nil, nil.
type Reader struct {
	client *redis.Client
	logger *slog.Logger
}

// NewReader creates a reader on an existing client.
func NewReader(client *redis.Client, logger *slog.Logger) *Reader {
	return &Reader{
		client: client,
		logger: logger.With("component", "cache_reader"),
	}
}

// GetAnalysis fetches the latest analysis for ticker.
func (r *Reader) GetAnalysis(ctx context.Context, ticker string) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	found, err := r.get(ctx, AnalysisKey(ticker), &result)
	if err != nil || !found {
		return nil, err
	}
	return &result, nil
}

// GetJob fetches a processed job result.
func (r *Reader) GetJob(ctx context.Context, id string) (*models.JobResult, error) {
	var result models.JobResult
	found, err := r.get(ctx, JobKey(id), &result)
	if err != nil || !found {
		return nil, err
	}
	return &result, nil
}

func (r *Reader) get(ctx context.Context, key string, dst any) (bool, error) {
	startTime := time.Now()

	jsonBytes, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("cache_miss", "cache_key", key)
			return false, nil
		}
		return false, fmt.Errorf("redis GET failed: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, dst); err != nil {
		return false, fmt.Errorf("json unmarshal failed: %w", err)
	}

	r.logger.Debug("cache_hit",
		"cache_key", key,
		"size_bytes", len(jsonBytes),
		"latency_ms", time.Since(startTime).Milliseconds(),
	)
	return true, nil
}
