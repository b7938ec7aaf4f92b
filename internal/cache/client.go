package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient parses redisURL, applies an optional password override and
// verifies the connection.
func NewClient(redisURL string, redisPassword string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if redisPassword != "" {
		opt.Password = redisPassword
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// AnalysisKey is the cache key of the latest analysis for a ticker.
func AnalysisKey(ticker string) string {
	return "analysis:" + strings.ToUpper(ticker)
}

// JobKey is the cache key of a processed job.
func JobKey(id string) string {
	return "job:" + id
}
