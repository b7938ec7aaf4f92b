package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"slippage/internal/models"
)

// Producer enqueues analysis jobs on the job stream.
type Producer struct {
	client    *redis.Client
	streamKey string
	logger    *slog.Logger
	now       func() time.Time
}

// NewProducer creates a producer for streamKey.
func NewProducer(client *redis.Client, streamKey string, logger *slog.Logger) *Producer {
	return &Producer{
		client:    client,
		streamKey: streamKey,
		logger:    logger.With("component", "producer", "stream_key", streamKey),
		now:       time.Now,
	}
}

// Enqueue adds a job with a fresh ID and returns it.
func (p *Producer) Enqueue(ctx context.Context, ticker string, params models.Params) (*models.Job, error) {
	job := &models.Job{
		ID:          uuid.NewString(),
		Ticker:      ticker,
		Params:      params,
		SubmittedAt: p.now().UTC(),
	}

	jsonBytes, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("json marshal failed: %w", err)
	}

	streamID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamKey,
		Values: map[string]interface{}{"data": string(jsonBytes)},
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis XADD failed: %w", err)
	}

	p.logger.Info("job_enqueued", "job_id", job.ID, "ticker", ticker, "stream_id", streamID)
	return job, nil
}
