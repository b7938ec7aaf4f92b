package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"slippage/internal/models"
)

// JobHandler processes one deserialized analysis job.
type JobHandler func(ctx context.Context, job *models.Job, streamID string) error

// Consumer reads analysis jobs from a Redis Stream with a consumer group.
// Messages are acknowledged only after the handler succeeds, so failed or
// malformed messages stay pending.
type Consumer struct {
	client        *redis.Client
	streamKey     string
	consumerGroup string
	consumerName  string
	blockTime     time.Duration
	batchSize     int64
	handler       JobHandler
	logger        *slog.Logger
}

// Config holds consumer configuration.
type Config struct {
	StreamKey     string        // e.g., "slippage:jobs"
	ConsumerGroup string        // e.g., "slippage"
	ConsumerName  string        // e.g., "worker-1"
	BlockTime     time.Duration // How long to block waiting for messages
	BatchSize     int64         // Number of messages to read per batch
}

// New creates the consumer and its group (and stream) if missing.
func New(ctx context.Context, client *redis.Client, cfg Config, handler JobHandler, logger *slog.Logger) (*Consumer, error) {
	consumer := &Consumer{
		client:        client,
		streamKey:     cfg.StreamKey,
		consumerGroup: cfg.ConsumerGroup,
		consumerName:  cfg.ConsumerName,
		blockTime:     cfg.BlockTime,
		batchSize:     cfg.BatchSize,
		handler:       handler,
		logger:        logger.With("component", "consumer", "stream_key", cfg.StreamKey),
	}
	if consumer.blockTime <= 0 {
		consumer.blockTime = 5 * time.Second
	}
	if consumer.batchSize <= 0 {
		consumer.batchSize = 10
	}

	err := client.XGroupCreateMkStream(ctx, cfg.StreamKey, cfg.ConsumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	consumer.logger.Info("consumer_initialized",
		"consumer_group", cfg.ConsumerGroup,
		"consumer_name", cfg.ConsumerName,
	)

	return consumer, nil
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer_starting")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer_stopping")
			return ctx.Err()
		default:
		}

		if _, err := c.ReadBatch(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("xreadgroup_failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// ReadBatch reads and handles up to one batch of new messages, returning how
// many were acknowledged. An empty read is not an error.
func (c *Consumer) ReadBatch(ctx context.Context) (int, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.consumerGroup,
		Consumer: c.consumerName,
		Streams:  []string{c.streamKey, ">"},
		Count:    c.batchSize,
		Block:    c.blockTime,
		NoAck:    false,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}

	acked := 0
	for _, stream := range streams {
		for _, message := range stream.Messages {
			if err := c.processMessage(ctx, message); err != nil {
				c.logger.Error("message_processing_failed",
					"stream_id", message.ID,
					"error", err,
				)
				continue
			}

			if err := c.client.XAck(ctx, c.streamKey, c.consumerGroup, message.ID).Err(); err != nil {
				c.logger.Error("xack_failed",
					"stream_id", message.ID,
					"error", err,
				)
				continue
			}
			c.logger.Debug("message_acknowledged", "stream_id", message.ID)
			acked++
		}
	}
	return acked, nil
}

func (c *Consumer) processMessage(ctx context.Context, msg redis.XMessage) error {
	startTime := time.Now()

	job, err := DecodeJob(msg.Values)
	if err != nil {
		return err
	}

	queuedMs := time.Since(job.SubmittedAt).Milliseconds()
	c.logger.Debug("job_received",
		"stream_id", msg.ID,
		"job_id", job.ID,
		"ticker", job.Ticker,
		"queued_ms", queuedMs,
	)

	if err := c.handler(ctx, job, msg.ID); err != nil {
		return fmt.Errorf("handler failed: %w", err)
	}

	c.logger.Info("job_processed",
		"stream_id", msg.ID,
		"job_id", job.ID,
		"ticker", job.Ticker,
		"queued_ms", queuedMs,
		"processing_ms", time.Since(startTime).Milliseconds(),
	)

	return nil
}

// DecodeJob extracts the JSON job envelope from a stream message's "data" field.
func DecodeJob(values map[string]interface{}) (*models.Job, error) {
	dataField, ok := values["data"]
	if !ok {
		return nil, fmt.Errorf("message missing 'data' field")
	}

	jsonBytes, ok := dataField.(string)
	if !ok {
		return nil, fmt.Errorf("data field is not a string")
	}

	var job models.Job
	if err := json.Unmarshal([]byte(jsonBytes), &job); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}
	if job.ID == "" || job.Ticker == "" {
		return nil, fmt.Errorf("job requires id and ticker")
	}

	return &job, nil
}
