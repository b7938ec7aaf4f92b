package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slippage/internal/cache"
	"slippage/internal/models"
)

const (
	testStream = "slippage:jobs"
	testGroup  = "slippage"
)

type recorder struct {
	mu   sync.Mutex
	jobs []*models.Job
	err  error
}

func (r *recorder) handle(_ context.Context, job *models.Job, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func setup(t *testing.T, rec *recorder) (*Consumer, *Producer, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := cache.NewClient("redis://"+mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cons, err := New(context.Background(), client, Config{
		StreamKey:     testStream,
		ConsumerGroup: testGroup,
		ConsumerName:  "worker-test",
		BlockTime:     20 * time.Millisecond,
	}, rec.handle, logger)
	require.NoError(t, err)

	return cons, NewProducer(client, testStream, logger), client
}

func pending(t *testing.T, client *redis.Client) int64 {
	t.Helper()
	p, err := client.XPending(context.Background(), testStream, testGroup).Result()
	require.NoError(t, err)
	return p.Count
}

func TestEnqueueAndConsume(t *testing.T) {
	rec := &recorder{}
	cons, prod, client := setup(t, rec)
	ctx := context.Background()

	job, err := prod.Enqueue(ctx, "CRWV", models.DefaultParams())
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)

	acked, err := cons.ReadBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, acked)

	require.Equal(t, 1, rec.count())
	assert.Equal(t, job.ID, rec.jobs[0].ID)
	assert.Equal(t, "CRWV", rec.jobs[0].Ticker)
	assert.Equal(t, models.DefaultParams(), rec.jobs[0].Params)
	assert.Zero(t, pending(t, client))

	// nothing new
	acked, err = cons.ReadBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, acked)
}

func TestGroupCreationIsIdempotent(t *testing.T) {
	rec := &recorder{}
	_, _, client := setup(t, rec)

	_, err := New(context.Background(), client, Config{StreamKey: testStream, ConsumerGroup: testGroup, ConsumerName: "other"},
		rec.handle, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, err)
}

func TestMalformedMessagesStayPending(t *testing.T) {
	rec := &recorder{}
	cons, _, client := setup(t, rec)
	ctx := context.Background()

	for _, values := range []map[string]interface{}{
		{"data": "{not json"},
		{"other": "x"},
		{"data": `{"id":"","ticker":"CRWV"}`},
	} {
		require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: testStream, Values: values}).Err())
	}

	acked, err := cons.ReadBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, acked)
	assert.Zero(t, rec.count())
	assert.Equal(t, int64(3), pending(t, client))
}

func TestHandlerErrorLeavesMessagePending(t *testing.T) {
	rec := &recorder{err: errors.New("publish failed")}
	cons, prod, client := setup(t, rec)
	ctx := context.Background()

	_, err := prod.Enqueue(ctx, "FROG", models.DefaultParams())
	require.NoError(t, err)

	acked, err := cons.ReadBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, acked)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, int64(1), pending(t, client))
}

func TestStartStopsOnCancel(t *testing.T) {
	rec := &recorder{}
	cons, prod, _ := setup(t, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cons.Start(ctx) }()

	_, err := prod.Enqueue(context.Background(), "SOUN", models.DefaultParams())
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestDecodeJob(t *testing.T) {
	job, err := DecodeJob(map[string]interface{}{"data": `{"id":"1","ticker":"CRWV","params":{"sample_size":10}}`})
	require.NoError(t, err)
	assert.Equal(t, 10, job.Params.SampleSize)

	_, err = DecodeJob(map[string]interface{}{"data": 5})
	assert.ErrorContains(t, err, "not a string")
}
