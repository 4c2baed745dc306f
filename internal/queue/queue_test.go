package queue

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	tasks []Task
	fail  bool
}

func (r *recorder) Handle(_ context.Context, task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	if r.fail {
		return errors.New("handler failed")
	}
	return nil
}

func setup(t *testing.T, handler Handler) (*miniredis.Miniredis, *redis.Client, *Producer, *Consumer) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	producer := NewProducer(client, "test:tasks")
	consumer := NewConsumer(client, ConsumerConfig{
		Stream:        "test:tasks",
		Group:         "workers",
		Name:          "w1",
		ClaimInterval: time.Millisecond,
		Block:         10 * time.Millisecond,
	}, zerolog.Nop(), handler)
	require.NoError(t, consumer.EnsureGroup(context.Background()))
	return mr, client, producer, consumer
}

func TestEnqueueAndRead(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	_, _, producer, consumer := setup(t, rec)

	id, err := producer.Enqueue(ctx, Task{Type: TaskContactNotify, Ref: "m1", Data: map[string]string{"email": "a@b.c"}})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	acked, err := consumer.read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, acked)
	require.Len(t, rec.tasks, 1)
	assert.Equal(t, Task{Type: TaskContactNotify, Ref: "m1", Data: map[string]string{"email": "a@b.c"}}, rec.tasks[0])
}

func TestEnsureGroupIsIdempotent(t *testing.T) {
	_, _, _, consumer := setup(t, &recorder{})
	assert.NoError(t, consumer.EnsureGroup(context.Background()))
}

func TestEnqueueRequiresType(t *testing.T) {
	_, _, producer, _ := setup(t, &recorder{})
	_, err := producer.Enqueue(context.Background(), Task{Ref: "x"})
	assert.ErrorIs(t, err, ErrMissingType)
}

func TestFailedTaskStaysPendingUntilClaimed(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{fail: true}
	_, client, producer, consumer := setup(t, rec)

	_, err := producer.Enqueue(ctx, Task{Type: TaskUploadIngest, Ref: "u1"})
	require.NoError(t, err)

	acked, err := consumer.read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, acked)

	pending, err := client.XPending(ctx, "test:tasks", "workers").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending.Count)

	rec.mu.Lock()
	rec.fail = false
	rec.mu.Unlock()
	time.Sleep(20 * time.Millisecond)

	claimed, err := consumer.claimStalled(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, claimed)
	assert.Len(t, rec.tasks, 2)
}

func TestTaskIsDroppedAfterMaxDeliveries(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{fail: true}
	_, client, producer, _ := setup(t, rec)

	var logs bytes.Buffer
	consumer := NewConsumer(client, ConsumerConfig{
		Stream:        "test:tasks",
		Group:         "workers",
		Name:          "w1",
		ClaimInterval: time.Millisecond,
		Block:         10 * time.Millisecond,
		MaxDeliveries: 2,
	}, zerolog.New(&logs), rec)

	_, err := producer.Enqueue(ctx, Task{Type: TaskUploadIngest, Ref: "u1"})
	require.NoError(t, err)

	acked, err := consumer.read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, acked)

	time.Sleep(20 * time.Millisecond)
	claimed, err := consumer.claimStalled(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, claimed)

	time.Sleep(20 * time.Millisecond)
	claimed, err = consumer.claimStalled(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, claimed)

	assert.Len(t, rec.tasks, 2)
	pending, err := client.XPending(ctx, "test:tasks", "workers").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
	assert.Contains(t, logs.String(), `"message":"giving up on task"`)
	assert.Contains(t, logs.String(), `"ref":"u1"`)
}

func TestMalformedEntryIsAcked(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	_, client, _, consumer := setup(t, rec)

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: "test:tasks",
		Values: map[string]any{"ref": "orphan"},
	}).Err())

	acked, err := consumer.read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, acked)
	assert.Empty(t, rec.tasks)
}

func TestDecodeTask(t *testing.T) {
	task, err := DecodeTask(map[string]any{"type": "x", "count": 3})
	require.NoError(t, err)
	assert.Equal(t, "x", task.Type)
	assert.Equal(t, "3", task.Data["count"])

	_, err = DecodeTask(map[string]any{"ref": "y"})
	assert.ErrorIs(t, err, ErrMissingType)
}
