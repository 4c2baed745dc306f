package queue

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const defaultMaxLen = 10000

type Producer struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewProducer(client *redis.Client, stream string) *Producer {
	return &Producer{client: client, stream: stream, maxLen: defaultMaxLen}
}

// Enqueue appends the task to the stream and returns the entry id. The stream
// is trimmed approximately so an idle worker cannot grow it without bound.
func (p *Producer) Enqueue(ctx context.Context, task Task) (string, error) {
	if task.Type == "" {
		return "", ErrMissingType
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: task.values(),
	}).Result()
}
