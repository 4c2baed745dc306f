package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Handler interface {
	Handle(ctx context.Context, task Task) error
}

type ConsumerConfig struct {
	Stream        string
	Group         string
	Name          string
	ClaimInterval time.Duration
	Block         time.Duration
	BatchSize     int64
	// MaxDeliveries caps how often one entry is handed to the handler.
	MaxDeliveries int64
}

type Consumer struct {
	client  *redis.Client
	cfg     ConsumerConfig
	logger  zerolog.Logger
	handler Handler
}

func NewConsumer(client *redis.Client, cfg ConsumerConfig, logger zerolog.Logger, handler Handler) *Consumer {
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = time.Minute
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 5
	}
	return &Consumer{
		client:  client,
		cfg:     cfg,
		logger:  logger.With().Str("stream", cfg.Stream).Str("consumer", cfg.Name).Logger(),
		handler: handler,
	}
}

// EnsureGroup creates the consumer group (and the stream) if missing.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s: %w", c.cfg.Group, err)
	}
	return nil
}

func (c *Consumer) Start(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(c.cfg.ClaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if _, err := c.read(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error().Err(err).Msg("stream read error")
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(2 * time.Second):
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := c.claimStalled(ctx); err != nil {
				c.logger.Error().Err(err).Msg("claim stalled messages failed")
			}
		default:
		}
	}
}

// read handles one batch of new entries and returns how many were acked.
func (c *Consumer) read(ctx context.Context) (int, error) {
	result, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Name,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.Block,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}

	acked := 0
	for _, stream := range result {
		for _, msg := range stream.Messages {
			if c.process(ctx, msg) {
				acked++
			}
		}
	}
	return acked, nil
}

// claimStalled takes over entries left pending for longer than the claim
// interval. Entries delivered more than MaxDeliveries times are acked without
// running the handler again.
func (c *Consumer) claimStalled(ctx context.Context) (int, error) {
	msgs, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Name,
		MinIdle:  c.cfg.ClaimInterval,
		Start:    "0-0",
		Count:    c.cfg.BatchSize,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}

	acked := 0
	for _, msg := range msgs {
		if c.exhausted(ctx, msg) {
			if c.ack(ctx, msg.ID, c.logger) {
				acked++
			}
			continue
		}
		if c.process(ctx, msg) {
			acked++
		}
	}
	return acked, nil
}

func (c *Consumer) exhausted(ctx context.Context, msg redis.XMessage) bool {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.cfg.Stream,
		Group:  c.cfg.Group,
		Start:  msg.ID,
		End:    msg.ID,
		Count:  1,
	}).Result()
	if err != nil {
		c.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("read delivery count failed")
		return false
	}
	if len(pending) == 0 || pending[0].RetryCount <= c.cfg.MaxDeliveries {
		return false
	}

	event := c.logger.Error().Str("message_id", msg.ID).Int64("deliveries", pending[0].RetryCount)
	if task, err := DecodeTask(msg.Values); err == nil {
		event = event.Str("type", task.Type).Str("ref", task.Ref)
	}
	event.Msg("giving up on task")
	return true
}

// process acks undecodable entries so they are not redelivered forever. A
// handler error leaves the entry pending for a later claim.
func (c *Consumer) process(ctx context.Context, msg redis.XMessage) bool {
	log := c.logger.With().Str("message_id", msg.ID).Logger()

	task, err := DecodeTask(msg.Values)
	if err != nil {
		log.Warn().Err(err).Msg("dropping malformed task")
		return c.ack(ctx, msg.ID, log)
	}
	if err := c.handler.Handle(ctx, task); err != nil {
		log.Error().Err(err).Str("type", task.Type).Msg("handle task failed")
		return false
	}
	return c.ack(ctx, msg.ID, log)
}

func (c *Consumer) ack(ctx context.Context, id string, log zerolog.Logger) bool {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		log.Error().Err(err).Msg("ack failed")
		return false
	}
	return true
}
