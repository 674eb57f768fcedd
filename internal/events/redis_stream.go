package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const bodyField = "body"

// RedisStream carries creation events over a Redis stream consumed by a consumer group.
// Entries are acknowledged only after processing, giving at-least-once delivery.
type RedisStream struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	block    time.Duration

	pendingDrained bool
}

// RedisStreamConfig names the stream and consumer identity.
type RedisStreamConfig struct {
	Stream   string
	Group    string
	Consumer string
	Block    time.Duration
}

// NewRedisStream builds a stream transport on client.
func NewRedisStream(client *redis.Client, cfg RedisStreamConfig) *RedisStream {
	return &RedisStream{
		client:   client,
		stream:   cfg.Stream,
		group:    cfg.Group,
		consumer: cfg.Consumer,
		block:    cfg.Block,
	}
}

// Publish appends the event to the stream.
func (s *RedisStream) Publish(ctx context.Context, event TicketCreated) error {
	body, err := event.Encode()
	if err != nil {
		return err
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{bodyField: string(body)},
	}).Err()
}

// EnsureGroup creates the consumer group (and the stream) if missing.
func (s *RedisStream) EnsureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Receive returns entries left pending for this consumer first, then waits for new ones.
func (s *RedisStream) Receive(ctx context.Context, max int) ([]Message, error) {
	if max <= 0 {
		max = 1
	}
	if !s.pendingDrained {
		msgs, err := s.read(ctx, "0", max, -1)
		if err != nil {
			return nil, err
		}
		if len(msgs) > 0 {
			return msgs, nil
		}
		s.pendingDrained = true
	}
	return s.read(ctx, ">", max, s.block)
}

func (s *RedisStream) read(ctx context.Context, id string, max int, block time.Duration) ([]Message, error) {
	res, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, id},
		Count:    int64(max),
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var msgs []Message
	for _, stream := range res {
		for _, entry := range stream.Messages {
			body, _ := entry.Values[bodyField].(string)
			msgs = append(msgs, Message{ID: entry.ID, Body: []byte(body)})
		}
	}
	return msgs, nil
}

// Ack acknowledges processed entries.
func (s *RedisStream) Ack(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.client.XAck(ctx, s.stream, s.group, ids...).Err()
}
