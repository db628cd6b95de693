// Package queue is the Redis Streams backed job queue for the conversion
// daemon.
package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const cancelKey = "stackedpdf:cancelled:set"

// RedisQueue holds conversion jobs in a single stream consumed through a
// consumer group.
type RedisQueue struct {
	client *redis.Client
	Stream string
	Group  string
}

// New connects to Redis and ensures the stream and consumer group exist.
func New(redisURL, stream, group string) (*RedisQueue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	// MKSTREAM creates the stream alongside the group if it is missing
	if err := c.XGroupCreateMkStream(ctx, stream, group, "$").Err(); err != nil && !isBusyGroupErr(err) {
		return nil, fmt.Errorf("xgroup create: %w", err)
	}

	return &RedisQueue{client: c, Stream: stream, Group: group}, nil
}

// isBusyGroupErr matches the BUSYGROUP reply Redis sends when the consumer
// group already exists, which is the normal case on restart.
func isBusyGroupErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToUpper(err.Error()), "BUSYGROUP")
}

func (q *RedisQueue) Close() error { return q.client.Close() }

// Ping checks Redis connectivity.
func (q *RedisQueue) Ping(ctx context.Context) error { return q.client.Ping(ctx).Err() }

// Enqueue adds a job to the stream as a single-field entry {data: <json>}.
func (q *RedisQueue) Enqueue(ctx context.Context, payload []byte) error {
	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.Stream,
		Values: map[string]any{"data": string(payload)},
	}).Err()
}

// Dequeue reads one message from the consumer group, blocking up to timeout,
// and ACKs it immediately. A conversion is not worth redelivering to another
// consumer if a worker dies mid-job; the job status shows what happened.
// Returns empty values when the timeout passes without a message.
func (q *RedisQueue) Dequeue(ctx context.Context, consumer string, timeout time.Duration) (string, []byte, error) {
	res, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.Group,
		Consumer: consumer,
		Streams:  []string{q.Stream, ">"},
		Count:    1,
		Block:    timeout,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil, nil
		}
		return "", nil, err
	}
	if len(res) == 0 || len(res[0].Messages) == 0 {
		return "", nil, nil
	}

	msg := res[0].Messages[0]
	if err := q.client.XAck(ctx, q.Stream, q.Group, msg.ID).Err(); err != nil {
		return "", nil, err
	}
	if v, ok := msg.Values["data"]; ok {
		switch t := v.(type) {
		case string:
			return msg.ID, []byte(t), nil
		case []byte:
			return msg.ID, t, nil
		}
	}
	return msg.ID, nil, nil
}

// Cancel marks a job as cancelled. Workers check this before starting work;
// a job that is already converting runs to completion.
func (q *RedisQueue) Cancel(ctx context.Context, jobID string) error {
	return q.client.SAdd(ctx, cancelKey, jobID).Err()
}

// IsCancelled reports whether jobID has been cancelled.
func (q *RedisQueue) IsCancelled(ctx context.Context, jobID string) (bool, error) {
	return q.client.SIsMember(ctx, cancelKey, jobID).Result()
}

// Depth returns the approximate number of entries in the stream.
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.XLen(ctx, q.Stream).Result()
}
