package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisQueue keeps messages in a redis list so they survive restarts.
// Producers LPUSH and consumers BRPOP, giving FIFO order.
type RedisQueue struct {
	client *redis.Client
	key    string
	poll   time.Duration
	closed atomic.Bool
}

// NewRedisQueue connects and pings redis. Callers fall back to a memory queue on error.
func NewRedisQueue(ctx context.Context, addr, password string, db int, key string) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis unavailable at %s: %w", addr, err)
	}

	return &RedisQueue{client: client, key: key, poll: time.Second}, nil
}

// Enqueue pushes msg onto the list
func (q *RedisQueue) Enqueue(ctx context.Context, msg Message) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	data, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue email: %w", err)
	}
	return nil
}

// Dequeue pops the oldest message, polling so Close and ctx are observed
func (q *RedisQueue) Dequeue(ctx context.Context) (Message, error) {
	for {
		if q.closed.Load() {
			return Message{}, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}

		res, err := q.client.BRPop(ctx, q.poll, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Message{}, ctx.Err()
			}
			return Message{}, fmt.Errorf("failed to dequeue email: %w", err)
		}

		// BRPOP returns [key, value]
		return decodeMessage(res[1])
	}
}

// Len returns the number of waiting messages
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Close releases the redis client
func (q *RedisQueue) Close() error {
	if q.closed.Swap(true) {
		return nil
	}
	return q.client.Close()
}

func encodeMessage(msg Message) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to encode email: %w", err)
	}
	return string(data), nil
}

func decodeMessage(s string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(s), &msg); err != nil {
		return Message{}, fmt.Errorf("failed to decode email: %w", err)
	}
	return msg, nil
}
