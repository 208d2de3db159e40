// Package queue moves search tasks through a Redis Stream with a consumer
// group, so a crashed worker's unacknowledged tasks can be reclaimed.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 2 * time.Second

// Client wraps a Redis connection with the stream operations the producer
// and consumer need.
type Client struct {
	rdb    *redis.Client
	stream string
}

// Connect opens a Redis connection and verifies it with a ping.
func Connect(addr, password string, db int, stream string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Client{rdb: rdb, stream: stream}, nil
}

// NewClientFromRedis wraps an existing Redis client.
func NewClientFromRedis(rdb *redis.Client, stream string) *Client {
	return &Client{rdb: rdb, stream: stream}
}

// Stream returns the stream key tasks flow through.
func (c *Client) Stream() string {
	return c.stream
}

// Ping checks broker reachability.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// EnsureGroup creates the consumer group, tolerating one that already exists.
func (c *Client) EnsureGroup(ctx context.Context, group string) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.stream, group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

func (c *Client) xAdd(ctx context.Context, values map[string]any) (string, error) {
	return c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream,
		Values: values,
	}).Result()
}

func (c *Client) xReadGroup(ctx context.Context, group, consumer string, count int64, block time.Duration) ([]redis.XStream, error) {
	return c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{c.stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
}

func (c *Client) xAck(ctx context.Context, group string, ids ...string) error {
	return c.rdb.XAck(ctx, c.stream, group, ids...).Err()
}

func (c *Client) xPendingExt(ctx context.Context, group string, count int64) ([]redis.XPendingExt, error) {
	return c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
}

func (c *Client) xClaim(ctx context.Context, group, consumer string, minIdle time.Duration, ids ...string) ([]redis.XMessage, error) {
	return c.rdb.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
}

// Depth returns the current stream length.
func (c *Client) Depth(ctx context.Context) (int64, error) {
	return c.rdb.XLen(ctx, c.stream).Result()
}
