package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultBlockTimeout = 5 * time.Second
	defaultBatchSize    = 1
	defaultClaimMinIdle = 5 * time.Minute
	maxPendingCheck     = 100
)

// ConsumedTask is one delivery of a task, carrying the message ID needed to
// acknowledge it.
type ConsumedTask struct {
	MessageID  string
	Task       *SearchTask
	EnqueuedAt time.Time
}

// Consumer reads search tasks from the stream on behalf of one named worker.
type Consumer struct {
	client       *Client
	group        string
	consumerID   string
	blockTimeout time.Duration
	batchSize    int64
	claimMinIdle time.Duration
}

// ConsumerConfig tunes a Consumer. Zero values take defaults.
type ConsumerConfig struct {
	Group        string
	ConsumerID   string
	BlockTimeout time.Duration
	BatchSize    int64
	ClaimMinIdle time.Duration
}

// NewConsumer creates a Consumer and ensures the consumer group exists.
func NewConsumer(ctx context.Context, client *Client, cfg ConsumerConfig) (*Consumer, error) {
	if cfg.ConsumerID == "" {
		return nil, errors.New("consumer ID is required")
	}
	if cfg.Group == "" {
		return nil, errors.New("consumer group is required")
	}

	blockTimeout := cfg.BlockTimeout
	if blockTimeout <= 0 {
		blockTimeout = defaultBlockTimeout
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	claimMinIdle := cfg.ClaimMinIdle
	if claimMinIdle <= 0 {
		claimMinIdle = defaultClaimMinIdle
	}

	if err := client.EnsureGroup(ctx, cfg.Group); err != nil {
		return nil, err
	}

	return &Consumer{
		client:       client,
		group:        cfg.Group,
		consumerID:   cfg.ConsumerID,
		blockTimeout: blockTimeout,
		batchSize:    batchSize,
		claimMinIdle: claimMinIdle,
	}, nil
}

// Read returns the next batch of tasks, preferring stalled deliveries left
// behind by a dead worker over new messages.
func (c *Consumer) Read(ctx context.Context) ([]*ConsumedTask, error) {
	if reclaimed := c.reclaimStalled(ctx); len(reclaimed) > 0 {
		return reclaimed, nil
	}

	streams, err := c.client.xReadGroup(ctx, c.group, c.consumerID, c.batchSize, c.blockTimeout)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read stream: %w", err)
	}

	var tasks []*ConsumedTask
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			task, parseErr := parseTask(msg)
			if parseErr != nil {
				// A malformed message can never succeed; drop it.
				_ = c.client.xAck(ctx, c.group, msg.ID)
				continue
			}
			tasks = append(tasks, task)
		}
	}

	return tasks, nil
}

// Ack acknowledges a processed task.
func (c *Consumer) Ack(ctx context.Context, task *ConsumedTask) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}
	return c.client.xAck(ctx, c.group, task.MessageID)
}

// reclaimStalled claims deliveries idle past the threshold. Each claim bumps
// the delivery count Redis tracks, so retries are bounded by the caller.
func (c *Consumer) reclaimStalled(ctx context.Context) []*ConsumedTask {
	pending, err := c.client.xPendingExt(ctx, c.group, maxPendingCheck)
	if err != nil {
		return nil
	}

	var stale []string
	for _, entry := range pending {
		if entry.Idle >= c.claimMinIdle {
			stale = append(stale, entry.ID)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	claimed, err := c.client.xClaim(ctx, c.group, c.consumerID, c.claimMinIdle, stale...)
	if err != nil {
		return nil
	}

	var tasks []*ConsumedTask
	for _, msg := range claimed {
		task, parseErr := parseTask(msg)
		if parseErr != nil {
			_ = c.client.xAck(ctx, c.group, msg.ID)
			continue
		}
		tasks = append(tasks, task)
	}

	return tasks
}

func parseTask(msg redis.XMessage) (*ConsumedTask, error) {
	raw, ok := msg.Values[taskField].(string)
	if !ok {
		return nil, errors.New("missing task payload")
	}

	var task SearchTask
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}

	consumed := &ConsumedTask{MessageID: msg.ID, Task: &task}

	if raw, ok := msg.Values[enqueuedAtField].(string); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			consumed.EnqueuedAt = t
		}
	}

	return consumed, nil
}
