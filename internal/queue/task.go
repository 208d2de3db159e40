package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonesrussell/jobscout/internal/domain"
)

// Stream message field names.
const (
	taskField       = "task"
	enqueuedAtField = "enqueued_at"
)

// SearchTask is the unit of work carried on the stream: which job to run and
// the request that created it. Attempt counts deliveries for the retry policy.
type SearchTask struct {
	JobID   string                `json:"job_id"`
	Request *domain.SearchRequest `json:"request"`
	Attempt int                   `json:"attempt"`
}

// Producer enqueues search tasks.
type Producer struct {
	client *Client
}

// NewProducer creates a Producer.
func NewProducer(client *Client) *Producer {
	return &Producer{client: client}
}

// Enqueue appends a task to the stream and returns its message ID.
func (p *Producer) Enqueue(ctx context.Context, task *SearchTask) (string, error) {
	data, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("serialize task: %w", err)
	}

	id, err := p.client.xAdd(ctx, map[string]any{
		taskField:       string(data),
		enqueuedAtField: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("enqueue task: %w", err)
	}

	return id, nil
}
