// Package dispatch hands accepted search jobs to the pipeline. The queued
// dispatcher pushes tasks through Redis and retries whole jobs with backoff;
// when the broker is unavailable the inline dispatcher runs jobs in-process
// with no retry, trading durability for availability.
package dispatch

import (
	"context"
	"time"

	"github.com/jonesrussell/jobscout/internal/domain"
	"github.com/jonesrussell/jobscout/internal/queue"
)

// Runner executes one search job end to end.
type Runner interface {
	Execute(ctx context.Context, jobID string, req *domain.SearchRequest) error
}

// Dispatcher accepts a task for asynchronous execution.
type Dispatcher interface {
	Dispatch(ctx context.Context, task *queue.SearchTask) error
}

// RetryPolicy bounds whole-job retries with exponential backoff.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
}

// Delay returns how long to wait before the given attempt (1-based).
// The first attempt has no delay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delay := float64(p.InitialDelay)
	for i := 2; i < attempt; i++ {
		delay *= p.Multiplier
	}
	return time.Duration(delay)
}

// Exhausted reports whether the given attempt is past the retry budget.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}
