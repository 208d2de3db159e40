package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/jobscout/internal/logger"
	"github.com/jonesrussell/jobscout/internal/queue"
)

// QueuedDispatcher pushes tasks through the Redis stream and runs a worker
// loop that executes them, retrying failed jobs up to the policy's budget.
type QueuedDispatcher struct {
	producer *queue.Producer
	consumer *queue.Consumer
	runner   Runner
	policy   RetryPolicy
	logger   logger.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewQueuedDispatcher creates a QueuedDispatcher.
func NewQueuedDispatcher(
	producer *queue.Producer,
	consumer *queue.Consumer,
	runner Runner,
	policy RetryPolicy,
	log logger.Logger,
) *QueuedDispatcher {
	return &QueuedDispatcher{
		producer: producer,
		consumer: consumer,
		runner:   runner,
		policy:   policy,
		logger:   log,
		sleep:    ctxSleep,
	}
}

// Dispatch enqueues the task for the worker loop.
func (d *QueuedDispatcher) Dispatch(ctx context.Context, task *queue.SearchTask) error {
	if task.Attempt == 0 {
		task.Attempt = 1
	}

	id, err := d.producer.Enqueue(ctx, task)
	if err != nil {
		return fmt.Errorf("dispatch job %s: %w", task.JobID, err)
	}

	d.logger.Info("job enqueued",
		logger.String("job_id", task.JobID),
		logger.String("message_id", id),
		logger.Int("attempt", task.Attempt),
	)
	return nil
}

// Run consumes and executes tasks until the context is cancelled.
func (d *QueuedDispatcher) Run(ctx context.Context) {
	d.logger.Info("search worker started")

	for {
		if ctx.Err() != nil {
			d.logger.Info("search worker stopped")
			return
		}

		tasks, err := d.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			d.logger.Error("read tasks failed", logger.Error(err))
			if d.sleep(ctx, time.Second) != nil {
				continue
			}
			continue
		}

		for _, task := range tasks {
			d.handle(ctx, task)
		}
	}
}

// handle runs one delivery and settles it: ack on success, re-enqueue with
// backoff while the retry budget lasts, ack-and-drop once it is spent.
func (d *QueuedDispatcher) handle(ctx context.Context, consumed *queue.ConsumedTask) {
	task := consumed.Task

	if delay := d.policy.Delay(task.Attempt); delay > 0 {
		if err := d.sleep(ctx, delay); err != nil {
			return
		}
	}

	err := d.runner.Execute(ctx, task.JobID, task.Request)
	if err == nil {
		if ackErr := d.consumer.Ack(ctx, consumed); ackErr != nil {
			d.logger.Warn("ack failed", logger.String("job_id", task.JobID), logger.Error(ackErr))
		}
		return
	}

	if d.policy.Exhausted(task.Attempt) {
		d.logger.Error("job failed permanently",
			logger.String("job_id", task.JobID),
			logger.Int("attempts", task.Attempt),
			logger.Error(err),
		)
		if ackErr := d.consumer.Ack(ctx, consumed); ackErr != nil {
			d.logger.Warn("ack failed", logger.String("job_id", task.JobID), logger.Error(ackErr))
		}
		return
	}

	retry := *task
	retry.Attempt++
	if _, enqErr := d.producer.Enqueue(ctx, &retry); enqErr != nil {
		// Leave the delivery pending; the reclaim path will retry it.
		d.logger.Error("re-enqueue failed",
			logger.String("job_id", task.JobID), logger.Error(enqErr))
		return
	}

	d.logger.Warn("job failed, retrying",
		logger.String("job_id", task.JobID),
		logger.Int("next_attempt", retry.Attempt),
		logger.Error(err),
	)

	if ackErr := d.consumer.Ack(ctx, consumed); ackErr != nil {
		d.logger.Warn("ack failed", logger.String("job_id", task.JobID), logger.Error(ackErr))
	}
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
