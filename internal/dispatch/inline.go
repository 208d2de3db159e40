package dispatch

import (
	"context"

	"github.com/jonesrussell/jobscout/internal/logger"
	"github.com/jonesrussell/jobscout/internal/queue"
)

// InlineDispatcher runs each job in its own goroutine. No retry, no
// durability: a process restart loses in-flight jobs, which then sit in the
// stored "running" state until inspected.
type InlineDispatcher struct {
	runner Runner
	logger logger.Logger
}

// NewInlineDispatcher creates an InlineDispatcher.
func NewInlineDispatcher(runner Runner, log logger.Logger) *InlineDispatcher {
	return &InlineDispatcher{runner: runner, logger: log}
}

// Dispatch starts the job immediately. The job runs detached from the
// caller's context so an HTTP request ending does not cancel it.
func (d *InlineDispatcher) Dispatch(_ context.Context, task *queue.SearchTask) error {
	go func() {
		ctx := context.Background()
		if err := d.runner.Execute(ctx, task.JobID, task.Request); err != nil {
			d.logger.Error("inline job execution failed",
				logger.String("job_id", task.JobID), logger.Error(err))
		}
	}()

	d.logger.Info("job dispatched inline", logger.String("job_id", task.JobID))
	return nil
}
