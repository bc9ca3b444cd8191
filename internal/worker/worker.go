package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/genbridge/genbridge/internal/domain"
	"github.com/genbridge/genbridge/internal/platform/logger"
	"github.com/genbridge/genbridge/internal/store"
)

// Worker is the serial task loop: it scans for the oldest queued task,
// runs it through the executor, and records the outcome. Tasks are
// processed one at a time in ID order.
type Worker struct {
	tasks    store.TaskStore
	exec     *Executor
	interval time.Duration
	logger   *slog.Logger
	metrics  *Metrics
}

// NewWorker creates a worker loop. interval is how long the loop sleeps
// when the queue is empty.
func NewWorker(
	tasks store.TaskStore,
	exec *Executor,
	interval time.Duration,
	log *slog.Logger,
	metrics *Metrics,
) *Worker {
	return &Worker{
		tasks:    tasks,
		exec:     exec,
		interval: interval,
		logger:   log.With("component", "worker"),
		metrics:  metrics,
	}
}

// Run drives the loop until the context is canceled. Individual task
// failures, queue scan errors and executor panics are recorded and the
// loop keeps going; only cancellation stops it.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker loop started", "poll_interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker loop stopping")
			return ctx.Err()
		default:
		}

		task, err := w.tasks.NextQueued(ctx)
		switch {
		case err == nil:
			w.process(ctx, task)
			// Drain the queue before sleeping again.
			continue
		case errors.Is(err, store.ErrTaskNotFound):
			w.metrics.IdlePolls.Inc()
		case errors.Is(err, context.Canceled):
			return err
		default:
			w.logger.Error("failed to scan task queue", "error", err)
		}

		select {
		case <-ctx.Done():
			w.logger.Info("worker loop stopping")
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

// process runs one task and converts its outcome into a task state
// update plus metrics.
func (w *Worker) process(ctx context.Context, task *domain.Task) {
	start := time.Now()
	log := w.logger.With("task_id", task.ID, "preset", task.PresetSlug)
	ctx = logger.WithLogger(ctx, log)

	log.Info("processing task")

	err := w.executeSafely(ctx, task)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		log.Info("task succeeded", "duration_ms", elapsed.Milliseconds())
		w.metrics.Observe(task.PresetSlug, "success", elapsed)
	case errors.Is(err, errNotClaimed):
		log.Info("task was not queued anymore, skipping")
	default:
		log.Error("task failed", "error", err, "duration_ms", elapsed.Milliseconds())
		w.metrics.Observe(task.PresetSlug, "failed", elapsed)
		w.fail(ctx, task.ID, err)
	}
}

// executeSafely shields the loop from a panicking executor.
func (w *Worker) executeSafely(ctx context.Context, task *domain.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	return w.exec.Execute(ctx, task)
}

// fail records a task failure. The update is refused when the row is
// already terminal or never left queued, which is logged but not fatal.
func (w *Worker) fail(ctx context.Context, taskID int64, cause error) {
	if err := w.tasks.MarkFailed(ctx, taskID, cause.Error()); err != nil {
		w.logger.Warn("could not record task failure",
			"task_id", taskID,
			"error", err)
	}
}
