package store

import (
	"context"

	"github.com/genbridge/genbridge/internal/domain"
)

// TaskStore defines the interface for persisting tasks.
// The engine mutates a task only through the claim/mark operations,
// which refuse to touch terminal rows.
type TaskStore interface {
	// CreateTask persists a new queued task and assigns its ID.
	CreateTask(ctx context.Context, task *domain.Task) error

	// GetTask retrieves a task by ID, or ErrTaskNotFound.
	GetTask(ctx context.Context, id int64) (*domain.Task, error)

	// NextQueued returns the oldest queued task (ascending ID order),
	// or ErrTaskNotFound when the queue is empty.
	NextQueued(ctx context.Context) (*domain.Task, error)

	// ClaimTask atomically moves a queued task to processing, clearing
	// any prior error message. Returns false when the task was not in
	// the queued state (already claimed or terminal).
	ClaimTask(ctx context.Context, id int64) (bool, error)

	// MarkSuccess moves a processing task to success with the produced
	// output. Terminal rows are left untouched.
	MarkSuccess(ctx context.Context, id int64, resultFileKey, resultText string) error

	// MarkFailed moves a processing task to failed with the given error
	// message. Terminal rows are left untouched.
	MarkFailed(ctx context.Context, id int64, errorMessage string) error
}
