package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/genbridge/genbridge/internal/domain"
	"github.com/genbridge/genbridge/internal/platform/logger"
	"github.com/genbridge/genbridge/internal/store"
)

// TaskStore implements store.TaskStore using PostgreSQL.
type TaskStore struct {
	db store.DBTX
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db store.DBTX) *TaskStore {
	return &TaskStore{db: db}
}

const taskColumns = `id, user_id, preset_slug, status, input_text, input_file_ref,
	result_file_key, result_text, error_message, created_at, updated_at`

// CreateTask persists a new queued task and assigns its ID.
func (s *TaskStore) CreateTask(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (user_id, preset_slug, status, input_text, input_file_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now().UTC()

	err := s.db.QueryRowContext(ctx, query,
		task.UserID,
		task.PresetSlug,
		task.Status,
		task.InputText,
		task.InputFileRef,
		now,
		now,
	).Scan(&task.ID)

	if err != nil {
		log.Error("failed to create task",
			"user_id", task.UserID,
			"preset", task.PresetSlug,
			"error", err)
		return fmt.Errorf("failed to create task: %w", err)
	}

	task.CreatedAt = now
	task.UpdatedAt = now

	return nil
}

// GetTask retrieves a task by ID.
func (s *TaskStore) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task %d: %w", id, err)
	}

	return task, nil
}

// NextQueued returns the oldest queued task in ascending ID order.
func (s *TaskStore) NextQueued(ctx context.Context) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = $1
		ORDER BY id ASC
		LIMIT 1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, domain.TaskStatusQueued))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get next queued task: %w", err)
	}

	return task, nil
}

// ClaimTask atomically moves a queued task to processing, clearing any
// prior error message. The status condition makes the claim safe even
// if a second worker were ever pointed at the same database.
func (s *TaskStore) ClaimTask(ctx context.Context, id int64) (bool, error) {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET status = $1, error_message = '', updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.TaskStatusProcessing,
		time.Now().UTC(),
		id,
		domain.TaskStatusQueued,
	)
	if err != nil {
		log.Error("failed to claim task", "task_id", id, "error", err)
		return false, fmt.Errorf("failed to claim task %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// MarkSuccess moves a processing task to success with its output.
func (s *TaskStore) MarkSuccess(ctx context.Context, id int64, resultFileKey, resultText string) error {
	query := `
		UPDATE tasks
		SET status = $1, result_file_key = $2, result_text = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`

	return s.finalize(ctx, id, query,
		domain.TaskStatusSuccess,
		resultFileKey,
		resultText,
		time.Now().UTC(),
		id,
		domain.TaskStatusProcessing,
	)
}

// MarkFailed moves a processing task to failed with the error message.
func (s *TaskStore) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	return s.finalize(ctx, id, query,
		domain.TaskStatusFailed,
		errorMessage,
		time.Now().UTC(),
		id,
		domain.TaskStatusProcessing,
	)
}

// finalize runs a terminal status update. The processing-status guard
// in the query enforces that a terminal state is never revisited; a
// zero row count is surfaced as ErrUpdateFailed.
func (s *TaskStore) finalize(ctx context.Context, id int64, query string, args ...any) error {
	log := logger.FromContext(ctx)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to finalize task", "task_id", id, "error", err)
		return fmt.Errorf("failed to finalize task %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		log.Warn("task not in processing state, refusing terminal update", "task_id", id)
		return fmt.Errorf("%w: task %d is not processing", store.ErrUpdateFailed, id)
	}

	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one task row.
func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var inputText, inputFileRef, resultFileKey, resultText, errorMessage sql.NullString

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.PresetSlug,
		&task.Status,
		&inputText,
		&inputFileRef,
		&resultFileKey,
		&resultText,
		&errorMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.InputText = inputText.String
	task.InputFileRef = inputFileRef.String
	task.ResultFileKey = resultFileKey.String
	task.ResultText = resultText.String
	task.ErrorMessage = errorMessage.String

	return &task, nil
}
