package domain

import (
	"errors"
	"time"
)

// TaskStatus represents the processing state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusSuccess    TaskStatus = "success"
	TaskStatusFailed     TaskStatus = "failed"
)

// Common validation errors for Task
var (
	ErrEmptyTaskUserID    = errors.New("task user ID cannot be empty")
	ErrEmptyTaskPreset    = errors.New("task preset slug cannot be empty")
	ErrInvalidTaskStatus  = errors.New("invalid task status")
	ErrInvalidTransition  = errors.New("invalid task status transition")
)

// Task represents one user-submitted generation request tracked
// through its lifecycle. It carries the free-text input (optionally
// with side-channel metadata appended), an optional reference to an
// externally stored input file, and the produced output.
type Task struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	PresetSlug    string     `json:"preset_slug"`
	Status        TaskStatus `json:"status"`
	InputText     string     `json:"input_text"`
	InputFileRef  string     `json:"input_file_ref"`
	ResultFileKey string     `json:"result_file_key"`
	ResultText    string     `json:"result_text"`
	ErrorMessage  string     `json:"error_message"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewTask creates a new queued Task for the given user and preset.
// Returns an error if validation fails.
func NewTask(userID int64, presetSlug, inputText, inputFileRef string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		UserID:       userID,
		PresetSlug:   presetSlug,
		Status:       TaskStatusQueued,
		InputText:    inputText,
		InputFileRef: inputFileRef,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.UserID == 0 {
		return ErrEmptyTaskUserID
	}

	if t.PresetSlug == "" {
		return ErrEmptyTaskPreset
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	return nil
}

// IsTerminal reports whether the status permits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal
// status transition. Transitions are strictly
// queued -> processing -> {success|failed}.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusQueued:
		return next == TaskStatusProcessing
	case TaskStatusProcessing:
		return next == TaskStatusSuccess || next == TaskStatusFailed
	default:
		return false
	}
}

// UpdateStatus moves the task to the given status and refreshes the
// UpdatedAt timestamp. Returns an error if the transition is not legal.
func (t *Task) UpdateStatus(status TaskStatus) error {
	if !isValidTaskStatus(status) {
		return ErrInvalidTaskStatus
	}

	if !t.Status.CanTransitionTo(status) {
		return ErrInvalidTransition
	}

	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusQueued, TaskStatusProcessing, TaskStatusSuccess, TaskStatusFailed:
		return true
	default:
		return false
	}
}
