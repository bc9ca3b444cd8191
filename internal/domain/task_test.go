package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	task, err := NewTask(42, "seedvr", "upscale this", "file-ref-1")
	require.NoError(t, err)

	assert.Equal(t, int64(42), task.UserID)
	assert.Equal(t, "seedvr", task.PresetSlug)
	assert.Equal(t, TaskStatusQueued, task.Status)
	assert.False(t, task.CreatedAt.IsZero())
}

func TestNewTaskValidation(t *testing.T) {
	_, err := NewTask(0, "seedvr", "", "")
	assert.ErrorIs(t, err, ErrEmptyTaskUserID)

	_, err = NewTask(42, "", "", "")
	assert.ErrorIs(t, err, ErrEmptyTaskPreset)
}

func TestStatusTransitions(t *testing.T) {
	// The observed status sequence must be a prefix of
	// queued, processing, success|failed.
	assert.True(t, TaskStatusQueued.CanTransitionTo(TaskStatusProcessing))
	assert.True(t, TaskStatusProcessing.CanTransitionTo(TaskStatusSuccess))
	assert.True(t, TaskStatusProcessing.CanTransitionTo(TaskStatusFailed))

	assert.False(t, TaskStatusQueued.CanTransitionTo(TaskStatusSuccess))
	assert.False(t, TaskStatusQueued.CanTransitionTo(TaskStatusFailed))
	assert.False(t, TaskStatusProcessing.CanTransitionTo(TaskStatusQueued))
}

func TestTerminalStatusIsNeverLeft(t *testing.T) {
	all := []TaskStatus{TaskStatusQueued, TaskStatusProcessing, TaskStatusSuccess, TaskStatusFailed}

	for _, terminal := range []TaskStatus{TaskStatusSuccess, TaskStatusFailed} {
		assert.True(t, terminal.IsTerminal())
		for _, next := range all {
			assert.False(t, terminal.CanTransitionTo(next),
				"terminal status %s must not transition to %s", terminal, next)
		}
	}
}

func TestUpdateStatus(t *testing.T) {
	task, err := NewTask(1, "chat", "hello", "")
	require.NoError(t, err)

	require.NoError(t, task.UpdateStatus(TaskStatusProcessing))
	require.NoError(t, task.UpdateStatus(TaskStatusSuccess))

	err = task.UpdateStatus(TaskStatusProcessing)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	err = task.UpdateStatus("bogus")
	assert.ErrorIs(t, err, ErrInvalidTaskStatus)
}
