package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genbridge/genbridge/internal/domain"
	"github.com/genbridge/genbridge/internal/store"
)

// testDB connects to the database named by GENBRIDGE_TEST_DB_URL and
// applies migrations. Tests are skipped when the variable is unset so
// the suite stays runnable without local infrastructure.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("GENBRIDGE_TEST_DB_URL")
	if url == "" {
		t.Skip("GENBRIDGE_TEST_DB_URL not set, skipping database tests")
	}

	db, err := Open(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(db))

	_, err = db.Exec("TRUNCATE tasks RESTART IDENTITY")
	require.NoError(t, err)

	return db
}

func newQueuedTask(t *testing.T, s *TaskStore, userID int64, presetSlug string) *domain.Task {
	t.Helper()

	task, err := domain.NewTask(userID, presetSlug, "draw a cat", "")
	require.NoError(t, err)
	require.NoError(t, s.CreateTask(context.Background(), task))

	return task
}

func TestCreateAndGetTask(t *testing.T) {
	s := NewTaskStore(testDB(t))
	ctx := context.Background()

	task := newQueuedTask(t, s, 42, "seedvr")
	assert.NotZero(t, task.ID)

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusQueued, got.Status)
	assert.Equal(t, "draw a cat", got.InputText)
}

func TestGetTaskNotFound(t *testing.T) {
	s := NewTaskStore(testDB(t))

	_, err := s.GetTask(context.Background(), 999999)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestNextQueuedReturnsOldest(t *testing.T) {
	s := NewTaskStore(testDB(t))
	ctx := context.Background()

	first := newQueuedTask(t, s, 1, "seedvr")
	newQueuedTask(t, s, 2, "chat")

	next, err := s.NextQueued(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, next.ID)
}

func TestNextQueuedEmpty(t *testing.T) {
	s := NewTaskStore(testDB(t))

	_, err := s.NextQueued(context.Background())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestClaimTaskIsConditional(t *testing.T) {
	s := NewTaskStore(testDB(t))
	ctx := context.Background()

	task := newQueuedTask(t, s, 1, "seedvr")

	claimed, err := s.ClaimTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// A second claim must lose.
	claimed, err = s.ClaimTask(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
}

func TestMarkSuccess(t *testing.T) {
	s := NewTaskStore(testDB(t))
	ctx := context.Background()

	task := newQueuedTask(t, s, 1, "seedvr")
	_, err := s.ClaimTask(ctx, task.ID)
	require.NoError(t, err)

	require.NoError(t, s.MarkSuccess(ctx, task.ID, "results/task_1_seedvr.png", "done"))

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusSuccess, got.Status)
	assert.Equal(t, "results/task_1_seedvr.png", got.ResultFileKey)
	assert.Equal(t, "done", got.ResultText)
}

func TestTerminalStateIsNeverRevisited(t *testing.T) {
	s := NewTaskStore(testDB(t))
	ctx := context.Background()

	task := newQueuedTask(t, s, 1, "seedvr")
	_, err := s.ClaimTask(ctx, task.ID)
	require.NoError(t, err)
	require.NoError(t, s.MarkFailed(ctx, task.ID, "provider exploded"))

	// Neither a second terminal update nor a claim may touch the row.
	err = s.MarkSuccess(ctx, task.ID, "key", "text")
	assert.ErrorIs(t, err, store.ErrUpdateFailed)

	claimed, err := s.ClaimTask(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Equal(t, "provider exploded", got.ErrorMessage)
}
