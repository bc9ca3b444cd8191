package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/genbridge/genbridge/internal/api/shared"
	"github.com/genbridge/genbridge/internal/domain"
	"github.com/genbridge/genbridge/internal/preset"
	"github.com/genbridge/genbridge/internal/store"
)

// CreateTaskRequest is the payload for enqueueing a generation task.
type CreateTaskRequest struct {
	UserID       int64  `json:"user_id"        validate:"required,gt=0"`
	Preset       string `json:"preset"         validate:"required"`
	InputText    string `json:"input_text"`
	InputFileRef string `json:"input_file_ref"`
}

// TaskResponse is the external view of a task.
type TaskResponse struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Preset        string    `json:"preset"`
	Status        string    `json:"status"`
	ResultFileKey string    `json:"result_file_key,omitempty"`
	ResultText    string    `json:"result_text,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	tasks store.TaskStore
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks store.TaskStore) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// CreateTask handles POST /internal/tasks. The task is enqueued and
// picked up by the worker loop; processing is asynchronous.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	// Reject unknown presets at the door rather than letting the task
	// fail asynchronously.
	p, err := preset.Resolve(req.Preset)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Unknown preset: "+req.Preset)
		return
	}

	task, err := domain.NewTask(req.UserID, p.Slug, req.InputText, req.InputFileRef)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if err := h.tasks.CreateTask(r.Context(), task); err != nil {
		slog.Error("failed to create task", "error", err, "user_id", req.UserID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to create task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, taskToResponse(task))
}

// GetTask handles GET /internal/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		slog.Error("failed to load task", "error", err, "task_id", id)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to load task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// ListPresets handles GET /internal/presets.
func (h *TaskHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]any{
		"presets": preset.Slugs(),
	})
}

func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:            task.ID,
		UserID:        task.UserID,
		Preset:        task.PresetSlug,
		Status:        string(task.Status),
		ResultFileKey: task.ResultFileKey,
		ResultText:    task.ResultText,
		ErrorMessage:  task.ErrorMessage,
		CreatedAt:     task.CreatedAt,
		UpdatedAt:     task.UpdatedAt,
	}
}
