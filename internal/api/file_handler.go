package api

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/genbridge/genbridge/internal/api/shared"
	"github.com/genbridge/genbridge/internal/artifact"
)

// FileHandler serves stored artifacts. The provider fetches staged
// inputs through it and users fetch produced results.
type FileHandler struct {
	artifacts artifact.Store
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(artifacts artifact.Store) *FileHandler {
	return &FileHandler{artifacts: artifacts}
}

// ServeFile handles GET /files/*. The wildcard is the artifact key.
func (h *FileHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if key == "" {
		shared.RespondWithError(w, r, http.StatusNotFound, "File not found")
		return
	}

	data, err := h.artifacts.Read(r.Context(), key)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) || errors.Is(err, artifact.ErrInvalidKey) {
			shared.RespondWithError(w, r, http.StatusNotFound, "File not found")
			return
		}
		slog.Error("failed to read artifact", "error", err, "key", key)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to read file")
		return
	}

	name := path.Base(key)
	contentType := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Debug("failed to write file response", "error", err, "key", key)
	}
}
