package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genbridge/genbridge/internal/artifact"
)

func newFileRouter(t *testing.T) (chi.Router, artifact.Store) {
	t.Helper()

	artifacts, err := artifact.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		APIKey: testAPIKey,
		Tasks:  NewTaskHandler(newStubTaskStore()),
		Files:  NewFileHandler(artifacts),
	})
	return router, artifacts
}

func TestServeFile(t *testing.T) {
	router, artifacts := newFileRouter(t)

	key := "results/task_1_chat.txt"
	require.NoError(t, artifacts.Write(context.Background(), key, []byte("generated text")))

	req := httptest.NewRequest(http.MethodGet, "/files/"+key, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "generated text", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="task_1_chat.txt"`)
}

func TestServeFileBinaryFallback(t *testing.T) {
	router, artifacts := newFileRouter(t)

	key := "results/task_2_3d-trellis.bin"
	require.NoError(t, artifacts.Write(context.Background(), key, []byte{0x00, 0x01}))

	req := httptest.NewRequest(http.MethodGet, "/files/"+key, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
}

func TestServeFileViaInternalRoute(t *testing.T) {
	router, artifacts := newFileRouter(t)

	key := "uploads/task_3_seedvr.png"
	require.NoError(t, artifacts.Write(context.Background(), key, []byte("png")))

	req := httptest.NewRequest(http.MethodGet, "/internal/files/"+key, nil)
	req.Header.Set("X-API-Key", testAPIKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	// Same route without the key is rejected.
	req = httptest.NewRequest(http.MethodGet, "/internal/files/"+key, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServeFileNotFound(t *testing.T) {
	router, _ := newFileRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/files/results/missing.png", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeFileRejectsTraversal(t *testing.T) {
	router, _ := newFileRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/files/..%2f..%2fetc%2fpasswd", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
