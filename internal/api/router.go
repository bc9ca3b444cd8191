package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/genbridge/genbridge/internal/api/middleware"
	"github.com/genbridge/genbridge/internal/api/shared"
)

// RouterConfig carries the router's wiring inputs.
type RouterConfig struct {
	// APIKey guards the /internal route group.
	APIKey string

	Tasks *TaskHandler
	Files *FileHandler
}

// NewRouter assembles the HTTP routes. /files is public because the
// provider fetches staged inputs from it without credentials; /internal
// requires the shared API key.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Trace)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/files/*", cfg.Files.ServeFile)

	r.Route("/internal", func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(cfg.APIKey))

		r.Post("/tasks", cfg.Tasks.CreateTask)
		r.Get("/tasks/{id}", cfg.Tasks.GetTask)
		r.Get("/presets", cfg.Tasks.ListPresets)
		r.Get("/files/*", cfg.Files.ServeFile)
	})

	return r
}
