package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/recallkit/recallkit/internal/api"
	"github.com/recallkit/recallkit/internal/api/handlers"
	"github.com/recallkit/recallkit/internal/api/middleware"
)

type RouterConfig struct {
	APIKey           string
	EntriesHandler   *handlers.EntriesHandler
	InventoryHandler *handlers.InventoryHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKey))

		r.Route("/entries", func(r chi.Router) {
			r.Post("/", cfg.EntriesHandler.Submit)
			r.Delete("/{uniqueID}", cfg.EntriesHandler.Deprecate)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", cfg.InventoryHandler.List)
			r.Get("/summary", cfg.InventoryHandler.Summary)
			r.Get("/stale", cfg.InventoryHandler.Stale)
			r.Get("/{uniqueID}", cfg.InventoryHandler.Get)
		})
	})

	return r
}
