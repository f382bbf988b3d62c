package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lapse/internal/metrics"
	"github.com/starford/lapse/internal/tracker"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *tracker.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(metrics.Instrument)
	r.Use(AuthMiddleware(authEnabled, token))

	// Items.
	r.Get("/items", h.ListItems)
	r.Post("/items", h.CreateItem)
	r.Get("/items/{id}", h.GetItem)
	r.Put("/items/{id}", h.EditItem)
	r.Delete("/items/{id}", h.DeleteItem)
	r.Post("/items/{id}/renew", h.RenewItem)

	// Categories.
	r.Get("/categories", h.ListCategories)
	r.Post("/categories", h.CreateCategory)
	r.Get("/categories/{id}", h.GetCategory)
	r.Put("/categories/{id}", h.EditCategory)
	r.Delete("/categories/{id}", h.DeleteCategory)

	// Reports.
	r.Get("/dashboard", h.Dashboard)
	r.Get("/charts", h.Charts)
	r.Get("/analytics", h.Analytics)
	r.Get("/reminders", h.Reminders)
	r.Get("/activities", h.Activities)

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
	r.Delete("/settings", h.ResetSettings)

	// Data management.
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)
	r.Post("/backups", h.Backup)
	r.Get("/backups", h.ListBackups)
	r.Post("/clear", h.ClearAll)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
