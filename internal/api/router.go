package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/daymark/internal/dayservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *dayservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Days.
	r.Get("/days", h.ListDays)
	r.Get("/days/{day}", h.GetDay)
	r.Post("/days/{day}/notes", h.CreateDayNote)

	// Calendar.
	r.Get("/calendar", h.Calendar)
	r.Get("/calendar/{month}", h.Calendar)

	// Index maintenance.
	r.Post("/index/rebuild", h.Rebuild)
	r.Get("/index/status", h.Status)
	r.Put("/index/mode", h.SetMode)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
