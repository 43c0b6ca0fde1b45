package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/focusfive/internal/analytics"
	"github.com/starford/focusfive/internal/dayservice"
)

// EventFunc is told about day changes made through the API so they can be
// forwarded to live clients. kind is created, updated or deleted.
type EventFunc func(kind string, date time.Time)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(days *dayservice.Service, engine *analytics.Engine, onChange EventFunc, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(days, engine, onChange)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Days.
	r.Get("/days", h.ListDays)
	r.Route("/days/{date}", func(r chi.Router) {
		r.Get("/", h.GetDay)
		r.Put("/", h.PutDay)
		r.Delete("/", h.DeleteDay)
		r.Get("/stats", h.DayStats)
		r.Post("/template", h.ApplyTemplate)
		r.Post("/carry-over", h.CarryOver)
		r.Get("/actions/{id}", h.GetAction)
		r.Patch("/actions/{id}", h.PatchAction)
	})

	// Analytics.
	r.Get("/streak", h.Streak)
	r.Get("/trends/categories/{category}", h.CategoryTrend)
	r.Get("/trends/indicators/{id}", h.IndicatorTrend)
	r.Get("/categories/{category}/progress", h.CategoryProgress)

	// Objectives.
	r.Get("/objectives", h.ListObjectives)
	r.Post("/objectives", h.CreateObjective)
	r.Get("/objectives/{id}", h.GetObjective)
	r.Put("/objectives/{id}", h.UpdateObjective)
	r.Post("/objectives/{id}/archive", h.ArchiveObjective)
	r.Get("/objectives/{id}/progress", h.ObjectiveProgress)

	// Indicators and observations.
	r.Get("/indicators", h.ListIndicators)
	r.Post("/indicators", h.CreateIndicator)
	r.Get("/indicators/{id}", h.GetIndicator)
	r.Put("/indicators/{id}", h.UpdateIndicator)
	r.Get("/indicators/{id}/observations", h.ListObservations)
	r.Post("/indicators/{id}/observations", h.AddObservation)

	// Templates.
	r.Get("/templates", h.ListTemplates)
	r.Get("/templates/{name}", h.GetTemplate)
	r.Put("/templates/{name}", h.PutTemplate)
	r.Delete("/templates/{name}", h.DeleteTemplate)

	// Vision and reviews.
	r.Get("/vision", h.GetVision)
	r.Put("/vision", h.PutVision)
	r.Get("/reviews", h.ListReviews)
	r.Get("/reviews/{period}", h.GetReview)
	r.Put("/reviews/{period}", h.PutReview)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
