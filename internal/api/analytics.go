package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Streak handles GET /api/streak?as_of=YYYY-MM-DD.
//
//	@Summary		Consecutive days with at least one completed action
//	@Tags			analytics
//	@Produce		json
//	@Param			as_of	query		string	false	"Last day of the streak (default today)"
//	@Success		200		{object}	analytics.Streak
//	@Security		BearerAuth
//	@Router			/streak [get]
func (h *Handler) Streak(w http.ResponseWriter, r *http.Request) {
	asOf, ok := queryDate(w, r, "as_of", h.today())
	if !ok {
		return
	}
	streak, err := h.engine.Streak(r.Context(), asOf)
	if err != nil {
		writeError(w, "streak", err)
		return
	}
	writeJSON(w, http.StatusOK, streak)
}

// CategoryTrend handles GET /api/trends/categories/{category}.
func (h *Handler) CategoryTrend(w http.ResponseWriter, r *http.Request) {
	category, ok := categoryParam(w, r)
	if !ok {
		return
	}
	asOf, ok := queryDate(w, r, "as_of", h.today())
	if !ok {
		return
	}
	trend, err := h.engine.CategoryTrend(r.Context(), category, asOf)
	if err != nil {
		writeError(w, "category trend", err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

// IndicatorTrend handles GET /api/trends/indicators/{id}.
func (h *Handler) IndicatorTrend(w http.ResponseWriter, r *http.Request) {
	trend, err := h.engine.IndicatorTrend(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "indicator trend", err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

// CategoryProgress handles GET /api/categories/{category}/progress.
func (h *Handler) CategoryProgress(w http.ResponseWriter, r *http.Request) {
	category, ok := categoryParam(w, r)
	if !ok {
		return
	}
	progress, err := h.engine.CategoryProgress(r.Context(), category)
	if err != nil {
		writeError(w, "category progress", err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// ObjectiveProgress handles GET /api/objectives/{id}/progress.
func (h *Handler) ObjectiveProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.engine.ObjectiveProgress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "objective progress", err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}
