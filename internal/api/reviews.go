package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/models"
)

// GetVision handles GET /api/vision.
func (h *Handler) GetVision(w http.ResponseWriter, _ *http.Request) {
	v, err := h.meta.Vision()
	if err != nil && !apperr.IsRecoverable(err) {
		writeError(w, "get vision", err)
		return
	}
	writeJSON(w, http.StatusOK, VisionResponse{Vision: v, Truncated: []models.Category{}})
}

// PutVision handles PUT /api/vision.
//
//	@Summary		Set the long-range vision
//	@Tags			reviews
//	@Accept			json
//	@Produce		json
//	@Param			body	body		VisionRequest	true	"Vision per category"
//	@Success		200		{object}	VisionResponse
//	@Security		BearerAuth
//	@Router			/vision [put]
func (h *Handler) PutVision(w http.ResponseWriter, r *http.Request) {
	var req VisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, cut, err := h.meta.PutVision(req.texts())
	if err != nil {
		writeError(w, "put vision", err)
		return
	}
	if cut == nil {
		cut = []models.Category{}
	}
	writeJSON(w, http.StatusOK, VisionResponse{Vision: v, Truncated: cut})
}

// ListReviews handles GET /api/reviews.
func (h *Handler) ListReviews(w http.ResponseWriter, _ *http.Request) {
	items, err := h.meta.Reviews()
	if err != nil {
		writeError(w, "list reviews", err)
		return
	}
	writeJSON(w, http.StatusOK, ReviewListResponse{Reviews: items})
}

// periodParam resolves the {period} URL parameter, writing a 400 when it
// is neither an ISO week nor a month.
func periodParam(w http.ResponseWriter, r *http.Request) (models.PeriodSpan, bool) {
	span, err := models.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("period must be YYYY-Www or YYYY-MM"))
		return models.PeriodSpan{}, false
	}
	return span, true
}

// GetReview handles GET /api/reviews/{period}.
func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	span, ok := periodParam(w, r)
	if !ok {
		return
	}
	rev, err := h.meta.Review(span.ID)
	if err != nil && !apperr.IsRecoverable(err) {
		writeError(w, "get review", err)
		return
	}
	if rev.PeriodID == "" {
		writeError(w, "get review", apperr.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// PutReview handles PUT /api/reviews/{period}. Completion stats are
// recomputed from the days of the period on every save.
//
//	@Summary		Create or replace a weekly or monthly review
//	@Tags			reviews
//	@Accept			json
//	@Produce		json
//	@Param			period	path		string			true	"ISO week (2025-W03) or month (2025-01)"
//	@Param			body	body		ReviewRequest	true	"Review"
//	@Success		200		{object}	models.Review
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reviews/{period} [put]
func (h *Handler) PutReview(w http.ResponseWriter, r *http.Request) {
	span, ok := periodParam(w, r)
	if !ok {
		return
	}
	var req ReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	stats, err := h.engine.PeriodSummary(r.Context(), span.Start, span.End)
	if err != nil {
		writeError(w, "review stats", err)
		return
	}
	saved, err := h.meta.SaveReview(models.Review{
		Period:      span.Period,
		PeriodID:    span.ID,
		StartDate:   models.DateKey(span.Start),
		EndDate:     models.DateKey(span.End),
		Wins:        req.Wins,
		Challenges:  req.Challenges,
		Learnings:   req.Learnings,
		NextActions: req.NextActions,
		Stats:       stats,
	})
	if err != nil {
		writeError(w, "put review", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
