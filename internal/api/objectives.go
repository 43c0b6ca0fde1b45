package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/models"
)

// ListObjectives handles GET /api/objectives?status=&category=.
//
//	@Summary		List objectives
//	@Tags			objectives
//	@Produce		json
//	@Param			status		query		string	false	"active, paused, completed or archived"
//	@Param			category	query		string	false	"work, health or family"
//	@Success		200			{object}	ObjectiveListResponse
//	@Security		BearerAuth
//	@Router			/objectives [get]
func (h *Handler) ListObjectives(w http.ResponseWriter, r *http.Request) {
	items, err := h.meta.Objectives()
	if err != nil && !apperr.IsRecoverable(err) {
		writeError(w, "list objectives", err)
		return
	}
	status := models.ObjectiveStatus(r.URL.Query().Get("status"))
	category, _ := models.ParseCategory(r.URL.Query().Get("category"))
	out := make([]models.Objective, 0, len(items))
	for _, o := range items {
		if status != "" && o.Status != status {
			continue
		}
		if category != "" && o.Category != category {
			continue
		}
		out = append(out, o)
	}
	writeJSON(w, http.StatusOK, ObjectiveListResponse{Objectives: out})
}

// CreateObjective handles POST /api/objectives.
//
//	@Summary		Create an objective
//	@Tags			objectives
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Objective	true	"Objective"
//	@Success		201		{object}	models.Objective
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/objectives [post]
func (h *Handler) CreateObjective(w http.ResponseWriter, r *http.Request) {
	var o models.Objective
	if !decodeJSON(w, r, &o) {
		return
	}
	o.ID = ""
	created, err := h.meta.PutObjective(o)
	if err != nil {
		writeError(w, "create objective", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetObjective handles GET /api/objectives/{id}.
func (h *Handler) GetObjective(w http.ResponseWriter, r *http.Request) {
	o, err := h.meta.Objective(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get objective", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// UpdateObjective handles PUT /api/objectives/{id}.
func (h *Handler) UpdateObjective(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.meta.Objective(id); err != nil {
		writeError(w, "update objective", err)
		return
	}
	var o models.Objective
	if !decodeJSON(w, r, &o) {
		return
	}
	o.ID = id
	updated, err := h.meta.PutObjective(o)
	if err != nil {
		writeError(w, "update objective", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ArchiveObjective handles POST /api/objectives/{id}/archive.
func (h *Handler) ArchiveObjective(w http.ResponseWriter, r *http.Request) {
	o, err := h.meta.ArchiveObjective(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "archive objective", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// ListIndicators handles GET /api/indicators.
func (h *Handler) ListIndicators(w http.ResponseWriter, _ *http.Request) {
	items, err := h.meta.Indicators()
	if err != nil && !apperr.IsRecoverable(err) {
		writeError(w, "list indicators", err)
		return
	}
	if items == nil {
		items = []models.Indicator{}
	}
	writeJSON(w, http.StatusOK, IndicatorListResponse{Indicators: items})
}

// CreateIndicator handles POST /api/indicators.
//
//	@Summary		Create an indicator
//	@Tags			indicators
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Indicator	true	"Indicator"
//	@Success		201		{object}	models.Indicator
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/indicators [post]
func (h *Handler) CreateIndicator(w http.ResponseWriter, r *http.Request) {
	var ind models.Indicator
	if !decodeJSON(w, r, &ind) {
		return
	}
	ind.ID = ""
	created, err := h.meta.PutIndicator(ind)
	if err != nil {
		writeError(w, "create indicator", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetIndicator handles GET /api/indicators/{id}.
func (h *Handler) GetIndicator(w http.ResponseWriter, r *http.Request) {
	ind, err := h.meta.Indicator(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get indicator", err)
		return
	}
	writeJSON(w, http.StatusOK, ind)
}

// UpdateIndicator handles PUT /api/indicators/{id}.
func (h *Handler) UpdateIndicator(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.meta.Indicator(id); err != nil {
		writeError(w, "update indicator", err)
		return
	}
	var ind models.Indicator
	if !decodeJSON(w, r, &ind) {
		return
	}
	ind.ID = id
	updated, err := h.meta.PutIndicator(ind)
	if err != nil {
		writeError(w, "update indicator", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ListObservations handles GET /api/indicators/{id}/observations.
// With limit it returns the most recent observations; otherwise the ledger
// is filtered by the optional from and to dates (inclusive).
//
//	@Summary		List observations of an indicator
//	@Tags			indicators
//	@Produce		json
//	@Param			id		path		string	true	"Indicator ID"
//	@Param			from	query		string	false	"First day (YYYY-MM-DD)"
//	@Param			to		query		string	false	"Last day (YYYY-MM-DD)"
//	@Param			limit	query		int		false	"Most recent N observations"
//	@Success		200		{object}	ObservationListResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/indicators/{id}/observations [get]
func (h *Handler) ListObservations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.meta.Indicator(id); err != nil {
		writeError(w, "list observations", err)
		return
	}

	var (
		items []models.Observation
		err   error
	)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, convErr := strconv.Atoi(raw)
		if convErr != nil || limit <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be a positive integer"))
			return
		}
		items, err = h.meta.RecentObservations(id, limit)
	} else {
		from, ok := queryDate(w, r, "from", time.Time{})
		if !ok {
			return
		}
		to, ok := queryDate(w, r, "to", time.Time{})
		if !ok {
			return
		}
		if !to.IsZero() {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		items, err = h.meta.Observations(id, from, to)
	}
	if err != nil {
		writeError(w, "list observations", err)
		return
	}
	if items == nil {
		items = []models.Observation{}
	}
	writeJSON(w, http.StatusOK, ObservationListResponse{Observations: items})
}

// AddObservation handles POST /api/indicators/{id}/observations.
func (h *Handler) AddObservation(w http.ResponseWriter, r *http.Request) {
	var req ObservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	o, err := h.meta.AppendObservation(req.toObservation(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, "add observation", err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}
