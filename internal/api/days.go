package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/focusfive/internal/dayservice"
	"github.com/starford/focusfive/internal/models"
)

// ListDays handles GET /api/days.
//
//	@Summary		List the dates that have a day file
//	@Tags			days
//	@Produce		json
//	@Success		200	{object}	DayListResponse
//	@Security		BearerAuth
//	@Router			/days [get]
func (h *Handler) ListDays(w http.ResponseWriter, r *http.Request) {
	dates, err := h.days.Dates(r.Context())
	if err != nil {
		writeError(w, "list days", err)
		return
	}
	out := DayListResponse{Dates: make([]string, len(dates))}
	for i, d := range dates {
		out.Dates[i] = models.DateKey(d)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetDay handles GET /api/days/{date}.
//
//	@Summary		Get a reconciled day with its warnings
//	@Tags			days
//	@Produce		json
//	@Param			date	path		string	true	"Date (YYYY-MM-DD)"
//	@Success		200		{object}	dayservice.Loaded
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/days/{date} [get]
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	loaded, err := h.days.LoadDay(r.Context(), date)
	if err != nil {
		writeError(w, "get day", err)
		return
	}
	setETag(w, loaded.Checksum)
	writeJSON(w, http.StatusOK, loaded)
}

// PutDay handles PUT /api/days/{date}.
//
//	@Summary		Create or replace a day with optimistic concurrency
//	@Tags			days
//	@Accept			json
//	@Produce		json
//	@Param			date		path		string		true	"Date (YYYY-MM-DD)"
//	@Param			If-Match	header		string		false	"Checksum of the text file being replaced"
//	@Param			body		body		DayRequest	true	"Day content"
//	@Success		200			{object}	dayservice.Loaded
//	@Success		201			{object}	dayservice.Loaded
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/days/{date} [put]
func (h *Handler) PutDay(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	var req DayRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	existed := h.days.Exists(date)
	loaded, err := h.days.SaveDay(r.Context(), req.toDay(date), ifMatch(r))
	if err != nil {
		writeError(w, "save day", err)
		return
	}
	setETag(w, loaded.Checksum)
	if existed {
		h.notify("updated", date)
		writeJSON(w, http.StatusOK, loaded)
		return
	}
	h.notify("created", date)
	writeJSON(w, http.StatusCreated, loaded)
}

// DeleteDay handles DELETE /api/days/{date}.
//
//	@Summary		Delete a day and its metadata
//	@Tags			days
//	@Param			date	path	string	true	"Date (YYYY-MM-DD)"
//	@Success		204		"Day deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/days/{date} [delete]
func (h *Handler) DeleteDay(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	if err := h.days.DeleteDay(r.Context(), date); err != nil {
		writeError(w, "delete day", err)
		return
	}
	h.notify("deleted", date)
	w.WriteHeader(http.StatusNoContent)
}

// DayStats handles GET /api/days/{date}/stats.
func (h *Handler) DayStats(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	stats, err := h.engine.DayStats(r.Context(), date)
	if err != nil {
		writeError(w, "day stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ApplyTemplate handles POST /api/days/{date}/template.
//
//	@Summary		Create a day from a template
//	@Tags			days
//	@Accept			json
//	@Produce		json
//	@Param			date	path		string					true	"Date (YYYY-MM-DD)"
//	@Param			body	body		TemplateApplyRequest	true	"Template name"
//	@Success		201		{object}	dayservice.Loaded
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/days/{date}/template [post]
func (h *Handler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	var req TemplateApplyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	loaded, err := h.days.NewDayFromTemplate(r.Context(), date, req.Name)
	if err != nil {
		writeError(w, "apply template", err)
		return
	}
	h.notify("created", date)
	setETag(w, loaded.Checksum)
	writeJSON(w, http.StatusCreated, loaded)
}

// CarryOver handles POST /api/days/{date}/carry-over. The body is optional.
func (h *Handler) CarryOver(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	var req CarryOverRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	from := date.AddDate(0, 0, -1)
	if req.From != "" {
		from, _ = models.ParseDateKey(req.From)
	}
	existed := h.days.Exists(date)
	loaded, err := h.days.CarryOver(r.Context(), from, date)
	if err != nil {
		writeError(w, "carry over", err)
		return
	}
	kind := "updated"
	if !existed {
		kind = "created"
	}
	h.notify(kind, date)
	setETag(w, loaded.Checksum)
	writeJSON(w, http.StatusOK, loaded)
}

// GetAction handles GET /api/days/{date}/actions/{id}. Actions removed from
// the text are still found through their retained metadata.
func (h *Handler) GetAction(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	ref, err := h.days.ActionByID(r.Context(), date, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get action", err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

// PatchAction handles PATCH /api/days/{date}/actions/{id}.
//
//	@Summary		Update one action's text, completion or metadata
//	@Tags			days
//	@Accept			json
//	@Produce		json
//	@Param			date	path		string					true	"Date (YYYY-MM-DD)"
//	@Param			id		path		string					true	"Action ID"
//	@Param			body	body		dayservice.ActionPatch	true	"Fields to change"
//	@Success		200		{object}	dayservice.Loaded
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/days/{date}/actions/{id} [patch]
func (h *Handler) PatchAction(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	var patch dayservice.ActionPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	loaded, err := h.days.UpdateAction(r.Context(), date, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, "update action", err)
		return
	}
	h.notify("updated", date)
	setETag(w, loaded.Checksum)
	writeJSON(w, http.StatusOK, loaded)
}
