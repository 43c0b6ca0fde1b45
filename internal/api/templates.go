package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/models"
)

// ListTemplates handles GET /api/templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, _ *http.Request) {
	items, err := h.meta.Templates()
	if err != nil && !apperr.IsRecoverable(err) {
		writeError(w, "list templates", err)
		return
	}
	if items == nil {
		items = []models.Template{}
	}
	writeJSON(w, http.StatusOK, TemplateListResponse{Templates: items})
}

// GetTemplate handles GET /api/templates/{name}.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.meta.Template(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, "get template", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// PutTemplate handles PUT /api/templates/{name}. The name in the URL wins
// over any name in the body.
//
//	@Summary		Create or replace a template
//	@Tags			templates
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Template name"
//	@Param			body	body		models.Template	true	"Template"
//	@Success		200		{object}	models.Template
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/{name} [put]
func (h *Handler) PutTemplate(w http.ResponseWriter, r *http.Request) {
	var t models.Template
	if !decodeJSON(w, r, &t) {
		return
	}
	t.Name = chi.URLParam(r, "name")
	saved, err := h.meta.PutTemplate(t)
	if err != nil {
		writeError(w, "put template", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteTemplate handles DELETE /api/templates/{name}.
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.meta.DeleteTemplate(chi.URLParam(r, "name")); err != nil {
		writeError(w, "delete template", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
