package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/focusfive/internal/analytics"
	"github.com/starford/focusfive/internal/dayservice"
	"github.com/starford/focusfive/internal/metastore"
	"github.com/starford/focusfive/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	days     *dayservice.Service
	meta     *metastore.Store
	engine   *analytics.Engine
	onChange EventFunc
	now      func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(days *dayservice.Service, engine *analytics.Engine, onChange EventFunc) *Handler {
	return &Handler{
		days:     days,
		meta:     days.Meta(),
		engine:   engine,
		onChange: onChange,
		now:      time.Now,
	}
}

func (h *Handler) notify(kind string, date time.Time) {
	if h.onChange != nil {
		h.onChange(kind, date)
	}
}

// dateParam parses the {date} URL parameter, writing a 400 when it is invalid.
func dateParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	date, err := models.ParseDateKey(chi.URLParam(r, "date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return time.Time{}, false
	}
	return date, true
}

// categoryParam parses the {category} URL parameter case-insensitively.
func categoryParam(w http.ResponseWriter, r *http.Request) (models.Category, bool) {
	c, ok := models.ParseCategory(chi.URLParam(r, "category"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("category must be work, health or family"))
	}
	return c, ok
}

// queryDate parses an optional YYYY-MM-DD query parameter, returning def
// when it is absent.
func queryDate(w http.ResponseWriter, r *http.Request, key string, def time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	d, err := models.ParseDateKey(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(fmt.Sprintf("%s must be YYYY-MM-DD", key)))
		return time.Time{}, false
	}
	return d, true
}

func (h *Handler) today() time.Time {
	return models.TruncateDate(h.now())
}

// ifMatch returns the If-Match header with ETag quotes stripped.
func ifMatch(r *http.Request) string {
	return strings.Trim(r.Header.Get("If-Match"), `"`)
}

func setETag(w http.ResponseWriter, checksum string) {
	if checksum != "" {
		w.Header().Set("ETag", `"`+checksum+`"`)
	}
}
