package metastore

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/models"
)

// DayMeta is the per-day metadata record. Each category slice is kept in
// the same order as the actions in the text. Retired holds metadata of
// actions that disappeared from the text; it is never pruned.
type DayMeta struct {
	Version      int                 `json:"version"`
	Date         string              `json:"date"`
	TextChecksum string              `json:"text_checksum,omitempty"`
	Work         []models.ActionMeta `json:"work"`
	Health       []models.ActionMeta `json:"health"`
	Family       []models.ActionMeta `json:"family"`
	Retired      []models.ActionMeta `json:"retired,omitempty"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// NewDayMeta returns an empty record for date.
func NewDayMeta(date time.Time) DayMeta {
	return DayMeta{Version: SchemaVersion, Date: models.DateKey(date)}
}

// Actions returns a pointer to the metadata slice of c.
func (m *DayMeta) Actions(c models.Category) *[]models.ActionMeta {
	switch c {
	case models.CategoryHealth:
		return &m.Health
	case models.CategoryFamily:
		return &m.Family
	default:
		return &m.Work
	}
}

// Find looks up id among active and retired entries.
func (m *DayMeta) Find(id string) (models.ActionMeta, bool) {
	for _, c := range models.Categories {
		for _, a := range *m.Actions(c) {
			if a.ID == id {
				return a, true
			}
		}
	}
	for _, a := range m.Retired {
		if a.ID == id {
			return a, true
		}
	}
	return models.ActionMeta{}, false
}

// DayMetaPath returns the relative path of the metadata file for date.
func DayMetaPath(date time.Time) string {
	return MetaDir + "/" + models.DateKey(date) + ".meta.json"
}

// LoadDayMeta returns the metadata for date. A missing file yields an empty
// record and a nil error; a damaged file yields an empty record and a
// *apperr.MetadataDegraded; a newer schema yields the fields this build
// understands and a *apperr.SchemaVersionMismatch.
func (s *Store) LoadDayMeta(date time.Time) (DayMeta, error) {
	path := DayMetaPath(date)
	var m DayMeta
	err := s.loadJSON(path, &m)
	var degraded *apperr.MetadataDegraded
	if errors.As(err, &degraded) {
		s.logDegraded(err)
		return NewDayMeta(date), err
	}
	if m.Version == 0 {
		m.Version = SchemaVersion
	}
	m.Date = models.DateKey(date)
	return m, err
}

// SaveDayMeta atomically replaces the metadata file for m.Date.
func (s *Store) SaveDayMeta(m DayMeta) error {
	date, err := models.ParseDateKey(m.Date)
	if err != nil {
		return fmt.Errorf("metastore: %w", err)
	}
	m.Version = SchemaVersion
	m.UpdatedAt = s.now().UTC()
	for _, c := range models.Categories {
		if p := m.Actions(c); *p == nil {
			*p = []models.ActionMeta{}
		}
	}
	return s.writeJSON(DayMetaPath(date), m)
}

// DeleteDayMeta removes the metadata file for date. A missing file is not an error.
func (s *Store) DeleteDayMeta(date time.Time) error {
	if err := s.fs.Delete(DayMetaPath(date)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("metastore: %w", err)
	}
	return nil
}
