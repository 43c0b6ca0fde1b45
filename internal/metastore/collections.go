package metastore

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/models"
)

type collection[T any] struct {
	Version int `json:"version"`
	Items   []T `json:"items"`
}

// loadCollection returns the items stored at path. A damaged file yields no
// items and the degradation error.
func loadCollection[T any](s *Store, path string) ([]T, error) {
	var c collection[T]
	err := s.loadJSON(path, &c)
	var degraded *apperr.MetadataDegraded
	if errors.As(err, &degraded) {
		s.logDegraded(err)
		return nil, err
	}
	return c.Items, err
}

// loadForUpdate refuses to hand out a collection that would lose data if
// written back, such as a corrupt file or one from a newer schema.
func loadForUpdate[T any](s *Store, path string) ([]T, error) {
	items, err := loadCollection[T](s, path)
	if err != nil {
		return nil, fmt.Errorf("metastore: refusing to rewrite %s: %w", path, err)
	}
	return items, nil
}

func saveCollection[T any](s *Store, path string, items []T) error {
	if items == nil {
		items = []T{}
	}
	return s.writeJSON(path, collection[T]{Version: SchemaVersion, Items: items})
}

// Objectives returns every objective, archived ones included.
func (s *Store) Objectives() ([]models.Objective, error) {
	return loadCollection[models.Objective](s, ObjectivesFile)
}

// SaveObjectives replaces the objective collection.
func (s *Store) SaveObjectives(items []models.Objective) error {
	return saveCollection(s, ObjectivesFile, items)
}

// Objective returns the objective with id or apperr.ErrNotFound.
func (s *Store) Objective(id string) (models.Objective, error) {
	items, err := s.Objectives()
	if err != nil && !apperr.IsRecoverable(err) {
		return models.Objective{}, err
	}
	i := slices.IndexFunc(items, func(o models.Objective) bool { return o.ID == id })
	if i < 0 {
		return models.Objective{}, apperr.ErrNotFound
	}
	return items[i], nil
}

// PutObjective creates or replaces an objective. A missing ID or status is
// filled in; every referenced indicator must exist.
func (s *Store) PutObjective(o models.Objective) (models.Objective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := loadForUpdate[models.Objective](s, ObjectivesFile)
	if err != nil {
		return models.Objective{}, err
	}
	indicators, err := s.Indicators()
	if err != nil && !apperr.IsRecoverable(err) {
		return models.Objective{}, fmt.Errorf("metastore: load indicators: %w", err)
	}
	for _, id := range o.IndicatorIDs {
		if !slices.ContainsFunc(indicators, func(ind models.Indicator) bool { return ind.ID == id }) {
			return models.Objective{}, fmt.Errorf("metastore: unknown indicator %q: %w", id, apperr.ErrInvalid)
		}
	}

	now := s.now().UTC()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = models.ObjectiveActive
	}
	if o.IndicatorIDs == nil {
		o.IndicatorIDs = []string{}
	}
	o.UpdatedAt = now

	i := slices.IndexFunc(items, func(x models.Objective) bool { return x.ID == o.ID })
	if i >= 0 {
		o.CreatedAt = items[i].CreatedAt
	} else {
		o.CreatedAt = now
	}
	if err := o.Validate(); err != nil {
		return models.Objective{}, fmt.Errorf("metastore: objective: %w: %w", apperr.ErrInvalid, err)
	}
	if i >= 0 {
		items[i] = o
	} else {
		items = append(items, o)
	}
	if err := s.SaveObjectives(items); err != nil {
		return models.Objective{}, err
	}
	return o, nil
}

// ArchiveObjective marks an objective archived. Objectives are never deleted
// so that action and observation links stay resolvable.
func (s *Store) ArchiveObjective(id string) (models.Objective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := loadForUpdate[models.Objective](s, ObjectivesFile)
	if err != nil {
		return models.Objective{}, err
	}
	i := slices.IndexFunc(items, func(o models.Objective) bool { return o.ID == id })
	if i < 0 {
		return models.Objective{}, apperr.ErrNotFound
	}
	items[i].Status = models.ObjectiveArchived
	items[i].UpdatedAt = s.now().UTC()
	if err := s.SaveObjectives(items); err != nil {
		return models.Objective{}, err
	}
	return items[i], nil
}

// Indicators returns every indicator.
func (s *Store) Indicators() ([]models.Indicator, error) {
	return loadCollection[models.Indicator](s, IndicatorsFile)
}

// SaveIndicators replaces the indicator collection.
func (s *Store) SaveIndicators(items []models.Indicator) error {
	return saveCollection(s, IndicatorsFile, items)
}

// Indicator returns the indicator with id or apperr.ErrNotFound.
func (s *Store) Indicator(id string) (models.Indicator, error) {
	items, err := s.Indicators()
	if err != nil && !apperr.IsRecoverable(err) {
		return models.Indicator{}, err
	}
	i := slices.IndexFunc(items, func(ind models.Indicator) bool { return ind.ID == id })
	if i < 0 {
		return models.Indicator{}, apperr.ErrNotFound
	}
	return items[i], nil
}

// PutIndicator creates or replaces an indicator.
func (s *Store) PutIndicator(ind models.Indicator) (models.Indicator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := loadForUpdate[models.Indicator](s, IndicatorsFile)
	if err != nil {
		return models.Indicator{}, err
	}
	now := s.now().UTC()
	if ind.ID == "" {
		ind.ID = uuid.NewString()
	}
	if ind.Frequency == "" {
		ind.Frequency = models.FrequencyDaily
	}
	ind.UpdatedAt = now

	i := slices.IndexFunc(items, func(x models.Indicator) bool { return x.ID == ind.ID })
	if i >= 0 {
		ind.CreatedAt = items[i].CreatedAt
	} else {
		ind.CreatedAt = now
	}
	if err := ind.Validate(); err != nil {
		return models.Indicator{}, fmt.Errorf("metastore: indicator: %w: %w", apperr.ErrInvalid, err)
	}
	if i >= 0 {
		items[i] = ind
	} else {
		items = append(items, ind)
	}
	if err := s.SaveIndicators(items); err != nil {
		return models.Indicator{}, err
	}
	return ind, nil
}

// Templates returns every template sorted by name.
func (s *Store) Templates() ([]models.Template, error) {
	return loadCollection[models.Template](s, TemplatesFile)
}

// SaveTemplates replaces the template collection.
func (s *Store) SaveTemplates(items []models.Template) error {
	slices.SortFunc(items, func(a, b models.Template) int { return strings.Compare(a.Name, b.Name) })
	return saveCollection(s, TemplatesFile, items)
}

// Template returns the template named name or apperr.ErrNotFound.
func (s *Store) Template(name string) (models.Template, error) {
	items, err := s.Templates()
	if err != nil && !apperr.IsRecoverable(err) {
		return models.Template{}, err
	}
	i := slices.IndexFunc(items, func(t models.Template) bool { return strings.EqualFold(t.Name, name) })
	if i < 0 {
		return models.Template{}, apperr.ErrNotFound
	}
	return items[i], nil
}

// PutTemplate creates or replaces the template with the same name.
func (s *Store) PutTemplate(t models.Template) (models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.Name = strings.TrimSpace(t.Name)
	if err := t.Validate(); err != nil {
		return models.Template{}, fmt.Errorf("metastore: template: %w: %w", apperr.ErrInvalid, err)
	}
	items, err := loadForUpdate[models.Template](s, TemplatesFile)
	if err != nil {
		return models.Template{}, err
	}
	t.UpdatedAt = s.now().UTC()
	items = slices.DeleteFunc(items, func(x models.Template) bool { return strings.EqualFold(x.Name, t.Name) })
	items = append(items, t)
	if err := s.SaveTemplates(items); err != nil {
		return models.Template{}, err
	}
	return t, nil
}

// DeleteTemplate removes the named template.
func (s *Store) DeleteTemplate(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := loadForUpdate[models.Template](s, TemplatesFile)
	if err != nil {
		return err
	}
	n := len(items)
	items = slices.DeleteFunc(items, func(x models.Template) bool { return strings.EqualFold(x.Name, name) })
	if len(items) == n {
		return apperr.ErrNotFound
	}
	return s.SaveTemplates(items)
}
