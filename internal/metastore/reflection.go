package metastore

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/models"
)

type visionFile struct {
	Version int           `json:"version"`
	Vision  models.Vision `json:"vision"`
}

type reviewFile struct {
	Version int           `json:"version"`
	Review  models.Review `json:"review"`
}

// Vision returns the stored vision. A missing file yields an empty vision.
func (s *Store) Vision() (models.Vision, error) {
	var f visionFile
	err := s.loadJSON(VisionFile, &f)
	var degraded *apperr.MetadataDegraded
	if errors.As(err, &degraded) {
		s.logDegraded(err)
		return models.Vision{}, err
	}
	return f.Vision, err
}

// PutVision replaces the vision text of every category in texts and
// reports which of them had to be cut to models.MaxVisionLength.
func (s *Store) PutVision(texts map[models.Category]string) (models.Vision, []models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.Vision()
	if err != nil {
		return models.Vision{}, nil, fmt.Errorf("metastore: refusing to rewrite %s: %w", VisionFile, err)
	}
	now := s.now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	var cut []models.Category
	for _, c := range models.Categories {
		text, ok := texts[c]
		if !ok {
			continue
		}
		if v.Set(c, text, now) {
			cut = append(cut, c)
		}
	}
	if err := s.writeJSON(VisionFile, visionFile{Version: SchemaVersion, Vision: v}); err != nil {
		return models.Vision{}, nil, err
	}
	return v, cut, nil
}

// ReviewPath returns the relative path of the review for a period such as
// "2025-W03" or "2025-01".
func ReviewPath(periodID string) string {
	return ReviewsDir + "/" + periodID + ".json"
}

// Review returns the review of periodID or apperr.ErrNotFound.
func (s *Store) Review(periodID string) (models.Review, error) {
	var f reviewFile
	if err := s.loadJSON(ReviewPath(periodID), &f); err != nil {
		s.logDegraded(err)
		return f.Review, err
	}
	if f.Review.PeriodID == "" {
		return models.Review{}, apperr.ErrNotFound
	}
	return f.Review, nil
}

// SaveReview creates or replaces the review of r.PeriodID. The identity and
// creation time of an existing review are kept.
func (s *Store) SaveReview(r models.Review) (models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.Review(r.PeriodID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		r.ID = uuid.NewString()
		r.CreatedAt = s.now().UTC()
	case err != nil:
		return models.Review{}, fmt.Errorf("metastore: refusing to rewrite %s: %w", ReviewPath(r.PeriodID), err)
	default:
		r.ID = prev.ID
		r.CreatedAt = prev.CreatedAt
	}
	r.UpdatedAt = s.now().UTC()
	for _, list := range []*[]string{&r.Wins, &r.Challenges, &r.Learnings, &r.NextActions} {
		if *list == nil {
			*list = []string{}
		}
	}
	if err := r.Validate(); err != nil {
		return models.Review{}, fmt.Errorf("metastore: review: %w: %w", apperr.ErrInvalid, err)
	}
	if err := s.writeJSON(ReviewPath(r.PeriodID), reviewFile{Version: SchemaVersion, Review: r}); err != nil {
		return models.Review{}, err
	}
	return r, nil
}

// Reviews returns every readable review ordered by period. Damaged files
// are logged and skipped.
func (s *Store) Reviews() ([]models.Review, error) {
	files, err := s.fs.List(ReviewsDir, ".json")
	if err != nil {
		return nil, fmt.Errorf("metastore: %w", err)
	}
	out := make([]models.Review, 0, len(files))
	for _, f := range files {
		id := strings.TrimSuffix(f.Path[strings.LastIndexByte(f.Path, '/')+1:], ".json")
		r, err := s.Review(id)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) && !apperr.IsRecoverable(err) {
			return nil, err
		}
		if r.PeriodID == "" {
			s.logger.Warn("metastore: skipping review", slog.String("path", f.Path))
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b models.Review) int { return strings.Compare(a.StartDate+a.PeriodID, b.StartDate+b.PeriodID) })
	return out, nil
}
