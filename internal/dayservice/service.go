// Package dayservice coordinates the day text files with their metadata:
// atomic writes of both representations and reconciliation on load.
package dayservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/checksum"
	"github.com/starford/focusfive/internal/codec"
	"github.com/starford/focusfive/internal/metastore"
	"github.com/starford/focusfive/internal/models"
	"github.com/starford/focusfive/internal/storage"
)

// DaysDir holds one markdown file per date.
const DaysDir = "days"

// DayPath returns the relative path of the text file for date.
func DayPath(date time.Time) string {
	return DaysDir + "/" + models.DateKey(date) + ".md"
}

// DateFromPath extracts the date from a day file path.
func DateFromPath(path string) (time.Time, bool) {
	name := path[strings.LastIndexByte(path, '/')+1:]
	key, ok := strings.CutSuffix(name, ".md")
	if !ok {
		return time.Time{}, false
	}
	date, err := models.ParseDateKey(key)
	return date, err == nil
}

// Loaded is a reconciled day together with what was noticed while loading it.
type Loaded struct {
	Day      models.Day       `json:"day"`
	Warnings []apperr.Warning `json:"warnings"`
	Checksum string           `json:"checksum"`
}

// Service coordinates storage, codec and metadata operations for days.
type Service struct {
	store  storage.Provider
	meta   *metastore.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new day service.
func NewService(store storage.Provider, meta *metastore.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: store, meta: meta, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Meta exposes the metadata store the service writes through.
func (s *Service) Meta() *metastore.Store { return s.meta }

// LoadDay reads, parses and reconciles the day for date. When reconciliation
// changed the metadata it is written back, unless the text failed to parse or
// the metadata could not be read cleanly. A missing file is apperr.ErrNotFound.
func (s *Service) LoadDay(_ context.Context, date time.Time) (*Loaded, error) {
	return s.load(date, true)
}

// Snapshot is LoadDay without any writes, for read-only consumers.
func (s *Service) Snapshot(_ context.Context, date time.Time) (*Loaded, error) {
	return s.load(date, false)
}

func (s *Service) load(date time.Time, persist bool) (*Loaded, error) {
	date = models.TruncateDate(date)
	data, err := s.store.Read(DayPath(date))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("dayservice: %w", err)
	}
	sum := checksum.Sum(data)

	day, warnings, parsed := s.parse(date, data)

	stored, metaErr := s.meta.LoadDayMeta(date)
	if metaErr != nil {
		warnings = append(warnings, apperr.WarningFor(metaErr))
	}

	meta, rw, changed := Reconcile(&day, stored, s.now())
	warnings = append(warnings, rw...)

	if persist && parsed && metaErr == nil && (changed || stored.TextChecksum != sum) {
		meta.TextChecksum = sum
		if err := s.meta.SaveDayMeta(meta); err != nil {
			s.logger.Warn("dayservice: persist reconciled metadata failed",
				slog.String("date", models.DateKey(date)),
				slog.String("error", err.Error()))
			warnings = append(warnings, apperr.Warning{Kind: apperr.WarnMetadataDegraded, Message: err.Error()})
		}
	}
	s.logWarnings(date, warnings)
	return &Loaded{Day: day, Warnings: nonNilSlice(warnings), Checksum: sum}, nil
}

// parse turns data into a day for date. On a parse error the result is an
// empty day with a fallback warning and parsed is false.
func (s *Service) parse(date time.Time, data []byte) (models.Day, []apperr.Warning, bool) {
	res, err := codec.Parse(data)
	if err != nil {
		return models.NewDay(date), []apperr.Warning{apperr.WarningFor(err)}, false
	}
	warnings := res.Warnings
	if !res.Day.Date.Equal(date) {
		warnings = append(warnings, apperr.Warning{
			Kind:    apperr.WarnDateMismatch,
			Message: fmt.Sprintf("header date %s differs from file date %s", res.Day.Key(), models.DateKey(date)),
		})
		res.Day.Date = date
	}
	return res.Day, warnings, true
}

// SaveDay writes day as text and then its metadata, each atomically. Actions
// keep the IDs the caller supplied; the rest are reconciled as on load.
// Metadata that could not be read cleanly is never replaced. A
// non-empty ifMatch must equal the checksum of the current text file.
func (s *Service) SaveDay(_ context.Context, day models.Day, ifMatch string) (*Loaded, error) {
	if day.Date.IsZero() {
		return nil, fmt.Errorf("dayservice: date is required: %w", apperr.ErrInvalid)
	}
	warnings := codec.Normalize(&day)
	if err := day.Validate(); err != nil {
		return nil, fmt.Errorf("dayservice: %w: %w", apperr.ErrInvalid, err)
	}
	if err := s.checkObjectiveLinks(day); err != nil {
		return nil, err
	}
	path := DayPath(day.Date)

	if ifMatch != "" {
		existing, err := s.store.Read(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, apperr.ErrNotFound
		case err != nil:
			return nil, fmt.Errorf("dayservice: %w", err)
		case !checksum.Matches(existing, ifMatch):
			return nil, apperr.ErrConflict
		}
	}

	stored, metaErr := s.meta.LoadDayMeta(day.Date)
	if metaErr != nil {
		warnings = append(warnings, apperr.WarningFor(metaErr))
	}
	meta, rw, _ := Reconcile(&day, stored, s.now())
	warnings = append(warnings, rw...)

	data := codec.Serialize(day)
	if err := s.store.Write(path, data); err != nil {
		return nil, fmt.Errorf("dayservice: save %s: %w", models.DateKey(day.Date), err)
	}
	sum := checksum.Sum(data)

	// A damaged or newer metadata file still holds identities this build
	// could not read; only the text is written until it is repaired.
	if metaErr != nil {
		s.logger.Warn("dayservice: metadata left untouched",
			slog.String("date", models.DateKey(day.Date)),
			slog.String("error", metaErr.Error()))
	} else {
		meta.TextChecksum = sum
		if err := s.meta.SaveDayMeta(meta); err != nil {
			return nil, fmt.Errorf("dayservice: save metadata %s: %w", models.DateKey(day.Date), err)
		}
	}
	s.logWarnings(day.Date, warnings)
	return &Loaded{Day: day, Warnings: nonNilSlice(warnings), Checksum: sum}, nil
}

// checkObjectiveLinks rejects metadata links to objectives that do not
// exist. Objective lines are free text and are not checked.
func (s *Service) checkObjectiveLinks(day models.Day) error {
	for _, e := range day.Entries() {
		for _, a := range e.Actions {
			if a.Meta == nil || a.Meta.ObjectiveID == nil || *a.Meta.ObjectiveID == "" {
				continue
			}
			if slices.Contains(a.ObjectiveIDs, *a.Meta.ObjectiveID) {
				continue
			}
			if err := s.checkObjective(*a.Meta.ObjectiveID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) checkObjective(id string) error {
	if _, err := s.meta.Objective(id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("dayservice: unknown objective %q: %w", id, apperr.ErrInvalid)
		}
		return fmt.Errorf("dayservice: %w", err)
	}
	return nil
}

// Exists reports whether date has a text file.
func (s *Service) Exists(date time.Time) bool {
	_, err := s.store.Read(DayPath(models.TruncateDate(date)))
	return err == nil
}

// DeleteDay removes the text and metadata files of date.
func (s *Service) DeleteDay(_ context.Context, date time.Time) error {
	if err := s.store.Delete(DayPath(date)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("dayservice: %w", err)
	}
	return s.meta.DeleteDayMeta(date)
}

// Dates returns the dates that have a text file, oldest first.
func (s *Service) Dates(_ context.Context) ([]time.Time, error) {
	files, err := s.store.List(DaysDir, ".md")
	if err != nil {
		return nil, fmt.Errorf("dayservice: %w", err)
	}
	out := make([]time.Time, 0, len(files))
	for _, f := range files {
		if d, ok := DateFromPath(f.Path); ok {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out, nil
}

// ActionRef locates an action's metadata within a day.
type ActionRef struct {
	Meta     models.ActionMeta `json:"meta"`
	Category models.Category   `json:"category,omitempty"`
	Position int               `json:"position"`
	Retired  bool              `json:"retired"`
}

// ActionByID finds the action with id on date, including actions that have
// since been removed from the text.
func (s *Service) ActionByID(ctx context.Context, date time.Time, id string) (*ActionRef, error) {
	loaded, err := s.LoadDay(ctx, date)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if loaded != nil {
		for _, e := range loaded.Day.Entries() {
			for i, a := range e.Actions {
				if a.ID == id && a.Meta != nil {
					return &ActionRef{Meta: *a.Meta, Category: e.Kind, Position: i}, nil
				}
			}
		}
	}
	meta, metaErr := s.meta.LoadDayMeta(date)
	if metaErr != nil && !apperr.IsRecoverable(metaErr) {
		return nil, metaErr
	}
	if m, ok := meta.Find(id); ok {
		return &ActionRef{Meta: m, Position: -1, Retired: true}, nil
	}
	return nil, apperr.ErrNotFound
}

// ActionPatch lists the action fields a caller may change. Nil fields are kept.
type ActionPatch struct {
	Text          *string              `json:"text,omitempty"`
	Completed     *bool                `json:"completed,omitempty"`
	Status        *models.ActionStatus `json:"status,omitempty"`
	EffortMinutes *int                 `json:"effort_minutes,omitempty"`
	Note          *string              `json:"note,omitempty"`
	ObjectiveID   *string              `json:"objective_id,omitempty"`
}

// UpdateAction applies patch to the action with id on date and saves the day.
// A patched objective replaces every objective line of the action.
func (s *Service) UpdateAction(ctx context.Context, date time.Time, id string, patch ActionPatch) (*Loaded, error) {
	loaded, err := s.LoadDay(ctx, date)
	if err != nil {
		return nil, err
	}
	day := loaded.Day
	var target *models.Action
	for _, e := range day.Entries() {
		for i := range e.Actions {
			if e.Actions[i].ID == id {
				target = &e.Actions[i]
			}
		}
	}
	if target == nil {
		return nil, apperr.ErrNotFound
	}
	meta := models.ActionMeta{}
	if target.Meta != nil {
		meta = *target.Meta
	}

	if patch.Text != nil {
		target.Text = *patch.Text
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, fmt.Errorf("dayservice: unknown status %q: %w", *patch.Status, apperr.ErrInvalid)
		}
		meta.Status = *patch.Status
		target.Completed = meta.Status == models.StatusDone
	}
	if patch.Completed != nil {
		target.Completed = *patch.Completed
		if target.Completed {
			meta.Status = models.StatusDone
		} else if meta.Status == models.StatusDone {
			meta.Status = models.StatusPlanned
		}
	}
	if patch.EffortMinutes != nil {
		if *patch.EffortMinutes < 0 {
			return nil, fmt.Errorf("dayservice: effort must not be negative: %w", apperr.ErrInvalid)
		}
		meta.EffortMinutes = patch.EffortMinutes
	}
	if patch.Note != nil {
		meta.Note = emptyToNil(patch.Note)
	}
	if patch.ObjectiveID != nil {
		meta.ObjectiveID = emptyToNil(patch.ObjectiveID)
		target.ObjectiveIDs = nil
		if meta.ObjectiveID != nil {
			if err := s.checkObjective(*meta.ObjectiveID); err != nil {
				return nil, err
			}
			target.ObjectiveIDs = []string{*meta.ObjectiveID}
		}
	}
	target.Meta = &meta
	return s.SaveDay(ctx, day, loaded.Checksum)
}

func (s *Service) logWarnings(date time.Time, warnings []apperr.Warning) {
	for _, w := range warnings {
		s.logger.Warn("dayservice: "+string(w.Kind),
			slog.String("date", models.DateKey(date)),
			slog.Int("line", w.Line),
			slog.String("message", w.Message))
	}
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// nonNilSlice returns s if non-nil, otherwise an empty slice.
// Ensures JSON serialization produces [] instead of null.
func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
