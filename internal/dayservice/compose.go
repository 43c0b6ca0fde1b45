package dayservice

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/models"
)

// NewDayFromTemplate creates the day for date pre-populated with the named
// template. It fails with apperr.ErrAlreadyExists when the day has a file.
func (s *Service) NewDayFromTemplate(ctx context.Context, date time.Time, name string) (*Loaded, error) {
	tpl, err := s.meta.Template(name)
	if err != nil {
		return nil, fmt.Errorf("dayservice: template %q: %w", name, err)
	}
	day, err := s.blankDay(ctx, date)
	if err != nil {
		return nil, err
	}
	applyTemplate(&day, tpl)
	return s.SaveDay(ctx, day, "")
}

// CarryOver copies the unfinished actions of from into the day to, filling
// empty slots first and never exceeding MaxActions. Actions already present
// in to are skipped. The target day is created when missing.
func (s *Service) CarryOver(ctx context.Context, from, to time.Time) (*Loaded, error) {
	src, err := s.Snapshot(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("dayservice: carry over from %s: %w", models.DateKey(from), err)
	}
	var day models.Day
	switch dst, err := s.LoadDay(ctx, to); {
	case err == nil:
		day = dst.Day
	case errors.Is(err, apperr.ErrNotFound):
		if day, err = s.blankDay(ctx, to); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	carryInto(&day, src.Day)
	return s.SaveDay(ctx, day, "")
}

// EnsureOptions controls how a missing day is created.
type EnsureOptions struct {
	Template  string
	CarryOver bool
}

// EnsureDay returns the day for date, creating it from opts when it has no
// file yet. The bool reports whether the day was created.
func (s *Service) EnsureDay(ctx context.Context, date time.Time, opts EnsureOptions) (*Loaded, bool, error) {
	loaded, err := s.LoadDay(ctx, date)
	if err == nil {
		return loaded, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	day, err := s.blankDay(ctx, date)
	if err != nil {
		return nil, false, err
	}
	if opts.Template != "" {
		tpl, err := s.meta.Template(opts.Template)
		switch {
		case err == nil:
			applyTemplate(&day, tpl)
		case errors.Is(err, apperr.ErrNotFound):
			s.logger.Warn("dayservice: template not found, creating empty day")
		default:
			return nil, false, err
		}
	}
	if opts.CarryOver {
		prev := models.TruncateDate(date).AddDate(0, 0, -1)
		if src, err := s.Snapshot(ctx, prev); err == nil {
			carryInto(&day, src.Day)
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return nil, false, err
		}
	}
	loaded, err = s.SaveDay(ctx, day, "")
	if err != nil {
		return nil, false, err
	}
	return loaded, true, nil
}

// blankDay returns an empty day for date with its counter continued from
// the previous day, or ErrAlreadyExists when date already has a file.
func (s *Service) blankDay(ctx context.Context, date time.Time) (models.Day, error) {
	date = models.TruncateDate(date)
	if s.Exists(date) {
		return models.Day{}, apperr.ErrAlreadyExists
	}
	day := models.NewDay(date)
	if prev, err := s.Snapshot(ctx, date.AddDate(0, 0, -1)); err == nil && prev.Day.DayNumber != nil {
		n := *prev.Day.DayNumber + 1
		day.DayNumber = &n
	}
	return day, nil
}

func applyTemplate(day *models.Day, tpl models.Template) {
	for _, c := range models.Categories {
		texts := tpl.Actions[c]
		if len(texts) == 0 {
			continue
		}
		e := day.Entry(c)
		e.Actions = make([]models.Action, 0, len(texts))
		for _, t := range texts {
			e.Actions = append(e.Actions, models.Action{
				Text: t,
				Meta: &models.ActionMeta{Origin: models.OriginTemplate},
			})
		}
	}
}

func carryInto(day *models.Day, src models.Day) {
	for _, c := range models.Categories {
		dst := day.Entry(c)
		for _, a := range src.Entry(c).Actions {
			if a.Completed || a.Text == "" || hasText(dst.Actions, a.Text) {
				continue
			}
			carried := models.Action{
				Text:         a.Text,
				ObjectiveIDs: slices.Clone(a.ObjectiveIDs),
				Meta:         &models.ActionMeta{Origin: models.OriginCarryOver},
			}
			if a.Meta != nil {
				carried.Meta.ObjectiveID = a.Meta.ObjectiveID
				carried.Meta.EffortMinutes = a.Meta.EffortMinutes
			}
			if i := emptySlot(dst.Actions); i >= 0 {
				dst.Actions[i] = carried
			} else if len(dst.Actions) < models.MaxActions {
				dst.Actions = append(dst.Actions, carried)
			}
		}
	}
}

func hasText(actions []models.Action, text string) bool {
	for _, a := range actions {
		if sameText(a.Text, text) {
			return true
		}
	}
	return false
}

func emptySlot(actions []models.Action) int {
	for i, a := range actions {
		if a.Text == "" && !a.Completed {
			return i
		}
	}
	return -1
}
