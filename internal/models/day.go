// Package models defines the domain types for FocusFive.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Limits shared by the codec, the coordinator and the API layer.
const (
	MaxActionLength     = 500
	MaxGoalLength       = 100
	MaxReflectionLength = 1000

	MinActions     = 1
	MaxActions     = 5
	DefaultActions = 3
)

// DateLayout is the on-disk key format for a day.
const DateLayout = "2006-01-02"

// Category is one of the three fixed life areas tracked per day.
type Category string

const (
	CategoryWork   Category = "work"
	CategoryHealth Category = "health"
	CategoryFamily Category = "family"
)

// Categories lists every category in serialization order.
var Categories = [3]Category{CategoryWork, CategoryHealth, CategoryFamily}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	return c == CategoryWork || c == CategoryHealth || c == CategoryFamily
}

// Title returns the display name used in section headers.
func (c Category) Title() string {
	switch c {
	case CategoryWork:
		return "Work"
	case CategoryHealth:
		return "Health"
	case CategoryFamily:
		return "Family"
	}
	return string(c)
}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, true
		}
	}
	return "", false
}

// Day is one date's complete record.
type Day struct {
	Date      time.Time     `json:"date"`
	DayNumber *int          `json:"day_number,omitempty"`
	Work      CategoryEntry `json:"work"`
	Health    CategoryEntry `json:"health"`
	Family    CategoryEntry `json:"family"`
}

// CategoryEntry holds one category's goal, reflection and actions.
// Actions always has between MinActions and MaxActions entries.
type CategoryEntry struct {
	Kind       Category `json:"kind"`
	Goal       string   `json:"goal,omitempty"`
	Reflection string   `json:"reflection,omitempty"`
	Actions    []Action `json:"actions"`
}

// Action is a single trackable item. ID is empty until the coordinator
// associates the action with its stored metadata. ObjectiveIDs are the
// objectives named on the indented "objective:" lines below the checkbox;
// the first one is mirrored into Meta.ObjectiveID.
type Action struct {
	ID           string      `json:"id,omitempty"`
	Text         string      `json:"text"`
	Completed    bool        `json:"completed"`
	ObjectiveIDs []string    `json:"objective_ids,omitempty"`
	Meta         *ActionMeta `json:"meta,omitempty"`
}

// NewDay returns an empty day with DefaultActions blank slots per category.
func NewDay(date time.Time) Day {
	d := Day{Date: TruncateDate(date)}
	for _, c := range Categories {
		e := d.Entry(c)
		e.Kind = c
		e.Actions = make([]Action, DefaultActions)
	}
	return d
}

// Entry returns a pointer to the entry for c. It panics on an unknown category.
func (d *Day) Entry(c Category) *CategoryEntry {
	switch c {
	case CategoryWork:
		return &d.Work
	case CategoryHealth:
		return &d.Health
	case CategoryFamily:
		return &d.Family
	}
	panic(fmt.Sprintf("models: unknown category %q", c))
}

// Entries returns the three entries in fixed order.
func (d *Day) Entries() [3]*CategoryEntry {
	return [3]*CategoryEntry{&d.Work, &d.Health, &d.Family}
}

// Key returns the date formatted with DateLayout.
func (d *Day) Key() string {
	return DateKey(d.Date)
}

// Validate checks the structural invariants of a day.
func (d *Day) Validate() error {
	if d.Date.IsZero() {
		return fmt.Errorf("day: date is required")
	}
	if d.DayNumber != nil && *d.DayNumber < 0 {
		return fmt.Errorf("day: day number must not be negative")
	}
	for _, e := range d.Entries() {
		if n := len(e.Actions); n < MinActions || n > MaxActions {
			return fmt.Errorf("day: %s has %d actions, want %d..%d", e.Kind, n, MinActions, MaxActions)
		}
	}
	return nil
}

// DateKey formats t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDateKey parses a YYYY-MM-DD key into a UTC midnight time.
func ParseDateKey(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// TruncateDate drops the clock part of t, keeping its calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FileInfo is a lightweight description of a stored file.
type FileInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
