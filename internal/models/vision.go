package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxVisionLength caps each category's vision text, in runes.
const MaxVisionLength = 1000

// Vision is the long-range statement for each category. It changes rarely
// and is shown alongside the day.
type Vision struct {
	Work      string    `json:"work"`
	Health    string    `json:"health"`
	Family    string    `json:"family"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Get returns the vision text of c.
func (v *Vision) Get(c Category) string {
	switch c {
	case CategoryHealth:
		return v.Health
	case CategoryFamily:
		return v.Family
	default:
		return v.Work
	}
}

// Set replaces the vision text of c, trimmed and cut to MaxVisionLength
// runes. It reports whether the text was cut.
func (v *Vision) Set(c Category, text string, now time.Time) bool {
	text = strings.TrimSpace(text)
	cut := utf8.RuneCountInString(text) > MaxVisionLength
	if cut {
		text = strings.TrimSpace(string([]rune(text)[:MaxVisionLength]))
	}
	switch c {
	case CategoryHealth:
		v.Health = text
	case CategoryFamily:
		v.Family = text
	default:
		v.Work = text
	}
	v.UpdatedAt = now
	return cut
}
