package analytics

import (
	"context"
	"time"

	"github.com/starford/focusfive/internal/models"
)

// AttentionThreshold is the percentage below which a category needs attention.
const AttentionThreshold = 50.0

// Tally counts completed actions against the total.
type Tally struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

func newTally(completed, total int) Tally {
	t := Tally{Completed: completed, Total: total}
	if total > 0 {
		t.Percentage = float64(completed) * 100 / float64(total)
	}
	return t
}

// Stats summarizes completion for one day.
type Stats struct {
	Date           string                    `json:"date"`
	Overall        Tally                     `json:"overall"`
	Categories     map[models.Category]Tally `json:"categories"`
	Best           models.Category           `json:"best,omitempty"`
	NeedsAttention []models.Category         `json:"needs_attention"`
}

// Completion computes the stats of day. Blank action slots are placeholders
// and are not counted, so a fresh day with three empty slots per category
// has a total of 0 rather than 9. Best is the first category in fixed order
// with the highest percentage and stays empty while nothing is completed;
// ties never move it to a later category.
func Completion(day models.Day) Stats {
	s := Stats{
		Date:           day.Key(),
		Categories:     make(map[models.Category]Tally, len(models.Categories)),
		NeedsAttention: []models.Category{},
	}
	var done, total int
	best := -1.0
	for _, e := range day.Entries() {
		var d, n int
		for _, a := range e.Actions {
			if a.Text == "" {
				continue
			}
			n++
			if a.Completed {
				d++
			}
		}
		t := newTally(d, n)
		s.Categories[e.Kind] = t
		done += d
		total += n

		if t.Completed > 0 && t.Percentage > best {
			best = t.Percentage
			s.Best = e.Kind
		}
		if t.Total > 0 && t.Percentage < AttentionThreshold {
			s.NeedsAttention = append(s.NeedsAttention, e.Kind)
		}
	}
	s.Overall = newTally(done, total)
	return s
}

// DayStats loads date and computes its completion stats.
func (e *Engine) DayStats(ctx context.Context, date time.Time) (Stats, error) {
	loaded, err := e.days.Snapshot(ctx, date)
	if err != nil {
		return Stats{}, err
	}
	return Completion(loaded.Day), nil
}

// qualifies reports whether day counts toward a streak.
func qualifies(day models.Day) bool {
	for _, e := range day.Entries() {
		for _, a := range e.Actions {
			if a.Completed && a.Text != "" {
				return true
			}
		}
	}
	return false
}
