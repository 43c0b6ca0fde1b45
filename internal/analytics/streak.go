package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/models"
)

// Streak is a run of consecutive qualifying days.
type Streak struct {
	Days  int    `json:"days"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`

	// Capped is set when the scan stopped at the lookback limit.
	Capped bool `json:"capped"`
}

// Streak counts consecutive days with at least one completed action, walking
// backward from the most recent day at or before asOf that has a file. The
// walk stops at the first missing day or the first day without completions.
// At most the configured lookback of days is examined, counting from asOf.
func (e *Engine) Streak(ctx context.Context, asOf time.Time) (Streak, error) {
	asOf = models.TruncateDate(asOf)
	var s Streak
	cur := asOf
	seen := false
	for step := 0; ; step++ {
		if step >= e.cfg.StreakLookback {
			s.Capped = seen
			break
		}
		if err := ctx.Err(); err != nil {
			return Streak{}, err
		}
		loaded, err := e.days.Snapshot(ctx, cur)
		if errors.Is(err, apperr.ErrNotFound) {
			if seen {
				break
			}
			cur = cur.AddDate(0, 0, -1)
			continue
		}
		if err != nil {
			return Streak{}, fmt.Errorf("analytics: streak: %w", err)
		}
		seen = true
		if !qualifies(loaded.Day) {
			break
		}
		if s.Days == 0 {
			s.End = models.DateKey(cur)
		}
		s.Days++
		s.Start = models.DateKey(cur)
		cur = cur.AddDate(0, 0, -1)
	}
	e.logger.Debug("analytics: streak computed",
		slog.String("as_of", models.DateKey(asOf)),
		slog.Int("days", s.Days))
	return s, nil
}
