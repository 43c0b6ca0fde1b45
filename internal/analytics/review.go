package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/models"
)

// PeriodSummary totals the actions of each category over the days from
// start to end inclusive. Days without a file contribute nothing. Rate is
// completed over total, between 0 and 1.
func (e *Engine) PeriodSummary(ctx context.Context, start, end time.Time) (map[models.Category]models.CompletionSummary, error) {
	start, end = models.TruncateDate(start), models.TruncateDate(end)
	if end.Before(start) {
		return nil, fmt.Errorf("analytics: period ends before it starts: %w", apperr.ErrInvalid)
	}

	var mu sync.Mutex
	totals := make(map[models.Category]Tally, len(models.Categories))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		d := d
		g.Go(func() error {
			loaded, err := e.days.Snapshot(gCtx, d)
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					return nil
				}
				return err
			}
			stats := Completion(loaded.Day)
			mu.Lock()
			defer mu.Unlock()
			for c, t := range stats.Categories {
				sum := totals[c]
				sum.Completed += t.Completed
				sum.Total += t.Total
				totals[c] = sum
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analytics: period summary: %w", err)
	}

	out := make(map[models.Category]models.CompletionSummary, len(models.Categories))
	for _, c := range models.Categories {
		t := totals[c]
		s := models.CompletionSummary{Total: t.Total, Completed: t.Completed}
		if t.Total > 0 {
			s.Rate = float64(t.Completed) / float64(t.Total)
		}
		out[c] = s
	}
	return out, nil
}
