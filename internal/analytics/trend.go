package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/models"
)

// Direction classifies a trend.
type Direction string

const (
	Up     Direction = "up"
	Down   Direction = "down"
	Stable Direction = "stable"
)

// TrendConfig sets the trailing windows, in samples, and the relative change
// that counts as movement.
type TrendConfig struct {
	ShortWindow int
	LongWindow  int
	Threshold   float64
}

func (c TrendConfig) withDefaults() TrendConfig {
	if c.ShortWindow <= 0 {
		c.ShortWindow = DefaultShortWindow
	}
	if c.LongWindow <= 0 {
		c.LongWindow = DefaultLongWindow
	}
	if c.LongWindow < c.ShortWindow {
		c.LongWindow = c.ShortWindow
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	return c
}

// TrendResult is the classification of a series.
type TrendResult struct {
	Direction Direction `json:"direction"`
	ShortMean float64   `json:"short_mean"`
	LongMean  float64   `json:"long_mean"`
	Change    float64   `json:"change"`
	Samples   int       `json:"samples"`

	// Insufficient is set when the series is shorter than the short window.
	Insufficient bool `json:"insufficient"`
}

// Trend compares the mean of the last ShortWindow samples with the mean of
// the last LongWindow samples. The series is ordered oldest first. Change is
// relative to the long mean; when that is zero any positive short mean is Up.
func Trend(series []float64, cfg TrendConfig) TrendResult {
	cfg = cfg.withDefaults()
	r := TrendResult{Direction: Stable, Samples: len(series)}
	if len(series) < cfg.ShortWindow {
		r.Insufficient = true
		return r
	}
	r.ShortMean = mean(series[len(series)-cfg.ShortWindow:])
	r.LongMean = mean(series[max(0, len(series)-cfg.LongWindow):])

	if r.LongMean == 0 {
		if r.ShortMean > 0 {
			r.Direction = Up
		}
		return r
	}
	r.Change = (r.ShortMean - r.LongMean) / math.Abs(r.LongMean)
	switch {
	case r.Change > cfg.Threshold:
		r.Direction = Up
	case r.Change < -cfg.Threshold:
		r.Direction = Down
	}
	return r
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// loadConcurrency bounds parallel day loads for windowed queries.
const loadConcurrency = 4

// CategoryTrend classifies the daily completion percentage of category over
// the long window ending at asOf. Days without a file count as 0%.
func (e *Engine) CategoryTrend(ctx context.Context, category models.Category, asOf time.Time) (TrendResult, error) {
	if !category.Valid() {
		return TrendResult{}, fmt.Errorf("analytics: unknown category %q: %w", category, apperr.ErrInvalid)
	}
	series, err := e.CategorySeries(ctx, category, models.TruncateDate(asOf), e.cfg.Trend.LongWindow)
	if err != nil {
		return TrendResult{}, err
	}
	return Trend(series, e.cfg.Trend), nil
}

// CategorySeries returns the completion percentage of category for the n
// days ending at end, oldest first.
func (e *Engine) CategorySeries(ctx context.Context, category models.Category, end time.Time, n int) ([]float64, error) {
	series := make([]float64, n)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i := 0; i < n; i++ {
		i := i
		date := end.AddDate(0, 0, i-n+1)
		g.Go(func() error {
			loaded, err := e.days.Snapshot(gCtx, date)
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					return nil
				}
				return err
			}
			series[i] = Completion(loaded.Day).Categories[category].Percentage
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analytics: category series: %w", err)
	}
	return series, nil
}

// IndicatorTrend classifies the most recent observations of an indicator.
func (e *Engine) IndicatorTrend(_ context.Context, indicatorID string) (TrendResult, error) {
	if _, err := e.meta.Indicator(indicatorID); err != nil {
		return TrendResult{}, fmt.Errorf("analytics: indicator %q: %w", indicatorID, err)
	}
	obs, err := e.meta.RecentObservations(indicatorID, e.cfg.Trend.LongWindow)
	if err != nil {
		return TrendResult{}, fmt.Errorf("analytics: indicator trend: %w", err)
	}
	series := make([]float64, len(obs))
	for i, o := range obs {
		series[i] = o.Value
	}
	return Trend(series, e.cfg.Trend), nil
}
