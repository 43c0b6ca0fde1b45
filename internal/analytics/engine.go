// Package analytics derives completion, streak, trend and objective
// progress statistics from reconciled days and the observation ledger.
// Nothing is cached; every query reads what it needs.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/focusfive/internal/dayservice"
	"github.com/starford/focusfive/internal/models"
)

// Defaults for Config fields left at zero.
const (
	DefaultStreakLookback = 365
	DefaultShortWindow    = 7
	DefaultLongWindow     = 30
	DefaultThreshold      = 0.05
)

// Config tunes the streak and trend computations.
type Config struct {
	StreakLookback int
	Trend          TrendConfig
}

// DaySource is the read-only view of days the engine needs.
type DaySource interface {
	Snapshot(ctx context.Context, date time.Time) (*dayservice.Loaded, error)
}

// MetaSource is the read-only view of objectives, indicators and
// observations the engine needs.
type MetaSource interface {
	Objective(id string) (models.Objective, error)
	Objectives() ([]models.Objective, error)
	Indicator(id string) (models.Indicator, error)
	Indicators() ([]models.Indicator, error)
	LatestObservation(indicatorID string) (models.Observation, bool, error)
	RecentObservations(indicatorID string, n int) ([]models.Observation, error)
}

// Engine computes statistics on demand.
type Engine struct {
	days   DaySource
	meta   MetaSource
	cfg    Config
	logger *slog.Logger
}

// NewEngine creates an engine. Zero config fields take the package defaults.
func NewEngine(days DaySource, meta MetaSource, cfg Config, logger *slog.Logger) *Engine {
	if cfg.StreakLookback <= 0 {
		cfg.StreakLookback = DefaultStreakLookback
	}
	cfg.Trend = cfg.Trend.withDefaults()
	return &Engine{days: days, meta: meta, cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }
