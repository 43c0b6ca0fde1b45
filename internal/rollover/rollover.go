// Package rollover creates the current day's file on a schedule so a fresh
// day is waiting before anyone opens it.
package rollover

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/starford/focusfive/internal/dayservice"
	"github.com/starford/focusfive/internal/models"
)

// DefaultSchedule runs five minutes after midnight.
const DefaultSchedule = "5 0 * * *"

const stopTimeout = 5 * time.Second

// Config controls what a rollover puts into the new day.
type Config struct {
	Schedule  string
	Template  string
	CarryOver bool
}

// CreatedFunc is called with the date of each day a rollover creates.
type CreatedFunc func(date time.Time)

// Job ensures today's day file exists.
type Job struct {
	days      *dayservice.Service
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
	onCreated CreatedFunc
}

// Option configures a Job.
type Option func(*Job)

// WithClock overrides the time source used to decide what "today" is.
func WithClock(now func() time.Time) Option {
	return func(j *Job) { j.now = now }
}

// WithCreated registers a callback for newly created days.
func WithCreated(fn CreatedFunc) Option {
	return func(j *Job) { j.onCreated = fn }
}

// New creates a rollover job.
func New(days *dayservice.Service, cfg Config, logger *slog.Logger, opts ...Option) *Job {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	j := &Job{days: days, cfg: cfg, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run creates today's file when it is missing and reports whether it did.
func (j *Job) Run(ctx context.Context) (bool, error) {
	today := models.TruncateDate(j.now())
	loaded, created, err := j.days.EnsureDay(ctx, today, dayservice.EnsureOptions{
		Template:  j.cfg.Template,
		CarryOver: j.cfg.CarryOver,
	})
	if err != nil {
		return false, fmt.Errorf("rollover: %s: %w", models.DateKey(today), err)
	}
	if !created {
		return false, nil
	}
	j.logger.Info("day rolled over",
		slog.String("date", models.DateKey(today)),
		slog.String("template", j.cfg.Template),
		slog.Bool("carry_over", j.cfg.CarryOver),
		slog.Int("warnings", len(loaded.Warnings)),
	)
	if j.onCreated != nil {
		j.onCreated(today)
	}
	return true, nil
}

// Start runs the job once immediately, then on the configured schedule until
// ctx is cancelled. Running jobs are given a short grace period on shutdown.
func (j *Job) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(j.cfg.Schedule, func() { j.runLogged(ctx) }); err != nil {
		return fmt.Errorf("rollover: schedule %q: %w", j.cfg.Schedule, err)
	}

	j.runLogged(ctx)
	c.Start()
	j.logger.Info("rollover scheduled", slog.String("schedule", j.cfg.Schedule))

	<-ctx.Done()
	select {
	case <-c.Stop().Done():
	case <-time.After(stopTimeout):
		j.logger.Warn("rollover stop timed out waiting for a running job")
	}
	return nil
}

func (j *Job) runLogged(ctx context.Context) {
	if _, err := j.Run(ctx); err != nil {
		j.logger.Error("rollover failed", slog.String("error", err.Error()))
	}
}
