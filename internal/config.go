package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/robfig/cron/v3"

	"github.com/starford/focusfive/internal/analytics"
	"github.com/starford/focusfive/internal/rollover"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Data      DataConfig        `yaml:"data"`
	Auth      AuthConfig        `yaml:"auth"`
	Analytics AnalyticsConfig   `yaml:"analytics"`
	Rollover  RolloverConfig    `yaml:"rollover"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Data.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Analytics.Validate(); err != nil {
		return err
	}
	return c.Rollover.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" env:"FOCUSFIVE_LOG_LEVEL"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" env:"FOCUSFIVE_HTTP_PORT"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DataConfig holds the base path of day files and their side-store.
type DataConfig struct {
	Path string `yaml:"path" env:"FOCUSFIVE_DATA_PATH"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" env:"FOCUSFIVE_AUTH_MODE"`
	Token string `yaml:"token" env:"FOCUSFIVE_AUTH_TOKEN"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// AnalyticsConfig tunes streak and trend computation.
type AnalyticsConfig struct {
	StreakLookback int     `yaml:"streak_lookback" env:"FOCUSFIVE_STREAK_LOOKBACK"`
	ShortWindow    int     `yaml:"short_window" env:"FOCUSFIVE_TREND_SHORT_WINDOW"`
	LongWindow     int     `yaml:"long_window" env:"FOCUSFIVE_TREND_LONG_WINDOW"`
	Threshold      float64 `yaml:"threshold" env:"FOCUSFIVE_TREND_THRESHOLD"`
}

// Validate validates the analytics configuration.
func (c *AnalyticsConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.StreakLookback, validation.Required, validation.Min(1)),
		validation.Field(&c.ShortWindow, validation.Required, validation.Min(1)),
		validation.Field(&c.LongWindow, validation.Required, validation.Min(1)),
		validation.Field(&c.Threshold, validation.Min(0.0), validation.Max(1.0)),
	); err != nil {
		return err
	}
	if c.LongWindow < c.ShortWindow {
		return fmt.Errorf("analytics: long_window %d is shorter than short_window %d", c.LongWindow, c.ShortWindow)
	}
	return nil
}

// Engine converts the configuration for the analytics engine.
func (c *AnalyticsConfig) Engine() analytics.Config {
	return analytics.Config{
		StreakLookback: c.StreakLookback,
		Trend: analytics.TrendConfig{
			ShortWindow: c.ShortWindow,
			LongWindow:  c.LongWindow,
			Threshold:   c.Threshold,
		},
	}
}

// RolloverConfig controls the scheduled creation of each new day.
type RolloverConfig struct {
	Enabled   bool   `yaml:"enabled" env:"FOCUSFIVE_ROLLOVER_ENABLED"`
	Schedule  string `yaml:"schedule" env:"FOCUSFIVE_ROLLOVER_SCHEDULE"`
	Template  string `yaml:"template" env:"FOCUSFIVE_ROLLOVER_TEMPLATE"`
	CarryOver bool   `yaml:"carry_over" env:"FOCUSFIVE_ROLLOVER_CARRY_OVER"`
}

// Validate validates the rollover configuration. The schedule is only
// checked when rollover is enabled.
func (c *RolloverConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Schedule == "" {
		c.Schedule = rollover.DefaultSchedule
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("rollover: invalid schedule %q: %w", c.Schedule, err)
	}
	return nil
}

// Job converts the configuration for the rollover job.
func (c *RolloverConfig) Job() rollover.Config {
	return rollover.Config{
		Schedule:  c.Schedule,
		Template:  c.Template,
		CarryOver: c.CarryOver,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Data: DataConfig{
			Path: "./data",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Analytics: AnalyticsConfig{
			StreakLookback: analytics.DefaultStreakLookback,
			ShortWindow:    analytics.DefaultShortWindow,
			LongWindow:     analytics.DefaultLongWindow,
			Threshold:      analytics.DefaultThreshold,
		},
		Rollover: RolloverConfig{
			Enabled:   true,
			Schedule:  rollover.DefaultSchedule,
			CarryOver: true,
		},
	}
}
