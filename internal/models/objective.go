package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ObjectiveStatus is the lifecycle state of an objective.
type ObjectiveStatus string

const (
	ObjectiveActive   ObjectiveStatus = "active"
	ObjectiveComplete ObjectiveStatus = "complete"
	ObjectiveArchived ObjectiveStatus = "archived"
)

// Valid reports whether s is a known objective status.
func (s ObjectiveStatus) Valid() bool {
	return s == ObjectiveActive || s == ObjectiveComplete || s == ObjectiveArchived
}

// UnmarshalJSON decodes unknown values to the empty status instead of failing.
func (s *ObjectiveStatus) UnmarshalJSON(b []byte) error {
	*s = decodeEnum(b, ObjectiveStatus.Valid)
	return nil
}

// Objective is a medium-term goal measured by indicators. Objectives are
// archived instead of deleted so links from actions stay resolvable.
type Objective struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Category     Category        `json:"category"`
	Status       ObjectiveStatus `json:"status"`
	IndicatorIDs []string        `json:"indicator_ids"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Validate validates the objective.
func (o *Objective) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.ID, validation.Required),
		validation.Field(&o.Title, validation.Required, validation.RuneLength(1, MaxGoalLength)),
		validation.Field(&o.Description, validation.RuneLength(0, MaxReflectionLength)),
		validation.Field(&o.Category, validation.Required, validation.In(CategoryWork, CategoryHealth, CategoryFamily)),
		validation.Field(&o.Status, validation.Required, validation.In(ObjectiveActive, ObjectiveComplete, ObjectiveArchived)),
	)
}

// Frequency is how often an indicator is expected to be sampled.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly || f == FrequencyMonthly
}

// UnmarshalJSON decodes unknown values to the empty frequency instead of failing.
func (f *Frequency) UnmarshalJSON(b []byte) error {
	*f = decodeEnum(b, Frequency.Valid)
	return nil
}

// Indicator is a named, typed metric with an optional target.
type Indicator struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Metric    MetricType `json:"metric"`
	Target    *float64   `json:"target,omitempty"`
	Unit      string     `json:"unit,omitempty"`
	Frequency Frequency  `json:"frequency"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Validate validates the indicator, including its target against the metric type.
func (i *Indicator) Validate() error {
	return validation.ValidateStruct(i,
		validation.Field(&i.ID, validation.Required),
		validation.Field(&i.Name, validation.Required, validation.RuneLength(1, MaxGoalLength)),
		validation.Field(&i.Metric, validation.Required, validation.By(func(any) error {
			if !i.Metric.Valid() {
				return validation.NewError("validation_metric", "unknown metric type")
			}
			return nil
		})),
		validation.Field(&i.Frequency, validation.Required, validation.In(FrequencyDaily, FrequencyWeekly, FrequencyMonthly)),
		validation.Field(&i.Target, validation.By(func(any) error {
			if i.Target == nil || !i.Metric.Valid() {
				return nil
			}
			return i.Metric.ValidateValue(*i.Target)
		})),
	)
}

// Observation is one immutable sample of an indicator's value.
type Observation struct {
	ID          string            `json:"id"`
	IndicatorID string            `json:"indicator_id"`
	Value       float64           `json:"value"`
	Note        *string           `json:"note,omitempty"`
	ActionID    *string           `json:"action_id,omitempty"`
	Source      ObservationSource `json:"source,omitempty"`
	ObservedAt  time.Time         `json:"observed_at"`
}

// ObservationSource records where an observation came from.
type ObservationSource string

const (
	SourceManual    ObservationSource = "manual"
	SourceAutomated ObservationSource = "automated"
	SourceImport    ObservationSource = "import"
)

// Valid reports whether s is a known source.
func (s ObservationSource) Valid() bool {
	return s == SourceManual || s == SourceAutomated || s == SourceImport
}

// UnmarshalJSON decodes unknown values to the empty source instead of failing.
func (s *ObservationSource) UnmarshalJSON(b []byte) error {
	*s = decodeEnum(b, ObservationSource.Valid)
	return nil
}

// Validate validates the observation shape. Value checks against the
// indicator's metric type happen in the metadata store.
func (o *Observation) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.ID, validation.Required),
		validation.Field(&o.IndicatorID, validation.Required),
		validation.Field(&o.ObservedAt, validation.Required),
	)
}
