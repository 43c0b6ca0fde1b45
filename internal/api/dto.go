package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/focusfive/internal/models"
)

// DayRequest is the request body for replacing a day. The date comes from
// the URL. Actions may carry the IDs returned by an earlier read so their
// metadata follows them; actions without IDs are reconciled by text.
type DayRequest struct {
	DayNumber *int                 `json:"day_number,omitempty" example:"12"`
	Work      models.CategoryEntry `json:"work"`
	Health    models.CategoryEntry `json:"health"`
	Family    models.CategoryEntry `json:"family"`
}

func (req DayRequest) toDay(date time.Time) models.Day {
	return models.Day{
		Date:      date,
		DayNumber: req.DayNumber,
		Work:      req.Work,
		Health:    req.Health,
		Family:    req.Family,
	}
}

// DayListResponse lists the dates that have a day file.
type DayListResponse struct {
	Dates []string `json:"dates" validate:"required"`
}

// TemplateApplyRequest names the template used to create a day.
type TemplateApplyRequest struct {
	Name string `json:"name" example:"weekday" validate:"required"`
}

// Validate validates the request.
func (r TemplateApplyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
	)
}

// CarryOverRequest names the day whose unfinished actions are copied.
// An empty From means the previous day.
type CarryOverRequest struct {
	From string `json:"from,omitempty" example:"2025-01-14"`
}

// Validate validates the request.
func (r CarryOverRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.From, validation.Date(models.DateLayout)),
	)
}

// ObservationRequest is the request body for recording an observation.
type ObservationRequest struct {
	Value      *float64                 `json:"value" example:"12" validate:"required"`
	Note       *string                  `json:"note,omitempty"`
	ActionID   *string                  `json:"action_id,omitempty"`
	Source     models.ObservationSource `json:"source,omitempty" example:"manual"`
	ObservedAt *time.Time               `json:"observed_at,omitempty"`
}

// Validate validates the request shape; the value is checked against the
// indicator's metric type when it is stored.
func (r ObservationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Value, validation.NotNil),
	)
}

func (r ObservationRequest) toObservation(indicatorID string) models.Observation {
	o := models.Observation{
		IndicatorID: indicatorID,
		Value:       *r.Value,
		Note:        r.Note,
		ActionID:    r.ActionID,
		Source:      r.Source,
	}
	if r.ObservedAt != nil {
		o.ObservedAt = r.ObservedAt.UTC()
	}
	return o
}

// ObjectiveListResponse wraps objective listings.
type ObjectiveListResponse struct {
	Objectives []models.Objective `json:"objectives" validate:"required"`
}

// IndicatorListResponse wraps indicator listings.
type IndicatorListResponse struct {
	Indicators []models.Indicator `json:"indicators" validate:"required"`
}

// ObservationListResponse wraps observation listings.
type ObservationListResponse struct {
	Observations []models.Observation `json:"observations" validate:"required"`
}

// TemplateListResponse wraps template listings.
type TemplateListResponse struct {
	Templates []models.Template `json:"templates" validate:"required"`
}

// VisionRequest sets the vision of the categories it names. Absent
// categories are left unchanged.
type VisionRequest struct {
	Work   *string `json:"work,omitempty" example:"Lead a small product studio"`
	Health *string `json:"health,omitempty"`
	Family *string `json:"family,omitempty"`
}

func (r VisionRequest) texts() map[models.Category]string {
	out := make(map[models.Category]string, len(models.Categories))
	for c, p := range map[models.Category]*string{models.CategoryWork: r.Work, models.CategoryHealth: r.Health, models.CategoryFamily: r.Family} {
		if p != nil {
			out[c] = *p
		}
	}
	return out
}

// VisionResponse is the stored vision and the categories whose text was cut.
type VisionResponse struct {
	Vision    models.Vision     `json:"vision"`
	Truncated []models.Category `json:"truncated"`
}

// ReviewRequest is the editable part of a review.
type ReviewRequest struct {
	Wins        []string `json:"wins"`
	Challenges  []string `json:"challenges"`
	Learnings   []string `json:"learnings"`
	NextActions []string `json:"next_actions"`
}

// ReviewListResponse wraps review listings.
type ReviewListResponse struct {
	Reviews []models.Review `json:"reviews" validate:"required"`
}
