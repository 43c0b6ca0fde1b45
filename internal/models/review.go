package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxReviewItems bounds each list of a review.
const MaxReviewItems = 20

// ReviewPeriod is the span a review looks back on.
type ReviewPeriod string

const (
	ReviewWeekly  ReviewPeriod = "weekly"
	ReviewMonthly ReviewPeriod = "monthly"
)

// CompletionSummary counts the actions of one category over a period.
type CompletionSummary struct {
	Total     int     `json:"total_actions"`
	Completed int     `json:"completed_actions"`
	Rate      float64 `json:"completion_rate"`
}

// Review is a weekly or monthly retrospective. PeriodID is an ISO week
// such as "2025-W03" or a month such as "2025-01" and doubles as the file
// name. Stats are computed from the days in the period when it is saved.
type Review struct {
	ID          string                         `json:"id"`
	Period      ReviewPeriod                   `json:"period_type"`
	PeriodID    string                         `json:"period_identifier"`
	StartDate   string                         `json:"start_date"`
	EndDate     string                         `json:"end_date"`
	Wins        []string                       `json:"wins"`
	Challenges  []string                       `json:"challenges"`
	Learnings   []string                       `json:"learnings"`
	NextActions []string                       `json:"next_actions"`
	Stats       map[Category]CompletionSummary `json:"completion_stats"`
	CreatedAt   time.Time                      `json:"created_at"`
	UpdatedAt   time.Time                      `json:"updated_at"`
}

// Validate validates the review lists.
func (r *Review) Validate() error {
	item := validation.Each(validation.Required, validation.RuneLength(1, MaxActionLength))
	return validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.Period, validation.Required, validation.In(ReviewWeekly, ReviewMonthly)),
		validation.Field(&r.PeriodID, validation.Required),
		validation.Field(&r.Wins, validation.Length(0, MaxReviewItems), item),
		validation.Field(&r.Challenges, validation.Length(0, MaxReviewItems), item),
		validation.Field(&r.Learnings, validation.Length(0, MaxReviewItems), item),
		validation.Field(&r.NextActions, validation.Length(0, MaxReviewItems), item),
	)
}

// PeriodSpan is a resolved review period with its first and last dates.
type PeriodSpan struct {
	Period ReviewPeriod
	ID     string
	Start  time.Time
	End    time.Time
}

// WeekOf returns the ISO week containing date.
func WeekOf(date time.Time) PeriodSpan {
	date = TruncateDate(date)
	start := date.AddDate(0, 0, -((int(date.Weekday()) + 6) % 7))
	year, week := date.ISOWeek()
	return PeriodSpan{
		Period: ReviewWeekly,
		ID:     fmt.Sprintf("%04d-W%02d", year, week),
		Start:  start,
		End:    start.AddDate(0, 0, 6),
	}
}

// MonthOf returns the calendar month containing date.
func MonthOf(date time.Time) PeriodSpan {
	date = TruncateDate(date)
	start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	return PeriodSpan{
		Period: ReviewMonthly,
		ID:     start.Format("2006-01"),
		Start:  start,
		End:    start.AddDate(0, 1, -1),
	}
}

// ParsePeriod resolves "YYYY-Www" to an ISO week and "YYYY-MM" to a month.
func ParsePeriod(id string) (PeriodSpan, error) {
	if y, w, ok := strings.Cut(id, "-W"); ok {
		year, err1 := strconv.Atoi(y)
		week, err2 := strconv.Atoi(w)
		if err1 != nil || err2 != nil || len(y) != 4 || len(w) != 2 || week < 1 || week > 53 {
			return PeriodSpan{}, fmt.Errorf("invalid week %q", id)
		}
		// January 4th always falls in ISO week 1.
		jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
		span := WeekOf(jan4.AddDate(0, 0, (week-1)*7))
		if span.ID != id {
			return PeriodSpan{}, fmt.Errorf("invalid week %q: year has no week %d", id, week)
		}
		return span, nil
	}
	start, err := time.ParseInLocation("2006-01", id, time.UTC)
	if err != nil {
		return PeriodSpan{}, fmt.Errorf("invalid period %q: %w", id, err)
	}
	return MonthOf(start), nil
}
