package analytics

import (
	"context"
	"fmt"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/models"
)

// IndicatorProgress is one indicator's contribution to an objective.
type IndicatorProgress struct {
	IndicatorID string   `json:"indicator_id"`
	Name        string   `json:"name,omitempty"`
	Current     *float64 `json:"current,omitempty"`
	Target      *float64 `json:"target,omitempty"`
	Progress    float64  `json:"progress"`
	Display     string   `json:"display,omitempty"`

	NoTarget bool `json:"no_target,omitempty"`
	NoData   bool `json:"no_data,omitempty"`
	Missing  bool `json:"missing,omitempty"`
}

// ObjectiveProgress is the unweighted mean of an objective's indicators.
type ObjectiveProgress struct {
	ObjectiveID string              `json:"objective_id"`
	Title       string              `json:"title"`
	Category    models.Category     `json:"category"`
	Progress    float64             `json:"progress"`
	Unmeasured  bool                `json:"unmeasured"`
	Indicators  []IndicatorProgress `json:"indicators"`
}

// ComputeProgress derives the progress of obj from the indicators it
// references and their current values keyed by indicator ID. Each indicator
// contributes current/target clamped to [0, 1]; boolean indicators contribute
// their value directly. Indicators without a target, without a current value
// or no longer defined contribute 0 and are flagged. An objective with no
// indicators is unmeasured and has progress 0.
func ComputeProgress(obj models.Objective, indicators map[string]models.Indicator, current map[string]float64) ObjectiveProgress {
	p := ObjectiveProgress{
		ObjectiveID: obj.ID,
		Title:       obj.Title,
		Category:    obj.Category,
		Indicators:  make([]IndicatorProgress, 0, len(obj.IndicatorIDs)),
	}
	if len(obj.IndicatorIDs) == 0 {
		p.Unmeasured = true
		return p
	}
	var sum float64
	for _, id := range obj.IndicatorIDs {
		ip := indicatorProgress(id, indicators, current)
		sum += ip.Progress
		p.Indicators = append(p.Indicators, ip)
	}
	p.Progress = sum / float64(len(obj.IndicatorIDs))
	return p
}

func indicatorProgress(id string, indicators map[string]models.Indicator, current map[string]float64) IndicatorProgress {
	ip := IndicatorProgress{IndicatorID: id}
	ind, ok := indicators[id]
	if !ok {
		ip.Missing = true
		return ip
	}
	ip.Name = ind.Name
	ip.Target = ind.Target
	v, ok := current[id]
	if ok {
		ip.Current = &v
		ip.Display = ind.Metric.Format(v, ind.Unit)
	}

	switch {
	case ind.Metric == models.MetricBoolean:
		if !ok {
			ip.NoData = true
			return ip
		}
		ip.Progress = clamp(v)
	case ind.Target == nil || *ind.Target == 0:
		ip.NoTarget = true
	case !ok:
		ip.NoData = true
	default:
		ip.Progress = clamp(v / *ind.Target)
	}
	return ip
}

func clamp(x float64) float64 {
	return min(max(x, 0), 1)
}

// ObjectiveProgress computes the progress of the objective with id from the
// latest observation of each of its indicators.
func (e *Engine) ObjectiveProgress(_ context.Context, id string) (ObjectiveProgress, error) {
	obj, err := e.meta.Objective(id)
	if err != nil {
		return ObjectiveProgress{}, err
	}
	indicators, err := e.indicatorMap()
	if err != nil {
		return ObjectiveProgress{}, err
	}
	current, err := e.currentValues(obj.IndicatorIDs)
	if err != nil {
		return ObjectiveProgress{}, err
	}
	return ComputeProgress(obj, indicators, current), nil
}

// CategoryProgress is the mean progress of a category's measured, active
// objectives.
type CategoryProgress struct {
	Category   models.Category     `json:"category"`
	Progress   float64             `json:"progress"`
	Measured   int                 `json:"measured"`
	Objectives []ObjectiveProgress `json:"objectives"`
}

// CategoryProgress rolls up the active objectives of category. Unmeasured
// objectives are listed but do not count toward the mean.
func (e *Engine) CategoryProgress(_ context.Context, category models.Category) (CategoryProgress, error) {
	if !category.Valid() {
		return CategoryProgress{}, fmt.Errorf("analytics: unknown category %q: %w", category, apperr.ErrInvalid)
	}
	objectives, err := e.meta.Objectives()
	if err != nil && !apperr.IsRecoverable(err) {
		return CategoryProgress{}, fmt.Errorf("analytics: %w", err)
	}
	indicators, err := e.indicatorMap()
	if err != nil {
		return CategoryProgress{}, err
	}

	out := CategoryProgress{Category: category, Objectives: []ObjectiveProgress{}}
	var sum float64
	for _, obj := range objectives {
		if obj.Category != category || obj.Status != models.ObjectiveActive {
			continue
		}
		current, err := e.currentValues(obj.IndicatorIDs)
		if err != nil {
			return CategoryProgress{}, err
		}
		p := ComputeProgress(obj, indicators, current)
		out.Objectives = append(out.Objectives, p)
		if !p.Unmeasured {
			sum += p.Progress
			out.Measured++
		}
	}
	if out.Measured > 0 {
		out.Progress = sum / float64(out.Measured)
	}
	return out, nil
}

func (e *Engine) indicatorMap() (map[string]models.Indicator, error) {
	items, err := e.meta.Indicators()
	if err != nil && !apperr.IsRecoverable(err) {
		return nil, fmt.Errorf("analytics: %w", err)
	}
	out := make(map[string]models.Indicator, len(items))
	for _, ind := range items {
		out[ind.ID] = ind
	}
	return out, nil
}

func (e *Engine) currentValues(ids []string) (map[string]float64, error) {
	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		o, ok, err := e.meta.LatestObservation(id)
		if err != nil {
			return nil, fmt.Errorf("analytics: latest observation %s: %w", id, err)
		}
		if ok {
			out[id] = o.Value
		}
	}
	return out, nil
}
