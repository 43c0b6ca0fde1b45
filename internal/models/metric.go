package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MetricType is the kind of value an indicator records. Each variant has its
// own validation and formatting rules.
type MetricType string

const (
	MetricCounter    MetricType = "counter"
	MetricGauge      MetricType = "gauge"
	MetricDuration   MetricType = "duration" // minutes
	MetricPercentage MetricType = "percentage"
	MetricBoolean    MetricType = "boolean"
)

// Valid reports whether m is a known metric type.
func (m MetricType) Valid() bool {
	switch m {
	case MetricCounter, MetricGauge, MetricDuration, MetricPercentage, MetricBoolean:
		return true
	}
	return false
}

// UnmarshalJSON decodes unknown values to the empty metric type instead of failing.
func (m *MetricType) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		*m = ""
		return nil
	}
	*m = MetricType(strings.ToLower(raw))
	if !m.Valid() {
		*m = ""
	}
	return nil
}

// ValidateValue checks that v is a legal sample for the metric type.
func (m MetricType) ValidateValue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s: value must be finite", m)
	}
	switch m {
	case MetricCounter:
		if v < 0 || v != math.Trunc(v) {
			return fmt.Errorf("counter: value must be a non-negative integer, got %v", v)
		}
	case MetricDuration:
		if v < 0 {
			return fmt.Errorf("duration: value must not be negative, got %v", v)
		}
	case MetricPercentage:
		if v < 0 || v > 100 {
			return fmt.Errorf("percentage: value must be within 0..100, got %v", v)
		}
	case MetricBoolean:
		if v != 0 && v != 1 {
			return fmt.Errorf("boolean: value must be 0 or 1, got %v", v)
		}
	case MetricGauge:
	default:
		return fmt.Errorf("unknown metric type %q", m)
	}
	return nil
}

// Format renders v for display using the metric's conventions.
func (m MetricType) Format(v float64, unit string) string {
	var s string
	switch m {
	case MetricCounter:
		s = strconv.FormatInt(int64(v), 10)
	case MetricDuration:
		mins := int64(math.Round(v))
		switch {
		case mins >= 60 && mins%60 == 0:
			return fmt.Sprintf("%dh", mins/60)
		case mins >= 60:
			return fmt.Sprintf("%dh%dm", mins/60, mins%60)
		default:
			return fmt.Sprintf("%dm", mins)
		}
	case MetricPercentage:
		return strconv.FormatFloat(v, 'f', -1, 64) + "%"
	case MetricBoolean:
		if v >= 1 {
			return "yes"
		}
		return "no"
	default:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if unit != "" {
		s += " " + unit
	}
	return s
}
