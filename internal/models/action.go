package models

import (
	"encoding/json"
	"time"
)

// ActionStatus is the extended lifecycle of an action, richer than the checkbox.
type ActionStatus string

const (
	StatusPlanned    ActionStatus = "planned"
	StatusInProgress ActionStatus = "in_progress"
	StatusDone       ActionStatus = "done"
	StatusSkipped    ActionStatus = "skipped"
	StatusBlocked    ActionStatus = "blocked"
)

// Valid reports whether s is a known status.
func (s ActionStatus) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusDone, StatusSkipped, StatusBlocked:
		return true
	}
	return false
}

// UnmarshalJSON decodes unknown values to the empty status instead of failing.
func (s *ActionStatus) UnmarshalJSON(b []byte) error {
	*s = decodeEnum(b, ActionStatus.Valid)
	return nil
}

// ActionOrigin records how an action came into existence.
type ActionOrigin string

const (
	OriginManual    ActionOrigin = "manual"
	OriginTemplate  ActionOrigin = "template"
	OriginCarryOver ActionOrigin = "carry_over"
)

// Valid reports whether o is a known origin.
func (o ActionOrigin) Valid() bool {
	return o == OriginManual || o == OriginTemplate || o == OriginCarryOver
}

// UnmarshalJSON decodes unknown values to the empty origin instead of failing.
func (o *ActionOrigin) UnmarshalJSON(b []byte) error {
	*o = decodeEnum(b, ActionOrigin.Valid)
	return nil
}

// ActionMeta is the structured side-data of an action. Text is the action
// text last seen by the coordinator and is used to re-associate identities.
type ActionMeta struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	Status        ActionStatus `json:"status,omitempty"`
	Origin        ActionOrigin `json:"origin,omitempty"`
	EffortMinutes *int         `json:"effort_minutes,omitempty"`
	Note          *string      `json:"note,omitempty"`
	ObjectiveID   *string      `json:"objective_id,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
}

// Completed reports whether the stored status marks the action as done.
func (m *ActionMeta) Completed() bool {
	return m.Status == StatusDone
}

// ApplyCompletion aligns the status with a checkbox state. It returns true
// when the stored status had to change.
func (m *ActionMeta) ApplyCompletion(done bool, now time.Time) bool {
	switch {
	case done && m.Status != StatusDone:
		m.Status = StatusDone
		t := now
		m.CompletedAt = &t
		return true
	case !done && m.Status == StatusDone:
		m.Status = StatusPlanned
		m.CompletedAt = nil
		return true
	case !done && m.Status == "":
		m.Status = StatusPlanned
	}
	return false
}

func decodeEnum[T ~string](b []byte, valid func(T) bool) T {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return ""
	}
	if v := T(raw); valid(v) {
		return v
	}
	return ""
}
