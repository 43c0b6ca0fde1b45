package apperr

import "fmt"

// WarningKind classifies a non-fatal problem reported alongside a result.
type WarningKind string

const (
	WarnTruncated          WarningKind = "truncated"
	WarnActionOverflow     WarningKind = "action_overflow"
	WarnOrphanAction       WarningKind = "orphan_action"
	WarnParseFallback      WarningKind = "parse_fallback"
	WarnMetadataDegraded   WarningKind = "metadata_degraded"
	WarnSchemaMismatch     WarningKind = "schema_mismatch"
	WarnCompletionConflict WarningKind = "completion_conflict"
	WarnDateMismatch       WarningKind = "date_mismatch"
)

// Warning is a non-fatal issue attached to a successfully produced value.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Line    int         `json:"line,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", w.Kind, w.Line, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// WarningFor converts a recoverable error into the matching warning.
func WarningFor(err error) Warning {
	switch e := err.(type) {
	case *ParseError:
		return Warning{Kind: WarnParseFallback, Line: e.Line, Message: e.Error()}
	case *SchemaVersionMismatch:
		return Warning{Kind: WarnSchemaMismatch, Message: e.Error()}
	default:
		return Warning{Kind: WarnMetadataDegraded, Message: err.Error()}
	}
}
