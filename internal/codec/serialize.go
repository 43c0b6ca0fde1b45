package codec

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/models"
)

// HeaderDateLayout is the date format written in the day header.
const HeaderDateLayout = "January 02, 2006"

// Serialize renders day as markdown. The output depends only on the text
// fields of the day, so equal days always produce identical bytes.
func Serialize(day models.Day) []byte {
	var b bytes.Buffer
	b.WriteString("# ")
	b.WriteString(day.Date.Format(HeaderDateLayout))
	if day.DayNumber != nil {
		fmt.Fprintf(&b, " - Day %d", *day.DayNumber)
	}
	b.WriteString("\n\n")

	for i, e := range day.Entries() {
		b.WriteString("## ")
		b.WriteString(models.Categories[i].Title())
		if e.Goal != "" {
			b.WriteString(" (Goal: ")
			b.WriteString(e.Goal)
			b.WriteString(")")
		}
		b.WriteByte('\n')

		for _, a := range e.Actions {
			if a.Completed {
				b.WriteString("- [x]")
			} else {
				b.WriteString("- [ ]")
			}
			if a.Text != "" {
				b.WriteByte(' ')
				b.WriteString(a.Text)
			}
			b.WriteByte('\n')
			switch len(a.ObjectiveIDs) {
			case 0:
			case 1:
				b.WriteString("  objective: ")
				b.WriteString(a.ObjectiveIDs[0])
				b.WriteByte('\n')
			default:
				b.WriteString("  objectives: ")
				b.WriteString(strings.Join(a.ObjectiveIDs, ", "))
				b.WriteByte('\n')
			}
		}

		if e.Reflection != "" {
			for _, l := range strings.Split(e.Reflection, "\n") {
				if l == "" {
					b.WriteString(">\n")
					continue
				}
				b.WriteString("> ")
				b.WriteString(l)
				b.WriteByte('\n')
			}
		}
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// Normalize brings a caller-built day into the shape Parse would produce
// for its serialized form: calendar date only, fixed category kinds, text
// fields trimmed and capped, 1..MaxActions actions per category, and
// objective references that survive the objective line format.
func Normalize(day *models.Day) []apperr.Warning {
	var warnings []apperr.Warning
	warn := func(kind apperr.WarningKind, msg string) {
		warnings = append(warnings, apperr.Warning{Kind: kind, Message: msg})
	}

	day.Date = models.TruncateDate(day.Date)
	for i, e := range day.Entries() {
		c := models.Categories[i]
		e.Kind = c

		var cut bool
		if e.Goal, cut = cleanField(e.Goal, models.MaxGoalLength); cut {
			warn(apperr.WarnTruncated, fmt.Sprintf("%s goal truncated to %d characters", c, models.MaxGoalLength))
		}
		if e.Reflection, cut = cleanReflection(e.Reflection, models.MaxReflectionLength); cut {
			warn(apperr.WarnTruncated, fmt.Sprintf("%s reflection truncated to %d characters", c, models.MaxReflectionLength))
		}

		switch n := len(e.Actions); {
		case n == 0:
			e.Actions = make([]models.Action, models.DefaultActions)
		case n > models.MaxActions:
			warn(apperr.WarnActionOverflow, fmt.Sprintf("%s has %d actions, keeping the first %d", c, n, models.MaxActions))
			e.Actions = e.Actions[:models.MaxActions]
		}
		for j := range e.Actions {
			a := &e.Actions[j]
			if a.Text, cut = cleanField(a.Text, models.MaxActionLength); cut {
				warn(apperr.WarnTruncated, fmt.Sprintf("%s action %d truncated to %d characters", c, j+1, models.MaxActionLength))
			}
			a.ObjectiveIDs = objectiveRefs(a.ObjectiveIDs)
			if a.Meta != nil && a.Meta.ObjectiveID != nil {
				if ref := objectiveRefs([]string{*a.Meta.ObjectiveID}); len(ref) == 1 {
					a.Meta.ObjectiveID = &ref[0]
				} else {
					a.Meta.ObjectiveID = nil
				}
			}
		}
	}
	return warnings
}

// objectiveRefs keeps the ids that can be written on an objective line:
// trimmed, non-empty, without commas or line breaks, each once.
func objectiveRefs(ids []string) []string {
	var out []string
	for _, id := range ids {
		if strings.ContainsRune(id, ',') {
			continue
		}
		out = appendObjectives(out, []string{id})
	}
	return out
}
