// Package codec converts between a Day and its plain-text markdown form.
package codec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/models"
)

const (
	// MaxInputBytes bounds the size of a day file accepted by Parse.
	MaxInputBytes = 2 << 20
	// HeaderScanLines is how many leading lines are searched for the date header.
	HeaderScanLines = 10
)

// Result holds a parsed day and the non-fatal problems found on the way.
type Result struct {
	Day      models.Day
	Warnings []apperr.Warning
}

type state int

const (
	stateHeader   state = iota // looking for the date header
	stateBody                  // after the header, outside any category
	stateCategory              // collecting actions for a category
)

type parser struct {
	state    state
	day      models.Day
	current  models.Category
	pos      int
	last     int // index of the action objective lines attach to, or -1
	filled   map[models.Category]int
	quotes   map[models.Category][]string
	warnings []apperr.Warning
}

// Parse reads a day from its markdown form. The date header must appear in
// the first HeaderScanLines lines; anything else malformed is tolerated and
// reported as a warning. Parsed actions carry no identifiers.
func Parse(data []byte) (*Result, error) {
	if len(data) > MaxInputBytes {
		return nil, &apperr.ParseError{Reason: fmt.Sprintf("input is %d bytes, limit is %d", len(data), MaxInputBytes)}
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	if strings.TrimFunc(text, isBlank) == "" {
		return nil, &apperr.ParseError{Reason: "empty input"}
	}

	p := &parser{
		last:   -1,
		filled: make(map[models.Category]int, len(models.Categories)),
		quotes: make(map[models.Category][]string, len(models.Categories)),
	}
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if p.state == stateHeader && i >= HeaderScanLines {
			break
		}
		p.line(i+1, line)
	}
	if p.state == stateHeader {
		return nil, &apperr.ParseError{Reason: fmt.Sprintf("no valid date header in the first %d lines", HeaderScanLines)}
	}
	p.finish()
	return &Result{Day: p.day, Warnings: p.warnings}, nil
}

func (p *parser) line(n int, raw string) {
	s := strings.TrimSpace(structural(raw))

	if p.state == stateHeader {
		if date, num, ok := parseHeader(s); ok {
			p.day = models.NewDay(date)
			p.day.DayNumber = num
			p.state = stateBody
		}
		return
	}

	if s == "" {
		return
	}
	if ids, ok := objectiveLine(s); ok && p.last >= 0 {
		a := &p.day.Entry(p.current).Actions[p.last]
		a.ObjectiveIDs = appendObjectives(a.ObjectiveIDs, ids)
		return
	}
	p.last = -1
	if c, ok := categoryName(s); ok {
		p.enter(n, c, raw)
		return
	}
	if done, ok := checkbox(s); ok {
		if p.state != stateCategory {
			p.warn(apperr.WarnOrphanAction, n, "checkbox line outside any category ignored")
			return
		}
		p.action(n, done, raw)
		return
	}
	if p.state == stateCategory && strings.HasPrefix(s, ">") {
		i := strings.IndexByte(raw, '>')
		p.quotes[p.current] = append(p.quotes[p.current], trimText(raw[i+1:]))
	}
}

func (p *parser) enter(n int, c models.Category, raw string) {
	p.state = stateCategory
	p.current = c
	p.pos = 0

	start := strings.IndexByte(raw, '(')
	end := strings.LastIndexByte(raw, ')')
	if start < 0 || end < start {
		return
	}
	inner := trimText(raw[start+1 : end])
	if st := structural(inner); len(st) >= 5 && strings.EqualFold(st[:5], "goal:") {
		inner = inner[strings.IndexByte(inner, ':')+1:]
	}
	goal, cut := cleanField(inner, models.MaxGoalLength)
	if cut {
		p.warn(apperr.WarnTruncated, n, fmt.Sprintf("%s goal truncated to %d characters", c, models.MaxGoalLength))
	}
	p.day.Entry(c).Goal = goal
}

func (p *parser) action(n int, done bool, raw string) {
	e := p.day.Entry(p.current)
	if p.pos >= models.MaxActions {
		p.warn(apperr.WarnActionOverflow, n, fmt.Sprintf("%s already has %d actions, line ignored", p.current, models.MaxActions))
		return
	}
	text, cut := cleanField(raw[strings.IndexByte(raw, ']')+1:], models.MaxActionLength)
	if cut {
		p.warn(apperr.WarnTruncated, n, fmt.Sprintf("action text truncated to %d characters", models.MaxActionLength))
	}
	a := models.Action{Text: text, Completed: done}
	if p.pos < len(e.Actions) {
		e.Actions[p.pos] = a
	} else {
		e.Actions = append(e.Actions, a)
	}
	p.last = p.pos
	p.pos++
	if p.pos > p.filled[p.current] {
		p.filled[p.current] = p.pos
	}
}

// finish drops preallocated slots no line filled and folds reflections.
func (p *parser) finish() {
	for _, c := range models.Categories {
		e := p.day.Entry(c)
		if n := p.filled[c]; n > 0 && n < len(e.Actions) {
			e.Actions = e.Actions[:n]
		}
		if q := p.quotes[c]; len(q) > 0 {
			r, cut := cleanReflection(strings.Join(q, "\n"), models.MaxReflectionLength)
			if cut {
				p.warn(apperr.WarnTruncated, 0, fmt.Sprintf("%s reflection truncated to %d characters", c, models.MaxReflectionLength))
			}
			e.Reflection = r
		}
	}
}

func (p *parser) warn(kind apperr.WarningKind, line int, msg string) {
	p.warnings = append(p.warnings, apperr.Warning{Kind: kind, Line: line, Message: msg})
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// parseHeader recognizes "# Month D, YYYY" with an optional "Day K" anywhere after it.
func parseHeader(s string) (time.Time, *int, bool) {
	if !strings.HasPrefix(s, "#") {
		return time.Time{}, nil, false
	}
	rest := strings.TrimLeft(s, "# \t")

	word, rest := span(rest, isLetter)
	month, ok := months[strings.ToLower(word)]
	if !ok {
		return time.Time{}, nil, false
	}
	rest = strings.TrimLeft(rest, " \t")
	dayStr, rest := span(rest, isDigit)
	if len(dayStr) < 1 || len(dayStr) > 2 {
		return time.Time{}, nil, false
	}
	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, ",") {
		return time.Time{}, nil, false
	}
	rest = strings.TrimLeft(rest[1:], " \t")
	yearStr, rest := span(rest, isDigit)
	if len(yearStr) != 4 {
		return time.Time{}, nil, false
	}

	day, _ := strconv.Atoi(dayStr)
	year, _ := strconv.Atoi(yearStr)
	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || date.Month() != month {
		return time.Time{}, nil, false
	}
	return date, dayNumber(rest), true
}

// dayNumber finds the first "Day N" where "day" starts a word, so weekday
// names such as "Monday 12" are not mistaken for it.
func dayNumber(s string) *int {
	lower := strings.ToLower(s)
	for {
		i := strings.Index(lower, "day")
		if i < 0 {
			return nil
		}
		word := i == 0 || !isLetter(lower[i-1])
		lower = lower[i+3:]
		if !word {
			continue
		}
		after := strings.TrimLeft(lower, " \t")
		if len(after) == len(lower) {
			continue
		}
		digits, _ := span(after, isDigit)
		if digits == "" {
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return nil
		}
		return &n
	}
}

// categoryName recognizes a "## Name" header, matching the name as a whole word.
func categoryName(s string) (models.Category, bool) {
	if !strings.HasPrefix(s, "##") {
		return "", false
	}
	rest := strings.TrimLeft(s[2:], " \t")
	word, _ := span(rest, isLetter)
	return models.ParseCategory(word)
}

// checkbox recognizes "- [ ]", "- [x]" and "- [X]" followed by a space or end of line.
func checkbox(s string) (done, ok bool) {
	if !strings.HasPrefix(s, "-") {
		return false, false
	}
	rest := strings.TrimLeft(s[1:], " \t")
	if len(rest) == len(s)-1 || len(rest) < 3 || rest[0] != '[' || rest[2] != ']' {
		return false, false
	}
	if len(rest) > 3 && rest[3] != ' ' && rest[3] != '\t' {
		return false, false
	}
	switch rest[1] {
	case ' ':
		return false, true
	case 'x', 'X':
		return true, true
	}
	return false, false
}

// objectiveLine recognizes "objective: id" and "objectives: a, b". The
// keywords are matched case-sensitively.
func objectiveLine(s string) ([]string, bool) {
	rest, ok := strings.CutPrefix(s, "objectives:")
	if !ok {
		rest, ok = strings.CutPrefix(s, "objective:")
	}
	if !ok {
		return nil, false
	}
	return strings.Split(rest, ","), true
}

func span(s string, keep func(byte) bool) (string, string) {
	i := 0
	for i < len(s) && keep(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func isLetter(b byte) bool { return ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') }

func isDigit(b byte) bool { return '0' <= b && b <= '9' }
