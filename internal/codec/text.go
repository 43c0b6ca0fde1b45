package codec

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// invisible drops format characters (BOM, zero-width space, joiners) so
// that structural markers are recognized even when an editor inserted them.
var invisible = runes.Remove(runes.In(unicode.Cf))

// structural returns line without format characters, for matching only.
// Content is always extracted from the original line.
func structural(line string) string {
	s, _, err := transform.String(invisible, line)
	if err != nil {
		return line
	}
	return s
}

func isBlank(r rune) bool {
	return unicode.IsSpace(r) || unicode.Is(unicode.Cf, r)
}

// trimText trims whitespace and format characters from both ends.
func trimText(s string) string {
	return strings.TrimFunc(s, isBlank)
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) (string, bool) {
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i], true
		}
		n++
	}
	return s, false
}

// cleanField flattens s onto one line, trims it and enforces max runes.
func cleanField(s string, max int) (string, bool) {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	s, cut := truncate(trimText(s), max)
	return trimText(s), cut
}

// cleanReflection trims every line and the block as a whole, then enforces max runes.
func cleanReflection(s string, max int) (string, bool) {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = trimText(l)
	}
	s = strings.Trim(strings.Join(lines, "\n"), "\n")
	s, cut := truncate(s, max)
	if cut {
		lines = strings.Split(s, "\n")
		for i, l := range lines {
			lines[i] = trimText(l)
		}
		s = strings.Trim(strings.Join(lines, "\n"), "\n")
	}
	return s, cut
}

// appendObjectives adds the trimmed, non-empty ids not yet in dst.
func appendObjectives(dst, ids []string) []string {
	for _, id := range ids {
		id = trimText(id)
		if id == "" || strings.ContainsFunc(id, isHidden) || slices.Contains(dst, id) {
			continue
		}
		dst = append(dst, id)
	}
	return dst
}

func isHidden(r rune) bool {
	return unicode.IsControl(r) || unicode.Is(unicode.Cf, r)
}
