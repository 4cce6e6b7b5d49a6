package core

import (
	"strings"
	"time"
)

// DateLayout is the wire format of every calendar date exchanged with the school backend.
const DateLayout = "2006-01-02"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, CleanString(s))
}

// DateAfter reports whether date a is strictly after date b.
// Both must be valid YYYY-MM-DD dates; unparsable input is never "after".
func DateAfter(a, b string) bool {
	ta, err := ParseDate(a)
	if err != nil {
		return false
	}
	tb, err := ParseDate(b)
	if err != nil {
		return false
	}
	return ta.After(tb)
}
