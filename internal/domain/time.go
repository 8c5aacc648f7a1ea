package domain

import (
	"strings"
	"time"
)

// AttemptTimeLayout is the fixed-width UTC format used for lastAttempt
// timestamps. Lexicographic order on these strings matches chronological
// order.
const AttemptTimeLayout = "2006-01-02T15:04:05.000Z"

// DateLayout is the calendar-date format used for streaks and trend keys.
const DateLayout = "2006-01-02"

// attemptParseLayouts covers the timestamp shapes observed in stored
// attempt records: full ISO-8601 with optional fractional seconds, and
// bare dates.
var attemptParseLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// AttemptDate extracts the calendar date from an ISO-8601 timestamp,
// ignoring any trailing UTC marker. Returns false when the timestamp does
// not parse.
func AttemptDate(ts string) (string, bool) {
	t, ok := ParseAttemptTime(ts)
	if !ok {
		return "", false
	}
	return t.Format(DateLayout), true
}

// ParseAttemptTime parses a stored lastAttempt timestamp. The trailing Z
// is stripped before parsing, matching how attempt dates have always been
// derived.
func ParseAttemptTime(ts string) (time.Time, bool) {
	trimmed := strings.TrimRight(ts, "Z")
	for _, layout := range attemptParseLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SanitizeTimestampKey rewrites a timestamp so it is legal as a document
// path key: colons and dots become dashes. Two attempts sanitizing to the
// same key overwrite each other.
func SanitizeTimestampKey(ts string) string {
	return strings.NewReplacer(":", "-", ".", "-").Replace(ts)
}
