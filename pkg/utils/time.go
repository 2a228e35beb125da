package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
	datePattern  = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)
)

// NormalizeClock validates and canonicalizes an HH:mm value
func NormalizeClock(value string) (string, error) {
	normalized := strings.TrimSpace(value)
	match := clockPattern.FindStringSubmatch(normalized)
	if match == nil {
		return "", fmt.Errorf("invalid time %q: expected HH:mm", value)
	}

	return match[1] + ":" + match[2], nil
}

// IsValidServiceDate reports whether value is a YYYY-MM-DD date string
func IsValidServiceDate(value string) bool {
	return datePattern.MatchString(strings.TrimSpace(value))
}

// TimestampMs converts an optional timestamp to epoch milliseconds, 0 when absent
func TimestampMs(value *time.Time) int64 {
	if value == nil || value.IsZero() {
		return 0
	}
	return value.UnixMilli()
}

// SameTimestamp compares two optional timestamps at millisecond precision,
// matching the precision the store keeps
func SameTimestamp(a, b *time.Time) bool {
	return TimestampMs(a) == TimestampMs(b)
}

// ItemIDFromDocID strips the date prefix from a "{date}_{itemId}" document ID.
// Returns "" when the ID does not belong to the given date.
func ItemIDFromDocID(docID, date string) string {
	prefix := date + "_"
	if !strings.HasPrefix(docID, prefix) {
		return ""
	}
	return docID[len(prefix):]
}

// DocID builds the "{date}_{itemId}" document ID used by the per-item collections
func DocID(date, itemID string) string {
	return date + "_" + itemID
}
