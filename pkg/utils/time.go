package utils

import "time"

// FormatTimestamp renders a stored timestamp with sub-second precision
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp parses a timestamp written by FormatTimestamp or any RFC3339 value
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
