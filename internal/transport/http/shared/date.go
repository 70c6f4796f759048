package shared

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate accepts RFC3339 or YYYY-MM-DD and returns the UTC calendar day.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return StartOfDay(parsed), nil
	}
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed, nil
}

func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
