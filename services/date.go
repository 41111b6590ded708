package services

import (
	"fmt"
	"time"
)

// ParseDate parses a date string in the ISO 8601 form used by HTML5 date inputs
func ParseDate(dateStr string) (time.Time, error) {
	layout := "2006-01-02"

	parsedTime, err := time.Parse(layout, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: expected YYYY-MM-DD")
	}

	return parsedTime, nil
}

// DateOnly truncates a time to midnight UTC, the canonical form for
// date-only columns like courier_date
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
