package clinic

import (
	"strings"
	"time"
)

const placeholder = "-"

// ParseTime accepts the backend's timestamp and date forms. It returns the
// zero time when value cannot be parsed. Date-only values are midnight local
// time.
func ParseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatDate renders value as DD/MM/YYYY in local time, or "-".
func FormatDate(value string) string {
	t := ParseTime(value)
	if t.IsZero() {
		return placeholder
	}
	return t.Local().Format("02/01/2006")
}

// FormatTime renders value as 24-hour HH:MM in local time, or "-".
func FormatTime(value string) string {
	t := ParseTime(value)
	if t.IsZero() {
		return placeholder
	}
	return t.Local().Format("15:04")
}

// FormatDateTime renders value as DD/MM/YYYY HH:MM in local time, or "-".
func FormatDateTime(value string) string {
	t := ParseTime(value)
	if t.IsZero() {
		return placeholder
	}
	return t.Local().Format("02/01/2006 15:04")
}

// FormatDateLong renders value as "15 January 2024", or "-".
func FormatDateLong(value string) string {
	t := ParseTime(value)
	if t.IsZero() {
		return placeholder
	}
	return t.Local().Format("2 January 2006")
}

// FormatDOB rewrites a YYYY-MM-DD calendar date as DD-MM-YYYY without
// interpreting it as an instant, so no timezone can shift the day.
func FormatDOB(value string) string {
	parts := strings.Split(strings.TrimSpace(value), "-")
	if len(parts) != 3 {
		return placeholder
	}
	year, month, day := parts[0], parts[1], parts[2]
	if year == "" || month == "" || day == "" {
		return placeholder
	}
	return day + "-" + month + "-" + year
}
