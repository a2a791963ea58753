// Package datetime provides calendar date utility functions.
package datetime

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/iwvelando/loan-compare/pkg/constants"
)

const (
	// DateLayout is the format expected in config files, datasets and API
	// payloads.
	DateLayout = constants.DateLayout
)

// MustParseDate parses a date string and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseDate(dateStr string) civil.Date {
	d, err := civil.ParseDate(dateStr)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseOptionalDate parses a date string, returning nil for an empty string.
func ParseOptionalDate(dateStr string) (*civil.Date, error) {
	if dateStr == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected %s: %w", dateStr, DateLayout, err)
	}
	return &d, nil
}

// Today returns the calendar date of t in its own location.
func Today(t time.Time) civil.Date {
	return civil.DateOf(t)
}

// WithinWindow reports whether date falls inside the inclusive window
// [start, end]. A nil bound is open.
func WithinWindow(date civil.Date, start, end *civil.Date) bool {
	if start != nil && date.Before(*start) {
		return false
	}
	if end != nil && date.After(*end) {
		return false
	}
	return true
}

// ToTime converts a civil date to midnight UTC, the form stored in DATE columns.
func ToTime(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// FromTime converts a stored DATE value back to a civil date.
func FromTime(t time.Time) civil.Date {
	return civil.DateOf(t.UTC())
}
