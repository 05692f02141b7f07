// Package dateutils provides the date operations shared by the import,
// balance and CLI layers.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Layouts accepted by the flexible parser, most specific first.
const (
	LayoutISO      = "2006-01-02"
	LayoutEuropean = "02/01/2006"
	LayoutUS       = "01/02/2006"
	LayoutDotted   = "02.01.2006"
	LayoutFull     = "2006-01-02 15:04:05"
)

// CommonFormats is the list of formats tried when parsing dates from CLI
// flags or statement cells with no configured layout. Order matters:
// ambiguous day/month strings resolve to the European reading.
var CommonFormats = []string{
	LayoutFull,
	LayoutISO,
	LayoutEuropean,
	LayoutDotted,
	LayoutUS,
}

var spaces = regexp.MustCompile(`\s+`)

// CleanDateString trims and collapses whitespace in a date string.
func CleanDateString(dateStr string) string {
	return spaces.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// ParseDate attempts to parse a date string using the common formats and
// returns the parsed time plus the format that matched.
func ParseDate(dateStr string) (time.Time, string, error) {
	dateStr = CleanDateString(dateStr)
	for _, format := range CommonFormats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, format, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", dateStr)
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD).
func ToISODate(date time.Time) string {
	return date.Format(LayoutISO)
}

// StartOfMonth returns the first day of the month for a given date.
func StartOfMonth(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
}

// EndOfMonth returns the last day of the month for a given date.
func EndOfMonth(date time.Time) time.Time {
	return StartOfMonth(date).AddDate(0, 1, -1)
}

// StartOfNextMonth returns the first day of the month after a given date.
func StartOfNextMonth(date time.Time) time.Time {
	return StartOfMonth(date).AddDate(0, 1, 0)
}

// SameDay reports whether two timestamps fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
