package timeutil

import "time"

// DateLayout is the date-only format used on the bank API (validUntil, lastActionDate)
const DateLayout = "2006-01-02"

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}

// ParseDate parses a date-only string and returns midnight UTC
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatDate renders t as a date-only string
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay returns the start of the day (midnight) in UTC
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// IsDateOnly reports whether t carries no time of day
func IsDateOnly(t time.Time) bool {
	return t.Equal(StartOfDay(t))
}

// Tomorrow returns midnight UTC of the day after t
func Tomorrow(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}
