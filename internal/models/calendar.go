package models

import (
	"fmt"
	"time"
)

// Calendar turns 1-based julian-day indices of a fixed year into dates and labels
type Calendar struct {
	Year int
}

// Date returns midnight UTC of day; day 1 is January 1
func (c Calendar) Date(day int) time.Time {
	return time.Date(c.Year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day-1)
}

// LongLabel formats day as "January 2, 2024"
func (c Calendar) LongLabel(day int) string {
	return c.Date(day).Format("January 2, 2006")
}

// AxisLabel formats day as "January 2"
func (c Calendar) AxisLabel(day int) string {
	return c.Date(day).Format("January 2")
}

// Key formats day as "2024-002", the form used in file names and exports
func (c Calendar) Key(day int) string {
	return fmt.Sprintf("%d-%03d", c.Year, day)
}

// FileName returns the per-day document name, e.g. 2024_002_LST.json
func (c Calendar) FileName(day int) string {
	return fmt.Sprintf("%d_%03d_LST.json", c.Year, day)
}

// ParseKey is the inverse of Key
func (c Calendar) ParseKey(key string) (int, error) {
	var year, day int
	if _, err := fmt.Sscanf(key, "%d-%d", &year, &day); err != nil {
		return 0, &ValidationError{Field: "date", Value: key, Message: "expected YYYY-DDD"}
	}
	if year != c.Year {
		return 0, &ValidationError{Field: "date", Value: key, Message: fmt.Sprintf("year %d does not match %d", year, c.Year)}
	}
	if day < 1 || day > c.DaysInYear() {
		return 0, &ValidationError{Field: "date", Value: key, Message: "day of year out of range"}
	}
	return day, nil
}

// DaysInYear is 366 for leap years
func (c Calendar) DaysInYear() int {
	return time.Date(c.Year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}
