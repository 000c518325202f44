// Package timeutil provides reporting-timezone helpers for the progression
// engine. Streaks and "daily" boundaries are defined in a single reporting
// timezone fixed per deployment (default Asia/Almaty, UTC+5, no DST since
// Kazakhstan abolished it in 2005), not in each student's local time.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// ReportingTZ is the default reporting timezone (UTC+5, no DST).
var ReportingTZ = time.FixedZone("Asia/Almaty", 5*60*60)

// Now returns the current time in the reporting timezone.
func Now() time.Time {
	return time.Now().In(ReportingTZ)
}

// ToReporting converts a time to the reporting timezone.
func ToReporting(t time.Time) time.Time {
	return t.In(ReportingTZ)
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// Date creates a midnight time in the reporting timezone.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, ReportingTZ)
}

// DateTime creates a time in the reporting timezone.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, ReportingTZ)
}

// StartOfDay returns the start of the day (00:00:00) in the reporting timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToReporting(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, ReportingTZ)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in the reporting timezone.
func EndOfDay(t time.Time) time.Time {
	local := ToReporting(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, ReportingTZ)
}

// StartOfWeek returns Monday 00:00:00 of the week containing t.
func StartOfWeek(t time.Time) time.Time {
	local := ToReporting(t)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return StartOfDay(local.AddDate(0, 0, -(weekday - 1)))
}

// StartOfMonth returns the first day of the month at 00:00:00.
func StartOfMonth(t time.Time) time.Time {
	local := ToReporting(t)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, ReportingTZ)
}

// WeekWindow returns the [start, end) bounds of the week containing t,
// suitable for windowed leaderboard queries.
func WeekWindow(t time.Time) (time.Time, time.Time) {
	start := StartOfWeek(t)
	return start, start.AddDate(0, 0, 7)
}

// MonthWindow returns the [start, end) bounds of the month containing t.
func MonthWindow(t time.Time) (time.Time, time.Time) {
	start := StartOfMonth(t)
	return start, start.AddDate(0, 1, 0)
}

// IsToday checks if the given time is today in the reporting timezone.
func IsToday(t time.Time) bool {
	return IsSameDay(t, Now())
}

// IsYesterday checks if the given time is yesterday in the reporting timezone.
func IsYesterday(t time.Time) bool {
	return IsSameDay(t, Now().AddDate(0, 0, -1))
}

// DaysSince calculates the number of whole reporting days since the given time.
func DaysSince(t time.Time) int {
	now := StartOfDay(Now())
	then := StartOfDay(t)
	return int(now.Sub(then).Hours() / 24)
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
)

// Format formats a time in the reporting timezone with the given layout.
func Format(t time.Time, layout string) string {
	return ToReporting(t).Format(layout)
}

// FormatDateStr formats a time as a date string (YYYY-MM-DD).
func FormatDateStr(t time.Time) string {
	return Format(t, FormatDate)
}

// FormatDateTimeStr formats a time as a datetime string.
func FormatDateTimeStr(t time.Time) string {
	return Format(t, FormatDateTime)
}

// Parse parses a time string in the reporting timezone.
func Parse(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, ReportingTZ)
}

// ParseDate parses a date string (YYYY-MM-DD) in the reporting timezone.
func ParseDate(value string) (time.Time, error) {
	return Parse(FormatDate, value)
}

// ParseWindowBound parses a leaderboard window bound. RFC 3339 timestamps
// and plain dates are both accepted; a plain date means midnight of that
// day in the reporting timezone.
func ParseWindowBound(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := ParseDate(value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD", value)
}

// Streak day arithmetic.

// IsSameDay checks if two times fall on the same reporting day.
func IsSameDay(t1, t2 time.Time) bool {
	a, b := ToReporting(t1), ToReporting(t2)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// IsConsecutiveDay checks if t2 is the reporting day after t1.
func IsConsecutiveDay(t1, t2 time.Time) bool {
	return IsSameDay(ToReporting(t1).AddDate(0, 0, 1), t2)
}

// DaysBetween calculates the number of reporting days between two times.
func DaysBetween(t1, t2 time.Time) int {
	days := int(StartOfDay(t2).Sub(StartOfDay(t1)).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}
