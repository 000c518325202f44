package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfDay_UsesReportingTimezone(t *testing.T) {
	// 2026-03-09 22:30 UTC is already 2026-03-10 03:30 in UTC+5.
	utc := time.Date(2026, 3, 9, 22, 30, 0, 0, time.UTC)

	start := StartOfDay(utc)

	assert.Equal(t, 10, start.Day())
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, ReportingTZ, start.Location())
}

func TestIsSameDay_AcrossTimezones(t *testing.T) {
	// Both instants fall on 2026-03-10 in the reporting timezone even
	// though one is still 2026-03-09 in UTC.
	lateUTC := time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)
	morning := DateTime(2026, 3, 10, 9, 0, 0)

	assert.True(t, IsSameDay(lateUTC, morning))
	assert.False(t, IsSameDay(Date(2026, 3, 9), morning))
}

func TestIsConsecutiveDay(t *testing.T) {
	assert.True(t, IsConsecutiveDay(Date(2026, 3, 9), Date(2026, 3, 10)))
	assert.False(t, IsConsecutiveDay(Date(2026, 3, 9), Date(2026, 3, 11)))
	assert.False(t, IsConsecutiveDay(Date(2026, 3, 10), Date(2026, 3, 9)))
	// Month boundary.
	assert.True(t, IsConsecutiveDay(Date(2026, 2, 28), Date(2026, 3, 1)))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(DateTime(2026, 3, 10, 1, 0, 0), DateTime(2026, 3, 10, 23, 0, 0)))
	assert.Equal(t, 2, DaysBetween(Date(2026, 3, 9), Date(2026, 3, 11)))
	assert.Equal(t, 2, DaysBetween(Date(2026, 3, 11), Date(2026, 3, 9)))
}

func TestStartOfWeek_MondayBased(t *testing.T) {
	// 2026-03-11 is a Wednesday; the week starts Monday 2026-03-09.
	wednesday := Date(2026, 3, 11)

	start := StartOfWeek(wednesday)
	assert.Equal(t, Date(2026, 3, 9), start)

	// Sunday belongs to the same week, not the next one.
	sunday := Date(2026, 3, 15)
	assert.Equal(t, Date(2026, 3, 9), StartOfWeek(sunday))
}

func TestWeekWindow_HalfOpen(t *testing.T) {
	start, end := WeekWindow(Date(2026, 3, 11))

	assert.Equal(t, Date(2026, 3, 9), start)
	assert.Equal(t, Date(2026, 3, 16), end)
}

func TestMonthWindow(t *testing.T) {
	start, end := MonthWindow(Date(2026, 2, 15))

	assert.Equal(t, Date(2026, 2, 1), start)
	assert.Equal(t, Date(2026, 3, 1), end)
}

func TestParseWindowBound_RFC3339(t *testing.T) {
	got, err := ParseWindowBound("2026-03-10T12:00:00+05:00")
	require.NoError(t, err)

	assert.True(t, got.Equal(DateTime(2026, 3, 10, 12, 0, 0)))
}

func TestParseWindowBound_PlainDate(t *testing.T) {
	got, err := ParseWindowBound("2026-03-10")
	require.NoError(t, err)

	// A plain date means reporting-timezone midnight, not UTC midnight.
	assert.True(t, got.Equal(Date(2026, 3, 10)))
}

func TestParseWindowBound_Invalid(t *testing.T) {
	_, err := ParseWindowBound("next tuesday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RFC 3339")
}
