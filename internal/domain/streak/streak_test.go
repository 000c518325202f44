package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var almaty = time.FixedZone("Asia/Almaty", 5*60*60)

func day(d int) time.Time {
	return time.Date(2026, 3, d, 10, 30, 0, 0, almaty)
}

func TestAdvance_FirstActivityStartsStreak(t *testing.T) {
	var s Streak
	assert.False(t, s.HasActivity())

	s, tr := s.Advance(day(1), almaty)
	assert.Equal(t, TransitionStarted, tr)
	assert.Equal(t, 1, s.Days)
}

func TestAdvance_SameDayIsIdempotent(t *testing.T) {
	var s Streak
	s, _ = s.Advance(day(1), almaty)

	// Второе событие того же дня, другое время
	later := time.Date(2026, 3, 1, 23, 59, 0, 0, almaty)
	next, tr := s.Advance(later, almaty)

	assert.Equal(t, TransitionUnchanged, tr)
	assert.Equal(t, s, next)
}

func TestAdvance_ConsecutiveDayExtends(t *testing.T) {
	var s Streak
	s, _ = s.Advance(day(1), almaty)
	s, tr := s.Advance(day(2), almaty)

	assert.Equal(t, TransitionExtended, tr)
	assert.Equal(t, 2, s.Days)

	s, _ = s.Advance(day(3), almaty)
	assert.Equal(t, 3, s.Days)
}

func TestAdvance_GapResetsToOne(t *testing.T) {
	// Активность в день 1 и день 3 без дня 2: серия начинается заново.
	var s Streak
	s, _ = s.Advance(day(1), almaty)
	s, tr := s.Advance(day(3), almaty)

	assert.Equal(t, TransitionReset, tr)
	assert.Equal(t, 1, s.Days, "reset, not decremented")
}

func TestAdvance_BackdatedEventDoesNotChangeStreak(t *testing.T) {
	var s Streak
	s, _ = s.Advance(day(5), almaty)

	next, tr := s.Advance(day(2), almaty)
	assert.Equal(t, TransitionUnchanged, tr)
	assert.Equal(t, s, next)
}

func TestAdvance_TimezoneBoundary(t *testing.T) {
	// 23:30 и 01:30 следующего дня по Алматы - соседние дни,
	// хотя в UTC оба момента попадают в одни сутки.
	var s Streak
	s, _ = s.Advance(time.Date(2026, 3, 1, 23, 30, 0, 0, almaty), almaty)
	s, tr := s.Advance(time.Date(2026, 3, 2, 1, 30, 0, 0, almaty), almaty)

	assert.Equal(t, TransitionExtended, tr)
	assert.Equal(t, 2, s.Days)
}

func TestFromTimestamps(t *testing.T) {
	tests := []struct {
		name     string
		stamps   []time.Time
		wantDays int
	}{
		{"no events", nil, 0},
		{"single day", []time.Time{day(1)}, 1},
		{"three consecutive", []time.Time{day(1), day(2), day(3)}, 3},
		{"gap resets", []time.Time{day(1), day(3)}, 1},
		{"duplicates within a day", []time.Time{day(2), day(2), day(3)}, 2},
		{"unsorted input", []time.Time{day(3), day(1), day(2)}, 3},
		{"long run after reset", []time.Time{day(1), day(5), day(6), day(7)}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromTimestamps(tt.stamps, almaty)
			assert.Equal(t, tt.wantDays, s.Days)
		})
	}
}

func TestFromTimestamps_LastActivityDate(t *testing.T) {
	s := FromTimestamps([]time.Time{day(1), day(2)}, almaty)
	require.True(t, s.HasActivity())
	assert.Equal(t, DayOf(day(2), almaty), s.LastActivityDate)
}

func TestIsAlive(t *testing.T) {
	s := FromTimestamps([]time.Time{day(1), day(2)}, almaty)

	assert.True(t, s.IsAlive(day(2), almaty), "active today")
	assert.True(t, s.IsAlive(day(3), almaty), "active yesterday")
	assert.False(t, s.IsAlive(day(4), almaty), "two days silent")

	var empty Streak
	assert.False(t, empty.IsAlive(day(1), almaty))
}
