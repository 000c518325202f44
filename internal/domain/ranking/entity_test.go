package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enrolled(d int) time.Time {
	return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestRank_OrdersByPointsDescending(t *testing.T) {
	participants := []Participant{
		{StudentID: "a", EnrolledAt: enrolled(1)},
		{StudentID: "b", EnrolledAt: enrolled(2)},
		{StudentID: "c", EnrolledAt: enrolled(3)},
	}
	scores := map[string]int{"a": 100, "b": 300, "c": 200}

	entries := Rank("math", participants, scores)
	require.Len(t, entries, 3)

	assert.Equal(t, "b", entries[0].StudentID)
	assert.Equal(t, "c", entries[1].StudentID)
	assert.Equal(t, "a", entries[2].StudentID)

	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, 2, entries[1].Position)
	assert.Equal(t, 3, entries[2].Position)
}

func TestRank_TieBreakIsDeterministic(t *testing.T) {
	// Два студента с 500 очками: позиции 1 и 2, никогда 1 и 1.
	// Выше стоит записавшийся раньше.
	participants := []Participant{
		{StudentID: "late", EnrolledAt: enrolled(10)},
		{StudentID: "early", EnrolledAt: enrolled(2)},
	}
	scores := map[string]int{"late": 500, "early": 500}

	entries := Rank("math", participants, scores)
	require.Len(t, entries, 2)

	assert.Equal(t, "early", entries[0].StudentID)
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, "late", entries[1].StudentID)
	assert.Equal(t, 2, entries[1].Position)
}

func TestRank_TieBreakFallsBackToStudentID(t *testing.T) {
	sameDay := enrolled(5)
	participants := []Participant{
		{StudentID: "zeta", EnrolledAt: sameDay},
		{StudentID: "alpha", EnrolledAt: sameDay},
	}
	scores := map[string]int{"zeta": 100, "alpha": 100}

	entries := Rank("math", participants, scores)
	assert.Equal(t, "alpha", entries[0].StudentID)
	assert.Equal(t, "zeta", entries[1].StudentID)
}

func TestRank_IsStableAcrossCalls(t *testing.T) {
	participants := []Participant{
		{StudentID: "a", EnrolledAt: enrolled(1)},
		{StudentID: "b", EnrolledAt: enrolled(1)},
		{StudentID: "c", EnrolledAt: enrolled(2)},
		{StudentID: "d", EnrolledAt: enrolled(3)},
	}
	scores := map[string]int{"a": 50, "b": 50, "c": 50, "d": 200}

	first := Rank("math", participants, scores)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Rank("math", participants, scores))
	}
}

func TestRank_StrictTotalOrder(t *testing.T) {
	participants := []Participant{
		{StudentID: "a", EnrolledAt: enrolled(1)},
		{StudentID: "b", EnrolledAt: enrolled(1)},
		{StudentID: "c", EnrolledAt: enrolled(1)},
	}
	scores := map[string]int{"a": 10, "b": 10, "c": 10}

	entries := Rank("math", participants, scores)
	positions := make(map[int]bool)
	for _, e := range entries {
		assert.False(t, positions[e.Position], "duplicate position %d", e.Position)
		positions[e.Position] = true
	}
}

func TestRank_ParticipantWithoutEventsScoresZero(t *testing.T) {
	participants := []Participant{
		{StudentID: "active", EnrolledAt: enrolled(1)},
		{StudentID: "silent", EnrolledAt: enrolled(1)},
	}
	scores := map[string]int{"active": 40}

	entries := Rank("math", participants, scores)
	require.Len(t, entries, 2)
	assert.Equal(t, "silent", entries[1].StudentID)
	assert.Equal(t, 0, entries[1].TotalPoints)
}

func TestRank_Medals(t *testing.T) {
	participants := []Participant{
		{StudentID: "a", EnrolledAt: enrolled(1)},
		{StudentID: "b", EnrolledAt: enrolled(2)},
		{StudentID: "c", EnrolledAt: enrolled(3)},
		{StudentID: "d", EnrolledAt: enrolled(4)},
	}
	scores := map[string]int{"a": 400, "b": 300, "c": 200, "d": 100}

	entries := Rank("math", participants, scores)
	assert.Equal(t, MedalGold, entries[0].Medal)
	assert.Equal(t, MedalSilver, entries[1].Medal)
	assert.Equal(t, MedalBronze, entries[2].Medal)
	assert.Equal(t, MedalNone, entries[3].Medal)
}

func TestTop_DoesNotRecomputePositions(t *testing.T) {
	participants := []Participant{
		{StudentID: "a", EnrolledAt: enrolled(1)},
		{StudentID: "b", EnrolledAt: enrolled(2)},
		{StudentID: "c", EnrolledAt: enrolled(3)},
	}
	scores := map[string]int{"a": 30, "b": 20, "c": 10}

	full := Rank("math", participants, scores)
	top := Top(full, 2)

	require.Len(t, top, 2)
	assert.Equal(t, full[:2], top)

	// Усечение не трогает исходный список
	assert.Equal(t, 3, full[2].Position)

	assert.Nil(t, Top(full, 0))
	assert.Len(t, Top(full, 10), 3)
}

func TestFind(t *testing.T) {
	entries := []Entry{
		{StudentID: "a", Position: 1},
		{StudentID: "b", Position: 2},
	}

	e, ok := Find(entries, "b")
	require.True(t, ok)
	assert.Equal(t, 2, e.Position)

	_, ok = Find(entries, "zzz")
	assert.False(t, ok)
}
