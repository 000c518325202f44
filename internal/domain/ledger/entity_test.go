package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

func validParams() NewPointEventParams {
	return NewPointEventParams{
		ID:         "11111111-1111-1111-1111-111111111111",
		StudentID:  "student-1",
		SubjectID:  "math",
		Points:     100,
		Reason:     ReasonExercise,
		SourceRef:  "attempt-42",
		OccurredAt: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
	}
}

func TestNewPointEvent(t *testing.T) {
	event, err := NewPointEvent(validParams())
	require.NoError(t, err)

	assert.Equal(t, "student-1", event.StudentID)
	assert.Equal(t, Points(100), event.Points)
	assert.False(t, event.IsPlatformWide())
	assert.False(t, event.IsCorrection())
	assert.False(t, event.RecordedAt.IsZero())
}

func TestNewPointEvent_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NewPointEventParams)
	}{
		{"missing id", func(p *NewPointEventParams) { p.ID = "" }},
		{"missing student", func(p *NewPointEventParams) { p.StudentID = "" }},
		{"zero points", func(p *NewPointEventParams) { p.Points = 0 }},
		{"unknown reason", func(p *NewPointEventParams) { p.Reason = "cheating" }},
		{"negative points for non-correction", func(p *NewPointEventParams) { p.Points = -50 }},
		{"missing source ref", func(p *NewPointEventParams) { p.SourceRef = "" }},
		{"source ref with whitespace", func(p *NewPointEventParams) { p.SourceRef = "a b" }},
		{"zero occurred_at", func(p *NewPointEventParams) { p.OccurredAt = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			tt.mutate(&params)

			_, err := NewPointEvent(params)
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrInvalidEvent))
			assert.True(t, shared.IsValidation(err))
		})
	}
}

func TestNewPointEvent_NegativeCorrectionAllowed(t *testing.T) {
	params := validParams()
	params.Points = -100
	params.Reason = ReasonCorrection

	event, err := NewPointEvent(params)
	require.NoError(t, err)
	assert.True(t, event.IsCorrection())
}

func TestNewPointEvent_PlatformWide(t *testing.T) {
	params := validParams()
	params.SubjectID = ""
	params.Reason = ReasonDailyActivity

	event, err := NewPointEvent(params)
	require.NoError(t, err)
	assert.True(t, event.IsPlatformWide())
}

func TestWindow(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
	}

	w := Window{Start: day(10), End: day(20)}
	assert.True(t, w.IsValid())
	assert.True(t, w.Contains(day(10)), "start is inclusive")
	assert.True(t, w.Contains(day(20)), "end is inclusive")
	assert.False(t, w.Contains(day(9)))
	assert.False(t, w.Contains(day(21)))

	var zero Window
	assert.True(t, zero.IsZero())
	assert.True(t, zero.IsValid())
	assert.True(t, zero.Contains(day(1)), "zero window means all time")

	inverted := Window{Start: day(20), End: day(10)}
	assert.False(t, inverted.IsValid())
}
