package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ledger"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
	"github.com/dojo-hub/dojo-progression-engine/internal/infrastructure/memory"
)

func newRankingFixture(t *testing.T) (*memory.LedgerRepository, *memory.EnrollmentRepository) {
	t.Helper()

	ledgerRepo := memory.NewLedgerRepository()
	enrollRepo := memory.NewEnrollmentRepository()
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, enrollRepo.Upsert(ctx, "math", "alice", base))
	require.NoError(t, enrollRepo.Upsert(ctx, "math", "bob", base.Add(time.Hour)))
	require.NoError(t, enrollRepo.Upsert(ctx, "math", "carol", base.Add(2*time.Hour)))

	return ledgerRepo, enrollRepo
}

func TestGetSubjectRanking_OrdersByPoints(t *testing.T) {
	ledgerRepo, enrollRepo := newRankingFixture(t)
	handler := NewGetSubjectRankingHandler(ledgerRepo, enrollRepo)
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	appendEvent(t, ledgerRepo, "alice", "math", 100, ledger.ReasonExercise, now)
	appendEvent(t, ledgerRepo, "bob", "math", 300, ledger.ReasonExercise, now)
	appendEvent(t, ledgerRepo, "carol", "math", 200, ledger.ReasonExercise, now)

	result, err := handler.Handle(context.Background(), GetSubjectRankingQuery{SubjectID: "math"})
	require.NoError(t, err)

	require.Len(t, result.Entries, 3)
	assert.Equal(t, "bob", result.Entries[0].StudentID)
	assert.Equal(t, 1, result.Entries[0].Position)
	assert.Equal(t, "🥇", result.Entries[0].Medal)
	assert.Equal(t, "carol", result.Entries[1].StudentID)
	assert.Equal(t, "alice", result.Entries[2].StudentID)
	assert.Equal(t, 3, result.TotalStudents)
	assert.False(t, result.HasMore)
}

func TestGetSubjectRanking_TieBreaksByEnrollment(t *testing.T) {
	ledgerRepo, enrollRepo := newRankingFixture(t)
	handler := NewGetSubjectRankingHandler(ledgerRepo, enrollRepo)
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	appendEvent(t, ledgerRepo, "alice", "math", 500, ledger.ReasonExercise, now)
	appendEvent(t, ledgerRepo, "bob", "math", 500, ledger.ReasonExercise, now)

	// Repeated calls must return the identical strict total order:
	// dense positions 1 and 2, never a shared rank.
	for i := 0; i < 5; i++ {
		result, err := handler.Handle(context.Background(), GetSubjectRankingQuery{SubjectID: "math"})
		require.NoError(t, err)

		require.Len(t, result.Entries, 3)
		assert.Equal(t, "alice", result.Entries[0].StudentID)
		assert.Equal(t, 1, result.Entries[0].Position)
		assert.Equal(t, "bob", result.Entries[1].StudentID)
		assert.Equal(t, 2, result.Entries[1].Position)
	}
}

func TestGetSubjectRanking_WindowIsAdditive(t *testing.T) {
	ledgerRepo, enrollRepo := newRankingFixture(t)
	handler := NewGetSubjectRankingHandler(ledgerRepo, enrollRepo)

	january := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	february := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

	appendEvent(t, ledgerRepo, "alice", "math", 100, ledger.ReasonExercise, january)
	appendEvent(t, ledgerRepo, "alice", "math", 150, ledger.ReasonExercise, february)

	janStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	janEnd := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
	febStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	febEnd := time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)

	scoreFor := func(start, end time.Time) int {
		result, err := handler.Handle(context.Background(), GetSubjectRankingQuery{
			SubjectID:   "math",
			WindowStart: start,
			WindowEnd:   end,
		})
		require.NoError(t, err)
		for _, e := range result.Entries {
			if e.StudentID == "alice" {
				return e.TotalPoints
			}
		}
		return 0
	}

	jan := scoreFor(janStart, janEnd)
	feb := scoreFor(febStart, febEnd)
	combined := scoreFor(janStart, febEnd)

	assert.Equal(t, 100, jan)
	assert.Equal(t, 150, feb)
	assert.Equal(t, jan+feb, combined)
}

func TestGetSubjectRanking_InvalidWindowRejected(t *testing.T) {
	ledgerRepo, enrollRepo := newRankingFixture(t)
	handler := NewGetSubjectRankingHandler(ledgerRepo, enrollRepo)

	_, err := handler.Handle(context.Background(), GetSubjectRankingQuery{
		SubjectID:   "math",
		WindowStart: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidWindow)
}

func TestGetSubjectRanking_EmptySubject(t *testing.T) {
	handler := NewGetSubjectRankingHandler(memory.NewLedgerRepository(), memory.NewEnrollmentRepository())

	result, err := handler.Handle(context.Background(), GetSubjectRankingQuery{SubjectID: "ghost"})
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
	assert.Equal(t, 0, result.TotalStudents)
}

func TestGetSubjectRanking_Pagination(t *testing.T) {
	ledgerRepo, enrollRepo := newRankingFixture(t)
	handler := NewGetSubjectRankingHandler(ledgerRepo, enrollRepo)
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	appendEvent(t, ledgerRepo, "alice", "math", 300, ledger.ReasonExercise, now)
	appendEvent(t, ledgerRepo, "bob", "math", 200, ledger.ReasonExercise, now)
	appendEvent(t, ledgerRepo, "carol", "math", 100, ledger.ReasonExercise, now)

	result, err := handler.Handle(context.Background(), GetSubjectRankingQuery{
		SubjectID: "math",
		Limit:     2,
	})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.True(t, result.HasMore)

	next, err := handler.Handle(context.Background(), GetSubjectRankingQuery{
		SubjectID: "math",
		Limit:     2,
		Offset:    2,
	})
	require.NoError(t, err)
	require.Len(t, next.Entries, 1)
	assert.Equal(t, "carol", next.Entries[0].StudentID)
	assert.Equal(t, 3, next.Entries[0].Position)
	assert.False(t, next.HasMore)
}

func TestGetTopPerformers_ReturnsMedals(t *testing.T) {
	ledgerRepo, enrollRepo := newRankingFixture(t)
	handler := NewGetTopPerformersHandler(ledgerRepo, enrollRepo)
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	appendEvent(t, ledgerRepo, "alice", "math", 300, ledger.ReasonExercise, now)
	appendEvent(t, ledgerRepo, "bob", "math", 200, ledger.ReasonExercise, now)
	appendEvent(t, ledgerRepo, "carol", "math", 100, ledger.ReasonExercise, now)

	result, err := handler.Handle(context.Background(), GetTopPerformersQuery{SubjectID: "math"})
	require.NoError(t, err)

	require.Len(t, result.Performers, 3)
	assert.Equal(t, "🥇", result.Performers[0].Medal)
	assert.Equal(t, "🥈", result.Performers[1].Medal)
	assert.Equal(t, "🥉", result.Performers[2].Medal)
}

func TestGetStudentPosition_ReturnsDenseRank(t *testing.T) {
	ledgerRepo, enrollRepo := newRankingFixture(t)
	handler := NewGetStudentPositionHandler(ledgerRepo, enrollRepo)
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	appendEvent(t, ledgerRepo, "alice", "math", 300, ledger.ReasonExercise, now)
	appendEvent(t, ledgerRepo, "bob", "math", 200, ledger.ReasonExercise, now)

	result, err := handler.Handle(context.Background(), GetStudentPositionQuery{
		SubjectID: "math",
		StudentID: "bob",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Position)
	assert.Equal(t, 200, result.TotalPoints)
	assert.Equal(t, 3, result.TotalStudents)
	assert.Equal(t, "🥈", result.Medal)
}

func TestGetStudentPosition_NotEnrolled(t *testing.T) {
	ledgerRepo, enrollRepo := newRankingFixture(t)
	handler := NewGetStudentPositionHandler(ledgerRepo, enrollRepo)

	_, err := handler.Handle(context.Background(), GetStudentPositionQuery{
		SubjectID: "math",
		StudentID: "mallory",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNotEnrolled)
}

func TestGetStudentPosition_EnrolledWithZeroPoints(t *testing.T) {
	ledgerRepo, enrollRepo := newRankingFixture(t)
	handler := NewGetStudentPositionHandler(ledgerRepo, enrollRepo)
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	appendEvent(t, ledgerRepo, "alice", "math", 300, ledger.ReasonExercise, now)

	// Enrolled but with no subject events: ranked with zero, not an error.
	result, err := handler.Handle(context.Background(), GetStudentPositionQuery{
		SubjectID: "math",
		StudentID: "carol",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalPoints)
	assert.Equal(t, 3, result.Position)
}
