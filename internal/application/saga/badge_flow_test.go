package saga

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/badge"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ledger"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
	"github.com/dojo-hub/dojo-progression-engine/internal/infrastructure/memory"
)

type capturingPublisher struct {
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func newTestSaga(t *testing.T) (*BadgeFlowSaga, *memory.LedgerRepository, *memory.AwardRepository, *capturingPublisher) {
	t.Helper()

	catalog := badge.Catalog{
		{ID: "first_points", Name: "Первые очки", Unlock: badge.PointsThreshold{Min: 1}},
		{ID: "points_100", Name: "Сотня", Unlock: badge.PointsThreshold{Min: 100}},
		{ID: "streak_3", Name: "Три дня подряд", Unlock: badge.StreakThreshold{Days: 3}},
		{ID: "practice_2", Name: "Практикант", Unlock: badge.ActivityCount{Reason: string(ledger.ReasonPractice), Count: 2}},
	}
	require.NoError(t, catalog.Validate())

	ledgerRepo := memory.NewLedgerRepository()
	awardRepo := memory.NewAwardRepository()
	pub := &capturingPublisher{}
	flow := NewBadgeFlowSaga(ledgerRepo, awardRepo, catalog, pub, nil, DefaultBadgeFlowConfig())
	return flow, ledgerRepo, awardRepo, pub
}

func appendEvent(t *testing.T, repo *memory.LedgerRepository, studentID string, points int, reason ledger.Reason, occurredAt time.Time) {
	t.Helper()

	event, err := ledger.NewPointEvent(ledger.NewPointEventParams{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		Points:     ledger.Points(points),
		Reason:     reason,
		SourceRef:  ledger.SourceRef(uuid.NewString()),
		OccurredAt: occurredAt,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Append(context.Background(), event))
}

func TestBadgeFlow_AwardsThresholdBadges(t *testing.T) {
	flow, ledgerRepo, _, pub := newTestSaga(t)
	now := time.Now().UTC()

	appendEvent(t, ledgerRepo, "student-1", 120, ledger.ReasonExercise, now)

	result, err := flow.Execute(context.Background(), BadgeFlowInput{StudentID: "student-1"})
	require.NoError(t, err)

	require.Len(t, result.NewAwards, 2)
	assert.Equal(t, "first_points", result.NewAwards[0].BadgeID)
	assert.Equal(t, "points_100", result.NewAwards[1].BadgeID)
	assert.Len(t, pub.events, 2)
}

func TestBadgeFlow_SecondRunAwardsNothing(t *testing.T) {
	flow, ledgerRepo, _, _ := newTestSaga(t)
	now := time.Now().UTC()

	appendEvent(t, ledgerRepo, "student-1", 120, ledger.ReasonExercise, now)

	first, err := flow.Execute(context.Background(), BadgeFlowInput{StudentID: "student-1"})
	require.NoError(t, err)
	require.True(t, first.HasNewAwards())

	second, err := flow.Execute(context.Background(), BadgeFlowInput{StudentID: "student-1"})
	require.NoError(t, err)
	assert.False(t, second.HasNewAwards())
}

func TestBadgeFlow_AwardsSurviveCorrections(t *testing.T) {
	flow, ledgerRepo, awardRepo, _ := newTestSaga(t)
	now := time.Now().UTC()

	appendEvent(t, ledgerRepo, "student-1", 120, ledger.ReasonExercise, now)

	_, err := flow.Execute(context.Background(), BadgeFlowInput{StudentID: "student-1"})
	require.NoError(t, err)

	// A correction drops the student below the 100-point threshold.
	appendEvent(t, ledgerRepo, "student-1", -50, ledger.ReasonCorrection, now)

	result, err := flow.Execute(context.Background(), BadgeFlowInput{StudentID: "student-1"})
	require.NoError(t, err)
	assert.False(t, result.HasNewAwards())
	assert.Equal(t, 70, result.Snapshot.TotalPoints)

	// The badge stays on the books.
	awarded, err := awardRepo.IsAwarded(context.Background(), "student-1", "points_100")
	require.NoError(t, err)
	assert.True(t, awarded)
}

func TestBadgeFlow_StreakBadge(t *testing.T) {
	flow, ledgerRepo, _, _ := newTestSaga(t)
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		appendEvent(t, ledgerRepo, "student-1", 10, ledger.ReasonDailyActivity, day.AddDate(0, 0, i))
	}

	result, err := flow.Execute(context.Background(), BadgeFlowInput{StudentID: "student-1"})
	require.NoError(t, err)

	assert.Equal(t, 3, result.StreakDays)
	ids := make([]string, 0, len(result.NewAwards))
	for _, a := range result.NewAwards {
		ids = append(ids, a.BadgeID)
	}
	assert.Contains(t, ids, "streak_3")
}

func TestBadgeFlow_ActivityCountBadge(t *testing.T) {
	flow, ledgerRepo, _, _ := newTestSaga(t)
	now := time.Now().UTC()

	appendEvent(t, ledgerRepo, "student-1", 5, ledger.ReasonPractice, now)

	result, err := flow.Execute(context.Background(), BadgeFlowInput{StudentID: "student-1"})
	require.NoError(t, err)
	for _, a := range result.NewAwards {
		assert.NotEqual(t, "practice_2", a.BadgeID)
	}

	appendEvent(t, ledgerRepo, "student-1", 5, ledger.ReasonPractice, now)

	result, err = flow.Execute(context.Background(), BadgeFlowInput{StudentID: "student-1"})
	require.NoError(t, err)
	ids := make([]string, 0, len(result.NewAwards))
	for _, a := range result.NewAwards {
		ids = append(ids, a.BadgeID)
	}
	assert.Contains(t, ids, "practice_2")
}

func TestBadgeFlow_PublishesStreakUpdate(t *testing.T) {
	flow, ledgerRepo, _, pub := newTestSaga(t)
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	next := day.AddDate(0, 0, 1)

	appendEvent(t, ledgerRepo, "student-1", 10, ledger.ReasonDailyActivity, day)
	appendEvent(t, ledgerRepo, "student-1", 10, ledger.ReasonDailyActivity, next)

	_, err := flow.Execute(context.Background(), BadgeFlowInput{
		StudentID:         "student-1",
		TriggerOccurredAt: next,
	})
	require.NoError(t, err)

	var streakEvents []shared.StreakUpdatedEvent
	for _, e := range pub.events {
		if se, ok := e.(shared.StreakUpdatedEvent); ok {
			streakEvents = append(streakEvents, se)
		}
	}
	require.Len(t, streakEvents, 1)
	assert.Equal(t, 2, streakEvents[0].StreakDays)
	assert.False(t, streakEvents[0].WasReset)
}

func TestBadgeFlow_EmptyLedgerAwardsNothing(t *testing.T) {
	flow, _, _, _ := newTestSaga(t)

	result, err := flow.Execute(context.Background(), BadgeFlowInput{StudentID: "student-1"})
	require.NoError(t, err)
	assert.False(t, result.HasNewAwards())
	assert.Equal(t, 0, result.Snapshot.TotalPoints)
	assert.Equal(t, 0, result.StreakDays)
}
