package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/badge"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ledger"
	"github.com/dojo-hub/dojo-progression-engine/internal/infrastructure/memory"
)

func TestGetPointsHistory_NewestFirst(t *testing.T) {
	ledgerRepo := memory.NewLedgerRepository()
	handler := NewGetPointsHistoryHandler(ledgerRepo)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	appendEvent(t, ledgerRepo, "student-1", "math", 10, ledger.ReasonExercise, base)
	appendEvent(t, ledgerRepo, "student-1", "math", 20, ledger.ReasonExercise, base.Add(time.Hour))
	appendEvent(t, ledgerRepo, "student-1", "math", -5, ledger.ReasonCorrection, base.Add(2*time.Hour))

	result, err := handler.Handle(context.Background(), GetPointsHistoryQuery{StudentID: "student-1"})
	require.NoError(t, err)

	require.Len(t, result.Events, 3)
	// Corrections show up as their own negative entries; history is
	// never rewritten.
	assert.Equal(t, -5, result.Events[0].Points)
	assert.Equal(t, string(ledger.ReasonCorrection), result.Events[0].Reason)
}

func TestGetPointsHistory_LimitApplied(t *testing.T) {
	ledgerRepo := memory.NewLedgerRepository()
	handler := NewGetPointsHistoryHandler(ledgerRepo)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		appendEvent(t, ledgerRepo, "student-1", "math", 10, ledger.ReasonExercise, base.Add(time.Duration(i)*time.Hour))
	}

	result, err := handler.Handle(context.Background(), GetPointsHistoryQuery{
		StudentID: "student-1",
		Limit:     2,
	})
	require.NoError(t, err)
	assert.Len(t, result.Events, 2)
}

func TestGetStudentBadges_CatalogWithStatuses(t *testing.T) {
	awardRepo := memory.NewAwardRepository()
	catalog := badge.DefaultCatalog()
	handler := NewGetStudentBadgesHandler(awardRepo, catalog)
	ctx := context.Background()

	award, err := badge.NewAward(uuid.NewString(), "student-1", "streak_7", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, awardRepo.Insert(ctx, award))

	result, err := handler.Handle(ctx, GetStudentBadgesQuery{StudentID: "student-1"})
	require.NoError(t, err)

	assert.Len(t, result.Badges, len(catalog))
	assert.Equal(t, 1, result.AwardedCount)

	var found bool
	for _, b := range result.Badges {
		if b.ID == "streak_7" {
			found = true
			assert.True(t, b.Awarded)
			assert.NotNil(t, b.AwardedAt)
		} else {
			assert.False(t, b.Awarded)
		}
	}
	assert.True(t, found)
}

func TestGetStudentBadges_OnlyAwardedFilter(t *testing.T) {
	awardRepo := memory.NewAwardRepository()
	handler := NewGetStudentBadgesHandler(awardRepo, badge.DefaultCatalog())
	ctx := context.Background()

	award, err := badge.NewAward(uuid.NewString(), "student-1", "first_points", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, awardRepo.Insert(ctx, award))

	result, err := handler.Handle(ctx, GetStudentBadgesQuery{
		StudentID:   "student-1",
		OnlyAwarded: true,
	})
	require.NoError(t, err)

	require.Len(t, result.Badges, 1)
	assert.Equal(t, "first_points", result.Badges[0].ID)
}
