package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ledger"
	"github.com/dojo-hub/dojo-progression-engine/internal/infrastructure/memory"
)

func TestCheckUnlock_BothConditionsRequired(t *testing.T) {
	ledgerRepo := memory.NewLedgerRepository()
	profiles := newProfileHandler(ledgerRepo, memory.NewAwardRepository(), nil)
	handler := NewCheckUnlockHandler(profiles)
	ctx := context.Background()
	now := time.Now().UTC()

	// 250 points: yellow belt.
	appendEvent(t, ledgerRepo, "student-1", "math", 250, ledger.ReasonExercise, now)

	cases := []struct {
		name           string
		requiredBelt   string
		requiredPoints int
		unlocked       bool
	}{
		{"meets both", "yellow", 200, true},
		{"meets belt, short on points", "yellow", 300, false},
		{"meets points, short on belt", "orange", 100, false},
		{"exactly at thresholds", "yellow", 250, true},
		{"white content open to all", "white", 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := handler.Handle(ctx, CheckUnlockQuery{
				StudentID:      "student-1",
				RequiredBelt:   tc.requiredBelt,
				RequiredPoints: tc.requiredPoints,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.unlocked, result.Unlocked)
		})
	}
}

func TestCheckUnlock_HigherBeltSatisfiesLowerRequirement(t *testing.T) {
	ledgerRepo := memory.NewLedgerRepository()
	profiles := newProfileHandler(ledgerRepo, memory.NewAwardRepository(), nil)
	handler := NewCheckUnlockHandler(profiles)

	appendEvent(t, ledgerRepo, "student-1", "", 1000, ledger.ReasonManualAward, time.Now().UTC())

	result, err := handler.Handle(context.Background(), CheckUnlockQuery{
		StudentID:      "student-1",
		RequiredBelt:   "yellow",
		RequiredPoints: 200,
	})
	require.NoError(t, err)
	assert.True(t, result.Unlocked)
	assert.Equal(t, "blue", result.CurrentBelt)
}

func TestCheckUnlock_UnknownBeltStaysLocked(t *testing.T) {
	ledgerRepo := memory.NewLedgerRepository()
	profiles := newProfileHandler(ledgerRepo, memory.NewAwardRepository(), nil)
	handler := NewCheckUnlockHandler(profiles)

	appendEvent(t, ledgerRepo, "student-1", "", 5000, ledger.ReasonManualAward, time.Now().UTC())

	result, err := handler.Handle(context.Background(), CheckUnlockQuery{
		StudentID:      "student-1",
		RequiredBelt:   "crimson",
		RequiredPoints: 0,
	})
	require.NoError(t, err)
	assert.False(t, result.Unlocked)
}

func TestCheckUnlock_ReportsMissingPoints(t *testing.T) {
	ledgerRepo := memory.NewLedgerRepository()
	profiles := newProfileHandler(ledgerRepo, memory.NewAwardRepository(), nil)
	handler := NewCheckUnlockHandler(profiles)

	appendEvent(t, ledgerRepo, "student-1", "", 150, ledger.ReasonExercise, time.Now().UTC())

	result, err := handler.Handle(context.Background(), CheckUnlockQuery{
		StudentID:      "student-1",
		RequiredBelt:   "yellow",
		RequiredPoints: 200,
	})
	require.NoError(t, err)
	assert.False(t, result.Unlocked)
	assert.Equal(t, 50, result.MissingPoints)
}
