package badge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog_IsValid(t *testing.T) {
	assert.NoError(t, DefaultCatalog().Validate())
}

func TestCatalog_Validate(t *testing.T) {
	tests := []struct {
		name    string
		catalog Catalog
		wantErr bool
	}{
		{
			name: "valid",
			catalog: Catalog{
				{ID: "a", Name: "A", Unlock: PointsThreshold{Min: 10}},
				{ID: "b", Name: "B", Unlock: StreakThreshold{Days: 3}},
			},
		},
		{
			name: "duplicate id",
			catalog: Catalog{
				{ID: "a", Name: "A", Unlock: PointsThreshold{Min: 10}},
				{ID: "a", Name: "A2", Unlock: PointsThreshold{Min: 20}},
			},
			wantErr: true,
		},
		{
			name:    "empty id",
			catalog: Catalog{{ID: "", Name: "A", Unlock: PointsThreshold{Min: 10}}},
			wantErr: true,
		},
		{
			name:    "nil predicate",
			catalog: Catalog{{ID: "a", Name: "A"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.catalog.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHolds(t *testing.T) {
	snap := Snapshot{
		StudentID:   "s1",
		TotalPoints: 1200,
		StreakDays:  7,
		EventCountByReason: map[string]int{
			"practice_answer": 10,
		},
	}

	tests := []struct {
		name string
		pred Predicate
		want bool
	}{
		{"points met", PointsThreshold{Min: 1000}, true},
		{"points exact", PointsThreshold{Min: 1200}, true},
		{"points short", PointsThreshold{Min: 1201}, false},
		{"streak met", StreakThreshold{Days: 7}, true},
		{"streak short", StreakThreshold{Days: 8}, false},
		{"activity met", ActivityCount{Reason: "practice_answer", Count: 10}, true},
		{"activity short", ActivityCount{Reason: "practice_answer", Count: 11}, false},
		{"activity unknown reason", ActivityCount{Reason: "exercise_completed", Count: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Holds(tt.pred, snap)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type bogusPredicate struct{}

func (bogusPredicate) isPredicate() {}

func TestHolds_UnknownKind(t *testing.T) {
	_, err := Holds(bogusPredicate{}, Snapshot{})
	assert.Error(t, err)
}

func TestCatalog_Get(t *testing.T) {
	catalog := DefaultCatalog()

	b, err := catalog.Get("streak_7")
	require.NoError(t, err)
	assert.Equal(t, StreakThreshold{Days: 7}, b.Unlock)

	_, err = catalog.Get("nope")
	assert.Error(t, err)
}

func TestNewAward_Validation(t *testing.T) {
	_, err := NewAward("", "s1", "b1", time.Time{})
	assert.Error(t, err)

	_, err = NewAward("id", "", "b1", time.Time{})
	assert.Error(t, err)

	_, err = NewAward("id", "s1", "", time.Time{})
	assert.Error(t, err)

	a, err := NewAward("id", "s1", "b1", time.Time{})
	require.NoError(t, err)
	assert.False(t, a.AwardedAt.IsZero(), "zero awardedAt defaults to now")
}
