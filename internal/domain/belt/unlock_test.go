package belt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUnlocked(t *testing.T) {
	tests := []struct {
		name     string
		required Requirement
		profile  ProfileSnapshot
		want     bool
	}{
		{
			name:     "both conditions met",
			required: Requirement{Tier: Yellow, Points: 250},
			profile:  ProfileSnapshot{CurrentBelt: Orange, TotalPoints: 450},
			want:     true,
		},
		{
			name:     "exact boundary",
			required: Requirement{Tier: Yellow, Points: 200},
			profile:  ProfileSnapshot{CurrentBelt: Yellow, TotalPoints: 200},
			want:     true,
		},
		{
			name:     "tier met, points short",
			required: Requirement{Tier: Yellow, Points: 300},
			profile:  ProfileSnapshot{CurrentBelt: Yellow, TotalPoints: 250},
			want:     false,
		},
		{
			name:     "points met, tier short",
			required: Requirement{Tier: Green, Points: 100},
			profile:  ProfileSnapshot{CurrentBelt: Yellow, TotalPoints: 350},
			want:     false,
		},
		{
			name:     "no requirement",
			required: Requirement{Tier: White, Points: 0},
			profile:  ProfileSnapshot{CurrentBelt: White, TotalPoints: 0},
			want:     true,
		},
		{
			name:     "unknown required tier stays locked",
			required: Requirement{Tier: Name("rainbow"), Points: 0},
			profile:  ProfileSnapshot{CurrentBelt: Black, TotalPoints: 99999},
			want:     false,
		},
		{
			name:     "unknown profile belt stays locked",
			required: Requirement{Tier: White, Points: 0},
			profile:  ProfileSnapshot{CurrentBelt: Name("rainbow"), TotalPoints: 99999},
			want:     false,
		},
		{
			name:     "unknown belt on both sides stays locked",
			required: Requirement{Tier: Name("rainbow"), Points: 0},
			profile:  ProfileSnapshot{CurrentBelt: Name("rainbow"), TotalPoints: 99999},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUnlocked(tt.required.Tier, tt.required.Points, tt.profile))
			assert.Equal(t, tt.want, tt.required.Satisfies(tt.profile))
		})
	}
}
