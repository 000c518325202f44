package belt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTable(t *testing.T) {
	assert.NoError(t, ValidateTable())
}

func TestValidate_RejectsMalformedTables(t *testing.T) {
	tests := []struct {
		name  string
		table []Tier
	}{
		{
			name:  "empty",
			table: nil,
		},
		{
			name: "does not start at zero",
			table: []Tier{
				{Order: 1, Name: White, MinPoints: 100, MaxPoints: Unbounded},
			},
		},
		{
			name: "gap between tiers",
			table: []Tier{
				{Order: 1, Name: White, MinPoints: 0, MaxPoints: 199},
				{Order: 2, Name: Yellow, MinPoints: 250, MaxPoints: Unbounded},
			},
		},
		{
			name: "overlap between tiers",
			table: []Tier{
				{Order: 1, Name: White, MinPoints: 0, MaxPoints: 199},
				{Order: 2, Name: Yellow, MinPoints: 150, MaxPoints: Unbounded},
			},
		},
		{
			name: "last tier bounded",
			table: []Tier{
				{Order: 1, Name: White, MinPoints: 0, MaxPoints: 199},
				{Order: 2, Name: Yellow, MinPoints: 200, MaxPoints: 399},
			},
		},
		{
			name: "inverted range",
			table: []Tier{
				{Order: 1, Name: White, MinPoints: 0, MaxPoints: -5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, validate(tt.table))
		})
	}
}

func TestForPoints_Boundaries(t *testing.T) {
	tests := []struct {
		points int
		want   Name
	}{
		{0, White},
		{199, White},
		{200, Yellow},
		{300, Yellow},
		{399, Yellow},
		{400, Orange},
		{599, Orange},
		{600, Green},
		{899, Green},
		{900, Blue},
		{1199, Blue},
		{1200, Purple},
		{1599, Purple},
		{1600, Brown},
		{1999, Brown},
		{2000, Black},
		{1_000_000, Black},
	}

	for _, tt := range tests {
		tier, err := ForPoints(tt.points)
		require.NoError(t, err)
		assert.Equal(t, tt.want, tier.Name, "points=%d", tt.points)
	}
}

func TestForPoints_ExactlyOneTierPerTotal(t *testing.T) {
	// Смежные диапазоны покрывают каждую границу ровно одним поясом.
	for p := 0; p <= 2100; p++ {
		matches := 0
		for _, tier := range Table {
			if tier.Contains(p) {
				matches++
			}
		}
		require.Equal(t, 1, matches, "points=%d", p)
	}
}

func TestForPoints_NegativeTotalIsWhite(t *testing.T) {
	tier, err := ForPoints(-50)
	require.NoError(t, err)
	assert.Equal(t, White, tier.Name)
}

func TestNext(t *testing.T) {
	white, err := ByName(White)
	require.NoError(t, err)

	next, ok := Next(white)
	require.True(t, ok)
	assert.Equal(t, Yellow, next.Name)

	black, err := ByName(Black)
	require.NoError(t, err)
	assert.True(t, black.IsTerminal())

	_, ok = Next(black)
	assert.False(t, ok, "black is terminal")
}

func TestPointsToNext(t *testing.T) {
	assert.Equal(t, 200, PointsToNext(0))
	assert.Equal(t, 1, PointsToNext(199))
	assert.Equal(t, 200, PointsToNext(200))
	assert.Equal(t, 0, PointsToNext(2000), "terminal tier has no next")
}

func TestOrder_UnknownNameNeverUnlocks(t *testing.T) {
	assert.Greater(t, Order(Name("rainbow")), Order(Black))
}
