package rating

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKFactor(t *testing.T) {
	tests := []struct {
		name   string
		games  int
		elo    float64
		foeElo float64
		score  float64
		want   float64
	}{
		{"fresh account", 0, 1200, 1200, 1, 32},
		{"under 50 games", 30, 1200, 1200, 1, 24},
		{"established", 100, 1200, 1200, 1, 16},
		{"low rating boost capped", 0, 1000, 1000, 1, 32},
		{"low rating boost", 30, 1050, 1050, 1, 32},
		{"high rating slowdown", 100, 1700, 1700, 1, 12},
		{"high rating slowdown under 50 games", 30, 1700, 1700, 1, 20},
		{"underdog win", 100, 1200, 1500, 1, 16 * 1.1},
		{"favorite loss", 100, 1500, 1200, 0, 16 * 1.05},
		{"underdog loss unboosted", 100, 1200, 1500, 0, 16},
		{"favorite win unboosted", 100, 1500, 1200, 1, 16},
		{"small gap unboosted", 100, 1300, 1450, 1, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, kFactor(tt.games, tt.elo, tt.foeElo, tt.score), 1e-9)
		})
	}
}

func TestUpdateElo(t *testing.T) {
	// Even match, fresh accounts: K=32, E=0.5.
	assert.InDelta(t, 1016, updateElo(1000, 1000, 0, 1), 1e-9)
	// Loser hits the floor.
	assert.Equal(t, float64(1000), updateElo(1000, 1000, 0, 0))
	// The floor binds from above too.
	assert.Equal(t, float64(1000), updateElo(1010, 1010, 0, 0))
}

func TestUpdateGlicko(t *testing.T) {
	r, rd := updateGlicko(1500, 130, 1500, 130, 1)

	assert.Greater(t, r, 1500.0, "winner's rating rises")
	assert.Less(t, rd, 130.0, "deviation shrinks with data")
	assert.GreaterOrEqual(t, rd, float64(minRD))

	// Both results carry one decimal.
	assert.InDelta(t, r*10, math.Round(r*10), 1e-9)
	assert.InDelta(t, rd*10, math.Round(rd*10), 1e-9)

	// Loser mirrors downward.
	lr, lrd := updateGlicko(1500, 130, 1500, 130, 0)
	assert.Less(t, lr, 1500.0)
	assert.Equal(t, rd, lrd)
}

func TestUpdateGlickoRDClamp(t *testing.T) {
	_, rd := updateGlicko(1500, 350, 1500, 350, 1)
	assert.LessOrEqual(t, rd, float64(maxRD))
	assert.GreaterOrEqual(t, rd, float64(minRD))

	// Deviation can only shrink from a game, so drive it down hard.
	cur := 60.0
	for i := 0; i < 500; i++ {
		_, cur = updateGlicko(1500, cur, 1500, 60, 1)
	}
	assert.GreaterOrEqual(t, cur, float64(minRD))
}

func TestGlixare(t *testing.T) {
	// At the reference rating the estimate is an even 50%.
	g := glixare(1500, 100)
	assert.False(t, g.Unknown)
	assert.InDelta(t, 50.00, g.Value, 1e-9)

	// Provisional deviations report no estimate.
	assert.True(t, glixare(1500, 101).Unknown)
	assert.True(t, glixare(1500, 130).Unknown)

	// Stronger players estimate above 50, weaker below.
	assert.Greater(t, glixare(1700, 80).Value, 50.0)
	assert.Less(t, glixare(1300, 80).Value, 50.0)

	// Two-decimal rounding.
	v := glixare(1617, 63).Value
	assert.InDelta(t, v*100, math.Round(v*100), 1e-9)
	assert.GreaterOrEqual(t, v, 0.0)
	assert.LessOrEqual(t, v, 100.0)
}

func TestGXEString(t *testing.T) {
	assert.Equal(t, "Unknown", GXE{Unknown: true}.String())
	assert.Equal(t, "50", GXE{Value: 50}.String())
	assert.Equal(t, "64.12", GXE{Value: 64.12}.String())
}
