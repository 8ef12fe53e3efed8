package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp   int64
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{499, 3},
		{500, 4},
		{999, 4},
		{1000, 5},
		{1749, 5},
		{1750, 6},
		{10000, 17},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForXP(tt.xp), "xp=%d", tt.xp)
	}
}

func TestLevelForXPNonDecreasing(t *testing.T) {
	prev := LevelForXP(0)
	for xp := int64(1); xp <= 5000; xp++ {
		level := LevelForXP(xp)
		assert.GreaterOrEqual(t, level, prev, "level dropped at xp=%d", xp)
		prev = level
	}
}

func TestDifficultyTables(t *testing.T) {
	assert.Equal(t, int64(3), DifficultyEasy.TokenCost())
	assert.Equal(t, int64(2), DifficultyMedium.TokenCost())
	assert.Equal(t, int64(1), DifficultyHard.TokenCost())

	assert.Equal(t, TxGameEasy, DifficultyEasy.TxType())
	assert.Equal(t, TxGameMedium, DifficultyMedium.TxType())
	assert.Equal(t, TxGameHard, DifficultyHard.TxType())

	assert.False(t, Difficulty("nightmare").Valid())
	assert.True(t, DifficultyMedium.Valid())
}

func TestNormalizeSortKey(t *testing.T) {
	assert.Equal(t, SortTokens, NormalizeSortKey("tokens"))
	assert.Equal(t, SortLevel, NormalizeSortKey("level"))
	assert.Equal(t, SortXP, NormalizeSortKey("xp"))
	assert.Equal(t, SortXP, NormalizeSortKey("bogus"))
	assert.Equal(t, SortXP, NormalizeSortKey(""))
}
