package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyValidGrammar(t *testing.T) {
	k, err := ParseKey("ortg|games_10|avg|diff")
	require.NoError(t, err)
	assert.Equal(t, "ortg", k.Stat)
	assert.Equal(t, PeriodGames, k.Period.Kind)
	assert.Equal(t, 10, k.Period.N)
	assert.Equal(t, WeightAvg, k.Weight.Kind)
	assert.Equal(t, SideDiff, k.Side)
}

func TestParseKeyRejectsWrongFieldCount(t *testing.T) {
	_, err := ParseKey("ortg|games_10|avg")
	assert.Error(t, err)
}

func TestParseKeyRejectsMalformedGamesN(t *testing.T) {
	_, err := ParseKey("ortg|games_x|avg|home")
	assert.Error(t, err)
}

func TestParseKeyBlendWeightValid(t *testing.T) {
	k, err := ParseKey("ortg|none|blend:season:0.80/games_20:0.10/games_12:0.10|home")
	require.NoError(t, err)
	require.Len(t, k.Weight.Blend, 3)
	assert.Equal(t, PeriodSeason, k.Weight.Blend[0].Period.Kind)
	assert.InDelta(t, 0.80, k.Weight.Blend[0].Proportion, 1e-9)
}

func TestParseKeyBlendWeightMustSumToOne(t *testing.T) {
	_, err := ParseKey("ortg|none|blend:season:0.5/games_20:0.3|home")
	assert.Error(t, err, "blend proportions summing to 0.8 must be rejected")
}

func TestParseKeyRejectsUnknownSide(t *testing.T) {
	_, err := ParseKey("ortg|season|raw|sideways")
	assert.Error(t, err)
}

func TestNetStatNamingRoundtrip(t *testing.T) {
	k, err := ParseKey("ortg_net|season|avg|home")
	require.NoError(t, err)
	assert.True(t, k.IsNetStat())
	assert.Equal(t, "ortg", k.BaseStat())

	plain, err := ParseKey("ortg|season|avg|home")
	require.NoError(t, err)
	assert.False(t, plain.IsNetStat())
}
