package elo

import (
	"testing"
	"time"

	"github.com/ai-atl/hoopcast/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRatingBeforeColdStartWhenNoHistory(t *testing.T) {
	c := NewCache(nil, Params{KFactor: 20, HomeAdvantage: 50, ColdStart: 1500})
	got := c.RatingBefore("ATL", "2025-26", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 1500.0, got)
}

func TestRatingBeforeReturnsLatestSnapshotStrictlyBeforeDate(t *testing.T) {
	c := NewCache(nil, Params{KFactor: 20, HomeAdvantage: 50, ColdStart: 1500})
	c.ratings["2025-26"] = map[string][]models.EloRating{
		"ATL": {
			{Team: "ATL", Season: "2025-26", Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Rating: 1510},
			{Team: "ATL", Season: "2025-26", Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), Rating: 1525},
		},
	}

	before := c.RatingBefore("ATL", "2025-26", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 1510.0, before, "rating on the snapshot's own date must not leak into the lookup")

	after := c.RatingBefore("ATL", "2025-26", time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 1525.0, after)
}

func TestExpectedScoreSymmetry(t *testing.T) {
	equal := expectedScore(1500, 1500)
	assert.InDelta(t, 0.5, equal, 1e-9, "equal ratings must imply a coin-flip expectation")

	favorite := expectedScore(1600, 1400)
	underdog := expectedScore(1400, 1600)
	assert.InDelta(t, 1.0, favorite+underdog, 1e-9, "expected scores for a pairing must sum to one")
	assert.Greater(t, favorite, 0.5)
}
