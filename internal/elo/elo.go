// Package elo implements EloCache: an incrementally maintained
// rolling per-team rating, persisted after every completed game and
// answered from memory for any date within its preloaded seasons.
package elo

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/ai-atl/hoopcast/internal/models"
	"github.com/ai-atl/hoopcast/internal/store"
)

// Params configures the logistic-expected-score update rule.
type Params struct {
	KFactor float64
	HomeAdvantage float64
	ColdStart float64
}

// Cache incrementally maintains per-team Elo ratings. Lookups return the
// rating in effect immediately before a requested date; absence yields the
// cold-start rating.
type Cache struct {
	store *store.EloStore
	params Params

	// ratings[season][team] is the chronological history of rating
	// snapshots for that team in that season, sorted by date ascending.
	ratings map[string]map[string][]models.EloRating
}

func NewCache(eloStore *store.EloStore, params Params) *Cache {
	return &Cache{store: eloStore, params: params, ratings: map[string]map[string][]models.EloRating{}}
}

// Preload loads every persisted rating snapshot for a season into memory.
func (c *Cache) Preload(ctx context.Context, season string) error {
	snaps, err := c.store.AllForSeason(ctx, season)
	if err != nil {
		return err
	}
	byTeam := map[string][]models.EloRating{}
	for _, s := range snaps {
		byTeam[s.Team] = append(byTeam[s.Team], s)
	}
	for team := range byTeam {
		sort.Slice(byTeam[team], func(i, j int) bool { return byTeam[team][i].Date.Before(byTeam[team][j].Date) })
	}
	c.ratings[season] = byTeam
	return nil
}

// RatingBefore returns a team's rating in effect immediately before `before`
// within a season, or the cold-start rating if no prior snapshot exists.
func (c *Cache) RatingBefore(team, season string, before time.Time) float64 {
	history := c.ratings[season][team]
	rating := c.params.ColdStart
	for _, snap := range history {
		if !snap.Date.Before(before) {
			break
		}
		rating = snap.Rating
	}
	return rating
}

// ApplyGame updates both teams' ratings for one completed game in
// chronological order and persists the resulting snapshots. Games must be
// applied strictly in date order for a season; the cache does not
// re-sort retroactively.
func (c *Cache) ApplyGame(ctx context.Context, g models.Game) error {
	if !g.Completed() {
		return nil
	}
	homeRating := c.RatingBefore(g.Home, g.Season, g.Date.Add(time.Nanosecond))
	awayRating := c.RatingBefore(g.Away, g.Season, g.Date.Add(time.Nanosecond))

	expectedHome := expectedScore(homeRating+c.params.HomeAdvantage, awayRating)
	actualHome := 0.0
	switch {
	case g.HomeWon != nil:
		if *g.HomeWon {
			actualHome = 1.0
		}
	case *g.HomePoints > *g.AwayPoints:
		actualHome = 1.0
	}

	newHome := homeRating + c.params.KFactor*(actualHome-expectedHome)
	newAway := awayRating + c.params.KFactor*((1-actualHome)-(1-expectedHome))

	homeSnap := models.EloRating{Team: g.Home, Season: g.Season, Date: g.Date, Rating: newHome, GameID: g.GameID}
	awaySnap := models.EloRating{Team: g.Away, Season: g.Season, Date: g.Date, Rating: newAway, GameID: g.GameID}

	if err := c.store.Insert(ctx, &homeSnap); err != nil {
		return err
	}
	if err := c.store.Insert(ctx, &awaySnap); err != nil {
		return err
	}

	if c.ratings[g.Season] == nil {
		c.ratings[g.Season] = map[string][]models.EloRating{}
	}
	c.ratings[g.Season][g.Home] = append(c.ratings[g.Season][g.Home], homeSnap)
	c.ratings[g.Season][g.Away] = append(c.ratings[g.Season][g.Away], awaySnap)
	return nil
}

// expectedScore is the standard logistic expected-score rule.
func expectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/400.0))
}
