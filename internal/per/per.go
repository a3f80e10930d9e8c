// Package per implements PERCalculator: player efficiency ratings
// computed strictly before a cutoff date, aggregated to the team-level
// player_* and inj_* feature blocks that SharedFeatureContext merges
// alongside StatHandler's output.
package per

import (
	"context"
	"sort"
	"time"

	"github.com/ai-atl/hoopcast/internal/models"
	"github.com/ai-atl/hoopcast/internal/store"
)

// Calculator computes player efficiency ratings and team aggregates.
// Its preload may be restricted to an explicit season list to bound
// memory; league-season constants are computed once per season and are
// safe for concurrent reads.
type Calculator struct {
	statStore *store.PlayerStatStore
	leagueStats *store.LeagueStatsStore
	league string

	seasonConstants map[string]models.LeagueSeasonStats
}

func NewCalculator(statStore *store.PlayerStatStore, leagueStats *store.LeagueStatsStore, league string) *Calculator {
	return &Calculator{
		statStore: statStore,
		leagueStats: leagueStats,
		league: league,
		seasonConstants: map[string]models.LeagueSeasonStats{},
	}
}

// Preload materializes league-season constants for the given seasons so
// later calls never fetch them from the league-stats store; box-score lines
// are still read from the stat store on each call.
func (c *Calculator) Preload(ctx context.Context, seasons []string) error {
	for _, season := range seasons {
		st, err := c.leagueStats.Get(ctx, c.league, season)
		if err != nil {
			continue // constants not yet materialized for this season; PER degrades to 0
		}
		c.seasonConstants[season] = *st
	}
	return nil
}

// GetPlayerPERBeforeDate aggregates a player's box-score lines in a season
// strictly before beforeDate and applies the standard PER formulation. It
// returns nil if the player has no qualifying minutes in that window —
// "no data leakage" is enforced by the strictly-before store query.
func (c *Calculator) GetPlayerPERBeforeDate(ctx context.Context, playerID, season string, beforeDate time.Time) (*float64, error) {
	lines, err := c.statStore.ForPlayerBefore(ctx, playerID, season, beforeDate)
	if err != nil {
		return nil, err
	}
	constants, ok := c.seasonConstants[season]
	if !ok {
		return nil, nil
	}

	var minutes, totalUPER float64
	var qualifying int
	for _, l := range lines {
		if !l.Played() {
			continue
		}
		qualifying++
		minutes += l.Minutes
		totalUPER += uPER(l, constants)
	}
	if qualifying == 0 || minutes <= 0 {
		return nil, nil
	}
	per := (totalUPER / minutes) * constants.FactorConst * paceAdjustment(constants)
	return &per, nil
}

// uPER is the unadjusted per-minute efficiency contribution of one game
// line, following Hollinger's linear-weights formulation normalized by
// league constants.
func uPER(l models.PlayerGameStat, c models.LeagueSeasonStats) float64 {
	if l.Minutes <= 0 {
		return 0
	}
	fgm := float64(l.FieldGoals.Made)
	ftm := float64(l.FreeThrows.Made)
	fga := float64(l.FieldGoals.Attempts)
	fta := float64(l.FreeThrows.Attempts)
	threeM := float64(l.ThreePoint.Made)

	value := threeM*0.5 +
	(fgm)*(2-c.FactorConst*(c.LeagueAST/c.LeagueFG)) +
	(ftm * 0.5 * (1 + (1 - c.LeagueAST/c.LeagueFG) + (2.0 / 3.0 * (c.LeagueAST / c.LeagueFG)))) +
	float64(l.Turnovers)*-1*c.VOP +
	float64(l.Steals)*c.VOP +
	float64(l.Assists)*c.VOP*0.666667 +
	float64(l.Blocks)*c.VOP*c.DRBP -
	(fga-fgm)*c.VOP -
	(fta-ftm)*c.VOP*0.44 -
	float64(l.Rebounds)*0.5*c.VOP*(1-c.DRBP) -
	float64(l.Fouls)*(c.LeagueFT/c.LeagueFG)*0.44*c.VOP
	return value
}

func paceAdjustment(c models.LeagueSeasonStats) float64 {
	if c.Pace == 0 || c.LeaguePace == 0 {
		return 1
	}
	return c.LeaguePace / c.Pace
}

// playerTalent is the resolved talent line for one rostered player used by
// team aggregation: their PER and minutes-per-game, for both the whole-team
// and top-N-by-minutes blocks a feature key can request.
type playerTalent struct {
	playerID string
	per float64
	mpg float64
	starter bool
}

// GetGamePERFeatures returns the player_* feature block for a matchup:
// whole-team mean PER, MPG-weighted PER, starter-only mean, the summed PER
// of the top 1/2/3 players by PER, and the PER of the player with the most
// minutes per game (top1_mpg_per), for both home and away, plus the
// player_available flags. There are no MPG-weighted top-2/top-3 values. The
// players considered are the given roster entries not flagged injured; no
// other filter is applied.
func (c *Calculator) GetGamePERFeatures(ctx context.Context, home, away, season string, gameDate time.Time, homeRoster, awayRoster []models.RosterEntry) (map[string]float64, error) {
	out := map[string]float64{}
	homeTalent, err := c.teamTalent(ctx, home, season, gameDate, homeRoster)
	if err != nil {
		return nil, err
	}
	awayTalent, err := c.teamTalent(ctx, away, season, gameDate, awayRoster)
	if err != nil {
		return nil, err
	}
	mergeTalentFeatures(out, "home", homeTalent)
	mergeTalentFeatures(out, "away", awayTalent)
	mergeDiffFeatures(out)
	return out, nil
}

func (c *Calculator) teamTalent(ctx context.Context, team, season string, before time.Time, roster []models.RosterEntry) ([]playerTalent, error) {
	talent := make([]playerTalent, 0, len(roster))
	for _, entry := range roster {
		if entry.Injured {
			continue
		}
		perVal, err := c.GetPlayerPERBeforeDate(ctx, entry.PlayerID, season, before)
		if err != nil {
			return nil, err
		}
		if perVal == nil {
			continue
		}
		mpg, err := c.mpgBeforeDate(ctx, entry.PlayerID, season, before)
		if err != nil {
			return nil, err
		}
		talent = append(talent, playerTalent{playerID: entry.PlayerID, per: *perVal, mpg: mpg, starter: entry.Starter})
	}
	return talent, nil
}

func (c *Calculator) mpgBeforeDate(ctx context.Context, playerID, season string, before time.Time) (float64, error) {
	lines, err := c.statStore.ForPlayerBefore(ctx, playerID, season, before)
	if err != nil {
		return 0, err
	}
	var total float64
	var games int
	for _, l := range lines {
		if !l.Played() {
			continue
		}
		total += l.Minutes
		games++
	}
	if games == 0 {
		return 0, nil
	}
	return total / float64(games), nil
}

func mergeTalentFeatures(out map[string]float64, side string, talent []playerTalent) {
	prefix := "player_"
	if len(talent) == 0 {
		out[prefix+"mean_per|none|raw|"+side] = 0
		out[prefix+"mpg_weighted_per|none|raw|"+side] = 0
		out[prefix+"starter_mean_per|none|raw|"+side] = 0
		out[prefix+"top1_per|none|raw|"+side] = 0
		out[prefix+"top2_per|none|raw|"+side] = 0
		out[prefix+"top3_per|none|raw|"+side] = 0
		out[prefix+"top1_mpg_per|none|raw|"+side] = 0
		out[prefix+"available|none|raw|"+side] = 0
		return
	}

	var sumPER, sumWeightedPER, sumMPG float64
	var starterSum float64
	var starterCount int
	for _, t := range talent {
		sumPER += t.per
		sumWeightedPER += t.per * t.mpg
		sumMPG += t.mpg
		if t.starter {
			starterSum += t.per
			starterCount++
		}
	}
	out[prefix+"mean_per|none|raw|"+side] = sumPER / float64(len(talent))
	if sumMPG > 0 {
		out[prefix+"mpg_weighted_per|none|raw|"+side] = sumWeightedPER / sumMPG
	}
	if starterCount > 0 {
		out[prefix+"starter_mean_per|none|raw|"+side] = starterSum / float64(starterCount)
	}

	sorted := append([]playerTalent(nil), talent...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].per > sorted[j].per })

	out[prefix+"top1_per|none|raw|"+side] = topN(sorted, 1, func(t playerTalent) float64 { return t.per }, sumFn)
	out[prefix+"top2_per|none|raw|"+side] = topN(sorted, 2, func(t playerTalent) float64 { return t.per }, sumFn)
	out[prefix+"top3_per|none|raw|"+side] = topN(sorted, 3, func(t playerTalent) float64 { return t.per }, sumFn)

	byMinutes := append([]playerTalent(nil), talent...)
	sort.Slice(byMinutes, func(i, j int) bool { return byMinutes[i].mpg > byMinutes[j].mpg })
	out[prefix+"top1_mpg_per|none|raw|"+side] = byMinutes[0].per

	minQualified := 6
	if len(talent) >= minQualified {
		out[prefix+"available|none|raw|"+side] = 1
	} else {
		out[prefix+"available|none|raw|"+side] = 0
	}
}

func sumFn(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func topN(sorted []playerTalent, n int, sel func(playerTalent) float64, agg func([]float64) float64) float64 {
	if len(sorted) < n {
		n = len(sorted)
	}
	vals := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		vals = append(vals, sel(sorted[i]))
	}
	return agg(vals)
}

// mergeDiffFeatures adds the diff variant of every home/away feature pair
// written by mergeTalentFeatures, matching StatHandler's side convention.
func mergeDiffFeatures(out map[string]float64) {
	homeSuffix := "|home"
	for key, homeVal := range out {
		if len(key) < len(homeSuffix) || key[len(key)-len(homeSuffix):] != homeSuffix {
			continue
		}
		base := key[:len(key)-len(homeSuffix)]
		awayKey := base + "|away"
		if awayVal, ok := out[awayKey]; ok {
			out[base+"|diff"] = homeVal - awayVal
		}
	}
}
