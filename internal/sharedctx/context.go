// Package sharedctx implements SharedFeatureContext: a one-shot loader
// that pins games, venues, injuries, and the Elo/PER calculators in memory
// and dispatches thread-safe per-row feature calculation over them. Reads
// are unsynchronized; only cache-extension writes (roster lookups and the
// memoized inj_* feature blocks) take the mutex.
package sharedctx

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ai-atl/hoopcast/internal/elo"
	"github.com/ai-atl/hoopcast/internal/features"
	"github.com/ai-atl/hoopcast/internal/leagueconfig"
	"github.com/ai-atl/hoopcast/internal/models"
	"github.com/ai-atl/hoopcast/internal/per"
	"github.com/ai-atl/hoopcast/internal/store"
	"gonum.org/v1/gonum/stat"
)

// Context is the pinned, read-mostly in-memory view every training and
// serving feature computation goes through.
type Context struct {
	cfg *leagueconfig.Config
	handler *features.StatHandler
	elo *elo.Cache
	perCalc *per.Calculator

	rosterStore *store.RosterStore

	venues map[string]models.Venue
	teamNorm map[string]string

	// teamGames[season][team] is that team's chronologically sorted game
	// lines, built once at Load from the player-stat aggregates.
	teamGames map[string]map[string][]features.TeamGameLine
	// leagueMeans[season][stat] backs the "rel" era-adjustment weight.
	leagueMeans map[string]map[string]float64
	// gamesByID resolves a game_id to its injury lists at training time.
	gamesByID map[string]models.Game

	mu sync.Mutex
	rosterCache map[string]*models.Roster
	// injuryFeatureCache memoizes a team's inj_* feature block per
	// (team, season, date, side), so repeated lookups for the same matchup day
	// within one master-table generation pass avoid O(G^2) recomputation.
	injuryFeatureCache map[string]map[string]float64
}

// Load performs the one-shot preload: all games (optionally
// season-filtered), venue/team-normalization lookups, and the PER and Elo
// calculator state for the requested seasons.
func Load(ctx context.Context, cfg *leagueconfig.Config, seasons []string,
	gameStore *store.GameStore, venueStore *store.VenueStore, teamStore *store.TeamStore,
	playerStatStore *store.PlayerStatStore, rosterStore *store.RosterStore,
	leagueStatsStore *store.LeagueStatsStore, eloStore *store.EloStore) (*Context, error) {

	games, err := gameStore.AllForSeasons(ctx, seasons)
	if err != nil {
		return nil, fmt.Errorf("sharedctx: load games: %w", err)
	}
	venues, err := venueStore.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("sharedctx: load venues: %w", err)
	}
	teamNorm, err := teamStore.NormalizationMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("sharedctx: load team normalization: %w", err)
	}
	playerLines, err := playerStatStore.ForSeasons(ctx, seasons)
	if err != nil {
		return nil, fmt.Errorf("sharedctx: load player stats: %w", err)
	}

	eloCache := elo.NewCache(eloStore, elo.Params{
			KFactor: cfg.EloKFactor,
			HomeAdvantage: cfg.EloHomeAdvantage,
			ColdStart: cfg.EloColdStart,
		})
	for _, season := range seasons {
		if err := eloCache.Preload(ctx, season); err != nil {
			return nil, fmt.Errorf("sharedctx: preload elo %s: %w", season, err)
		}
	}

	perCalc := per.NewCalculator(playerStatStore, leagueStatsStore, cfg.League)
	if err := perCalc.Preload(ctx, seasons); err != nil {
		return nil, fmt.Errorf("sharedctx: preload per constants: %w", err)
	}

	c := &Context{
		cfg: cfg,
		handler: features.NewStatHandler(),
		elo: eloCache,
		perCalc: perCalc,
		rosterStore: rosterStore,
		venues: venues,
		teamNorm: teamNorm,
		teamGames: map[string]map[string][]features.TeamGameLine{},
		leagueMeans: map[string]map[string]float64{},
		gamesByID: map[string]models.Game{},
		rosterCache: map[string]*models.Roster{},
		injuryFeatureCache: map[string]map[string]float64{},
	}
	c.buildTeamGames(games, playerLines)
	c.buildLeagueMeans()
	for _, g := range games {
		c.gamesByID[g.GameID] = g
	}
	return c, nil
}

func rosterKey(team, season string) string { return team + "|" + season }

// rosterFor fetches (and caches under the mutex) a team's roster document.
func (c *Context) rosterFor(ctx context.Context, team, season string) (*models.Roster, error) {
	key := rosterKey(team, season)
	c.mu.Lock()
	if r, ok := c.rosterCache[key]; ok {
		c.mu.Unlock()
		return r, nil
	}
	c.mu.Unlock()

	r, err := c.rosterStore.Get(ctx, team, season)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.rosterCache[key] = r
	c.mu.Unlock()
	return r, nil
}

// CalculateFeaturesForRow computes every requested feature key for one
// matchup row, delegating player_*/inj_* keys to PERCalculator and
// everything else to StatHandler, substituting 0.0 for any non-applicable
// combination.
func (c *Context) CalculateFeaturesForRow(ctx context.Context, keys []string, home, away, season string, date time.Time, gameID, venueGUID string) (map[string]float64, error) {
	out := make(map[string]float64, len(keys))

	var needsPlayer, needsInjury bool
	statKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		switch {
		case strings.HasPrefix(k, "player_"):
			needsPlayer = true
		case strings.HasPrefix(k, "inj_"):
			needsInjury = true
		default:
			statKeys = append(statKeys, k)
		}
	}

	for _, raw := range statKeys {
		v, err := c.handler.CalculateFeature(raw, home, away, season, date, venueGUID, c)
		if err != nil {
			return nil, err
		}
		out[raw] = v
	}

	if needsPlayer || needsInjury {
		homeRoster, err := c.rosterFor(ctx, home, season)
		if err != nil {
			homeRoster = &models.Roster{Team: home, Season: season}
		}
		awayRoster, err := c.rosterFor(ctx, away, season)
		if err != nil {
			awayRoster = &models.Roster{Team: away, Season: season}
		}

		if needsPlayer {
			playerFeatures, err := c.perCalc.GetGamePERFeatures(ctx, home, away, season, date, homeRoster.Entries, awayRoster.Entries)
			if err != nil {
				return nil, err
			}
			for k, v := range playerFeatures {
				out[k] = v
			}
		}

		if needsInjury {
			homeInjured, awayInjured := c.injuredPlayerIDs(gameID, home, homeRoster, away, awayRoster)
			homeInj, err := c.injuryFeaturesFor(ctx, home, season, date, homeInjured, homeRoster.Entries, "home")
			if err != nil {
				return nil, err
			}
			awayInj, err := c.injuryFeaturesFor(ctx, away, season, date, awayInjured, awayRoster.Entries, "away")
			if err != nil {
				return nil, err
			}
			for k, v := range homeInj {
				out[k] = v
			}
			for k, v := range awayInj {
				out[k] = v
			}
		}
	}

	for _, k := range keys {
		if _, ok := out[k]; !ok {
			out[k] = 0
		}
	}
	return out, nil
}

// injuryFeaturesFor memoizes PERCalculator.GetInjuryFeatures per
// (team, season, date, side), since the same team/date pair recurs across
// every opponent-specific row a master-table generation pass visits it in.
func (c *Context) injuryFeaturesFor(ctx context.Context, team, season string, date time.Time, injured []string, roster []models.RosterEntry, side string) (map[string]float64, error) {
	key := fmt.Sprintf("%s|%s|%s|%s", team, season, date.Format("2006-01-02"), side)

	c.mu.Lock()
	if cached, ok := c.injuryFeatureCache[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	computed, err := c.perCalc.GetInjuryFeatures(ctx, team, season, date, injured, roster, side)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.injuryFeatureCache[key] = computed
	c.mu.Unlock()
	return computed, nil
}

// injuredPlayerIDs resolves the injured list from the game document
// (training) if one is pinned, falling back to the roster's injured flags
// (serving).
func (c *Context) injuredPlayerIDs(gameID, home string, homeRoster *models.Roster, away string, awayRoster *models.Roster) ([]string, []string) {
	if gameID != "" {
		if g, ok := c.gamesByID[gameID]; ok {
			homeIDs := make([]string, 0, len(g.HomeInjured))
			for _, p := range g.HomeInjured {
				homeIDs = append(homeIDs, p.PlayerID)
			}
			awayIDs := make([]string, 0, len(g.AwayInjured))
			for _, p := range g.AwayInjured {
				awayIDs = append(awayIDs, p.PlayerID)
			}
			return homeIDs, awayIDs
		}
	}
	return rosterInjuredIDs(homeRoster), rosterInjuredIDs(awayRoster)
}

func rosterInjuredIDs(r *models.Roster) []string {
	var ids []string
	for _, e := range r.Entries {
		if e.Injured {
			ids = append(ids, e.PlayerID)
		}
	}
	return ids
}

// --- features.GameSource implementation ---

func (c *Context) TeamWindow(team, season string, before time.Time, period features.TimePeriod) []features.TeamGameLine {
	lines := c.teamGames[season][team]
	if len(lines) == 0 {
		return nil
	}
	// lines is sorted ascending by date; find the cutoff index.
	cutoff := sort.Search(len(lines), func(i int) bool { return !lines[i].Date.Before(before) })
	window := lines[:cutoff]

	switch period.Kind {
	case features.PeriodSeason:
		return window
	case features.PeriodGames:
		if len(window) <= period.N {
			return window
		}
		return window[len(window)-period.N:]
	case features.PeriodDays:
		start := before.AddDate(0, 0, -period.N)
		idx := sort.Search(len(window), func(i int) bool { return !window[i].Date.Before(start) })
		return window[idx:]
	default:
		return nil
	}
}

func (c *Context) VenueLatLon(guid string) (float64, float64, bool) {
	v, ok := c.venues[guid]
	if !ok {
		return 0, 0, false
	}
	return v.Lat, v.Lon, true
}

func (c *Context) EloBefore(team, season string, before time.Time) float64 {
	return c.elo.RatingBefore(team, season, before)
}

func (c *Context) RestDaysBefore(team, season string, before time.Time) (int, bool) {
	lines := c.teamGames[season][team]
	if len(lines) == 0 {
		return 0, false
	}
	idx := sort.Search(len(lines), func(i int) bool { return !lines[i].Date.Before(before) })
	if idx == 0 {
		return 0, false
	}
	prev := lines[idx-1].Date
	days := int(before.Sub(prev).Hours() / 24)
	return days, days <= 1
}

func (c *Context) LeagueSeasonMean(statName, season string) (float64, bool) {
	means, ok := c.leagueMeans[season]
	if !ok {
		return 0, false
	}
	v, ok := means[statName]
	return v, ok
}

// buildTeamGames aggregates player-stat lines into per-team, per-game
// TeamGameLine records and indexes them chronologically.
func (c *Context) buildTeamGames(games []models.Game, playerLines []models.PlayerGameStat) {
	type agg struct {
		fgm, fga, threeM, threeA, ftm, fta int
		oreb, dreb, ast, tov, stl, blk, pf int
	}
	byGameTeam := map[string]map[string]*agg{}
	for _, pl := range playerLines {
		if !pl.Played() {
			continue
		}
		teams, ok := byGameTeam[pl.GameID]
		if !ok {
			teams = map[string]*agg{}
			byGameTeam[pl.GameID] = teams
		}
		a, ok := teams[pl.Team]
		if !ok {
			a = &agg{}
			teams[pl.Team] = a
		}
		a.fgm += pl.FieldGoals.Made
		a.fga += pl.FieldGoals.Attempts
		a.threeM += pl.ThreePoint.Made
		a.threeA += pl.ThreePoint.Attempts
		a.ftm += pl.FreeThrows.Made
		a.fta += pl.FreeThrows.Attempts
		a.ast += pl.Assists
		a.tov += pl.Turnovers
		a.stl += pl.Steals
		a.blk += pl.Blocks
		a.pf += pl.Fouls
		// Individual rebounds are not split off/def in the box line; treat
		// them as defensive for the possession estimate, so offensive
		// rebounds stay zero.
		a.dreb += pl.Rebounds
	}

	for _, g := range games {
		if !g.Completed() {
			continue
		}
		homeAgg := byGameTeam[g.GameID][g.Home]
		awayAgg := byGameTeam[g.GameID][g.Away]
		if homeAgg == nil {
			homeAgg = &agg{}
		}
		if awayAgg == nil {
			awayAgg = &agg{}
		}

		homeLine := features.TeamGameLine{
			GameID: g.GameID, Team: g.Home, Opponent: g.Away, Date: g.Date, VenueGUID: g.VenueGUID,
			PointsFor: *g.HomePoints, PointsAgainst: *g.AwayPoints,
			FGM: homeAgg.fgm, FGA: homeAgg.fga, ThreeM: homeAgg.threeM, ThreeA: homeAgg.threeA,
			FTM: homeAgg.ftm, FTA: homeAgg.fta, OReb: homeAgg.oreb, DReb: homeAgg.dreb,
			Ast: homeAgg.ast, TOV: homeAgg.tov, Stl: homeAgg.stl, Blk: homeAgg.blk, PF: homeAgg.pf,
			OppFGM: awayAgg.fgm, OppFGA: awayAgg.fga, OppThreeM: awayAgg.threeM, OppThreeA: awayAgg.threeA,
			OppFTM: awayAgg.ftm, OppFTA: awayAgg.fta, OppOReb: awayAgg.oreb, OppDReb: awayAgg.dreb,
			OppAst: awayAgg.ast, OppTOV: awayAgg.tov,
		}
		awayLine := features.TeamGameLine{
			GameID: g.GameID, Team: g.Away, Opponent: g.Home, Date: g.Date, VenueGUID: g.VenueGUID,
			PointsFor: *g.AwayPoints, PointsAgainst: *g.HomePoints,
			FGM: awayAgg.fgm, FGA: awayAgg.fga, ThreeM: awayAgg.threeM, ThreeA: awayAgg.threeA,
			FTM: awayAgg.ftm, FTA: awayAgg.fta, OReb: awayAgg.oreb, DReb: awayAgg.dreb,
			Ast: awayAgg.ast, TOV: awayAgg.tov, Stl: awayAgg.stl, Blk: awayAgg.blk, PF: awayAgg.pf,
			OppFGM: homeAgg.fgm, OppFGA: homeAgg.fga, OppThreeM: homeAgg.threeM, OppThreeA: homeAgg.threeA,
			OppFTM: homeAgg.ftm, OppFTA: homeAgg.fta, OppOReb: homeAgg.oreb, OppDReb: homeAgg.dreb,
			OppAst: homeAgg.ast, OppTOV: homeAgg.tov,
		}

		if c.teamGames[g.Season] == nil {
			c.teamGames[g.Season] = map[string][]features.TeamGameLine{}
		}
		c.teamGames[g.Season][g.Home] = append(c.teamGames[g.Season][g.Home], homeLine)
		c.teamGames[g.Season][g.Away] = append(c.teamGames[g.Season][g.Away], awayLine)
	}

	for season := range c.teamGames {
		for team := range c.teamGames[season] {
			lines := c.teamGames[season][team]
			sort.Slice(lines, func(i, j int) bool { return lines[i].Date.Before(lines[j].Date) })
			c.teamGames[season][team] = lines
		}
	}
}

// buildLeagueMeans computes, per season, the league-wide mean of every base
// stat across all team-game lines — the normalization constant the "rel"
// weight divides by.
func (c *Context) buildLeagueMeans() {
	statsToTrack := []string{
		"points", "rebounds", "assists", "turnovers", "steals", "blocks", "fouls",
		"fgm", "fga", "threem", "threea", "ftm", "fta",
		"off_rating", "def_rating", "pace", "efg", "ts", "ast_ratio", "tov_rate",
	}
	for season, byTeam := range c.teamGames {
		means := map[string]float64{}
		for _, statName := range statsToTrack {
			var vals []float64
			for _, lines := range byTeam {
				for _, l := range lines {
					if v, ok := features.StatValueForCatalog(statName, l); ok {
						vals = append(vals, v)
					}
				}
			}
			if len(vals) > 0 {
				means[statName] = stat.Mean(vals, nil)
			}
		}
		c.leagueMeans[season] = means
	}
}
