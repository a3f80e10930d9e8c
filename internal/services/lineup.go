// Package services implements the Lineup and Prediction services of section
// 4.12: reconstructing live/projected starting lineups and running the
// selected ensemble for a specific game.
package services

import (
	"context"
	"time"

	"github.com/ai-atl/hoopcast/internal/modelerrors"
	"github.com/ai-atl/hoopcast/internal/models"
	"github.com/ai-atl/hoopcast/internal/store"
)

// LineupService reconstructs a game's starting lineups, preferring the live
// box score when the game has started and falling back to the projected
// roster otherwise.
type LineupService struct {
	games *store.GameStore
	playerStats *store.PlayerStatStore
	rosters *store.RosterStore
}

func NewLineupService(games *store.GameStore, playerStats *store.PlayerStatStore, rosters *store.RosterStore) *LineupService {
	return &LineupService{games: games, playerStats: playerStats, rosters: rosters}
}

// SideLineup is one team's reconstructed lineup for a game.
type SideLineup struct {
	Starters []string `json:"starters"`
	Bench []string `json:"bench"`
	Inactive []string `json:"inactive"`
}

// Lineups is both teams' reconstructed lineups for a game.
type Lineups struct {
	Home SideLineup `json:"home"`
	Away SideLineup `json:"away"`
}

// GetLineups fetches gameID's box score if any player lines are already
// recorded for it (live or completed), reconstructing starters/bench from
// PlayerGameStat.Starter; otherwise it projects from the current Roster.
func (s *LineupService) GetLineups(ctx context.Context, gameID string) (*Lineups, error) {
	game, err := s.games.Get(ctx, gameID)
	if err != nil {
		return nil, modelerrors.DataMissing("services: game %s not found: %v", gameID, err)
	}

	lines, err := s.playerStats.ForGame(ctx, gameID)
	if err != nil {
		return nil, modelerrors.DataMissing("services: player stats for game %s: %v", gameID, err)
	}
	if len(lines) > 0 {
		return liveLineups(game, lines), nil
	}
	return s.projectedLineups(ctx, game)
}

func liveLineups(game *models.Game, lines []models.PlayerGameStat) *Lineups {
	out := &Lineups{}
	injuredHome := injuredSet(game.HomeInjured)
	injuredAway := injuredSet(game.AwayInjured)
	for _, l := range lines {
		side := &out.Away
		injured := injuredAway
		if l.Team == game.Home {
			side = &out.Home
			injured = injuredHome
		}
		switch {
		case injured[l.PlayerID] || l.DidNotPlay:
			side.Inactive = append(side.Inactive, l.PlayerID)
		case l.Starter:
			side.Starters = append(side.Starters, l.PlayerID)
		default:
			side.Bench = append(side.Bench, l.PlayerID)
		}
	}
	return out
}

func injuredSet(injured []models.InjuredPlayer) map[string]bool {
	out := make(map[string]bool, len(injured))
	for _, p := range injured {
		out[p.PlayerID] = true
	}
	return out
}

func (s *LineupService) projectedLineups(ctx context.Context, game *models.Game) (*Lineups, error) {
	home, err := s.rosters.Get(ctx, game.Home, game.Season)
	if err != nil {
		return nil, modelerrors.DataMissing("services: roster for %s/%s: %v", game.Home, game.Season, err)
	}
	away, err := s.rosters.Get(ctx, game.Away, game.Season)
	if err != nil {
		return nil, modelerrors.DataMissing("services: roster for %s/%s: %v", game.Away, game.Season, err)
	}
	return &Lineups{Home: rosterLineup(home), Away: rosterLineup(away)}, nil
}

func rosterLineup(r *models.Roster) SideLineup {
	var out SideLineup
	for _, e := range r.Entries {
		switch {
		case e.Injured:
			out.Inactive = append(out.Inactive, e.PlayerID)
		case e.Starter:
			out.Starters = append(out.Starters, e.PlayerID)
		default:
			out.Bench = append(out.Bench, e.PlayerID)
		}
	}
	return out
}

// Sync writes the reconstructed lineup's starter/injured flags back onto
// the Roster collection, atomically per entry, so later projections (and
// the Experimenter's get_lineups tool) see the same state.
func (s *LineupService) Sync(ctx context.Context, team, season string, lineup SideLineup) error {
	roster, err := s.rosters.Get(ctx, team, season)
	if err != nil {
		return modelerrors.DataMissing("services: roster for %s/%s: %v", team, season, err)
	}
	starters := toSet(lineup.Starters)
	inactive := toSet(lineup.Inactive)
	for i := range roster.Entries {
		pid := roster.Entries[i].PlayerID
		roster.Entries[i].Starter = starters[pid]
		roster.Entries[i].Injured = inactive[pid]
	}
	roster.UpdatedAt = time.Now()
	return s.rosters.Upsert(ctx, roster)
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
