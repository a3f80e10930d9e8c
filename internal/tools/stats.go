package tools

import (
	"context"
	"fmt"

	"github.com/ai-atl/hoopcast/internal/models"
)

// StatsHandlers binds the Stats agent's tool contract for one game: lineups,
// team/rotation/head-to-head stats, player stats, and a sandboxed
// expression evaluator, every windowed tool anchored to the game's date.
func (r *Registry) StatsHandlers(gameID string) map[string]func(ctx context.Context, args map[string]any) (any, error) {
	return map[string]func(ctx context.Context, args map[string]any) (any, error){
		"get_lineups": r.toolGetLineups,
		"get_team_stats": r.withAnchor(gameID, r.toolGetTeamStats),
		"compare_team_stats": r.withAnchor(gameID, r.toolCompareTeamStats),
		"get_rotation_stats": r.withAnchor(gameID, r.toolGetRotationStats),
		"get_team_games": r.withAnchor(gameID, r.toolGetTeamGames),
		"get_head_to_head_games": r.withAnchor(gameID, r.toolGetHeadToHeadGames),
		"get_head_to_head_stats": r.withAnchor(gameID, r.toolGetHeadToHeadStats),
		"get_player_stats": r.withAnchor(gameID, r.toolGetPlayerStats),
		"get_advanced_player_stats": r.withAnchor(gameID, r.toolGetAdvancedPlayerStats),
		"run_code": r.toolRunCode,
	}
}

// anchor is the matchup date/season stats windows are computed against.
type anchor struct {
	game *models.Game
}

// withAnchor resolves gameID's game once per call and passes it through to
// handlers that need a window's anchor date and season.
func (r *Registry) withAnchor(gameID string, fn func(ctx context.Context, a anchor, args map[string]any) (any, error)) func(ctx context.Context, args map[string]any) (any, error) {
	return func(ctx context.Context, args map[string]any) (any, error) {
		g, err := r.Games.Get(ctx, gameID)
		if err != nil {
			return nil, fmt.Errorf("tools: anchor game %s not found: %w", gameID, err)
		}
		return fn(ctx, anchor{game: g}, args)
	}
}

func (r *Registry) toolGetLineups(ctx context.Context, args map[string]any) (any, error) {
	teamID, err := stringArg(args, "team_id")
	if err != nil {
		return nil, err
	}
	g, err := r.currentRoster(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return lineupView(g), nil
}

func (r *Registry) currentRoster(ctx context.Context, teamID string) (*models.Roster, error) {
	return r.Rosters.Get(ctx, teamID, r.Cfg.SeasonFor(r.latestKnownDate(ctx)))
}

func lineupView(roster *models.Roster) map[string]any {
	starters, bench, injured := []string{}, []string{}, []string{}
	for _, e := range roster.Entries {
		switch {
		case e.Injured:
			injured = append(injured, e.PlayerID)
		case e.Starter:
			starters = append(starters, e.PlayerID)
		default:
			bench = append(bench, e.PlayerID)
		}
	}
	return map[string]any{"starters": starters, "bench": bench, "inactive": injured}
}

func (r *Registry) toolGetTeamStats(ctx context.Context, a anchor, args map[string]any) (any, error) {
	teamID, err := stringArg(args, "team_id")
	if err != nil {
		return nil, err
	}
	w, err := parseWindow(optStringArg(args, "window"))
	if err != nil {
		return nil, err
	}
	games, err := r.Games.InWindow(ctx, teamID, a.game.Season, a.game.Date)
	if err != nil {
		return nil, err
	}
	games = applyWindow(games, a.game.Date, w)
	return aggregateTeamStats(teamID, games), nil
}

func aggregateTeamStats(teamID string, games []models.Game) map[string]any {
	var wins, losses int
	var pf, pa float64
	for _, g := range games {
		if !g.Completed() {
			continue
		}
		home := g.Home == teamID
		scored, allowed := *g.AwayPoints, *g.HomePoints
		if home {
			scored, allowed = *g.HomePoints, *g.AwayPoints
		}
		pf += float64(scored)
		pa += float64(allowed)
		won := scored > allowed
		if won {
			wins++
		} else {
			losses++
		}
	}
	n := float64(wins + losses)
	out := map[string]any{"team_id": teamID, "games": wins + losses, "wins": wins, "losses": losses}
	if n > 0 {
		out["points_for_avg"] = pf / n
		out["points_against_avg"] = pa / n
	}
	return out
}

func (r *Registry) toolCompareTeamStats(ctx context.Context, a anchor, args map[string]any) (any, error) {
	teamA, err := stringArg(args, "a")
	if err != nil {
		return nil, err
	}
	teamB, err := stringArg(args, "b")
	if err != nil {
		return nil, err
	}
	statsA, err := r.toolGetTeamStats(ctx, a, map[string]any{"team_id": teamA, "window": optStringArg(args, "window")})
	if err != nil {
		return nil, err
	}
	statsB, err := r.toolGetTeamStats(ctx, a, map[string]any{"team_id": teamB, "window": optStringArg(args, "window")})
	if err != nil {
		return nil, err
	}
	return map[string]any{"a": statsA, "b": statsB}, nil
}

func (r *Registry) toolGetRotationStats(ctx context.Context, a anchor, args map[string]any) (any, error) {
	teamID, err := stringArg(args, "team_id")
	if err != nil {
		return nil, err
	}
	w, err := parseWindow(optStringArg(args, "window"))
	if err != nil {
		return nil, err
	}
	games, err := r.Games.InWindow(ctx, teamID, a.game.Season, a.game.Date)
	if err != nil {
		return nil, err
	}
	games = applyWindow(games, a.game.Date, w)

	minutes := map[string]float64{}
	appearances := map[string]int{}
	for _, g := range games {
		lines, err := r.PlayerStats.ForGame(ctx, g.GameID)
		if err != nil {
			continue
		}
		for _, l := range lines {
			if l.Team != teamID || !l.Played() {
				continue
			}
			minutes[l.PlayerID] += l.Minutes
			appearances[l.PlayerID]++
		}
	}
	out := make([]map[string]any, 0, len(minutes))
	for pid, mins := range minutes {
		out = append(out, map[string]any{"player_id": pid, "games": appearances[pid], "avg_minutes": mins / float64(appearances[pid])})
	}
	return out, nil
}

func (r *Registry) toolGetTeamGames(ctx context.Context, a anchor, args map[string]any) (any, error) {
	teamID, err := stringArg(args, "team_id")
	if err != nil {
		return nil, err
	}
	w, err := parseWindow(optStringArg(args, "window"))
	if err != nil {
		return nil, err
	}
	games, err := r.Games.InWindow(ctx, teamID, a.game.Season, a.game.Date)
	if err != nil {
		return nil, err
	}
	return applyWindow(games, a.game.Date, w), nil
}

func (r *Registry) toolGetHeadToHeadGames(ctx context.Context, a anchor, args map[string]any) (any, error) {
	teamA, err := stringArg(args, "a")
	if err != nil {
		return nil, err
	}
	teamB, err := stringArg(args, "b")
	if err != nil {
		return nil, err
	}
	w, err := parseWindow(optStringArg(args, "window"))
	if err != nil {
		return nil, err
	}
	games, err := r.Games.InWindow(ctx, teamA, a.game.Season, a.game.Date)
	if err != nil {
		return nil, err
	}
	var h2h []models.Game
	for _, g := range games {
		if g.Home == teamB || g.Away == teamB {
			h2h = append(h2h, g)
		}
	}
	return applyWindow(h2h, a.game.Date, w), nil
}

func (r *Registry) toolGetHeadToHeadStats(ctx context.Context, a anchor, args map[string]any) (any, error) {
	games, err := r.toolGetHeadToHeadGames(ctx, a, args)
	if err != nil {
		return nil, err
	}
	teamA := optStringArg(args, "a")
	return aggregateTeamStats(teamA, games.([]models.Game)), nil
}

func (r *Registry) toolGetPlayerStats(ctx context.Context, a anchor, args map[string]any) (any, error) {
	playerID, err := stringArg(args, "player_id")
	if err != nil {
		return nil, err
	}
	w, err := parseWindow(optStringArg(args, "window"))
	if err != nil {
		return nil, err
	}
	lines, err := r.PlayerStats.ForPlayerBefore(ctx, playerID, a.game.Season, a.game.Date)
	if err != nil {
		return nil, err
	}
	lines = applyPlayerWindow(lines, a.game.Date, w)
	return aggregatePlayerStats(playerID, lines), nil
}

func applyPlayerWindow(lines []models.PlayerGameStat, anchorDate interface{}, w window) []models.PlayerGameStat {
	if w.kind != "games" || len(lines) <= w.n {
		return lines
	}
	return lines[len(lines)-w.n:]
}

func aggregatePlayerStats(playerID string, lines []models.PlayerGameStat) map[string]any {
	var played int
	var pts, reb, ast, min float64
	for _, l := range lines {
		if !l.Played() {
			continue
		}
		played++
		pts += float64(l.Points)
		reb += float64(l.Rebounds)
		ast += float64(l.Assists)
		min += l.Minutes
	}
	out := map[string]any{"player_id": playerID, "games": played}
	if played > 0 {
		n := float64(played)
		out["pts_avg"] = pts / n
		out["reb_avg"] = reb / n
		out["ast_avg"] = ast / n
		out["min_avg"] = min / n
	}
	return out
}

func (r *Registry) toolGetAdvancedPlayerStats(ctx context.Context, a anchor, args map[string]any) (any, error) {
	basic, err := r.toolGetPlayerStats(ctx, a, args)
	if err != nil {
		return nil, err
	}
	m := basic.(map[string]any)
	if minAvg, ok := m["min_avg"].(float64); ok && minAvg > 0 {
		m["usage_proxy"] = (m["pts_avg"].(float64) + m["ast_avg"].(float64)*2) / minAvg
	}
	return m, nil
}
