package per

import (
	"context"
	"sort"
	"time"

	"github.com/ai-atl/hoopcast/internal/models"
)

// rotationSize bounds how many of a team's healthiest players (by MPG)
// count toward inj_rotation_per, mirroring a standard 8-man rotation.
const rotationSize = 8

// GetInjuryFeatures computes the inj_* feature block of for one team,
// sourced from either the game document's injured-player list (training) or
// the roster's `injured` flag (serving) — the caller resolves that and
// passes the flat injuredPlayerIDs list in either case.
func (c *Calculator) GetInjuryFeatures(ctx context.Context, team, season string, before time.Time, injuredPlayerIDs []string, fullRoster []models.RosterEntry, side string) (map[string]float64, error) {
	out := map[string]float64{}
	injured := map[string]bool{}
	for _, id := range injuredPlayerIDs {
		injured[id] = true
	}

	var injuredTalent, healthyTalent []playerTalent
	for _, entry := range fullRoster {
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
		t := playerTalent{playerID: entry.PlayerID, per: *perVal, mpg: mpg, starter: entry.Starter}
		if injured[entry.PlayerID] {
			injuredTalent = append(injuredTalent, t)
		} else {
			healthyTalent = append(healthyTalent, t)
		}
	}

	if len(injuredTalent) == 0 {
		out["inj_per|none|weighted_MIN|"+side] = 0
		out["inj_per|none|top1_avg|"+side] = 0
		out["inj_per|none|top3_sum|"+side] = 0
		out["inj_min_lost|none|raw|"+side] = 0
		out["inj_severity|none|raw|"+side] = 0
		out["inj_rotation_per|none|raw|"+side] = rotationPER(healthyTalent)
		out["inj_impact|none|blend:severity:0.45/top1_per:0.35/rotation:0.20|"+side] = 0
		return out, nil
	}

	sort.Slice(injuredTalent, func(i, j int) bool { return injuredTalent[i].per > injuredTalent[j].per })

	var weightedSum, mpgSum, minLost float64
	for _, t := range injuredTalent {
		weightedSum += t.per * t.mpg
		mpgSum += t.mpg
		minLost += t.mpg
	}
	var weightedPER float64
	if mpgSum > 0 {
		weightedPER = weightedSum / mpgSum
	}

	var top3Sum float64
	for i := 0; i < len(injuredTalent) && i < 3; i++ {
		top3Sum += injuredTalent[i].per
	}

	teamMinutes := 240.0 // five players x 48 minutes, the NBA-style per-game total
	severity := minLost / teamMinutes
	rotationPERVal := rotationPER(healthyTalent)

	out["inj_per|none|weighted_MIN|"+side] = weightedPER
	out["inj_per|none|top1_avg|"+side] = injuredTalent[0].per
	out["inj_per|none|top3_sum|"+side] = top3Sum
	out["inj_min_lost|none|raw|"+side] = minLost
	out["inj_severity|none|raw|"+side] = severity
	out["inj_rotation_per|none|raw|"+side] = rotationPERVal
	out["inj_impact|none|blend:severity:0.45/top1_per:0.35/rotation:0.20|"+side] =
	0.45*severity + 0.35*injuredTalent[0].per + 0.20*rotationPERVal
	return out, nil
}

func rotationPER(healthy []playerTalent) float64 {
	if len(healthy) == 0 {
		return 0
	}
	sorted := append([]playerTalent(nil), healthy...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].mpg > sorted[j].mpg })
	n := rotationSize
	if len(sorted) < n {
		n = len(sorted)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += sorted[i].per
	}
	return sum / float64(n)
}
