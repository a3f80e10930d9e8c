package features

// baseStatValue computes a single game line's value for a base (non-"_net")
// stat name. ok is false for an unrecognized stat name, which the caller
// treats as a 0.0 failure per's "missing data" semantics.
func baseStatValue(stat string, l TeamGameLine) (float64, bool) {
	switch stat {
	case "points":
		return float64(l.PointsFor), true
	case "points_against":
		return float64(l.PointsAgainst), true
	case "rebounds":
		return float64(l.OReb + l.DReb), true
	case "off_rebounds":
		return float64(l.OReb), true
	case "def_rebounds":
		return float64(l.DReb), true
	case "assists":
		return float64(l.Ast), true
	case "turnovers":
		return float64(l.TOV), true
	case "steals":
		return float64(l.Stl), true
	case "blocks":
		return float64(l.Blk), true
	case "fouls":
		return float64(l.PF), true
	case "fgm":
		return float64(l.FGM), true
	case "fga":
		return float64(l.FGA), true
	case "threem":
		return float64(l.ThreeM), true
	case "threea":
		return float64(l.ThreeA), true
	case "ftm":
		return float64(l.FTM), true
	case "fta":
		return float64(l.FTA), true
	case "off_rating":
		poss := l.Possessions()
		if poss <= 0 {
			return 0, false
		}
		return 100 * float64(l.PointsFor) / poss, true
	case "def_rating":
		poss := l.Possessions()
		if poss <= 0 {
			return 0, false
		}
		return 100 * float64(l.PointsAgainst) / poss, true
	case "pace":
		return l.Possessions(), true
	case "efg":
		if l.FGA == 0 {
			return 0, false
		}
		return (float64(l.FGM) + 0.5*float64(l.ThreeM)) / float64(l.FGA), true
	case "ts":
		denom := 2 * (float64(l.FGA) + 0.44*float64(l.FTA))
		if denom == 0 {
			return 0, false
		}
		return float64(l.PointsFor) / denom, true
	case "ast_ratio":
		denom := float64(l.FGA) + 0.44*float64(l.FTA) + float64(l.TOV)
		if denom == 0 {
			return 0, false
		}
		return 100 * float64(l.Ast) / denom, true
	case "tov_rate":
		denom := float64(l.FGA) + 0.44*float64(l.FTA) + float64(l.TOV)
		if denom == 0 {
			return 0, false
		}
		return 100 * float64(l.TOV) / denom, true
	default:
		return 0, false
	}
}

// opponentView swaps a line's for/against fields so baseStatValue can be
// reused to compute the opposing team's value from the same game record —
// the mechanism behind every "_net" stat.
func opponentView(l TeamGameLine) TeamGameLine {
	return TeamGameLine{
		GameID: l.GameID,
		Team: l.Opponent,
		Opponent: l.Team,
		Date: l.Date,
		VenueGUID: l.VenueGUID,

		PointsFor: l.PointsAgainst,
		PointsAgainst: l.PointsFor,
		FGM: l.OppFGM,
		FGA: l.OppFGA,
		ThreeM: l.OppThreeM,
		ThreeA: l.OppThreeA,
		FTM: l.OppFTM,
		FTA: l.OppFTA,
		OReb: l.OppOReb,
		DReb: l.OppDReb,
		Ast: l.OppAst,
		TOV: l.OppTOV,

		OppFGM: l.FGM,
		OppFGA: l.FGA,
		OppThreeM: l.ThreeM,
		OppThreeA: l.ThreeA,
		OppFTM: l.FTM,
		OppFTA: l.FTA,
		OppOReb: l.OReb,
		OppDReb: l.DReb,
		OppAst: l.Ast,
		OppTOV: l.TOV,
	}
}

// StatValueForCatalog exposes baseStatValue to callers outside this package
// (SharedFeatureContext's league-mean precompute) that need a single game
// line's value for a bare stat name, without constructing a full Key.
func StatValueForCatalog(stat string, l TeamGameLine) (float64, bool) {
	return baseStatValue(stat, l)
}

// statValue computes a key's base stat (handling the "_net" opponent-
// symmetric construction) for one game line.
func statValue(k Key, l TeamGameLine) (float64, bool) {
	if !k.IsNetStat() {
		return baseStatValue(k.Stat, l)
	}
	teamVal, ok := baseStatValue(k.BaseStat(), l)
	if !ok {
		return 0, false
	}
	oppVal, ok := baseStatValue(k.BaseStat(), opponentView(l))
	if !ok {
		return 0, false
	}
	return teamVal - oppVal, true
}
