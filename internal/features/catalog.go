package features

import (
	"fmt"
	"sort"
)

// baseStats is the enumeration of box-score and derived stats the catalog
// crosses with every time period, weight, and side. "_net" variants are
// generated for every offense-side counting/rate stat.
var baseStats = []string{
	"points", "rebounds", "off_rebounds", "def_rebounds", "assists", "turnovers",
	"steals", "blocks", "fouls", "fgm", "fga", "threem", "threea", "ftm", "fta",
	"off_rating", "def_rating", "pace", "efg", "ts", "ast_ratio", "tov_rate",
}

var netEligibleStats = []string{
	"points", "rebounds", "assists", "turnovers", "off_rating", "def_rating", "efg", "ts",
}

var windowedPeriods = []TimePeriod{
	{Kind: PeriodSeason},
	{Kind: PeriodGames, N: 10},
	{Kind: PeriodGames, N: 20},
	{Kind: PeriodDays, N: 14},
	{Kind: PeriodDays, N: 30},
}

var windowedWeights = []Weight{
	{Kind: WeightRaw},
	{Kind: WeightAvg},
	{Kind: WeightStd},
	{Kind: WeightRel},
}

var sides = []Side{SideHome, SideAway, SideDiff}

func sideString(s Side) string {
	switch s {
	case SideHome:
		return "home"
	case SideAway:
		return "away"
	default:
		return "diff"
	}
}

// DefaultCatalog enumerates the full default feature key catalog:
// every base stat (plus its "_net" variant where eligible) crossed with
// every windowed period, weight, and side, plus the single-state stats
// (elo, rest_days, b2b) and travel, excluding combinations known to be
// all-zero by construction (a "none" period crossed with an aggregating
// weight). Keys are returned sorted lexicographically, matching the master
// CSV's stable column order.
func DefaultCatalog() []string {
	keys := make([]string, 0, 4096)

	stats := make([]string, 0, len(baseStats)+len(netEligibleStats))
	stats = append(stats, baseStats...)
	for _, s := range netEligibleStats {
		stats = append(stats, s+"_net")
	}

	for _, st := range stats {
		for _, period := range windowedPeriods {
			for _, weight := range windowedWeights {
				for _, side := range sides {
					keys = append(keys, fmt.Sprintf("%s|%s|%s|%s", st, period.String(), weightString(weight), sideString(side)))
				}
			}
		}
	}

	// Single-state features: "none" period is only valid for these stats,
	// never for the windowed box/derived stats above.
	for _, st := range []string{"elo", "rest_days", "b2b"} {
		for _, side := range []Side{SideHome, SideAway, SideDiff} {
			keys = append(keys, fmt.Sprintf("%s|none|raw|%s", st, sideString(side)))
		}
	}

	// Travel requires a days_N window and an avg weight; home/away only
	// (there is no meaningful "diff" of travel burden in the source data).
	for _, n := range []int{7, 14, 30} {
		for _, side := range []Side{SideHome, SideAway} {
			keys = append(keys, fmt.Sprintf("travel|days_%d|avg|%s", n, sideString(side)))
		}
	}

	keys = append(keys, PlayerAndInjuryCatalog()...)

	sort.Strings(keys)
	return keys
}

// PlayerAndInjuryCatalog enumerates the player_*/inj_* keys PERCalculator
// produces, so MasterTableBuilder can include them in the stable
// column order without duplicating PERCalculator's naming.
func PlayerAndInjuryCatalog() []string {
	playerStats := []string{
		"mean_per", "mpg_weighted_per", "starter_mean_per",
		"top1_per", "top2_per", "top3_per", "top1_mpg_per", "available",
	}
	keys := make([]string, 0, 64)
	for _, stat := range playerStats {
		for _, side := range []string{"home", "away", "diff"} {
			keys = append(keys, fmt.Sprintf("player_%s|none|raw|%s", stat, side))
		}
	}
	for _, side := range []string{"home", "away"} {
		keys = append(keys,
			fmt.Sprintf("inj_per|none|weighted_MIN|%s", side),
			fmt.Sprintf("inj_per|none|top1_avg|%s", side),
			fmt.Sprintf("inj_per|none|top3_sum|%s", side),
			fmt.Sprintf("inj_min_lost|none|raw|%s", side),
			fmt.Sprintf("inj_severity|none|raw|%s", side),
			fmt.Sprintf("inj_rotation_per|none|raw|%s", side),
			fmt.Sprintf("inj_impact|none|blend:severity:0.45/top1_per:0.35/rotation:0.20|%s", side),
		)
	}
	return keys
}

func weightString(w Weight) string {
	switch w.Kind {
	case WeightRaw:
		return "raw"
	case WeightAvg:
		return "avg"
	case WeightStd:
		return "std"
	case WeightRel:
		return "rel"
	default:
		return "blend"
	}
}
