package dataset

import "sort"

// featureBlocks maps a named block to the stat names whose full
// cross-product of periods/weights/sides belongs to it. A block resolves to
// every master column whose key's stat name is in its set.
var featureBlocks = map[string][]string{
	"outcome_strength": {"points", "off_rating", "def_rating", "points_net", "off_rating_net", "def_rating_net"},
	"era_normalization": {"off_rating", "def_rating", "pace", "efg", "ts"},
	"shooting_efficiency": {"efg", "ts", "fgm", "fga", "threem", "threea", "ftm", "fta"},
	"ball_control": {"assists", "turnovers", "ast_ratio", "tov_rate", "assists_net", "turnovers_net"},
	"rebounding": {"rebounds", "off_rebounds", "def_rebounds", "rebounds_net"},
	"rest_travel": {"rest_days", "b2b", "travel"},
	"strength_rating": {"elo"},
	"player_talent": {
		"player_mean_per", "player_mpg_weighted_per", "player_starter_mean_per",
		"player_top1_per", "player_top2_per", "player_top3_per", "player_top1_mpg_per", "player_available",
	},
	"injury_impact": {
		"inj_per", "inj_min_lost", "inj_severity", "inj_rotation_per", "inj_impact",
	},
}

// KnownBlocks returns the sorted list of valid block names, surfaced to
// callers when an unknown block is requested.
func KnownBlocks() []string {
	names := make([]string, 0, len(featureBlocks))
	for name := range featureBlocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveBlock returns true if a feature column's key belongs to the named
// block: the key's stat-name component (the substring before the first
// "|") appears in that block's stat-name set.
func resolveBlock(block, featureKey string) bool {
	stats, ok := featureBlocks[block]
	if !ok {
		return false
	}
	statName := statNameOf(featureKey)
	for _, s := range stats {
		if s == statName {
			return true
		}
	}
	return false
}

func statNameOf(featureKey string) string {
	for i, r := range featureKey {
		if r == '|' {
			return featureKey[:i]
		}
	}
	return featureKey
}
