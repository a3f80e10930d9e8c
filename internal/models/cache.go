package models

import "time"

// LeagueSeasonStats is the cached set of league-wide constants a season's PER
// calculation is normalized against, computed once per season from
// every qualifying box score and reused for every player in that season.
type LeagueSeasonStats struct {
	Season string `json:"season" bson:"season"`
	League string `json:"league" bson:"league"`
	Pace float64 `json:"pace" bson:"pace"`
	LeagueAST float64 `json:"league_ast" bson:"league_ast"`
	LeagueFG float64 `json:"league_fg" bson:"league_fg"`
	LeagueFT float64 `json:"league_ft" bson:"league_ft"`
	VOP float64 `json:"vop" bson:"vop"`
	DRBP float64 `json:"drbp" bson:"drbp"`
	FactorConst float64 `json:"factor" bson:"factor"`
	LeaguePace float64 `json:"league_pace" bson:"league_pace"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// EloRating is one team's incremental rating as of a single game date,
// the unit record EloCache persists after every completed game.
type EloRating struct {
	Team string `json:"team" bson:"team"`
	Season string `json:"season" bson:"season"`
	Date time.Time `json:"date" bson:"date"`
	Rating float64 `json:"rating" bson:"rating"`
	GameID string `json:"game_id,omitempty" bson:"game_id,omitempty"`
}
