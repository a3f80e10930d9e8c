package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Player is a league-wide identity record: name, current team, headshot,
// positional tags. Box-score lines live separately on PlayerGameStat.
type Player struct {
	ID bson.ObjectID `json:"id" bson:"_id,omitempty"`
	PlayerID string `json:"player_id" bson:"player_id"`
	Name string `json:"name" bson:"name"`
	Team string `json:"team" bson:"team"`
	Headshot string `json:"headshot,omitempty" bson:"headshot,omitempty"`
	Positions []string `json:"positions,omitempty" bson:"positions,omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// ShotLine is a made-attempted pair, used for field goals, threes, and free throws.
type ShotLine struct {
	Made int `json:"made" bson:"made"`
	Attempts int `json:"attempts" bson:"attempts"`
}

// PlayerGameStat is one player's box-score line for one game. Identified by
// (PlayerID, GameID). Only entries with Minutes > 0 count as "played"; entries
// with DidNotPlay set are still stored (for roster/injury bookkeeping) but are
// excluded from every aggregation in StatHandler and PERCalculator.
type PlayerGameStat struct {
	ID bson.ObjectID `json:"id" bson:"_id,omitempty"`
	PlayerID string `json:"player_id" bson:"player_id"`
	GameID string `json:"game_id" bson:"game_id"`
	Date time.Time `json:"date" bson:"date"`
	Season string `json:"season" bson:"season"`
	Team string `json:"team" bson:"team"`
	Opponent string `json:"opponent" bson:"opponent"`
	Starter bool `json:"starter" bson:"starter"`
	DidNotPlay bool `json:"did_not_play" bson:"did_not_play"`
	Minutes float64 `json:"minutes" bson:"minutes"`
	Points int `json:"points" bson:"points"`
	Rebounds int `json:"rebounds" bson:"rebounds"`
	Assists int `json:"assists" bson:"assists"`
	Turnovers int `json:"turnovers" bson:"turnovers"`
	Steals int `json:"steals" bson:"steals"`
	Blocks int `json:"blocks" bson:"blocks"`
	Fouls int `json:"fouls" bson:"fouls"`
	FieldGoals ShotLine `json:"field_goals" bson:"field_goals"`
	ThreePoint ShotLine `json:"three_point" bson:"three_point"`
	FreeThrows ShotLine `json:"free_throws" bson:"free_throws"`
	PlusMinus int `json:"plus_minus" bson:"plus_minus"`
}

// Played reports whether the player logged court time in this game.
func (s *PlayerGameStat) Played() bool {
	return !s.DidNotPlay && s.Minutes > 0
}

// Team is a league-configured roster of franchises: name, display name, logo,
// colors. The primary key field is resolved by LeagueConfig.TeamPrimaryIdentifier.
type Team struct {
	ID bson.ObjectID `json:"id" bson:"_id,omitempty"`
	Abbr string `json:"abbr" bson:"abbr"`
	ExternalID string `json:"external_id,omitempty" bson:"external_id,omitempty"`
	Name string `json:"name" bson:"name"`
	DisplayName string `json:"display_name" bson:"display_name"`
	Logo string `json:"logo,omitempty" bson:"logo,omitempty"`
	PrimaryHex string `json:"primary_hex,omitempty" bson:"primary_hex,omitempty"`
	SecondaryHex string `json:"secondary_hex,omitempty" bson:"secondary_hex,omitempty"`
}
