package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// GameType enumerates the kinds of games a league can record. Training and
// serving both filter on this field via LeagueConfig.ExcludeGameTypes.
type GameType string

const (
	GameTypeRegular GameType = "regular"
	GameTypePlayoff GameType = "playoff"
	GameTypePreseason GameType = "preseason"
	GameTypeAllStar GameType = "all_star"
)

// InjuredPlayer is the training-time injury record attached to a Game: who was
// out, sourced from the box score rather than the live Roster collection.
type InjuredPlayer struct {
	PlayerID string `json:"player_id" bson:"player_id"`
	Status string `json:"status" bson:"status"`
}

// Game is one completed or scheduled matchup. HomePoints/AwayPoints are
// pointers so a scheduled-but-unplayed game can be distinguished from a 0-0
// box score; Completed reports the canonical check used by the feature
// pipeline.
type Game struct {
	ID bson.ObjectID `json:"id" bson:"_id,omitempty"`
	GameID string `json:"game_id" bson:"game_id"`
	Date time.Time `json:"date" bson:"date"`
	Season string `json:"season" bson:"season"`
	Home string `json:"home" bson:"home"`
	Away string `json:"away" bson:"away"`
	HomePoints *int `json:"home_points,omitempty" bson:"home_points,omitempty"`
	AwayPoints *int `json:"away_points,omitempty" bson:"away_points,omitempty"`
	HomeWon *bool `json:"home_won,omitempty" bson:"home_won,omitempty"`
	VenueGUID string `json:"venue_guid,omitempty" bson:"venue_guid,omitempty"`
	GameType GameType `json:"game_type,omitempty" bson:"game_type,omitempty"`
	HomeInjured []InjuredPlayer `json:"home_injured,omitempty" bson:"home_injured,omitempty"`
	AwayInjured []InjuredPlayer `json:"away_injured,omitempty" bson:"away_injured,omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Completed reports whether both teams' point totals were recorded and are
// positive, per the invariant.
func (g *Game) Completed() bool {
	return g.HomePoints != nil && g.AwayPoints != nil && *g.HomePoints > 0 && *g.AwayPoints > 0
}

// Venue pins the lat/lon the travel features (StatHandler's
// travel|days_N|avg) need to compute great-circle distances between
// consecutive road games.
type Venue struct {
	GUID string `json:"guid" bson:"guid"`
	Lat float64 `json:"lat" bson:"lat"`
	Lon float64 `json:"lon" bson:"lon"`
}
