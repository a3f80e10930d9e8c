package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// RosterEntry is one player's slot in a team's current roster: whether they
// are a starter and whether they are currently injured. Order is significant
// — it is the depth-chart order LineupService reconstructs starters/bench
// from.
type RosterEntry struct {
	PlayerID string `json:"player_id" bson:"player_id"`
	Starter bool `json:"starter" bson:"starter"`
	Injured bool `json:"injured" bson:"injured"`
}

// Roster is the prediction-time source of truth for who plays, identified by
// (Team, Season). Experimenter tools mutate entries in place via
// SetPlayerLineupBucket; those mutations are platform-wide, not scoped to one
// matchup.
type Roster struct {
	ID bson.ObjectID `json:"id" bson:"_id,omitempty"`
	Team string `json:"team" bson:"team"`
	Season string `json:"season" bson:"season"`
	Entries []RosterEntry `json:"entries" bson:"entries"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// IndexOf returns the position of playerID in Entries, or -1.
func (r *Roster) IndexOf(playerID string) int {
	for i, e := range r.Entries {
		if e.PlayerID == playerID {
			return i
		}
	}
	return -1
}

// LineupBucket is the tri-state an Experimenter tool can move a player into.
type LineupBucket string

const (
	BucketInjured LineupBucket = "injured"
	BucketBench LineupBucket = "bench"
	BucketStarter LineupBucket = "starter"
)

// ApplyBucket mutates the entry for playerID according to bucket, returning
// false if the player is not on the roster.
func (r *Roster) ApplyBucket(playerID string, bucket LineupBucket) bool {
	idx := r.IndexOf(playerID)
	if idx < 0 {
		return false
	}
	switch bucket {
	case BucketInjured:
		r.Entries[idx].Injured = true
	case BucketBench:
		r.Entries[idx].Injured = false
		r.Entries[idx].Starter = false
	case BucketStarter:
		r.Entries[idx].Injured = false
		r.Entries[idx].Starter = true
	}
	return true
}
