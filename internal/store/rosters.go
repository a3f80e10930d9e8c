package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ai-atl/hoopcast/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// RosterStore is the prediction-time source of truth for who plays, keyed by (team, season).
type RosterStore struct {
	db *mongo.Database
	collection string
}

func NewRosterStore(db *mongo.Database, collection string) *RosterStore {
	return &RosterStore{db: db, collection: collection}
}

func (s *RosterStore) col() *mongo.Collection { return s.db.Collection(s.collection) }

func (s *RosterStore) Get(ctx context.Context, team, season string) (*models.Roster, error) {
	var r models.Roster
	err := s.col().FindOne(ctx, bson.M{"team": team, "season": season}).Decode(&r)
	if err != nil {
		return nil, fmt.Errorf("store: get roster %s/%s: %w", team, season, err)
	}
	return &r, nil
}

func (s *RosterStore) Upsert(ctx context.Context, r *models.Roster) error {
	r.UpdatedAt = time.Now()
	_, err := s.col().ReplaceOne(ctx,
		bson.M{"team": r.Team, "season": r.Season},
		r,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store: upsert roster %s/%s: %w", r.Team, r.Season, err)
	}
	return nil
}

// SetEntryBucket mutates a single roster entry by reading the roster,
// applying the bucket, and replacing the whole document, and is the
// platform-wide mutation surface for the Experimenter agent tool
// (set_player_lineup_bucket).
func (s *RosterStore) SetEntryBucket(ctx context.Context, team, season, playerID string, bucket models.LineupBucket) error {
	roster, err := s.Get(ctx, team, season)
	if err != nil {
		return err
	}
	if !roster.ApplyBucket(playerID, bucket) {
		return fmt.Errorf("store: player %s not on roster %s/%s", playerID, team, season)
	}
	return s.Upsert(ctx, roster)
}

// TeamStore reads the league's teams collection.
type TeamStore struct {
	db *mongo.Database
	collection string
	primaryKey string
}

func NewTeamStore(db *mongo.Database, collection, primaryKey string) *TeamStore {
	return &TeamStore{db: db, collection: collection, primaryKey: primaryKey}
}

func (s *TeamStore) All(ctx context.Context) ([]models.Team, error) {
	cursor, err := s.db.Collection(s.collection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("store: list teams: %w", err)
	}
	defer cursor.Close(ctx)

	var teams []models.Team
	if err := cursor.All(ctx, &teams); err != nil {
		return nil, fmt.Errorf("store: decode teams: %w", err)
	}
	return teams, nil
}

// NormalizationMap builds the displayName <-> abbreviation map
// SharedFeatureContext pins for team-name normalization.
func (s *TeamStore) NormalizationMap(ctx context.Context) (map[string]string, error) {
	teams, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(teams)*2)
	for _, t := range teams {
		out[t.DisplayName] = t.Abbr
		out[t.Abbr] = t.Abbr
		if t.ExternalID != "" {
			out[t.ExternalID] = t.Abbr
		}
	}
	return out, nil
}
