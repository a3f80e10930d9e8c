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

// EloStore persists the incremental per-team Elo ratings EloCache derives
// from completed games, one record per (team, season, date).
type EloStore struct {
	db *mongo.Database
	collection string
}

func NewEloStore(db *mongo.Database, collection string) *EloStore {
	return &EloStore{db: db, collection: collection}
}

func (s *EloStore) col() *mongo.Collection { return s.db.Collection(s.collection) }

// Insert appends a new rating snapshot. Ratings are never overwritten: the
// history of a team's rating evolution is the source of truth for
// "strictly before date" lookups.
func (s *EloStore) Insert(ctx context.Context, r *models.EloRating) error {
	_, err := s.col().InsertOne(ctx, r)
	if err != nil {
		return fmt.Errorf("store: insert elo rating %s/%s: %w", r.Team, r.Season, err)
	}
	return nil
}

// LatestBefore returns a team's most recent rating strictly before the given
// date within a season, or the cold-start zero value if none exists.
func (s *EloStore) LatestBefore(ctx context.Context, team, season string, before time.Time) (*models.EloRating, error) {
	filter := bson.M{"team": team, "season": season, "date": bson.M{"$lt": before}}
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})
	var r models.EloRating
	err := s.col().FindOne(ctx, filter, opts).Decode(&r)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("store: latest elo for %s/%s: %w", team, season, err)
	}
	return &r, nil
}

// AllForSeason preloads every rating snapshot in a season, ordered by date,
// for EloCache's one-shot rebuild.
func (s *EloStore) AllForSeason(ctx context.Context, season string) ([]models.EloRating, error) {
	cursor, err := s.col().Find(ctx, bson.M{"season": season}, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("store: elo ratings for season %s: %w", season, err)
	}
	defer cursor.Close(ctx)

	var ratings []models.EloRating
	if err := cursor.All(ctx, &ratings); err != nil {
		return nil, fmt.Errorf("store: decode elo ratings: %w", err)
	}
	return ratings, nil
}
