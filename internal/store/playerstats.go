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

// PlayerStatStore reads box-score lines keyed by (player_id, game_id).
type PlayerStatStore struct {
	db *mongo.Database
	collection string
}

func NewPlayerStatStore(db *mongo.Database, collection string) *PlayerStatStore {
	return &PlayerStatStore{db: db, collection: collection}
}

func (s *PlayerStatStore) col() *mongo.Collection { return s.db.Collection(s.collection) }

// ForSeasons preloads every box-score line in the given seasons, for
// PERCalculator's bounded-memory preload.
func (s *PlayerStatStore) ForSeasons(ctx context.Context, seasons []string) ([]models.PlayerGameStat, error) {
	filter := bson.M{}
	if len(seasons) > 0 {
		filter["season"] = bson.M{"$in": seasons}
	}
	cursor, err := s.col().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("store: list player stats: %w", err)
	}
	defer cursor.Close(ctx)

	var stats []models.PlayerGameStat
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("store: decode player stats: %w", err)
	}
	return stats, nil
}

// ForPlayerBefore returns a player's lines in a season strictly before a
// cutoff date, used by PERCalculator.GetPlayerPERBeforeDate.
func (s *PlayerStatStore) ForPlayerBefore(ctx context.Context, playerID, season string, before time.Time) ([]models.PlayerGameStat, error) {
	filter := bson.M{
		"player_id": playerID,
		"season": season,
		"date": bson.M{"$lt": before},
	}
	cursor, err := s.col().Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("store: player stats before date: %w", err)
	}
	defer cursor.Close(ctx)

	var stats []models.PlayerGameStat
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("store: decode player stats: %w", err)
	}
	return stats, nil
}

// ForGame returns every player's line for one game, for both teams.
func (s *PlayerStatStore) ForGame(ctx context.Context, gameID string) ([]models.PlayerGameStat, error) {
	cursor, err := s.col().Find(ctx, bson.M{"game_id": gameID})
	if err != nil {
		return nil, fmt.Errorf("store: player stats for game %s: %w", gameID, err)
	}
	defer cursor.Close(ctx)

	var stats []models.PlayerGameStat
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("store: decode player stats: %w", err)
	}
	return stats, nil
}
