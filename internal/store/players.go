package store

import (
	"context"
	"fmt"

	"github.com/ai-atl/hoopcast/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// PlayerStore reads the league-wide player identity collection.
type PlayerStore struct {
	db *mongo.Database
	collection string
}

func NewPlayerStore(db *mongo.Database, collection string) *PlayerStore {
	return &PlayerStore{db: db, collection: collection}
}

func (s *PlayerStore) Get(ctx context.Context, playerID string) (*models.Player, error) {
	var p models.Player
	err := s.db.Collection(s.collection).FindOne(ctx, bson.M{"player_id": playerID}).Decode(&p)
	if err != nil {
		return nil, fmt.Errorf("store: get player %s: %w", playerID, err)
	}
	return &p, nil
}

func (s *PlayerStore) ManyByID(ctx context.Context, playerIDs []string) (map[string]models.Player, error) {
	cursor, err := s.db.Collection(s.collection).Find(ctx, bson.M{"player_id": bson.M{"$in": playerIDs}})
	if err != nil {
		return nil, fmt.Errorf("store: list players: %w", err)
	}
	defer cursor.Close(ctx)

	var players []models.Player
	if err := cursor.All(ctx, &players); err != nil {
		return nil, fmt.Errorf("store: decode players: %w", err)
	}

	out := make(map[string]models.Player, len(players))
	for _, p := range players {
		out[p.PlayerID] = p
	}
	return out, nil
}
