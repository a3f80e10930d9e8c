// Package store holds the thin MongoDB repositories every component in this
// core reads and writes through. Each repository follows the same shape: a
// struct wrapping a *mongo.Database plus the resolved collection name,
// bson.M filters built inline, cursor.All for multi-document reads.
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

// GameStore reads and writes the league's games collection.
type GameStore struct {
	db *mongo.Database
	collection string
}

func NewGameStore(db *mongo.Database, collection string) *GameStore {
	return &GameStore{db: db, collection: collection}
}

func (s *GameStore) col() *mongo.Collection { return s.db.Collection(s.collection) }

// Get fetches one game by its GameID.
func (s *GameStore) Get(ctx context.Context, gameID string) (*models.Game, error) {
	var g models.Game
	err := s.col().FindOne(ctx, bson.M{"game_id": gameID}).Decode(&g)
	if err != nil {
		return nil, fmt.Errorf("store: get game %s: %w", gameID, err)
	}
	return &g, nil
}

// Upsert writes a game document, keyed by GameID.
func (s *GameStore) Upsert(ctx context.Context, g *models.Game) error {
	g.UpdatedAt = time.Now()
	_, err := s.col().ReplaceOne(ctx, bson.M{"game_id": g.GameID}, g, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store: upsert game %s: %w", g.GameID, err)
	}
	return nil
}

// AllForSeasons returns every game in the given seasons (or all seasons if
// empty), ordered by date, for SharedFeatureContext's one-shot load.
func (s *GameStore) AllForSeasons(ctx context.Context, seasons []string) ([]models.Game, error) {
	filter := bson.M{}
	if len(seasons) > 0 {
		filter["season"] = bson.M{"$in": seasons}
	}
	cursor, err := s.col().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("store: list games: %w", err)
	}
	defer cursor.Close(ctx)

	var games []models.Game
	if err := cursor.All(ctx, &games); err != nil {
		return nil, fmt.Errorf("store: decode games: %w", err)
	}
	return games, nil
}

// InWindow returns a team's games strictly before `before`, season-bounded,
// used by StatHandler's season/games_N/days_N windows.
func (s *GameStore) InWindow(ctx context.Context, team, season string, before time.Time) ([]models.Game, error) {
	filter := bson.M{
		"season": season,
		"date": bson.M{"$lt": before},
		"$or": []bson.M{{"home": team}, {"away": team}},
	}
	cursor, err := s.col().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("store: games in window for %s: %w", team, err)
	}
	defer cursor.Close(ctx)

	var games []models.Game
	if err := cursor.All(ctx, &games); err != nil {
		return nil, fmt.Errorf("store: decode games: %w", err)
	}
	return games, nil
}

// MaxDate returns the latest game date in the store, used by
// MasterTableBuilder to stamp last_date_updated.
func (s *GameStore) MaxDate(ctx context.Context) (time.Time, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})
	var g models.Game
	if err := s.col().FindOne(ctx, bson.M{}, opts).Decode(&g); err != nil {
		if err == mongo.ErrNoDocuments {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("store: max game date: %w", err)
	}
	return g.Date, nil
}

// VenueStore resolves venue_guid -> lat/lon for travel features.
type VenueStore struct {
	db *mongo.Database
	collection string
}

func NewVenueStore(db *mongo.Database, collection string) *VenueStore {
	return &VenueStore{db: db, collection: collection}
}

func (s *VenueStore) All(ctx context.Context) (map[string]models.Venue, error) {
	cursor, err := s.db.Collection(s.collection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("store: list venues: %w", err)
	}
	defer cursor.Close(ctx)

	var venues []models.Venue
	if err := cursor.All(ctx, &venues); err != nil {
		return nil, fmt.Errorf("store: decode venues: %w", err)
	}

	out := make(map[string]models.Venue, len(venues))
	for _, v := range venues {
		out[v.GUID] = v
	}
	return out, nil
}
