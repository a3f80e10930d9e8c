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

// SharedContextStore persists the per-matchup SharedContext document the
// conversational controller's agents read and append to.
type SharedContextStore struct {
	db *mongo.Database
	collection string
}

func NewSharedContextStore(db *mongo.Database, collection string) *SharedContextStore {
	return &SharedContextStore{db: db, collection: collection}
}

func (s *SharedContextStore) col() *mongo.Collection { return s.db.Collection(s.collection) }

func (s *SharedContextStore) Get(ctx context.Context, gameID string) (*models.SharedContext, error) {
	var sc models.SharedContext
	err := s.col().FindOne(ctx, bson.M{"game_id": gameID}).Decode(&sc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get shared context %s: %w", gameID, err)
	}
	return &sc, nil
}

func (s *SharedContextStore) Upsert(ctx context.Context, sc *models.SharedContext) error {
	sc.UpdatedAt = time.Now()
	_, err := s.col().ReplaceOne(ctx, bson.M{"game_id": sc.GameID}, sc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store: upsert shared context %s: %w", sc.GameID, err)
	}
	return nil
}

// AppendHistory appends one agent turn to a matchup's history without a
// read-modify-write round trip, for concurrent agents sharing one matchup.
func (s *SharedContextStore) AppendHistory(ctx context.Context, gameID string, entry models.HistoryEntry) error {
	filter := bson.M{"game_id": gameID}
	update := bson.M{
		"$push": bson.M{"history": entry},
		"$set": bson.M{
			"latest_by_agent." + entry.Agent: entry.Output,
			"updated_at": time.Now(),
		},
	}
	_, err := s.col().UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("store: append history for %s: %w", gameID, err)
	}
	return nil
}

// NewsCacheStore is the TTL'd external-lookup cache backing the
// Research/Media agent's tool contract.
type NewsCacheStore struct {
	db *mongo.Database
	collection string
}

func NewNewsCacheStore(db *mongo.Database, collection string) *NewsCacheStore {
	return &NewsCacheStore{db: db, collection: collection}
}

func (s *NewsCacheStore) col() *mongo.Collection { return s.db.Collection(s.collection) }

// Get returns a non-expired cache entry, or nil if absent/stale.
func (s *NewsCacheStore) Get(ctx context.Context, cacheKey string) (*models.NewsCacheEntry, error) {
	var e models.NewsCacheEntry
	err := s.col().FindOne(ctx, bson.M{"cache_key": cacheKey}).Decode(&e)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get news cache %s: %w", cacheKey, err)
	}
	if e.Expired(time.Now()) {
		return nil, nil
	}
	return &e, nil
}

func (s *NewsCacheStore) Upsert(ctx context.Context, e *models.NewsCacheEntry) error {
	e.FetchedAt = time.Now()
	_, err := s.col().ReplaceOne(ctx, bson.M{"cache_key": e.CacheKey}, e, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store: upsert news cache %s: %w", e.CacheKey, err)
	}
	return nil
}
