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

// PredictionStore persists PredictionService's baseline ensemble output, one
// document per GameID.
type PredictionStore struct {
	db *mongo.Database
	collection string
}

func NewPredictionStore(db *mongo.Database, collection string) *PredictionStore {
	return &PredictionStore{db: db, collection: collection}
}

func (s *PredictionStore) col() *mongo.Collection { return s.db.Collection(s.collection) }

func (s *PredictionStore) Get(ctx context.Context, gameID string) (*models.PredictionDoc, error) {
	var p models.PredictionDoc
	err := s.col().FindOne(ctx, bson.M{"game_id": gameID}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get prediction %s: %w", gameID, err)
	}
	return &p, nil
}

func (s *PredictionStore) Upsert(ctx context.Context, p *models.PredictionDoc) error {
	p.UpdatedAt = time.Now()
	_, err := s.col().ReplaceOne(ctx, bson.M{"game_id": p.GameID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store: upsert prediction %s: %w", p.GameID, err)
	}
	return nil
}

// ScenarioStore persists immutable PredictionScenarioSnapshots captured after
// roster-mutation what-ifs, so the conversational core can diff outcomes
//.
type ScenarioStore struct {
	db *mongo.Database
	collection string
}

func NewScenarioStore(db *mongo.Database, collection string) *ScenarioStore {
	return &ScenarioStore{db: db, collection: collection}
}

func (s *ScenarioStore) col() *mongo.Collection { return s.db.Collection(s.collection) }

func (s *ScenarioStore) Insert(ctx context.Context, snap *models.PredictionScenarioSnapshot) error {
	snap.CreatedAt = time.Now()
	_, err := s.col().InsertOne(ctx, snap)
	if err != nil {
		return fmt.Errorf("store: insert scenario snapshot %s: %w", snap.SnapshotID, err)
	}
	return nil
}

func (s *ScenarioStore) Get(ctx context.Context, snapshotID string) (*models.PredictionScenarioSnapshot, error) {
	var snap models.PredictionScenarioSnapshot
	err := s.col().FindOne(ctx, bson.M{"snapshot_id": snapshotID}).Decode(&snap)
	if err != nil {
		return nil, fmt.Errorf("store: get scenario snapshot %s: %w", snapshotID, err)
	}
	return &snap, nil
}

func (s *ScenarioStore) ForGame(ctx context.Context, gameID string) ([]models.PredictionScenarioSnapshot, error) {
	cursor, err := s.col().Find(ctx, bson.M{"game_id": gameID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("store: scenarios for game %s: %w", gameID, err)
	}
	defer cursor.Close(ctx)

	var snaps []models.PredictionScenarioSnapshot
	if err := cursor.All(ctx, &snaps); err != nil {
		return nil, fmt.Errorf("store: decode scenario snapshots: %w", err)
	}
	return snaps, nil
}
