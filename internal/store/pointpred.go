package store

import (
	"context"
	"fmt"

	"github.com/ai-atl/hoopcast/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// PointPredictionCacheStore persists a selected points-regression model's
// per-game output, consumed by DatasetBuilder as the pred_margin classifier
// feature.
type PointPredictionCacheStore struct {
	db *mongo.Database
	collection string
}

func NewPointPredictionCacheStore(db *mongo.Database, collection string) *PointPredictionCacheStore {
	return &PointPredictionCacheStore{db: db, collection: collection}
}

func (s *PointPredictionCacheStore) col() *mongo.Collection { return s.db.Collection(s.collection) }

func (s *PointPredictionCacheStore) Get(ctx context.Context, modelID, gameID string) (*models.PointPredictionCache, error) {
	var p models.PointPredictionCache
	err := s.col().FindOne(ctx, bson.M{"model_id": modelID, "game_id": gameID}).Decode(&p)
	if err != nil {
		return nil, fmt.Errorf("store: get point prediction %s/%s: %w", modelID, gameID, err)
	}
	return &p, nil
}

func (s *PointPredictionCacheStore) Upsert(ctx context.Context, p *models.PointPredictionCache) error {
	_, err := s.col().ReplaceOne(ctx,
		bson.M{"model_id": p.ModelID, "game_id": p.GameID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store: upsert point prediction %s/%s: %w", p.ModelID, p.GameID, err)
	}
	return nil
}

// UpsertMany bulk-writes a model's predictions across every game in a
// training/scoring batch, the shape ExperimentRunner's regression branch
// uses after scoring a full dataset.
func (s *PointPredictionCacheStore) UpsertMany(ctx context.Context, preds []models.PointPredictionCache) error {
	for i := range preds {
		if err := s.Upsert(ctx, &preds[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *PointPredictionCacheStore) ForModel(ctx context.Context, modelID string) ([]models.PointPredictionCache, error) {
	cursor, err := s.col().Find(ctx, bson.M{"model_id": modelID}, options.Find())
	if err != nil {
		return nil, fmt.Errorf("store: point predictions for model %s: %w", modelID, err)
	}
	defer cursor.Close(ctx)

	var preds []models.PointPredictionCache
	if err := cursor.All(ctx, &preds); err != nil {
		return nil, fmt.Errorf("store: decode point predictions: %w", err)
	}
	return preds, nil
}
