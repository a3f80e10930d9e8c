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

// ClassifierConfigStore is the ConfigRepository half covering binary
// home-win classifiers.
type ClassifierConfigStore struct {
	db *mongo.Database
	collection string
}

func NewClassifierConfigStore(db *mongo.Database, collection string) *ClassifierConfigStore {
	return &ClassifierConfigStore{db: db, collection: collection}
}

func (s *ClassifierConfigStore) col() *mongo.Collection { return s.db.Collection(s.collection) }

// ByHash looks up a config by its content hash, the dedup key that prevents
// retraining an identical configuration under a new ConfigID.
func (s *ClassifierConfigStore) ByHash(ctx context.Context, hash string) (*models.ClassifierConfig, error) {
	var c models.ClassifierConfig
	err := s.col().FindOne(ctx, bson.M{"hash": hash}).Decode(&c)
	if err != nil {
		return nil, fmt.Errorf("store: classifier config by hash: %w", err)
	}
	return &c, nil
}

func (s *ClassifierConfigStore) Get(ctx context.Context, configID string) (*models.ClassifierConfig, error) {
	var c models.ClassifierConfig
	err := s.col().FindOne(ctx, bson.M{"config_id": configID}).Decode(&c)
	if err != nil {
		return nil, fmt.Errorf("store: get classifier config %s: %w", configID, err)
	}
	return &c, nil
}

func (s *ClassifierConfigStore) Insert(ctx context.Context, c *models.ClassifierConfig) error {
	c.CreatedAt = time.Now()
	_, err := s.col().InsertOne(ctx, c)
	if err != nil {
		return fmt.Errorf("store: insert classifier config %s: %w", c.ConfigID, err)
	}
	return nil
}

func (s *ClassifierConfigStore) Update(ctx context.Context, c *models.ClassifierConfig) error {
	_, err := s.col().ReplaceOne(ctx, bson.M{"config_id": c.ConfigID}, c)
	if err != nil {
		return fmt.Errorf("store: update classifier config %s: %w", c.ConfigID, err)
	}
	return nil
}

// SetSelected unsets every previously Selected config and then marks
// configID selected. The two updates are not a transaction: if the second
// one fails, no classifier config is left selected until the call is repeated.
func (s *ClassifierConfigStore) SetSelected(ctx context.Context, configID string) error {
	if _, err := s.col().UpdateMany(ctx, bson.M{"selected": true}, bson.M{"$set": bson.M{"selected": false}}); err != nil {
		return fmt.Errorf("store: clear selected classifier configs: %w", err)
	}
	res, err := s.col().UpdateOne(ctx, bson.M{"config_id": configID}, bson.M{"$set": bson.M{"selected": true}})
	if err != nil {
		return fmt.Errorf("store: select classifier config %s: %w", configID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("store: select classifier config %s: not found", configID)
	}
	return nil
}

func (s *ClassifierConfigStore) Selected(ctx context.Context) (*models.ClassifierConfig, error) {
	var c models.ClassifierConfig
	err := s.col().FindOne(ctx, bson.M{"selected": true}).Decode(&c)
	if err != nil {
		return nil, fmt.Errorf("store: selected classifier config: %w", err)
	}
	return &c, nil
}

func (s *ClassifierConfigStore) All(ctx context.Context) ([]models.ClassifierConfig, error) {
	cursor, err := s.col().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("store: list classifier configs: %w", err)
	}
	defer cursor.Close(ctx)

	var configs []models.ClassifierConfig
	if err := cursor.All(ctx, &configs); err != nil {
		return nil, fmt.Errorf("store: decode classifier configs: %w", err)
	}
	return configs, nil
}

// PointsConfigStore is the ConfigRepository half covering points-regression
// configs, mirroring ClassifierConfigStore's hash dedup and selection rules.
type PointsConfigStore struct {
	db *mongo.Database
	collection string
}

func NewPointsConfigStore(db *mongo.Database, collection string) *PointsConfigStore {
	return &PointsConfigStore{db: db, collection: collection}
}

func (s *PointsConfigStore) col() *mongo.Collection { return s.db.Collection(s.collection) }

func (s *PointsConfigStore) ByHash(ctx context.Context, hash string) (*models.PointsConfig, error) {
	var c models.PointsConfig
	err := s.col().FindOne(ctx, bson.M{"hash": hash}).Decode(&c)
	if err != nil {
		return nil, fmt.Errorf("store: points config by hash: %w", err)
	}
	return &c, nil
}

func (s *PointsConfigStore) Get(ctx context.Context, configID string) (*models.PointsConfig, error) {
	var c models.PointsConfig
	err := s.col().FindOne(ctx, bson.M{"config_id": configID}).Decode(&c)
	if err != nil {
		return nil, fmt.Errorf("store: get points config %s: %w", configID, err)
	}
	return &c, nil
}

func (s *PointsConfigStore) Insert(ctx context.Context, c *models.PointsConfig) error {
	c.CreatedAt = time.Now()
	_, err := s.col().InsertOne(ctx, c)
	if err != nil {
		return fmt.Errorf("store: insert points config %s: %w", c.ConfigID, err)
	}
	return nil
}

func (s *PointsConfigStore) Update(ctx context.Context, c *models.PointsConfig) error {
	_, err := s.col().ReplaceOne(ctx, bson.M{"config_id": c.ConfigID}, c)
	if err != nil {
		return fmt.Errorf("store: update points config %s: %w", c.ConfigID, err)
	}
	return nil
}

func (s *PointsConfigStore) SetSelected(ctx context.Context, configID string) error {
	if _, err := s.col().UpdateMany(ctx, bson.M{"selected": true}, bson.M{"$set": bson.M{"selected": false}}); err != nil {
		return fmt.Errorf("store: clear selected points configs: %w", err)
	}
	res, err := s.col().UpdateOne(ctx, bson.M{"config_id": configID}, bson.M{"$set": bson.M{"selected": true}})
	if err != nil {
		return fmt.Errorf("store: select points config %s: %w", configID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("store: select points config %s: not found", configID)
	}
	return nil
}

func (s *PointsConfigStore) Selected(ctx context.Context) (*models.PointsConfig, error) {
	var c models.PointsConfig
	err := s.col().FindOne(ctx, bson.M{"selected": true}).Decode(&c)
	if err != nil {
		return nil, fmt.Errorf("store: selected points config: %w", err)
	}
	return &c, nil
}
