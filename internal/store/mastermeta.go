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

// MasterMetaStore persists the singleton MasterMetadata document per league
// and the cached DatasetArtifact sidecars MasterTableBuilder/DatasetBuilder
// produce.
type MasterMetaStore struct {
	db *mongo.Database
	metadataCollection string
	datasetCollection string
}

func NewMasterMetaStore(db *mongo.Database, metadataCollection, datasetCollection string) *MasterMetaStore {
	return &MasterMetaStore{db: db, metadataCollection: metadataCollection, datasetCollection: datasetCollection}
}

func (s *MasterMetaStore) Get(ctx context.Context, league string) (*models.MasterMetadata, error) {
	var m models.MasterMetadata
	err := s.db.Collection(s.metadataCollection).FindOne(ctx, bson.M{"league": league}).Decode(&m)
	if err != nil {
		return nil, fmt.Errorf("store: get master metadata %s: %w", league, err)
	}
	return &m, nil
}

func (s *MasterMetaStore) Upsert(ctx context.Context, m *models.MasterMetadata) error {
	m.GeneratedAt = time.Now()
	_, err := s.db.Collection(s.metadataCollection).ReplaceOne(ctx,
		bson.M{"league": m.League}, m, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store: upsert master metadata %s: %w", m.League, err)
	}
	return nil
}

func (s *MasterMetaStore) DatasetByID(ctx context.Context, datasetID string) (*models.DatasetArtifact, error) {
	var a models.DatasetArtifact
	err := s.db.Collection(s.datasetCollection).FindOne(ctx, bson.M{"dataset_id": datasetID}).Decode(&a)
	if err != nil {
		return nil, fmt.Errorf("store: get dataset artifact %s: %w", datasetID, err)
	}
	a.Cached = true
	return &a, nil
}

func (s *MasterMetaStore) UpsertDataset(ctx context.Context, a *models.DatasetArtifact) error {
	a.CreatedAt = time.Now()
	_, err := s.db.Collection(s.datasetCollection).ReplaceOne(ctx,
		bson.M{"dataset_id": a.DatasetID}, a, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store: upsert dataset artifact %s: %w", a.DatasetID, err)
	}
	return nil
}
