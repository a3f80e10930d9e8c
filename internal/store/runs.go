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

// RunStore persists ModelRun lifecycle records for RunTracker.
type RunStore struct {
	db *mongo.Database
	collection string
}

func NewRunStore(db *mongo.Database, collection string) *RunStore {
	return &RunStore{db: db, collection: collection}
}

func (s *RunStore) col() *mongo.Collection { return s.db.Collection(s.collection) }

func (s *RunStore) Create(ctx context.Context, r *models.ModelRun) error {
	r.CreatedAt = time.Now()
	r.Status = models.RunStatusCreated
	_, err := s.col().InsertOne(ctx, r)
	if err != nil {
		return fmt.Errorf("store: create run %s: %w", r.RunID, err)
	}
	return nil
}

func (s *RunStore) Get(ctx context.Context, runID string) (*models.ModelRun, error) {
	var r models.ModelRun
	err := s.col().FindOne(ctx, bson.M{"run_id": runID}).Decode(&r)
	if err != nil {
		return nil, fmt.Errorf("store: get run %s: %w", runID, err)
	}
	return &r, nil
}

// MarkRunning transitions a run from created to running.
func (s *RunStore) MarkRunning(ctx context.Context, runID string) error {
	_, err := s.col().UpdateOne(ctx,
		bson.M{"run_id": runID},
		bson.M{"$set": bson.M{"status": models.RunStatusRunning, "started_at": time.Now()}})
	if err != nil {
		return fmt.Errorf("store: mark run %s running: %w", runID, err)
	}
	return nil
}

// Complete transitions a run to completed and persists its metrics and
// diagnostics, the only terminal transition other than Fail.
func (s *RunStore) Complete(ctx context.Context, runID string, metrics map[string]float64, diagnostics map[string]any, artifactDir string) error {
	_, err := s.col().UpdateOne(ctx,
		bson.M{"run_id": runID},
		bson.M{"$set": bson.M{
				"status": models.RunStatusCompleted,
				"metrics": metrics,
				"diagnostics": diagnostics,
				"artifact_dir": artifactDir,
				"completed_at": time.Now(),
			}})
	if err != nil {
		return fmt.Errorf("store: complete run %s: %w", runID, err)
	}
	return nil
}

func (s *RunStore) Fail(ctx context.Context, runID string, cause error) error {
	_, err := s.col().UpdateOne(ctx,
		bson.M{"run_id": runID},
		bson.M{"$set": bson.M{
				"status": models.RunStatusFailed,
				"error": cause.Error(),
				"completed_at": time.Now(),
			}})
	if err != nil {
		return fmt.Errorf("store: fail run %s: %w", runID, err)
	}
	return nil
}

func (s *RunStore) ForConfig(ctx context.Context, configID string) ([]models.ModelRun, error) {
	cursor, err := s.col().Find(ctx, bson.M{"config_id": configID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("store: runs for config %s: %w", configID, err)
	}
	defer cursor.Close(ctx)

	var runs []models.ModelRun
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("store: decode runs: %w", err)
	}
	return runs, nil
}
