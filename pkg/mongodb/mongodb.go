// Package mongodb owns connection pooling and index management for the
// document store (§6). Repositories in internal/store are handed the
// resulting *mongo.Database and never dial the server themselves.
package mongodb

import (
	"context"
	"time"

	"github.com/ai-atl/hoopcast/internal/leagueconfig"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Connect establishes a pooled connection to MongoDB.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(10).
		SetMaxConnIdleTime(30 * time.Second)

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return client, nil
}

// CreateIndexes creates the indexes the modeling core relies on for its
// collections, named per the league's Collections.
func CreateIndexes(ctx context.Context, db *mongo.Database, c leagueconfig.Collections) error {
	type spec struct {
		collection string
		indexes    []mongo.IndexModel
	}

	specs := []spec{
		{c.Games, []mongo.IndexModel{
			{Keys: bson.D{{Key: "game_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "season", Value: 1}, {Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "home", Value: 1}, {Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "away", Value: 1}, {Key: "date", Value: 1}}},
		}},
		{c.PlayerStats, []mongo.IndexModel{
			{Keys: bson.D{{Key: "player_id", Value: 1}, {Key: "game_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "season", Value: 1}, {Key: "team", Value: 1}}},
		}},
		{c.Players, []mongo.IndexModel{
			{Keys: bson.D{{Key: "player_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{c.Rosters, []mongo.IndexModel{
			{Keys: bson.D{{Key: "team", Value: 1}, {Key: "season", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{c.Teams, []mongo.IndexModel{
			{Keys: bson.D{{Key: "abbr", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{c.ModelConfig, []mongo.IndexModel{
			{Keys: bson.D{{Key: "hash", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "selected", Value: 1}}},
		}},
		{c.ModelConfigPoints, []mongo.IndexModel{
			{Keys: bson.D{{Key: "hash", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "selected", Value: 1}}},
		}},
		{c.ExperimentRuns, []mongo.IndexModel{
			{Keys: bson.D{{Key: "run_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "config_id", Value: 1}}},
		}},
		{c.PointPredictionCache, []mongo.IndexModel{
			{Keys: bson.D{{Key: "model_id", Value: 1}, {Key: "game_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{c.ModelPredictions, []mongo.IndexModel{
			{Keys: bson.D{{Key: "game_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{c.PredictionScenarios, []mongo.IndexModel{
			{Keys: bson.D{{Key: "snapshot_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "game_id", Value: 1}}},
		}},
		{c.SharedContext, []mongo.IndexModel{
			{Keys: bson.D{{Key: "game_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{c.CachedNews, []mongo.IndexModel{
			{Keys: bson.D{{Key: "cache_key", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
	}

	for _, s := range specs {
		if _, err := db.Collection(s.collection).Indexes().CreateMany(ctx, s.indexes); err != nil {
			return err
		}
	}

	return nil
}
