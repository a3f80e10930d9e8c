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

// LeagueStatsStore caches the per-season league constants PERCalculator
// normalizes against, so they are computed once per season rather than once
// per player.
type LeagueStatsStore struct {
	db *mongo.Database
	collection string
}

func NewLeagueStatsStore(db *mongo.Database, collection string) *LeagueStatsStore {
	return &LeagueStatsStore{db: db, collection: collection}
}

func (s *LeagueStatsStore) col() *mongo.Collection { return s.db.Collection(s.collection) }

func (s *LeagueStatsStore) Get(ctx context.Context, league, season string) (*models.LeagueSeasonStats, error) {
	var st models.LeagueSeasonStats
	err := s.col().FindOne(ctx, bson.M{"league": league, "season": season}).Decode(&st)
	if err != nil {
		return nil, fmt.Errorf("store: get league stats %s/%s: %w", league, season, err)
	}
	return &st, nil
}

func (s *LeagueStatsStore) Upsert(ctx context.Context, st *models.LeagueSeasonStats) error {
	st.UpdatedAt = time.Now()
	_, err := s.col().ReplaceOne(ctx,
		bson.M{"league": st.League, "season": st.Season}, st, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store: upsert league stats %s/%s: %w", st.League, st.Season, err)
	}
	return nil
}
