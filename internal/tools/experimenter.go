package tools

import (
	"context"
	"time"

	"github.com/ai-atl/hoopcast/internal/modelerrors"
	"github.com/ai-atl/hoopcast/internal/models"
)

// ExperimenterHandlers binds the Experimenter's tool contract for one game:
// reading lineups, moving a player between buckets, and re-running the
// selected ensemble to capture a what-if prediction.
func (r *Registry) ExperimenterHandlers(gameID string) map[string]func(ctx context.Context, args map[string]any) (any, error) {
	return map[string]func(ctx context.Context, args map[string]any) (any, error){
		"get_lineups": r.toolGetLineups,
		"set_player_lineup_bucket": r.toolSetPlayerLineupBucket,
		"predict": r.toolPredict(gameID),
	}
}

var validBuckets = map[string]models.LineupBucket{
	"injured": models.BucketInjured,
	"bench": models.BucketBench,
	"starter": models.BucketStarter,
}

func (r *Registry) toolSetPlayerLineupBucket(ctx context.Context, args map[string]any) (any, error) {
	playerID, err := stringArg(args, "player_id")
	if err != nil {
		return nil, err
	}
	rawBucket, err := stringArg(args, "bucket")
	if err != nil {
		return nil, err
	}
	bucket, ok := validBuckets[rawBucket]
	if !ok {
		return nil, modelerrors.Tool(nil, "tools: bucket must be one of injured, bench, starter, got %q", rawBucket)
	}
	team, season, err := r.resolveRosterOwner(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if err := r.Rosters.SetEntryBucket(ctx, team, season, playerID, bucket); err != nil {
		return nil, modelerrors.Tool(err, "tools: set_player_lineup_bucket failed")
	}
	return map[string]any{"player_id": playerID, "bucket": rawBucket}, nil
}

// resolveRosterOwner finds which team/season roster currently carries
// playerID, since set_player_lineup_bucket is addressed by player rather
// than by (team, season).
func (r *Registry) resolveRosterOwner(ctx context.Context, playerID string) (string, string, error) {
	teams, err := r.Teams.All(ctx)
	if err != nil {
		return "", "", modelerrors.DataMissing("tools: list teams: %v", err)
	}
	season := r.Cfg.SeasonFor(r.latestKnownDate(ctx))
	for _, t := range teams {
		roster, err := r.Rosters.Get(ctx, t.Abbr, season)
		if err != nil || roster == nil {
			continue
		}
		if roster.IndexOf(playerID) >= 0 {
			return t.Abbr, season, nil
		}
	}
	return "", "", modelerrors.DataMissing("tools: no roster carries player %s", playerID)
}

func (r *Registry) latestKnownDate(ctx context.Context) time.Time {
	t, err := r.Games.MaxDate(ctx)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (r *Registry) toolPredict(gameID string) func(ctx context.Context, args map[string]any) (any, error) {
	return func(ctx context.Context, args map[string]any) (any, error) {
		reason := optStringArg(args, "reason")
		if r.Predict == nil {
			return nil, modelerrors.Tool(nil, "tools: predict is not wired for this registry")
		}
		return r.Predict(ctx, gameID, reason)
	}
}
