// Package tools binds each matchup agent's declared tool contract to live
// store-backed handlers, wrapping deterministic DB reads in the per-matchup
// tool cache so repeat calls within the TTL are byte-identical.
package tools

import (
	"context"

	"github.com/ai-atl/hoopcast/internal/leagueconfig"
	"github.com/ai-atl/hoopcast/internal/llm"
	"github.com/ai-atl/hoopcast/internal/modelerrors"
	"github.com/ai-atl/hoopcast/internal/stacking"
	"github.com/ai-atl/hoopcast/internal/store"
	"github.com/ai-atl/hoopcast/internal/toolcache"
)

// EnsembleLoader resolves the currently selected ensemble configuration into
// a ready-to-score stacking.Ensemble for a game.
type EnsembleLoader func(ctx context.Context) (*stacking.Ensemble, error)

// Registry holds every dependency a tool handler needs: the store layer,
// league config, the per-matchup tool cache, and the ensemble loader that
// backs the Model-Inspector and Experimenter tools.
type Registry struct {
	Cfg *leagueconfig.Config
	Cache *toolcache.Cache

	Games *store.GameStore
	Venues *store.VenueStore
	Teams *store.TeamStore
	Rosters *store.RosterStore
	PlayerStats *store.PlayerStatStore
	Predictions *store.PredictionStore
	Scenarios *store.ScenarioStore
	Classifiers *store.ClassifierConfigStore
	Points *store.PointsConfigStore
	News *store.NewsCacheStore

	LoadEnsemble EnsembleLoader

	// Predict re-runs the selected ensemble for a game and persists a new
	// prediction + scenario snapshot, the Experimenter's predict() tool.
	Predict func(ctx context.Context, gameID, reason string) (any, error)
}

// gameID/args helpers shared by handler implementations.

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", modelerrors.Tool(nil, "tools: missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", modelerrors.Tool(nil, "tools: argument %q must be a non-empty string", key)
	}
	return s, nil
}

func optStringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func boolArg(args map[string]any, key string) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	default:
		return false
	}
}

func stringsArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Bind returns an llm.ToolRunner that dispatches by tool name to the
// registry's handlers for one agent's declared tool set, wrapping
// deterministic lookups in the per-matchup cache keyed on gameID.
func (r *Registry) Bind(gameID string, handlers map[string]func(ctx context.Context, args map[string]any) (any, error)) llm.ToolRunner {
	return func(ctx context.Context, call llm.ToolCall) (any, error) {
		handler, ok := handlers[call.Name]
		if !ok {
			return nil, modelerrors.Tool(nil, "tools: no handler bound for %q", call.Name)
		}
		forceRefresh := boolArg(call.Arguments, "force_refresh")
		res, err := r.Cache.Fetch(gameID, call.Name, call.Arguments, forceRefresh, func() (any, error) {
			return handler(ctx, call.Arguments)
		})
		if err != nil {
			return nil, modelerrors.Tool(err, "tools: %s failed", call.Name)
		}
		if res.Cached {
			return map[string]any{"result": res.Value, "cached": true}, nil
		}
		return map[string]any{"result": res.Value, "cached": false}, nil
	}
}
