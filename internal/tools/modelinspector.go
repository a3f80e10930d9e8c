package tools

import (
	"context"

	"github.com/ai-atl/hoopcast/internal/modelerrors"
)

// ModelInspectorHandlers binds the Model-Inspector's read-only tool contract
// for one game: direction table, selected configs, prediction doc, feature
// values, base outputs, meta-model params, and scenario variants.
func (r *Registry) ModelInspectorHandlers(gameID string) map[string]func(ctx context.Context, args map[string]any) (any, error) {
	return map[string]func(ctx context.Context, args map[string]any) (any, error){
		"get_base_model_direction_table": r.toolDirectionTable(gameID),
		"get_selected_configs": r.toolSelectedConfigs,
		"get_prediction_doc": r.toolPredictionDoc,
		"get_prediction_feature_values": r.toolPredictionFeatureValues,
		"get_prediction_base_outputs": r.toolPredictionBaseOutputs(gameID),
		"get_ensemble_meta_model_params": r.toolEnsembleMetaModelParams(gameID),
		"get_scenario_snapshot": r.toolScenarioSnapshot,
		"diff_scenario": r.toolDiffScenario,
	}
}

func (r *Registry) toolDirectionTable(gameID string) func(ctx context.Context, args map[string]any) (any, error) {
	return func(ctx context.Context, args map[string]any) (any, error) {
		pred, err := r.Predictions.Get(ctx, gameID)
		if err != nil {
			return nil, modelerrors.DataMissing("tools: no prediction for game %s: %v", gameID, err)
		}
		ens, err := r.LoadEnsemble(ctx)
		if err != nil {
			return nil, err
		}
		return ens.DirectionTable(pred.FeaturesDict), nil
	}
}

func (r *Registry) toolSelectedConfigs(ctx context.Context, args map[string]any) (any, error) {
	classifier, err := r.Classifiers.Selected(ctx)
	if err != nil {
		return nil, modelerrors.DataMissing("tools: no selected classifier config: %v", err)
	}
	points, err := r.Points.Selected(ctx)
	if err != nil {
		return nil, modelerrors.DataMissing("tools: no selected points config: %v", err)
	}
	return map[string]any{"classifier": classifier, "points": points}, nil
}

func (r *Registry) toolPredictionDoc(ctx context.Context, args map[string]any) (any, error) {
	gameID, err := stringArg(args, "game_id")
	if err != nil {
		return nil, err
	}
	doc, err := r.Predictions.Get(ctx, gameID)
	if err != nil {
		return nil, modelerrors.DataMissing("tools: no prediction for game %s: %v", gameID, err)
	}
	return doc, nil
}

func (r *Registry) toolPredictionFeatureValues(ctx context.Context, args map[string]any) (any, error) {
	gameID, err := stringArg(args, "game_id")
	if err != nil {
		return nil, err
	}
	doc, err := r.Predictions.Get(ctx, gameID)
	if err != nil {
		return nil, modelerrors.DataMissing("tools: no prediction for game %s: %v", gameID, err)
	}
	keys := stringsArg(args, "keys")
	if len(keys) == 0 {
		return doc.FeaturesDict, nil
	}
	out := make(map[string]float64, len(keys))
	for _, k := range keys {
		out[k] = doc.FeaturesDict[k]
	}
	return out, nil
}

func (r *Registry) toolPredictionBaseOutputs(gameID string) func(ctx context.Context, args map[string]any) (any, error) {
	return func(ctx context.Context, args map[string]any) (any, error) {
		pred, err := r.Predictions.Get(ctx, gameID)
		if err != nil {
			return nil, modelerrors.DataMissing("tools: no prediction for game %s: %v", gameID, err)
		}
		ens, err := r.LoadEnsemble(ctx)
		if err != nil {
			return nil, err
		}
		table := ens.DirectionTable(pred.FeaturesDict)
		summaries := ens.BaseSummaries()
		out := make([]map[string]any, len(summaries))
		for i, b := range summaries {
			out[i] = map[string]any{"config_id": b.ConfigID, "name": b.Name, "p_home": table[b.Column]}
		}
		return out, nil
	}
}

func (r *Registry) toolEnsembleMetaModelParams(gameID string) func(ctx context.Context, args map[string]any) (any, error) {
	return func(ctx context.Context, args map[string]any) (any, error) {
		ens, err := r.LoadEnsemble(ctx)
		if err != nil {
			return nil, err
		}
		return ens.MetaModelParams(), nil
	}
}

func (r *Registry) toolScenarioSnapshot(ctx context.Context, args map[string]any) (any, error) {
	snapshotID, err := stringArg(args, "snapshot_id")
	if err != nil {
		return nil, err
	}
	snap, err := r.Scenarios.Get(ctx, snapshotID)
	if err != nil {
		return nil, modelerrors.DataMissing("tools: scenario snapshot %s not found: %v", snapshotID, err)
	}
	return snap, nil
}

// toolDiffScenario compares a captured what-if snapshot against the game's
// live prediction: the probability swing, whether the predicted winner
// flipped, and the per-feature deltas behind the swing.
func (r *Registry) toolDiffScenario(ctx context.Context, args map[string]any) (any, error) {
	snapshotID, err := stringArg(args, "snapshot_id")
	if err != nil {
		return nil, err
	}
	gameID, err := stringArg(args, "game_id")
	if err != nil {
		return nil, err
	}

	snap, err := r.Scenarios.Get(ctx, snapshotID)
	if err != nil {
		return nil, modelerrors.DataMissing("tools: scenario snapshot %s not found: %v", snapshotID, err)
	}
	live, err := r.Predictions.Get(ctx, gameID)
	if err != nil {
		return nil, modelerrors.DataMissing("tools: no prediction for game %s: %v", gameID, err)
	}

	featureDelta := make(map[string]float64)
	for key, liveVal := range live.FeaturesDict {
		if scenarioVal, ok := snap.Prediction.FeaturesDict[key]; ok && scenarioVal != liveVal {
			featureDelta[key] = scenarioVal - liveVal
		}
	}
	for key, scenarioVal := range snap.Prediction.FeaturesDict {
		if _, ok := live.FeaturesDict[key]; !ok {
			featureDelta[key] = scenarioVal
		}
	}

	return map[string]any{
		"snapshot_id": snap.SnapshotID,
		"game_id": gameID,
		"live_home_win_prob": live.HomeWinProb,
		"scenario_home_win_prob": snap.Prediction.HomeWinProb,
		"home_win_prob_delta": snap.Prediction.HomeWinProb - live.HomeWinProb,
		"live_predicted_winner": live.PredictedWinner,
		"scenario_predicted_winner": snap.Prediction.PredictedWinner,
		"winner_flipped": live.PredictedWinner != snap.Prediction.PredictedWinner,
		"feature_deltas": featureDelta,
		"reason": snap.Reason,
	}, nil
}
